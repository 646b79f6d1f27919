package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"envvault-backend-go/internal/models"
)

const envVariablesCollection = "env_variables"

// firestoreEnvVariableRepository implements the EnvVariableRepository interface using Firestore.
type firestoreEnvVariableRepository struct {
	client *firestore.Client
}

// NewFirestoreEnvVariableRepository creates a new instance of firestoreEnvVariableRepository.
func NewFirestoreEnvVariableRepository(client *firestore.Client) EnvVariableRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for EnvVariableRepository.")
	}
	return &firestoreEnvVariableRepository{client: client}
}

// Create adds a new variable document with an auto-generated ID. The caller
// has already encrypted Value when IsSecret is set.
func (r *firestoreEnvVariableRepository) Create(ctx context.Context, envVar *models.EnvVariable) (string, error) {
	docRef := r.client.Collection(envVariablesCollection).NewDoc()
	envVar.ID = docRef.ID

	_, err := docRef.Create(ctx, envVar)
	if err != nil {
		return "", fmt.Errorf("failed to create env variable: %w", err)
	}
	return docRef.ID, nil
}

// GetByID retrieves a variable document by its ID. Value is returned exactly
// as stored (ciphertext for secrets).
func (r *firestoreEnvVariableRepository) GetByID(ctx context.Context, envVarID string) (*models.EnvVariable, error) {
	if envVarID == "" {
		return nil, errors.New("envVarID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(envVariablesCollection).Doc(envVarID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("env variable with ID '%s' not found: %w", envVarID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get env variable with ID '%s': %w", envVarID, err)
	}

	var envVar models.EnvVariable
	if err := docSnap.DataTo(&envVar); err != nil {
		return nil, fmt.Errorf("failed to decode env variable data for ID '%s': %w", envVarID, err)
	}
	envVar.ID = docSnap.Ref.ID
	return &envVar, nil
}

// GetByEnvironmentID retrieves all variables of an environment.
func (r *firestoreEnvVariableRepository) GetByEnvironmentID(ctx context.Context, environmentID string) ([]*models.EnvVariable, error) {
	if environmentID == "" {
		return nil, errors.New("environmentID cannot be empty for GetByEnvironmentID operation")
	}

	iter := r.client.Collection(envVariablesCollection).
		Where("environmentId", "==", environmentID).
		Documents(ctx)
	defer iter.Stop()

	var envVars []*models.EnvVariable
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate env variables for environment '%s': %w", environmentID, err)
		}

		var envVar models.EnvVariable
		if err := doc.DataTo(&envVar); err != nil {
			log.Printf("Error decoding env variable data (ID: %s) for environment '%s': %v. Skipping.", doc.Ref.ID, environmentID, err)
			continue
		}
		envVar.ID = doc.Ref.ID
		envVars = append(envVars, &envVar)
	}
	return envVars, nil
}

// Update writes key, value and isSecret in one document update, so the
// secrecy flag and the stored representation change together or not at all.
func (r *firestoreEnvVariableRepository) Update(ctx context.Context, envVar *models.EnvVariable) error {
	if envVar == nil || envVar.ID == "" {
		return errors.New("env variable with a non-empty ID is required for Update operation")
	}
	_, err := r.client.Collection(envVariablesCollection).Doc(envVar.ID).Update(ctx, []firestore.Update{
		{Path: "key", Value: envVar.Key},
		{Path: "value", Value: envVar.Value},
		{Path: "isSecret", Value: envVar.IsSecret},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("env variable with ID '%s' not found: %w", envVar.ID, ErrNotFound)
		}
		return fmt.Errorf("failed to update env variable '%s': %w", envVar.ID, err)
	}
	return nil
}

// Delete removes a variable document.
func (r *firestoreEnvVariableRepository) Delete(ctx context.Context, envVarID string) error {
	if envVarID == "" {
		return errors.New("envVarID cannot be empty for Delete operation")
	}
	_, err := r.client.Collection(envVariablesCollection).Doc(envVarID).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete env variable '%s': %w", envVarID, err)
	}
	return nil
}

// DeleteByEnvironmentID removes all variables of an environment, used when an
// environment is deleted.
func (r *firestoreEnvVariableRepository) DeleteByEnvironmentID(ctx context.Context, environmentID string) error {
	if environmentID == "" {
		return errors.New("environmentID cannot be empty for DeleteByEnvironmentID operation")
	}

	iter := r.client.Collection(envVariablesCollection).
		Where("environmentId", "==", environmentID).
		Documents(ctx)
	defer iter.Stop()

	bw := r.client.BulkWriter(ctx)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to iterate env variables for environment '%s': %w", environmentID, err)
		}
		if _, err := bw.Delete(doc.Ref); err != nil {
			return fmt.Errorf("failed to enqueue delete for env variable '%s': %w", doc.Ref.ID, err)
		}
	}
	bw.End()
	return nil
}
