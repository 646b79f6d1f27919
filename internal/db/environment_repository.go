package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"envvault-backend-go/internal/models"
)

const environmentsCollection = "environments"

// firestoreEnvironmentRepository implements the EnvironmentRepository interface using Firestore.
type firestoreEnvironmentRepository struct {
	client *firestore.Client
}

// NewFirestoreEnvironmentRepository creates a new instance of firestoreEnvironmentRepository.
func NewFirestoreEnvironmentRepository(client *firestore.Client) EnvironmentRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for EnvironmentRepository.")
	}
	return &firestoreEnvironmentRepository{client: client}
}

// Create adds a new environment document with an auto-generated ID.
func (r *firestoreEnvironmentRepository) Create(ctx context.Context, env *models.Environment) (string, error) {
	docRef := r.client.Collection(environmentsCollection).NewDoc()
	env.ID = docRef.ID

	_, err := docRef.Create(ctx, env)
	if err != nil {
		return "", fmt.Errorf("failed to create environment: %w", err)
	}
	return docRef.ID, nil
}

// GetByID retrieves an environment document by its ID.
func (r *firestoreEnvironmentRepository) GetByID(ctx context.Context, environmentID string) (*models.Environment, error) {
	if environmentID == "" {
		return nil, errors.New("environmentID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(environmentsCollection).Doc(environmentID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("environment with ID '%s' not found: %w", environmentID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get environment with ID '%s': %w", environmentID, err)
	}

	var env models.Environment
	if err := docSnap.DataTo(&env); err != nil {
		return nil, fmt.Errorf("failed to decode environment data for ID '%s': %w", environmentID, err)
	}
	env.ID = docSnap.Ref.ID
	return &env, nil
}

// GetByProjectID retrieves all environments belonging to a project.
func (r *firestoreEnvironmentRepository) GetByProjectID(ctx context.Context, projectID string) ([]*models.Environment, error) {
	if projectID == "" {
		return nil, errors.New("projectID cannot be empty for GetByProjectID operation")
	}

	iter := r.client.Collection(environmentsCollection).
		Where("projectId", "==", projectID).
		Documents(ctx)
	defer iter.Stop()

	var environments []*models.Environment
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate environments for project '%s': %w", projectID, err)
		}

		var env models.Environment
		if err := doc.DataTo(&env); err != nil {
			log.Printf("Error decoding environment data (ID: %s) for project '%s': %v. Skipping.", doc.Ref.ID, projectID, err)
			continue
		}
		env.ID = doc.Ref.ID
		environments = append(environments, &env)
	}
	return environments, nil
}

// Update overwrites the mutable fields of an environment document.
func (r *firestoreEnvironmentRepository) Update(ctx context.Context, env *models.Environment) error {
	if env == nil || env.ID == "" {
		return errors.New("environment with a non-empty ID is required for Update operation")
	}
	_, err := r.client.Collection(environmentsCollection).Doc(env.ID).Update(ctx, []firestore.Update{
		{Path: "name", Value: env.Name},
		{Path: "projectId", Value: env.ProjectID},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("environment with ID '%s' not found: %w", env.ID, ErrNotFound)
		}
		return fmt.Errorf("failed to update environment '%s': %w", env.ID, err)
	}
	return nil
}

// Delete removes an environment document. Cascading deletion of its variables
// and share links is orchestrated by the service layer.
func (r *firestoreEnvironmentRepository) Delete(ctx context.Context, environmentID string) error {
	if environmentID == "" {
		return errors.New("environmentID cannot be empty for Delete operation")
	}
	_, err := r.client.Collection(environmentsCollection).Doc(environmentID).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete environment '%s': %w", environmentID, err)
	}
	return nil
}
