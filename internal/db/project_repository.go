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

const projectsCollection = "projects"

// firestoreProjectRepository implements the ProjectRepository interface using Firestore.
type firestoreProjectRepository struct {
	client *firestore.Client
}

// NewFirestoreProjectRepository creates a new instance of firestoreProjectRepository.
func NewFirestoreProjectRepository(client *firestore.Client) ProjectRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for ProjectRepository.")
	}
	return &firestoreProjectRepository{client: client}
}

// Create adds a new project document with an auto-generated ID. The caller is
// expected to have populated Members (and OwnerID) already, so the owner
// membership is committed in the same write as the project itself.
func (r *firestoreProjectRepository) Create(ctx context.Context, project *models.Project) (string, error) {
	docRef := r.client.Collection(projectsCollection).NewDoc()
	project.ID = docRef.ID
	project.MemberIDs = memberIDsOf(project.Members)

	_, err := docRef.Create(ctx, project)
	if err != nil {
		return "", fmt.Errorf("failed to create project: %w", err)
	}
	return docRef.ID, nil
}

// GetByID retrieves a project document by its ID.
func (r *firestoreProjectRepository) GetByID(ctx context.Context, projectID string) (*models.Project, error) {
	if projectID == "" {
		return nil, errors.New("projectID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(projectsCollection).Doc(projectID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("project with ID '%s' not found: %w", projectID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get project with ID '%s': %w", projectID, err)
	}

	var project models.Project
	if err := docSnap.DataTo(&project); err != nil {
		return nil, fmt.Errorf("failed to decode project data for ID '%s': %w", projectID, err)
	}
	project.ID = docSnap.Ref.ID
	return &project, nil
}

// GetByMemberID retrieves all projects where the given user holds a
// membership, newest first.
func (r *firestoreProjectRepository) GetByMemberID(ctx context.Context, userID string) ([]*models.Project, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetByMemberID operation")
	}

	query := r.client.Collection(projectsCollection).
		Where("memberIds", "array-contains", userID).
		OrderBy("createdAt", firestore.Desc)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var projects []*models.Project
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate projects for member '%s': %w", userID, err)
		}

		var project models.Project
		if err := doc.DataTo(&project); err != nil {
			log.Printf("Error decoding project data (ID: %s) for member '%s': %v. Skipping.", doc.Ref.ID, userID, err)
			continue
		}
		project.ID = doc.Ref.ID
		projects = append(projects, &project)
	}
	return projects, nil
}

// SetMember adds or updates a membership entry inside a transaction so the
// members map and the memberIds mirror stay consistent.
func (r *firestoreProjectRepository) SetMember(ctx context.Context, projectID, userID string, role models.Role) error {
	if projectID == "" || userID == "" {
		return errors.New("projectID and userID are required for SetMember operation")
	}
	docRef := r.client.Collection(projectsCollection).Doc(projectID)

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docSnap, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("project with ID '%s' not found: %w", projectID, ErrNotFound)
			}
			return fmt.Errorf("failed to get project '%s': %w", projectID, err)
		}

		var project models.Project
		if err := docSnap.DataTo(&project); err != nil {
			return fmt.Errorf("failed to decode project data for ID '%s': %w", projectID, err)
		}
		if project.Members == nil {
			project.Members = make(map[string]models.Role)
		}
		project.Members[userID] = role

		return tx.Update(docRef, []firestore.Update{
			{Path: "members", Value: project.Members},
			{Path: "memberIds", Value: memberIDsOf(project.Members)},
		})
	})
}

// RemoveMember deletes a membership entry, again transactionally to keep the
// memberIds mirror in sync.
func (r *firestoreProjectRepository) RemoveMember(ctx context.Context, projectID, userID string) error {
	if projectID == "" || userID == "" {
		return errors.New("projectID and userID are required for RemoveMember operation")
	}
	docRef := r.client.Collection(projectsCollection).Doc(projectID)

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docSnap, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("project with ID '%s' not found: %w", projectID, ErrNotFound)
			}
			return fmt.Errorf("failed to get project '%s': %w", projectID, err)
		}

		var project models.Project
		if err := docSnap.DataTo(&project); err != nil {
			return fmt.Errorf("failed to decode project data for ID '%s': %w", projectID, err)
		}
		delete(project.Members, userID)

		return tx.Update(docRef, []firestore.Update{
			{Path: "members", Value: project.Members},
			{Path: "memberIds", Value: memberIDsOf(project.Members)},
		})
	})
}

// Delete removes a project document. Cascading deletion of environments,
// variables and shares is orchestrated by the service layer.
func (r *firestoreProjectRepository) Delete(ctx context.Context, projectID string) error {
	if projectID == "" {
		return errors.New("projectID cannot be empty for Delete operation")
	}
	_, err := r.client.Collection(projectsCollection).Doc(projectID).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete project '%s': %w", projectID, err)
	}
	return nil
}

func memberIDsOf(members map[string]models.Role) []string {
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids
}
