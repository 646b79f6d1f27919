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

const envSharesCollection = "env_shares"

// firestoreEnvShareRepository implements the EnvShareRepository interface using Firestore.
type firestoreEnvShareRepository struct {
	client *firestore.Client
}

// NewFirestoreEnvShareRepository creates a new instance of firestoreEnvShareRepository.
func NewFirestoreEnvShareRepository(client *firestore.Client) EnvShareRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for EnvShareRepository.")
	}
	return &firestoreEnvShareRepository{client: client}
}

// Create adds a new share document with an auto-generated ID.
func (r *firestoreEnvShareRepository) Create(ctx context.Context, share *models.EnvShare) (string, error) {
	docRef := r.client.Collection(envSharesCollection).NewDoc()
	share.ID = docRef.ID

	_, err := docRef.Create(ctx, share)
	if err != nil {
		return "", fmt.Errorf("failed to create env share: %w", err)
	}
	return docRef.ID, nil
}

// GetByID retrieves a share document by its ID.
func (r *firestoreEnvShareRepository) GetByID(ctx context.Context, shareID string) (*models.EnvShare, error) {
	if shareID == "" {
		return nil, errors.New("shareID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(envSharesCollection).Doc(shareID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("env share with ID '%s' not found: %w", shareID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get env share with ID '%s': %w", shareID, err)
	}
	return decodeShare(docSnap)
}

// GetByToken retrieves a share document by its access token. Unknown tokens
// map to ErrNotFound; the service layer is responsible for presenting that
// identically to an inactive share.
func (r *firestoreEnvShareRepository) GetByToken(ctx context.Context, token string) (*models.EnvShare, error) {
	if token == "" {
		return nil, fmt.Errorf("empty share token: %w", ErrNotFound)
	}

	iter := r.client.Collection(envSharesCollection).
		Where("token", "==", token).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, fmt.Errorf("env share with given token not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query env share by token: %w", err)
	}
	return decodeShare(doc)
}

// GetByEnvironmentID retrieves all shares of an environment, newest first.
func (r *firestoreEnvShareRepository) GetByEnvironmentID(ctx context.Context, environmentID string) ([]*models.EnvShare, error) {
	if environmentID == "" {
		return nil, errors.New("environmentID cannot be empty for GetByEnvironmentID operation")
	}

	iter := r.client.Collection(envSharesCollection).
		Where("environmentId", "==", environmentID).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var shares []*models.EnvShare
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate env shares for environment '%s': %w", environmentID, err)
		}
		share, err := decodeShare(doc)
		if err != nil {
			log.Printf("Error decoding env share data (ID: %s): %v. Skipping.", doc.Ref.ID, err)
			continue
		}
		shares = append(shares, share)
	}
	return shares, nil
}

// Deactivate latches isActive to false. Setting it false twice is harmless,
// and nothing ever sets it back to true.
func (r *firestoreEnvShareRepository) Deactivate(ctx context.Context, shareID string) error {
	if shareID == "" {
		return errors.New("shareID cannot be empty for Deactivate operation")
	}
	_, err := r.client.Collection(envSharesCollection).Doc(shareID).Update(ctx, []firestore.Update{
		{Path: "isActive", Value: false},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("env share with ID '%s' not found: %w", shareID, ErrNotFound)
		}
		return fmt.Errorf("failed to deactivate env share '%s': %w", shareID, err)
	}
	return nil
}

// ConsumeAccess performs the quota check, the counter increment and any
// resulting latch as one Firestore transaction. Firestore retries the
// transaction on contention, so of two racing accesses against a single free
// slot exactly one commits an increment and the other re-reads the latched
// document and fails with ErrShareQuotaExhausted or ErrShareInactive.
func (r *firestoreEnvShareRepository) ConsumeAccess(ctx context.Context, shareID string, kind ShareAccessKind) (*models.EnvShare, error) {
	if shareID == "" {
		return nil, errors.New("shareID cannot be empty for ConsumeAccess operation")
	}
	docRef := r.client.Collection(envSharesCollection).Doc(shareID)

	// A quota refusal must still COMMIT the isActive latch. RunTransaction
	// rolls back buffered writes when the closure errors, so the refusal is
	// carried out of the transaction in a flag and translated afterwards.
	var committed models.EnvShare
	var quotaExhausted bool
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		quotaExhausted = false // the closure may be retried on contention

		docSnap, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("env share with ID '%s' not found: %w", shareID, ErrNotFound)
			}
			return fmt.Errorf("failed to get env share '%s': %w", shareID, err)
		}

		var share models.EnvShare
		if err := docSnap.DataTo(&share); err != nil {
			return fmt.Errorf("failed to decode env share data for ID '%s': %w", shareID, err)
		}
		share.ID = docSnap.Ref.ID

		if !share.IsActive {
			return ErrShareInactive
		}

		switch kind {
		case ShareAccessDownload:
			if share.MaxDownloads >= 0 && share.DownloadCount >= share.MaxDownloads {
				share.IsActive = false
				quotaExhausted = true
				return txWriteShareCounters(tx, docRef, &share)
			}
			share.DownloadCount++
			// A download is inherently single-use regardless of the limit.
			share.IsActive = false
		case ShareAccessView:
			if share.MaxViews >= 0 && share.ViewCount >= share.MaxViews {
				share.IsActive = false
				quotaExhausted = true
				return txWriteShareCounters(tx, docRef, &share)
			}
			share.ViewCount++
			if share.OneTime || (share.MaxViews >= 0 && share.ViewCount >= share.MaxViews) {
				share.IsActive = false
			}
		default:
			return fmt.Errorf("unknown share access kind %q", kind)
		}

		committed = share
		return txWriteShareCounters(tx, docRef, &share)
	})
	if err != nil {
		return nil, err
	}
	if quotaExhausted {
		return nil, ErrShareQuotaExhausted
	}
	return &committed, nil
}

// DeleteByEnvironmentID removes all shares of an environment, used when an
// environment is deleted.
func (r *firestoreEnvShareRepository) DeleteByEnvironmentID(ctx context.Context, environmentID string) error {
	if environmentID == "" {
		return errors.New("environmentID cannot be empty for DeleteByEnvironmentID operation")
	}

	iter := r.client.Collection(envSharesCollection).
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
			return fmt.Errorf("failed to iterate env shares for environment '%s': %w", environmentID, err)
		}
		if _, err := bw.Delete(doc.Ref); err != nil {
			return fmt.Errorf("failed to enqueue delete for env share '%s': %w", doc.Ref.ID, err)
		}
	}
	bw.End()
	return nil
}

func txWriteShareCounters(tx *firestore.Transaction, docRef *firestore.DocumentRef, share *models.EnvShare) error {
	return tx.Update(docRef, []firestore.Update{
		{Path: "viewCount", Value: share.ViewCount},
		{Path: "downloadCount", Value: share.DownloadCount},
		{Path: "isActive", Value: share.IsActive},
	})
}

func decodeShare(docSnap *firestore.DocumentSnapshot) (*models.EnvShare, error) {
	var share models.EnvShare
	if err := docSnap.DataTo(&share); err != nil {
		return nil, fmt.Errorf("failed to decode env share data for ID '%s': %w", docSnap.Ref.ID, err)
	}
	share.ID = docSnap.Ref.ID
	return &share, nil
}
