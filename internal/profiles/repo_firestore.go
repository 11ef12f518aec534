package profiles

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"skills-backend/internal/shared/util"
)

const firestoreCollection = "profile_skills"

// FirestoreRepo stores profiles as documents keyed by the hashed user id.
type FirestoreRepo struct {
	Client *firestore.Client
}

// NewFirestoreClient opens a Firestore client for projectID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("GCP_PROJECT_ID must be provided to create a firestore client")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return client, nil
}

func (r *FirestoreRepo) doc(userID string) *firestore.DocumentRef {
	return r.Client.Collection(firestoreCollection).Doc(util.OwnerKey(userID))
}

// Put replaces the whole document; fields from an older save never survive.
func (r *FirestoreRepo) Put(ctx context.Context, p Profile) error {
	p.Skills = nonNilSkills(p.Skills)
	p.CategorizedSkills = nonNilCategories(p.CategorizedSkills)
	if _, err := r.doc(p.UserID).Set(ctx, p); err != nil {
		return fmt.Errorf("firestore set profile: %w", err)
	}
	return nil
}

func (r *FirestoreRepo) Get(ctx context.Context, userID string) (Profile, error) {
	snap, err := r.doc(userID).Get(ctx)
	if snap != nil && !snap.Exists() {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("firestore get profile: %w", err)
	}
	var p Profile
	if err := snap.DataTo(&p); err != nil {
		return Profile{}, fmt.Errorf("firestore decode profile: %w", err)
	}
	return p, nil
}

var _ Repo = (*FirestoreRepo)(nil)
