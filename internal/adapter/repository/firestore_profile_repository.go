package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"supportchat/internal/domain/entity"
	"supportchat/internal/domain/repository"
	"supportchat/pkg/errors"
)

type firestoreProfileRepository struct {
	client *firestore.Client
}

func NewFirestoreProfileRepository(client *firestore.Client) repository.ProfileRepository {
	return &firestoreProfileRepository{
		client: client,
	}
}

func (r *firestoreProfileRepository) GetByID(ctx context.Context, userID string) (*entity.Profile, error) {
	doc, err := r.client.Collection("users").Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Profile", err)
		}
		return nil, errors.Internal("Failed to get profile", err)
	}

	var profile entity.Profile
	if err := doc.DataTo(&profile); err != nil {
		return nil, errors.Internal("Failed to parse profile data", err)
	}
	profile.UserID = doc.Ref.ID

	return &profile, nil
}
