package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"supportchat/internal/domain/entity"
	"supportchat/internal/domain/repository"
	"supportchat/pkg/errors"
	"supportchat/pkg/logger"
)

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

func (r *firestoreConversationRepository) messages(conversationID string) *firestore.CollectionRef {
	return r.client.Collection("conversations").Doc(conversationID).Collection("messages")
}

func (r *firestoreConversationRepository) CreateMessage(ctx context.Context, conversationID string, message *entity.Message) error {
	// The parent doc carries updatedAt so the conversation shows up in
	// collection listings even though messages live in a subcollection.
	_, err := r.client.Collection("conversations").Doc(conversationID).Set(ctx, map[string]interface{}{
		"updatedAt": time.Now(),
	}, firestore.MergeAll)
	if err != nil {
		return errors.WriteFailed("Failed to touch conversation", err)
	}

	_, err = r.messages(conversationID).Doc(message.ID).Set(ctx, message)
	if err != nil {
		return errors.WriteFailed("Failed to create message", err)
	}

	return nil
}

func (r *firestoreConversationRepository) CreateMessageIfAbsent(ctx context.Context, conversationID string, message *entity.Message) (bool, error) {
	_, err := r.client.Collection("conversations").Doc(conversationID).Set(ctx, map[string]interface{}{
		"updatedAt": time.Now(),
	}, firestore.MergeAll)
	if err != nil {
		return false, errors.WriteFailed("Failed to touch conversation", err)
	}

	// Create fails with AlreadyExists when the doc id is taken, which makes
	// the seed a single atomic insert-if-missing.
	_, err = r.messages(conversationID).Doc(message.ID).Create(ctx, message)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return false, nil
		}
		return false, errors.WriteFailed("Failed to seed message", err)
	}

	return true, nil
}

func (r *firestoreConversationRepository) MarkMessagesRead(ctx context.Context, conversationID string, messageIDs []string, readAt int64) error {
	if len(messageIDs) == 0 {
		return nil
	}

	// One WriteBatch so all read flags commit or none do.
	batch := r.client.Batch()
	for _, id := range messageIDs {
		batch.Update(r.messages(conversationID).Doc(id), []firestore.Update{
			{Path: "read", Value: true},
			{Path: "readAt", Value: readAt},
		})
	}

	if _, err := batch.Commit(ctx); err != nil {
		return errors.WriteFailed("Failed to mark messages read", err)
	}

	return nil
}

func (r *firestoreConversationRepository) ListMessages(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	iter := r.messages(conversationID).OrderBy("timestamp", firestore.Asc).Documents(ctx)

	var messages []*entity.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while iterating messages for conversation %s: %v", conversationID, err)
			return nil, errors.Internal("Failed to iterate messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			logger.Error("Error parsing message data for conversation %s: %v", conversationID, err)
			return nil, errors.Internal("Failed to parse message data", err)
		}

		messages = append(messages, &message)
	}

	return messages, nil
}

func (r *firestoreConversationRepository) ListConversationIDs(ctx context.Context) ([]string, error) {
	iter := r.client.Collection("conversations").Documents(ctx)

	var ids []string
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to list conversations", err)
		}
		ids = append(ids, doc.Ref.ID)
	}

	return ids, nil
}
