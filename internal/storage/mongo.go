package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/theloz33-bot/jino-ai-interviewer/internal/interview"
)

// MongoStore keeps one document per session with the session id as _id.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore uses the given collection.
func NewMongoStore(collection *mongo.Collection) *MongoStore {
	return &MongoStore{collection: collection}
}

func (s *MongoStore) Create(ctx context.Context, userID string, settings interview.Settings) (*interview.Session, error) {
	session := interview.NewSession(uuid.NewString(), userID, settings)

	if _, err := s.collection.InsertOne(ctx, session); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("session id collision: %s", session.ID)
		}
		return nil, fmt.Errorf("mongo insert: %w", err)
	}

	return session, nil
}

func (s *MongoStore) Get(ctx context.Context, sessionID string) (*interview.Session, error) {
	var session interview.Session
	err := s.collection.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interview.ErrSessionNotFound
		}
		return nil, fmt.Errorf("mongo find: %w", err)
	}

	if session.QALog == nil {
		session.QALog = []interview.QAItem{}
	}
	return &session, nil
}

func (s *MongoStore) Save(ctx context.Context, session *interview.Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session id is required")
	}

	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": session.ID}, session, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo replace: %w", err)
	}
	return nil
}
