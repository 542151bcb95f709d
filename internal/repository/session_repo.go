package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"intaker/internal/model"
)

// SessionRepo handles MongoDB operations for intake sessions
type SessionRepo interface {
	Create(ctx context.Context, session *model.IntakeSession) error
	GetByID(ctx context.Context, id string) (*model.IntakeSession, error)
	Update(ctx context.Context, session *model.IntakeSession) error
	End(ctx context.Context, id string, status model.SessionStatus) error
}

type sessionRepo struct {
	collection *mongo.Collection
}

// NewSessionRepo creates a new session repository
func NewSessionRepo(db *mongo.Database) SessionRepo {
	return &sessionRepo{
		collection: db.Collection("sessions"),
	}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.IntakeSession) error {
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, session)
	return err
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.IntakeSession, error) {
	var session model.IntakeSession
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) Update(ctx context.Context, session *model.IntakeSession) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": session.ID}, bson.M{"$set": session})
	return err
}

func (r *sessionRepo) End(ctx context.Context, id string, status model.SessionStatus) error {
	now := time.Now()
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": status, "endedAt": now},
	})
	return err
}
