package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"intaker/internal/model"
)

// AuditRepo handles the append-only audit log. Events carry metadata
// only; callers must never pass utterance text or answer values.
type AuditRepo interface {
	Append(ctx context.Context, event *model.AuditEvent) error
	ListBySession(ctx context.Context, sessionID string) ([]*model.AuditEvent, error)
}

type auditRepo struct {
	collection *mongo.Collection
}

// NewAuditRepo creates a new audit repository
func NewAuditRepo(db *mongo.Database) AuditRepo {
	return &auditRepo{
		collection: db.Collection("audit_events"),
	}
}

func (r *auditRepo) Append(ctx context.Context, event *model.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, event)
	return err
}

func (r *auditRepo) ListBySession(ctx context.Context, sessionID string) ([]*model.AuditEvent, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"sessionId": sessionID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []*model.AuditEvent
	if err = cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
