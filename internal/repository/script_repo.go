package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"intaker/internal/model"
)

// ScriptRepo handles MongoDB operations for intake scripts
type ScriptRepo interface {
	Upsert(ctx context.Context, script *model.IntakeScript) error
	GetByID(ctx context.Context, scriptID string) (*model.IntakeScript, error)
	GetActive(ctx context.Context) (*model.IntakeScript, error)
	SetActive(ctx context.Context, scriptID string) error
}

type scriptRepo struct {
	collection *mongo.Collection
}

// NewScriptRepo creates a new script repository
func NewScriptRepo(db *mongo.Database) ScriptRepo {
	return &scriptRepo{
		collection: db.Collection("scripts"),
	}
}

func (r *scriptRepo) Upsert(ctx context.Context, script *model.IntakeScript) error {
	script.UpdatedAt = time.Now()
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": script.ScriptID},
		bson.M{"$set": script},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *scriptRepo) GetByID(ctx context.Context, scriptID string) (*model.IntakeScript, error) {
	var script model.IntakeScript
	err := r.collection.FindOne(ctx, bson.M{"_id": scriptID}).Decode(&script)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &script, nil
}

func (r *scriptRepo) GetActive(ctx context.Context) (*model.IntakeScript, error) {
	var script model.IntakeScript
	err := r.collection.FindOne(ctx, bson.M{"active": true}).Decode(&script)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &script, nil
}

// SetActive marks one script active and clears the flag everywhere else.
func (r *scriptRepo) SetActive(ctx context.Context, scriptID string) error {
	if _, err := r.collection.UpdateMany(ctx,
		bson.M{"active": true},
		bson.M{"$set": bson.M{"active": false}},
	); err != nil {
		return err
	}
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": scriptID},
		bson.M{"$set": bson.M{"active": true}},
	)
	return err
}
