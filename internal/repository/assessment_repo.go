package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"intaker/internal/model"
)

// AssessmentRepo handles MongoDB operations for sealed evaluations and
// treatment plans
type AssessmentRepo interface {
	UpsertEvaluation(ctx context.Context, eval *model.SealedEvaluation) error
	GetEvaluation(ctx context.Context, sessionID string) (*model.SealedEvaluation, error)
	UpsertPlan(ctx context.Context, plan *model.TreatmentPlan) error
	GetPlan(ctx context.Context, sessionID string) (*model.TreatmentPlan, error)
}

type assessmentRepo struct {
	evaluations *mongo.Collection
	plans       *mongo.Collection
}

// NewAssessmentRepo creates a new assessment repository
func NewAssessmentRepo(db *mongo.Database) AssessmentRepo {
	return &assessmentRepo{
		evaluations: db.Collection("evaluations"),
		plans:       db.Collection("plans"),
	}
}

// UpsertEvaluation stores the sealed evaluation for a session,
// incrementing the document version on every write.
func (r *assessmentRepo) UpsertEvaluation(ctx context.Context, eval *model.SealedEvaluation) error {
	eval.UpdatedAt = time.Now()
	_, err := r.evaluations.UpdateOne(ctx,
		bson.M{"_id": eval.SessionID},
		bson.M{
			"$set": bson.M{
				"scores":      eval.Scores,
				"levelOfCare": eval.LevelOfCare,
				"signature":   eval.Signature,
				"updatedAt":   eval.UpdatedAt,
			},
			"$inc": bson.M{"version": 1},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *assessmentRepo) GetEvaluation(ctx context.Context, sessionID string) (*model.SealedEvaluation, error) {
	var eval model.SealedEvaluation
	err := r.evaluations.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&eval)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &eval, nil
}

func (r *assessmentRepo) UpsertPlan(ctx context.Context, plan *model.TreatmentPlan) error {
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now()
	}
	_, err := r.plans.UpdateOne(ctx,
		bson.M{"_id": plan.SessionID},
		bson.M{"$set": plan},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *assessmentRepo) GetPlan(ctx context.Context, sessionID string) (*model.TreatmentPlan, error) {
	var plan model.TreatmentPlan
	err := r.plans.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&plan)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}
