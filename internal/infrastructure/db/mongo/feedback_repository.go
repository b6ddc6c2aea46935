package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/feedbackhub/feedback-system/internal/core/domain"
)

const collectionFeedback = "feedback"

// FeedbackRepository implements ports.FeedbackRepository using MongoDB.
// Replace and Delete match on {_id, version}, which makes the version check
// and the write a single atomic operation on the server.
type FeedbackRepository struct {
	col *mongo.Collection
}

func NewFeedbackRepository(db *mongo.Database) *FeedbackRepository {
	return &FeedbackRepository{col: db.Collection(collectionFeedback)}
}

// Create inserts a new feedback document.
func (r *FeedbackRepository) Create(ctx context.Context, f *domain.Feedback) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, f); err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

func (r *FeedbackRepository) FindByID(ctx context.Context, id string) (*domain.Feedback, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var f domain.Feedback
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrFeedbackNotFound
		}
		return nil, fmt.Errorf("find feedback: %w", err)
	}
	return &f, nil
}

func (r *FeedbackRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Feedback, error) {
	return r.list(ctx, bson.M{"owner_id": ownerID})
}

func (r *FeedbackRepository) ListAll(ctx context.Context) ([]*domain.Feedback, error) {
	return r.list(ctx, bson.M{})
}

func (r *FeedbackRepository) list(ctx context.Context, filter bson.M) ([]*domain.Feedback, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	items := make([]*domain.Feedback, 0)
	if err := cur.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return items, nil
}

// Replace stores f if the stored document is still at expectedVersion.
func (r *FeedbackRepository) Replace(ctx context.Context, f *domain.Feedback, expectedVersion int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": f.ID, "version": expectedVersion}, f)
	if err != nil {
		return fmt.Errorf("replace feedback: %w", err)
	}
	if res.MatchedCount == 0 {
		return r.missOrConflict(ctx, f.ID)
	}
	return nil
}

// Delete removes the document if it is still at expectedVersion.
func (r *FeedbackRepository) Delete(ctx context.Context, id string, expectedVersion int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id, "version": expectedVersion})
	if err != nil {
		return fmt.Errorf("delete feedback: %w", err)
	}
	if res.DeletedCount == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

// missOrConflict explains why a conditional write matched nothing.
func (r *FeedbackRepository) missOrConflict(ctx context.Context, id string) error {
	err := r.col.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return domain.ErrFeedbackNotFound
	case err != nil:
		return fmt.Errorf("check feedback: %w", err)
	default:
		return domain.ErrVersionConflict
	}
}

// EnsureIndexes creates necessary indexes on the feedback collection.
func (r *FeedbackRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
