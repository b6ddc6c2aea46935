package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/feedbackhub/feedback-system/internal/core/domain"
)

const collectionAudit = "audit_entries"

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	col *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{col: db.Collection(collectionAudit)}
}

// Record appends a mutation attempt to the audit_entries collection.
func (r *AuditRepository) Record(ctx context.Context, e *domain.AuditEntry) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := bson.M{
		"feedback_id": e.FeedbackID,
		"actor_id":    e.Actor.Subject,
		"actor_role":  e.Actor.Role.String(),
		"action":      string(e.Action),
		"outcome":     string(e.Outcome),
		"reason":      e.Reason,
		"at":          e.At.UTC(),
		"recorded_at": time.Now().UTC(),
	}

	_, err := r.col.InsertOne(ctx, doc)
	return err
}

func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "feedback_id", Value: 1}, {Key: "at", Value: -1}},
	})
	return err
}
