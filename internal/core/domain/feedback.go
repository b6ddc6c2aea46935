package domain

import (
	"errors"
	"time"
)

var ErrFeedbackNotFound = errors.New("feedback not found")

// ErrVersionConflict is returned by stores when a conditional write finds
// the record at a different version than the one it was read at.
var ErrVersionConflict = errors.New("version conflict")

const (
	MinRating = 1
	MaxRating = 5
)

// Feedback is a rating left by a single owner. It is only ever mutated
// through the authorization policy.
type Feedback struct {
	ID          string    `json:"id" bson:"_id"`
	OwnerID     string    `json:"user_id" bson:"owner_id"`
	Rating      int       `json:"rating" bson:"rating"`
	Description string    `json:"description" bson:"description"`
	ImageKey    string    `json:"image_key,omitempty" bson:"image_key,omitempty"`
	Version     int64     `json:"version" bson:"version"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`

	// IdempotencyKey is the client key the record was created under, kept so
	// the key can be released when the record is deleted.
	IdempotencyKey string `json:"-" bson:"idempotency_key,omitempty"`
}

// HasImage reports whether an image object is attached.
func (f *Feedback) HasImage() bool {
	return f.ImageKey != ""
}

// ValidRating reports whether r is within the accepted scale.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
