package ports

import (
	"context"
	"io"
)

// ImageStore keeps the optional image attached to a feedback record.
type ImageStore interface {
	Put(ctx context.Context, key, contentType string, body io.ReadSeeker) error
	// URL returns a time-limited download link for key.
	URL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// ImageCleanupTask asks for the image of a removed feedback record to be
// deleted from the ImageStore.
type ImageCleanupTask struct {
	FeedbackID string
	ImageKey   string
}
