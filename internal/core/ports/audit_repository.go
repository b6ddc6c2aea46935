package ports

import (
	"context"

	"github.com/feedbackhub/feedback-system/internal/core/domain"
)

// AuditRepository persists the append-only trail of mutation attempts.
type AuditRepository interface {
	Record(ctx context.Context, entry *domain.AuditEntry) error
}
