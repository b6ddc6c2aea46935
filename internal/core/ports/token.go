package ports

import (
	"github.com/feedbackhub/feedback-system/internal/core/credential"
	"github.com/feedbackhub/feedback-system/internal/core/domain"
)

// TokenIssuer mints credentials; implemented by *credential.Codec.
type TokenIssuer interface {
	Issue(identity domain.Identity) (credential.Credential, error)
}

// TokenVerifier checks credentials; implemented by *credential.Codec.
type TokenVerifier interface {
	Verify(token string) (domain.Identity, error)
}
