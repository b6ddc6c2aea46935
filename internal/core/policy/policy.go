// Package policy holds the ownership rule applied by resource-owning services
// right before a mutation: the caller must own the record or be an ADMIN.
//
// The policy only decides. Callers are responsible for checking existence
// first and for performing the write conditioned on the snapshot the
// decision was made against.
package policy

import (
	"fmt"

	"github.com/feedbackhub/feedback-system/internal/core/domain"
)

// Reason explains a decision; it is used as a metric label and audit note.
type Reason string

const (
	ReasonOwner      Reason = "owner"
	ReasonAdmin      Reason = "admin"
	ReasonNotOwner   Reason = "not_owner"
	ReasonAnonymous  Reason = "anonymous"
	ReasonAdminsOnly Reason = "admin_only"
)

// Decision is the outcome of evaluating the ownership rule.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Evaluate applies the ownership rule: permit when the caller is the owner
// or holds ADMIN.
func Evaluate(caller domain.Identity, ownerSubject string) Decision {
	switch {
	case caller.IsZero() || caller.Subject == "":
		return Decision{Allowed: false, Reason: ReasonAnonymous}
	case caller.IsAdmin():
		return Decision{Allowed: true, Reason: ReasonAdmin}
	case ownerSubject != "" && caller.Subject == ownerSubject:
		return Decision{Allowed: true, Reason: ReasonOwner}
	default:
		return Decision{Allowed: false, Reason: ReasonNotOwner}
	}
}

// Err converts a denial into an error wrapping domain.ErrForbidden.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", domain.ErrForbidden, d.Reason)
}

// AuthorizeMutation returns nil when caller may mutate a record owned by
// ownerSubject, and an error wrapping domain.ErrForbidden otherwise.
func AuthorizeMutation(caller domain.Identity, ownerSubject string) error {
	return Evaluate(caller, ownerSubject).Err()
}

// RequireAdmin gates system-wide operations such as listing every record.
func RequireAdmin(caller domain.Identity) error {
	if caller.Subject == "" || !caller.IsAdmin() {
		return fmt.Errorf("%w: %s", domain.ErrForbidden, ReasonAdminsOnly)
	}
	return nil
}
