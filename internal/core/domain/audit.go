package domain

import "time"

// AuditAction names the mutation that was attempted on a feedback record.
type AuditAction string

const (
	AuditCreate AuditAction = "create"
	AuditUpdate AuditAction = "update"
	AuditDelete AuditAction = "delete"
)

// AuditOutcome records whether the policy let the mutation through.
type AuditOutcome string

const (
	OutcomePermitted AuditOutcome = "permitted"
	OutcomeDenied    AuditOutcome = "denied"
)

// AuditEntry is an append-only record of a mutation attempt.
type AuditEntry struct {
	FeedbackID string
	Actor      Identity
	Action     AuditAction
	Outcome    AuditOutcome
	Reason     string
	At         time.Time
}
