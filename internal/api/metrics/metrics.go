// Package metrics defines the custom Prometheus metrics shared by the
// gateway and the backend services. Metrics are registered with the default
// registry on package init through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "feedbackhub"

// ── Gateway ──────────────────────────────────────────────────────────────────

// GateDecisionsTotal counts authentication gate outcomes.
// Label:
//   - outcome: "allowlisted", "verified", "missing_credential", "bad_scheme",
//     "malformed", "expired", "bad_signature"
var GateDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gate_decisions_total",
		Help:      "Total number of gateway authentication decisions, by outcome.",
	},
	[]string{"outcome"},
)

// UpstreamErrorsTotal counts proxied requests that failed to reach a backend.
var UpstreamErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_errors_total",
		Help:      "Total number of proxied requests that failed at the transport level.",
	},
	[]string{"route"},
)

// ── Users ────────────────────────────────────────────────────────────────────

// LoginAttemptsTotal counts login attempts.
// Label:
//   - result: "success" or "failure"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// ── Feedback ─────────────────────────────────────────────────────────────────

// FeedbackCreatedTotal counts newly stored feedback records.
// Label:
//   - has_image: "true" or "false"
var FeedbackCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feedback_created_total",
		Help:      "Total number of feedback records created.",
	},
	[]string{"has_image"},
)

// IdempotentReplaysTotal counts submissions answered from an earlier result.
var IdempotentReplaysTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feedback_idempotent_replays_total",
		Help:      "Total number of feedback submissions replayed via Idempotency-Key.",
	},
)

// ForbiddenTotal counts requests rejected by the ownership policy.
// Label:
//   - route: the echo route path (e.g. "/feedback/:id")
var ForbiddenTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorization_denied_total",
		Help:      "Total number of requests denied by the authorization policy.",
	},
	[]string{"route"},
)

// ── Image cleanup ────────────────────────────────────────────────────────────

// ImageCleanupTotal counts processed cleanup tasks.
// Label:
//   - result: "deleted", "failed" or "dropped"
var ImageCleanupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_cleanup_total",
		Help:      "Total number of image cleanup tasks processed, by result.",
	},
	[]string{"result"},
)

// ImageCleanupQueueDepth tracks pending tasks in each cleanup worker channel.
var ImageCleanupQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "image_cleanup_queue_depth",
		Help:      "Current number of cleanup tasks pending in each worker channel.",
	},
	[]string{"worker_id"},
)
