package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/feedbackhub/feedback-system/internal/core/domain"
	"github.com/feedbackhub/feedback-system/internal/core/policy"
	"github.com/feedbackhub/feedback-system/internal/core/ports"
)

const maxDescriptionLen = 2000

// IdempotencyStore abstracts the submission key store (Redis).
//
// Claim binds key to feedbackID when the key is unused within scope and
// reports claimed=true. Otherwise it returns the id the key is already bound
// to.
type IdempotencyStore interface {
	Claim(ctx context.Context, scope, key, feedbackID string) (boundID string, claimed bool, err error)
	Release(ctx context.Context, scope, key string) error
}

// ImageCleaner removes image objects off the request path.
type ImageCleaner interface {
	Enqueue(task ports.ImageCleanupTask)
}

type FeedbackService struct {
	repo    ports.FeedbackRepository
	audit   ports.AuditRepository
	images  ports.ImageStore
	cleaner ImageCleaner
	idem    IdempotencyStore
	log     zerolog.Logger
	now     func() time.Time
}

// NewFeedbackService wires the feedback use cases. images, cleaner and idem
// may be nil: uploads are then rejected, removed synchronously, and
// Idempotency-Key is ignored, respectively.
func NewFeedbackService(
	repo ports.FeedbackRepository,
	audit ports.AuditRepository,
	images ports.ImageStore,
	cleaner ImageCleaner,
	idem IdempotencyStore,
	log zerolog.Logger,
) *FeedbackService {
	return &FeedbackService{
		repo:    repo,
		audit:   audit,
		images:  images,
		cleaner: cleaner,
		idem:    idem,
		log:     log,
		now:     time.Now,
	}
}

// Create stores a new record owned by the caller. A repeated Idempotency-Key
// from the same caller returns the record created the first time.
func (s *FeedbackService) Create(ctx context.Context, caller domain.Identity, in ports.CreateFeedbackInput) (*ports.CreateFeedbackResult, error) {
	if caller.Subject == "" {
		return nil, domain.ErrUnauthenticated
	}
	if err := validateContent(in.Rating, in.Description); err != nil {
		return nil, err
	}

	id := uuid.NewString()

	// 1. Idempotency: claim the key for this id, or replay the bound record.
	claimed := false
	if in.IdempotencyKey != "" && s.idem != nil {
		boundID, ok, err := s.idem.Claim(ctx, caller.Subject, in.IdempotencyKey, id)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("owner_id", caller.Subject).Msg("idempotency claim failed, creating anyway")
		case !ok:
			existing, err := s.repo.FindByID(ctx, boundID)
			if errors.Is(err, domain.ErrFeedbackNotFound) {
				return nil, fmt.Errorf("%w: a submission with this idempotency key is in progress", domain.ErrConflict)
			}
			if err != nil {
				return nil, err
			}
			s.log.Info().Str("feedback_id", existing.ID).Str("idempotency_key", in.IdempotencyKey).Msg("idempotent replay")
			return &ports.CreateFeedbackResult{Feedback: existing, AlreadyExisted: true}, nil
		default:
			claimed = true
		}
	}
	release := func() {
		if !claimed {
			return
		}
		if err := s.idem.Release(ctx, caller.Subject, in.IdempotencyKey); err != nil {
			s.log.Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("failed to release idempotency key")
		}
	}

	now := s.now().UTC()
	fb := &domain.Feedback{
		ID:          id,
		OwnerID:     caller.Subject,
		Rating:      in.Rating,
		Description: strings.TrimSpace(in.Description),
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// 2. Optional image upload.
	if in.Image != nil {
		if s.images == nil {
			release()
			return nil, fmt.Errorf("%w: image uploads are not enabled", domain.ErrInvalidInput)
		}
		fb.ImageKey = imageKey(id, in.Image.Filename)
		if err := s.images.Put(ctx, fb.ImageKey, in.Image.ContentType, in.Image.Body); err != nil {
			release()
			return nil, fmt.Errorf("create feedback: upload image: %w", err)
		}
	}

	if claimed {
		fb.IdempotencyKey = in.IdempotencyKey
	}

	// 3. Persist.
	if err := s.repo.Create(ctx, fb); err != nil {
		release()
		if fb.HasImage() {
			s.removeImage(ctx, ports.ImageCleanupTask{FeedbackID: id, ImageKey: fb.ImageKey})
		}
		s.log.Error().Err(err).Str("owner_id", caller.Subject).Msg("failed to create feedback")
		return nil, err
	}

	s.record(ctx, id, caller, domain.AuditCreate, policy.Decision{Allowed: true, Reason: policy.ReasonOwner})
	s.log.Info().Str("feedback_id", id).Str("owner_id", caller.Subject).Bool("has_image", fb.HasImage()).Msg("feedback created")

	return &ports.CreateFeedbackResult{Feedback: fb}, nil
}

func (s *FeedbackService) Get(ctx context.Context, id string) (*domain.Feedback, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *FeedbackService) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Feedback, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// ListAll returns every record. The caller must be ADMIN; the store is not
// touched otherwise.
func (s *FeedbackService) ListAll(ctx context.Context, caller domain.Identity) ([]*domain.Feedback, error) {
	if err := policy.RequireAdmin(caller); err != nil {
		return nil, err
	}
	return s.repo.ListAll(ctx)
}

// Update changes rating and description. Existence is checked before the
// ownership policy, and the write is conditioned on the version the policy
// was evaluated against.
func (s *FeedbackService) Update(ctx context.Context, caller domain.Identity, id string, in ports.UpdateFeedbackInput) (*domain.Feedback, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	decision := policy.Evaluate(caller, current.OwnerID)
	s.record(ctx, id, caller, domain.AuditUpdate, decision)
	if err := decision.Err(); err != nil {
		s.log.Warn().Str("feedback_id", id).Str("actor", caller.Subject).Str("reason", string(decision.Reason)).Msg("update denied")
		return nil, err
	}

	if err := validateContent(in.Rating, in.Description); err != nil {
		return nil, err
	}

	next := *current
	next.Rating = in.Rating
	next.Description = strings.TrimSpace(in.Description)
	next.Version = current.Version + 1
	next.UpdatedAt = s.now().UTC()

	if err := s.repo.Replace(ctx, &next, current.Version); err != nil {
		return nil, lostRace("feedback", id, err)
	}

	s.log.Info().Str("feedback_id", id).Str("actor", caller.Subject).Int64("version", next.Version).Msg("feedback updated")
	return &next, nil
}

// Delete removes a record under the same rules as Update. The attached
// image, if any, is removed afterwards by the cleaner.
func (s *FeedbackService) Delete(ctx context.Context, caller domain.Identity, id string) error {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	decision := policy.Evaluate(caller, current.OwnerID)
	s.record(ctx, id, caller, domain.AuditDelete, decision)
	if err := decision.Err(); err != nil {
		s.log.Warn().Str("feedback_id", id).Str("actor", caller.Subject).Str("reason", string(decision.Reason)).Msg("delete denied")
		return err
	}

	if err := s.repo.Delete(ctx, id, current.Version); err != nil {
		return lostRace("feedback", id, err)
	}

	if current.IdempotencyKey != "" && s.idem != nil {
		if err := s.idem.Release(ctx, current.OwnerID, current.IdempotencyKey); err != nil {
			s.log.Warn().Err(err).Str("feedback_id", id).Msg("failed to release idempotency key")
		}
	}
	if current.HasImage() {
		s.removeImage(ctx, ports.ImageCleanupTask{FeedbackID: id, ImageKey: current.ImageKey})
	}

	s.log.Info().Str("feedback_id", id).Str("actor", caller.Subject).Msg("feedback deleted")
	return nil
}

// ImageURL returns a time-limited link to a stored image.
func (s *FeedbackService) ImageURL(ctx context.Context, key string) (string, error) {
	if key == "" || strings.ContainsAny(key, "/\\") || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: invalid image key", domain.ErrInvalidInput)
	}
	if s.images == nil {
		return "", domain.ErrFeedbackNotFound
	}
	return s.images.URL(ctx, key)
}

func (s *FeedbackService) removeImage(ctx context.Context, task ports.ImageCleanupTask) {
	if s.cleaner != nil {
		s.cleaner.Enqueue(task)
		return
	}
	if s.images == nil {
		return
	}
	if err := s.images.Delete(ctx, task.ImageKey); err != nil {
		s.log.Warn().Err(err).Str("feedback_id", task.FeedbackID).Str("image_key", task.ImageKey).Msg("failed to delete image")
	}
}

// record appends an audit entry; failures are logged and otherwise ignored.
func (s *FeedbackService) record(ctx context.Context, id string, caller domain.Identity, action domain.AuditAction, d policy.Decision) {
	if s.audit == nil {
		return
	}
	outcome := domain.OutcomePermitted
	if !d.Allowed {
		outcome = domain.OutcomeDenied
	}
	entry := &domain.AuditEntry{
		FeedbackID: id,
		Actor:      caller,
		Action:     action,
		Outcome:    outcome,
		Reason:     string(d.Reason),
		At:         s.now().UTC(),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.log.Warn().Err(err).Str("feedback_id", id).Str("action", string(action)).Msg("failed to record audit entry")
	}
}

// lostRace maps a failed conditional write. A record deleted since it was
// read stays not-found; one modified since it was read is a conflict.
func lostRace(kind, id string, err error) error {
	if errors.Is(err, domain.ErrVersionConflict) {
		return fmt.Errorf("%w: %s %s was modified concurrently", domain.ErrConflict, kind, id)
	}
	return err
}

func validateContent(rating int, description string) error {
	if !domain.ValidRating(rating) {
		return fmt.Errorf("%w: rating must be between %d and %d", domain.ErrInvalidInput, domain.MinRating, domain.MaxRating)
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", domain.ErrInvalidInput, maxDescriptionLen)
	}
	return nil
}

// imageKey derives the object key from the record id and the extension of
// the uploaded file name. Unusual extensions are dropped.
func imageKey(id, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 6 {
		return id
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return id
		}
	}
	return id + ext
}
