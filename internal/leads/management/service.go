// Package management handles lead intake and moderation: scoring on
// creation, approval with delayed posting, decline, resubmission and
// account marks.
package management

import (
	"context"
	"errors"
	"time"

	"leadledger_backend/internal/events"
	"leadledger_backend/internal/leads/domain"
	"leadledger_backend/internal/leads/repository"
	"leadledger_backend/internal/leads/scoring"
	"leadledger_backend/internal/leads/transport"
	"leadledger_backend/platform/apperr"
	"leadledger_backend/platform/logger"
	"leadledger_backend/platform/metrics"
	"leadledger_backend/platform/phone"
	"leadledger_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	postingBatch = 500
	rescoreBatch = 500
)

// Repository defines the data access interface needed by the management service.
// This is a consumer-driven interface - only what management needs.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
	repository.PostingSweeper
	repository.MarkStore
	repository.Rescorer
}

// PostingScheduler enqueues a one-off post for a lead approved with a delay.
type PostingScheduler interface {
	ScheduleLeadPosting(ctx context.Context, leadID uuid.UUID, runAt time.Time) error
}

type Service struct {
	repo      Repository
	scorer    *scoring.Calculator
	eventBus  events.Bus
	log       *logger.Logger
	region    string
	scheduler PostingScheduler
	now       func() time.Time
}

// New creates the service. region is used to read national phone numbers.
func New(repo Repository, scorer *scoring.Calculator, eventBus events.Bus, log *logger.Logger, region string) *Service {
	return &Service{
		repo:     repo,
		scorer:   scorer,
		eventBus: eventBus,
		log:      log,
		region:   region,
		now:      time.Now,
	}
}

// WithPostingScheduler enables per-lead delayed posting tasks. Without it the
// periodic sweep alone publishes approved leads.
func (s *Service) WithPostingScheduler(ps PostingScheduler) *Service {
	s.scheduler = ps
	return s
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Ingest stores a lead from an upstream feed as pending review.
func (s *Service) Ingest(ctx context.Context, req transport.CreateLeadRequest) (domain.Lead, error) {
	return s.create(ctx, req, domain.SourceIngested, nil, nil)
}

// Submit stores a contractor-uploaded lead as pending review.
func (s *Service) Submit(ctx context.Context, contractorID uuid.UUID, req transport.CreateLeadRequest) (domain.Lead, error) {
	return s.create(ctx, req, domain.SourceContractorUploaded, &contractorID, nil)
}

// Resubmit creates a new pending lead that replaces a declined upload.
func (s *Service) Resubmit(ctx context.Context, contractorID, leadID uuid.UUID, req transport.CreateLeadRequest) (domain.Lead, error) {
	original, err := s.Get(ctx, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if original.UploadedBy == nil || *original.UploadedBy != contractorID {
		return domain.Lead{}, apperr.Forbidden("lead was not uploaded by this account")
	}
	if original.ReviewState != domain.ReviewDeclined {
		return domain.Lead{}, apperr.Wrap(apperr.KindConflict, domain.ErrNotResubmittable.Error(), domain.ErrNotResubmittable)
	}
	return s.create(ctx, req, domain.SourceContractorUploaded, &contractorID, &original.ID)
}

func (s *Service) create(ctx context.Context, req transport.CreateLeadRequest, source domain.SourceKind, uploadedBy, resubmissionOf *uuid.UUID) (domain.Lead, error) {
	lead := domain.Lead{
		TypeLabel:      sanitize.Line(req.TypeLabel),
		Description:    sanitize.Text(req.Description),
		Address:        sanitize.Line(req.Address),
		EstimatedValue: sanitize.TextPtr(req.EstimatedValue),
		StageStatus:    sanitize.TextPtr(req.StageStatus),
		ContactName:    sanitize.Line(req.ContactName),
		ContactEmail:   sanitize.Line(req.ContactEmail),
		ContactPhone:   phone.NormalizeE164In(req.ContactPhone, s.region),
		HasDocuments:   req.HasDocuments,
		ReviewState:    domain.ReviewPending,
		SourceKind:     source,
		UploadedBy:     uploadedBy,
		ResubmissionOf: resubmissionOf,
	}
	if lead.TypeLabel == "" {
		return domain.Lead{}, apperr.Validation("typeLabel is required")
	}
	if lead.ContactPhone != "" && !phone.IsDialable(lead.ContactPhone, s.region) {
		return domain.Lead{}, apperr.Validation("contactPhone is not a dialable number").
			WithDetails(map[string]string{"contactPhone": lead.ContactPhone})
	}

	// Scored exactly once here; only Rescore changes it afterwards.
	lead.RelevanceScore = s.scorer.Score(scoring.InputFromLead(lead))
	lead.ScoreVersion = scoring.ScoreVersion
	lead.ScoredAt = s.now()

	created, err := s.repo.Create(ctx, lead)
	if errors.Is(err, repository.ErrUnknownLeadRef) {
		return domain.Lead{}, apperr.NotFound("resubmitted lead not found")
	}
	if err != nil {
		return domain.Lead{}, err
	}

	s.publish(ctx, events.LeadIngested{
		BaseEvent:      events.NewBaseEventAt(s.now()),
		LeadID:         created.ID,
		SourceKind:     string(created.SourceKind),
		UploadedBy:     created.UploadedBy,
		RelevanceScore: created.RelevanceScore,
	})
	return created, nil
}

// Get retrieves a lead by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Lead{}, mapLeadError(err)
	}
	return lead, nil
}

// Approve records the approval. The lead posts once anchor + dayOffset days
// has passed: immediately when that is already the case, otherwise through
// the scheduler. anchor defaults to now.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, dayOffset int, anchor *time.Time) (domain.Lead, error) {
	if dayOffset < 0 {
		return domain.Lead{}, apperr.Validation("dayOffset must not be negative")
	}
	now := s.now()
	at := now
	if anchor != nil {
		at = *anchor
	}
	due := at.AddDate(0, 0, dayOffset)
	postNow := !now.Before(due)

	var (
		lead domain.Lead
		err  error
	)
	if postNow {
		lead, err = s.repo.Approve(ctx, id, due, dayOffset, true)
	} else {
		lead, err = s.repo.Approve(ctx, id, at, dayOffset, false)
	}
	if err != nil {
		return domain.Lead{}, mapLeadError(err)
	}

	s.publish(ctx, events.LeadApproved{
		BaseEvent: events.NewBaseEventAt(s.now()),
		LeadID:    lead.ID,
		DueAt:     due.UTC().Format(time.RFC3339),
		DayOffset: dayOffset,
	})

	if postNow {
		s.posted(ctx, lead)
		return lead, nil
	}

	if s.scheduler != nil {
		if err := s.scheduler.ScheduleLeadPosting(ctx, lead.ID, due); err != nil {
			s.log.Warn("failed to schedule lead posting; sweep will post it", "lead_id", lead.ID.String(), "error", err)
		}
	}
	return lead, nil
}

// Decline rejects a pending lead. The reason is required.
func (s *Service) Decline(ctx context.Context, id uuid.UUID, reason string) (domain.Lead, error) {
	reason = sanitize.Line(reason)
	if reason == "" {
		return domain.Lead{}, apperr.Wrap(apperr.KindValidation, domain.ErrDeclineReasonRequired.Error(), domain.ErrDeclineReasonRequired)
	}
	lead, err := s.repo.Decline(ctx, id, reason)
	if err != nil {
		return domain.Lead{}, mapLeadError(err)
	}
	s.publish(ctx, events.LeadDeclined{
		BaseEvent:  events.NewBaseEventAt(s.now()),
		LeadID:     lead.ID,
		UploadedBy: lead.UploadedBy,
		Reason:     reason,
	})
	return lead, nil
}

// Breakdown recomputes the score components without storing them.
func (s *Service) Breakdown(ctx context.Context, id uuid.UUID) (domain.Lead, scoring.Result, error) {
	lead, err := s.Get(ctx, id)
	if err != nil {
		return domain.Lead{}, scoring.Result{}, err
	}
	return lead, s.scorer.Breakdown(scoring.InputFromLead(lead)), nil
}

// Rescore recomputes and stores the score. Existing grants keep the amount they paid.
func (s *Service) Rescore(ctx context.Context, id uuid.UUID) (domain.Lead, int, error) {
	lead, err := s.Get(ctx, id)
	if err != nil {
		return domain.Lead{}, 0, err
	}
	previous := lead.RelevanceScore
	score := s.scorer.Score(scoring.InputFromLead(lead))
	updated, err := s.repo.UpdateScore(ctx, id, score, scoring.ScoreVersion, s.now())
	if err != nil {
		return domain.Lead{}, 0, mapLeadError(err)
	}
	return updated, previous, nil
}

// RescoreStale rescores up to limit leads stamped with an older score version.
func (s *Service) RescoreStale(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = rescoreBatch
	}
	stale, err := s.repo.ListStaleScores(ctx, scoring.ScoreVersion, limit)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, lead := range stale {
		score := s.scorer.Score(scoring.InputFromLead(lead))
		if _, err := s.repo.UpdateScore(ctx, lead.ID, score, scoring.ScoreVersion, s.now()); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// PostDue publishes every pending lead whose posting time has passed.
func (s *Service) PostDue(ctx context.Context, now time.Time) ([]domain.Lead, error) {
	posted, err := s.repo.PostDue(ctx, now, postingBatch)
	if err != nil {
		return nil, err
	}
	for _, lead := range posted {
		s.posted(ctx, lead)
	}
	return posted, nil
}

// PostIfDue publishes one lead when it is due. The bool reports whether this call posted it.
func (s *Service) PostIfDue(ctx context.Context, id uuid.UUID, now time.Time) (domain.Lead, bool, error) {
	lead, ok, err := s.repo.PostIfDue(ctx, id, now)
	if err != nil {
		return domain.Lead{}, false, mapLeadError(err)
	}
	if ok {
		s.posted(ctx, lead)
	}
	return lead, ok, nil
}

func (s *Service) posted(ctx context.Context, lead domain.Lead) {
	metrics.RecordLeadsPosted(1)
	s.publish(ctx, events.LeadPosted{
		BaseEvent:      events.NewBaseEventAt(s.now()),
		LeadID:         lead.ID,
		RelevanceScore: lead.RelevanceScore,
	})
}

// Mark flags a lead for one account.
func (s *Service) Mark(ctx context.Context, accountID, leadID uuid.UUID, mark domain.Mark) error {
	if !mark.Valid() {
		return apperr.Validation("unknown mark")
	}
	return mapLeadError(s.repo.SetMark(ctx, accountID, leadID, mark))
}

// Unmark removes a flag. Removing a missing flag is not an error.
func (s *Service) Unmark(ctx context.Context, accountID, leadID uuid.UUID, mark domain.Mark) error {
	if !mark.Valid() {
		return apperr.Validation("unknown mark")
	}
	return s.repo.ClearMark(ctx, accountID, leadID, mark)
}

// ListMarked returns the account's marked leads, most recently marked first.
func (s *Service) ListMarked(ctx context.Context, accountID uuid.UUID, mark domain.Mark) ([]domain.Lead, error) {
	if !mark.Valid() {
		return nil, apperr.Validation("unknown mark")
	}
	return s.repo.ListMarked(ctx, accountID, mark)
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.eventBus != nil {
		s.eventBus.Publish(ctx, event)
	}
}

func mapLeadError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("lead not found")
	case errors.Is(err, repository.ErrNotPending):
		return apperr.Wrap(apperr.KindConflict, "lead is no longer pending review", domain.ErrInvalidTransition)
	default:
		return err
	}
}
