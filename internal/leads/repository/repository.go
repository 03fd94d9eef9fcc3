package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadledger_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound       = errors.New("lead not found")
	ErrNotPending     = errors.New("lead is not pending review")
	ErrUnknownLeadRef = errors.New("referenced lead does not exist")
)

const pgForeignKeyViolation = "23503"

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `
	l.id, l.seq, l.type_label, l.description, l.address, l.estimated_value, l.stage_status,
	l.contact_name, l.contact_email, l.contact_phone, l.has_documents,
	l.relevance_score, l.score_version, l.scored_at,
	l.review_state, l.decline_reason, l.posted_at, l.day_offset,
	l.source_kind, l.uploaded_by, l.resubmission_of, l.created_at, l.updated_at`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var (
		l           domain.Lead
		reviewState string
		sourceKind  string
	)
	err := row.Scan(
		&l.ID, &l.Seq, &l.TypeLabel, &l.Description, &l.Address, &l.EstimatedValue, &l.StageStatus,
		&l.ContactName, &l.ContactEmail, &l.ContactPhone, &l.HasDocuments,
		&l.RelevanceScore, &l.ScoreVersion, &l.ScoredAt,
		&reviewState, &l.DeclineReason, &l.PostedAt, &l.DayOffset,
		&sourceKind, &l.UploadedBy, &l.ResubmissionOf, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}
	l.ReviewState = domain.ReviewState(reviewState)
	l.SourceKind = domain.SourceKind(sourceKind)
	return l, nil
}

func collectLeads(rows pgx.Rows) ([]domain.Lead, error) {
	defer rows.Close()

	items := make([]domain.Lead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *Repository) Create(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads AS l (
			id, type_label, description, address, estimated_value, stage_status,
			contact_name, contact_email, contact_phone, has_documents,
			relevance_score, score_version, scored_at,
			review_state, posted_at, day_offset, source_kind, uploaded_by, resubmission_of
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING `+leadColumns,
		lead.ID, lead.TypeLabel, lead.Description, lead.Address, lead.EstimatedValue, lead.StageStatus,
		lead.ContactName, lead.ContactEmail, lead.ContactPhone, lead.HasDocuments,
		lead.RelevanceScore, lead.ScoreVersion, lead.ScoredAt,
		string(lead.ReviewState), lead.PostedAt, lead.DayOffset, string(lead.SourceKind), lead.UploadedBy, lead.ResubmissionOf,
	)

	created, err := scanLead(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return domain.Lead{}, ErrUnknownLeadRef
		}
		return domain.Lead{}, err
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads l WHERE l.id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) List(ctx context.Context, filter domain.ListFilter, order domain.Order) ([]domain.Lead, error) {
	where, args := buildLeadListWhere(filter)
	query := fmt.Sprintf(`SELECT %s FROM leads l %s ORDER BY %s`, leadColumns, where, mapLeadOrder(order))
	if filter.MaxScan > 0 {
		args = append(args, filter.MaxScan)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

func buildLeadListWhere(filter domain.ListFilter) (string, []interface{}) {
	whereClauses := make([]string, 0, 8)
	args := make([]interface{}, 0, 8)
	argIdx := 1

	add := func(clause string, value interface{}) {
		whereClauses = append(whereClauses, fmt.Sprintf(clause, argIdx))
		args = append(args, value)
		argIdx++
	}

	if len(filter.States) > 0 {
		states := make([]string, 0, len(filter.States))
		for _, s := range filter.States {
			states = append(states, string(s))
		}
		add("l.review_state = ANY($%d)", states)
	}
	if filter.SourceKind != "" {
		add("l.source_kind = $%d", string(filter.SourceKind))
	}
	if label := strings.TrimSpace(filter.TypeLabel); label != "" {
		add("LOWER(l.type_label) = LOWER($%d)", label)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(l.type_label ILIKE $%d OR l.description ILIKE $%d OR l.address ILIKE $%d)",
			argIdx, argIdx, argIdx,
		))
		args = append(args, "%"+search+"%")
		argIdx++
	}
	if filter.MinScore > 0 {
		add("l.relevance_score >= $%d", filter.MinScore)
	}
	if filter.PostedSince != nil {
		add("l.posted_at >= $%d", *filter.PostedSince)
	}
	if filter.UploadedBy != nil {
		add("l.uploaded_by = $%d", *filter.UploadedBy)
	}
	if filter.ExcludeFor != nil {
		whereClauses = append(whereClauses, fmt.Sprintf(`NOT EXISTS (
			SELECT 1 FROM unlock_grants g WHERE g.lead_id = l.id AND g.account_id = $%d
		) AND NOT EXISTS (
			SELECT 1 FROM lead_account_marks m WHERE m.lead_id = l.id AND m.account_id = $%d
		)`, argIdx, argIdx))
		args = append(args, *filter.ExcludeFor)
		argIdx++
	}

	if len(whereClauses) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(whereClauses, " AND "), args
}

// mapLeadOrder mirrors domain.Order.Less; seq is the final tie-break.
func mapLeadOrder(order domain.Order) string {
	switch order {
	case domain.OrderRecencyDesc:
		return "l.posted_at DESC NULLS LAST, l.created_at DESC, l.seq ASC"
	case domain.OrderCreatedDesc:
		return "l.created_at DESC, l.seq ASC"
	default:
		return "l.relevance_score DESC, l.posted_at DESC NULLS LAST, l.seq ASC"
	}
}

// Approve records the approval anchor. With postNow the lead is published
// immediately; otherwise the posting sweep publishes it at anchor + dayOffset.
func (r *Repository) Approve(ctx context.Context, id uuid.UUID, anchor time.Time, dayOffset int, postNow bool) (domain.Lead, error) {
	state := domain.ReviewPending
	if postNow {
		state = domain.ReviewPosted
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE leads l SET review_state = $2, posted_at = $3, day_offset = $4, updated_at = now()
		WHERE l.id = $1 AND l.review_state = 'pending'
		RETURNING `+leadColumns,
		id, string(state), anchor, dayOffset,
	)
	return r.transitionResult(ctx, id, row)
}

func (r *Repository) Decline(ctx context.Context, id uuid.UUID, reason string) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads l SET review_state = 'declined', decline_reason = $2, updated_at = now()
		WHERE l.id = $1 AND l.review_state = 'pending'
		RETURNING `+leadColumns,
		id, reason,
	)
	return r.transitionResult(ctx, id, row)
}

// transitionResult distinguishes a missing lead from one in the wrong state.
func (r *Repository) transitionResult(ctx context.Context, id uuid.UUID, row pgx.Row) (domain.Lead, error) {
	lead, err := scanLead(row)
	if err == nil {
		return lead, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, err
	}
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return domain.Lead{}, getErr
	}
	return domain.Lead{}, ErrNotPending
}

func (r *Repository) UpdateScore(ctx context.Context, id uuid.UUID, score int, version string, scoredAt time.Time) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads l SET relevance_score = $2, score_version = $3, scored_at = $4, updated_at = now()
		WHERE l.id = $1
		RETURNING `+leadColumns,
		id, score, version, scoredAt,
	)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

const dueCondition = `l.review_state = 'pending' AND l.posted_at IS NOT NULL
	AND l.posted_at + make_interval(days => l.day_offset) <= $1`

// PostDue publishes up to limit due leads in one statement. posted_at becomes
// the publication time.
func (r *Repository) PostDue(ctx context.Context, now time.Time, limit int) ([]domain.Lead, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.pool.Query(ctx, `
		WITH due AS (
			SELECT l.id FROM leads l
			WHERE `+dueCondition+`
			ORDER BY l.seq
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE leads l SET review_state = 'posted',
			posted_at = l.posted_at + make_interval(days => l.day_offset),
			updated_at = now()
		FROM due WHERE l.id = due.id
		RETURNING `+leadColumns,
		now, limit,
	)
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

// PostIfDue publishes one lead when the predicate holds. The bool reports
// whether it was posted by this call.
func (r *Repository) PostIfDue(ctx context.Context, id uuid.UUID, now time.Time) (domain.Lead, bool, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads l SET review_state = 'posted',
			posted_at = l.posted_at + make_interval(days => l.day_offset),
			updated_at = now()
		WHERE `+dueCondition+` AND l.id = $2
		RETURNING `+leadColumns,
		now, id,
	)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		current, getErr := r.GetByID(ctx, id)
		return current, false, getErr
	}
	if err != nil {
		return domain.Lead{}, false, err
	}
	return lead, true, nil
}

func (r *Repository) ListStaleScores(ctx context.Context, currentVersion string, limit int) ([]domain.Lead, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+` FROM leads l
		WHERE l.score_version <> $1
		ORDER BY l.seq
		LIMIT $2`, currentVersion, limit)
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

func (r *Repository) SetMark(ctx context.Context, accountID, leadID uuid.UUID, mark domain.Mark) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_account_marks (account_id, lead_id, mark)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, lead_id, mark) DO NOTHING`,
		accountID, leadID, string(mark),
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return ErrNotFound
	}
	return err
}

func (r *Repository) ClearMark(ctx context.Context, accountID, leadID uuid.UUID, mark domain.Mark) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM lead_account_marks WHERE account_id = $1 AND lead_id = $2 AND mark = $3`,
		accountID, leadID, string(mark),
	)
	return err
}

func (r *Repository) ListMarked(ctx context.Context, accountID uuid.UUID, mark domain.Mark) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+` FROM leads l
		JOIN lead_account_marks m ON m.lead_id = l.id
		WHERE m.account_id = $1 AND m.mark = $2
		ORDER BY m.created_at DESC, l.seq ASC`, accountID, string(mark))
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

var (
	_ LeadReader     = (*Repository)(nil)
	_ LeadLister     = (*Repository)(nil)
	_ LeadWriter     = (*Repository)(nil)
	_ PostingSweeper = (*Repository)(nil)
	_ MarkStore      = (*Repository)(nil)
	_ Rescorer       = (*Repository)(nil)
)
