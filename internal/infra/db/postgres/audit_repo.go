package postgres

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/osint-cafe/internal/domain/audit"
)

type AuditRepository struct {
	db *sql.DB
}

var _ domain.Repository = (*AuditRepository)(nil)

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Save inserts or updates an audit record
func (r *AuditRepository) Save(ctx context.Context, a *domain.Record) error {
	const q = `
INSERT INTO analysis_audit
  (id, feature, score, degraded, reason, detail, provider, evidence_url, duration_ms, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  score=EXCLUDED.score,
  degraded=EXCLUDED.degraded,
  reason=EXCLUDED.reason,
  detail=EXCLUDED.detail,
  provider=EXCLUDED.provider,
  evidence_url=EXCLUDED.evidence_url,
  duration_ms=EXCLUDED.duration_ms;
`
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, a.ID, a.Feature, a.Score, a.Degraded,
		stringOrDash(a.Reason), a.Detail, stringOrDash(a.Provider), a.EvidenceURL, a.DurationMS, createdAt)
	return err
}

func (r *AuditRepository) SaveFailure(ctx context.Context, f *domain.Failure) error {
	const q = `
INSERT INTO analysis_audit_failures
  (record_id, capability, provider, reason, detail, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id;
`
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return r.db.QueryRowContext(ctx, q, f.RecordID, f.Capability, stringOrDash(f.Provider),
		stringOrDash(f.Reason), f.Detail, created).Scan(&f.ID)
}

// Paginate returns a page of audit records ordered by created_at desc
func (r *AuditRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Record, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, feature, score, degraded, reason, detail, provider, evidence_url, duration_ms, created_at
FROM analysis_audit
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2;
`
	rows, err := r.db.QueryContext(ctx, q, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Record{}
	for rows.Next() {
		var a domain.Record
		var created time.Time
		if err := rows.Scan(&a.ID, &a.Feature, &a.Score, &a.Degraded, &a.Reason, &a.Detail,
			&a.Provider, &a.EvidenceURL, &a.DurationMS, &created); err != nil {
			return nil, err
		}
		a.CreatedAt = created
		a.Reason = emptyIfDash(a.Reason)
		a.Provider = emptyIfDash(a.Provider)
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *AuditRepository) Failures(ctx context.Context, id domain.RecordID, limit int) ([]*domain.Failure, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, record_id, capability, provider, reason, detail, created_at
FROM analysis_audit_failures
WHERE record_id=$1
ORDER BY id ASC
LIMIT $2;`
	rows, err := r.db.QueryContext(ctx, q, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*domain.Failure{}
	for rows.Next() {
		var f domain.Failure
		if err := rows.Scan(&f.ID, &f.RecordID, &f.Capability, &f.Provider, &f.Reason, &f.Detail, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (r *AuditRepository) Summary(ctx context.Context, sinceDays int) (domain.Summary, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	s := domain.Summary{ByFeature: map[string]int{}, SinceDays: sinceDays}
	const q = `
SELECT feature, COUNT(*), COUNT(*) FILTER (WHERE degraded)
FROM analysis_audit
WHERE created_at >= $1
GROUP BY feature;`
	rows, err := r.db.QueryContext(ctx, q, time.Now().AddDate(0, 0, -sinceDays))
	if err != nil {
		return s, err
	}
	defer rows.Close()
	for rows.Next() {
		var feature string
		var total, degraded int
		if err := rows.Scan(&feature, &total, &degraded); err != nil {
			return s, err
		}
		s.ByFeature[feature] = total
		s.Total += total
		s.Degraded += degraded
	}
	return s, rows.Err()
}
