package sqlite

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/osint-cafe/internal/domain/audit"
)

// AuditRepository stores timestamps as unix milliseconds.
type AuditRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ domain.Repository = (*AuditRepository)(nil)

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db, now: time.Now}
}

func (r *AuditRepository) Save(ctx context.Context, a *domain.Record) error {
	const q = `
INSERT INTO analysis_audit
  (id, feature, score, degraded, reason, detail, provider, evidence_url, duration_ms, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON CONFLICT (id) DO UPDATE SET
  score=excluded.score,
  degraded=excluded.degraded,
  reason=excluded.reason,
  detail=excluded.detail,
  provider=excluded.provider,
  evidence_url=excluded.evidence_url,
  duration_ms=excluded.duration_ms;
`
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}
	_, err := r.db.ExecContext(ctx, q, string(a.ID), string(a.Feature), a.Score, a.Degraded,
		a.Reason, a.Detail, a.Provider, a.EvidenceURL, a.DurationMS, createdAt.UnixMilli())
	return err
}

func (r *AuditRepository) SaveFailure(ctx context.Context, f *domain.Failure) error {
	const q = `
INSERT INTO analysis_audit_failures
  (record_id, capability, provider, reason, detail, created_at)
VALUES (?,?,?,?,?,?)
`
	created := f.CreatedAt
	if created.IsZero() {
		created = r.now()
	}
	res, err := r.db.ExecContext(ctx, q, string(f.RecordID), f.Capability, f.Provider, f.Reason, f.Detail, created.UnixMilli())
	if err != nil {
		return err
	}
	f.ID, err = res.LastInsertId()
	return err
}

// Paginate returns a page of audit records, newest first
func (r *AuditRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Record, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	const q = `
SELECT id, feature, score, degraded, reason, detail, provider, evidence_url, duration_ms, created_at
FROM analysis_audit
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;
`
	rows, err := r.db.QueryContext(ctx, q, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Record{}
	for rows.Next() {
		var a domain.Record
		var created int64
		if err := rows.Scan(&a.ID, &a.Feature, &a.Score, &a.Degraded, &a.Reason, &a.Detail,
			&a.Provider, &a.EvidenceURL, &a.DurationMS, &created); err != nil {
			return nil, err
		}
		a.CreatedAt = time.UnixMilli(created).UTC()
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
WHERE record_id = ?
ORDER BY id ASC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, string(id), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*domain.Failure{}
	for rows.Next() {
		var f domain.Failure
		var created int64
		if err := rows.Scan(&f.ID, &f.RecordID, &f.Capability, &f.Provider, &f.Reason, &f.Detail, &created); err != nil {
			return nil, err
		}
		f.CreatedAt = time.UnixMilli(created).UTC()
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
SELECT feature, COUNT(*), COALESCE(SUM(degraded), 0)
FROM analysis_audit
WHERE created_at >= ?
GROUP BY feature;`
	since := r.now().AddDate(0, 0, -sinceDays).UnixMilli()
	rows, err := r.db.QueryContext(ctx, q, since)
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
