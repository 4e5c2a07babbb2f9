// Package audit records every orchestrator outcome so degraded defaults can be told
// apart from genuine provider results after the fact.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/osint-cafe/internal/application"
	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
	domain "github.com/bryanwahyu/osint-cafe/internal/domain/audit"
)

// Entry is what an orchestrator hands over after producing a report.
type Entry struct {
	Feature     domain.Feature
	Capability  analysis.Capability
	Score       int
	Degraded    *analysis.Degraded
	Provider    string
	EvidenceURL string
	Duration    time.Duration
	Attempts    []analysis.Result
}

// Observer sees every entry, persisted or not.
type Observer interface {
	Observe(e Entry)
}

// Recorder writes entries to a repository. A nil repository turns it into a no-op
// that still hands out record IDs and notifies observers.
type Recorder struct {
	Repo      domain.Repository
	Clock     application.Clock
	Logger    *zap.Logger
	Observers []Observer
}

func NewRecorder(repo domain.Repository, clock application.Clock, logger *zap.Logger) *Recorder {
	if clock == nil {
		clock = application.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{Repo: repo, Clock: clock, Logger: logger}
}

// NewID allocates a record ID ahead of Record, e.g. to name archived evidence.
func (r *Recorder) NewID() domain.RecordID {
	return domain.RecordID(uuid.NewString())
}

// Enabled reports whether entries are persisted.
func (r *Recorder) Enabled() bool { return r != nil && r.Repo != nil }

// Record persists e under id. Storage errors are logged and dropped: an audit
// failure never changes what the user sees.
func (r *Recorder) Record(ctx context.Context, id domain.RecordID, e Entry) {
	if r == nil {
		return
	}
	for _, o := range r.Observers {
		o.Observe(e)
	}
	if !r.Enabled() {
		return
	}
	// the request deadline may already have passed when a degraded outcome lands here
	ctx = context.WithoutCancel(ctx)
	now := r.Clock.Now().UTC()
	rec := &domain.Record{
		ID:          id,
		Feature:     e.Feature,
		Score:       e.Score,
		Degraded:    e.Degraded != nil,
		Provider:    e.Provider,
		EvidenceURL: e.EvidenceURL,
		DurationMS:  e.Duration.Milliseconds(),
		CreatedAt:   now,
	}
	if e.Degraded != nil {
		rec.Reason = string(e.Degraded.Reason)
		rec.Detail = e.Degraded.Detail
	}
	if err := r.Repo.Save(ctx, rec); err != nil {
		r.Logger.Warn("audit save failed", zap.String("record_id", string(id)), zap.Error(err))
		return
	}
	for _, a := range e.Attempts {
		if a.OK {
			continue
		}
		f := &domain.Failure{
			RecordID:   id,
			Capability: string(e.Capability),
			Provider:   a.Provider,
			Reason:     string(a.Reason),
			Detail:     a.Detail,
			CreatedAt:  now,
		}
		if err := r.Repo.SaveFailure(ctx, f); err != nil {
			r.Logger.Warn("audit failure save failed", zap.String("record_id", string(id)), zap.Error(err))
		}
	}
}

// List returns one page of records, newest first.
func (r *Recorder) List(ctx context.Context, page, pageSize int) (domain.Page, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	out := domain.Page{Data: []*domain.Record{}, Page: page, PageSize: pageSize}
	if !r.Enabled() {
		return out, nil
	}
	data, err := r.Repo.Paginate(ctx, page, pageSize)
	if err != nil {
		return out, err
	}
	out.Data = data
	return out, nil
}

// Failures returns the failed attempts behind one record.
func (r *Recorder) Failures(ctx context.Context, id domain.RecordID) ([]*domain.Failure, error) {
	if !r.Enabled() {
		return []*domain.Failure{}, nil
	}
	return r.Repo.Failures(ctx, id, 50)
}

// Summary counts records from the last sinceDays days.
func (r *Recorder) Summary(ctx context.Context, sinceDays int) (domain.Summary, error) {
	if !r.Enabled() {
		return domain.Summary{ByFeature: map[string]int{}, SinceDays: sinceDays}, nil
	}
	return r.Repo.Summary(ctx, sinceDays)
}
