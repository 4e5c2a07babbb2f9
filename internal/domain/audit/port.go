package audit

import "context"

// Repository port for persisting and querying analysis outcomes
type Repository interface {
	Save(ctx context.Context, r *Record) error
	SaveFailure(ctx context.Context, f *Failure) error
	Paginate(ctx context.Context, page, pageSize int) ([]*Record, error)
	Failures(ctx context.Context, id RecordID, limit int) ([]*Failure, error)
	Summary(ctx context.Context, sinceDays int) (Summary, error)
}

// EvidenceStore archives analysed payloads and returns where they were put.
type EvidenceStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
