package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/osint-cafe/internal/domain/audit"
)

func newRepo(t *testing.T) *AuditRepository {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewAuditRepository(db)
}

func TestAuditRepository_SaveAndPaginate(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, f := range []domain.Feature{domain.FeatureProfile, domain.FeatureImage, domain.FeatureConversation} {
		require.NoError(t, repo.Save(ctx, &domain.Record{
			ID:        domain.RecordID(string(f) + "-1"),
			Feature:   f,
			Score:     60 + i,
			Degraded:  f == domain.FeatureImage,
			Reason:    map[bool]string{true: "unreachable"}[f == domain.FeatureImage],
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	first, err := repo.Paginate(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, domain.FeatureConversation, first[0].Feature)
	assert.Equal(t, domain.FeatureImage, first[1].Feature)
	assert.True(t, first[1].Degraded)
	assert.Equal(t, "unreachable", first[1].Reason)
	assert.True(t, base.Add(time.Minute).Equal(first[1].CreatedAt))

	second, err := repo.Paginate(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 60, second[0].Score)

	empty, err := repo.Paginate(ctx, 9, 2)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)
}

func TestAuditRepository_SaveIsUpsert(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	rec := &domain.Record{ID: "r1", Feature: domain.FeatureProfile, Score: 60, Degraded: true}
	require.NoError(t, repo.Save(ctx, rec))
	rec.Score, rec.Degraded = 85, false
	require.NoError(t, repo.Save(ctx, rec))

	out, err := repo.Paginate(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 85, out[0].Score)
	assert.False(t, out[0].Degraded)
}

func TestAuditRepository_Failures(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	for _, p := range []string{"gemini", "cohere", "openai"} {
		f := &domain.Failure{RecordID: "r1", Capability: "text-risk", Provider: p, Reason: "unconfigured"}
		require.NoError(t, repo.SaveFailure(ctx, f))
		assert.NotZero(t, f.ID)
	}
	require.NoError(t, repo.SaveFailure(ctx, &domain.Failure{RecordID: "r2", Capability: "image-risk", Provider: "pica", Reason: "rejected"}))

	out, err := repo.Failures(ctx, "r1", 0)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"gemini", "cohere", "openai"}, []string{out[0].Provider, out[1].Provider, out[2].Provider})

	limited, err := repo.Failures(ctx, "r1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestAuditRepository_Summary(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	save := func(id string, f domain.Feature, degraded bool, age time.Duration) {
		require.NoError(t, repo.Save(ctx, &domain.Record{ID: domain.RecordID(id), Feature: f, Degraded: degraded, CreatedAt: now.Add(-age)}))
	}
	save("a", domain.FeatureProfile, false, time.Hour)
	save("b", domain.FeatureProfile, true, 2*time.Hour)
	save("c", domain.FeatureImage, true, 24*time.Hour)
	save("old", domain.FeatureImage, true, 30*24*time.Hour)

	s, err := repo.Summary(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Degraded)
	assert.Equal(t, map[string]int{"profile": 2, "image": 1}, s.ByFeature)
	assert.Equal(t, 7, s.SinceDays)
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.db")
	db, err := Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// reopening an existing database keeps the schema idempotent
	db, err = Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}
