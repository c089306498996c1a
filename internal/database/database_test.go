package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/cognitive-echo/internal/acoustic"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/cache"
	apperrors "github.com/ZanzyTHEbar/cognitive-echo/internal/errors"
)

func newTestService(t *testing.T) (*BaselineService, *Repository) {
	t.Helper()

	db, err := NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewRepository(db)
	c := cache.NewCache[*Baseline](time.Minute, 0, nil)
	return NewBaselineService(repo, c, nil), repo
}

func sampleFeatures() acoustic.FeatureVector {
	return acoustic.FeatureInput{
		MFCCMean:       []float64{1, 2, 3},
		JitterPercent:  acoustic.Value(1.2),
		ShimmerPercent: acoustic.Value(4.5),
		MeanPitchHz:    acoustic.Value(180),
		PauseRatio:     acoustic.Value(0.2),
	}.Sanitize()
}

func TestValidateSubjectID(t *testing.T) {
	valid := []string{"a", "subject-1", "S_01.v2", "0abc"}
	invalid := []string{"", "-leading", "has space", "semi;colon", string(make([]byte, 129))}

	for _, id := range valid {
		assert.NoError(t, ValidateSubjectID(id), id)
	}
	for _, id := range invalid {
		err := ValidateSubjectID(id)
		require.Error(t, err, id)
		assert.Equal(t, apperrors.CategoryValidation, apperrors.ToAppError(err).Category)
	}
}

func TestBaselineService_PutGetDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "subject-1")
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := svc.Put(ctx, "subject-1", sampleFeatures())
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, "subject-1", stored.SubjectID)

	got, err := svc.Get(ctx, "subject-1")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)

	v := got.Vector()
	assert.True(t, v.Has(acoustic.FieldJitter))
	assert.False(t, v.Has(acoustic.FieldHNR))
	assert.Equal(t, 1.2, v.JitterPercent)
	assert.Equal(t, []float64{1, 2, 3}, v.MFCCMean)

	require.NoError(t, svc.Delete(ctx, "subject-1"))
	_, err = svc.Get(ctx, "subject-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "subject-1"), ErrNotFound)
}

func TestBaselineService_ReplaceKeepsIdentity(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	first, err := svc.Put(ctx, "subject-2", sampleFeatures())
	require.NoError(t, err)

	next := acoustic.FeatureInput{JitterPercent: acoustic.Value(3)}.Sanitize()
	second, err := svc.Put(ctx, "subject-2", next)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3.0, second.Vector().JitterPercent)

	fromDB, err := repo.GetBaseline(ctx, "subject-2")
	require.NoError(t, err)
	assert.Equal(t, 3.0, fromDB.Vector().JitterPercent)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBaselineService_Lookup(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	v, err := svc.Lookup(ctx, "first-timer")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = svc.Put(ctx, "returning", sampleFeatures())
	require.NoError(t, err)

	v, err = svc.Lookup(ctx, "returning")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 180.0, v.MeanPitchHz)

	_, err = svc.Lookup(ctx, "bad id")
	assert.Error(t, err)
}

func TestBaselineService_Purge(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now.Add(-48 * time.Hour) }
	_, err := svc.Put(ctx, "stale", sampleFeatures())
	require.NoError(t, err)

	svc.now = func() time.Time { return now }
	_, err = svc.Put(ctx, "fresh", sampleFeatures())
	require.NoError(t, err)

	n, err := svc.PurgeOlderThan(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = svc.Get(ctx, "stale")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Get(ctx, "fresh")
	assert.NoError(t, err)
}

func TestBaselineService_WithoutCache(t *testing.T) {
	db, err := NewDB(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	svc := NewBaselineService(NewRepository(db), nil, nil)
	_, err = svc.Put(context.Background(), "subject-3", sampleFeatures())
	require.NoError(t, err)

	b, err := svc.Get(context.Background(), "subject-3")
	require.NoError(t, err)
	assert.Equal(t, "subject-3", b.SubjectID)
}

func TestDB_PoolStats(t *testing.T) {
	db, err := NewDB(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	stats := db.GetPoolStats()
	assert.Equal(t, 8, stats["max_open_connections"])

	_, err = db.GetPreparedStatement("missing")
	assert.Error(t, err)
}
