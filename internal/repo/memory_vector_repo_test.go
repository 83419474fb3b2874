package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/bagbot/internal/model"
	appErr "github.com/xxxsen/bagbot/internal/pkg/errors"
)

func TestMemoryVectorRepo_CreateOnce(t *testing.T) {
	r := NewMemoryVectorRepo()
	ctx := context.Background()
	coll := &model.VectorCollection{Name: "policies", Dimension: 2, Metric: model.MetricDotProduct}
	require.NoError(t, r.CreateCollection(ctx, coll))
	require.ErrorIs(t, r.CreateCollection(ctx, coll), appErr.ErrConflict)
	require.Error(t, r.CreateCollection(ctx, &model.VectorCollection{Name: "x", Dimension: 2, Metric: "manhattan"}))

	items, err := r.ListCollections(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)

	got, err := r.GetCollection(ctx, "policies")
	require.NoError(t, err)
	require.Equal(t, 2, got.Dimension)
	_, err = r.GetCollection(ctx, "nope")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestMemoryVectorRepo_SearchByMetric(t *testing.T) {
	ctx := context.Background()
	docs := []model.PolicyDocument{
		{ID: "near", Text: "near", Embedding: []float32{1, 0}},
		{ID: "far", Text: "far", Embedding: []float32{-1, 0}},
		{ID: "long", Text: "long", Embedding: []float32{3, 3}},
	}
	tests := []struct {
		metric string
		want   []string
	}{
		{metric: model.MetricDotProduct, want: []string{"long", "near", "far"}},
		{metric: model.MetricCosine, want: []string{"near", "long", "far"}},
		{metric: model.MetricEuclidean, want: []string{"near", "far", "long"}},
	}
	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			r := NewMemoryVectorRepo()
			require.NoError(t, r.CreateCollection(ctx, &model.VectorCollection{Name: "c", Dimension: 2, Metric: tt.metric}))
			for i := range docs {
				require.NoError(t, r.Upsert(ctx, "c", &docs[i]))
			}
			matches, err := r.Search(ctx, "c", []float32{1, 0}, 3)
			require.NoError(t, err)
			ids := make([]string, 0, len(matches))
			for _, m := range matches {
				ids = append(ids, m.ID)
			}
			require.Equal(t, tt.want, ids)
		})
	}
}

func TestMemoryVectorRepo_UpsertReplacesAndChecksDimension(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryVectorRepo()
	require.NoError(t, r.CreateCollection(ctx, &model.VectorCollection{Name: "c", Dimension: 2, Metric: model.MetricDotProduct}))
	require.NoError(t, r.Upsert(ctx, "c", &model.PolicyDocument{ID: "a", Text: "old", Embedding: []float32{1, 0}}))
	require.NoError(t, r.Upsert(ctx, "c", &model.PolicyDocument{ID: "a", Text: "new", Embedding: []float32{1, 0}}))
	require.Error(t, r.Upsert(ctx, "c", &model.PolicyDocument{ID: "b", Embedding: []float32{1}}))
	require.ErrorIs(t, r.Upsert(ctx, "missing", &model.PolicyDocument{ID: "b"}), appErr.ErrNotFound)

	matches, err := r.Search(ctx, "c", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "new", matches[0].Text)
}
