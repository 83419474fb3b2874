package repo_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/bagbot/internal/model"
	appErr "github.com/xxxsen/bagbot/internal/pkg/errors"
	"github.com/xxxsen/bagbot/internal/repo"
	"github.com/xxxsen/bagbot/internal/testutil"
)

func TestVectorRepo_CollectionLifecycle(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	keyspace := fmt.Sprintf("ks_%d", time.Now().UnixNano())
	r := repo.NewVectorRepo(conn, keyspace)
	defer func() {
		_, _ = conn.Exec(`DELETE FROM vector_collections WHERE keyspace = $1`, keyspace)
		_, _ = conn.Exec(`DROP SCHEMA IF EXISTS ` + keyspace + ` CASCADE`)
	}()

	coll := &model.VectorCollection{Name: "policies", Dimension: 3, Metric: model.MetricDotProduct}
	require.NoError(t, r.CreateCollection(ctx, coll))
	require.ErrorIs(t, r.CreateCollection(ctx, coll), appErr.ErrConflict)

	items, err := r.ListCollections(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 3, items[0].Dimension)

	require.NoError(t, r.Upsert(ctx, "policies", &model.PolicyDocument{ID: "a", Title: "A", Text: "alpha", Category: "c", Type: "policy", Embedding: []float32{1, 0, 0}}))
	require.NoError(t, r.Upsert(ctx, "policies", &model.PolicyDocument{ID: "b", Title: "B", Text: "beta", Category: "c", Type: "faq", Embedding: []float32{0, 1, 0}}))
	require.NoError(t, r.Upsert(ctx, "policies", &model.PolicyDocument{ID: "a", Title: "A", Text: "alpha v2", Category: "c", Type: "policy", Embedding: []float32{1, 0, 0}}))

	matches, err := r.Search(ctx, "policies", []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "alpha v2", matches[0].Text)
	require.InDelta(t, 1.0, matches[0].Score, 1e-6)
}

func TestEmbeddingCacheRepo(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	r := repo.NewEmbeddingCacheRepo(conn)
	hash := fmt.Sprintf("h%d", time.Now().UnixNano())

	_, ok, err := r.Get(ctx, "m", "q", hash)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, r.Save(ctx, &model.EmbeddingCache{ModelName: "m", TaskType: "q", ContentHash: hash, Embedding: []float32{0.5, 1}, Ctime: 10}))
	vec, ok, err := r.Get(ctx, "m", "q", hash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float32{0.5, 1}, vec)

	removed, err := r.DeleteBefore(ctx, 11)
	require.NoError(t, err)
	require.GreaterOrEqual(t, removed, int64(1))
}
