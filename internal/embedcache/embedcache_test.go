package embedcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/bagbot/internal/model"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) ModelName() string {
	return "test-model"
}

type mapStore struct {
	items   map[string][]float32
	saveErr error
}

func (m *mapStore) Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error) {
	v, ok := m.items[modelName+taskType+contentHash]
	return v, ok, nil
}

func (m *mapStore) Save(ctx context.Context, item *model.EmbeddingCache) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.items[item.ModelName+item.TaskType+item.ContentHash] = item.Embedding
	return nil
}

func TestWrapLRU_ReusesEmbedding(t *testing.T) {
	next := &countingEmbedder{}
	e := WrapLRU(next, 10, time.Minute)
	first, err := e.Embed(context.Background(), "return policy", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	second, err := e.Embed(context.Background(), "return policy", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, next.calls)

	_, err = e.Embed(context.Background(), "return policy", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, 2, next.calls)
}

func TestWrapLRU_CachedValueIsCopied(t *testing.T) {
	e := WrapLRU(&countingEmbedder{}, 10, time.Minute)
	first, err := e.Embed(context.Background(), "x", "")
	require.NoError(t, err)
	cached, err := e.Embed(context.Background(), "x", "")
	require.NoError(t, err)
	cached[0] = 99
	again, err := e.Embed(context.Background(), "x", "")
	require.NoError(t, err)
	require.Equal(t, first[0], again[0])
}

func TestWrapLRU_DisabledReturnsNext(t *testing.T) {
	next := &countingEmbedder{}
	require.Same(t, next, WrapLRU(next, 0, time.Minute).(*countingEmbedder))
}

func TestWrapDB_SaveFailureDoesNotFail(t *testing.T) {
	next := &countingEmbedder{}
	store := &mapStore{items: map[string][]float32{}, saveErr: errors.New("db down")}
	e := WrapDB(next, store)
	res, err := e.Embed(context.Background(), "abc", "q")
	require.NoError(t, err)
	require.Equal(t, []float32{3, 1}, res)
}

func TestWrapDB_HitSkipsProvider(t *testing.T) {
	next := &countingEmbedder{}
	store := &mapStore{items: map[string][]float32{}}
	e := WrapDB(next, store)
	_, err := e.Embed(context.Background(), "abc", "q")
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "abc", "q")
	require.NoError(t, err)
	require.Equal(t, 1, next.calls)
}
