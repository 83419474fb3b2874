package repo

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/xxxsen/bagbot/internal/model"
	appErr "github.com/xxxsen/bagbot/internal/pkg/errors"
)

// MemoryVectorRepo is an in-process vector store for local runs. Contents
// are lost when the process exits.
type MemoryVectorRepo struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	meta model.VectorCollection
	docs map[string]model.PolicyDocument
}

func NewMemoryVectorRepo() *MemoryVectorRepo {
	return &MemoryVectorRepo{collections: make(map[string]*memoryCollection)}
}

func (r *MemoryVectorRepo) ListCollections(ctx context.Context) ([]model.VectorCollection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]model.VectorCollection, 0, len(r.collections))
	for _, c := range r.collections {
		items = append(items, c.meta)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (r *MemoryVectorRepo) GetCollection(ctx context.Context, name string) (*model.VectorCollection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collections[name]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	meta := c.meta
	return &meta, nil
}

func (r *MemoryVectorRepo) CreateCollection(ctx context.Context, coll *model.VectorCollection) error {
	if _, err := distanceOperator(coll.Metric); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.collections[coll.Name]; ok {
		return appErr.ErrConflict
	}
	if coll.Ctime == 0 {
		coll.Ctime = time.Now().Unix()
	}
	r.collections[coll.Name] = &memoryCollection{meta: *coll, docs: make(map[string]model.PolicyDocument)}
	return nil
}

func (r *MemoryVectorRepo) Upsert(ctx context.Context, collection string, doc *model.PolicyDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.collections[collection]
	if !ok {
		return appErr.ErrNotFound
	}
	if len(doc.Embedding) != c.meta.Dimension {
		return fmt.Errorf("expected %d dimensions, not %d", c.meta.Dimension, len(doc.Embedding))
	}
	stored := *doc
	stored.Embedding = append([]float32(nil), doc.Embedding...)
	c.docs[doc.ID] = stored
	return nil
}

func (r *MemoryVectorRepo) Search(ctx context.Context, collection string, query []float32, topK int) ([]model.KnowledgeMatch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collections[collection]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	matches := make([]model.KnowledgeMatch, 0, len(c.docs))
	for _, doc := range c.docs {
		matches = append(matches, model.KnowledgeMatch{
			ID:       doc.ID,
			Title:    doc.Title,
			Text:     doc.Text,
			Category: doc.Category,
			Type:     doc.Type,
			Score:    similarity(c.meta.Metric, query, doc.Embedding),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Score > matches[j].Score
	})
	if topK > 0 && topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

func similarity(metric string, a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(-1)
	}
	var dot, normA, normB, sq float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
		sq += (x - y) * (x - y)
	}
	switch metric {
	case model.MetricDotProduct:
		return dot
	case model.MetricCosine:
		if normA == 0 || normB == 0 {
			return 0
		}
		return dot / (math.Sqrt(normA) * math.Sqrt(normB))
	default:
		return 1 / (1 + math.Sqrt(sq))
	}
}
