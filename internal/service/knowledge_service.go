package service

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bagbot/internal/ai"
	"github.com/xxxsen/bagbot/internal/metrics"
	"github.com/xxxsen/bagbot/internal/model"
	appErr "github.com/xxxsen/bagbot/internal/pkg/errors"
)

const (
	TaskTypeRetrievalQuery    = "RETRIEVAL_QUERY"
	TaskTypeRetrievalDocument = "RETRIEVAL_DOCUMENT"

	emptyKnowledgeMessage = "Knowledge base is empty"
)

// VectorStore is the collection-scoped view of the vector index.
type VectorStore interface {
	ListCollections(ctx context.Context) ([]model.VectorCollection, error)
	CreateCollection(ctx context.Context, coll *model.VectorCollection) error
	Upsert(ctx context.Context, collection string, doc *model.PolicyDocument) error
	Search(ctx context.Context, collection string, query []float32, topK int) ([]model.KnowledgeMatch, error)
}

type KnowledgeOptions struct {
	Collection string
	Dimension  int
	Metric     string
	TopK       int
}

type KnowledgeService struct {
	store    VectorStore
	embedder ai.IEmbedder
	opts     KnowledgeOptions
	metrics  *metrics.Metrics
}

func NewKnowledgeService(store VectorStore, embedder ai.IEmbedder, opts KnowledgeOptions, m *metrics.Metrics) *KnowledgeService {
	if opts.TopK <= 0 {
		opts.TopK = 4
	}
	return &KnowledgeService{store: store, embedder: embedder, opts: opts, metrics: m}
}

func (s *KnowledgeService) Collection() string {
	return s.opts.Collection
}

// Retrieve returns the texts of the best matches in rank order. An empty
// slice means nothing matched or the collection was never ingested.
func (s *KnowledgeService) Retrieve(ctx context.Context, query string) ([]string, error) {
	matches, err := s.Search(ctx, query, s.opts.TopK)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		texts = append(texts, m.Text)
	}
	s.metrics.ObserveKnowledge(len(texts) > 0)
	return texts, nil
}

func (s *KnowledgeService) Search(ctx context.Context, query string, topK int) ([]model.KnowledgeMatch, error) {
	if topK <= 0 {
		topK = s.opts.TopK
	}
	logger := logutil.GetLogger(ctx).With(zap.String("collection", s.opts.Collection))
	vec, err := s.embedder.Embed(ctx, query, TaskTypeRetrievalQuery)
	if err != nil {
		logger.Error("failed to embed knowledge query", zap.Error(err))
		return nil, fmt.Errorf("embed query: %w", err)
	}
	matches, err := s.store.Search(ctx, s.opts.Collection, vec, topK)
	if appErr.IsNotFound(err) {
		logger.Warn("knowledge collection missing, run ingest first")
		return []model.KnowledgeMatch{}, nil
	}
	if err != nil {
		logger.Error("failed to search knowledge", zap.Error(err))
		return nil, fmt.Errorf("search knowledge: %w", err)
	}
	logger.Debug("knowledge search done", zap.Int("matches", len(matches)))
	return matches, nil
}

// EnsureCollection creates the configured collection unless it already
// exists. It reports whether a collection was created.
func (s *KnowledgeService) EnsureCollection(ctx context.Context) (bool, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("collection", s.opts.Collection))
	items, err := s.store.ListCollections(ctx)
	if err != nil {
		return false, fmt.Errorf("list collections: %w", err)
	}
	for _, item := range items {
		if item.Name != s.opts.Collection {
			continue
		}
		if item.Dimension != s.opts.Dimension || item.Metric != s.opts.Metric {
			logger.Warn("collection settings differ from config",
				zap.Int("dimension", item.Dimension),
				zap.String("metric", item.Metric),
			)
		}
		logger.Info("collection exists")
		return false, nil
	}
	err = s.store.CreateCollection(ctx, &model.VectorCollection{
		Name:      s.opts.Collection,
		Dimension: s.opts.Dimension,
		Metric:    s.opts.Metric,
	})
	if appErr.IsConflict(err) {
		logger.Info("collection created concurrently")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create collection: %w", err)
	}
	logger.Info("collection created", zap.Int("dimension", s.opts.Dimension), zap.String("metric", s.opts.Metric))
	return true, nil
}

// Upsert stores one embedded document.
func (s *KnowledgeService) Upsert(ctx context.Context, doc *model.PolicyDocument) error {
	if len(doc.Embedding) != s.opts.Dimension {
		return fmt.Errorf("document %s has %d dimensions, want %d: %w", doc.ID, len(doc.Embedding), s.opts.Dimension, appErr.ErrInvalid)
	}
	return s.store.Upsert(ctx, s.opts.Collection, doc)
}
