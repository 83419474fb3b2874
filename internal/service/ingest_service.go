package service

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/bagbot/internal/ai"
	"github.com/xxxsen/bagbot/internal/metrics"
	"github.com/xxxsen/bagbot/internal/model"
)

// PolicySource yields the documents to ingest.
type PolicySource func(ctx context.Context) ([]model.PolicyDocument, error)

type IngestStats struct {
	Created  bool
	Loaded   int
	Upserted int
}

type IngestService struct {
	knowledge   *KnowledgeService
	embedder    ai.IEmbedder
	concurrency int
	metrics     *metrics.Metrics
}

func NewIngestService(knowledge *KnowledgeService, embedder ai.IEmbedder, concurrency int, m *metrics.Metrics) *IngestService {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &IngestService{knowledge: knowledge, embedder: embedder, concurrency: concurrency, metrics: m}
}

// EmbeddingText is the text embedded for a document of the given type.
func EmbeddingText(doc *model.PolicyDocument) string {
	switch doc.Type {
	case model.PolicyTypePolicy:
		return doc.Title + "\n" + doc.Text
	case model.PolicyTypeFAQ:
		return "FAQ Document: " + doc.Title + "\n" + doc.Text
	default:
		return doc.Text
	}
}

// Run ensures the collection, embeds every document concurrently and then
// upserts them one at a time. The first failure aborts the run; documents
// upserted before it stay in the store.
func (s *IngestService) Run(ctx context.Context, source PolicySource) (*IngestStats, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("collection", s.knowledge.Collection()))
	stats := &IngestStats{}

	created, err := s.knowledge.EnsureCollection(ctx)
	if err != nil {
		return stats, err
	}
	stats.Created = created

	docs, err := source(ctx)
	if err != nil {
		return stats, fmt.Errorf("load policies: %w", err)
	}
	stats.Loaded = len(docs)

	if err := s.embedAll(ctx, docs); err != nil {
		return stats, err
	}
	for i := range docs {
		if err := s.knowledge.Upsert(ctx, &docs[i]); err != nil {
			logger.Error("upsert policy failed", zap.String("id", docs[i].ID), zap.Error(err))
			return stats, fmt.Errorf("upsert %s: %w", docs[i].ID, err)
		}
		stats.Upserted++
		s.metrics.ObserveIngested(s.knowledge.Collection(), 1)
		logger.Info("policy inserted", zap.String("id", docs[i].ID), zap.String("title", docs[i].Title))
	}
	logger.Info("ingestion finished", zap.Int("loaded", stats.Loaded), zap.Int("upserted", stats.Upserted))
	return stats, nil
}

func (s *IngestService) embedAll(ctx context.Context, docs []model.PolicyDocument) error {
	logger := logutil.GetLogger(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range docs {
		doc := &docs[i]
		g.Go(func() error {
			logger.Debug("embedding policy", zap.String("id", doc.ID), zap.String("title", doc.Title))
			vec, err := s.embedder.Embed(gctx, EmbeddingText(doc), TaskTypeRetrievalDocument)
			if err != nil {
				return fmt.Errorf("embed %s: %w", doc.ID, err)
			}
			doc.Embedding = vec
			return nil
		})
	}
	return g.Wait()
}
