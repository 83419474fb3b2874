package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bagbot/internal/ai"
	"github.com/xxxsen/bagbot/internal/config"
	"github.com/xxxsen/bagbot/internal/db"
	"github.com/xxxsen/bagbot/internal/embedcache"
	"github.com/xxxsen/bagbot/internal/filestore"
	"github.com/xxxsen/bagbot/internal/loader"
	"github.com/xxxsen/bagbot/internal/metrics"
	"github.com/xxxsen/bagbot/internal/model"
	"github.com/xxxsen/bagbot/internal/repo"
	"github.com/xxxsen/bagbot/internal/service"
)

// app holds the long-lived handles shared by every command.
type app struct {
	cfg       *config.Config
	db        *sql.DB
	metrics   *metrics.Metrics
	embedder  ai.IEmbedder
	cacheRepo *repo.EmbeddingCacheRepo
	policies  filestore.Store
	knowledge *service.KnowledgeService
	ingest    *service.IngestService
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, metrics: metrics.New()}
	logger := logutil.GetLogger(context.Background())

	needDB := cfg.Knowledge.Store == config.StorePGVector || cfg.AI.EmbedCache.EnableDB
	if needDB {
		conn, err := db.Open(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		if err := db.ApplyMigrations(conn); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		a.db = conn
	}

	embedProvider, err := ai.NewEmbedProvider(cfg.AI.Embed.Provider, cfg.AI.Embed.Data)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("init embed provider: %w", err)
	}
	embedder := ai.NewEmbedder(embedProvider, cfg.AI.Embed.Model)
	if cfg.AI.EmbedCache.EnableDB && a.db != nil {
		a.cacheRepo = repo.NewEmbeddingCacheRepo(a.db)
		embedder = embedcache.WrapDB(embedder, a.cacheRepo)
	}
	a.embedder = embedcache.WrapLRU(embedder, cfg.AI.EmbedCache.LRUSize, time.Duration(cfg.AI.EmbedCache.LRUTTL)*time.Second)

	var store service.VectorStore
	switch cfg.Knowledge.Store {
	case config.StorePGVector:
		store = repo.NewVectorRepo(a.db, cfg.Knowledge.Keyspace)
	default:
		store = repo.NewMemoryVectorRepo()
	}
	a.knowledge = service.NewKnowledgeService(store, a.embedder, service.KnowledgeOptions{
		Collection: cfg.Knowledge.Collection,
		Dimension:  cfg.Knowledge.Dimension,
		Metric:     cfg.Knowledge.Metric,
		TopK:       cfg.Knowledge.TopK,
	}, a.metrics)
	a.ingest = service.NewIngestService(a.knowledge, a.embedder, cfg.Ingest.Concurrency, a.metrics)

	a.policies, err = filestore.New(cfg.PolicyStore)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("init policy store: %w", err)
	}
	logger.Info("app initialized",
		zap.String("knowledge_store", cfg.Knowledge.Store),
		zap.String("collection", cfg.Knowledge.Collection),
		zap.String("embed_provider", cfg.AI.Embed.Provider),
		zap.String("policy_store", a.policies.Type()),
	)
	return a, nil
}

func (a *app) policySource(key string) service.PolicySource {
	return func(ctx context.Context) ([]model.PolicyDocument, error) {
		return loader.Load(ctx, a.policies, key)
	}
}

func (a *app) newChatService() (*service.ChatService, error) {
	provider, err := ai.NewProvider(a.cfg.AI.Chat.Provider, a.cfg.AI.Chat.Data)
	if err != nil {
		return nil, fmt.Errorf("init ai provider: %w", err)
	}
	gen := ai.NewGenerator(provider, a.cfg.AI.Chat.Model, time.Duration(a.cfg.AI.Timeout)*time.Second)
	return service.NewChatService(
		service.NewIntentService(gen),
		a.knowledge,
		service.NewOrderService(),
		service.NewProductService(gen),
		service.NewReplyService(gen),
		a.metrics,
	), nil
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}
