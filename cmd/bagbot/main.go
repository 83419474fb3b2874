package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/bagbot/internal/config"
	"github.com/xxxsen/bagbot/internal/filestore"
	"github.com/xxxsen/bagbot/internal/handler"
	"github.com/xxxsen/bagbot/internal/job"
	"github.com/xxxsen/bagbot/internal/loader"
	"github.com/xxxsen/bagbot/internal/middleware"
	"github.com/xxxsen/bagbot/internal/schedule"
)

func main() {
	var (
		configPath string
		envFile    string
		source     string
		watch      bool
	)

	rootCmd := &cobra.Command{
		Use:   "bagbot",
		Short: "bagbot e-commerce chatbot backend",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional env file loaded before the config")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath, envFile)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "load policy documents into the vector store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath, envFile)
			if err != nil {
				return err
			}
			if source != "" {
				cfg.Ingest.Source = source
			}
			return runIngest(cfg, watch)
		},
	}
	ingestCmd.Flags().StringVar(&source, "source", "", "policy file key inside the policy store (overrides ingest.source)")
	ingestCmd.Flags().BoolVar(&watch, "watch", false, "re-run ingestion when the local policy file changes")

	rootCmd.AddCommand(runCmd, ingestCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(configPath, envFile string) (*config.Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
	return cfg, nil
}

func runServer(cfg *config.Config) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	lg := logutil.GetLogger(ctx)

	chat, err := a.newChatService()
	if err != nil {
		return err
	}

	if cfg.Knowledge.SyncOnStart {
		if _, err := a.ingest.Run(ctx, a.policySource(cfg.Ingest.Source)); err != nil {
			lg.Error("initial knowledge sync failed", zap.Error(err))
		}
	}

	scheduler := schedule.NewCronScheduler()
	if cfg.Knowledge.SyncCron != "" {
		if err := scheduler.AddJob(job.NewKnowledgeSyncJob(a.ingest, a.policySource(cfg.Ingest.Source)), cfg.Knowledge.SyncCron); err != nil {
			return fmt.Errorf("schedule knowledge sync: %w", err)
		}
	}
	if cfg.Knowledge.CacheCleanupCron != "" && a.cacheRepo != nil {
		cleanup := job.NewEmbeddingCacheCleanupJob(a.cacheRepo, cfg.AI.EmbedCache.MaxAgeDays)
		if err := scheduler.AddJob(cleanup, cfg.Knowledge.CacheCleanupCron); err != nil {
			return fmt.Errorf("schedule cache cleanup: %w", err)
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	if cfg.Knowledge.WatchSource {
		path, err := localPolicyPath(a.policies, cfg.Ingest.Source)
		if err != nil {
			return err
		}
		watcher, err := loader.NewWatcher()
		if err != nil {
			return fmt.Errorf("init watcher: %w", err)
		}
		defer watcher.Close()
		changes, err := watcher.Watch(ctx, path)
		if err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		lg.Info("watching policy file", zap.String("path", path))
		go triggerOnChange(ctx, changes, scheduler, job.KnowledgeSyncJobName)
	}

	deps := handler.RouterDeps{
		Chat:      handler.NewChatHandler(chat, a.metrics),
		Data:      handler.NewDataHandler(),
		Knowledge: handler.NewKnowledgeHandler(a.knowledge),
		Metrics:   a.metrics.Handler(),
	}
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORS),
			a.metrics.GinMiddleware(),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	lg.Info("http server listening", zap.String("addr", addr))

	go func() {
		if err := engine.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	lg.Info("server stopping...")
	return nil
}

func runIngest(cfg *config.Config, watch bool) error {
	if err := checkIngestStore(cfg); err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	lg := logutil.GetLogger(ctx).With(zap.String("source", cfg.Ingest.Source))

	src := a.policySource(cfg.Ingest.Source)
	stats, err := a.ingest.Run(ctx, src)
	if err != nil {
		lg.Error("ingestion failed", zap.Error(err))
		return err
	}
	lg.Info("ingestion done",
		zap.Bool("collection_created", stats.Created),
		zap.Int("loaded", stats.Loaded),
		zap.Int("upserted", stats.Upserted),
	)
	if !watch {
		return nil
	}

	path, err := localPolicyPath(a.policies, cfg.Ingest.Source)
	if err != nil {
		return err
	}
	watcher, err := loader.NewWatcher()
	if err != nil {
		return fmt.Errorf("init watcher: %w", err)
	}
	defer watcher.Close()
	changes, err := watcher.Watch(ctx, path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	lg.Info("watching policy file", zap.String("path", path))
	for range changes {
		if _, err := a.ingest.Run(ctx, src); err != nil {
			lg.Error("re-ingestion failed", zap.Error(err))
			continue
		}
		lg.Info("re-ingestion done")
	}
	return nil
}

// checkIngestStore rejects targets that do not outlive the ingest process.
// The memory store is only populated by the server through sync_on_start.
func checkIngestStore(cfg *config.Config) error {
	if cfg.Knowledge.Store == config.StoreMemory {
		return fmt.Errorf("ingest needs a persistent knowledge.store, %q is dropped on exit; use knowledge.sync_on_start instead", cfg.Knowledge.Store)
	}
	return nil
}

func localPolicyPath(store filestore.Store, key string) (string, error) {
	local, ok := store.(filestore.LocalPather)
	if !ok {
		return "", fmt.Errorf("watching requires a local policy store, got %s", store.Type())
	}
	return local.LocalPath(key)
}

// triggerOnChange runs the named job once per coalesced change until
// changes is closed.
func triggerOnChange(ctx context.Context, changes <-chan struct{}, s schedule.Scheduler, name string) {
	lg := logutil.GetLogger(ctx).With(zap.String("job", name))
	for range changes {
		if err := s.Trigger(name); err != nil {
			lg.Error("trigger on policy change failed", zap.Error(err))
			continue
		}
		lg.Info("policy change detected, sync triggered")
	}
}
