package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
)

const (
	StorePGVector = "pgvector"
	StoreMemory   = "memory"
)

type Config struct {
	Port        int              `json:"port"`
	LogConfig   logger.LogConfig `json:"log_config"`
	Database    DatabaseConfig   `json:"database"`
	AI          AIConfig         `json:"ai"`
	Knowledge   KnowledgeConfig  `json:"knowledge"`
	Ingest      IngestConfig     `json:"ingest"`
	PolicyStore FileStoreConfig  `json:"policy_store"`
	CORS        []string         `json:"cors_allowlist"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type AIConfig struct {
	Chat       ModelConfig      `json:"chat"`
	Embed      ModelConfig      `json:"embed"`
	Timeout    int              `json:"timeout"`
	EmbedCache EmbedCacheConfig `json:"embed_cache"`
}

type ModelConfig struct {
	Provider string                 `json:"provider"`
	Model    string                 `json:"model"`
	Data     map[string]interface{} `json:"data"`
}

type EmbedCacheConfig struct {
	LRUSize    int  `json:"lru_size"`
	LRUTTL     int  `json:"lru_ttl"`
	EnableDB   bool `json:"enable_db"`
	MaxAgeDays int  `json:"max_age_days"`
}

type KnowledgeConfig struct {
	Store            string `json:"store"`
	Keyspace         string `json:"keyspace"`
	Collection       string `json:"collection"`
	Dimension        int    `json:"dimension"`
	Metric           string `json:"metric"`
	TopK             int    `json:"top_k"`
	SyncCron         string `json:"sync_cron"`
	SyncOnStart      bool   `json:"sync_on_start"`
	WatchSource      bool   `json:"watch_source"`
	CacheCleanupCron string `json:"cache_cleanup_cron"`
}

type IngestConfig struct {
	Source      string `json:"source"`
	Concurrency int    `json:"concurrency"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.AI.Embed.Provider == "" {
		cfg.AI.Embed.Provider = "gemini"
	}
	applyEnv(&cfg)
	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func normalize(cfg *Config) error {
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.Chat.Provider == "" {
		return fmt.Errorf("ai.chat.provider is required")
	}
	if cfg.AI.Chat.Model == "" {
		return fmt.Errorf("ai.chat.model is required")
	}
	if cfg.AI.Embed.Provider == "" {
		cfg.AI.Embed.Provider = "gemini"
	}
	if cfg.AI.Embed.Model == "" {
		cfg.AI.Embed.Model = "gemini-embedding-001"
	}
	if cfg.AI.EmbedCache.LRUSize == 0 {
		cfg.AI.EmbedCache.LRUSize = 1000
	}
	if cfg.AI.EmbedCache.LRUTTL == 0 {
		cfg.AI.EmbedCache.LRUTTL = 7200
	}
	if cfg.AI.EmbedCache.MaxAgeDays == 0 {
		cfg.AI.EmbedCache.MaxAgeDays = 30
	}

	k := &cfg.Knowledge
	if k.Store == "" {
		k.Store = StorePGVector
	}
	if k.Collection == "" {
		return fmt.Errorf("knowledge.collection is required")
	}
	if k.Dimension == 0 {
		k.Dimension = 3072
	}
	if k.Metric == "" {
		k.Metric = "dot_product"
	}
	if k.TopK <= 0 {
		k.TopK = 4
	}
	switch k.Store {
	case StorePGVector:
		if cfg.Database.DSN == "" && cfg.Database.Host == "" {
			return fmt.Errorf("database.dsn or database.host is required for pgvector store")
		}
		if cfg.Database.Port == 0 {
			cfg.Database.Port = 5432
		}
	case StoreMemory:
	default:
		return fmt.Errorf("knowledge.store must be pgvector or memory")
	}

	if k.WatchSource && k.SyncCron == "" {
		return fmt.Errorf("knowledge.watch_source requires knowledge.sync_cron")
	}

	if cfg.Ingest.Concurrency <= 0 {
		cfg.Ingest.Concurrency = 4
	}
	if cfg.Ingest.Source == "" {
		cfg.Ingest.Source = "policies.json"
	}
	if cfg.PolicyStore.Type == "" {
		cfg.PolicyStore.Type = "local"
		cfg.PolicyStore.Data = map[string]interface{}{"dir": "."}
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("VECTOR_KEYSPACE"); v != "" {
		cfg.Knowledge.Keyspace = v
	}
	if v := os.Getenv("VECTOR_COLLECTION"); v != "" {
		cfg.Knowledge.Collection = v
	}
	for _, m := range []*ModelConfig{&cfg.AI.Chat, &cfg.AI.Embed} {
		switch strings.ToLower(strings.TrimSpace(m.Provider)) {
		case "gemini":
			setData(m, "api_key", os.Getenv("GOOGLE_API_KEY"))
		case "openai":
			setData(m, "api_key", os.Getenv("OPENAI_API_KEY"))
			setData(m, "base_url", os.Getenv("OPENAI_BASE_URL"))
		}
	}
	if strings.EqualFold(cfg.AI.Chat.Provider, "openai") {
		if v := os.Getenv("OPENAI_CHAT_MODEL"); v != "" {
			cfg.AI.Chat.Model = v
		}
	}
}

func setData(m *ModelConfig, key, value string) {
	if value == "" {
		return
	}
	if m.Data == nil {
		m.Data = map[string]interface{}{}
	}
	m.Data[key] = value
}
