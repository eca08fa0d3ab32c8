// Package config loads kbassist configuration from a TOML file,
// KBASSIST_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// KBASSIST_GENERATION_API_KEY overrides generation.api_key.
const EnvPrefix = "KBASSIST"

// Score thresholds used when vector.score_threshold is not set. Feature
// hashing vectors score far lower than model embeddings for related text,
// so the hashing provider gets a lower floor.
const (
	DefaultScoreThreshold = 0.7
	HashingScoreThreshold = 0.2
)

// DefaultScoreThresholdFor returns the threshold used for an embedding
// provider when none is configured.
func DefaultScoreThresholdFor(provider string) float64 {
	if provider == "hashing" || provider == "" {
		return HashingScoreThreshold
	}
	return DefaultScoreThreshold
}

// Config holds all application configuration.
type Config struct {
	DataDir    string           `mapstructure:"data_dir"`
	Log        LogConfig        `mapstructure:"log"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Rerank     RerankConfig     `mapstructure:"rerank"`
	Chunking   ChunkingConfig   `mapstructure:"chunking"`
	Vector     VectorConfig     `mapstructure:"vector"`
	Generation GenerationConfig `mapstructure:"generation"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type LogConfig struct {
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

type EmbeddingConfig struct {
	Provider  string        `mapstructure:"provider" validate:"oneof=openai ollama hashing none"`
	Model     string        `mapstructure:"model"`
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Dimension int           `mapstructure:"dimension" validate:"gt=0"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Cache     string        `mapstructure:"cache" validate:"oneof=memory redis none"`
	CacheSize int           `mapstructure:"cache_size" validate:"gte=0"`
}

type RerankConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type ChunkingConfig struct {
	Size    int `mapstructure:"size" validate:"gt=0"`
	Overlap int `mapstructure:"overlap" validate:"gte=0"`
}

type VectorConfig struct {
	Backend        string  `mapstructure:"backend" validate:"oneof=qdrant sqlite memory noop"`
	Host           string  `mapstructure:"host"`
	Port           int     `mapstructure:"port" validate:"gte=0,lte=65535"`
	Collection     string  `mapstructure:"collection" validate:"required"`
	ScoreThreshold float64 `mapstructure:"score_threshold" validate:"gte=-1,lte=1"`
}

type GenerationConfig struct {
	Endpoint           string        `mapstructure:"endpoint" validate:"required"`
	APIKey             string        `mapstructure:"api_key"`
	Model              string        `mapstructure:"model" validate:"required"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	StreamTimeout      time.Duration `mapstructure:"stream_timeout" validate:"gt=0"`
	MaxRetries         int           `mapstructure:"max_retries" validate:"gte=1"`
	RetryBackoff       time.Duration `mapstructure:"retry_backoff" validate:"gte=0"`
	FallbackSliceSize  int           `mapstructure:"fallback_slice_size" validate:"gt=0"`
	FallbackSliceDelay time.Duration `mapstructure:"fallback_slice_delay" validate:"gte=0"`
	RequestsPerSecond  float64       `mapstructure:"requests_per_second" validate:"gte=0"`
}

type RetrievalConfig struct {
	Limit         int  `mapstructure:"limit" validate:"gt=0"`
	OverFetch     int  `mapstructure:"over_fetch" validate:"gte=1"`
	ExcerptLength int  `mapstructure:"excerpt_length" validate:"gt=0"`
	ContextBudget int  `mapstructure:"context_budget" validate:"gt=0"`
	MinRemainder  int  `mapstructure:"min_remainder" validate:"gte=0"`
	Rerank        bool `mapstructure:"rerank"`
}

type ExtractionConfig struct {
	AllowedTypes         []string `mapstructure:"allowed_types" validate:"min=1,dive,oneof=pdf doc docx txt md"`
	TextFallbackEncoding string   `mapstructure:"text_fallback_encoding"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// DefaultPath returns ~/.kbassist/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".kbassist", "config.toml")
	}
	return filepath.Join(home, ".kbassist", "config.toml")
}

func setDefaults(v *viper.Viper) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	v.SetDefault("data_dir", filepath.Join(home, ".kbassist"))
	v.SetDefault("log.format", "text")

	v.SetDefault("embedding.provider", "hashing")
	v.SetDefault("embedding.model", "all-MiniLM-L6-v2")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.dimension", 384)
	v.SetDefault("embedding.timeout", 30*time.Second)
	v.SetDefault("embedding.cache", "memory")
	v.SetDefault("embedding.cache_size", 4096)

	v.SetDefault("rerank.enabled", false)
	v.SetDefault("rerank.model", "ms-marco-MiniLM-L-6-v2")
	v.SetDefault("rerank.base_url", "")
	v.SetDefault("rerank.api_key", "")
	v.SetDefault("rerank.timeout", 10*time.Second)

	v.SetDefault("chunking.size", 512)
	v.SetDefault("chunking.overlap", 50)

	v.SetDefault("vector.backend", "sqlite")
	v.SetDefault("vector.host", "localhost")
	v.SetDefault("vector.port", 6334)
	v.SetDefault("vector.collection", "documents")

	v.SetDefault("generation.endpoint", "https://api.openai.com/v1")
	v.SetDefault("generation.api_key", "")
	v.SetDefault("generation.model", "gpt-4o-mini")
	v.SetDefault("generation.request_timeout", 30*time.Second)
	v.SetDefault("generation.stream_timeout", 60*time.Second)
	v.SetDefault("generation.max_retries", 3)
	v.SetDefault("generation.retry_backoff", time.Second)
	v.SetDefault("generation.fallback_slice_size", 3)
	v.SetDefault("generation.fallback_slice_delay", 50*time.Millisecond)
	v.SetDefault("generation.requests_per_second", 0.0)

	v.SetDefault("retrieval.limit", 5)
	v.SetDefault("retrieval.over_fetch", 2)
	v.SetDefault("retrieval.excerpt_length", 500)
	v.SetDefault("retrieval.context_budget", 3000)
	v.SetDefault("retrieval.min_remainder", 100)
	v.SetDefault("retrieval.rerank", false)

	v.SetDefault("extraction.allowed_types", []string{"pdf", "doc", "docx", "txt", "md"})
	v.SetDefault("extraction.text_fallback_encoding", "gbk")

	v.SetDefault("redis.url", "")
	v.SetDefault("metrics.addr", ":9464")
}

// Default returns the built-in configuration without reading any file
// or environment variable.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	cfg.Vector.ScoreThreshold = DefaultScoreThresholdFor(cfg.Embedding.Provider)
	return &cfg
}

// Load reads configuration from file and environment.
// A missing file is not an error: defaults and environment still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// No default, so IsSet reports an explicit file or env value.
	_ = v.BindEnv("vector.score_threshold")

	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if !v.IsSet("vector.score_threshold") {
		cfg.Vector.ScoreThreshold = DefaultScoreThresholdFor(cfg.Embedding.Provider)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints. It returns an error describing
// every violated field.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("invalid config: chunking.overlap %d must be smaller than chunking.size %d",
			c.Chunking.Overlap, c.Chunking.Size)
	}
	return nil
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []string {
	var warnings []string

	if c.Generation.APIKey == "" {
		warnings = append(warnings, "generation.api_key is empty; answers will fall back to canned replies if the endpoint requires a key")
	}
	if c.Embedding.Provider == "openai" && c.Embedding.APIKey == "" {
		warnings = append(warnings, "embedding provider 'openai' is configured but embedding.api_key is empty")
	}
	if c.Embedding.Cache == "redis" && c.Redis.URL == "" {
		warnings = append(warnings, "embedding.cache is 'redis' but redis.url is empty; caching is disabled")
	}
	if (c.Rerank.Enabled || c.Retrieval.Rerank) && c.Rerank.BaseURL == "" {
		warnings = append(warnings, "reranking is enabled but rerank.base_url is empty; original order is kept")
	}
	if (c.Embedding.Provider == "hashing" || c.Embedding.Provider == "") && c.Vector.ScoreThreshold > 0.5 {
		warnings = append(warnings, fmt.Sprintf(
			"vector.score_threshold %.2f is high for the hashing embedder; most queries will retrieve nothing (try %.1f)",
			c.Vector.ScoreThreshold, HashingScoreThreshold))
	}
	if c.Vector.Backend == "noop" {
		warnings = append(warnings, "vector.backend is 'noop'; retrieval always returns no results")
	}

	return warnings
}

// InMemory as DataDir keeps documents and vectors in process memory.
// Nothing is written to disk and everything is lost on exit.
const InMemory = ":memory:"

// Ephemeral reports whether DataDir is InMemory.
func (c *Config) Ephemeral() bool {
	return c.DataDir == InMemory
}

// DatabasePath returns the SQLite database location inside DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "kbassist.db")
}

// PromptsPath returns the prompt override directory inside DataDir.
func (c *Config) PromptsPath() string {
	return filepath.Join(c.DataDir, "prompts")
}
