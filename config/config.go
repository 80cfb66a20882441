// Package config loads runtime settings from a config file and
// environment variables. Environment variables use the DEEPRESEARCH_
// prefix (DEEPRESEARCH_SERVER_ADDR); the OpenAI, Tavily, and Brave API
// keys are also read from their conventional unprefixed variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"github.com/smallnest/deepresearch/research"
)

// Settings holds everything the CLI and server need to assemble a
// research pipeline.
type Settings struct {
	// Model
	OpenAIAPIKey   string  `mapstructure:"openai_api_key"`
	OpenAIBaseURL  string  `mapstructure:"openai_base_url"`
	Model          string  `mapstructure:"model"`
	EmbeddingModel string  `mapstructure:"embedding_model"`
	Temperature    float64 `mapstructure:"temperature"`

	// Search
	SearchProvider     string `mapstructure:"search_provider"` // tavily or brave
	TavilyAPIKey       string `mapstructure:"tavily_api_key"`
	BraveAPIKey        string `mapstructure:"brave_api_key"`
	NumQueries         int    `mapstructure:"num_queries"`
	MaxResultsPerQuery int    `mapstructure:"max_results_per_query"`
	SearchWorkers      int    `mapstructure:"search_workers"`

	// Ingestion and retrieval
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
	TopK         int    `mapstructure:"top_k"`
	VectorBackend string `mapstructure:"vector_backend"` // memory or sqlite
	VectorPath    string `mapstructure:"vector_path"`

	// Workflow
	MaxIterations     int  `mapstructure:"max_iterations"`
	SkipClarification bool `mapstructure:"skip_clarification"`

	// Checkpoints
	CheckpointBackend string `mapstructure:"checkpoint_backend"` // memory, sqlite, redis, postgres
	CheckpointPath    string `mapstructure:"checkpoint_path"`
	RedisAddr         string `mapstructure:"redis_addr"`
	PostgresDSN       string `mapstructure:"postgres_dsn"`

	// Server
	ServerAddr string `mapstructure:"server_addr"`

	// Logging
	LogLevel   string `mapstructure:"log_level"`
	LogBackend string `mapstructure:"log_backend"` // stdlib or golog
}

// Load reads settings from the optional config file at path (YAML, TOML,
// or JSON by extension) and the environment. An empty path skips the file
// and uses environment variables and defaults only.
func Load(path string) (*Settings, error) {
	v := viper.New()

	// Empty-string defaults register the keys so AutomaticEnv can fill
	// them during Unmarshal.
	v.SetDefault("openai_api_key", "")
	v.SetDefault("tavily_api_key", "")
	v.SetDefault("brave_api_key", "")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("openai_base_url", "")
	v.SetDefault("model", "gpt-4o-mini")
	v.SetDefault("embedding_model", "text-embedding-3-small")
	v.SetDefault("temperature", 0.3)
	v.SetDefault("search_provider", "tavily")
	v.SetDefault("num_queries", 5)
	v.SetDefault("max_results_per_query", 20)
	v.SetDefault("search_workers", 5)
	v.SetDefault("chunk_size", 1000)
	v.SetDefault("chunk_overlap", 200)
	v.SetDefault("top_k", 15)
	v.SetDefault("vector_backend", "memory")
	v.SetDefault("vector_path", "deepresearch_vectors.db")
	v.SetDefault("max_iterations", research.DefaultMaxIterations)
	v.SetDefault("skip_clarification", false)
	v.SetDefault("checkpoint_backend", "memory")
	v.SetDefault("checkpoint_path", "deepresearch_runs.db")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_backend", "stdlib")

	v.SetEnvPrefix("DEEPRESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Conventional unprefixed variables win over nothing, lose to explicit
	// config.
	if s.OpenAIAPIKey == "" {
		s.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if s.TavilyAPIKey == "" {
		s.TavilyAPIKey = os.Getenv("TAVILY_API_KEY")
	}
	if s.BraveAPIKey == "" {
		s.BraveAPIKey = os.Getenv("BRAVE_API_KEY")
	}

	return &s, nil
}

// Validate checks that the settings are usable for a real run.
func (s *Settings) Validate() error {
	if s.OpenAIAPIKey == "" {
		return fmt.Errorf("openai api key not set (OPENAI_API_KEY)")
	}
	switch s.SearchProvider {
	case "tavily":
		if s.TavilyAPIKey == "" {
			return fmt.Errorf("tavily api key not set (TAVILY_API_KEY)")
		}
	case "brave":
		if s.BraveAPIKey == "" {
			return fmt.Errorf("brave api key not set (BRAVE_API_KEY)")
		}
	default:
		return fmt.Errorf("unknown search provider %q (want tavily or brave)", s.SearchProvider)
	}
	if s.ChunkOverlap >= s.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", s.ChunkOverlap, s.ChunkSize)
	}
	return nil
}
