// Package config provides configuration for the sauna backend.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Mode values accepted by LLM_PROVIDER, EMBEDDING_PROVIDER and MODEL_PROVIDER.
const (
	ProviderMock      = "mock"
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	ModelBaseline = "baseline"
	ModelRemote   = "remote"
	ModelNone     = "none"

	IndexMemory = "memory"
	IndexMongo  = "mongo"

	AuthFirebase = "firebase"
	AuthHMAC     = "hmac"
	AuthDisabled = "disabled"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8000"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Database: "memory", a postgres:// URL or a SQLite DSN
	DatabaseURL string `env:"DATABASE_URL" envDefault:"file:harvia.db?cache=shared&mode=rwc"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Answer generation
	LLMProvider       string        `env:"LLM_PROVIDER" envDefault:"ollama"`
	LLMBaseURL        string        `env:"LLM_BASE_URL"`
	LLMAPIKey         string        `env:"LLM_API_KEY"`
	ChatModel         string        `env:"CHAT_MODEL" envDefault:"llama3.1"`
	EmbeddingProvider string        `env:"EMBEDDING_PROVIDER" envDefault:"ollama"`
	EmbeddingModel    string        `env:"EMBEDDING_MODEL" envDefault:"nomic-embed-text"`
	EmbeddingBaseURL  string        `env:"EMBEDDING_BASE_URL"`
	Temperature       float64       `env:"LLM_TEMPERATURE" envDefault:"0.2"`
	MaxTokens         int           `env:"LLM_MAX_TOKENS" envDefault:"1024"`
	LLMTimeout        time.Duration `env:"LLM_TIMEOUT" envDefault:"120s"`

	// Retrieval
	CorpusDir    string `env:"CORPUS_DIR" envDefault:"data/corpus"`
	IndexBackend string `env:"INDEX_BACKEND" envDefault:"memory"`
	RetrievalK   int    `env:"RETRIEVAL_K" envDefault:"4"`
	ChunkSize    int    `env:"CHUNK_SIZE" envDefault:"800"`
	ChunkOverlap int    `env:"CHUNK_OVERLAP" envDefault:"100"`
	HistoryTurns int    `env:"HISTORY_TURNS" envDefault:"10"`

	// Chat sessions
	QuestionMaxLength       int           `env:"QUESTION_MAX_LENGTH" envDefault:"2000"`
	StreamIdleTimeout       time.Duration `env:"STREAM_IDLE_TIMEOUT" envDefault:"60s"`
	StreamHeartbeatInterval time.Duration `env:"STREAM_HEARTBEAT_INTERVAL" envDefault:"15s"`

	// Document database
	MongoURI          string `env:"MONGO_URI"`
	MongoDatabase     string `env:"MONGO_DATABASE" envDefault:"harvia"`
	ProfileCollection string `env:"PROFILE_COLLECTION" envDefault:"users"`
	ChunkCollection   string `env:"CHUNK_COLLECTION" envDefault:"chunks"`
	VectorIndexName   string `env:"VECTOR_INDEX_NAME" envDefault:"chunk_embedding_index"`

	// Authentication
	AuthMode          string `env:"AUTH_MODE" envDefault:"firebase"`
	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`
	AuthJWTSecret     string `env:"AUTH_JWT_SECRET"`

	// Object storage
	StorageBucket   string `env:"STORAGE_BUCKET"`
	CredentialsFile string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	MaxImageBytes   int64  `env:"MAX_IMAGE_BYTES" envDefault:"10485760"`

	// Recommendation model
	ModelProvider string        `env:"MODEL_PROVIDER" envDefault:"baseline"`
	ModelURL      string        `env:"MODEL_URL"`
	ModelTimeout  time.Duration `env:"MODEL_TIMEOUT" envDefault:"10s"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	switch c.AuthMode {
	case AuthFirebase:
		if c.FirebaseProjectID == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required when AUTH_MODE=%s", AuthFirebase)
		}
	case AuthHMAC:
		if c.AuthJWTSecret == "" {
			return fmt.Errorf("AUTH_JWT_SECRET is required when AUTH_MODE=%s", AuthHMAC)
		}
	case AuthDisabled:
	default:
		return fmt.Errorf("unknown AUTH_MODE %q", c.AuthMode)
	}

	if c.IndexBackend == IndexMongo && c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required when INDEX_BACKEND=%s", IndexMongo)
	}
	if c.ModelProvider == ModelRemote && c.ModelURL == "" {
		return fmt.Errorf("MODEL_URL is required when MODEL_PROVIDER=%s", ModelRemote)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

// IsMock reports whether generation runs against the deterministic mock client.
func (c *Config) IsMock() bool {
	return strings.EqualFold(c.LLMProvider, ProviderMock)
}
