package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Storage    StorageConfig
	Assembly   AssemblyAIConfig
	Editor     EditorConfig
	Transcript TranscriptConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	Environment     string        `envconfig:"ENVIRONMENT" default:"development"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host        string `envconfig:"DB_HOST" default:"localhost"`
	Port        string `envconfig:"DB_PORT" default:"5432"`
	User        string `envconfig:"DB_USER" default:"postgres"`
	Password    string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name        string `envconfig:"DB_NAME" default:"notetaker"`
	SSLMode     string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns    int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns    int    `envconfig:"DB_MIN_CONNS" default:"5"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`
	Migrations  string `envconfig:"DB_MIGRATIONS_DIR" default:"migrations"`
}

// RedisConfig holds Redis configuration. An empty host keeps presigned
// URLs in process memory.
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     string `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Endpoint        string        `envconfig:"STORAGE_ENDPOINT" default:"localhost:9000"`
	AccessKeyID     string        `envconfig:"STORAGE_ACCESS_KEY" default:"minioadmin"`
	SecretAccessKey string        `envconfig:"STORAGE_SECRET_KEY" default:"minioadmin"`
	BucketName      string        `envconfig:"STORAGE_BUCKET" default:"notetaker"`
	Region          string        `envconfig:"STORAGE_REGION" default:"us-east-1"`
	UseSSL          bool          `envconfig:"STORAGE_USE_SSL" default:"false"`
	PublicURL       string        `envconfig:"STORAGE_PUBLIC_URL"`
	PresignExpiry   time.Duration `envconfig:"STORAGE_PRESIGN_EXPIRY" default:"1h"`
}

// AssemblyAIConfig holds transcription service configuration
type AssemblyAIConfig struct {
	APIKey        string        `envconfig:"ASSEMBLYAI_API_KEY"`
	BaseURL       string        `envconfig:"ASSEMBLYAI_BASE_URL"`
	WebhookURL    string        `envconfig:"ASSEMBLYAI_WEBHOOK_URL"`
	WebhookSecret string        `envconfig:"ASSEMBLYAI_WEBHOOK_SECRET"`
	Language      string        `envconfig:"ASSEMBLYAI_LANGUAGE"`
	PollInterval  time.Duration `envconfig:"ASSEMBLYAI_POLL_INTERVAL" default:"5s"`
}

// EditorConfig holds document engine settings
type EditorConfig struct {
	HistoryLimit  int    `envconfig:"EDITOR_HISTORY_LIMIT" default:"100"`
	CaptionSyntax string `envconfig:"EDITOR_CAPTION_SYNTAX" default:"inline"`
}

// TranscriptConfig holds transcript view settings
type TranscriptConfig struct {
	GapThreshold time.Duration `envconfig:"TRANSCRIPT_GAP_THRESHOLD" default:"2s"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Editor.HistoryLimit < 1 {
		return fmt.Errorf("EDITOR_HISTORY_LIMIT must be positive")
	}
	switch c.Editor.CaptionSyntax {
	case "inline", "comment":
	default:
		return fmt.Errorf("EDITOR_CAPTION_SYNTAX must be inline or comment, got %q", c.Editor.CaptionSyntax)
	}
	if c.Transcript.GapThreshold <= 0 {
		return fmt.Errorf("TRANSCRIPT_GAP_THRESHOLD must be positive")
	}
	if c.Storage.PresignExpiry <= 0 {
		return fmt.Errorf("STORAGE_PRESIGN_EXPIRY must be positive")
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
