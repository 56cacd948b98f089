package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Store    StoreConfig
	Extract  ExtractConfig
	LLM      LLMConfig
	Jobs     JobsConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
}

// StoreConfig holds document store configuration
type StoreConfig struct {
	RootDir string
	Prefix  string
}

// ExtractConfig holds extraction cascade configuration
type ExtractConfig struct {
	Ghostscript    string
	Pdftoppm       string
	Tesseract      string
	DPI            int
	CommandTimeout time.Duration

	// Cloud OCR
	OCREndpoint string
	OCRAPIKey   string
	OCRMaxBytes int64
	OCRMaxPages int

	WorkDir string
}

// LLMConfig holds language-model extraction configuration
type LLMConfig struct {
	APIKey        string
	Model         string
	MaxTokens     int
	Timeout       time.Duration
	MaxPages      int           // page ceiling for document blocks; above it we chunk
	BaseDelay     time.Duration // backoff base for transient failures
	MaxRetries    int
	ChunkDelay    time.Duration // pause between chunk calls
	DocumentDelay time.Duration // pause between documents in a job
}

// JobsConfig holds job run tracking configuration
type JobsConfig struct {
	ProjectOrigin string
	StaleAfter    time.Duration
	RunInterval   time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
		},
		Store: StoreConfig{
			RootDir: getEnv("FILINGS_DIR", "./filings"),
			Prefix:  getEnv("FILINGS_PREFIX", ""),
		},
		Extract: ExtractConfig{
			Ghostscript:    getEnv("GHOSTSCRIPT_BIN", "gs"),
			Pdftoppm:       getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:      getEnv("TESSERACT_BIN", "tesseract"),
			DPI:            getEnvAsInt("OCR_DPI", 300),
			CommandTimeout: getEnvAsDuration("COMMAND_TIMEOUT", 5*time.Minute),
			OCREndpoint:    getEnv("OCR_ENDPOINT", ""),
			OCRAPIKey:      getEnv("OCR_API_KEY", ""),
			OCRMaxBytes:    int64(getEnvAsInt("OCR_MAX_BYTES", 10<<20)),
			OCRMaxPages:    getEnvAsInt("OCR_MAX_PAGES", 0),
			WorkDir:        getEnv("EXTRACT_WORK_DIR", "./tmp"),
		},
		LLM: LLMConfig{
			APIKey:        getEnv("ANTHROPIC_API_KEY", ""),
			Model:         getEnv("ANTHROPIC_MODEL", ""),
			MaxTokens:     getEnvAsInt("ANTHROPIC_MAX_TOKENS", 8192),
			Timeout:       getEnvAsDuration("ANTHROPIC_TIMEOUT", 120*time.Second),
			MaxPages:      getEnvAsInt("LLM_MAX_PAGES", 100),
			BaseDelay:     getEnvAsDuration("LLM_BASE_DELAY", 2*time.Second),
			MaxRetries:    getEnvAsInt("LLM_MAX_RETRIES", 3),
			ChunkDelay:    getEnvAsDuration("LLM_CHUNK_DELAY", 3*time.Second),
			DocumentDelay: getEnvAsDuration("LLM_DOCUMENT_DELAY", 3*time.Second),
		},
		Jobs: JobsConfig{
			ProjectOrigin: getEnv("PROJECT_ORIGIN", "OCD_CBT"),
			StaleAfter:    getEnvAsDuration("JOB_STALE_AFTER", 24*time.Hour),
			RunInterval:   getEnvAsDuration("JOB_RUN_INTERVAL", 6*time.Hour),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	validator := NewValidator()
	validator.Field("DB_URL", c.Database.DSN, Required)
	validator.Field("ANTHROPIC_API_KEY", c.LLM.APIKey, Required)
	validator.Field("PROJECT_ORIGIN", c.Jobs.ProjectOrigin, Required,
		func(field string, value interface{}) *ValidationError {
			// the origin is embedded in every job id and contact row
			return MaxLength(field, value, 64)
		})

	if validator.HasErrors() {
		return NewAppError("CONFIG_ERROR", validator.ErrorMessage(), ErrValidation)
	}
	return nil
}
