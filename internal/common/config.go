package common

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Extractor ExtractorConfig
	LLM       LLMConfig
	Storage   StorageConfig
	Mail      MailConfig
	Ingest    IngestConfig
	Log       LogConfig
}

// DatabaseConfig holds record store configuration
type DatabaseConfig struct {
	Driver           string // "postgres" | "sqlite"
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds listener addresses
type ServerConfig struct {
	HTTPAddr string
	GRPCAddr string
}

// ExtractorConfig selects and tunes the page extractor
type ExtractorConfig struct {
	Backend        string // "pdftotext" | "unipdf"
	Pdftotext      string
	Pdfinfo        string
	UnidocLicense  string
	CommandTimeout time.Duration
}

// LLMConfig holds text-comprehension oracle configuration
type LLMConfig struct {
	BaseURL       string
	APIKey        string
	Model         string
	SegmentModel  string
	Temperature   float32
	Timeout       time.Duration
	MaxInputChars int
}

// StorageConfig holds object store configuration
type StorageConfig struct {
	Backend     string // "fs" | "s3"
	Dir         string
	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool
	S3Region    string
}

// MailConfig holds SMTP notification settings
type MailConfig struct {
	Server        string
	Port          int
	Username      string
	Password      string
	From          string
	SubjectPrefix string
	Workers       int
	QueueSize     int
	SendTimeout   time.Duration
}

// Enabled reports whether enough SMTP settings are present to send mail.
func (m MailConfig) Enabled() bool {
	return m.Server != "" && m.From != ""
}

// IngestConfig holds workflow behaviour
type IngestConfig struct {
	Timeout       time.Duration
	Segmenter     string // "oracle" | "anchors" | "none"
	InboxDir      string // optional drop folder, {dir}/{regulation-id}/*.pdf
	InboxDebounce time.Duration
	InboxRescan   time.Duration
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string // "text" | "json"
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	smtpUser := getEnv("SMTP_USER", "")
	return &Config{
		Database: DatabaseConfig{
			Driver:           strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			DSN:              getEnv("DB_URL", "file:fineprint.db?_pragma=busy_timeout(5000)"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":9000"),
			GRPCAddr: getEnv("GRPC_ADDR", ":9001"),
		},
		Extractor: ExtractorConfig{
			Backend:        strings.ToLower(getEnv("EXTRACTOR_BACKEND", "pdftotext")),
			Pdftotext:      getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdfinfo:        getEnv("PDFINFO_BIN", "pdfinfo"),
			UnidocLicense:  getEnv("UNIDOC_LICENSE_API_KEY", ""),
			CommandTimeout: getEnvAsDuration("EXTRACTOR_TIMEOUT", time.Minute),
		},
		LLM: LLMConfig{
			BaseURL:       getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			APIKey:        getEnv("LLM_API_KEY", getEnv("OPENAI_API_KEY", "")),
			Model:         getEnv("LLM_MODEL", "gpt-4o-mini"),
			SegmentModel:  getEnv("LLM_SEGMENT_MODEL", ""),
			Temperature:   getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:       getEnvAsDuration("LLM_TIMEOUT", 120*time.Second),
			MaxInputChars: getEnvAsInt("LLM_MAX_INPUT_CHARS", 120_000),
		},
		Storage: StorageConfig{
			Backend:     strings.ToLower(getEnv("STORAGE_BACKEND", "fs")),
			Dir:         getEnv("STORAGE_DIR", "./uploads"),
			S3Endpoint:  getEnv("S3_ENDPOINT", ""),
			S3Bucket:    getEnv("S3_BUCKET", ""),
			S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
			S3SecretKey: getEnv("S3_SECRET_KEY", ""),
			S3UseSSL:    getEnvAsBool("S3_USE_SSL", true),
			S3Region:    getEnv("S3_REGION", "us-east-1"),
		},
		Mail: MailConfig{
			Server:        getEnv("SMTP_SERVER", ""),
			Port:          getEnvAsInt("SMTP_PORT", 587),
			Username:      smtpUser,
			Password:      getEnv("SMTP_PASSWORD", ""),
			From:          getEnv("SMTP_FROM", smtpUser),
			SubjectPrefix: getEnv("MAIL_SUBJECT_PREFIX", "Fineprint Finder"),
			Workers:       getEnvAsInt("MAIL_WORKERS", 2),
			QueueSize:     getEnvAsInt("MAIL_QUEUE_SIZE", 64),
			SendTimeout:   getEnvAsDuration("MAIL_SEND_TIMEOUT", 30*time.Second),
		},
		Ingest: IngestConfig{
			Timeout:       getEnvAsDuration("INGEST_TIMEOUT", 5*time.Minute),
			Segmenter:     strings.ToLower(getEnv("SEGMENTER", "oracle")),
			InboxDir:      getEnv("INBOX_DIR", ""),
			InboxDebounce: getEnvAsDuration("INBOX_DEBOUNCE", 2*time.Second),
			InboxRescan:   getEnvAsDuration("INBOX_RESCAN", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
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

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return NewAppError(CodeConfig, "DB_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	if c.Database.DSN == "" {
		return NewAppError(CodeConfig, "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError(CodeConfig, "HTTP_ADDR is required", ErrInvalidInput)
	}
	switch c.Extractor.Backend {
	case "pdftotext", "unipdf":
	default:
		return NewAppError(CodeConfig, "EXTRACTOR_BACKEND must be pdftotext or unipdf", ErrInvalidInput)
	}
	switch c.Ingest.Segmenter {
	case "oracle", "anchors", "none":
	default:
		return NewAppError(CodeConfig, "SEGMENTER must be oracle, anchors or none", ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return NewAppError(CodeConfig, "LLM_API_KEY (or OPENAI_API_KEY) is required", ErrInvalidInput)
	}
	switch c.Storage.Backend {
	case "fs":
		if c.Storage.Dir == "" {
			return NewAppError(CodeConfig, "STORAGE_DIR is required for the fs backend", ErrInvalidInput)
		}
	case "s3":
		if c.Storage.S3Endpoint == "" || c.Storage.S3Bucket == "" {
			return NewAppError(CodeConfig, "S3_ENDPOINT and S3_BUCKET are required for the s3 backend", ErrInvalidInput)
		}
	default:
		return NewAppError(CodeConfig, "STORAGE_BACKEND must be fs or s3", ErrInvalidInput)
	}
	return nil
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
