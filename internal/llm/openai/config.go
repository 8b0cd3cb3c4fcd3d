package openai

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/metrics"
)

// Config for an OpenAI-compatible chat/completions provider.
type Config struct {
	APIKey       string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL      string        // default https://api.openai.com/v1
	Model        string        // comparison model, e.g. "gpt-4o-mini" or "sonar"
	SegmentModel string        // segmentation model; defaults to Model
	Temperature  float32       // 0..2
	Timeout      time.Duration // per request
}

// ConfigFromCommon maps the application LLM settings onto a client config.
func ConfigFromCommon(c common.LLMConfig) Config {
	return Config{
		APIKey:       c.APIKey,
		BaseURL:      c.BaseURL,
		Model:        c.Model,
		SegmentModel: c.SegmentModel,
		Temperature:  c.Temperature,
		Timeout:      c.Timeout,
	}
}

// Client implements llm.Oracle over chat/completions.
type Client struct {
	cfg     Config
	http    *http.Client
	metrics *metrics.Metrics
	log     *slog.Logger
}

func NewClient(cfg Config, m *metrics.Metrics, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.SegmentModel == "" {
		cfg.SegmentModel = cfg.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		metrics: m,
		log:     logger,
	}
}
