package gemini

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Config for the Gemini client.
type Config struct {
	APIKey               string        // if empty, falls back to env GOOGLE_API_KEY
	BaseURL              string        // default https://generativelanguage.googleapis.com
	Model                string        // e.g., "gemini-2.5-flash"
	Timeout              time.Duration // http client timeout
	BasicsThinkingBudget int           // small budget for the low-latency basics stage
	ItemsThinkingBudget  int           // larger budget for the line-item table
}

// Client talks to the Gemini file and generateContent endpoints. One client
// is constructed per process and shared across all calls; it holds no
// per-call state.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// ErrMissingAPIKey means no API key was configured or found in the
// environment. Nothing can be extracted without it, so callers treat this as
// fatal for the whole batch rather than per-file.
var ErrMissingAPIKey = errors.New("gemini: missing API key (set GOOGLE_API_KEY)")

// NewClient builds a Client. A nil httpClient gets a default one with the
// configured timeout; passing one in lets the process own its lifetime.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GOOGLE_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		if v := os.Getenv("GEMINI_BASE_URL"); v != "" {
			cfg.BaseURL = v
		} else {
			cfg.BaseURL = "https://generativelanguage.googleapis.com"
		}
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.BasicsThinkingBudget <= 0 {
		cfg.BasicsThinkingBudget = 128
	}
	if cfg.ItemsThinkingBudget <= 0 {
		cfg.ItemsThinkingBudget = 2048
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		logger: logger,
	}, nil
}
