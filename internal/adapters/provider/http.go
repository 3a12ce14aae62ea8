package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/shotcoach/internal/domain/coaching"
	"github.com/okian/shotcoach/internal/domain/model"
	"github.com/okian/shotcoach/pkg/metrics"
)

const (
	defaultTimeout   = 5 * time.Second
	defaultRateLimit = 2
	defaultBurst     = 1
	suggestionsPath  = "/v1/suggestions"
	maxResponseBytes = 1 << 20
)

// Config selects and configures the alternate provider.
type Config struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	RateLimit float64 // requests per second
}

// New returns an HTTPProvider when a base URL is configured, else a Stub.
func New(cfg Config) coaching.Provider {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return Stub{}
	}
	return NewHTTPProvider(cfg)
}

// HTTPProvider asks a remote service for suggestions. Calls are rate limited and
// never retried; a failure is returned to the caller, who falls back to rules.
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPProvider creates an HTTP alternate provider.
func NewHTTPProvider(cfg Config) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	return &HTTPProvider{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(limit), defaultBurst),
	}
}

type suggestRequest struct {
	Shot       model.ShotInput         `json:"shot"`
	Extraction model.ExtractionSummary `json:"extraction"`
	Roast      model.RoastLevel        `json:"roast"`
}

type suggestResponse struct {
	Suggestions []model.Suggestion `json:"suggestions"`
}

// Suggest implements coaching.Provider.
func (p *HTTPProvider) Suggest(ctx context.Context, in model.ShotInput, summary model.ExtractionSummary) ([]model.Suggestion, error) {
	start := time.Now()
	out, err := p.suggest(ctx, in, summary)
	metrics.RecordProviderLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.RecordProviderRequest("http", "error")
		return nil, err
	}
	metrics.RecordProviderRequest("http", "ok")
	return out, nil
}

func (p *HTTPProvider) suggest(ctx context.Context, in model.ShotInput, summary model.ExtractionSummary) ([]model.Suggestion, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(suggestRequest{Shot: in, Extraction: summary, Roast: in.Roast})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+suggestionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrProviderUnavailable, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded suggestResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}

	out := make([]model.Suggestion, 0, len(decoded.Suggestions))
	for _, s := range decoded.Suggestions {
		if !s.Valid() {
			continue
		}
		s.Source = model.SourceAI
		out = append(out, s)
	}
	return out, nil
}
