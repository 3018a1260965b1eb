package calls

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wahealthh/recall-product-backend/internal/platform/metrics"
)

// registryTimeout bounds the due-patient fetch regardless of the client's
// own timeout.
const registryTimeout = 10 * time.Second

// DueSource lists patients due for recall. *Registry satisfies it.
type DueSource interface {
	DuePatients(ctx context.Context) ([]json.RawMessage, error)
}

// Registry reads due patients from the external patient registry.
type Registry struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  zerolog.Logger
}

func NewRegistry(baseURL, apiKey string, hc *http.Client, logger zerolog.Logger) *Registry {
	if hc == nil {
		hc = &http.Client{Timeout: registryTimeout}
	}
	return &Registry{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    hc,
		logger:  logger,
	}
}

// DuePatients returns the registry's records unchanged. Any transport
// failure or non-2xx status is an error.
func (r *Registry) DuePatients(ctx context.Context) ([]json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, registryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/recall_patients", nil)
	if err != nil {
		return nil, fmt.Errorf("build registry request: %w", err)
	}
	req.Header.Set("x-api-key", r.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := r.http.Do(req)
	if err != nil {
		metrics.ObserveUpstream("registry", "due_patients", 0, start)
		r.logger.Warn().Err(err).Msg("registry request failed")
		return nil, err
	}
	defer resp.Body.Close()
	metrics.ObserveUpstream("registry", "due_patients", resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%d %s for url %s", resp.StatusCode, http.StatusText(resp.StatusCode), req.URL.Redacted())
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read registry response: %w", err)
	}
	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode registry response: %w", err)
	}
	return records, nil
}
