package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/speedwagon-io/xrgimon/internal/auth"
	"github.com/speedwagon-io/xrgimon/internal/model"
	"github.com/speedwagon-io/xrgimon/internal/reports"
	"github.com/speedwagon-io/xrgimon/internal/window"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-ID"

// XRGIAPIAdapter talks to the XRGI service API: per-device telemetry
// queries, the event log and the service report list.
type XRGIAPIAdapter struct {
	log     *slog.Logger
	baseURL string
	client  *http.Client
	tokens  auth.TokenSource
	limiter *rate.Limiter
}

// NewXRGIAPIAdapter builds the adapter. A nil limiter means no client side
// rate limit, a nil token source sends no Authorization header.
func NewXRGIAPIAdapter(log *slog.Logger, baseURL string, timeout time.Duration, tokens auth.TokenSource, limiter *rate.Limiter) *XRGIAPIAdapter {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if tokens == nil {
		tokens = auth.NewStaticToken("")
	}
	return &XRGIAPIAdapter{
		log:     log,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		tokens:  tokens,
		limiter: limiter,
	}
}

func (a *XRGIAPIAdapter) Name() string {
	return "xrgi_api"
}

func (a *XRGIAPIAdapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

// Fetch runs GET <base>/<deviceId>/<start>/<end>.
func (a *XRGIAPIAdapter) Fetch(ctx context.Context, deviceID string, w window.TimeWindow) (model.Telemetry, error) {
	start, end := w.Encode()
	path := fmt.Sprintf("/%s/%s/%s", url.PathEscape(deviceID), start, end)

	body, err := a.get(ctx, path)
	if err != nil {
		return nil, err
	}

	// Devices without readings in the window answer with an empty body or null.
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		a.log.Debug("no telemetry in window",
			slog.String("device_id", deviceID),
			slog.String("start", start),
			slog.String("end", end),
		)
		return model.Telemetry{}, nil
	}

	var raw model.Telemetry
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal telemetry: %w", err)
	}

	return raw, nil
}

func (a *XRGIAPIAdapter) Records(ctx context.Context) ([]model.EventRecord, error) {
	body, err := a.get(ctx, "/events")
	if err != nil {
		return nil, err
	}

	var records []model.EventRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event log: %w", err)
	}

	return records, nil
}

func (a *XRGIAPIAdapter) Reports(ctx context.Context, deviceID string) ([]reports.Report, error) {
	body, err := a.get(ctx, fmt.Sprintf("/%s/reports", url.PathEscape(deviceID)))
	if err != nil {
		return nil, err
	}

	var list []reports.Report
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reports: %w", err)
	}

	return list, nil
}

func (a *XRGIAPIAdapter) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("upstream unhealthy: status %d", resp.StatusCode)
	}

	return nil
}

func (a *XRGIAPIAdapter) get(ctx context.Context, path string) ([]byte, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	token, err := a.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	a.log.Debug("upstream request",
		slog.String("path", path),
		slog.String("request_id", requestID),
		slog.Int("status", resp.StatusCode),
		slog.Duration("took", time.Since(started)),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return body, nil
}

type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status code: %d", e.Code)
	}
	return fmt.Sprintf("unexpected status code %d: %s", e.Code, e.Body)
}
