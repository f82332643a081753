package source

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/helixdata/mdkit/logger"
	"github.com/helixdata/mdkit/record"
)

// httpSource fetches JSON record arrays over HTTP GET with exponential
// backoff on transient failures.
type httpSource struct {
	logger     logger.Logger
	client     *http.Client
	headers    map[string]string
	maxRetries int
	retryDelay time.Duration
}

// NewHTTP creates an HTTP source client
func NewHTTP(log logger.Logger, cfg *HTTPConfig) (Source, error) {
	cfg = cfg.MergeDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &httpSource{
		logger:     log,
		client:     &http.Client{Timeout: cfg.Timeout},
		headers:    cfg.Headers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

func (s *httpSource) Fetch(ctx context.Context, endpoint string) ([]record.Record, string, error) {
	var lastErr error

	delay := s.retryDelay
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Warn("retrying fetch after backoff",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", delay),
			)
			select {
			case <-ctx.Done():
				return nil, "", ErrFetch(ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}

		records, version, err := s.fetchOnce(ctx, endpoint)
		if err == nil {
			s.logger.Debug("fetch completed",
				zap.String("endpoint", endpoint),
				zap.Int("records", len(records)),
				zap.String("version", version),
			)
			return records, version, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return nil, "", err
		}
	}
	return nil, "", lastErr
}

func (s *httpSource) fetchOnce(ctx context.Context, endpoint string) ([]record.Record, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", ErrInvalidEndpoint(endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", ErrFetch(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, "", &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", ErrFetch(err)
	}

	var records []record.Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, "", ErrDecode(err)
	}
	return records, resp.Header.Get(VersionHeader), nil
}

// isRetryable classifies fetch failures. Transport errors and server-side
// statuses (5xx, 429) retry; client errors and malformed bodies do not.
func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	var ue *url.Error
	return errors.As(err, &ue)
}
