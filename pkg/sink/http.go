package sink

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Combine-Capital/reqlog/pkg/config"
	"github.com/Combine-Capital/reqlog/pkg/errors"
	"golang.org/x/time/rate"
	"resty.dev/v3"
)

// NDJSONContentType is the content type of records posted by HTTPSink.
const NDJSONContentType = "application/x-ndjson"

// HTTPSink posts each record to a log collector endpoint.
type HTTPSink struct {
	client  *resty.Client
	cfg     config.HTTPSinkConfig
	limiter *rate.Limiter
}

// NewHTTP creates a sink posting to cfg.URL. No request is made until the
// first Write.
func NewHTTP(cfg config.HTTPSinkConfig) (*HTTPSink, error) {
	if cfg.URL == "" {
		return nil, errors.NewInvalidInput("sink.http.url", "url is required")
	}
	if cfg.RateLimit < 0 {
		return nil, errors.NewInvalidInput("sink.http.rate_limit", "must be non-negative")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RateLimit > 0 && cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}

	client := resty.New().SetTimeout(cfg.Timeout)
	if len(cfg.Headers) > 0 {
		client.SetHeaders(cfg.Headers)
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	return &HTTPSink{client: client, cfg: cfg, limiter: limiter}, nil
}

// Write posts line as a single NDJSON document. Any status outside 2xx is a
// failed write.
func (s *HTTPSink) Write(ctx context.Context, line []byte) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return errors.NewTemporary("rate limit wait failed", err)
		}
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", NDJSONContentType).
		SetBody(line).
		Post(s.cfg.URL)
	if err != nil {
		return errors.NewTemporary("failed to post access record", err)
	}

	code := resp.StatusCode()
	switch {
	case code >= http.StatusOK && code < http.StatusMultipleChoices:
		return nil
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		return errors.NewTemporary(fmt.Sprintf("collector responded with status %d", code), nil)
	default:
		return errors.NewPermanent(fmt.Sprintf("collector rejected access record with status %d", code), nil)
	}
}

// Close releases the client's idle connections.
func (s *HTTPSink) Close() error {
	s.client.Close()
	return nil
}

func (s *HTTPSink) String() string {
	return "http:" + s.cfg.URL
}
