package fetcher

import (
	"log/slog"
	"time"

	"resty.dev/v3"
)

// NewHTTPClient creates a new HTTP client for a quote API.
// A zero timeout means requests never time out. Failed requests are not retried.
func NewHTTPClient(baseURL string, timeout time.Duration) *resty.Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout).
		AddResponseMiddleware(logResponse)

	return client
}

// logResponse logs each completed request for observability
func logResponse(_ *resty.Client, r *resty.Response) error {
	slog.Debug("quote request completed",
		"url", r.Request.URL,
		"status_code", r.StatusCode(),
		"duration", r.Duration())
	return nil
}
