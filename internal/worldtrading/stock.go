package worldtrading

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"resty.dev/v3"

	"stockranker/internal/fetcher"
	"stockranker/internal/ratelimit"
)

// DefaultBaseURL is the production stock endpoint
const DefaultBaseURL = "https://www.worldtradingdata.com/api/v1/stock"

// StockResponse represents the API response for a batch of stock quotes.
// An empty or absent Data field means the API had nothing for the batch.
type StockResponse struct {
	Data []StockRecord `json:"data"`
}

// StockRecord is one entry of StockResponse.Data
type StockRecord struct {
	Symbol         string `json:"symbol"`
	CloseYesterday Price  `json:"close_yesterday"`
	PriceOpen      Price  `json:"price_open"`
}

// StockClient fetches stock prices for groups of symbols
type StockClient struct {
	apiKey  string
	client  *resty.Client
	limiter *ratelimit.Limiter
}

// Option configures a StockClient
type Option func(*StockClient)

// WithLimiter paces requests through l
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *StockClient) {
		c.limiter = l
	}
}

// WithTimeout bounds each request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *StockClient) {
		c.client.SetTimeout(d)
	}
}

// NewStockClient creates a new stock quote client
func NewStockClient(apiKey, baseURL string, opts ...Option) *StockClient {
	c := &StockClient{
		apiKey: apiKey,
		client: fetcher.NewHTTPClient(baseURL, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the API name used in logs and metrics
func (c *StockClient) Name() string {
	return string(ratelimit.APIWorldTrading)
}

// Close releases the underlying HTTP client
func (c *StockClient) Close() error {
	return c.client.Close()
}

// Quotes retrieves the current quotes for symbols in a single request.
// close_yesterday is reported as the opening price and price_open as the current price.
func (c *StockClient) Quotes(ctx context.Context, symbols []string) ([]fetcher.Quote, error) {
	if err := c.limiter.Wait(ctx, ratelimit.APIWorldTrading); err != nil {
		return nil, fetcher.NewNetworkError(err)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":    strings.Join(symbols, ","),
			"api_token": c.apiKey,
		}).
		Get("")

	if err != nil {
		return nil, fetcher.NewNetworkError(err)
	}

	body := resp.Bytes()
	if !resp.IsSuccess() {
		return nil, fetcher.ClassifyHTTPError(resp.StatusCode())
	}

	var result StockResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fetcher.NewMalformedError(fmt.Errorf("decode stock response: %w", err))
	}

	quotes := make([]fetcher.Quote, 0, len(result.Data))
	for _, r := range result.Data {
		quotes = append(quotes, fetcher.Quote{
			Symbol:  r.Symbol,
			Open:    r.CloseYesterday.NullDecimal,
			Current: r.PriceOpen.NullDecimal,
		})
	}

	return quotes, nil
}
