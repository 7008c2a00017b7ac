package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"stockranker/internal/fetcher"
	"stockranker/internal/report"
)

// MockSource is a mock implementation of the fetcher.Source interface for testing
type MockSource struct {
	QuotesFunc func(ctx context.Context, symbols []string) ([]fetcher.Quote, error)
	NameFunc   func() string
}

// Quotes implements the fetcher.Source interface
func (m *MockSource) Quotes(ctx context.Context, symbols []string) ([]fetcher.Quote, error) {
	if m.QuotesFunc != nil {
		return m.QuotesFunc(ctx, symbols)
	}
	return nil, nil
}

// Name implements the fetcher.Source interface
func (m *MockSource) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "mock"
}

// NewMockSource creates a mock source answering every request from prices.
// prices maps a symbol to its [open, current] pair; unknown symbols are omitted from the answer.
func NewMockSource(prices map[string][2]float64) *MockSource {
	return &MockSource{
		QuotesFunc: func(ctx context.Context, symbols []string) ([]fetcher.Quote, error) {
			var quotes []fetcher.Quote
			for _, s := range symbols {
				p, ok := prices[s]
				if !ok {
					continue
				}
				quotes = append(quotes, Quote(s, p[0], p[1]))
			}
			return quotes, nil
		},
	}
}

// Quote builds a fully priced quote
func Quote(symbol string, open, current float64) fetcher.Quote {
	return fetcher.Quote{
		Symbol:  symbol,
		Open:    decimal.NewNullDecimal(decimal.NewFromFloat(open)),
		Current: decimal.NewNullDecimal(decimal.NewFromFloat(current)),
	}
}

// RecordingSink is a report.Sink keeping every written ranking
type RecordingSink struct {
	mu     sync.Mutex
	Writes [][]report.Entry
	Err    error
}

// Write implements the report.Sink interface
func (s *RecordingSink) Write(entries []report.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Writes = append(s.Writes, entries)
	return nil
}

// Last returns the most recent ranking, or nil
func (s *RecordingSink) Last() []report.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Writes) == 0 {
		return nil
	}
	return s.Writes[len(s.Writes)-1]
}

// StockRecord is the wire format of one quote served by NewStockServer
type StockRecord struct {
	Symbol         string  `json:"symbol"`
	CloseYesterday float64 `json:"close_yesterday"`
	PriceOpen      float64 `json:"price_open"`
}

// NewStockServer starts an HTTP server speaking the stock API.
// It answers each request with the records whose symbol was requested, or an empty data field.
func NewStockServer(records []StockRecord) *httptest.Server {
	bySymbol := make(map[string]StockRecord, len(records))
	for _, r := range records {
		bySymbol[r.Symbol] = r
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := []StockRecord{}
		for _, s := range strings.Split(r.URL.Query().Get("symbol"), ",") {
			if rec, ok := bySymbol[s]; ok {
				data = append(data, rec)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
}
