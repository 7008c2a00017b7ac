package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"stockranker/internal/aggregator"
	"stockranker/internal/batch"
	"stockranker/internal/metrics"
)

// Quote is one price record returned by a Source.
// Open and Current are invalid when the API omitted them or sent a non-numeric value.
type Quote struct {
	Symbol  string
	Open    decimal.NullDecimal
	Current decimal.NullDecimal
}

// Source is the interface that quote APIs must implement.
// Each call to Quotes is exactly one network request.
type Source interface {
	// Quotes retrieves prices for symbols.
	// A well-formed response without records returns an empty slice and no error.
	Quotes(ctx context.Context, symbols []string) ([]Quote, error)

	// Name identifies the API in logs and metrics
	Name() string
}

// GroupFetcher runs the fetch for one group at a time and merges the results
type GroupFetcher struct {
	source  Source
	metrics *metrics.Metrics
}

// Option configures a GroupFetcher
type Option func(*GroupFetcher)

// WithMetrics records per-group outcomes in m
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *GroupFetcher) {
		f.metrics = m
	}
}

// NewGroupFetcher creates a GroupFetcher backed by source
func NewGroupFetcher(source Source, opts ...Option) *GroupFetcher {
	f := &GroupFetcher{source: source}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchGroup requests the prices of g and applies them through agg.
// Failures are logged and reported in the Result; they never panic or abort other groups.
// The group is always marked complete in agg before returning.
func (f *GroupFetcher) FetchGroup(ctx context.Context, g batch.Group, agg *aggregator.Aggregator) Result {
	start := time.Now()
	writer := agg.Writer(g)
	result := Result{
		Group:     g.Index,
		Requested: len(g.Symbols),
		Outcome:   OutcomeSucceeded,
	}

	quotes, err := f.source.Quotes(ctx, g.Symbols)
	if err == nil && len(quotes) == 0 {
		err = NewEmptyError()
	}

	switch {
	case IsEmpty(err):
		result.Outcome = OutcomeEmpty
		result.Error = err
		slog.Info("no data",
			"source", f.source.Name(),
			"group", g.Index,
			"symbols", g.Query())
	case err != nil:
		result.Outcome = OutcomeFailed
		result.Error = err
		slog.Error(failureMessage(err),
			"source", f.source.Name(),
			"group", g.Index,
			"symbols", g.Query(),
			"error", err)
	default:
		for _, q := range quotes {
			if err := writer.Apply(q.Symbol, q.Open, q.Current); err != nil {
				slog.Warn("skipping quote",
					"group", g.Index,
					"symbol", q.Symbol,
					"error", err)
			}
		}
	}
	result.Updated = writer.Applied()

	done := agg.Complete()
	slog.Info("complete group", "progress", fmt.Sprintf("%d/%d", done, agg.Total()))

	f.metrics.ObserveGroup(string(result.Outcome), time.Since(start), result.Updated)

	return result
}

// failureMessage picks the log message for a failed group
func failureMessage(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) && fe.Transport() {
		return "error when querying the quote API"
	}
	return "quote source failed"
}
