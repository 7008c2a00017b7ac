package coordinator

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/sourcegraph/conc/pool"

	"stockranker/internal/aggregator"
	"stockranker/internal/batch"
	"stockranker/internal/fetcher"
	"stockranker/internal/instrument"
	"stockranker/internal/metrics"
	"stockranker/internal/report"
)

// Coordinator owns the instrument universe for one ranking run.
// Fetch tasks only ever see a write handle scoped to their own group.
type Coordinator struct {
	universe  *instrument.Universe
	source    fetcher.Source
	sink      report.Sink
	groupSize int
	workers   int
	remainder bool
	metrics   *metrics.Metrics
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithGroupSize sets the number of symbols per request
func WithGroupSize(n int) Option {
	return func(c *Coordinator) {
		c.groupSize = n
	}
}

// WithMaxWorkers bounds the number of concurrent requests.
// Zero or less starts every group at once.
func WithMaxWorkers(n int) Option {
	return func(c *Coordinator) {
		c.workers = n
	}
}

// WithRemainder also fetches the trailing short group
func WithRemainder(enabled bool) Option {
	return func(c *Coordinator) {
		c.remainder = enabled
	}
}

// WithMetrics records the run in m
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// New creates a new Coordinator over universe
func New(universe *instrument.Universe, source fetcher.Source, sink report.Sink, opts ...Option) *Coordinator {
	c := &Coordinator{
		universe:  universe,
		source:    source,
		sink:      sink,
		groupSize: batch.DefaultGroupSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run fetches every group concurrently, waits for all of them, then ranks
// the instruments by return and hands the ranking to the sink.
//
// Per-group failures are logged and leave the group's instruments unpriced;
// they never stop the run. Run only fails on configuration or sink errors.
func (c *Coordinator) Run(ctx context.Context) ([]report.Entry, error) {
	if c.universe == nil || c.universe.Len() == 0 {
		return nil, instrument.ErrEmptyUniverse
	}

	var batchOpts []batch.Option
	if c.remainder {
		batchOpts = append(batchOpts, batch.WithRemainder())
	}
	batcher, err := batch.New(c.universe.Symbols(), c.groupSize, batchOpts...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	groups := batcher.Count()
	dropped := batcher.Dropped()
	c.metrics.ObserveUniverse(c.universe.Len(), len(dropped))
	if len(dropped) > 0 {
		slog.Warn("trailing symbols are not covered by any group",
			"dropped", len(dropped),
			"symbols", dropped)
	}

	slog.Info("storing price information...",
		"instruments", c.universe.Len(),
		"groups", groups,
		"group_size", batcher.Size(),
		"workers", c.workers)

	agg := aggregator.New(c.universe, groups)
	results := c.fetchAll(ctx, batcher, agg)

	summary := fetcher.Summarize(results)
	if summary.Failed > 0 {
		slog.Warn("groups failed, their instruments rank with a zero return",
			"failed", summary.Failed,
			"groups", summary.FailedGroups)
	}
	slog.Info("done storing",
		"instruments", c.universe.Len(),
		"priced", summary.Updated,
		"succeeded", summary.Succeeded,
		"empty", summary.Empty,
		"failed", summary.Failed)

	slog.Info("computing daily performance...")
	for _, inst := range c.universe.Instruments() {
		inst.ComputeReturn()
	}

	slog.Info("sorting...")
	ranked := Rank(c.universe.Instruments())

	entries := make([]report.Entry, len(ranked))
	for i, inst := range ranked {
		entries[i] = report.Entry{Symbol: inst.Symbol, Return: inst.Return}
	}

	if err := c.sink.Write(entries); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	c.metrics.ObserveRun(time.Since(start))
	slog.Info("all done", "duration", time.Since(start))

	return entries, nil
}

// fetchAll starts one task per group, blocks until every task has finished
// and returns the results in group order
func (c *Coordinator) fetchAll(ctx context.Context, batcher *batch.Batcher, agg *aggregator.Aggregator) []fetcher.Result {
	gf := fetcher.NewGroupFetcher(c.source, fetcher.WithMetrics(c.metrics))

	p := pool.NewWithResults[fetcher.Result]()
	if c.workers > 0 {
		p = p.WithMaxGoroutines(c.workers)
	}

	for _, g := range batcher.Groups() {
		p.Go(func() fetcher.Result {
			return gf.FetchGroup(ctx, g, agg)
		})
	}

	results := p.Wait()
	slices.SortFunc(results, func(a, b fetcher.Result) int {
		return cmp.Compare(a.Group, b.Group)
	})
	return results
}
