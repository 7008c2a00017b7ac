package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockranker/internal/aggregator"
	"stockranker/internal/batch"
	"stockranker/internal/instrument"
	"stockranker/internal/logging"
	"stockranker/internal/metrics"
)

// stubSource returns canned quotes for every call
type stubSource struct {
	quotes []Quote
	err    error
	calls  [][]string
}

func (s *stubSource) Quotes(ctx context.Context, symbols []string) ([]Quote, error) {
	s.calls = append(s.calls, symbols)
	return s.quotes, s.err
}

func (s *stubSource) Name() string {
	return "stub"
}

func quote(symbol string, open, current int64) Quote {
	return Quote{
		Symbol:  symbol,
		Open:    decimal.NewNullDecimal(decimal.NewFromInt(open)),
		Current: decimal.NewNullDecimal(decimal.NewFromInt(current)),
	}
}

func setup(t *testing.T, symbols ...string) (*instrument.Universe, batch.Group, *aggregator.Aggregator) {
	t.Helper()
	u, err := instrument.NewUniverse(symbols)
	require.NoError(t, err)
	b, err := batch.New(u.Symbols(), len(symbols))
	require.NoError(t, err)
	return u, b.Build(0), aggregator.New(u, b.Count())
}

func TestFetchGroup_Success(t *testing.T) {
	u, g, agg := setup(t, "AAA", "BBB", "CCC")
	source := &stubSource{quotes: []Quote{
		quote("AAA", 100, 110),
		quote("CCC", 50, 45),
	}}

	result := NewGroupFetcher(source).FetchGroup(context.Background(), g, agg)

	assert.NoError(t, result.Error)
	assert.Equal(t, OutcomeSucceeded, result.Outcome)
	assert.Equal(t, 3, result.Requested)
	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, [][]string{{"AAA", "BBB", "CCC"}}, source.calls)

	aaa, _ := u.Lookup("AAA")
	bbb, _ := u.Lookup("BBB")
	ccc, _ := u.Lookup("CCC")
	assert.True(t, aaa.Priced())
	assert.False(t, bbb.Priced(), "symbols missing from the response stay unset")
	assert.True(t, ccc.Priced())

	assert.Equal(t, 1, agg.Completed())
}

func TestFetchGroup_TransportError(t *testing.T) {
	u, g, agg := setup(t, "AAA", "BBB")
	source := &stubSource{err: NewNetworkError(errors.New("connection refused"))}

	result := NewGroupFetcher(source).FetchGroup(context.Background(), g, agg)

	var fe *FetchError
	require.True(t, errors.As(result.Error, &fe))
	assert.Equal(t, ErrorTypeNetwork, fe.Type)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, 0, result.Updated)

	for _, inst := range u.Instruments() {
		assert.False(t, inst.Priced())
	}
	assert.Equal(t, 1, agg.Completed(), "failed groups still count as complete")
}

func TestFetchGroup_EmptyData(t *testing.T) {
	u, g, agg := setup(t, "AAA")
	source := &stubSource{}

	result := NewGroupFetcher(source).FetchGroup(context.Background(), g, agg)

	assert.True(t, IsEmpty(result.Error))
	assert.Equal(t, OutcomeEmpty, result.Outcome)
	inst, _ := u.Lookup("AAA")
	assert.False(t, inst.Priced())
	assert.Equal(t, 1, agg.Completed())
}

func TestFetchGroup_SourceReportsEmpty(t *testing.T) {
	_, g, agg := setup(t, "AAA")
	source := &stubSource{err: fmt.Errorf("batch 0: %w", NewEmptyError())}

	result := NewGroupFetcher(source).FetchGroup(context.Background(), g, agg)

	assert.Equal(t, OutcomeEmpty, result.Outcome)
	assert.True(t, IsEmpty(result.Error))
}

func TestFetchGroup_SkipsForeignAndRepeatedSymbols(t *testing.T) {
	symbols := []string{"AAA", "BBB", "CCC", "DDD"}
	u, err := instrument.NewUniverse(symbols)
	require.NoError(t, err)
	b, err := batch.New(symbols, 2)
	require.NoError(t, err)
	agg := aggregator.New(u, b.Count())

	source := &stubSource{quotes: []Quote{
		quote("AAA", 10, 11),
		quote("CCC", 10, 12), // belongs to group 1
		quote("AAA", 99, 99),
		quote("ZZZ", 1, 1),
	}}

	result := NewGroupFetcher(source).FetchGroup(context.Background(), b.Build(0), agg)

	assert.NoError(t, result.Error)
	assert.Equal(t, 1, result.Updated)

	aaa, _ := u.Lookup("AAA")
	assert.True(t, aaa.Current.Decimal.Equal(decimal.NewFromInt(11)))
	ccc, _ := u.Lookup("CCC")
	assert.False(t, ccc.Priced())
}

func TestFetchGroup_Metrics(t *testing.T) {
	_, g, agg := setup(t, "AAA", "BBB")
	m := metrics.New()
	source := &stubSource{quotes: []Quote{quote("AAA", 1, 2), quote("BBB", 2, 1)}}

	NewGroupFetcher(source, WithMetrics(m)).FetchGroup(context.Background(), g, agg)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.GroupsTotal.WithLabelValues("succeeded")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.InstrumentsPriced))
}

// captureLogs installs a text logger writing to the returned buffer for the duration of the test
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger, closer, err := logging.New(logging.Config{Level: "debug"}, &buf)
	require.NoError(t, err)

	prev := slog.Default()
	slog.SetDefault(logger)
	t.Cleanup(func() {
		slog.SetDefault(prev)
		closer.Close()
	})
	return &buf
}

func TestFetchGroup_LogsProgress(t *testing.T) {
	logs := captureLogs(t)

	symbols := []string{"AAA", "BBB", "CCC", "DDD"}
	u, err := instrument.NewUniverse(symbols)
	require.NoError(t, err)
	b, err := batch.New(symbols, 2)
	require.NoError(t, err)
	agg := aggregator.New(u, b.Count())

	gf := NewGroupFetcher(&stubSource{err: NewServerError(503)})
	gf.FetchGroup(context.Background(), b.Build(0), agg)
	gf.FetchGroup(context.Background(), b.Build(1), agg)

	out := logs.String()
	assert.Contains(t, out, "progress=1/2")
	assert.Contains(t, out, "progress=2/2")
	assert.Less(t, strings.Index(out, "progress=1/2"), strings.Index(out, "progress=2/2"))
}

func TestFetchGroup_FailureMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"network", NewNetworkError(errors.New("connection refused")), "error when querying the quote API"},
		{"malformed", NewMalformedError(errors.New("bad json")), "error when querying the quote API"},
		{"other", errors.New("source closed"), "quote source failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := captureLogs(t)
			_, g, agg := setup(t, "AAA")

			result := NewGroupFetcher(&stubSource{err: tt.err}).FetchGroup(context.Background(), g, agg)

			assert.Equal(t, OutcomeFailed, result.Outcome)
			assert.Contains(t, logs.String(), `msg="`+tt.want+`"`)
		})
	}
}

func TestSummarize(t *testing.T) {
	results := []Result{
		{Group: 0, Outcome: OutcomeSucceeded, Updated: 5},
		{Group: 1, Outcome: OutcomeFailed, Error: NewServerError(500)},
		{Group: 2, Outcome: OutcomeEmpty, Error: NewEmptyError()},
		{Group: 3, Outcome: OutcomeSucceeded, Updated: 3},
		{Group: 4, Outcome: OutcomeFailed, Error: NewTimeoutError(context.DeadlineExceeded)},
	}

	assert.Equal(t, Summary{
		Succeeded:    2,
		Empty:        1,
		Failed:       2,
		Updated:      8,
		FailedGroups: []int{1, 4},
	}, Summarize(results))

	assert.Equal(t, Summary{}, Summarize(nil))
}
