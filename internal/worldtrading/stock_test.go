package worldtrading

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockranker/internal/fetcher"
	"stockranker/internal/ratelimit"
)

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func TestNewStockClient(t *testing.T) {
	client := NewStockClient("test_api_key", DefaultBaseURL)

	require.NotNil(t, client)
	assert.Equal(t, "test_api_key", client.apiKey)
	assert.NotNil(t, client.client)
	assert.Nil(t, client.limiter)
	assert.Equal(t, "worldtrading", client.Name())
}

func TestStockClient_Quotes_Success(t *testing.T) {
	server := httptest.NewServer(jsonHandler(http.StatusOK, `{
		"symbols_requested": 3,
		"symbols_returned": 2,
		"data": [
			{"symbol": "AAA", "name": "Triple A", "price": "111.00", "close_yesterday": 100, "price_open": 110},
			{"symbol": "BBB", "name": "Triple B", "price": "44.00", "close_yesterday": "50.00", "price_open": "45.00"}
		]
	}`))
	defer server.Close()

	client := NewStockClient("test_key", server.URL)
	quotes, err := client.Quotes(context.Background(), []string{"AAA", "BBB", "CCC"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	tests := []struct {
		symbol  string
		open    string
		current string
	}{
		{"AAA", "100", "110"},
		{"BBB", "50", "45"},
	}
	for i, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			q := quotes[i]
			assert.Equal(t, tt.symbol, q.Symbol)
			require.True(t, q.Open.Valid)
			require.True(t, q.Current.Valid)
			assert.True(t, q.Open.Decimal.Equal(decimal.RequireFromString(tt.open)), "open = %s", q.Open.Decimal)
			assert.True(t, q.Current.Decimal.Equal(decimal.RequireFromString(tt.current)), "current = %s", q.Current.Decimal)
		})
	}
}

func TestStockClient_Quotes_VerifyQueryParams(t *testing.T) {
	apiKey := "test_api_key_123"

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		if got := r.URL.Query().Get("api_token"); got != apiKey {
			t.Errorf("api_token = %q, want %q", got, apiKey)
		}
		if got := r.URL.Query().Get("symbol"); got != "AAPL,MSFT,GOOGL" {
			t.Errorf("symbol = %q, want AAPL,MSFT,GOOGL", got)
		}

		jsonHandler(http.StatusOK, `{"data": []}`)(w, r)
	})

	server := httptest.NewServer(handler)
	defer server.Close()

	client := NewStockClient(apiKey, server.URL)
	_, err := client.Quotes(context.Background(), []string{"AAPL", "MSFT", "GOOGL"})
	require.NoError(t, err)
}

func TestStockClient_Quotes_NoData(t *testing.T) {
	bodies := map[string]string{
		"empty data":  `{"data": []}`,
		"null data":   `{"data": null}`,
		"absent data": `{"Message": "Error! The requested stock(s) could not be found."}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(jsonHandler(http.StatusOK, body))
			defer server.Close()

			quotes, err := NewStockClient("key", server.URL).Quotes(context.Background(), []string{"AAA"})
			require.NoError(t, err)
			assert.Empty(t, quotes)
		})
	}
}

func TestStockClient_Quotes_Malformed(t *testing.T) {
	bodies := map[string]string{
		"not json":       `<html>maintenance</html>`,
		"truncated":      `{"data": [{"symbol": "AAA"`,
		"data not array": `{"data": {"symbol": "AAA"}}`,
		"empty body":     ``,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(jsonHandler(http.StatusOK, body))
			defer server.Close()

			_, err := NewStockClient("key", server.URL).Quotes(context.Background(), []string{"AAA"})
			require.Error(t, err)

			var fe *fetcher.FetchError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, fetcher.ErrorTypeMalformed, fe.Type)
		})
	}
}

func TestStockClient_Quotes_HTTPError(t *testing.T) {
	tests := []struct {
		status   int
		wantType fetcher.ErrorType
	}{
		{http.StatusInternalServerError, fetcher.ErrorTypeServer},
		{http.StatusTooManyRequests, fetcher.ErrorTypeRateLimit},
		{http.StatusUnauthorized, fetcher.ErrorTypeClient},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(jsonHandler(tt.status, `{"message": "nope"}`))
			defer server.Close()

			_, err := NewStockClient("key", server.URL).Quotes(context.Background(), []string{"AAA"})

			var fe *fetcher.FetchError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.wantType, fe.Type)
			assert.Equal(t, tt.status, fe.StatusCode)
		})
	}
}

func TestStockClient_Quotes_NetworkError(t *testing.T) {
	server := httptest.NewServer(jsonHandler(http.StatusOK, `{}`))
	url := server.URL
	server.Close()

	_, err := NewStockClient("key", url).Quotes(context.Background(), []string{"AAA"})

	var fe *fetcher.FetchError
	require.True(t, errors.As(err, &fe))
	assert.True(t, fe.Transport())
}

func TestStockClient_Quotes_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewStockClient("key", server.URL, WithTimeout(50*time.Millisecond))
	_, err := client.Quotes(context.Background(), []string{"AAA"})

	var fe *fetcher.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, fetcher.ErrorTypeTimeout, fe.Type)
}

func TestStockClient_Quotes_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStockClient("key", server.URL).Quotes(ctx, []string{"AAA"})
	assert.Error(t, err)
}

func TestStockClient_Quotes_RateLimited(t *testing.T) {
	server := httptest.NewServer(jsonHandler(http.StatusOK, `{"data": []}`))
	defer server.Close()

	limiter := ratelimit.New()
	limiter.Set(ratelimit.APIWorldTrading, 0.001, 1)
	client := NewStockClient("key", server.URL, WithLimiter(limiter))

	_, err := client.Quotes(context.Background(), []string{"AAA"})
	require.NoError(t, err)

	// The second request would wait far beyond the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Quotes(ctx, []string{"AAA"})
	assert.Error(t, err)
}

func TestPrice_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		raw   string
		valid bool
		want  string
	}{
		{`110`, true, "110"},
		{`110.25`, true, "110.25"},
		{`"45.10"`, true, "45.1"},
		{`0`, true, "0"},
		{`null`, false, ""},
		{`"N/A"`, false, ""},
		{`""`, false, ""},
		{`true`, false, ""},
		{`{"v": 1}`, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var rec StockRecord
			err := json.Unmarshal([]byte(`{"symbol": "X", "close_yesterday": `+tt.raw+`}`), &rec)
			require.NoError(t, err)

			assert.Equal(t, tt.valid, rec.CloseYesterday.Valid)
			if tt.valid {
				assert.Equal(t, tt.want, rec.CloseYesterday.Decimal.String())
			}
			assert.False(t, rec.PriceOpen.Valid, "absent field stays invalid")
		})
	}
}
