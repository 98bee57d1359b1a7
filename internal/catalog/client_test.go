package catalog

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/pkg/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `[
  {"id":1,"title":"Fjallraven - Foldsack No. 1 Backpack","price":109.95,
   "description":"Your perfect pack for everyday use and walks in the forest.",
   "category":"men's clothing","image":"https://fakestoreapi.com/img/81fPKd-2AYL._AC_SL1500_.jpg",
   "rating":{"rate":3.9,"count":120}},
  {"id":2,"title":"Mens Casual Premium Slim Fit T-Shirts","price":22.3,
   "description":"Slim-fitting style.","category":"men's clothing",
   "image":"https://fakestoreapi.com/img/71-3HjGNDUL._AC_SY879._SX._UX._SY._UY_.jpg"}
]`

var testBreaker = config.CircuitBreakerConfig{
	ConsecutiveFailures: 3,
	ErrorRatePercent:    100,
	OpenTimeout:         time.Minute,
	HalfOpenRequests:    1,
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(url string) *Client {
	return NewClient(ClientConfig{URL: url, Timeout: 2 * time.Second, Breaker: testBreaker}, nil, discardLogger())
}

func TestClient_FetchProducts(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		body        string
		expectCount int
		expectError bool
	}{
		{name: "Success - two products", status: http.StatusOK, body: sampleCatalog, expectCount: 2},
		{name: "Success - empty catalog", status: http.StatusOK, body: `[]`, expectCount: 0},
		{name: "Error - server error", status: http.StatusInternalServerError, body: `oops`, expectError: true},
		{name: "Error - not found", status: http.StatusNotFound, body: ``, expectError: true},
		{name: "Error - malformed json", status: http.StatusOK, body: `[{"id":1,`, expectError: true},
		{name: "Error - object instead of array", status: http.StatusOK, body: `{"id":1}`, expectError: true},
		{name: "Success - missing title is skipped", status: http.StatusOK, body: `[{"id":1,"title":"A","price":1},{"id":2,"title":"","price":2}]`, expectCount: 1},
		{name: "Success - zero id is skipped", status: http.StatusOK, body: `[{"id":0,"title":"x","price":1}]`, expectCount: 0},
		{name: "Success - negative price is skipped", status: http.StatusOK, body: `[{"id":3,"title":"x","price":-1},{"id":4,"title":"y","price":0}]`, expectCount: 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()
			client := newTestClient(srv.URL)

			// when
			products, err := client.FetchProducts(context.Background())

			// then
			if tc.expectError {
				require.ErrorIs(t, err, sferrors.ErrCatalogFetch)
				assert.Nil(t, products)
				return
			}
			require.NoError(t, err)
			assert.Len(t, products, tc.expectCount)
		})
	}
}

func TestClient_FetchProducts_DecodesFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, sampleCatalog)
	}))
	defer srv.Close()

	products, err := newTestClient(srv.URL).FetchProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	first := products[0]
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, "men's clothing", first.Category)
	assert.True(t, decimal.RequireFromString("109.95").Equal(first.Price))
	require.NotNil(t, first.Rating)
	assert.True(t, decimal.RequireFromString("3.9").Equal(first.Rating.Rate))
	assert.Equal(t, 120, first.Rating.Count)

	assert.Nil(t, products[1].Rating, "rating is optional")
}

func TestClient_FetchProducts_KeepsValidRecords(t *testing.T) {
	// given
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"id":1,"title":"A","price":1},{"id":2,"title":"","price":2},{"id":3,"title":"C","price":3}]`)
	}))
	defer srv.Close()

	// when
	products, err := newTestClient(srv.URL).FetchProducts(context.Background())

	// then
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, 1, products[0].ID)
	assert.Equal(t, 3, products[1].ID)
}

func TestClient_FetchProducts_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).FetchProducts(context.Background())

	assert.ErrorIs(t, err, sferrors.ErrCatalogFetch)
}

func TestClient_FetchProducts_BreakerOpens(t *testing.T) {
	// given
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	client := newTestClient(srv.URL)

	// when
	for range int(testBreaker.ConsecutiveFailures) {
		_, err := client.FetchProducts(context.Background())
		require.ErrorIs(t, err, sferrors.ErrCatalogFetch)
	}
	_, err := client.FetchProducts(context.Background())

	// then
	assert.ErrorIs(t, err, sferrors.ErrCatalogUnavailable)
	assert.ErrorIs(t, err, sferrors.ErrCatalogFetch, "unavailable is still a fetch failure")
	assert.Equal(t, int32(testBreaker.ConsecutiveFailures), hits.Load(), "open breaker must not reach upstream")
}
