package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/cl-postal-codes/internal/browser"
	"github.com/JakeFAU/cl-postal-codes/internal/lookup"
	"github.com/JakeFAU/cl-postal-codes/internal/postal"
	"github.com/JakeFAU/cl-postal-codes/internal/scraper"
)

var sampleAddress = postal.Address{
	ID:         "0192-a",
	Commune:    "PROVIDENCIA",
	Street:     "AVENIDA PROVIDENCIA",
	Number:     "1860",
	Region:     "REGIÓN METROPOLITANA DE SANTIAGO",
	PostalCode: "7510268",
	CreatedAt:  time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC),
}

func TestSearch_ReturnsAddress(t *testing.T) {
	t.Parallel()

	svc := &fakeLookup{find: func(context.Context, lookup.Query) (postal.Address, error) {
		return sampleAddress, nil
	}}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/v1/postal-codes/search?commune=Providencia&street=Avenida%20Providencia&number=1860", nil)
	newTestServer(svc).Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{
		"id":"0192-a",
		"commune":"PROVIDENCIA",
		"street":"AVENIDA PROVIDENCIA",
		"number":"1860",
		"region":"REGIÓN METROPOLITANA DE SANTIAGO",
		"postalCode":"7510268",
		"createdAt":"2026-10-14T12:00:00Z"
	}`, rec.Body.String())
	require.Equal(t, []lookup.Query{{Commune: "Providencia", Street: "Avenida Providencia", Number: "1860"}}, svc.queries)
}

func TestSearch_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{
			name:   "invalid input",
			err:    fmt.Errorf("%w: street number cannot be empty", lookup.ErrInvalidInput),
			status: http.StatusBadRequest,
			body:   `{"error":"street number cannot be empty"}`,
		},
		{
			name:   "scrape failed",
			err:    &lookup.ScrapeError{Outcome: scraper.Failure(scraper.ErrEmptyResult)},
			status: http.StatusBadRequest,
			body:   `{"error":"Scraper failed: empty postal code"}`,
		},
		{
			name:   "unknown commune",
			err:    fmt.Errorf("commune 'Atlantis': %w", postal.ErrNotFound),
			status: http.StatusNotFound,
			body:   `{"error":"commune 'Atlantis': not found"}`,
		},
		{
			name:   "launch failed",
			err:    fmt.Errorf("acquire browser: %w", browser.ErrLaunch),
			status: http.StatusServiceUnavailable,
			body:   `{"error":"browser unavailable"}`,
		},
		{
			name:   "launch wait",
			err:    browser.ErrLaunchWait,
			status: http.StatusServiceUnavailable,
			body:   `{"error":"browser unavailable"}`,
		},
		{
			name:   "deadline",
			err:    fmt.Errorf("acquire slot: %w", context.DeadlineExceeded),
			status: http.StatusGatewayTimeout,
			body:   `{"error":"lookup timed out"}`,
		},
		{
			name:   "unexpected",
			err:    errors.New("find address: connection reset"),
			status: http.StatusInternalServerError,
			body:   `{"error":"internal server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &fakeLookup{find: func(context.Context, lookup.Query) (postal.Address, error) {
				return postal.Address{}, tt.err
			}}
			rec := httptest.NewRecorder()
			newTestServer(svc).Handler().ServeHTTP(rec,
				httptest.NewRequest(http.MethodGet, "/v1/postal-codes/search?commune=a&street=b&number=1", nil))

			require.Equal(t, tt.status, rec.Code)
			require.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestFindByCode(t *testing.T) {
	t.Parallel()

	var gotCode string
	svc := &fakeLookup{byCode: func(code string) ([]postal.Address, error) {
		gotCode = code
		if code == "7510268" {
			return []postal.Address{sampleAddress}, nil
		}
		return nil, fmt.Errorf("postal code '%s': %w", code, postal.ErrNotFound)
	}}
	server := newTestServer(svc)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/postal-codes/7510268", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "7510268", gotCode)
	var addrs []postal.Address
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &addrs))
	require.Equal(t, []postal.Address{sampleAddress}, addrs)

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/postal-codes/0000000", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"postal code '0000000': not found"}`, rec.Body.String())
}

func TestListAddresses_ParsesPagination(t *testing.T) {
	t.Parallel()

	svc := &fakeLookup{}
	server := newTestServer(svc)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/postal-codes", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"data":[],"meta":{"total":0,"page":1,"limit":20}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/postal-codes?page=3&limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, [][2]int{{1, lookup.DefaultLimit}, {3, 5}}, svc.pages)
}

func TestListAddresses_InvalidParams(t *testing.T) {
	t.Parallel()

	for _, target := range []string{"/v1/postal-codes?page=abc", "/v1/postal-codes?limit=1.5"} {
		rec := httptest.NewRecorder()
		newTestServer(&fakeLookup{}).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code, target)
		require.Contains(t, rec.Body.String(), "invalid", target)
	}
}

func TestListAddresses_StoreFailure(t *testing.T) {
	t.Parallel()

	svc := &fakeLookup{list: func(int, int) (lookup.Page, error) {
		return lookup.Page{}, errors.New("list addresses: pool closed")
	}}
	rec := httptest.NewRecorder()
	newTestServer(svc).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/postal-codes", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
