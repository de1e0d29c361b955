package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carscout/carscout/internal/cache"
	"github.com/carscout/carscout/internal/catalog"
	"github.com/carscout/carscout/internal/listing"
	"github.com/carscout/carscout/internal/query"
	"github.com/carscout/carscout/internal/scraper"
)

type stubSearcher struct {
	results   []scraper.Result
	calls     int
	retailers []listing.Retailer
}

func (s *stubSearcher) Search(_ context.Context, _ *query.CanonicalQuery, retailers []listing.Retailer, _ int) []scraper.Result {
	s.calls++
	s.retailers = retailers
	return s.results
}

type failingParser struct{}

func (failingParser) Parse(context.Context, string) (*query.CanonicalQuery, error) {
	return nil, errors.New("parser unavailable")
}

func newTestHandlers(searcher Searcher, store cache.Store) *Handlers {
	return NewHandlers(query.NewNormalizer(catalog.Default()), searcher, store, nil)
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestSearchAggregatesRetailerResults(t *testing.T) {
	searcher := &stubSearcher{results: []scraper.Result{
		{
			Retailer: listing.RetailerCarMax,
			Channel:  scraper.ChannelRendered,
			Status:   scraper.StatusOK,
			Listings: []listing.Listing{
				{Name: "2023 GMC Sierra 1500 Denali", Price: 61998, Retailer: listing.RetailerCarMax},
			},
		},
		{
			Retailer: listing.RetailerTrueCar,
			Channel:  scraper.ChannelFast,
			Status:   scraper.StatusOK,
			Listings: []listing.Listing{
				{Name: "2022 GMC Sierra 1500 Denali", Price: 54990, Retailer: listing.RetailerTrueCar},
			},
		},
	}}
	h := newTestHandlers(searcher, nil)

	rec := postJSON(t, h.Search, `{"query": "GMC Sierra Denali under $70000"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "GMC Sierra Denali under $70000", resp.Query)
	assert.Equal(t, []string{"GMC"}, resp.Structured.Makes)
	require.Len(t, resp.Listings, 2)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "CarMax", resp.Results[0].Retailer)
	assert.Equal(t, "rendered", resp.Results[0].Channel)
	assert.Equal(t, 1, resp.Results[0].Count)
	assert.Equal(t, "fast", resp.Results[1].Channel)
	assert.False(t, resp.Cached)
}

func TestSearchReportsPartialFailures(t *testing.T) {
	searcher := &stubSearcher{results: []scraper.Result{
		{Retailer: listing.RetailerKBB, Status: scraper.StatusBlocked, Channel: scraper.ChannelRendered},
		{
			Retailer: listing.RetailerCarMax,
			Status:   scraper.StatusError,
			Channel:  scraper.ChannelRendered,
			Err:      errors.New("navigation timeout"),
		},
	}}
	h := newTestHandlers(searcher, nil)

	rec := postJSON(t, h.Search, `{"query": "GMC Sierra"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Empty(t, resp.Listings)
	assert.Equal(t, "blocked", resp.Results[0].Status)
	assert.Empty(t, resp.Results[0].Error)
	assert.Equal(t, "error", resp.Results[1].Status)
	assert.Equal(t, "navigation timeout", resp.Results[1].Error)
}

func TestSearchDefaultsToAllRetailers(t *testing.T) {
	searcher := &stubSearcher{}
	h := newTestHandlers(searcher, nil)

	rec := postJSON(t, h.Search, `{"query": "GMC Sierra"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []listing.Retailer{
		listing.RetailerCarMax,
		listing.RetailerAutoTrader,
		listing.RetailerKBB,
		listing.RetailerTrueCar,
	}, searcher.retailers)
}

func TestSearchResolvesRetailerNamesCaseInsensitively(t *testing.T) {
	searcher := &stubSearcher{}
	h := newTestHandlers(searcher, nil)

	rec := postJSON(t, h.Search, `{"query": "GMC Sierra", "retailers": ["carmax", "TRUECAR"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []listing.Retailer{
		listing.RetailerCarMax,
		listing.RetailerTrueCar,
	}, searcher.retailers)
}

func TestSearchRejectsUnknownRetailer(t *testing.T) {
	searcher := &stubSearcher{}
	h := newTestHandlers(searcher, nil)

	rec := postJSON(t, h.Search, `{"query": "GMC Sierra", "retailers": ["craigslist"]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown retailer: craigslist")
	assert.Zero(t, searcher.calls)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	h := newTestHandlers(&stubSearcher{}, nil)

	rec := postJSON(t, h.Search, `{"query": ""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "query is required")
}

func TestSearchRejectsMalformedBody(t *testing.T) {
	h := newTestHandlers(&stubSearcher{}, nil)

	rec := postJSON(t, h.Search, `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
}

func TestSearchServesSecondRequestFromCache(t *testing.T) {
	searcher := &stubSearcher{results: []scraper.Result{
		{
			Retailer: listing.RetailerCarMax,
			Channel:  scraper.ChannelRendered,
			Status:   scraper.StatusOK,
			Listings: []listing.Listing{
				{Name: "2021 Ford F-150", Price: 45998, Retailer: listing.RetailerCarMax},
			},
		},
	}}
	store := cache.NewMemoryStore(16, time.Minute)
	h := newTestHandlers(searcher, store)

	body := `{"query": "ford f-150", "retailers": ["carmax"]}`

	first := postJSON(t, h.Search, body)
	require.Equal(t, http.StatusOK, first.Code)

	second := postJSON(t, h.Search, body)
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, 1, searcher.calls)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.True(t, resp.Cached)
	require.Len(t, resp.Listings, 1)
	assert.Equal(t, "2021 Ford F-150", resp.Listings[0].Name)
}

// A response carrying a transient retailer failure must not be cached:
// the next identical request has to reach the orchestrator again once the
// retailer recovers.
func TestSearchDoesNotCacheFailedAcquisitions(t *testing.T) {
	searcher := &stubSearcher{results: []scraper.Result{
		{
			Retailer: listing.RetailerCarMax,
			Status:   scraper.StatusError,
			Channel:  scraper.ChannelRendered,
			Err:      errors.New("navigation timeout"),
		},
	}}
	store := cache.NewMemoryStore(16, time.Minute)
	h := newTestHandlers(searcher, store)

	body := `{"query": "ford f-150", "retailers": ["carmax"]}`

	first := postJSON(t, h.Search, body)
	require.Equal(t, http.StatusOK, first.Code)

	// The retailer recovers between requests.
	searcher.results = []scraper.Result{
		{
			Retailer: listing.RetailerCarMax,
			Status:   scraper.StatusOK,
			Channel:  scraper.ChannelRendered,
			Listings: []listing.Listing{
				{Name: "2021 Ford F-150", Price: 45998, Retailer: listing.RetailerCarMax},
			},
		},
	}

	second := postJSON(t, h.Search, body)
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, 2, searcher.calls)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.False(t, resp.Cached)
	require.Len(t, resp.Listings, 1)
	assert.Equal(t, "ok", resp.Results[0].Status)
}

func TestSearchParserFailure(t *testing.T) {
	h := NewHandlers(failingParser{}, &stubSearcher{}, nil, nil)

	rec := postJSON(t, h.Search, `{"query": "GMC Sierra"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to parse query")
}

func TestParseQuery(t *testing.T) {
	h := newTestHandlers(&stubSearcher{}, nil)

	rec := postJSON(t, h.ParseQuery, `{"query": "GMC Sierra Denali under $50000"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp query.ParsedQuery
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "GMC Sierra Denali under $50000", resp.Query)
	assert.Equal(t, []string{"GMC"}, resp.Structured.Makes)
	assert.Equal(t, []string{"Sierra"}, resp.Structured.Models)
	require.NotNil(t, resp.Structured.MaxPrice)
	assert.Equal(t, 50000, *resp.Structured.MaxPrice)
}

func TestParseQueryRejectsEmptyQuery(t *testing.T) {
	h := newTestHandlers(&stubSearcher{}, nil)

	rec := postJSON(t, h.ParseQuery, `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	h := newTestHandlers(&stubSearcher{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}
