package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/carscout/carscout/internal/cache"
	"github.com/carscout/carscout/internal/listing"
	"github.com/carscout/carscout/internal/query"
	"github.com/carscout/carscout/internal/scraper"
)

// Searcher runs the acquisition pipeline for a set of retailers. The server
// wires the orchestrator in; tests substitute fakes.
type Searcher interface {
	Search(ctx context.Context, q *query.CanonicalQuery, retailers []listing.Retailer, maxResults int) []scraper.Result
}

type Handlers struct {
	parser   query.Parser
	searcher Searcher
	cache    cache.Store
	logger   *slog.Logger
}

func NewHandlers(parser query.Parser, searcher Searcher, store cache.Store, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default().With("component", "api")
	}
	return &Handlers{
		parser:   parser,
		searcher: searcher,
		cache:    store,
		logger:   logger,
	}
}

// SearchRequest asks for listings matching a natural-language query.
type SearchRequest struct {
	Query      string   `json:"query"`
	Retailers  []string `json:"retailers,omitempty"`
	MaxResults int      `json:"max_results,omitempty"`
}

// RetailerOutcome summarizes one retailer's acquisition in a search
// response.
type RetailerOutcome struct {
	Retailer string `json:"retailer"`
	Status   string `json:"status"`
	Channel  string `json:"channel,omitempty"`
	Count    int    `json:"count"`
	Error    string `json:"error,omitempty"`
}

// SearchResponse carries the aggregated listings plus per-retailer
// outcomes.
type SearchResponse struct {
	Query      string               `json:"query"`
	Structured query.CanonicalQuery `json:"structured"`
	Listings   []listing.Listing    `json:"listings"`
	Results    []RetailerOutcome    `json:"results"`
	Cached     bool                 `json:"cached"`
}

// Search handles POST /api/v1/search.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		h.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.MaxResults <= 0 {
		req.MaxResults = 10
	}

	retailers, err := resolveRetailers(req.Retailers)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	q, err := h.parser.Parse(r.Context(), req.Query)
	if err != nil {
		h.logger.Error("query parsing failed", "error", err, "query", req.Query)
		h.respondError(w, http.StatusInternalServerError, "failed to parse query")
		return
	}

	names := make([]string, len(retailers))
	for i, retailer := range retailers {
		names[i] = string(retailer)
	}
	key := cache.Key(q, names, req.MaxResults)

	if h.cache != nil {
		if payload, ok, err := h.cache.Get(r.Context(), key); err == nil && ok {
			var cached SearchResponse
			if err := json.Unmarshal(payload, &cached); err == nil {
				cached.Cached = true
				h.respondJSON(w, http.StatusOK, cached)
				return
			}
		}
	}

	results := h.searcher.Search(r.Context(), q, retailers, req.MaxResults)

	resp := SearchResponse{
		Query:      req.Query,
		Structured: *q,
		Listings:   []listing.Listing{},
		Results:    make([]RetailerOutcome, 0, len(results)),
	}
	hadError := false
	for _, result := range results {
		outcome := RetailerOutcome{
			Retailer: string(result.Retailer),
			Status:   string(result.Status),
			Channel:  string(result.Channel),
			Count:    len(result.Listings),
		}
		if result.Err != nil {
			hadError = true
			outcome.Error = result.Err.Error()
		}
		resp.Results = append(resp.Results, outcome)
		resp.Listings = append(resp.Listings, result.Listings...)
	}

	// Transient retailer failures degrade to fewer results for this one
	// request; caching them would replay the failure for the full TTL.
	if h.cache != nil && !hadError {
		if payload, err := json.Marshal(resp); err == nil {
			if err := h.cache.Set(r.Context(), key, payload); err != nil {
				h.logger.Warn("failed to cache search response", "error", err)
			}
		}
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// ParseQueryRequest asks for the canonical form of a query string.
type ParseQueryRequest struct {
	Query string `json:"query"`
}

// ParseQuery handles POST /api/v1/parse-query.
func (h *Handlers) ParseQuery(w http.ResponseWriter, r *http.Request) {
	var req ParseQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		h.respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	q, err := h.parser.Parse(r.Context(), req.Query)
	if err != nil {
		h.logger.Error("query parsing failed", "error", err, "query", req.Query)
		h.respondError(w, http.StatusInternalServerError, "failed to parse query")
		return
	}

	h.respondJSON(w, http.StatusOK, query.ParsedQuery{
		Query:      req.Query,
		Structured: *q,
	})
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func resolveRetailers(names []string) ([]listing.Retailer, error) {
	if len(names) == 0 {
		return []listing.Retailer{
			listing.RetailerCarMax,
			listing.RetailerAutoTrader,
			listing.RetailerKBB,
			listing.RetailerTrueCar,
		}, nil
	}

	retailers := make([]listing.Retailer, 0, len(names))
	for _, name := range names {
		retailer, ok := listing.FromString(name)
		if !ok {
			return nil, &unknownRetailerError{name: name}
		}
		retailers = append(retailers, retailer)
	}
	return retailers, nil
}

type unknownRetailerError struct {
	name string
}

func (e *unknownRetailerError) Error() string {
	return "unknown retailer: " + e.name
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
