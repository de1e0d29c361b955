package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/carscout/carscout/internal/listing"
	"github.com/carscout/carscout/internal/query"
	"github.com/carscout/carscout/internal/ratelimit"
)

const (
	trueCarGraphQLURL     = "https://www.truecar.com/abp/api/graphql/"
	trueCarGraphQLTimeout = 10 * time.Second

	// The endpoint tolerates short bursts; sustained traffic is paced by
	// the bucket refill instead of a fixed per-request gap.
	trueCarGraphQLBurst  = 3
	trueCarGraphQLRefill = 2 * time.Second
)

const trueCarSearchQuery = `
query Search($query: String!) {
  vehicleSearch(query: $query, first: %d) {
    edges {
      node {
        id
        vehicle {
          make { name }
          model { name }
          year
          mileage
        }
        pricing { listPrice }
      }
    }
  }
}
`

// TrueCarAPI is the structured fast channel: one GraphQL POST instead of a
// rendered page. Any failure here is recoverable; the orchestrator falls
// back to the rendered channel.
type TrueCarAPI struct {
	client   *http.Client
	endpoint string
	limiter  ratelimit.RateLimiter
	logger   *slog.Logger
}

func NewTrueCarAPI() *TrueCarAPI {
	return &TrueCarAPI{
		client:   &http.Client{Timeout: trueCarGraphQLTimeout},
		endpoint: trueCarGraphQLURL,
		limiter:  ratelimit.NewBucketRateLimiter(trueCarGraphQLBurst, trueCarGraphQLRefill),
		logger:   slog.Default().With("component", "scraper", "retailer", "truecar", "channel", "fast"),
	}
}

type trueCarGraphQLRequest struct {
	Query     string            `json:"query"`
	Variables map[string]string `json:"variables"`
}

type trueCarGraphQLResponse struct {
	Data struct {
		VehicleSearch struct {
			Edges []struct {
				Node struct {
					ID      string `json:"id"`
					Vehicle struct {
						Make    struct{ Name string } `json:"make"`
						Model   struct{ Name string } `json:"model"`
						Year    int                   `json:"year"`
						Mileage int                   `json:"mileage"`
					} `json:"vehicle"`
					Pricing struct {
						ListPrice int `json:"listPrice"`
					} `json:"pricing"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"vehicleSearch"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// SearchFast runs the GraphQL vehicle search. It requires make and model;
// a response carrying a top-level errors key counts as failure even with
// HTTP 200.
func (t *TrueCarAPI) SearchFast(ctx context.Context, q *query.CanonicalQuery, maxResults int) ([]listing.Listing, error) {
	if !q.HasMakeAndModel() {
		return nil, fmt.Errorf("graphql search requires make and model")
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait aborted: %w", err)
	}

	var terms []string
	terms = append(terms, q.FirstMake(), q.FirstModel())
	if q.Year != nil {
		terms = append(terms, strconv.Itoa(*q.Year))
	}

	body, err := json.Marshal(trueCarGraphQLRequest{
		Query:     fmt.Sprintf(trueCarSearchQuery, maxResults),
		Variables: map[string]string{"query": strings.Join(terms, " ")},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build graphql request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graphql request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graphql endpoint returned status %d", resp.StatusCode)
	}

	var decoded trueCarGraphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode graphql response: %w", err)
	}

	if len(decoded.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", decoded.Errors[0].Message)
	}

	var listings []listing.Listing
	for _, edge := range decoded.Data.VehicleSearch.Edges {
		node := edge.Node
		parts := []string{}
		if node.Vehicle.Year > 0 {
			parts = append(parts, strconv.Itoa(node.Vehicle.Year))
		}
		parts = append(parts, node.Vehicle.Make.Name, node.Vehicle.Model.Name)
		name := strings.TrimSpace(strings.Join(parts, " "))
		if node.Pricing.ListPrice <= 0 {
			continue
		}
		listings = append(listings, listing.Listing{
			Name:     name,
			Price:    node.Pricing.ListPrice,
			Mileage:  node.Vehicle.Mileage,
			Retailer: listing.RetailerTrueCar,
			URL:      trueCarBaseURL,
			Location: "TrueCar",
		})
	}

	t.logger.Debug("graphql search complete", "listings", len(listings))
	return listings, nil
}
