package scraper

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/carscout/carscout/internal/browser"
	"github.com/carscout/carscout/internal/listing"
	"github.com/carscout/carscout/internal/parser"
	"github.com/carscout/carscout/internal/query"
)

var (
	// ErrBlocked marks a fetch stopped by retailer defenses. Terminal for
	// the retailer within the current acquisition.
	ErrBlocked = errors.New("blocked by retailer defenses")
	// ErrNoResults marks a legitimately empty inventory response.
	ErrNoResults = errors.New("no matching inventory")
	// ErrCapabilityUnavailable marks a missing prerequisite, such as a
	// browser engine that failed to start.
	ErrCapabilityUnavailable = errors.New("render capability unavailable")
)

// Channel names the acquisition path that produced a result.
type Channel string

const (
	ChannelFast     Channel = "fast"
	ChannelRendered Channel = "rendered"
)

// Request describes one rendered-page fetch for a retailer.
type Request struct {
	// URL is the search results page to load.
	URL string
	// HomeURL, when set, is visited first so the search navigation carries
	// ordinary referrer and cookie state.
	HomeURL string
	// LinkSelector matches the per-listing anchors used to judge when
	// lazy-loaded results have stopped growing.
	LinkSelector string
}

// Retailer adapts one site to the acquisition pipeline: translate the
// canonical query to a site request, judge the fetched page, and extract
// raw candidates from it.
type Retailer interface {
	Name() listing.Retailer
	BuildRequest(q *query.CanonicalQuery, maxResults int) (*Request, error)
	Classify(bodyText string) parser.Verdict
	Extract(page browser.Page, maxResults int) ([]listing.Candidate, error)
}

// FastSearcher is the optional structured API channel a retailer may offer
// alongside its rendered pages.
type FastSearcher interface {
	SearchFast(ctx context.Context, q *query.CanonicalQuery, maxResults int) ([]listing.Listing, error)
}

const (
	maxScrollAttempts = 15
	scrollStepBase    = 1000
	scrollStepGrowth  = 800
)

// scrollUntilStable drives lazy-loading result pages: scroll in growing
// steps until the listing link count stops changing or covers the wanted
// result count, then return to the top for consistent parsing.
func scrollUntilStable(page browser.Page, linkSelector string, want int, pause time.Duration) int {
	lastCount := -1

	for attempt := 0; attempt < maxScrollAttempts; attempt++ {
		links, err := page.QuerySelectorAll(linkSelector)
		if err != nil {
			break
		}
		count := len(links)

		if count >= want || count == lastCount {
			break
		}
		lastCount = count

		if err := page.ScrollBy(0, attempt*scrollStepGrowth+scrollStepBase); err != nil {
			break
		}
		time.Sleep(pause)
	}

	if _, err := page.Evaluate("window.scrollTo(0, 0)"); err == nil {
		time.Sleep(pause)
	}

	links, err := page.QuerySelectorAll(linkSelector)
	if err != nil {
		return 0
	}
	return len(links)
}

// slugify lowercases and hyphenates a phrase for URL path segments.
func slugify(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}

// searchTerms flattens the structured fields back into free text for
// keyword-style search URLs, falling back to the raw query text.
func searchTerms(q *query.CanonicalQuery) string {
	var parts []string
	if q.Year != nil && *q.Year > 0 {
		parts = append(parts, strconv.Itoa(*q.Year))
	}
	parts = append(parts, q.Makes...)
	parts = append(parts, q.Models...)
	parts = append(parts, q.Trims...)

	if len(parts) == 0 {
		return strings.TrimSpace(q.Raw)
	}
	return strings.Join(parts, " ")
}
