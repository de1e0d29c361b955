package scraper

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/carscout/carscout/internal/browser"
	"github.com/carscout/carscout/internal/listing"
	"github.com/carscout/carscout/internal/parser"
	"github.com/carscout/carscout/internal/query"
)

const (
	autoTraderBaseURL      = "https://www.autotrader.com"
	autoTraderRegion       = "san-mateo-ca"
	autoTraderRadius       = 500
	autoTraderLinkSelector = `a[href*="/cars-for-sale/vehicle/"]`

	// Matched link text below this length is navigation chrome, not a
	// listing title.
	autoTraderMinTitleLen = 10

	ancestorMaxDepth    = 12
	ancestorMinCardText = 100
	imageAncestorDepth  = 8
)

var (
	autoTraderVehicleID = regexp.MustCompile(`/vehicle/(\d+)`)
	autoTraderDealer    = regexp.MustCompile(`([A-Z][a-zA-Z]+\s+(?:Buick|GMC|Ford|Toyota|Honda|Chevrolet)\s+(?:[A-Z][a-z]+)?)`)

	// Badge texts that render as anchors matching the listing link selector.
	autoTraderSkipTitles = map[string]bool{
		"No Accidents": true,
		"Clean Title":  true,
	}
)

// AutoTrader scrapes autotrader.com search result pages.
type AutoTrader struct {
	logger *slog.Logger
}

func NewAutoTrader() *AutoTrader {
	return &AutoTrader{
		logger: slog.Default().With("component", "scraper", "retailer", "autotrader"),
	}
}

func (a *AutoTrader) Name() listing.Retailer {
	return listing.RetailerAutoTrader
}

// BuildRequest prefers the structured make/model path and falls back to the
// site's free-text slug search.
func (a *AutoTrader) BuildRequest(q *query.CanonicalQuery, _ int) (*Request, error) {
	var url string
	if q.HasMakeAndModel() {
		url = fmt.Sprintf("%s/cars-for-sale/%s/%s/%s?searchRadius=%d",
			autoTraderBaseURL, slugify(q.FirstMake()), slugify(q.FirstModel()),
			autoTraderRegion, autoTraderRadius)
	} else {
		terms := searchTerms(q)
		if terms == "" {
			return nil, fmt.Errorf("empty query for autotrader")
		}
		url = fmt.Sprintf("%s/cars-for-sale/all-cars/%s/%s?searchRadius=%d",
			autoTraderBaseURL, slugify(terms), autoTraderRegion, autoTraderRadius)
	}

	return &Request{
		URL:          url,
		HomeURL:      autoTraderBaseURL,
		LinkSelector: autoTraderLinkSelector,
	}, nil
}

func (a *AutoTrader) Classify(bodyText string) parser.Verdict {
	return parser.Classify(bodyText)
}

// Extract walks the per-vehicle anchors. Each anchor's surrounding card is
// recovered by ancestor-text walking; price falls through the dollar match
// to the numeric-token heuristic.
func (a *AutoTrader) Extract(page browser.Page, maxResults int) ([]listing.Candidate, error) {
	links, err := page.QuerySelectorAll(autoTraderLinkSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to query listing links: %w", err)
	}

	var candidates []listing.Candidate
	seen := map[string]bool{}

	for _, link := range links {
		if len(candidates) >= maxResults {
			break
		}

		href, err := link.GetAttribute("href")
		if err != nil || href == "" {
			continue
		}
		href = strings.SplitN(href, "#", 2)[0]

		m := autoTraderVehicleID.FindStringSubmatch(href)
		if m == nil {
			continue
		}
		vehicleID := m[1]
		if seen[vehicleID] {
			continue
		}
		seen[vehicleID] = true

		if !strings.HasPrefix(href, "http") {
			href = autoTraderBaseURL + href
		}

		title, err := link.InnerText()
		if err != nil {
			continue
		}
		title = strings.TrimSpace(title)
		if len(title) < autoTraderMinTitleLen || autoTraderSkipTitles[title] {
			continue
		}

		cardText, err := link.AncestorText(ancestorMaxDepth, ancestorMinCardText)
		if err != nil {
			a.logger.Debug("card text lookup failed", "vehicle_id", vehicleID, "error", err)
		}

		price := parser.ParsePrice(cardText)
		if price <= 0 {
			continue
		}

		image, _ := link.AncestorImageSrc(imageAncestorDepth)

		candidates = append(candidates, listing.Candidate{
			TitleText:    title,
			Price:        price,
			Mileage:      parser.ParseMileage(cardText),
			ImageURL:     upgradeAutoTraderImage(image),
			PageURL:      href,
			LocationText: autoTraderLocation(cardText),
			VehicleID:    vehicleID,
		})
	}

	return candidates, nil
}

// upgradeAutoTraderImage swaps thumbnail path segments for the larger
// rendition the CDN also serves.
func upgradeAutoTraderImage(src string) string {
	src = strings.ReplaceAll(src, "/w100/", "/w400/")
	return strings.ReplaceAll(src, "/h100/", "/h300/")
}

func autoTraderLocation(cardText string) string {
	if m := autoTraderDealer.FindStringSubmatch(cardText); m != nil {
		return fmt.Sprintf("AutoTrader (%s)", strings.TrimSpace(m[1]))
	}
	return "AutoTrader"
}
