package scraper

import (
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/carscout/carscout/internal/browser"
	"github.com/carscout/carscout/internal/listing"
	"github.com/carscout/carscout/internal/parser"
	"github.com/carscout/carscout/internal/query"
)

const (
	kbbBaseURL      = "https://www.kbb.com"
	kbbLinkSelector = `a[href*="/cars-for-sale/vehicledetails.xhtml/"]`
	kbbMinTitleLen  = 6
)

var (
	kbbConditionLine = regexp.MustCompile(`(New|Used|Certified)\s+\d{4}`)
	kbbPriceLine     = regexp.MustCompile(`\$?([\d,]+)`)
	kbbDealerWords   = regexp.MustCompile(`(?i)(Buick|GMC|Chevrolet|Ford|Toyota|Honda|Dealer)`)
	kbbDollarAmount  = regexp.MustCompile(`\$[\d,]+`)
	kbbListingID     = regexp.MustCompile(`listingId=([^&#]+)`)
)

// KBB scrapes kbb.com classified search pages. Listing cards render as one
// anchor whose text stacks condition, title, price and dealer on separate
// lines, so extraction is line-oriented rather than selector-oriented.
type KBB struct {
	logger *slog.Logger
}

func NewKBB() *KBB {
	return &KBB{
		logger: slog.Default().With("component", "scraper", "retailer", "kbb"),
	}
}

func (k *KBB) Name() listing.Retailer {
	return listing.RetailerKBB
}

// BuildRequest always uses the keyword search endpoint; the site's keyword
// matcher handles structured and free-text queries alike.
func (k *KBB) BuildRequest(q *query.CanonicalQuery, _ int) (*Request, error) {
	terms := searchTerms(q)
	if terms == "" {
		return nil, fmt.Errorf("empty query for kbb")
	}

	params := url.Values{}
	params.Set("searchRadius", "75")
	params.Set("city", "San Mateo")
	params.Set("state", "CA")
	params.Set("zip", "94401")
	params.Set("allListingType", "all")
	params.Set("keywords", terms)

	return &Request{
		URL:          fmt.Sprintf("%s/cars-for-sale/all?%s", kbbBaseURL, params.Encode()),
		HomeURL:      kbbBaseURL,
		LinkSelector: kbbLinkSelector,
	}, nil
}

func (k *KBB) Classify(bodyText string) parser.Verdict {
	return parser.Classify(bodyText)
}

func (k *KBB) Extract(page browser.Page, maxResults int) ([]listing.Candidate, error) {
	links, err := page.QuerySelectorAll(kbbLinkSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to query listing links: %w", err)
	}

	var candidates []listing.Candidate
	for _, link := range links {
		if len(candidates) >= maxResults {
			break
		}

		text, err := link.InnerText()
		if err != nil {
			continue
		}

		href, err := link.GetAttribute("href")
		if err != nil {
			href = ""
		}
		if href != "" && !strings.HasPrefix(href, "http") {
			href = kbbBaseURL + href
		}

		candidate := parseKBBCard(text)
		if candidate.Price <= 0 {
			continue
		}
		candidate.PageURL = href
		candidate.VehicleID = kbbVehicleID(href)

		if html, err := link.OuterHTML(); err == nil && html != "" {
			card := parser.ParseCard(html, parser.CardSelectors{Image: "img"})
			candidate.ImageURL = card.Image
		}

		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

// parseKBBCard splits a card's stacked text into lines and assigns each
// line a role: condition+year, price, vehicle title, or dealer.
func parseKBBCard(text string) listing.Candidate {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	var candidate listing.Candidate
	condition := ""

	// Price is the first line holding a comma-grouped amount; bare small
	// numbers (years, door counts) never carry commas.
	for _, line := range lines {
		if m := kbbPriceLine.FindStringSubmatch(line); m != nil && strings.Contains(m[1], ",") {
			candidate.RawPriceText = line
			candidate.Price = parser.ExtractNumber(line)
			break
		}
	}

	// Cards stack condition, title, price, then dealer, so the title is the
	// first substantial line that is neither a condition nor a price.
	for _, line := range lines {
		if kbbConditionLine.MatchString(line) {
			condition = strings.Fields(line)[0]
			continue
		}
		if kbbDollarAmount.MatchString(line) {
			continue
		}
		if len(line) >= kbbMinTitleLen {
			candidate.TitleText = line
			break
		}
	}

	candidate.LocationText = "KBB Dealer"
	for _, line := range lines {
		if line == candidate.TitleText {
			continue
		}
		if kbbDealerWords.MatchString(line) &&
			!strings.HasPrefix(line, "Confirm") && !strings.HasPrefix(line, "New") {
			candidate.LocationText = line
			break
		}
	}

	// New vehicles list no odometer; only used inventory carries mileage,
	// often K-abbreviated ("60K mi").
	if strings.EqualFold(condition, "used") {
		candidate.RawMileageText = text
		candidate.Mileage = parser.ParseMileage(text)
	}

	return candidate
}

func kbbVehicleID(href string) string {
	if m := kbbListingID.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	return ""
}
