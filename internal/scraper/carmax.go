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
	carMaxBaseURL      = "https://www.carmax.com"
	carMaxLinkSelector = `a[href*="/car/"]`
	carMaxMinTitleLen  = 10
)

var carMaxStockID = regexp.MustCompile(`/car/(\d+)`)

// CarMax scrapes carmax.com inventory pages. Filter values ride as extra
// URL path segments after the make and model.
type CarMax struct {
	logger *slog.Logger
}

func NewCarMax() *CarMax {
	return &CarMax{
		logger: slog.Default().With("component", "scraper", "retailer", "carmax"),
	}
}

func (c *CarMax) Name() listing.Retailer {
	return listing.RetailerCarMax
}

func (c *CarMax) BuildRequest(q *query.CanonicalQuery, _ int) (*Request, error) {
	var path string
	if q.HasMakeAndModel() {
		path = fmt.Sprintf("/cars/%s/%s", slugify(q.FirstMake()), slugify(q.FirstModel()))
		if filter := carMaxFilterSlug(q); filter != "" {
			path += "/" + filter
		}
	} else {
		terms := searchTerms(q)
		if terms == "" {
			return nil, fmt.Errorf("empty query for carmax")
		}
		path = "/cars/" + slugify(terms)
	}

	return &Request{
		URL:          fmt.Sprintf("%s%s?showreservedcars=false", carMaxBaseURL, path),
		HomeURL:      carMaxBaseURL,
		LinkSelector: carMaxLinkSelector,
	}, nil
}

// carMaxFilterSlug picks the single most selective filter the URL scheme
// accepts: trim first, then exterior color, then drivetrain.
func carMaxFilterSlug(q *query.CanonicalQuery) string {
	if trim := q.FirstTrim(); trim != "" {
		return slugify(trim)
	}
	if q.ExteriorColor != nil {
		return slugify(*q.ExteriorColor)
	}
	if q.Drivetrain != nil {
		return slugify(*q.Drivetrain)
	}
	return ""
}

func (c *CarMax) Classify(bodyText string) parser.Verdict {
	return parser.Classify(bodyText)
}

func (c *CarMax) Extract(page browser.Page, maxResults int) ([]listing.Candidate, error) {
	links, err := page.QuerySelectorAll(carMaxLinkSelector)
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

		m := carMaxStockID.FindStringSubmatch(href)
		if m == nil {
			continue
		}
		stockID := m[1]
		if seen[stockID] {
			continue
		}
		seen[stockID] = true

		if !strings.HasPrefix(href, "http") {
			href = carMaxBaseURL + href
		}

		title, err := link.InnerText()
		if err != nil {
			continue
		}
		title = strings.TrimSpace(title)
		if len(title) < carMaxMinTitleLen {
			continue
		}

		cardText, err := link.AncestorText(ancestorMaxDepth, ancestorMinCardText)
		if err != nil {
			c.logger.Debug("card text lookup failed", "stock_id", stockID, "error", err)
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
			ImageURL:     image,
			PageURL:      href,
			LocationText: "CarMax",
			VehicleID:    stockID,
		})
	}

	return candidates, nil
}
