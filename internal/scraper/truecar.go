package scraper

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/carscout/carscout/internal/browser"
	"github.com/carscout/carscout/internal/listing"
	"github.com/carscout/carscout/internal/parser"
	"github.com/carscout/carscout/internal/query"
)

const (
	trueCarBaseURL      = "https://www.truecar.com"
	trueCarCardSelector = `[data-test="vehicleListingCard"]`
	trueCarMinPriceLow  = 2000
)

var trueCarListingID = regexp.MustCompile(`/listing/([A-Za-z0-9-]+)`)

var trueCarCardSelectors = parser.CardSelectors{
	Title: []string{"h3", "h2"},
	Price: []string{`[data-test="vehicleCardPricingPrice"]`},
	Link:  `a[href*="/listing/"]`,
	Image: "img",
}

// TrueCar scrapes truecar.com inventory pages; the orchestrator prefers the
// site's GraphQL channel and only lands here on fallback.
type TrueCar struct {
	logger *slog.Logger
}

func NewTrueCar() *TrueCar {
	return &TrueCar{
		logger: slog.Default().With("component", "scraper", "retailer", "truecar"),
	}
}

func (t *TrueCar) Name() listing.Retailer {
	return listing.RetailerTrueCar
}

// BuildRequest encodes the canonical query into the site's inventory filter
// parameters. The mmt value packs make, model and trim into one token:
// make_model or make_model_trim, with the model slug carrying any series.
func (t *TrueCar) BuildRequest(q *query.CanonicalQuery, _ int) (*Request, error) {
	if !q.HasMakeAndModel() {
		terms := searchTerms(q)
		if terms == "" {
			return nil, fmt.Errorf("empty query for truecar")
		}
		return &Request{
			URL: fmt.Sprintf("%s/used-cars-for-sale/listings/?searchQuery=%s",
				trueCarBaseURL, strings.ReplaceAll(terms, " ", "+")),
			HomeURL:      trueCarBaseURL,
			LinkSelector: trueCarCardSelector,
		}, nil
	}

	mmt := slugify(q.FirstMake()) + "_" + slugify(q.FirstModel())
	if trim := q.FirstTrim(); trim != "" {
		mmt += "_" + slugify(trim)
	}

	params := []string{
		"mmt[]=" + mmt,
		"searchRadius=5000",
		"state=ca",
		"city=south-san-francisco",
	}

	if q.Year != nil {
		params = append(params,
			"yearHigh="+strconv.Itoa(*q.Year),
			"yearLow="+strconv.Itoa(*q.Year))
	}
	if q.MaxPrice != nil {
		params = append(params, "price_high="+strconv.Itoa(*q.MaxPrice))
		low := trueCarMinPriceLow
		if q.MinPrice != nil {
			low = *q.MinPrice
		}
		params = append(params, "price_low="+strconv.Itoa(low))
	}
	if style := trueCarBodyStyle(q.BodyType); style != "" {
		params = append(params, "bodyStyles[]="+style)
	}
	if dt := trueCarDrivetrain(q.Drivetrain); dt != "" {
		params = append(params, "driveTrain[]="+dt)
	}
	if fuel := trueCarFuelType(q.FuelType); fuel != "" {
		params = append(params, "fuelType[]="+fuel)
	}

	return &Request{
		URL: fmt.Sprintf("%s/used-cars-for-sale/listings/inventory/?%s",
			trueCarBaseURL, strings.Join(params, "&")),
		HomeURL:      trueCarBaseURL,
		LinkSelector: trueCarCardSelector,
	}, nil
}

func trueCarBodyStyle(bodyType *string) string {
	if bodyType == nil {
		return ""
	}
	lower := strings.ToLower(*bodyType)
	switch {
	case strings.Contains(lower, "truck") || strings.Contains(lower, "pickup"):
		return "truck"
	case strings.Contains(lower, "suv"):
		return "suv"
	case strings.Contains(lower, "sedan"):
		return "sedan"
	}
	return ""
}

func trueCarDrivetrain(drivetrain *string) string {
	if drivetrain == nil {
		return ""
	}
	upper := strings.ToUpper(*drivetrain)
	switch {
	case strings.Contains(upper, "4WD") || strings.Contains(upper, "AWD") ||
		strings.Contains(upper, "FOUR WHEEL") || strings.Contains(upper, "ALL WHEEL"):
		return "4WD"
	case strings.Contains(upper, "2WD") || strings.Contains(upper, "RWD") ||
		strings.Contains(upper, "REAR WHEEL"):
		return "2WD"
	}
	return ""
}

func trueCarFuelType(fuelType *string) string {
	if fuelType == nil {
		return ""
	}
	lower := strings.ToLower(*fuelType)
	switch {
	case strings.Contains(lower, "diesel"):
		return "Diesel"
	case strings.Contains(lower, "electric"):
		return "Electric"
	case strings.Contains(lower, "hybrid"):
		return "Hybrid"
	}
	return ""
}

func (t *TrueCar) Classify(bodyText string) parser.Verdict {
	return parser.Classify(bodyText)
}

// Extract parses listing cards directly; TrueCar renders self-contained
// card elements, so no ancestor walking is needed.
func (t *TrueCar) Extract(page browser.Page, maxResults int) ([]listing.Candidate, error) {
	cards, err := page.QuerySelectorAll(trueCarCardSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to query listing cards: %w", err)
	}

	var candidates []listing.Candidate
	for _, element := range cards {
		if len(candidates) >= maxResults {
			break
		}

		html, err := element.OuterHTML()
		if err != nil || html == "" {
			continue
		}

		card := parser.ParseCard(html, trueCarCardSelectors)

		price := parser.ParsePrice(card.PriceText)
		if price <= 0 {
			price = parser.ParsePrice(card.Text)
		}
		if price <= 0 {
			continue
		}

		title := card.Title
		if title == "" {
			title = strings.TrimSpace(card.Text)
		}

		pageURL := card.URL
		if pageURL != "" && !strings.HasPrefix(pageURL, "http") {
			pageURL = trueCarBaseURL + pageURL
		}

		candidates = append(candidates, listing.Candidate{
			TitleText:    title,
			RawPriceText: card.PriceText,
			Price:        price,
			Mileage:      parser.ParseMileage(card.Text),
			ImageURL:     card.Image,
			PageURL:      pageURL,
			LocationText: "TrueCar",
			VehicleID:    trueCarVehicleID(pageURL),
		})
	}

	return candidates, nil
}

func trueCarVehicleID(href string) string {
	if m := trueCarListingID.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	return ""
}
