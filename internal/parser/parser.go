package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Plausible price bounds for the numeric-token fallback. Tokens in the
// calendar-year range are excluded because a "2023" in a title is easily
// mistaken for a price fragment.
const (
	minPlausiblePrice = 5000
	maxPlausiblePrice = 500000
	yearRangeLow      = 1900
	yearRangeHigh     = 2100
)

var (
	dollarPricePattern  = regexp.MustCompile(`\$\s*([\d,]+)`)
	commaGroupedPattern = regexp.MustCompile(`\d{1,2},\d{3}`)
	bareNumberPattern   = regexp.MustCompile(`\d{5,6}`)
	mileagePattern      = regexp.MustCompile(`(?i)([\d,]*\d)\s*(k)?\s*mi(?:les)?\b`)
	nonNumericPattern   = regexp.MustCompile(`[^\d,.]`)
)

// ExtractNumber strips everything but digits from free text and parses the
// remainder. Returns 0 when nothing numeric survives.
func ExtractNumber(text string) int {
	if text == "" {
		return 0
	}
	cleaned := nonNumericPattern.ReplaceAllString(text, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if dot := strings.IndexByte(cleaned, '.'); dot >= 0 {
		cleaned = cleaned[:dot]
	}
	if cleaned == "" {
		return 0
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0
	}
	return n
}

// ParsePrice resolves a price from listing text. It prefers an explicit
// "$12,345" match and falls back to the numeric-token heuristic.
func ParsePrice(text string) int {
	if m := dollarPricePattern.FindStringSubmatch(text); m != nil {
		return ExtractNumber(m[1])
	}
	return PriceFromTokens(text)
}

// PriceFromTokens applies the numeric-token price heuristic: collect
// comma-grouped (then bare 5-6 digit) tokens, drop anything that looks like
// a calendar year, keep tokens in the plausible price range, and take the
// last qualifying token in document order. Listings render price after other
// numeric noise such as MPG and year in the observed markup.
func PriceFromTokens(text string) int {
	candidates := qualifyingTokens(commaGroupedPattern.FindAllString(text, -1))
	if len(candidates) == 0 {
		candidates = qualifyingTokens(bareNumberPattern.FindAllString(text, -1))
	}
	if len(candidates) == 0 {
		return 0
	}
	return candidates[len(candidates)-1]
}

func qualifyingTokens(tokens []string) []int {
	var out []int
	for _, tok := range tokens {
		n := ExtractNumber(tok)
		if n >= yearRangeLow && n <= yearRangeHigh {
			continue
		}
		if n >= minPlausiblePrice && n <= maxPlausiblePrice {
			out = append(out, n)
		}
	}
	return out
}

// ParseMileage resolves a mileage from listing text via the "digits mi"
// pattern. A K suffix ("60K mi") multiplies by a thousand.
func ParseMileage(text string) int {
	m := mileagePattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	miles := ExtractNumber(m[1])
	if m[2] != "" {
		miles *= 1000
	}
	return miles
}

// CardSelectors is the prioritized selector set one retailer uses to pull
// fields out of a listing card's markup.
type CardSelectors struct {
	Title []string
	Price []string
	Link  string
	Image string
}

// Card holds the fields the selector tier resolved from one candidate
// element's markup. Empty fields fall through to the later tiers.
type Card struct {
	Title     string
	PriceText string
	URL       string
	Image     string
	Text      string
}

// ParseCard extracts card fields from a candidate element's HTML using the
// retailer's prioritized selectors. The first selector returning a non-empty
// node wins per field.
func ParseCard(html string, sel CardSelectors) Card {
	var card Card

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return card
	}

	card.Text = strings.TrimSpace(doc.Text())

	for _, s := range sel.Title {
		if title := strings.TrimSpace(doc.Find(s).First().Text()); title != "" {
			card.Title = title
			break
		}
	}

	for _, s := range sel.Price {
		if price := strings.TrimSpace(doc.Find(s).First().Text()); price != "" {
			card.PriceText = price
			break
		}
	}

	if sel.Link != "" {
		if href, ok := doc.Find(sel.Link).First().Attr("href"); ok {
			card.URL = strings.TrimSpace(href)
		}
	}

	if sel.Image != "" {
		if src, ok := doc.Find(sel.Image).First().Attr("src"); ok {
			card.Image = strings.TrimSpace(src)
		}
	}

	return card
}
