package query

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/carscout/carscout/internal/catalog"
)

// Parser converts raw natural-language text into a canonical query. The
// deterministic Normalizer always satisfies this; richer language-model
// backed parsers can too, with the Normalizer as mandatory fallback.
type Parser interface {
	Parse(ctx context.Context, raw string) (*CanonicalQuery, error)
}

// Normalizer is the deterministic rule-based query parser. Rules run in a
// fixed order over the lowercased query so identical input always yields an
// identical canonical query.
type Normalizer struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
}

func NewNormalizer(cat *catalog.Catalog) *Normalizer {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Normalizer{
		catalog: cat,
		logger:  slog.Default().With("component", "normalizer"),
	}
}

// Parse implements Parser. The deterministic path never fails.
func (n *Normalizer) Parse(_ context.Context, raw string) (*CanonicalQuery, error) {
	return n.Normalize(raw), nil
}

// Normalize runs the full rule chain and returns the canonical query.
func (n *Normalizer) Normalize(raw string) *CanonicalQuery {
	q := New(raw)
	lower := strings.ToLower(raw)

	n.applyPrice(q, lower)
	n.applyYear(q, raw)
	n.applyVocabulary(q, lower)
	n.applyMakes(q, lower)
	n.applyModels(q, lower)
	n.applyTrims(q, lower)

	n.logger.Debug("normalized query",
		"raw", raw,
		"makes", q.Makes,
		"models", q.Models,
		"trims", q.Trims)

	return q
}

// pricePatterns are tried in order; the first matching pattern wins. Two
// capture groups mean an explicit range, one means an upper bound.
var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`under\s*\$?(\d+)`),
	regexp.MustCompile(`below\s*\$?(\d+)`),
	regexp.MustCompile(`less than\s*\$?(\d+)`),
	regexp.MustCompile(`max\s*\$?(\d+)`),
	regexp.MustCompile(`\$?(\d+)\s*-\s*\$?(\d+)`),
	regexp.MustCompile(`between\s*\$?(\d+)\s*and\s*\$?(\d+)`),
	regexp.MustCompile(`up to\s*\$?(\d+)`),
}

func (n *Normalizer) applyPrice(q *CanonicalQuery, lower string) {
	for _, pattern := range pricePatterns {
		m := pattern.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		if len(m) == 3 && m[2] != "" {
			lo, _ := strconv.Atoi(m[1])
			hi, _ := strconv.Atoi(m[2])
			if lo > hi {
				lo, hi = hi, lo
			}
			q.MinPrice = intPtr(lo)
			q.MaxPrice = intPtr(hi)
		} else {
			max, _ := strconv.Atoi(m[1])
			q.MaxPrice = intPtr(max)
		}
		return
	}
}

var yearPattern = regexp.MustCompile(`\b(20\d{2})\b`)

func (n *Normalizer) applyYear(q *CanonicalQuery, raw string) {
	if m := yearPattern.FindStringSubmatch(raw); m != nil {
		year, _ := strconv.Atoi(m[1])
		q.Year = intPtr(year)
	}
}

// applyVocabulary matches the catalog's controlled vocabularies against the
// query. Single-valued fields take the first vocabulary entry found; the
// catalog orders entries so more specific values ("Plug-In Hybrid") precede
// their substrings ("Hybrid"). Features collect every match.
func (n *Normalizer) applyVocabulary(q *CanonicalQuery, lower string) {
	gf := n.catalog.GlobalFilters

	for _, color := range gf.ExteriorColors {
		if strings.Contains(lower, strings.ToLower(color)) {
			q.ExteriorColor = strPtr(color)
			break
		}
	}

	for _, bodyType := range gf.BodyTypes {
		if strings.Contains(lower, strings.ToLower(bodyType)) {
			q.BodyType = strPtr(bodyType)
			break
		}
	}

	for _, drivetrain := range gf.Drivetrains {
		if strings.Contains(lower, strings.ToLower(drivetrain)) {
			q.Drivetrain = strPtr(drivetrain)
			break
		}
	}

	for _, fuelType := range gf.FuelTypes {
		if strings.Contains(lower, strings.ToLower(fuelType)) {
			q.FuelType = strPtr(fuelType)
			break
		}
	}

	for _, feature := range gf.Features {
		if strings.Contains(lower, strings.ToLower(feature)) {
			q.Features = append(q.Features, feature)
		}
	}
}

// makeAliases maps query substrings to canonical make names. Order matters
// only for output ordering; every alias found in the query contributes its
// make, deduplicated.
var makeAliases = []struct {
	alias string
	name  string
}{
	{"gmc", "GMC"},
	{"ford", "Ford"},
	{"chevrolet", "Chevrolet"},
	{"chevy", "Chevrolet"},
	{"toyota", "Toyota"},
	{"honda", "Honda"},
	{"jeep", "Jeep"},
	{"ram", "Ram"},
	{"dodge", "Dodge"},
	{"nissan", "Nissan"},
	{"bmw", "BMW"},
	{"mercedes", "Mercedes"},
	{"lexus", "Lexus"},
	{"audi", "Audi"},
	{"cadillac", "Cadillac"},
	{"buick", "Buick"},
	{"lincoln", "Lincoln"},
	{"acura", "Acura"},
	{"infiniti", "Infiniti"},
	{"volkswagen", "Volkswagen"},
	{"volvo", "Volvo"},
	{"subaru", "Subaru"},
	{"mazda", "Mazda"},
	{"kia", "Kia"},
	{"hyundai", "Hyundai"},
	{"mitsubishi", "Mitsubishi"},
}

func (n *Normalizer) applyMakes(q *CanonicalQuery, lower string) {
	for _, entry := range makeAliases {
		if strings.Contains(lower, entry.alias) {
			q.Makes = appendUnique(q.Makes, entry.name)
		}
	}
}

// seriesSuffixes are pickup weight classes appended to Sierra and Silverado
// base model names when mentioned alongside them.
var seriesSuffixes = []string{"1500", "2500", "3500"}

// modelDetectors map query substrings to a canonical model. Detectors are
// tried in order and at most one model is assigned.
var modelDetectors = []struct {
	patterns []string
	model    string
}{
	{[]string{"f-150", "f150"}, "F-150"},
	{[]string{"rav4"}, "RAV4"},
	{[]string{"cr-v", "crv"}, "CR-V"},
	{[]string{"wrangler"}, "Wrangler"},
	{[]string{"grand cherokee"}, "Grand Cherokee"},
	{[]string{"tacoma"}, "Tacoma"},
	{[]string{"tundra"}, "Tundra"},
	{[]string{"camry"}, "Camry"},
	{[]string{"corvette"}, "Corvette"},
	{[]string{"mustang"}, "Mustang"},
}

func (n *Normalizer) applyModels(q *CanonicalQuery, lower string) {
	// Sierra and Silverado get their weight class folded into the model name
	// when the query names one.
	for _, base := range []string{"Sierra", "Silverado"} {
		if !strings.Contains(lower, strings.ToLower(base)) {
			continue
		}
		model := base
		for _, series := range seriesSuffixes {
			if strings.Contains(lower, series) {
				model = base + " " + series
				break
			}
		}
		q.Models = appendUnique(q.Models, model)
		return
	}

	for _, detector := range modelDetectors {
		for _, pattern := range detector.patterns {
			if strings.Contains(lower, pattern) {
				q.Models = appendUnique(q.Models, detector.model)
				return
			}
		}
	}
}

// trimPatterns map query substrings to canonical trim names. Longer patterns
// precede their substrings so "denali ultimate" contributes Denali Ultimate
// before the bare "denali" check also fires.
var trimPatterns = []struct {
	pattern string
	name    string
}{
	{"denali ultimate", "Denali Ultimate"},
	{"denali", "Denali"},
	{"at4", "AT4"},
	{"lariat", "Lariat"},
	{"king ranch", "King Ranch"},
	{"platinum", "Platinum"},
	{"limited", "Limited"},
	{"rubicon", "Rubicon"},
	{"sahara", "Sahara"},
	{"xle", "XLE"},
	{"xse", "XSE"},
}

func (n *Normalizer) applyTrims(q *CanonicalQuery, lower string) {
	for _, entry := range trimPatterns {
		if strings.Contains(lower, entry.pattern) {
			q.Trims = appendUnique(q.Trims, entry.name)
		}
	}
}
