package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/carscout/carscout/internal/browser"
)

// Bounded link scans keep a discovery run from crawling thousands of nodes
// on dense inventory pages.
const (
	maxTrimLinks    = 50
	maxSimilarLinks = 30
	maxModelLinks   = 100

	discoverNavTimeout = 30 * time.Second
	discoverSettle     = 2 * time.Second
)

// knownMakes seeds discovery. Slugs match the retailer's URL scheme.
var knownMakes = []string{
	"acura", "audi", "bmw", "buick", "cadillac", "chevrolet", "chrysler",
	"dodge", "fiat", "ford", "genesis", "gmc", "honda", "hyundai", "infiniti",
	"jaguar", "jeep", "kia", "land-rover", "lexus", "lincoln", "mazda",
	"mercedes-benz", "mini", "mitsubishi", "nissan", "ram", "rivian", "scion",
	"smart", "subaru", "tesla", "toyota", "volkswagen", "volvo",
}

// commonTrims are trim slugs recognized in listing titles and filter URLs.
var commonTrims = []string{
	"base", "le", "se", "xle", "xse", "limited", "platinum", "premium",
	"xl", "xlt", "lariat", "king-ranch", "raptor", "tremor",
	"sle", "slt", "denali", "denali-ultimate", "at4", "at4x", "elevation", "pro",
	"lx", "ex", "touring", "ex-l", "elite",
	"sport", "rubicon", "sahara", "overland", "summit", "trailhawk",
	"es", "gs", "ls", "nx", "rx", "gx", "tx",
	"s", "sel", "titanium", "ses",
	"signature", "select", "reserve",
	"big-horn", "lone-star", "longhorn", "tradesman", "rebel",
	"prime", "adventure", "trd-off-road", "trd-off-road-premium",
	"sv", "sl", "platinum-reserve", "night-edition",
}

// Slug vocabularies used to categorize filter URLs and to tell filter pages
// apart from model pages during discovery.
var (
	drivetrainSlugs = []string{
		"four-wheel-drive", "rear-wheel-drive", "all-wheel-drive",
		"front-wheel-drive", "4x4", "4x2", "awd", "fwd", "rwd",
	}
	fuelTypeSlugs = []string{"gas", "diesel", "electric", "hybrid", "plug-in-hybrid"}
	colorSlugs    = []string{
		"black", "white", "gray", "grey", "silver", "blue", "red", "green",
		"brown", "gold", "orange", "purple", "beige", "charcoal", "tan",
		"pearl", "metallic",
	}
	featureSlugs = []string{
		"heated-seats", "heated-ventilated-seats", "heated-steering-wheel",
		"ventilated-seats", "leather-seats", "memory-seats", "power-seats",
		"massaging-seats", "seat-massagers", "remote-start", "tow-hitch",
		"gooseneck-tow-hitch", "navigation", "navigation-system", "sunroof",
		"moonroof", "panoramic-sunroof", "backup-camera", "surround-camera",
		"360-camera", "blind-spot-monitoring", "blind-spot", "lane-keep-assist",
		"lane-keep", "adaptive-cruise-control", "adaptive-cruise",
		"premium-audio", "wireless-charging", "head-up-display",
		"apple-carplay", "android-auto", "rear-entertainment-system",
	}
	vehicleTypeSlugs = []string{
		"suv", "truck", "pickup-trucks", "sedans", "coupes", "convertibles",
		"hatchbacks", "wagons", "minivans", "vans", "crossovers",
		"luxury-vehicles", "sports-cars", "electric", "hybrid", "diesel",
		"plug-in-hybrid",
	}
)

// filterTerms lists every slug that marks a URL segment as a filter rather
// than a model.
var filterTerms = buildFilterTerms()

func buildFilterTerms() map[string]bool {
	terms := map[string]bool{
		"automatic": true, "manual": true, "transmission": true,
		"cylinders": true, "doors": true,
		"20-inch-plus-wheels": true, "18-inch-plus-wheels": true,
		"quad-seats": true, "full-roof-rack": true, "soft-top": true,
		"turbo-charged-engine": true,
	}
	for _, group := range [][]string{
		drivetrainSlugs, fuelTypeSlugs, colorSlugs, featureSlugs, vehicleTypeSlugs,
	} {
		for _, slug := range group {
			terms[slug] = true
		}
	}
	return terms
}

// Discoverer crawls the retailer's inventory pages and builds a fresh
// catalog of valid filter values per make and model.
type Discoverer struct {
	pages   browser.PageFactory
	baseURL string
	makes   []string
	settle  time.Duration
	logger  *slog.Logger
}

func NewDiscoverer(pages browser.PageFactory) *Discoverer {
	return &Discoverer{
		pages:   pages,
		baseURL: "https://www.carmax.com",
		makes:   knownMakes,
		settle:  discoverSettle,
		logger:  slog.Default().With("component", "catalog-discovery"),
	}
}

// Discover crawls every known make and returns an immutable catalog. Makes
// that fail to load are skipped, not fatal; the catalog records only what
// was actually observed.
func (d *Discoverer) Discover(ctx context.Context) (*Catalog, error) {
	page, err := d.pages.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open discovery page: %w", err)
	}
	defer page.Close()

	filters := map[string]map[string]Filters{}
	modelsTotal := 0

	for i, makeSlug := range d.makes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		d.logger.Info("discovering make",
			"make", makeSlug,
			"progress", fmt.Sprintf("%d/%d", i+1, len(d.makes)))

		models, err := d.discoverModels(page, makeSlug)
		if err != nil {
			d.logger.Warn("model discovery failed", "make", makeSlug, "error", err)
			continue
		}
		if len(models) == 0 {
			continue
		}

		perModel := map[string]Filters{}
		for _, model := range models {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			f, err := d.extractModelFilters(page, makeSlug, model)
			if err != nil {
				d.logger.Warn("filter extraction failed",
					"make", makeSlug, "model", model, "error", err)
				f = Filters{}
			}
			perModel[model] = f
		}

		filters[makeSlug] = perModel
		modelsTotal += len(models)
	}

	return &Catalog{
		Version:       "1.0",
		LastUpdated:   time.Now().Format(time.RFC3339),
		MakesCount:    len(filters),
		ModelsCount:   modelsTotal,
		Filters:       filters,
		GlobalFilters: Default().GlobalFilters,
	}, nil
}

// discoverModels scans a make's inventory page for model links.
func (d *Discoverer) discoverModels(page browser.Page, makeSlug string) ([]string, error) {
	url := fmt.Sprintf("%s/cars/%s?showreservedcars=false", d.baseURL, makeSlug)
	if err := page.Navigate(url, discoverNavTimeout); err != nil {
		return nil, fmt.Errorf("failed to load make page: %w", err)
	}
	time.Sleep(d.settle)

	links, err := page.QuerySelectorAll(`a[href^="/cars/"]`)
	if err != nil {
		return nil, fmt.Errorf("failed to query model links: %w", err)
	}
	if len(links) > maxModelLinks {
		links = links[:maxModelLinks]
	}

	seen := map[string]bool{}
	for _, link := range links {
		href, err := link.GetAttribute("href")
		if err != nil || href == "" {
			continue
		}
		model, ok := ModelFromPath(href, makeSlug)
		if ok {
			seen[model] = true
		}
	}

	models := make([]string, 0, len(seen))
	for model := range seen {
		models = append(models, model)
	}
	sort.Strings(models)
	return models, nil
}

// extractModelFilters visits one model page and harvests trims from listing
// titles plus filter values from the related-search links.
func (d *Discoverer) extractModelFilters(page browser.Page, makeSlug, model string) (Filters, error) {
	url := fmt.Sprintf("%s/cars/%s/%s?showreservedcars=false", d.baseURL, makeSlug, model)
	if err := page.Navigate(url, discoverNavTimeout); err != nil {
		return Filters{}, fmt.Errorf("failed to load model page: %w", err)
	}
	time.Sleep(d.settle)

	trims := map[string]bool{}
	colors := map[string]bool{}
	drivetrains := map[string]bool{}
	features := map[string]bool{}
	fuelTypes := map[string]bool{}

	carLinks, err := page.QuerySelectorAll(`a[href*="/car/"]`)
	if err != nil {
		return Filters{}, fmt.Errorf("failed to query listing links: %w", err)
	}
	if len(carLinks) > maxTrimLinks {
		carLinks = carLinks[:maxTrimLinks]
	}
	for _, link := range carLinks {
		text, err := link.InnerText()
		if err != nil {
			continue
		}
		for _, trim := range TrimsInTitle(text) {
			trims[trim] = true
		}
	}

	similarLinks, err := page.QuerySelectorAll(fmt.Sprintf(`a[href^="/cars/%s/"]`, makeSlug))
	if err != nil {
		return Filters{}, fmt.Errorf("failed to query filter links: %w", err)
	}
	if len(similarLinks) > maxSimilarLinks {
		similarLinks = similarLinks[:maxSimilarLinks]
	}
	for _, link := range similarLinks {
		href, err := link.GetAttribute("href")
		if err != nil || href == "" {
			continue
		}
		slug, ok := FilterSlugFromPath(href)
		if !ok {
			continue
		}
		switch CategorizeSlug(slug) {
		case SlugDrivetrain:
			drivetrains[slug] = true
		case SlugFuelType:
			fuelTypes[slug] = true
		case SlugColor:
			colors[slug] = true
		case SlugFeature:
			features[slug] = true
		case SlugTrim:
			trims[TitleFromSlug(slug)] = true
		}
	}

	return Filters{
		Trims:       sortedKeys(trims),
		Colors:      sortedKeys(colors),
		Drivetrains: sortedKeys(drivetrains),
		Features:    sortedKeys(features),
		FuelTypes:   sortedKeys(fuelTypes),
	}, nil
}

// SlugCategory is the filter family a URL slug belongs to.
type SlugCategory int

const (
	SlugUnknown SlugCategory = iota
	SlugDrivetrain
	SlugFuelType
	SlugColor
	SlugFeature
	SlugTrim
)

// CategorizeSlug maps a filter URL slug to its family. Drivetrain wins over
// the other families on ambiguous slugs; trims are matched hyphen-insensitively.
func CategorizeSlug(slug string) SlugCategory {
	slug = strings.ToLower(slug)
	switch {
	case containsString(drivetrainSlugs, slug):
		return SlugDrivetrain
	case containsString(fuelTypeSlugs, slug):
		return SlugFuelType
	case containsString(colorSlugs, slug):
		return SlugColor
	case containsString(featureSlugs, slug):
		return SlugFeature
	}

	compact := strings.ReplaceAll(slug, "-", "")
	for _, trim := range commonTrims {
		if strings.ReplaceAll(trim, "-", "") == compact {
			return SlugTrim
		}
	}
	return SlugUnknown
}

// TrimsInTitle returns the canonical trims whose slug (or space form)
// appears in a listing title.
func TrimsInTitle(title string) []string {
	lower := strings.ToLower(strings.TrimSpace(title))
	if lower == "" {
		return nil
	}

	var out []string
	seen := map[string]bool{}
	for _, trim := range commonTrims {
		spaced := strings.ReplaceAll(trim, "-", " ")
		if strings.Contains(lower, trim) || strings.Contains(lower, spaced) {
			name := TitleFromSlug(trim)
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// ModelFromPath extracts a model slug from an inventory path of the form
// /cars/{make}/{model}, rejecting segments that are really filters.
func ModelFromPath(href, make string) (string, bool) {
	parts := pathSegments(href)
	if len(parts) < 3 || parts[0] != "cars" || parts[1] != make {
		return "", false
	}
	model := parts[2]
	if !plausibleModelSlug(model) {
		return "", false
	}
	return model, true
}

// FilterSlugFromPath extracts the filter segment from a path of the form
// /cars/{make}/{model}/{filter}.
func FilterSlugFromPath(href string) (string, bool) {
	parts := pathSegments(href)
	if len(parts) < 4 {
		return "", false
	}
	return strings.ToLower(parts[3]), true
}

// TitleFromSlug turns a hyphenated slug into a display name: "king-ranch"
// becomes "King Ranch".
func TitleFromSlug(slug string) string {
	words := strings.Split(strings.ReplaceAll(slug, "-", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func plausibleModelSlug(model string) bool {
	if model == "" || isAllDigits(model) {
		return false
	}
	if filterTerms[strings.ToLower(model)] {
		return false
	}
	// Feature filters share the model's URL position; recognizable
	// prefixes and suffixes identify them.
	for _, suffix := range []string{
		"-seats", "-camera", "-charging", "-audio", "-display", "-monitor", "-assist",
	} {
		if strings.HasSuffix(model, suffix) {
			return false
		}
	}
	for _, prefix := range []string{"20-inch", "18-inch", "navigation", "apple-", "android-"} {
		if strings.HasPrefix(model, prefix) {
			return false
		}
	}
	if len(model) < 2 || len(model) > 25 {
		return false
	}
	for _, r := range model {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

func pathSegments(href string) []string {
	if q := strings.IndexByte(href, '?'); q >= 0 {
		href = href[:q]
	}
	var parts []string
	for _, p := range strings.Split(href, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
