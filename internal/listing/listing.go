package listing

import "strings"

// Retailer identifies the source site of a listing.
type Retailer string

const (
	RetailerCarMax     Retailer = "CarMax"
	RetailerAutoTrader Retailer = "AutoTrader"
	RetailerKBB        Retailer = "KBB"
	RetailerTrueCar    Retailer = "TrueCar"
	RetailerCarvana    Retailer = "Carvana"
)

// All lists every retailer the pipeline knows about.
func All() []Retailer {
	return []Retailer{RetailerCarMax, RetailerAutoTrader, RetailerKBB, RetailerTrueCar, RetailerCarvana}
}

// FromString resolves a retailer name case-insensitively.
func FromString(s string) (Retailer, bool) {
	for _, r := range All() {
		if strings.EqualFold(string(r), s) {
			return r, true
		}
	}
	return "", false
}

// Listing is the canonical, externally visible record for one vehicle for
// sale. Price is always positive; a mileage of 0 means unknown or new.
type Listing struct {
	Name     string   `json:"name"`
	Price    int      `json:"price"`
	Mileage  int      `json:"mileage"`
	Image    string   `json:"image"`
	Retailer Retailer `json:"retailer"`
	URL      string   `json:"url"`
	Location string   `json:"location"`
}

// Candidate is one raw listing pulled from a page during a single extraction
// pass. It never leaves the scraper package boundary; surviving candidates
// are converted to Listings after dedup.
type Candidate struct {
	TitleText      string
	RawPriceText   string
	RawMileageText string
	Price          int
	Mileage        int
	ImageURL       string
	PageURL        string
	LocationText   string
	// VehicleID is derived from the listing URL when the retailer exposes
	// one; empty otherwise.
	VehicleID string
}

// ToListing converts a surviving candidate into its canonical form.
func (c Candidate) ToListing(r Retailer) Listing {
	return Listing{
		Name:     c.TitleText,
		Price:    c.Price,
		Mileage:  c.Mileage,
		Image:    c.ImageURL,
		Retailer: r,
		URL:      c.PageURL,
		Location: c.LocationText,
	}
}
