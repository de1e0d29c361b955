package query

import "encoding/json"

// CanonicalQuery is the single normalized representation of a vehicle
// search, shared by every retailer adapter. It is constructed once by the
// normalizer and read-only afterwards; adapters never mutate it.
//
// Optional scalar fields are pointers so absence serializes as an explicit
// JSON null, never as an empty string or a zero that could be mistaken for
// a real value.
type CanonicalQuery struct {
	// Raw preserves the original query text for free-text fallback paths.
	// It is not part of the canonical JSON schema.
	Raw string `json:"-"`

	Makes  []string `json:"makes"`
	Models []string `json:"models"`
	Trims  []string `json:"trims"`

	Year    *int `json:"year"`
	YearMin *int `json:"yearMin"`
	YearMax *int `json:"yearMax"`

	MinPrice *int `json:"minPrice"`
	MaxPrice *int `json:"maxPrice"`

	Drivetrain   *string `json:"drivetrain"`
	FuelType     *string `json:"fuelType"`
	BodyType     *string `json:"bodyType"`
	Transmission *string `json:"transmission"`

	Doors     *int `json:"doors"`
	Cylinders *int `json:"cylinders"`

	ExteriorColor *string `json:"exteriorColor"`
	InteriorColor *string `json:"interiorColor"`

	Features []string `json:"features"`

	Location Location `json:"location"`
}

// Location narrows a search geographically. All fields are optional.
type Location struct {
	Zip      *string `json:"zip"`
	Distance *int    `json:"distance"`
	City     *string `json:"city"`
	State    *string `json:"state"`
}

// ParsedQuery is the normalizer's wire output: the original text alongside
// its structured form.
type ParsedQuery struct {
	Query      string         `json:"query"`
	Structured CanonicalQuery `json:"structured"`
}

// New returns an empty query for raw text. Collection fields are non-nil so
// they serialize as [] rather than null.
func New(raw string) *CanonicalQuery {
	return &CanonicalQuery{
		Raw:      raw,
		Makes:    []string{},
		Models:   []string{},
		Trims:    []string{},
		Features: []string{},
	}
}

// HasMakeAndModel reports whether the query carries at least one make and
// one model, the minimum required by the structured fast channels.
func (q *CanonicalQuery) HasMakeAndModel() bool {
	return len(q.Makes) > 0 && len(q.Models) > 0
}

// FirstMake returns the primary make, or "".
func (q *CanonicalQuery) FirstMake() string {
	if len(q.Makes) == 0 {
		return ""
	}
	return q.Makes[0]
}

// FirstModel returns the primary model, or "".
func (q *CanonicalQuery) FirstModel() string {
	if len(q.Models) == 0 {
		return ""
	}
	return q.Models[0]
}

// FirstTrim returns the primary trim, or "".
func (q *CanonicalQuery) FirstTrim() string {
	if len(q.Trims) == 0 {
		return ""
	}
	return q.Trims[0]
}

// MarshalJSON keeps collection fields non-nil even on zero-value queries.
func (q CanonicalQuery) MarshalJSON() ([]byte, error) {
	type alias CanonicalQuery
	a := alias(q)
	if a.Makes == nil {
		a.Makes = []string{}
	}
	if a.Models == nil {
		a.Models = []string{}
	}
	if a.Trims == nil {
		a.Trims = []string{}
	}
	if a.Features == nil {
		a.Features = []string{}
	}
	return json.Marshal(a)
}

// appendUnique appends value to set when absent, preserving insertion
// order. First occurrence wins.
func appendUnique(set []string, value string) []string {
	for _, v := range set {
		if v == value {
			return set
		}
	}
	return append(set, value)
}

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }
