package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Filters holds the per-make/model filter vocabulary discovered ahead of
// time for one model.
type Filters struct {
	Trims       []string `json:"trims"`
	Colors      []string `json:"colors"`
	Drivetrains []string `json:"drivetrains"`
	Features    []string `json:"features"`
	FuelTypes   []string `json:"fuel_types"`
}

// GlobalFilters holds site-wide controlled vocabularies used by the query
// normalizer.
type GlobalFilters struct {
	BodyTypes      []string `json:"body_types"`
	FuelTypes      []string `json:"fuel_types"`
	Drivetrains    []string `json:"drivetrains"`
	ExteriorColors []string `json:"exterior_colors"`
	Features       []string `json:"features"`
}

// Catalog is process-wide, read-only reference data. It is loaded once at
// startup and only ever read afterwards.
type Catalog struct {
	Version       string                        `json:"version"`
	LastUpdated   string                        `json:"last_updated"`
	MakesCount    int                           `json:"makes_count"`
	ModelsCount   int                           `json:"models_count"`
	Filters       map[string]map[string]Filters `json:"filters"`
	GlobalFilters GlobalFilters                 `json:"global_filters"`
}

// Load reads a catalog JSON file. A missing file is not an error: the
// built-in default vocabulary is returned so normalization keeps working.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	// A partial global_filters block keeps its own vocabularies; only the
	// vocabularies the file leaves empty fall back to the built-ins.
	builtin := Default().GlobalFilters
	if len(cat.GlobalFilters.BodyTypes) == 0 {
		cat.GlobalFilters.BodyTypes = builtin.BodyTypes
	}
	if len(cat.GlobalFilters.FuelTypes) == 0 {
		cat.GlobalFilters.FuelTypes = builtin.FuelTypes
	}
	if len(cat.GlobalFilters.Drivetrains) == 0 {
		cat.GlobalFilters.Drivetrains = builtin.Drivetrains
	}
	if len(cat.GlobalFilters.ExteriorColors) == 0 {
		cat.GlobalFilters.ExteriorColors = builtin.ExteriorColors
	}
	if len(cat.GlobalFilters.Features) == 0 {
		cat.GlobalFilters.Features = builtin.Features
	}
	if cat.Filters == nil {
		cat.Filters = map[string]map[string]Filters{}
	}

	return &cat, nil
}

// ModelFilters returns the discovered filters for a make/model pair. Lookup
// is case-insensitive against the catalog's slug keys.
func (c *Catalog) ModelFilters(make, model string) (Filters, bool) {
	models, ok := c.Filters[slug(make)]
	if !ok {
		return Filters{}, false
	}
	f, ok := models[slug(model)]
	return f, ok
}

// Default returns the built-in controlled vocabulary used when no discovered
// catalog file is available.
func Default() *Catalog {
	return &Catalog{
		Version: "builtin",
		Filters: map[string]map[string]Filters{},
		GlobalFilters: GlobalFilters{
			BodyTypes: []string{
				"SUV", "Pickup Trucks", "Truck", "Sedan", "Coupe", "Convertible",
				"Hatchback", "Wagon", "Minivan", "Van", "Crossover",
			},
			FuelTypes: []string{
				"Plug-In Hybrid", "Hybrid", "Diesel", "Electric", "Gas",
			},
			Drivetrains: []string{
				"Four Wheel Drive", "All Wheel Drive", "Front Wheel Drive",
				"Rear Wheel Drive", "4WD", "AWD", "FWD", "RWD", "4x4",
			},
			ExteriorColors: []string{
				"Black", "White", "Gray", "Grey", "Silver", "Blue", "Red",
				"Green", "Brown", "Gold", "Orange", "Purple", "Beige",
				"Charcoal", "Tan", "Pearl",
			},
			Features: []string{
				"Heated Seats", "Ventilated Seats", "Heated Steering Wheel",
				"Leather Seats", "Memory Seats", "Power Seats", "Seat Massagers",
				"Remote Start", "Tow Hitch", "Navigation", "Sunroof", "Moonroof",
				"Panoramic Sunroof", "Backup Camera", "Surround Camera",
				"Blind Spot Monitoring", "Lane Keep Assist",
				"Adaptive Cruise Control", "Premium Audio", "Wireless Charging",
				"Head-Up Display", "Apple CarPlay", "Android Auto",
			},
		},
	}
}

func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}
