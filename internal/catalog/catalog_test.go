package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	cat, err := Load(filepath.Join(t.TempDir(), "nope.json"))

	require.NoError(t, err)
	assert.Equal(t, "builtin", cat.Version)
	assert.NotEmpty(t, cat.GlobalFilters.ExteriorColors)
}

func TestLoadParsesCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filters.json")
	data := `{
		"version": "1.0",
		"last_updated": "2026-08-01T12:00:00",
		"makes_count": 1,
		"models_count": 1,
		"filters": {
			"gmc": {
				"sierra-1500": {
					"trims": ["Denali", "At4"],
					"colors": ["black"],
					"drivetrains": ["four-wheel-drive"],
					"features": ["tow-hitch"],
					"fuel_types": ["diesel"]
				}
			}
		},
		"global_filters": {
			"body_types": ["Pickup Trucks"],
			"fuel_types": ["Diesel"],
			"drivetrains": ["Four Wheel Drive"],
			"exterior_colors": ["Black"],
			"features": ["Tow Hitch"]
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cat, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "1.0", cat.Version)
	assert.Equal(t, 1, cat.MakesCount)
	assert.Equal(t, []string{"Black"}, cat.GlobalFilters.ExteriorColors)

	f, ok := cat.ModelFilters("GMC", "Sierra 1500")
	require.True(t, ok)
	assert.Equal(t, []string{"Denali", "At4"}, f.Trims)
	assert.Equal(t, []string{"diesel"}, f.FuelTypes)
}

// A catalog file that only defines some global vocabularies keeps the ones
// it defines; the rest fall back to the built-ins field by field.
func TestLoadKeepsPartialGlobalFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.json")
	data := `{
		"version": "1.1",
		"global_filters": {
			"body_types": ["Pickup Trucks", "Box Truck"]
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cat, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Pickup Trucks", "Box Truck"}, cat.GlobalFilters.BodyTypes)
	assert.Contains(t, cat.GlobalFilters.FuelTypes, "Plug-In Hybrid")
	assert.Contains(t, cat.GlobalFilters.Drivetrains, "All Wheel Drive")
	assert.NotEmpty(t, cat.GlobalFilters.ExteriorColors)
	assert.NotEmpty(t, cat.GlobalFilters.Features)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestModelFiltersUnknownMake(t *testing.T) {
	cat := Default()

	_, ok := cat.ModelFilters("DeLorean", "DMC-12")
	assert.False(t, ok)
}

// Vocabulary ordering is load-bearing for first-match normalization: the
// more specific fuel type has to come before its substring.
func TestDefaultFuelTypeOrdering(t *testing.T) {
	fuels := Default().GlobalFilters.FuelTypes

	plugIn, hybrid := -1, -1
	for i, f := range fuels {
		switch f {
		case "Plug-In Hybrid":
			plugIn = i
		case "Hybrid":
			hybrid = i
		}
	}
	require.GreaterOrEqual(t, plugIn, 0)
	require.GreaterOrEqual(t, hybrid, 0)
	assert.Less(t, plugIn, hybrid)
}
