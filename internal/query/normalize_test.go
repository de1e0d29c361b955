package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carscout/carscout/internal/catalog"
)

func TestNormalizeMakeModelTrimWithPriceCap(t *testing.T) {
	n := NewNormalizer(catalog.Default())

	q := n.Normalize("GMC Sierra Denali under $50000")

	assert.Equal(t, []string{"GMC"}, q.Makes)
	assert.Equal(t, []string{"Sierra"}, q.Models)
	assert.Equal(t, []string{"Denali"}, q.Trims)
	require.NotNil(t, q.MaxPrice)
	assert.Equal(t, 50000, *q.MaxPrice)
	assert.Nil(t, q.MinPrice)
	assert.Nil(t, q.Year)
}

func TestNormalizePriceRangeColorAndFeatures(t *testing.T) {
	n := NewNormalizer(catalog.Default())

	q := n.Normalize("$20000-$40000 black Toyota RAV4 with heated seats")

	require.NotNil(t, q.MinPrice)
	require.NotNil(t, q.MaxPrice)
	assert.Equal(t, 20000, *q.MinPrice)
	assert.Equal(t, 40000, *q.MaxPrice)
	require.NotNil(t, q.ExteriorColor)
	assert.Equal(t, "Black", *q.ExteriorColor)
	assert.Equal(t, []string{"Toyota"}, q.Makes)
	assert.Equal(t, []string{"RAV4"}, q.Models)
	assert.Contains(t, q.Features, "Heated Seats")
	assert.Nil(t, q.Year)
}

func TestNormalizePricePatterns(t *testing.T) {
	n := NewNormalizer(catalog.Default())

	tests := []struct {
		name    string
		raw     string
		minWant *int
		maxWant *int
	}{
		{name: "under", raw: "trucks under $45000", maxWant: intPtr(45000)},
		{name: "below", raw: "below 30000", maxWant: intPtr(30000)},
		{name: "less than", raw: "less than $25000", maxWant: intPtr(25000)},
		{name: "up to", raw: "sedans up to 18000", maxWant: intPtr(18000)},
		{name: "between", raw: "between $15000 and $22000", minWant: intPtr(15000), maxWant: intPtr(22000)},
		{name: "bare range", raw: "10000 - 14000 commuter car", minWant: intPtr(10000), maxWant: intPtr(14000)},
		{name: "no price", raw: "red convertible"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := n.Normalize(tt.raw)
			assert.Equal(t, tt.minWant, q.MinPrice)
			assert.Equal(t, tt.maxWant, q.MaxPrice)
		})
	}
}

// An inverted range normalizes so minPrice never exceeds maxPrice.
func TestNormalizeSwapsInvertedRange(t *testing.T) {
	n := NewNormalizer(catalog.Default())

	q := n.Normalize("$40000-$20000 pickup")

	require.NotNil(t, q.MinPrice)
	require.NotNil(t, q.MaxPrice)
	assert.Equal(t, 20000, *q.MinPrice)
	assert.Equal(t, 40000, *q.MaxPrice)
}

func TestNormalizeYear(t *testing.T) {
	n := NewNormalizer(catalog.Default())

	q := n.Normalize("2024 Jeep Wrangler Rubicon")

	require.NotNil(t, q.Year)
	assert.Equal(t, 2024, *q.Year)
	assert.Equal(t, []string{"Jeep"}, q.Makes)
	assert.Equal(t, []string{"Wrangler"}, q.Models)
	assert.Equal(t, []string{"Rubicon"}, q.Trims)
}

func TestNormalizeVocabularyFields(t *testing.T) {
	n := NewNormalizer(catalog.Default())

	q := n.Normalize("white plug-in hybrid SUV with all wheel drive and remote start")

	require.NotNil(t, q.ExteriorColor)
	assert.Equal(t, "White", *q.ExteriorColor)
	require.NotNil(t, q.FuelType)
	assert.Equal(t, "Plug-In Hybrid", *q.FuelType)
	require.NotNil(t, q.BodyType)
	assert.Equal(t, "SUV", *q.BodyType)
	require.NotNil(t, q.Drivetrain)
	assert.Equal(t, "All Wheel Drive", *q.Drivetrain)
	assert.Contains(t, q.Features, "Remote Start")
}

func TestNormalizeMakeAliases(t *testing.T) {
	n := NewNormalizer(catalog.Default())

	q := n.Normalize("chevy silverado 2500 or Ford F-150")

	assert.Equal(t, []string{"Ford", "Chevrolet"}, q.Makes)
	assert.Equal(t, []string{"Silverado 2500"}, q.Models)
}

func TestNormalizeSierraSeries(t *testing.T) {
	n := NewNormalizer(catalog.Default())

	tests := []struct {
		raw  string
		want string
	}{
		{raw: "gmc sierra 1500", want: "Sierra 1500"},
		{raw: "gmc sierra 3500 denali", want: "Sierra 3500"},
		{raw: "gmc sierra at4", want: "Sierra"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			q := n.Normalize(tt.raw)
			assert.Equal(t, []string{tt.want}, q.Models)
		})
	}
}

func TestNormalizeSingleModel(t *testing.T) {
	n := NewNormalizer(catalog.Default())

	// Detectors are ordered; only one model is ever assigned.
	q := n.Normalize("tacoma or tundra")

	assert.Equal(t, []string{"Tacoma"}, q.Models)
}

// More specific trim names match alongside their shorter substrings, in
// table order.
func TestNormalizeTrimSpecificity(t *testing.T) {
	n := NewNormalizer(catalog.Default())

	q := n.Normalize("sierra denali ultimate")

	assert.Equal(t, []string{"Denali Ultimate", "Denali"}, q.Trims)
}

func TestNormalizeDeterministic(t *testing.T) {
	n := NewNormalizer(catalog.Default())
	raw := "2023 black GMC Sierra 1500 Denali under $75000 with heated seats and sunroof"

	first := n.Normalize(raw)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, n.Normalize(raw))
	}
}

func TestNormalizerImplementsParser(t *testing.T) {
	var p Parser = NewNormalizer(nil)

	q, err := p.Parse(context.Background(), "honda cr-v")

	require.NoError(t, err)
	assert.Equal(t, []string{"Honda"}, q.Makes)
	assert.Equal(t, []string{"CR-V"}, q.Models)
}
