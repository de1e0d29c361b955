package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected Verdict
	}{
		{
			name:     "perimeter block page",
			body:     "Access to this page has been denied.",
			expected: VerdictBlocked,
		},
		{
			name:     "incident page",
			body:     "We're sorry for any inconvenience. Incident Number: 18.cafe1234",
			expected: VerdictBlocked,
		},
		{
			name:     "no inventory",
			body:     "No matching vehicles near San Mateo. Try changing your search.",
			expected: VerdictNoResults,
		},
		{
			name:     "zero results",
			body:     "Showing 0 results for your filters",
			expected: VerdictNoResults,
		},
		{
			name:     "real inventory",
			body:     "2023 GMC Sierra 1500 Denali $61,998 12,431 mi",
			expected: VerdictUsable,
		},
		{
			name:     "blank page",
			body:     "   \n\t ",
			expected: VerdictEmpty,
		},
		{
			name:     "case insensitive",
			body:     "ACCESS DENIED",
			expected: VerdictBlocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.body))
		})
	}
}

// A block page that also happens to mention "no results" must classify as
// blocked: the defense check runs first.
func TestClassifyBlockedWinsOverNoResults(t *testing.T) {
	body := "Access to this page has been denied. No results found."
	assert.Equal(t, VerdictBlocked, Classify(body))
}

func TestClassifyWithExtraIndicators(t *testing.T) {
	body := "Our robots think you're a robot"

	assert.Equal(t, VerdictUsable, Classify(body))
	assert.Equal(t, VerdictBlocked, ClassifyWith(body, []string{"think you're a robot"}, nil))
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "usable", VerdictUsable.String())
	assert.Equal(t, "blocked", VerdictBlocked.String())
	assert.Equal(t, "no_results", VerdictNoResults.String())
	assert.Equal(t, "empty", VerdictEmpty.String())
}
