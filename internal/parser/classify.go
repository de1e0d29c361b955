package parser

import "strings"

// Verdict classifies a fetched page before extraction proceeds.
type Verdict int

const (
	// VerdictUsable means the page looks like real inventory content.
	VerdictUsable Verdict = iota
	// VerdictBlocked means the page carries an anti-automation or outage
	// signature. Terminal for this retailer in the current run.
	VerdictBlocked
	// VerdictNoResults means the retailer legitimately has no matching
	// inventory. Terminal, but not an error.
	VerdictNoResults
	// VerdictEmpty means the page rendered no visible text at all.
	VerdictEmpty
)

func (v Verdict) String() string {
	switch v {
	case VerdictUsable:
		return "usable"
	case VerdictBlocked:
		return "blocked"
	case VerdictNoResults:
		return "no_results"
	case VerdictEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// blockedIndicators are bot-defense and outage signatures. They are checked
// before the no-results list: a block page and a legitimate empty-inventory
// page can share superficially similar short error text, and misreading a
// block as a valid empty result would silently hide the failure.
var blockedIndicators = []string{
	"page unavailable",
	"site unavailable",
	"access denied",
	"blocked",
	"couldn't find the page",
	"having trouble",
	"please try again later",
	"access to this page has been denied",
	"you don't have permission",
	"incident number:",
	"we're sorry for any inconvenience",
	"pardon our interruption",
	"verify you are a human",
}

var noResultsIndicators = []string{
	"no matching vehicles",
	"no results found",
	"0 results",
	"no cars found",
	"try changing your search",
	"no exact matches",
	"no vehicles found",
}

// Classify inspects the full visible text of a fetched page and decides
// whether extraction should proceed. Defense indicators are checked first;
// ordering is part of the contract.
func Classify(bodyText string) Verdict {
	return ClassifyWith(bodyText, nil, nil)
}

// ClassifyWith lets a retailer extend the default indicator lists with
// site-specific phrases.
func ClassifyWith(bodyText string, extraBlocked, extraNoResults []string) Verdict {
	text := strings.ToLower(bodyText)
	if strings.TrimSpace(text) == "" {
		return VerdictEmpty
	}

	for _, indicator := range blockedIndicators {
		if strings.Contains(text, indicator) {
			return VerdictBlocked
		}
	}
	for _, indicator := range extraBlocked {
		if strings.Contains(text, strings.ToLower(indicator)) {
			return VerdictBlocked
		}
	}

	for _, indicator := range noResultsIndicators {
		if strings.Contains(text, indicator) {
			return VerdictNoResults
		}
	}
	for _, indicator := range extraNoResults {
		if strings.Contains(text, strings.ToLower(indicator)) {
			return VerdictNoResults
		}
	}

	return VerdictUsable
}
