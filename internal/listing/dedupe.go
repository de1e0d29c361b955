package listing

import (
	"fmt"
	"strings"
)

// Dedupe collapses candidates that reference the same underlying vehicle,
// keeping the first-seen candidate per key and preserving order. The key is
// the derived VehicleID when present, otherwise a composite of the
// normalized title, price and mileage. Dedup never crosses retailers; call
// it on one retailer's candidate set at a time.
func Dedupe(candidates []Candidate) []Candidate {
	if len(candidates) < 2 {
		return candidates
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]Candidate, 0, len(candidates))

	for _, c := range candidates {
		key := c.dedupeKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}

	return out
}

func (c Candidate) dedupeKey() string {
	if c.VehicleID != "" {
		return "id:" + c.VehicleID
	}
	return fmt.Sprintf("t:%s|%d|%d", normalizeTitle(c.TitleText), c.Price, c.Mileage)
}

func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
