package enrich

import (
	"strings"

	"github.com/valorintel/discovery-cli/internal/model"
)

// Rule decides whether an entity's profile warrants the deep-search cost.
// The priority set and revenue threshold are tuning parameters, supplied
// from config rather than hardcoded.
type Rule struct {
	prioritySectors  map[string]struct{}
	revenueThreshold float64
}

// NewRule builds a qualification rule from a sector list and a revenue
// threshold (same unit as the input revenue, millions).
func NewRule(sectors []string, threshold float64) Rule {
	set := make(map[string]struct{}, len(sectors))
	for _, s := range sectors {
		set[strings.TrimSpace(s)] = struct{}{}
	}
	return Rule{
		prioritySectors:  set,
		revenueThreshold: threshold,
	}
}

// Qualifies reports whether the deep-search lookup is warranted: the
// trimmed sector is in the priority set, or the parsed revenue exceeds the
// threshold. Unparseable revenue counts as zero. Total and side-effect-free.
func (r Rule) Qualifies(sector, revenue string) bool {
	if _, ok := r.prioritySectors[strings.TrimSpace(sector)]; ok {
		return true
	}
	return model.ParseRevenue(revenue) > r.revenueThreshold
}
