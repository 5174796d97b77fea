package poi

import "strings"

// Tab is one of the kiosk's quick-filter tabs. Tabs map onto the engine's
// dot-hierarchical category taxonomy, which is wider and messier than the
// three buckets travellers actually think in.
type Tab string

// Quick-filter tabs.
const (
	TabShop  Tab = "shop"
	TabDine  Tab = "dine"
	TabRelax Tab = "relax"
)

// tabRule maps a tab onto the category taxonomy. exact entries match the
// whole category string; prefix entries match hierarchical descendants.
type tabRule struct {
	exact    []string
	prefixes []string
}

var tabRules = map[Tab]tabRule{
	TabShop: {
		exact:    []string{"shop", "retail"},
		prefixes: []string{"shop.", "retail.", "duty-free"},
	},
	TabDine: {
		exact:    []string{"eat", "food", "restaurant", "cafe"},
		prefixes: []string{"eat.", "food.", "restaurant.", "cafe."},
	},
	TabRelax: {
		exact:    []string{"relax"},
		prefixes: []string{"relax.", "services.lounge", "amenities."},
	},
}

// ValidTab reports whether s names a known quick-filter tab.
func ValidTab(s string) bool {
	_, ok := tabRules[Tab(s)]
	return ok
}

// MatchesTab reports whether a category belongs on a tab. Matching is
// case-insensitive; categories outside every tab simply never appear in
// the quick filters, which is intentional (gates, toilets, walkways).
func MatchesTab(category string, tab Tab) bool {
	rule, ok := tabRules[tab]
	if !ok {
		return false
	}
	category = strings.ToLower(strings.TrimSpace(category))
	for _, e := range rule.exact {
		if category == e {
			return true
		}
	}
	for _, p := range rule.prefixes {
		if strings.HasPrefix(category, p) {
			return true
		}
	}
	return false
}
