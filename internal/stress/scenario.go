package stress

import "strings"

// Scenario maps shock labels to fractional moves. Labels are
// user-facing ("Market", "Value"); they resolve to stored factor names
// only at application time, against the basis that was actually
// calculated.
type Scenario struct {
	Name   string             `json:"name"`
	Shocks map[string]float64 `json:"shocks"`
}

// Named scenario library for the common cases. Custom scenarios come
// in over the API as an ad-hoc shock map.
var namedScenarios = map[string]Scenario{
	"market_crash": {
		Name:   "market_crash",
		Shocks: map[string]float64{"Market": -0.20},
	},
	"market_correction": {
		Name:   "market_correction",
		Shocks: map[string]float64{"Market": -0.10},
	},
	"market_rally": {
		Name:   "market_rally",
		Shocks: map[string]float64{"Market": 0.05},
	},
	"value_rotation": {
		Name:   "value_rotation",
		Shocks: map[string]float64{"Value": 0.05, "Growth": -0.05},
	},
	"small_cap_squeeze": {
		Name:   "small_cap_squeeze",
		Shocks: map[string]float64{"Size": 0.08},
	},
	"momentum_unwind": {
		Name:   "momentum_unwind",
		Shocks: map[string]float64{"Momentum": -0.10},
	},
}

// NamedScenario looks up a scenario from the library
func NamedScenario(name string) (Scenario, bool) {
	s, ok := namedScenarios[strings.ToLower(name)]
	return s, ok
}

// ScenarioNames lists the library scenarios
func ScenarioNames() []string {
	names := make([]string, 0, len(namedScenarios))
	for name := range namedScenarios {
		names = append(names, name)
	}
	return names
}

// aliases maps shock labels to candidate factor names, checked in
// order against the factors a run actually populated.
var aliases = map[string][]string{
	"market":   {"MKT"},
	"value":    {"VALUE", "VALUE_GROWTH_SPREAD"},
	"growth":   {"GROWTH"},
	"size":     {"SIZE_SPREAD"},
	"momentum": {"MOMENTUM_SPREAD"},
}

// resolveLabel maps a shock label to a populated factor name. The
// lookup is against the stored basis, never against an assumed
// canonical factor set: a label whose factors were not calculated for
// this portfolio resolves to nothing, and the caller reports the
// contribution as unavailable.
func resolveLabel(label string, populated []string) (string, bool) {
	have := make(map[string]bool, len(populated))
	for _, name := range populated {
		have[name] = true
	}

	// Direct factor name wins
	if have[label] {
		return label, true
	}

	for _, candidate := range aliases[strings.ToLower(label)] {
		if have[candidate] {
			return candidate, true
		}
	}

	return "", false
}
