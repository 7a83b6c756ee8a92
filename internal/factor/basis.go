package factor

import "fmt"

// Def describes one factor in a basis. A factor is either backed by a
// single proxy ETF or by a long-minus-short spread between two
// proxies.
type Def struct {
	Name       string
	Proxy      string
	LongProxy  string
	ShortProxy string
}

// IsSpread reports whether the factor is a long-minus-short spread
func (d Def) IsSpread() bool {
	return d.Proxy == ""
}

// Symbols returns the proxy symbols backing the factor
func (d Def) Symbols() []string {
	if d.IsSpread() {
		return []string{d.LongProxy, d.ShortProxy}
	}
	return []string{d.Proxy}
}

// Basis is a complete, explicitly versioned factor set. Every
// calculation run covers all factors of exactly one basis; factors
// from different versions are never mixed in a stored run.
type Basis struct {
	Version string
	Factors []Def
}

// Names returns the factor names in basis order
func (b Basis) Names() []string {
	names := make([]string, len(b.Factors))
	for i, f := range b.Factors {
		names[i] = f.Name
	}
	return names
}

// The two shipped bases. traditional-v1 regresses against direct
// style proxies; spread-v1 uses style spreads and deliberately has no
// standalone market factor.
var (
	traditionalV1 = Basis{
		Version: "traditional-v1",
		Factors: []Def{
			{Name: "MKT", Proxy: "SPY"},
			{Name: "VALUE", Proxy: "VTV"},
			{Name: "GROWTH", Proxy: "VUG"},
		},
	}

	spreadV1 = Basis{
		Version: "spread-v1",
		Factors: []Def{
			{Name: "VALUE_GROWTH_SPREAD", LongProxy: "VTV", ShortProxy: "VUG"},
			{Name: "SIZE_SPREAD", LongProxy: "IWM", ShortProxy: "SPY"},
			{Name: "MOMENTUM_SPREAD", LongProxy: "MTUM", ShortProxy: "SPY"},
		},
	}
)

// BasisForVersion resolves a configured basis version
func BasisForVersion(version string) (Basis, error) {
	switch version {
	case traditionalV1.Version:
		return traditionalV1, nil
	case spreadV1.Version:
		return spreadV1, nil
	default:
		return Basis{}, fmt.Errorf("unknown factor basis version: %s", version)
	}
}
