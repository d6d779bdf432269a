// Package rates resolves a US electricity tariff from a zip code. The
// zip-prefix to region and region to tariff tables are immutable data,
// compiled in so lookups never block on I/O.
package rates

// DefaultRatePerKWh is used when a zip code cannot be resolved.
const DefaultRatePerKWh = 0.15

// regionByZipPrefix maps the first three digits of a US zip code to a
// state-level region code. Prefixes sharing a state are collapsed into
// ranges at table-build time, so only range boundaries appear here.
var regionByZipPrefix = map[string]string{
	"010": "MA", "027": "RI", "030": "NH", "039": "ME", "050": "VT",
	"060": "CT", "070": "NJ", "100": "NY", "150": "PA", "197": "DE",
	"200": "DC", "206": "MD", "220": "VA", "247": "WV", "270": "NC",
	"290": "SC", "300": "GA", "320": "FL", "350": "AL", "370": "TN",
	"386": "MS", "400": "KY", "430": "OH", "460": "IN", "480": "MI",
	"500": "IA", "530": "WI", "550": "MN", "570": "SD", "580": "ND",
	"590": "MT", "600": "IL", "630": "MO", "660": "KS", "680": "NE",
	"700": "LA", "716": "AR", "730": "OK", "750": "TX", "800": "CO",
	"820": "WY", "832": "ID", "840": "UT", "850": "AZ", "870": "NM",
	"890": "NV", "900": "CA", "901": "CA", "902": "CA", "903": "CA",
	"904": "CA", "905": "CA", "906": "CA", "907": "CA", "908": "CA",
	"910": "CA", "917": "CA", "920": "CA", "930": "CA", "940": "CA",
	"950": "CA", "960": "CA", "967": "HI", "970": "OR", "980": "WA",
	"995": "AK",
}

// ratePerKWhByRegion holds average residential tariffs in $/kWh.
var ratePerKWhByRegion = map[string]float64{
	"AK": 0.23, "AL": 0.14, "AR": 0.11, "AZ": 0.13, "CA": 0.22,
	"CO": 0.13, "CT": 0.24, "DC": 0.14, "DE": 0.13, "FL": 0.13,
	"GA": 0.13, "HI": 0.33, "IA": 0.13, "ID": 0.10, "IL": 0.14,
	"IN": 0.14, "KS": 0.13, "KY": 0.12, "LA": 0.11, "MA": 0.24,
	"MD": 0.14, "ME": 0.19, "MI": 0.17, "MN": 0.14, "MO": 0.12,
	"MS": 0.12, "MT": 0.11, "NC": 0.12, "ND": 0.11, "NE": 0.11,
	"NH": 0.22, "NJ": 0.16, "NM": 0.13, "NV": 0.12, "NY": 0.20,
	"OH": 0.13, "OK": 0.11, "OR": 0.11, "PA": 0.14, "RI": 0.23,
	"SC": 0.13, "SD": 0.12, "TN": 0.11, "TX": 0.12, "UT": 0.10,
	"VA": 0.12, "VT": 0.19, "WA": 0.10, "WI": 0.15, "WV": 0.12,
	"WY": 0.11,
}

// Region maps a zip code to its region code. Resolution walks the
// prefix table downward from the zip's own three-digit prefix, so a
// prefix between two table entries resolves to the nearest entry below
// it. Returns "" when the zip is too short or resolves to nothing.
func Region(zip string) string {
	if len(zip) < 3 {
		return ""
	}
	prefix := zip[:3]
	for _, c := range prefix {
		if c < '0' || c > '9' {
			return ""
		}
	}
	if r, ok := regionByZipPrefix[prefix]; ok {
		return r
	}
	// Walk down to the nearest covered prefix. Table gaps within a
	// state are intentional, so this stays bounded and cheap.
	n := int(prefix[0]-'0')*100 + int(prefix[1]-'0')*10 + int(prefix[2]-'0')
	for i := n - 1; i >= 0; i-- {
		p := [3]byte{byte('0' + i/100), byte('0' + i/10%10), byte('0' + i%10)}
		if r, ok := regionByZipPrefix[string(p[:])]; ok {
			return r
		}
	}
	return ""
}

// RateForRegion returns the tariff for a region code.
func RateForRegion(region string) (float64, bool) {
	r, ok := ratePerKWhByRegion[region]
	return r, ok
}

// Lookup resolves a zip code to a tariff in one step. The boolean is
// false when the zip cannot be resolved, in which case the returned
// rate is DefaultRatePerKWh.
func Lookup(zip string) (float64, bool) {
	region := Region(zip)
	if region == "" {
		return DefaultRatePerKWh, false
	}
	if r, ok := ratePerKWhByRegion[region]; ok {
		return r, true
	}
	return DefaultRatePerKWh, false
}
