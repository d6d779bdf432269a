package rates

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegion(t *testing.T) {
	cases := []struct {
		zip    string
		region string
	}{
		{"90210", "CA"},
		{"902", "CA"},
		{"10001", "NY"},
		{"98101", "WA"},
		{"96815", "HI"},
		{"60601", "IL"},
		{"02", ""},     // too short
		{"ab123", ""},  // non-numeric
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.region, Region(c.zip), "zip %q", c.zip)
	}
}

func TestRegionWalksDownToNearestPrefix(t *testing.T) {
	// 752xx is Dallas. The table only carries the 750 boundary, so
	// resolution walks down to it.
	assert.Equal(t, "TX", Region("75201"))
	assert.Equal(t, "CO", Region("81501"))
}

func TestRateForRegion(t *testing.T) {
	r, ok := RateForRegion("CA")
	assert.True(t, ok)
	assert.Equal(t, 0.22, r)

	_, ok = RateForRegion("ZZ")
	assert.False(t, ok)
}

func TestLookup(t *testing.T) {
	r, ok := Lookup("90210")
	assert.True(t, ok)
	assert.Equal(t, 0.22, r)

	r, ok = Lookup("nope")
	assert.False(t, ok)
	assert.Equal(t, DefaultRatePerKWh, r)
}
