package powersource

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDictTolerantAccessors(t *testing.T) {
	d := Dict{
		"Voltage":    uint64(12600),
		"CycleCount": int64(412),
		"Sentinel":   int64(math.MaxInt32),
		"IsCharging": true,
		"Name":       "96W USB-C Power Adapter",
		"WrongType":  "not a number",
	}

	v, ok := d.Float("Voltage")
	require.True(t, ok)
	assert.Equal(t, 12600.0, v)

	n, ok := d.Int("CycleCount")
	require.True(t, ok)
	assert.Equal(t, 412, n)

	_, ok = d.Int("Sentinel")
	assert.False(t, ok, "max-int sentinel must read as unavailable")

	_, ok = d.Float("Missing")
	assert.False(t, ok)

	_, ok = d.Int("WrongType")
	assert.False(t, ok, "type mismatch must read as unavailable, not panic")

	b, ok := d.Bool("IsCharging")
	require.True(t, ok)
	assert.True(t, b)

	s, ok := d.String("Name")
	require.True(t, ok)
	assert.Equal(t, "96W USB-C Power Adapter", s)
}

func TestSigned32(t *testing.T) {
	assert.Equal(t, int64(-1500), signed32(int64(0xFFFFFA24)))
	assert.Equal(t, int64(2100), signed32(2100))
}

func TestIORegReaderRead(t *testing.T) {
	r := NewIORegReaderFromDict(Dict{
		"Voltage":                 12600,
		"Amperage":                int64(0xFFFFFA24), // -1500 mA, raw word
		"AppleRawCurrentCapacity": 3200,
		"AppleRawMaxCapacity":     4800,
		"DesignCapacity":          5100,
		"CycleCount":              212,
		"Temperature":             3045,
		"IsCharging":              false,
		"ExternalConnected":       true,
		"FullyCharged":            false,
		"AvgTimeToFull":           0xFFFF,
		"AvgTimeToEmpty":          184,
		"AdapterDetails": Dict{
			"Watts":        96,
			"Name":         "96W USB-C Power Adapter",
			"Manufacturer": "Apple Inc.",
		},
		"PowerTelemetryData": Dict{
			"SystemPowerIn":            14250,
			"BatteryPower":             -2100,
			"AccumulatedSystemPowerIn": 123456,
		},
	})

	got := r.Read(context.Background())

	require.NotNil(t, got.Battery.VoltageV)
	assert.InDelta(t, 12.6, *got.Battery.VoltageV, 1e-9)

	require.NotNil(t, got.Battery.AmperageA)
	assert.InDelta(t, -1.5, *got.Battery.AmperageA, 1e-9)

	require.NotNil(t, got.Battery.TemperatureC)
	assert.InDelta(t, 30.45, *got.Battery.TemperatureC, 1e-9)

	assert.Nil(t, got.Battery.TimeToFullMin, "0xFFFF marker must decode to unavailable")
	require.NotNil(t, got.Battery.TimeToEmptyMin)
	assert.Equal(t, 184, *got.Battery.TimeToEmptyMin)

	require.NotNil(t, got.Battery.PluggedIn)
	assert.True(t, *got.Battery.PluggedIn)

	require.NotNil(t, got.Adapter.WattageW)
	assert.Equal(t, 96.0, *got.Adapter.WattageW)
	assert.Equal(t, "96W USB-C Power Adapter", got.Adapter.Name)
	require.NotNil(t, got.Adapter.IsVendor)
	assert.True(t, *got.Adapter.IsVendor)

	require.NotNil(t, got.Vendor.SystemPowerW)
	assert.InDelta(t, 14.25, *got.Vendor.SystemPowerW, 1e-9)
	require.NotNil(t, got.Vendor.BatteryPowerW)
	assert.InDelta(t, -2.1, *got.Vendor.BatteryPowerW, 1e-9)
	require.NotNil(t, got.Vendor.AccumulatedSystemEnergyJ)
	assert.Equal(t, 123456.0, *got.Vendor.AccumulatedSystemEnergyJ)
}

func TestIORegReaderUnavailable(t *testing.T) {
	r := &IORegReader{run: func(context.Context) ([]byte, error) {
		return nil, context.DeadlineExceeded
	}}

	got := r.Read(context.Background())
	assert.Nil(t, got.Battery.VoltageV)
	assert.Nil(t, got.Adapter.WattageW)
	assert.Nil(t, got.Vendor.SystemPowerW)
}
