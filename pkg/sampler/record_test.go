package sampler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"howett.net/plist"
)

func TestDecodeRecordDerivedMetrics(t *testing.T) {
	b, err := plist.Marshal(Record{
		ElapsedNS: 2_000_000_000, // 2000 ms
		Processor: Processor{
			Clusters: []Cluster{
				{Name: "E-Cluster", IdleRatio: 0.75, FreqHz: 1_020_000_000, PowerMW: 150},
				{Name: "P-Cluster", IdleRatio: 0.10, FreqHz: 3_204_000_000, PowerMW: 4200},
			},
			CPUEnergyMJ: 9000,
			GPUEnergyMJ: 4000,
			ANEEnergyMJ: 500,
		},
	}, plist.XMLFormat)
	require.NoError(t, err)

	rec, err := DecodeRecord(b)
	require.NoError(t, err)

	m := rec.Metrics()
	require.Len(t, m.Clusters, 2)

	assert.Equal(t, "E-Cluster", m.Clusters[0].Name)
	assert.InDelta(t, 25.0, m.Clusters[0].UsagePercent, 1e-9)
	assert.InDelta(t, 1020.0, m.Clusters[0].FrequencyMHz, 1e-9)
	assert.InDelta(t, 0.15, m.Clusters[0].PowerW, 1e-9)

	assert.InDelta(t, 90.0, m.Clusters[1].UsagePercent, 1e-9)

	// mJ over ms is watts.
	assert.InDelta(t, 4.5, m.CPUPowerW, 1e-9)
	assert.InDelta(t, 2.0, m.GPUPowerW, 1e-9)
	assert.InDelta(t, 0.25, m.ANEPowerW, 1e-9)
}

func TestDecodeRecordMissingFieldsDefault(t *testing.T) {
	b, err := plist.Marshal(map[string]any{
		"elapsed_ns": 1_000_000_000,
	}, plist.XMLFormat)
	require.NoError(t, err)

	rec, err := DecodeRecord(b)
	require.NoError(t, err)

	m := rec.Metrics()
	assert.Empty(t, m.Clusters)
	assert.Zero(t, m.CPUPowerW)
	assert.Zero(t, m.GPUPowerW)
}

func TestDecodeRecordZeroIntervalNoPower(t *testing.T) {
	b, err := plist.Marshal(map[string]any{
		"processor": map[string]any{"cpu_energy": 5000},
	}, plist.XMLFormat)
	require.NoError(t, err)

	rec, err := DecodeRecord(b)
	require.NoError(t, err)
	assert.Zero(t, rec.Metrics().CPUPowerW, "no interval means no power figure")
}

func TestDecodeRecordGarbage(t *testing.T) {
	_, err := DecodeRecord([]byte("not a plist at all"))
	assert.Error(t, err)
}

func TestClusterUsageClamped(t *testing.T) {
	rec := &Record{
		ElapsedNS: 1_000_000_000,
		Processor: Processor{
			Clusters: []Cluster{
				{Name: "bad-low", IdleRatio: 1.2},
				{Name: "bad-high", IdleRatio: -0.3},
			},
		},
	}

	m := rec.Metrics()
	assert.Equal(t, 0.0, m.Clusters[0].UsagePercent)
	assert.Equal(t, 100.0, m.Clusters[1].UsagePercent)
}
