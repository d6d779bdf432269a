package sampler

import (
	"time"

	"github.com/pkg/errors"
	"howett.net/plist"

	"github.com/joule-sh/joule/pkg/types"
)

// Record is one self-contained sample appended by the privileged helper.
// Fields missing from a record decode to their zero value; only a chunk that
// is not a plist document at all fails the decode.
type Record struct {
	Timestamp time.Time `plist:"timestamp"`
	ElapsedNS int64     `plist:"elapsed_ns"`
	Processor Processor `plist:"processor"`
}

type Processor struct {
	Clusters []Cluster `plist:"clusters"`
	// Energy counters are millijoules accumulated over the sample interval.
	CPUEnergyMJ float64 `plist:"cpu_energy"`
	GPUEnergyMJ float64 `plist:"gpu_energy"`
	ANEEnergyMJ float64 `plist:"ane_energy"`
}

type Cluster struct {
	Name      string  `plist:"name"`
	IdleRatio float64 `plist:"idle_ratio"`
	FreqHz    float64 `plist:"freq_hz"`
	PowerMW   float64 `plist:"power"`
}

// DecodeRecord parses one serialized record.
func DecodeRecord(b []byte) (*Record, error) {
	var r Record
	if _, err := plist.Unmarshal(b, &r); err != nil {
		return nil, errors.Wrap(err, "failed to decode sampler record")
	}
	return &r, nil
}

// Metrics derives the canonical metric view from the raw record.
// Cluster usage is (1 - idle_ratio) * 100; power figures are energy divided
// by the actual interval length.
func (r *Record) Metrics() *types.SamplerMetrics {
	m := &types.SamplerMetrics{
		Time: r.Timestamp,
	}

	intervalMS := float64(r.ElapsedNS) / 1e6
	for _, c := range r.Processor.Clusters {
		usage := (1 - c.IdleRatio) * 100
		if usage < 0 {
			usage = 0
		}
		if usage > 100 {
			usage = 100
		}
		m.Clusters = append(m.Clusters, types.ClusterMetric{
			Name:         c.Name,
			UsagePercent: usage,
			FrequencyMHz: c.FreqHz / 1e6,
			PowerW:       c.PowerMW / 1000.0,
		})
	}

	if intervalMS > 0 {
		// mJ / ms is watts.
		m.CPUPowerW = r.Processor.CPUEnergyMJ / intervalMS
		m.GPUPowerW = r.Processor.GPUEnergyMJ / intervalMS
		m.ANEPowerW = r.Processor.ANEEnergyMJ / intervalMS
	}

	return m
}
