package types

import "time"

// RegisterReadings holds the power figures read straight from hardware
// registers. Nil means the register was unavailable this tick.
type RegisterReadings struct {
	SystemPowerW  *float64
	WallPowerW    *float64
	BatteryPowerW *float64 // positive while discharging
}

// BatteryReading holds one tick's view of the battery as reported by the OS
// power source. Nil fields were unavailable this tick; absence is not an error.
type BatteryReading struct {
	VoltageV          *float64
	AmperageA         *float64 // negative while discharging
	RawCapacitymAh    *float64
	MaxCapacitymAh    *float64
	DesignCapacitymAh *float64
	CycleCount        *int
	TemperatureC      *float64
	Charging          *bool
	PluggedIn         *bool
	FullyCharged      *bool
	TimeToFullMin     *int
	TimeToEmptyMin    *int
}

// AdapterReading describes the attached power adapter, if any.
type AdapterReading struct {
	WattageW *float64
	Name     string
	IsVendor *bool
}

// VendorTelemetry is the vendor power-telemetry struct exposed alongside the
// battery properties.
type VendorTelemetry struct {
	SystemPowerW              *float64
	BatteryPowerW             *float64
	AccumulatedSystemEnergyJ  *float64
	AccumulatedBatteryEnergyJ *float64
}

// ClusterMetric is one CPU/GPU/ANE cluster's usage as reported by the
// privileged sampler.
type ClusterMetric struct {
	Name         string  `json:"name"`
	UsagePercent float64 `json:"usagePercent"`
	FrequencyMHz float64 `json:"frequencyMHz"`
	PowerW       float64 `json:"powerW"`
}

// SamplerMetrics is the decoded view of the privileged sampler's latest record.
type SamplerMetrics struct {
	Time      time.Time       `json:"time"`
	Clusters  []ClusterMetric `json:"clusters"`
	CPUPowerW float64         `json:"cpuPowerW"`
	GPUPowerW float64         `json:"gpuPowerW"`
	ANEPowerW float64         `json:"anePowerW"`
}

// RawSample is everything collected in one tick. It is owned exclusively by
// the tick that produced it and is never persisted.
type RawSample struct {
	Time      time.Time
	Registers RegisterReadings
	Battery   BatteryReading
	Adapter   AdapterReading
	Vendor    VendorTelemetry
	Sampler   *SamplerMetrics
}

// PowerState is the reconciled snapshot published after each tick.
// CurrentPowerW is never negative. BatteryPowerW is positive while
// discharging and negative while charging.
type PowerState struct {
	Time          time.Time `json:"time"`
	CurrentPowerW float64   `json:"currentPowerW"`
	WallPowerW    float64   `json:"wallPowerW"`
	BatteryPowerW float64   `json:"batteryPowerW"`
	SystemPowerW  float64   `json:"systemPowerW"`
}

// DailyRecord archives one completed day's energy total. Date is a local
// calendar date formatted as 2006-01-02.
type DailyRecord struct {
	Date     string  `json:"date"`
	EnergyWh float64 `json:"energyWh"`
}

// SamplerState reflects the privileged helper's lifecycle as rebuilt from
// filesystem probes.
type SamplerState struct {
	Installed        bool            `json:"installed"`
	Running          bool            `json:"running"`
	LastError        string          `json:"lastError,omitempty"`
	LastFileModTime  time.Time       `json:"lastFileModTime"`
	LastTruncateTime time.Time       `json:"lastTruncateTime"`
	Metrics          *SamplerMetrics `json:"metrics,omitempty"`
}
