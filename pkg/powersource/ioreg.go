package powersource

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/sirupsen/logrus"
	"howett.net/plist"

	"github.com/joule-sh/joule/pkg/types"
	"github.com/joule-sh/joule/pkg/utils/ptr"
)

// Reading is the OS power-source view collected in one pull.
type Reading struct {
	Battery types.BatteryReading
	Adapter types.AdapterReading
	Vendor  types.VendorTelemetry
}

// Reader pulls battery, adapter, and vendor-telemetry properties from the OS
// power source. Reads are pure and non-throwing: anything the OS does not
// report this tick is simply absent from the Reading.
type Reader interface {
	Read(ctx context.Context) Reading
}

// IORegReader reads the smart-battery registry entry via ioreg's plist output.
type IORegReader struct {
	// run produces the raw plist bytes; swapped out in tests.
	run func(ctx context.Context) ([]byte, error)
}

// NewIORegReader returns a Reader backed by the ioreg command.
func NewIORegReader() *IORegReader {
	return &IORegReader{
		run: func(ctx context.Context) ([]byte, error) {
			return exec.CommandContext(ctx, "/usr/sbin/ioreg", "-r", "-c", "AppleSmartBattery", "-a").Output()
		},
	}
}

// NewIORegReaderFromDict returns a Reader that serves the given property
// dictionary. Used in tests.
func NewIORegReaderFromDict(d Dict) *IORegReader {
	return &IORegReader{
		run: func(context.Context) ([]byte, error) {
			return plist.Marshal([]Dict{d}, plist.XMLFormat)
		},
	}
}

func (r *IORegReader) Read(ctx context.Context) Reading {
	out, err := r.run(ctx)
	if err != nil {
		logrus.Tracef("ioreg read unavailable: %v", err)
		return Reading{}
	}

	var entries []Dict
	if _, err := plist.Unmarshal(bytes.TrimSpace(out), &entries); err != nil || len(entries) == 0 {
		logrus.Tracef("ioreg plist decode failed: %v", err)
		return Reading{}
	}

	d := entries[0]

	return Reading{
		Battery: batteryFromDict(d),
		Adapter: adapterFromDict(d),
		Vendor:  vendorFromDict(d),
	}
}

func batteryFromDict(d Dict) types.BatteryReading {
	b := types.BatteryReading{}

	if mv, ok := d.Float("Voltage"); ok && mv > 0 {
		b.VoltageV = ptr.To(mv / 1000.0)
	}
	if ma, ok := d.Int("Amperage"); ok {
		b.AmperageA = ptr.To(float64(signed32(int64(ma))) / 1000.0)
	}
	if v, ok := d.Float("AppleRawCurrentCapacity"); ok {
		b.RawCapacitymAh = ptr.To(v)
	}
	if v, ok := d.Float("AppleRawMaxCapacity"); ok {
		b.MaxCapacitymAh = ptr.To(v)
	}
	if v, ok := d.Float("DesignCapacity"); ok {
		b.DesignCapacitymAh = ptr.To(v)
	}
	if v, ok := d.Int("CycleCount"); ok {
		b.CycleCount = ptr.To(v)
	}
	if v, ok := d.Float("Temperature"); ok && v > 0 {
		b.TemperatureC = ptr.To(v / 100.0)
	}
	if v, ok := d.Bool("IsCharging"); ok {
		b.Charging = ptr.To(v)
	}
	if v, ok := d.Bool("ExternalConnected"); ok {
		b.PluggedIn = ptr.To(v)
	}
	if v, ok := d.Bool("FullyCharged"); ok {
		b.FullyCharged = ptr.To(v)
	}
	// 0xFFFF is the firmware's "not currently applicable" marker for the
	// time estimates.
	if v, ok := d.Int("AvgTimeToFull"); ok && v != 0xFFFF {
		b.TimeToFullMin = ptr.To(v)
	}
	if v, ok := d.Int("AvgTimeToEmpty"); ok && v != 0xFFFF {
		b.TimeToEmptyMin = ptr.To(v)
	}

	return b
}

func adapterFromDict(d Dict) types.AdapterReading {
	a := types.AdapterReading{}

	details, ok := d.Dict("AdapterDetails")
	if !ok {
		return a
	}

	if v, ok := details.Float("Watts"); ok && v > 0 {
		a.WattageW = ptr.To(v)
	}
	if v, ok := details.String("Name"); ok {
		a.Name = v
	}
	if v, ok := details.String("Manufacturer"); ok {
		a.IsVendor = ptr.To(v == "Apple Inc.")
	}

	return a
}

func vendorFromDict(d Dict) types.VendorTelemetry {
	v := types.VendorTelemetry{}

	td, ok := d.Dict("PowerTelemetryData")
	if !ok {
		return v
	}

	if mw, ok := td.Float("SystemPowerIn"); ok && mw > 0 {
		v.SystemPowerW = ptr.To(mw / 1000.0)
	}
	if mw, ok := td.Float("BatteryPower"); ok && mw != 0 {
		v.BatteryPowerW = ptr.To(mw / 1000.0)
	}
	if j, ok := td.Float("AccumulatedSystemPowerIn"); ok {
		v.AccumulatedSystemEnergyJ = ptr.To(j)
	}
	if j, ok := td.Float("AccumulatedBatteryPower"); ok {
		v.AccumulatedBatteryEnergyJ = ptr.To(j)
	}

	return v
}
