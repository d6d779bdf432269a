package powersource

import (
	"context"

	"github.com/distatus/battery"
	"github.com/sirupsen/logrus"

	"github.com/joule-sh/joule/pkg/types"
	"github.com/joule-sh/joule/pkg/utils/ptr"
)

// FallbackReader reads battery state through the cross-platform battery
// library. It reports fewer fields than the registry reader (no cycle count,
// temperature, or vendor telemetry) and is used when ioreg is unavailable.
type FallbackReader struct{}

func NewFallbackReader() *FallbackReader {
	return &FallbackReader{}
}

func (r *FallbackReader) Read(_ context.Context) Reading {
	batteries, err := battery.GetAll()
	if err != nil {
		// Partial errors still come with usable batteries; only a total
		// failure means nothing to report.
		if _, partial := err.(battery.Errors); !partial {
			logrus.Tracef("battery read unavailable: %v", err)
			return Reading{}
		}
	}
	if len(batteries) == 0 {
		return Reading{}
	}

	bat := batteries[0]
	b := types.BatteryReading{}

	voltage := bat.Voltage
	if voltage <= 0 {
		voltage = bat.DesignVoltage
	}
	if voltage > 0 {
		b.VoltageV = ptr.To(voltage)

		// Library capacities are mWh; the canonical unit here is mAh.
		if bat.Current > 0 {
			b.RawCapacitymAh = ptr.To(bat.Current / voltage)
		}
		if bat.Full > 0 {
			b.MaxCapacitymAh = ptr.To(bat.Full / voltage)
		}
		if bat.Design > 0 {
			b.DesignCapacitymAh = ptr.To(bat.Design / voltage)
		}
	}

	charging := bat.State.Raw == battery.Charging
	discharging := bat.State.Raw == battery.Discharging
	full := bat.State.Raw == battery.Full

	b.Charging = ptr.To(charging)
	b.FullyCharged = ptr.To(full)
	b.PluggedIn = ptr.To(!discharging)

	if bat.ChargeRate > 0 && voltage > 0 {
		amps := bat.ChargeRate / 1000.0 / voltage
		if discharging {
			amps = -amps
		}
		b.AmperageA = ptr.To(amps)
	}

	return Reading{Battery: b}
}
