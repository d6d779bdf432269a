package reconcile

import (
	"math"
	"sync"

	"github.com/joule-sh/joule/pkg/types"
	"github.com/joule-sh/joule/pkg/utils/ptr"
)

const (
	// DefaultEpsilonW is the minimum delta before a noisy reading may change
	// a published value.
	DefaultEpsilonW = 0.2

	// DefaultHistorySize bounds the rolling snapshot history kept for
	// display and trends.
	DefaultHistorySize = 60
)

// Reconciler merges one tick's raw readings into a single coherent power
// snapshot. The merge is a deterministic precedence chain, not an average:
// each metric short-circuits at the first source reporting a usable value.
type Reconciler struct {
	epsilon     float64
	historySize int

	mu      sync.Mutex
	last    types.PowerState
	hasLast bool
	history []types.PowerState
}

func New(epsilonW float64) *Reconciler {
	if epsilonW <= 0 {
		epsilonW = DefaultEpsilonW
	}
	return &Reconciler{
		epsilon:     epsilonW,
		historySize: DefaultHistorySize,
	}
}

// Reconcile folds a raw sample into the published snapshot and returns it.
func (r *Reconciler) Reconcile(s types.RawSample) types.PowerState {
	pluggedIn := ptr.Deref(s.Battery.PluggedIn, false)

	batteryPower := reconcileBatteryPower(s)
	systemPower := reconcileSystemPower(s, batteryPower)
	currentPower := reconcileCurrentPower(s, batteryPower, pluggedIn)
	wallPower := reconcileWallPower(s, systemPower, batteryPower, pluggedIn)

	next := types.PowerState{
		Time:          s.Time,
		CurrentPowerW: currentPower,
		WallPowerW:    wallPower,
		BatteryPowerW: batteryPower,
		SystemPowerW:  systemPower,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hasLast {
		next.CurrentPowerW = r.damp(next.CurrentPowerW, r.last.CurrentPowerW)
		next.WallPowerW = r.damp(next.WallPowerW, r.last.WallPowerW)
		next.BatteryPowerW = r.damp(next.BatteryPowerW, r.last.BatteryPowerW)
		next.SystemPowerW = r.damp(next.SystemPowerW, r.last.SystemPowerW)
	}

	r.last = next
	r.hasLast = true

	if len(r.history) >= r.historySize {
		r.history = r.history[1:]
	}
	r.history = append(r.history, next)

	return next
}

// Last returns the most recently published snapshot.
func (r *Reconciler) Last() (types.PowerState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.hasLast
}

// History returns a copy of the rolling snapshot history, oldest first.
func (r *Reconciler) History() []types.PowerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.PowerState, len(r.history))
	copy(out, r.history)
	return out
}

// damp keeps the previously published value unless the new raw value moved
// past the hysteresis epsilon. Register jitter stays invisible; genuine load
// changes come through immediately.
func (r *Reconciler) damp(next, prev float64) float64 {
	if math.Abs(next-prev) <= r.epsilon {
		return prev
	}
	return next
}

// reconcileBatteryPower yields net battery flow, positive while discharging.
// Precedence: direct register, vendor telemetry, then V*I derived from the
// OS battery properties (amperage is negative while discharging there, so
// the sign flips).
func reconcileBatteryPower(s types.RawSample) float64 {
	if v := s.Registers.BatteryPowerW; v != nil && *v != 0 {
		return *v
	}
	if v := s.Vendor.BatteryPowerW; v != nil && *v != 0 {
		return *v
	}
	if s.Battery.VoltageV != nil && s.Battery.AmperageA != nil {
		return -(*s.Battery.VoltageV * *s.Battery.AmperageA)
	}
	return 0
}

// reconcileSystemPower yields total system draw. When no source reports it
// directly, it is reconstructed from wall input minus charge flow.
func reconcileSystemPower(s types.RawSample, batteryPower float64) float64 {
	if v := s.Registers.SystemPowerW; v != nil && *v > 0 {
		return *v
	}
	if v := s.Vendor.SystemPowerW; v != nil && *v > 0 {
		return *v
	}
	if v := s.Registers.WallPowerW; v != nil && *v > 0 {
		// Wall input covers the system plus any charging; discharge adds
		// to the system side instead.
		sys := *v + batteryPower
		if sys > 0 {
			return sys
		}
	}
	return 0
}

// reconcileCurrentPower selects the figure shown as "power now": compute
// draw only, never battery charging power.
func reconcileCurrentPower(s types.RawSample, batteryPower float64, pluggedIn bool) float64 {
	candidate := 0.0

	switch {
	case s.Registers.SystemPowerW != nil && *s.Registers.SystemPowerW > 0:
		candidate = *s.Registers.SystemPowerW
	case s.Vendor.SystemPowerW != nil && *s.Vendor.SystemPowerW > 0:
		candidate = *s.Vendor.SystemPowerW
	case !pluggedIn && batteryPower > 0:
		// On battery the discharge rate is the system draw.
		candidate = batteryPower
	case s.Vendor.BatteryPowerW != nil && *s.Vendor.BatteryPowerW != 0:
		candidate = math.Abs(*s.Vendor.BatteryPowerW)
	case s.Battery.VoltageV != nil && s.Battery.AmperageA != nil:
		candidate = math.Abs(*s.Battery.VoltageV * *s.Battery.AmperageA)
	}

	if candidate < 0 {
		candidate = 0
	}
	return candidate
}

// reconcileWallPower derives wall input from the system/battery balance.
func reconcileWallPower(s types.RawSample, systemPower, batteryPower float64, pluggedIn bool) float64 {
	var wall float64
	switch {
	case batteryPower < 0:
		// Net charging: the wall feeds the system and the battery.
		wall = systemPower + math.Abs(batteryPower)
	case pluggedIn:
		wall = systemPower - batteryPower
		if wall < 0 {
			wall = 0
		}
	default:
		return 0
	}

	// A direct wall register beats an implausible computed value while
	// plugged in.
	if wall <= 0 && pluggedIn {
		if v := s.Registers.WallPowerW; v != nil && *v > 0 {
			return *v
		}
	}

	return wall
}
