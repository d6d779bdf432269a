package monitor

import (
	"context"
	"time"

	"github.com/joule-sh/joule/pkg/energy"
	"github.com/joule-sh/joule/pkg/events"
	"github.com/joule-sh/joule/pkg/powersource"
	"github.com/joule-sh/joule/pkg/types"
	"github.com/joule-sh/joule/pkg/utils/ptr"
)

// sensorWait bounds how long one tick waits for its sensors. A slow
// adapter yields unavailable fields instead of stalling the loop.
const sensorWait = 800 * time.Millisecond

func (m *Monitor) tickLoop(ctx context.Context) {
	// Fire the first tick immediately.
	timer := time.NewTimer(0)
	defer timer.Stop()

	var lastTick time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.cadenceCh:
			// Reschedule the pending tick relative to the last one so a
			// cadence switch neither skips nor doubles a tick.
			if lastTick.IsZero() {
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			wait := time.Until(lastTick.Add(m.interval()))
			if wait < 0 {
				wait = 0
			}
			timer.Reset(wait)
		case <-timer.C:
			lastTick = time.Now()
			m.tick(ctx, lastTick)
			timer.Reset(m.interval())
		}
	}
}

type registerResult struct {
	regs     types.RegisterReadings
	voltageV float64
	amperage float64
	haveVI   bool
}

// collect gathers one tick's raw sample. The sensor groups run
// concurrently; whatever has not answered within sensorWait is treated
// as unavailable this tick.
func (m *Monitor) collect(ctx context.Context, now time.Time) types.RawSample {
	s := types.RawSample{Time: now}

	cctx, cancel := context.WithTimeout(ctx, sensorWait)
	defer cancel()

	regCh := make(chan registerResult, 1)
	srcCh := make(chan powersource.Reading, 1)
	smCh := make(chan *types.SamplerMetrics, 1)

	go func() {
		res := registerResult{regs: m.smcConn.ReadPower()}
		res.voltageV, res.amperage, res.haveVI = m.smcConn.ReadBatteryVI()
		regCh <- res
	}()
	go func() {
		r := m.source.Read(cctx)
		if r.Battery == (types.BatteryReading{}) {
			if fb := m.fallback.Read(cctx); fb.Battery != (types.BatteryReading{}) {
				r.Battery = fb.Battery
				if r.Adapter == (types.AdapterReading{}) {
					r.Adapter = fb.Adapter
				}
			}
		}
		srcCh <- r
	}()
	go func() {
		if metrics, ok := m.reader.Latest(); ok {
			smCh <- metrics
		} else {
			smCh <- nil
		}
	}()

	var regs registerResult
gather:
	for i := 0; i < 3; i++ {
		select {
		case regs = <-regCh:
			s.Registers = regs.regs
		case r := <-srcCh:
			s.Battery = r.Battery
			s.Adapter = r.Adapter
			s.Vendor = r.Vendor
		case metrics := <-smCh:
			s.Sampler = metrics
		case <-cctx.Done():
			break gather
		}
	}

	// The register path also reports battery voltage and current; use
	// them when the OS power source did not.
	if regs.haveVI {
		if s.Battery.VoltageV == nil {
			s.Battery.VoltageV = ptr.To(regs.voltageV)
		}
		if s.Battery.AmperageA == nil {
			s.Battery.AmperageA = ptr.To(regs.amperage)
		}
	}

	return s
}

func (m *Monitor) tick(ctx context.Context, now time.Time) {
	sample := m.collect(ctx, now)
	if sample.Sampler != nil {
		m.samplerMgr.SetMetrics(sample.Sampler)
	}

	st := m.reconciler.Reconcile(sample)
	m.accountant.Fold(st)

	ratePctPerMin, _ := energy.BatteryRatePctPerMin(sample.Battery, st.BatteryPowerW)
	ledger := events.EnergyLedgerEvent{
		TodayEnergyWh:    m.store.TodayEnergyWh(),
		TodayCostUSD:     m.store.TodayCostUSD(),
		LifetimeEnergyWh: m.store.LifetimeEnergyWh(),
		LifetimeCostUSD:  m.store.LifetimeCostUSD(),
		RatePctPerMin:    ratePctPerMin,
		Ts:               now.Unix(),
	}

	m.mu.Lock()
	changed := !m.hasState || statesDiffer(m.lastState, st)
	ledgerChanged := !m.hasLedger || ledgersDiffer(m.lastLedger, ledger)
	m.lastState = st
	m.hasState = true
	m.lastBattery = sample.Battery
	m.lastLedger = ledger
	m.hasLedger = true
	m.mu.Unlock()

	if changed {
		m.hub.Publish(events.PowerState, events.PowerStateEvent{State: st})
	}
	if ledgerChanged {
		m.hub.Publish(events.EnergyLedger, ledger)
	}
}

// statesDiffer relies on the reconciler's hysteresis having already
// suppressed sub-threshold jitter, so field equality is the change test.
func statesDiffer(a, b types.PowerState) bool {
	return a.CurrentPowerW != b.CurrentPowerW ||
		a.WallPowerW != b.WallPowerW ||
		a.BatteryPowerW != b.BatteryPowerW ||
		a.SystemPowerW != b.SystemPowerW
}

// ledgersDiffer ignores the timestamp: a tick whose fold added nothing
// and changed no derived figure is not a meaningful change.
func ledgersDiffer(a, b events.EnergyLedgerEvent) bool {
	a.Ts = 0
	b.Ts = 0
	return a != b
}
