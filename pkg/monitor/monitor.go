package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/joule-sh/joule/pkg/energy"
	"github.com/joule-sh/joule/pkg/events"
	"github.com/joule-sh/joule/pkg/powersource"
	"github.com/joule-sh/joule/pkg/rates"
	"github.com/joule-sh/joule/pkg/reconcile"
	"github.com/joule-sh/joule/pkg/sampler"
	"github.com/joule-sh/joule/pkg/smc"
	"github.com/joule-sh/joule/pkg/types"
)

const (
	// ForegroundInterval is the sampling cadence while a client watches.
	ForegroundInterval = time.Second
	// BackgroundInterval is the cadence while nobody is watching.
	BackgroundInterval = 3 * time.Second

	// probeInterval bounds how often the sampler lifecycle is re-probed
	// from the filesystem.
	probeInterval = 30 * time.Second

	flushSchedule    = "@every 5m"
	truncateSchedule = "@every 1h"
)

// Monitor owns the sensors, reconciler and accountant and drives the
// sampling loop. Each aggregate has exactly one writer goroutine.
type Monitor struct {
	smcConn    *smc.AppleSMC
	source     powersource.Reader
	fallback   powersource.Reader
	reader     *sampler.FileReader
	samplerMgr *sampler.Manager
	reconciler *reconcile.Reconciler
	accountant *energy.Accountant
	store      *energy.Store
	hub        *events.EventHub

	foreground         atomic.Bool
	foregroundInterval time.Duration
	backgroundInterval time.Duration
	cadenceCh          chan struct{}

	mu          sync.RWMutex
	lastState   types.PowerState
	hasState    bool
	lastBattery types.BatteryReading
	lastLedger  events.EnergyLedgerEvent
	hasLedger   bool

	flusher   *Scheduler
	truncater *Scheduler

	cancel context.CancelFunc
	done   sync.WaitGroup
}

// New wires a Monitor from an already-open SMC connection and a loaded
// state store.
func New(smcConn *smc.AppleSMC, store *energy.Store, samplerMgr *sampler.Manager) *Monitor {
	m := &Monitor{
		smcConn:            smcConn,
		source:             powersource.NewIORegReader(),
		fallback:           powersource.NewFallbackReader(),
		reader:             sampler.NewFileReader(samplerMgr.OutputPath()),
		samplerMgr:         samplerMgr,
		reconciler:         reconcile.New(reconcile.DefaultEpsilonW),
		store:              store,
		hub:                events.NewEventHub(),
		foregroundInterval: ForegroundInterval,
		backgroundInterval: BackgroundInterval,
		cadenceCh:          make(chan struct{}, 1),
	}
	m.accountant = energy.NewAccountant(store)
	m.flusher = NewScheduler(m.flush, m.onScheduleError)
	m.truncater = NewScheduler(m.truncate, m.onScheduleError)
	return m
}

// Hub exposes the event hub for subscribers.
func (m *Monitor) Hub() *events.EventHub { return m.hub }

// Store exposes the energy state store.
func (m *Monitor) Store() *energy.Store { return m.store }

// SamplerManager exposes the privileged sampler lifecycle manager.
func (m *Monitor) SamplerManager() *sampler.Manager { return m.samplerMgr }

// PowerHistory returns the recent reconciled states, oldest first.
func (m *Monitor) PowerHistory() []types.PowerState { return m.reconciler.History() }

// LastState returns the most recent reconciled state.
func (m *Monitor) LastState() (types.PowerState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastState, m.hasState
}

// LastBattery returns the battery reading from the most recent tick.
func (m *Monitor) LastBattery() types.BatteryReading {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastBattery
}

// SetForeground switches the sampling cadence. Safe from any goroutine;
// the change applies at the next scheduling decision.
func (m *Monitor) SetForeground(fg bool) {
	if m.foreground.Swap(fg) == fg {
		return
	}
	logrus.WithField("foreground", fg).Debug("sampling cadence changed")
	select {
	case m.cadenceCh <- struct{}{}:
	default:
	}
}

// Foreground reports the current cadence mode.
func (m *Monitor) Foreground() bool { return m.foreground.Load() }

func (m *Monitor) interval() time.Duration {
	if m.foreground.Load() {
		return m.foregroundInterval
	}
	return m.backgroundInterval
}

// ApplyRateAutoDetect resolves the stored zip code to a tariff when
// auto-detection is on. Returns true when the rate changed.
func (m *Monitor) ApplyRateAutoDetect() bool {
	if !m.store.AutoDetectRate() {
		return false
	}
	zip := m.store.ZipCode()
	if zip == "" {
		return false
	}
	rate, ok := rates.Lookup(zip)
	if !ok {
		logrus.WithField("zip", zip).Warn("no tariff for zip code, keeping configured rate")
		return false
	}
	if rate == m.store.RatePerKWh() {
		return false
	}
	m.store.SetRatePerKWh(rate)
	logrus.WithFields(logrus.Fields{
		"zip":  zip,
		"rate": rate,
	}).Info("electricity rate auto-detected")
	return true
}

// Start launches the sampling loops. It returns immediately; Stop
// performs the shutdown handshake.
func (m *Monitor) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	m.store.IncrementSessionCount()
	m.ApplyRateAutoDetect()

	// Rebuild sampler helper state from the filesystem; the daemon may
	// have restarted while the helper kept running.
	m.publishSamplerState(m.samplerMgr.Probe())

	if err := m.flusher.Schedule(flushSchedule); err != nil {
		return errors.Wrap(err, "schedule state flush")
	}
	if err := m.truncater.Schedule(truncateSchedule); err != nil {
		return errors.Wrap(err, "schedule sampler truncation")
	}
	m.flusher.Start()
	m.truncater.Start()

	m.done.Add(2)
	go func() {
		defer m.done.Done()
		m.tickLoop(ctx)
	}()
	go func() {
		defer m.done.Done()
		m.probeLoop(ctx)
	}()

	logrus.Debug("monitor started")
	return nil
}

// Stop cancels every loop and timer, then performs one synchronous
// best-effort flush. No timer fires after Stop returns.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.flusher.Stop()
	m.truncater.Stop()
	m.done.Wait()

	if err := m.store.Save(); err != nil {
		logrus.Errorf("final state flush failed: %v", err)
	}
	logrus.Debug("monitor stopped")
}

func (m *Monitor) flush() error {
	return m.store.Save()
}

func (m *Monitor) truncate() error {
	if err := m.reader.Truncate(); err != nil {
		return errors.Wrap(err, "truncate sampler output")
	}
	if t := m.reader.LastTruncateTime(); !t.IsZero() {
		m.samplerMgr.SetTruncateTime(t)
	}
	return nil
}

func (m *Monitor) onScheduleError(data any) {
	if err, ok := data.(error); ok {
		logrus.Errorf("scheduled task failed: %v", err)
	}
}

func (m *Monitor) probeLoop(ctx context.Context) {
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()

	prev := m.samplerMgr.State()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := m.samplerMgr.Probe()
			if st.Installed != prev.Installed || st.Running != prev.Running {
				m.publishSamplerState(st)
			}
			prev = st
		}
	}
}

func (m *Monitor) publishSamplerState(st types.SamplerState) {
	m.hub.Publish(events.SamplerState, events.SamplerStateEvent{State: st})
}
