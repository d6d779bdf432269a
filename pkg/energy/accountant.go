package energy

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/joule-sh/joule/pkg/types"
)

// dateLayout is the calendar-date key used for rollover comparison and the
// daily archive.
const dateLayout = "2006-01-02"

// Accountant folds reconciled power snapshots into the durable ledger. It is
// written from exactly one task; reads go through the Store's snapshots.
type Accountant struct {
	store *Store

	lastPowerW float64
	lastTime   time.Time
	hasLast    bool
}

func NewAccountant(store *Store) *Accountant {
	return &Accountant{store: store}
}

// Fold integrates one snapshot into the ledger using the trapezoidal rule
// over the actual wall-clock gap between samples. The sampling cadence is
// adaptive, so the gap is never assumed.
func (a *Accountant) Fold(st types.PowerState) {
	a.Rollover(st.Time)

	if a.hasLast {
		dtHours := st.Time.Sub(a.lastTime).Hours()
		if dtHours > 0 && (a.lastPowerW > 0 || st.CurrentPowerW > 0) {
			deltaWh := (a.lastPowerW + st.CurrentPowerW) / 2 * dtHours
			a.store.AddEnergy(deltaWh)
		}
	}

	a.lastPowerW = st.CurrentPowerW
	a.lastTime = st.Time
	a.hasLast = true
}

// Rollover archives the completed day once the calendar date moves past the
// cached one. Calling it twice within the same tick is a no-op.
func (a *Accountant) Rollover(now time.Time) {
	date := now.Format(dateLayout)
	cached := a.store.TodayDate()

	if cached == date {
		return
	}

	if cached != "" {
		a.store.ArchiveDay(types.DailyRecord{
			Date:     cached,
			EnergyWh: a.store.TodayEnergyWh(),
		})
		logrus.WithFields(logrus.Fields{
			"date":     cached,
			"energyWh": a.store.TodayEnergyWh(),
		}).Info("archived completed day")
	}

	a.store.SetToday(date, 0)

	// Persist right away so a crash cannot lose the archived day; a failed
	// write is retried by the next scheduled flush.
	if err := a.store.Save(); err != nil {
		logrus.Errorf("failed to persist ledger after day rollover: %v", err)
	}
}

// BatteryRatePctPerMin estimates the battery's state-of-charge slope from the
// net battery flow: positive while charging, negative while discharging.
func BatteryRatePctPerMin(b types.BatteryReading, batteryPowerW float64) (float64, bool) {
	if b.MaxCapacitymAh == nil || b.VoltageV == nil {
		return 0, false
	}
	maxCapacityWh := *b.MaxCapacitymAh * *b.VoltageV / 1000.0
	if maxCapacityWh <= 0 {
		return 0, false
	}
	return -batteryPowerW / maxCapacityWh * 100.0 / 60.0, true
}
