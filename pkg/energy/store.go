package energy

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/joule-sh/joule/pkg/types"
	"github.com/joule-sh/joule/pkg/utils/ptr"
)

// DefaultDailyHistorySize caps the archived per-day records; the oldest
// entry is evicted on overflow.
const DefaultDailyHistorySize = 90

var defaultRawState = &RawState{
	LifetimeEnergyWh:     ptr.To(0.0),
	LifetimeSessionCount: ptr.To(0),
	TodayEnergyWh:        ptr.To(0.0),
	RatePerKWh:           ptr.To(0.15),
	AutoDetectRate:       ptr.To(true),
}

// RawState is the serialized key/value state. Pointer fields distinguish
// "never written" from zero so defaults apply cleanly.
type RawState struct {
	LifetimeEnergyWh     *float64            `json:"lifetimeEnergyWh,omitempty"`
	LifetimeSessionCount *int                `json:"lifetimeSessionCount,omitempty"`
	TodayDate            *string             `json:"todayDate,omitempty"`
	TodayEnergyWh        *float64            `json:"todayEnergyWh,omitempty"`
	DailyHistory         []types.DailyRecord `json:"dailyHistory,omitempty"`
	RatePerKWh           *float64            `json:"ratePerKwh,omitempty"`
	AutoDetectRate       *bool               `json:"autoDetectRate,omitempty"`
	ZipCode              *string             `json:"zipCode,omitempty"`
}

// Store is the durable ledger and cost configuration, backed by a JSON file.
// It is loaded at startup, flushed periodically, and flushed synchronously at
// shutdown. All accessors are safe for concurrent use.
type Store struct {
	c        *RawState
	mu       *sync.RWMutex
	filepath string

	historySize int
}

func NewStore(statePath string) (*Store, error) {
	s := &Store{
		filepath:    statePath,
		mu:          &sync.RWMutex{},
		historySize: DefaultDailyHistorySize,
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStoreFromRaw builds a Store around pre-made state. Used in tests and by
// clients rendering a fetched state.
func NewStoreFromRaw(c *RawState, statePath string) *Store {
	if c == nil {
		c = &RawState{}
	}
	return &Store{
		c:           c,
		mu:          &sync.RWMutex{},
		filepath:    statePath,
		historySize: DefaultDailyHistorySize,
	}
}

func (s *Store) LifetimeEnergyWh() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ptr.Deref(s.c.LifetimeEnergyWh, *defaultRawState.LifetimeEnergyWh)
}

func (s *Store) LifetimeSessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ptr.Deref(s.c.LifetimeSessionCount, *defaultRawState.LifetimeSessionCount)
}

func (s *Store) TodayDate() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ptr.Deref(s.c.TodayDate, "")
}

func (s *Store) TodayEnergyWh() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ptr.Deref(s.c.TodayEnergyWh, *defaultRawState.TodayEnergyWh)
}

func (s *Store) RatePerKWh() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ptr.Deref(s.c.RatePerKWh, *defaultRawState.RatePerKWh)
}

func (s *Store) AutoDetectRate() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ptr.Deref(s.c.AutoDetectRate, *defaultRawState.AutoDetectRate)
}

func (s *Store) ZipCode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ptr.Deref(s.c.ZipCode, "")
}

// DailyHistory returns a copy of the archived records, oldest first.
func (s *Store) DailyHistory() []types.DailyRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.DailyRecord, len(s.c.DailyHistory))
	copy(out, s.c.DailyHistory)
	return out
}

// Raw returns a copy of the raw serialized state.
func (s *Store) Raw() RawState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw := *s.c
	raw.DailyHistory = make([]types.DailyRecord, len(s.c.DailyHistory))
	copy(raw.DailyHistory, s.c.DailyHistory)
	return raw
}

func (s *Store) SetRatePerKWh(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.RatePerKWh = &rate
}

func (s *Store) SetAutoDetectRate(b bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.AutoDetectRate = &b
}

func (s *Store) SetZipCode(zip string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.ZipCode = &zip
}

// AddEnergy accumulates an integration delta into both the daily and the
// lifetime counters.
func (s *Store) AddEnergy(deltaWh float64) {
	if deltaWh <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.TodayEnergyWh = ptr.To(ptr.Deref(s.c.TodayEnergyWh, 0) + deltaWh)
	s.c.LifetimeEnergyWh = ptr.To(ptr.Deref(s.c.LifetimeEnergyWh, 0) + deltaWh)
}

// SetToday replaces the running day counter, used at rollover.
func (s *Store) SetToday(date string, energyWh float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.TodayDate = &date
	s.c.TodayEnergyWh = &energyWh
}

// IncrementSessionCount records one daemon session.
func (s *Store) IncrementSessionCount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.LifetimeSessionCount = ptr.To(ptr.Deref(s.c.LifetimeSessionCount, 0) + 1)
}

// ResetLifetime is the explicit reset carved out of the monotonicity rule.
func (s *Store) ResetLifetime() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.LifetimeEnergyWh = ptr.To(0.0)
}

// ArchiveDay inserts or overwrites the record for the given date, evicting
// the oldest entry once the cap is exceeded.
func (s *Store) ArchiveDay(rec types.DailyRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.c.DailyHistory {
		if s.c.DailyHistory[i].Date == rec.Date {
			s.c.DailyHistory[i] = rec
			return
		}
	}

	s.c.DailyHistory = append(s.c.DailyHistory, rec)
	if len(s.c.DailyHistory) > s.historySize {
		s.c.DailyHistory = s.c.DailyHistory[len(s.c.DailyHistory)-s.historySize:]
	}
}

// TodayCostUSD derives today's cost from stored energy; cost is never stored
// independently so it cannot drift from the energy figure.
func (s *Store) TodayCostUSD() float64 {
	return s.TodayEnergyWh() / 1000.0 * s.RatePerKWh()
}

// LifetimeCostUSD derives the lifetime cost from stored energy.
func (s *Store) LifetimeCostUSD() float64 {
	return s.LifetimeEnergyWh() / 1000.0 * s.RatePerKWh()
}

func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fp, err := os.Open(s.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// First run; start from the empty state, not a nil.
			s.c = &RawState{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", s.filepath)
	}
	defer func(fp *os.File) {
		if err := fp.Close(); err != nil {
			logrus.Warnf("failed to close file %s", s.filepath)
		}
	}(fp)

	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", s.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		s.c = &RawState{}
		return nil
	}

	raw := RawState{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal state from file %s", s.filepath)
	}
	s.c = &raw

	return nil
}

// Save writes the state atomically: the snapshot is marshaled under the
// read lock, written to a private temp file, then renamed over the state
// file. Concurrent savers (periodic flush, rollover, API handlers) can
// race only on the rename, so the file always holds one complete state.
func (s *Store) Save() error {
	s.mu.RLock()
	if s.c == nil {
		s.mu.RUnlock()
		return pkgerrors.New("state is nil")
	}
	b, err := json.MarshalIndent(s.c, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode state")
	}

	fp, err := os.CreateTemp(filepath.Dir(s.filepath), ".state-*.json")
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to create temp state file")
	}
	tmpName := fp.Name()

	if _, err := fp.Write(b); err != nil {
		_ = fp.Close()
		_ = os.Remove(tmpName)
		return pkgerrors.Wrapf(err, "failed to write state to %s", tmpName)
	}
	if err := fp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return pkgerrors.Wrapf(err, "failed to close %s", tmpName)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		logrus.Warnf("failed to chmod %s: %v", tmpName, err)
	}
	if err := os.Rename(tmpName, s.filepath); err != nil {
		_ = os.Remove(tmpName)
		return pkgerrors.Wrapf(err, "failed to replace state file %s", s.filepath)
	}

	return nil
}

func (s *Store) LogrusFields() logrus.Fields {
	return logrus.Fields{
		"lifetimeEnergyWh": s.LifetimeEnergyWh(),
		"sessions":         s.LifetimeSessionCount(),
		"todayDate":        s.TodayDate(),
		"todayEnergyWh":    s.TodayEnergyWh(),
		"ratePerKwh":       s.RatePerKWh(),
		"autoDetectRate":   s.AutoDetectRate(),
		"zipCode":          s.ZipCode(),
		"historyDays":      len(s.DailyHistory()),
	}
}
