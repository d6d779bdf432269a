package energy

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joule-sh/joule/pkg/types"
)

func TestStoreDefaults(t *testing.T) {
	s := newTestStore(t)

	assert.Zero(t, s.LifetimeEnergyWh())
	assert.Zero(t, s.LifetimeSessionCount())
	assert.Equal(t, 0.15, s.RatePerKWh())
	assert.True(t, s.AutoDetectRate())
	assert.Empty(t, s.ZipCode())
	assert.Empty(t, s.DailyHistory())
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s, err := NewStore(path)
	require.NoError(t, err)

	s.AddEnergy(123.5)
	s.IncrementSessionCount()
	s.SetToday("2026-03-14", 12.25)
	s.SetRatePerKWh(0.22)
	s.SetAutoDetectRate(false)
	s.SetZipCode("90210")
	s.ArchiveDay(types.DailyRecord{Date: "2026-03-13", EnergyWh: 88})
	require.NoError(t, s.Save())

	loaded, err := NewStore(path)
	require.NoError(t, err)

	assert.InDelta(t, 123.5, loaded.LifetimeEnergyWh(), 1e-9)
	assert.Equal(t, 1, loaded.LifetimeSessionCount())
	assert.Equal(t, "2026-03-14", loaded.TodayDate())
	assert.InDelta(t, 12.25, loaded.TodayEnergyWh(), 1e-9)
	assert.Equal(t, 0.22, loaded.RatePerKWh())
	assert.False(t, loaded.AutoDetectRate())
	assert.Equal(t, "90210", loaded.ZipCode())
	require.Len(t, loaded.DailyHistory(), 1)
	assert.Equal(t, "2026-03-13", loaded.DailyHistory()[0].Date)
}

func TestStoreLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0644))

	s, err := NewStore(path)
	require.NoError(t, err)
	assert.Equal(t, 0.15, s.RatePerKWh(), "empty file falls back to defaults")
}

func TestArchiveDayEvictsOldest(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < DefaultDailyHistorySize; i++ {
		s.ArchiveDay(types.DailyRecord{
			Date:     fmt.Sprintf("2026-%02d-%02d", i/28+1, i%28+1),
			EnergyWh: float64(i),
		})
	}
	require.Len(t, s.DailyHistory(), DefaultDailyHistorySize)
	oldest := s.DailyHistory()[0]

	s.ArchiveDay(types.DailyRecord{Date: "2026-12-31", EnergyWh: 999})

	h := s.DailyHistory()
	require.Len(t, h, DefaultDailyHistorySize, "inserting a 91st record keeps exactly 90")
	assert.NotEqual(t, oldest.Date, h[0].Date, "the oldest record is evicted")
	assert.Equal(t, "2026-12-31", h[len(h)-1].Date)
}

func TestArchiveDayOverwritesByDate(t *testing.T) {
	s := newTestStore(t)

	s.ArchiveDay(types.DailyRecord{Date: "2026-03-14", EnergyWh: 10})
	s.ArchiveDay(types.DailyRecord{Date: "2026-03-14", EnergyWh: 25})

	h := s.DailyHistory()
	require.Len(t, h, 1)
	assert.Equal(t, 25.0, h[0].EnergyWh)
}

func TestResetLifetime(t *testing.T) {
	s := newTestStore(t)
	s.AddEnergy(500)
	require.Greater(t, s.LifetimeEnergyWh(), 0.0)

	s.ResetLifetime()
	assert.Zero(t, s.LifetimeEnergyWh())
}

func TestConcurrentSavesLeaveParseableState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s, err := NewStore(path)
	require.NoError(t, err)
	s.SetZipCode("90210")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				s.AddEnergy(0.01)
				assert.NoError(t, s.Save())
			}
		}()
	}
	wg.Wait()

	// Whatever interleaving happened, the file must hold one complete
	// state that a fresh load accepts.
	loaded, err := NewStore(path)
	require.NoError(t, err)
	assert.Equal(t, "90210", loaded.ZipCode())
	assert.Greater(t, loaded.LifetimeEnergyWh(), 0.0)
}
