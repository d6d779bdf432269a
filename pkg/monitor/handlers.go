package monitor

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/joule-sh/joule/pkg/energy"
	"github.com/joule-sh/joule/pkg/rates"
	"github.com/joule-sh/joule/pkg/types"
	"github.com/joule-sh/joule/pkg/version"
)

// EnergySummary is the /energy response.
type EnergySummary struct {
	TodayDate            string  `json:"todayDate"`
	TodayEnergyWh        float64 `json:"todayEnergyWh"`
	TodayCostUSD         float64 `json:"todayCostUsd"`
	LifetimeEnergyWh     float64 `json:"lifetimeEnergyWh"`
	LifetimeCostUSD      float64 `json:"lifetimeCostUsd"`
	LifetimeSessionCount int     `json:"lifetimeSessionCount"`
	RatePctPerMin        float64 `json:"ratePctPerMin"`
}

// RateConfig is the /rate response.
type RateConfig struct {
	RatePerKWh float64 `json:"ratePerKwh"`
	ZipCode    string  `json:"zipCode"`
	AutoDetect bool    `json:"autoDetect"`
}

// HistoryResponse is the /history response.
type HistoryResponse struct {
	Power []types.PowerState  `json:"power"`
	Daily []types.DailyRecord `json:"daily"`
}

func (m *Monitor) getPower(c *gin.Context) {
	st, ok := m.LastState()
	if !ok {
		c.IndentedJSON(http.StatusServiceUnavailable, "no sample yet")
		return
	}
	c.IndentedJSON(http.StatusOK, st)
}

func (m *Monitor) getEnergy(c *gin.Context) {
	st, _ := m.LastState()
	ratePctPerMin, _ := batteryRate(m, st)
	c.IndentedJSON(http.StatusOK, EnergySummary{
		TodayDate:            m.store.TodayDate(),
		TodayEnergyWh:        m.store.TodayEnergyWh(),
		TodayCostUSD:         m.store.TodayCostUSD(),
		LifetimeEnergyWh:     m.store.LifetimeEnergyWh(),
		LifetimeCostUSD:      m.store.LifetimeCostUSD(),
		LifetimeSessionCount: m.store.LifetimeSessionCount(),
		RatePctPerMin:        ratePctPerMin,
	})
}

func (m *Monitor) getHistory(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, HistoryResponse{
		Power: m.PowerHistory(),
		Daily: m.store.DailyHistory(),
	})
}

func (m *Monitor) getSampler(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, m.samplerMgr.State())
}

func (m *Monitor) getRate(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, RateConfig{
		RatePerKWh: m.store.RatePerKWh(),
		ZipCode:    m.store.ZipCode(),
		AutoDetect: m.store.AutoDetectRate(),
	})
}

func (m *Monitor) setRate(c *gin.Context) {
	var rate float64
	if err := c.BindJSON(&rate); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if rate <= 0 || rate > 5 {
		err := fmt.Errorf("rate must be between 0 and 5 $/kWh, got %v", rate)
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	m.store.SetRatePerKWh(rate)
	m.store.SetAutoDetectRate(false)
	if err := m.store.Save(); err != nil {
		logrus.Errorf("saveState failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	logrus.Infof("set electricity rate to %v $/kWh", rate)

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set electricity rate to %v $/kWh", rate))
}

func (m *Monitor) setZip(c *gin.Context) {
	var zip string
	if err := c.BindJSON(&zip); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if zip != "" && rates.Region(zip) == "" {
		err := fmt.Errorf("unrecognized zip code %q", zip)
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	m.store.SetZipCode(zip)
	msg := fmt.Sprintf("set zip code to %q", zip)
	if m.ApplyRateAutoDetect() {
		msg += fmt.Sprintf(", electricity rate auto-detected to %v $/kWh", m.store.RatePerKWh())
	}
	if err := m.store.Save(); err != nil {
		logrus.Errorf("saveState failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	logrus.Info(msg)

	c.IndentedJSON(http.StatusCreated, msg)
}

func (m *Monitor) setAutoDetect(c *gin.Context) {
	var enabled bool
	if err := c.BindJSON(&enabled); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	m.store.SetAutoDetectRate(enabled)
	if enabled {
		m.ApplyRateAutoDetect()
	}
	if err := m.store.Save(); err != nil {
		logrus.Errorf("saveState failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	logrus.Infof("set rate auto-detect to %t", enabled)

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("rate auto-detect set to %t", enabled))
}

func (m *Monitor) setCadence(c *gin.Context) {
	var foreground bool
	if err := c.BindJSON(&foreground); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	m.SetForeground(foreground)

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("foreground cadence set to %t", foreground))
}

func (m *Monitor) resetLifetime(c *gin.Context) {
	m.store.ResetLifetime()
	if err := m.store.Save(); err != nil {
		logrus.Errorf("saveState failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	logrus.Info("lifetime energy statistics reset")

	c.IndentedJSON(http.StatusCreated, "lifetime energy statistics reset")
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

func batteryRate(m *Monitor, st types.PowerState) (float64, bool) {
	return energy.BatteryRatePctPerMin(m.LastBattery(), st.BatteryPowerW)
}
