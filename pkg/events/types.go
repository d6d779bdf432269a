package events

import (
	"encoding/json"

	"github.com/joule-sh/joule/pkg/types"
)

// Event name constants
const (
	PowerState   = "power.state"
	EnergyLedger = "energy.ledger"
	SamplerState = "sampler.state"
)

// Event is a generic SSE event from the daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// PowerStateEvent is the typed payload for power.state.
type PowerStateEvent struct {
	State types.PowerState `json:"state"`
}

// EnergyLedgerEvent is the typed payload for energy.ledger. Costs are
// derived at publish time from the stored energy and the current rate.
type EnergyLedgerEvent struct {
	TodayEnergyWh    float64 `json:"todayEnergyWh"`
	TodayCostUSD     float64 `json:"todayCostUsd"`
	LifetimeEnergyWh float64 `json:"lifetimeEnergyWh"`
	LifetimeCostUSD  float64 `json:"lifetimeCostUsd"`
	RatePctPerMin    float64 `json:"ratePctPerMin"`
	Ts               int64   `json:"ts"`
}

// SamplerStateEvent is the typed payload for sampler.state.
type SamplerStateEvent struct {
	State types.SamplerState `json:"state"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
// Example:
//
//	payload, err := events.DecodeAs[events.PowerStateEvent](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(payload.State.CurrentPowerW)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
