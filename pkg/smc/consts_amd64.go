package smc

// Power telemetry SMC keys for amd64 (Intel). Not every rail key exists on
// every board; a missing key simply reads as unavailable.
const (
	SystemPowerKey    = "PSTR"
	DCInPowerKey      = "PDTR"
	BatteryPowerKey   = "PPBR"
	DCInVoltageKey    = "VD0R"
	DCInCurrentKey    = "ID0R"
	BatteryVoltageKey = "B0AV"
	BatteryCurrentKey = "B0AC"
)

var allKeys = []string{
	SystemPowerKey,
	DCInPowerKey,
	BatteryPowerKey,
	DCInVoltageKey,
	DCInCurrentKey,
	BatteryVoltageKey,
	BatteryCurrentKey,
}
