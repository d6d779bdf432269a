package smc

// Power telemetry SMC keys for arm64 (Apple Silicon)
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
