package smc

import (
	"encoding/binary"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/joule-sh/joule/pkg/types"
	"github.com/joule-sh/joule/pkg/utils/ptr"
)

// ReadPower reads the power rail registers. Each rail that cannot be read or
// decoded this tick is simply left nil; a register read never fails the pull.
func (c *AppleSMC) ReadPower() types.RegisterReadings {
	r := types.RegisterReadings{}

	if v, ok := c.ReadFloat(SystemPowerKey); ok {
		r.SystemPowerW = ptr.To(v)
	}
	if v, ok := c.ReadFloat(DCInPowerKey); ok {
		r.WallPowerW = ptr.To(v)
	} else if vv, okV := c.ReadFloat(DCInVoltageKey); okV {
		// Some machines expose DC-in voltage and current but not the
		// combined power rail; derive it.
		if ia, okI := c.ReadFloat(DCInCurrentKey); okI && vv > 0 && ia >= 0 {
			r.WallPowerW = ptr.To(vv * ia)
		}
	}
	if v, ok := c.ReadFloat(BatteryPowerKey); ok {
		r.BatteryPowerW = ptr.To(v)
	}

	return r
}

// ReadBatteryVI reads battery voltage (V) and amperage (A). Amperage is
// negative while discharging, matching the OS power-source convention.
func (c *AppleSMC) ReadBatteryVI() (voltage, amperage float64, ok bool) {
	vv, err := c.Read(BatteryVoltageKey)
	if err != nil {
		return 0, 0, false
	}
	va, err := c.Read(BatteryCurrentKey)
	if err != nil {
		return 0, 0, false
	}

	mv := decodeUint(vv.Bytes)
	ma := decodeInt(va.Bytes)
	if mv == 0 {
		return 0, 0, false
	}

	return float64(mv) / 1000.0, float64(ma) / 1000.0, true
}

// ReadFloat reads a register and decodes it as a little-endian IEEE-754
// 32-bit float. ok is false when the key is unavailable or malformed.
func (c *AppleSMC) ReadFloat(key string) (float64, bool) {
	v, err := c.Read(key)
	if err != nil {
		logrus.WithField("key", key).Tracef("register unavailable: %v", err)
		return 0, false
	}

	if len(v.Bytes) != 4 {
		return 0, false
	}

	f := decodeFloat(v.Bytes)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return f, true
}

// decodeFloat decodes a 4-byte slice into a little-endian float32.
func decodeFloat(b []byte) float64 {
	if len(b) != 4 {
		return 0
	}
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
}

// decodeInt decodes a 2-byte slice into a little-endian int16.
func decodeInt(b []byte) int16 {
	if len(b) != 2 {
		return 0
	}
	return int16(binary.LittleEndian.Uint16(b))
}

// decodeUint decodes a 2-byte slice into a little-endian uint16.
func decodeUint(b []byte) uint16 {
	if len(b) != 2 {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}
