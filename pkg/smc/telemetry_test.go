package smc

import (
	"encoding/binary"
	"math"
	"testing"
)

func float32Bytes(f float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(f))
	return b
}

func TestReadPower(t *testing.T) {
	c := NewMock(map[string][]byte{
		SystemPowerKey:  float32Bytes(12.5),
		DCInPowerKey:    float32Bytes(30.25),
		BatteryPowerKey: float32Bytes(4.75),
	})

	r := c.ReadPower()

	if r.SystemPowerW == nil || *r.SystemPowerW != 12.5 {
		t.Errorf("SystemPowerW = %v, want 12.5", r.SystemPowerW)
	}
	if r.WallPowerW == nil || *r.WallPowerW != 30.25 {
		t.Errorf("WallPowerW = %v, want 30.25", r.WallPowerW)
	}
	if r.BatteryPowerW == nil || *r.BatteryPowerW != 4.75 {
		t.Errorf("BatteryPowerW = %v, want 4.75", r.BatteryPowerW)
	}
}

func TestReadPowerMissingKeys(t *testing.T) {
	c := NewMock(map[string][]byte{
		SystemPowerKey: float32Bytes(8),
	})

	r := c.ReadPower()

	if r.SystemPowerW == nil || *r.SystemPowerW != 8 {
		t.Errorf("SystemPowerW = %v, want 8", r.SystemPowerW)
	}
	if r.WallPowerW != nil {
		t.Errorf("WallPowerW = %v, want nil", *r.WallPowerW)
	}
	if r.BatteryPowerW != nil {
		t.Errorf("BatteryPowerW = %v, want nil", *r.BatteryPowerW)
	}
}

func TestReadFloatMalformed(t *testing.T) {
	c := NewMock(map[string][]byte{
		SystemPowerKey: {0x01, 0x02}, // wrong size for a float32
	})

	if _, ok := c.ReadFloat(SystemPowerKey); ok {
		t.Error("expected malformed register to read as unavailable")
	}
}

func TestReadBatteryVI(t *testing.T) {
	mv := make([]byte, 2)
	binary.LittleEndian.PutUint16(mv, 12600) // 12.6 V
	ma := make([]byte, 2)
	binary.LittleEndian.PutUint16(ma, uint16(0xFFFF-1500+1)) // -1500 mA

	c := NewMock(map[string][]byte{
		BatteryVoltageKey: mv,
		BatteryCurrentKey: ma,
	})

	v, a, ok := c.ReadBatteryVI()
	if !ok {
		t.Fatal("expected battery V/I to be available")
	}
	if v != 12.6 {
		t.Errorf("voltage = %v, want 12.6", v)
	}
	if a != -1.5 {
		t.Errorf("amperage = %v, want -1.5", a)
	}
}

func TestReadRejectsBadKey(t *testing.T) {
	c := NewMock(nil)
	if _, err := c.Read("TOOLONG"); err == nil {
		t.Error("expected error for non-4-character key")
	}
}

func TestKeyConstantsWellFormed(t *testing.T) {
	seen := map[string]bool{}
	for _, key := range allKeys {
		if len(key) != 4 {
			t.Errorf("key %q is not 4 characters", key)
		}
		if seen[key] {
			t.Errorf("key %q is duplicated", key)
		}
		seen[key] = true
	}
}

func TestReadPowerWallDerivedFromVI(t *testing.T) {
	c := NewMock(map[string][]byte{
		DCInVoltageKey: float32Bytes(20.0),
		DCInCurrentKey: float32Bytes(2.25),
	})

	r := c.ReadPower()

	if r.WallPowerW == nil || *r.WallPowerW != 45.0 {
		t.Errorf("WallPowerW = %v, want 45.0 derived from V*I", r.WallPowerW)
	}
}

func TestReadPowerWallRegisterBeatsVI(t *testing.T) {
	c := NewMock(map[string][]byte{
		DCInPowerKey:   float32Bytes(30.0),
		DCInVoltageKey: float32Bytes(20.0),
		DCInCurrentKey: float32Bytes(2.25),
	})

	r := c.ReadPower()

	if r.WallPowerW == nil || *r.WallPowerW != 30.0 {
		t.Errorf("WallPowerW = %v, want the power register value 30.0", r.WallPowerW)
	}
}
