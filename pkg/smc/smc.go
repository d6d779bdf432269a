package smc

import (
	"sync"

	"github.com/charlie0129/gosmc"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// AppleSMC is a read-only wrapper of gosmc.Connection.
type AppleSMC struct {
	conn gosmc.Connection

	// Key metadata (data type, byte size) never changes for a given key, so
	// it is resolved once and cached for the lifetime of the connection.
	mu      sync.Mutex
	keyInfo map[string]keyInfo
}

type keyInfo struct {
	dataType string
	size     int
}

// New returns a new AppleSMC.
func New() *AppleSMC {
	return &AppleSMC{
		conn:    gosmc.New(),
		keyInfo: make(map[string]keyInfo),
	}
}

// NewMock returns a new mocked AppleSMC with prefill values.
func NewMock(prefillValues map[string][]byte) *AppleSMC {
	conn := gosmc.NewMockConnection()

	for key, value := range prefillValues {
		err := conn.Write(key, value)
		if err != nil {
			panic(err)
		}
	}

	return &AppleSMC{
		conn:    conn,
		keyInfo: make(map[string]keyInfo),
	}
}

// Open opens the connection.
func (c *AppleSMC) Open() error {
	return c.conn.Open()
}

// Close closes the connection.
func (c *AppleSMC) Close() error {
	return c.conn.Close()
}

// Read reads a value from SMC. Keys are exactly 4 characters, packed MSB-first
// into a 32-bit code by the underlying connection.
func (c *AppleSMC) Read(key string) (gosmc.SMCVal, error) {
	if len(key) != 4 {
		return gosmc.SMCVal{}, errors.Errorf("smc key %q must be 4 characters", key)
	}

	logrus.WithFields(logrus.Fields{
		"key": key,
	}).Trace("Trying to read from SMC")

	v, err := c.conn.Read(key)
	if err != nil {
		return v, err
	}

	c.mu.Lock()
	info, seen := c.keyInfo[key]
	if !seen {
		c.keyInfo[key] = keyInfo{dataType: v.DataType, size: len(v.Bytes)}
	}
	c.mu.Unlock()

	if seen && info.size != len(v.Bytes) {
		// A size that disagrees with the cached key metadata means the read
		// returned garbage; report unavailable rather than a bogus value.
		return v, errors.Errorf("smc key %q returned %d bytes, expected %d", key, len(v.Bytes), info.size)
	}

	logrus.WithFields(logrus.Fields{
		"key": key,
		"val": v,
	}).Trace("Load from SMC succeed")

	return v, nil
}
