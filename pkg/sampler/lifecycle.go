package sampler

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/joule-sh/joule/pkg/types"
)

const (
	// DefaultPlistPath is the reboot-persistent service descriptor for the
	// privileged helper.
	DefaultPlistPath = "/Library/LaunchDaemons/sh.joule.sampler.plist"

	// DefaultOutputPath is where the helper appends its records.
	DefaultOutputPath = "/private/var/tmp/joule-sampler.out"

	// DefaultIntervalMS is the helper's sample interval.
	DefaultIntervalMS = 1000

	powermetricsPath = "/usr/bin/powermetrics"
	samplerLabel     = "sh.joule.sampler"
)

// launchDaemonTemplate keeps the helper running continuously: it restarts on
// exit and starts at boot.
const launchDaemonTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>sh.joule.sampler</string>
	<key>ProgramArguments</key>
	<array>
		<string>/usr/bin/powermetrics</string>
		<string>--samplers</string>
		<string>cpu_power,gpu_power</string>
		<string>--format</string>
		<string>plist</string>
		<string>--sample-interval</string>
		<string>INTERVAL_MS</string>
		<string>--output-file</string>
		<string>OUTPUT_PATH</string>
	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<true/>
</dict>
</plist>
`

// Manager owns the privileged helper's lifecycle: install, uninstall, and the
// state rebuilt from filesystem probes. Construct exactly one and pass it by
// reference; there is no implicit global instance.
type Manager struct {
	plistPath  string
	outputPath string
	intervalMS int
	elevator   Elevator

	mu    sync.Mutex
	state types.SamplerState
}

func NewManager(elevator Elevator, plistPath, outputPath string, intervalMS int) *Manager {
	if plistPath == "" {
		plistPath = DefaultPlistPath
	}
	if outputPath == "" {
		outputPath = DefaultOutputPath
	}
	if intervalMS <= 0 {
		intervalMS = DefaultIntervalMS
	}
	return &Manager{
		plistPath:  plistPath,
		outputPath: outputPath,
		intervalMS: intervalMS,
		elevator:   elevator,
	}
}

// OutputPath returns the helper's output file path.
func (m *Manager) OutputPath() string {
	return m.outputPath
}

// Install writes the service descriptor and loads the helper. It is
// idempotent: re-installing replaces the prior descriptor. On cancellation or
// failure the system stays fully not-installed.
func (m *Manager) Install(ctx context.Context) (ElevationResult, error) {
	rendered := strings.ReplaceAll(launchDaemonTemplate, "INTERVAL_MS", fmt.Sprintf("%d", m.intervalMS))
	rendered = strings.ReplaceAll(rendered, "OUTPUT_PATH", m.outputPath)

	tmp, err := os.CreateTemp("", "joule-sampler-*.plist")
	if err != nil {
		return ElevationFailed, errors.Wrap(err, "failed to stage service descriptor")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(rendered); err != nil {
		tmp.Close()
		return ElevationFailed, errors.Wrap(err, "failed to write service descriptor")
	}
	if err := tmp.Close(); err != nil {
		return ElevationFailed, errors.Wrap(err, "failed to write service descriptor")
	}

	// Unload first so re-installing replaces the prior descriptor; the
	// unload fails harmlessly when nothing is loaded.
	script := strings.Join([]string{
		fmt.Sprintf("/bin/launchctl unload %s 2>/dev/null || true", m.plistPath),
		fmt.Sprintf("/bin/cp %s %s", tmp.Name(), m.plistPath),
		fmt.Sprintf("/usr/sbin/chown root:wheel %s", m.plistPath),
		fmt.Sprintf("/bin/chmod 644 %s", m.plistPath),
		fmt.Sprintf("/bin/launchctl load %s", m.plistPath),
	}, " && ")

	result, err := m.elevator.RunElevated(ctx, script, "joule needs to install its power sampler.")

	m.mu.Lock()
	defer m.mu.Unlock()

	switch result {
	case ElevationSuccess:
		m.state.Installed = true
		m.state.LastError = ""
		logrus.WithField("plist", m.plistPath).Info("sampler installed")
	case ElevationCancelled:
		logrus.Info("sampler install cancelled")
	default:
		if err != nil {
			m.state.LastError = err.Error()
		}
		logrus.Errorf("sampler install failed: %v", err)
	}

	return result, err
}

// Uninstall stops the helper and removes the descriptor and output file.
// Always safe to call, installed or not.
func (m *Manager) Uninstall(ctx context.Context) (ElevationResult, error) {
	script := strings.Join([]string{
		fmt.Sprintf("/bin/launchctl unload %s 2>/dev/null || true", m.plistPath),
		fmt.Sprintf("/bin/rm -f %s", m.plistPath),
		fmt.Sprintf("/bin/rm -f %s", m.outputPath),
	}, "; ")

	result, err := m.elevator.RunElevated(ctx, script, "joule needs to remove its power sampler.")

	m.mu.Lock()
	defer m.mu.Unlock()

	switch result {
	case ElevationSuccess:
		m.state = types.SamplerState{}
		logrus.Info("sampler uninstalled")
	case ElevationCancelled:
		logrus.Info("sampler uninstall cancelled")
	default:
		if err != nil {
			m.state.LastError = err.Error()
		}
		logrus.Errorf("sampler uninstall failed: %v", err)
	}

	return result, err
}

// Probe rebuilds the lifecycle state from filesystem evidence: the descriptor
// means installed, a recently touched output file means running.
func (m *Manager) Probe() types.SamplerState {
	installed := false
	if _, err := os.Stat(m.plistPath); err == nil {
		installed = true
	}

	running := false
	var modTime time.Time
	if st, err := os.Stat(m.outputPath); err == nil {
		modTime = st.ModTime()
		staleness := 3*time.Duration(m.intervalMS)*time.Millisecond + 5*time.Second
		running = time.Since(modTime) < staleness
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Installed = installed
	m.state.Running = running
	m.state.LastFileModTime = modTime
	return m.state
}

// State returns a snapshot of the lifecycle state.
func (m *Manager) State() types.SamplerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SetMetrics records the most recently parsed metrics on the state snapshot.
func (m *Manager) SetMetrics(metrics *types.SamplerMetrics) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Metrics = metrics
}

// SetTruncateTime records when the output file was last truncated.
func (m *Manager) SetTruncateTime(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.LastTruncateTime = t
}

// SetError records a transient lifecycle error without failing anything.
func (m *Manager) SetError(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.LastError = msg
}
