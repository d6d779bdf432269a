package sampler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeElevator struct {
	result  ElevationResult
	err     error
	scripts []string
}

func (f *fakeElevator) RunElevated(_ context.Context, script, _ string) (ElevationResult, error) {
	f.scripts = append(f.scripts, script)
	return f.result, f.err
}

func TestInstallSuccess(t *testing.T) {
	el := &fakeElevator{result: ElevationSuccess}
	m := NewManager(el, "/tmp/test.plist", "/tmp/test.out", 1000)

	res, err := m.Install(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ElevationSuccess, res)
	assert.True(t, m.State().Installed)

	require.Len(t, el.scripts, 1)
	// Re-install must replace the prior descriptor: unload before load.
	assert.Contains(t, el.scripts[0], "launchctl unload")
	assert.Contains(t, el.scripts[0], "launchctl load")
	assert.Contains(t, el.scripts[0], "/tmp/test.plist")
}

func TestInstallCancelledLeavesNotInstalled(t *testing.T) {
	el := &fakeElevator{result: ElevationCancelled}
	m := NewManager(el, "/tmp/test.plist", "/tmp/test.out", 1000)

	res, err := m.Install(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ElevationCancelled, res)
	assert.False(t, m.State().Installed, "cancellation must not leave a partial install")
}

func TestInstallFailureLeavesNotInstalled(t *testing.T) {
	el := &fakeElevator{result: ElevationFailed, err: assert.AnError}
	m := NewManager(el, "/tmp/test.plist", "/tmp/test.out", 1000)

	res, err := m.Install(context.Background())
	assert.Error(t, err)
	assert.Equal(t, ElevationFailed, res)
	assert.False(t, m.State().Installed)
	assert.NotEmpty(t, m.State().LastError)
}

func TestUninstallAlwaysSafe(t *testing.T) {
	el := &fakeElevator{result: ElevationSuccess}
	m := NewManager(el, "/tmp/test.plist", "/tmp/test.out", 1000)

	// Never installed; uninstall still succeeds and clears state.
	res, err := m.Uninstall(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ElevationSuccess, res)
	assert.False(t, m.State().Installed)

	require.Len(t, el.scripts, 1)
	assert.Contains(t, el.scripts[0], "rm -f /tmp/test.plist")
	assert.Contains(t, el.scripts[0], "rm -f /tmp/test.out")
}

func TestProbeRebuildsStateFromFilesystem(t *testing.T) {
	dir := t.TempDir()
	plistPath := filepath.Join(dir, "sampler.plist")
	outputPath := filepath.Join(dir, "sampler.out")

	m := NewManager(&fakeElevator{}, plistPath, outputPath, 1000)

	st := m.Probe()
	assert.False(t, st.Installed)
	assert.False(t, st.Running)

	require.NoError(t, os.WriteFile(plistPath, []byte("<plist/>"), 0644))
	st = m.Probe()
	assert.True(t, st.Installed)
	assert.False(t, st.Running, "descriptor alone does not mean the helper runs")

	require.NoError(t, os.WriteFile(outputPath, []byte("data"), 0644))
	st = m.Probe()
	assert.True(t, st.Running, "fresh output file means the helper is alive")
	assert.False(t, st.LastFileModTime.IsZero())

	// A stale output file means the helper is installed but not running.
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(outputPath, old, old))
	st = m.Probe()
	assert.True(t, st.Installed)
	assert.False(t, st.Running)
}
