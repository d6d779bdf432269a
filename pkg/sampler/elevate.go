package sampler

import (
	"context"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// ElevationResult is the outcome of a privileged operation. Cancelled is
// distinguished from Failed so callers can present the correct message.
type ElevationResult int

const (
	ElevationSuccess ElevationResult = iota
	ElevationCancelled
	ElevationFailed
)

func (r ElevationResult) String() string {
	switch r {
	case ElevationSuccess:
		return "success"
	case ElevationCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// Elevator runs a shell script with elevated privileges after prompting the
// user. The OS elevation mechanism is a pluggable collaborator behind this
// interface.
type Elevator interface {
	RunElevated(ctx context.Context, script, prompt string) (ElevationResult, error)
}

// OsascriptElevator elevates through the system authorization dialog.
type OsascriptElevator struct{}

func (OsascriptElevator) RunElevated(ctx context.Context, script, prompt string) (ElevationResult, error) {
	// "do shell script" escapes are backslash-based; quotes in the script
	// must survive the round trip through AppleScript.
	escaped := strings.ReplaceAll(script, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)

	src := `do shell script "` + escaped + `" with prompt "` + prompt + `" with administrator privileges`

	cmd := exec.CommandContext(ctx, "/usr/bin/osascript", "-e", src)
	out, err := cmd.CombinedOutput()
	if err == nil {
		return ElevationSuccess, nil
	}

	// osascript reports a dismissed authorization dialog as error -128.
	if strings.Contains(string(out), "-128") {
		logrus.Debug("elevation prompt cancelled by user")
		return ElevationCancelled, nil
	}

	logrus.WithField("output", strings.TrimSpace(string(out))).Debugf("elevated script failed: %v", err)
	return ElevationFailed, err
}
