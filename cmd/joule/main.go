package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/joule-sh/joule/pkg/client"
	"github.com/joule-sh/joule/pkg/utils/osver"
)

var (
	logLevel       = "info"
	unixSocketPath = "/var/run/joule.sock"
	statePath      = "/etc/joule.json"
)

var (
	gBasic        = "Basic:"
	gAdvanced     = "Advanced:"
	gInstallation = "Installation:"
	commandGroups = []string{
		gBasic,
		gAdvanced,
		gInstallation,
	}
)

var apiClient = client.NewClient(unixSocketPath)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	if errors.Is(err, client.ErrDaemonNotRunning) {
		fmt.Fprintln(os.Stderr, "\nError: joule daemon is not running")
		fmt.Fprintln(os.Stderr, "Is the daemon running? Have you installed it?")
	} else if errors.Is(err, client.ErrPermissionDenied) {
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Try running the command again with 'sudo'")
		fmt.Fprintln(os.Stderr, "  - Or restart the daemon with the '--always-allow-non-root-access' flag to grant permissions to your user")
	}
}

func main() {
	if !osver.IsAtLeast(11, 0, 0) {
		fmt.Fprintln(os.Stderr, "joule requires macOS 11.0 or later")
		os.Exit(1)
	}

	// joule does not need many CPUs.
	if os.Getenv("GOMAXPROCS") == "" {
		runtime.GOMAXPROCS(2)
	}

	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "joule",
		Short: "joule measures and accounts the power your Mac draws",
		Long: `joule continuously samples the hardware power sources of Apple Silicon Macs,
reconciles them into one trustworthy power figure, and keeps durable
energy and cost statistics.

Report issues: https://github.com/joule-sh/joule/issues`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogger()
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&statePath, "state", statePath, "state file path")
	globalFlags.StringVar(&unixSocketPath, "daemon-socket", unixSocketPath, "joule daemon unix socket path")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewDaemonCommand(),
		NewVersionCommand(),
		NewStatusCommand(),
		NewHistoryCommand(),
		NewRateCommand(),
		NewResetLifetimeCommand(),
		NewInstallSamplerCommand(),
		NewUninstallSamplerCommand(),
	)

	return cmd
}
