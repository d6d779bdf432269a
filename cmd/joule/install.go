package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/joule-sh/joule/pkg/sampler"
)

func newSamplerManager() *sampler.Manager {
	return sampler.NewManager(sampler.OsascriptElevator{},
		sampler.DefaultPlistPath,
		sampler.DefaultOutputPath,
		sampler.DefaultIntervalMS)
}

// NewInstallSamplerCommand .
func NewInstallSamplerCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "install-sampler",
		Short:   "Install the privileged power sampler (system-wide)",
		GroupID: gInstallation,
		Long: `Install the privileged power sampler to launchd (system-wide).

The sampler reports per-cluster CPU/GPU usage and power, which requires
root. You will be asked to authorize the installation; everything else
joule does stays unprivileged.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr := newSamplerManager()

			res, err := mgr.Install(cmd.Context())
			switch res {
			case sampler.ElevationCancelled:
				cmd.Println("Installation cancelled. joule will keep working without per-cluster metrics.")
				return nil
			case sampler.ElevationFailed:
				return fmt.Errorf("failed to install sampler: %v", err)
			}

			logrus.Infof("sampler installation succeeded")
			cmd.Println("The sampler is installed and will start on boot. Run `joule status` to see per-cluster metrics.")

			return nil
		},
	}
}

// NewUninstallSamplerCommand .
func NewUninstallSamplerCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall-sampler",
		Short:   "Uninstall the privileged power sampler (system-wide)",
		GroupID: gInstallation,
		Long: `Uninstall the privileged power sampler from launchd (system-wide).

This stops the sampler, removes it from launchd, and deletes its output
file. Safe to run even if the sampler was never installed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr := newSamplerManager()

			res, err := mgr.Uninstall(cmd.Context())
			switch res {
			case sampler.ElevationCancelled:
				cmd.Println("Uninstallation cancelled.")
				return nil
			case sampler.ElevationFailed:
				return fmt.Errorf("failed to uninstall sampler: %v", err)
			}

			logrus.Infof("sampler uninstalled")

			return nil
		},
	}
}
