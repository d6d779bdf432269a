package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/joule-sh/joule/pkg/energy"
	"github.com/joule-sh/joule/pkg/monitor"
	"github.com/joule-sh/joule/pkg/sampler"
	"github.com/joule-sh/joule/pkg/smc"
	"github.com/joule-sh/joule/pkg/version"
)

var (
	// alwaysAllowNonRootAccess indicates whether to always allow non-root users to access the joule daemon.
	alwaysAllowNonRootAccess = false
)

// NewDaemonCommand .
func NewDaemonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "daemon",
		Hidden:  true,
		Short:   "Run joule daemon in the foreground",
		GroupID: gAdvanced,
		RunE: func(_ *cobra.Command, _ []string) error {
			logrus.WithFields(logrus.Fields{
				"version": version.Version,
				"commit":  version.GitCommit,
			}).Info("joule daemon starting")

			store, err := energy.NewStore(statePath)
			if err != nil {
				logrus.Fatalf("failed to load state during startup: %v", err)
			}
			logrus.WithFields(store.LogrusFields()).Infof("state loaded")

			smcConn := smc.New()
			if err := smcConn.Open(); err != nil {
				logrus.Fatal(err)
			}
			defer func() {
				logrus.Info("closing smc connection")
				if err := smcConn.Close(); err != nil {
					logrus.Errorf("failed to close smc connection: %v", err)
				}
			}()

			mgr := sampler.NewManager(sampler.OsascriptElevator{},
				sampler.DefaultPlistPath,
				sampler.DefaultOutputPath,
				sampler.DefaultIntervalMS)

			m := monitor.New(smcConn, store, mgr)
			return monitor.Run(m, unixSocketPath, alwaysAllowNonRootAccess)
		},
	}

	f := cmd.Flags()

	f.BoolVar(&alwaysAllowNonRootAccess, "always-allow-non-root-access", false,
		"Always allow non-root users to access the daemon.")

	return cmd
}

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}
