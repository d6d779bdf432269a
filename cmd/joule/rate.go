package main

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func NewRateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rate",
		Short:   "Configure the electricity rate used for cost figures",
		GroupID: gBasic,
		Long: `Configure the electricity rate used for cost figures.

Set an explicit rate in $/kWh, or set your zip code and let joule
auto-detect a regional average.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set [$/kWh]",
			Short: "Set the electricity rate explicitly",
			Long: `Set the electricity rate explicitly, in $/kWh.

Setting a rate disables auto-detection until you re-enable it.`,
			RunE: func(_ *cobra.Command, args []string) error {
				rate, err := parseFloatArg(args, "rate")
				if err != nil {
					return err
				}

				ret, err := apiClient.SetRate(rate)
				if err != nil {
					return fmt.Errorf("failed to set rate: %v", err)
				}

				if ret != "" {
					logrus.Infof("daemon responded: %s", ret)
				}

				logrus.Infof("successfully set electricity rate to %v $/kWh", rate)

				return nil
			},
		},
		&cobra.Command{
			Use:   "zip [code]",
			Short: "Set the zip code used for rate auto-detection",
			RunE: func(_ *cobra.Command, args []string) error {
				if len(args) != 1 {
					return fmt.Errorf("invalid number of arguments")
				}

				ret, err := apiClient.SetZip(args[0])
				if err != nil {
					return fmt.Errorf("failed to set zip code: %v", err)
				}

				if ret != "" {
					logrus.Infof("daemon responded: %s", ret)
				}

				return nil
			},
		},
		newEnableDisableCommand(
			"auto-detect", "rate auto-detection",
			"Derive the electricity rate from your zip code's regional average.",
			func() (string, error) { return apiClient.SetAutoDetect(true) },
			func() (string, error) { return apiClient.SetAutoDetect(false) },
		),
		&cobra.Command{
			Use:   "status",
			Short: "Show the current rate configuration",
			RunE: func(cmd *cobra.Command, _ []string) error {
				rc, err := apiClient.GetRate()
				if err != nil {
					return fmt.Errorf("failed to get rate config: %v", err)
				}

				cmd.Printf("Rate: $%.2f/kWh\n", rc.RatePerKWh)
				cmd.Printf("Zip code: %s\n", rc.ZipCode)
				cmd.Println("Auto-detect: " + bool2Text(rc.AutoDetect))

				return nil
			},
		},
	)

	return cmd
}

func NewResetLifetimeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "reset-lifetime",
		Short:   "Reset lifetime energy statistics",
		GroupID: gAdvanced,
		Long: `Reset lifetime energy statistics.

Today's running total and the daily history are kept; only the lifetime
accumulator is cleared.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ret, err := apiClient.ResetLifetime()
			if err != nil {
				return fmt.Errorf("failed to reset lifetime statistics: %v", err)
			}

			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}

			return nil
		},
	}
}

func parseFloatArg(args []string, valueName string) (float64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("invalid number of arguments")
	}

	value, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", valueName, err)
	}

	return value, nil
}

func newEnableDisableCommand(
	use, short, long string,
	enableFunc func() (string, error),
	disableFunc func() (string, error),
) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: "Enable or disable " + short,
		Long:  long,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "enable",
			Short: "Enable " + short,
			RunE: func(_ *cobra.Command, _ []string) error {
				ret, err := enableFunc()
				if err != nil {
					return fmt.Errorf("failed to enable %s: %v", use, err)
				}
				if ret != "" {
					logrus.Infof("daemon responded: %s", ret)
				}
				logrus.Infof("successfully enabled %s", use)
				return nil
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Disable " + short,
			RunE: func(_ *cobra.Command, _ []string) error {
				ret, err := disableFunc()
				if err != nil {
					return fmt.Errorf("failed to disable %s: %v", use, err)
				}
				if ret != "" {
					logrus.Infof("daemon responded: %s", ret)
				}
				logrus.Infof("successfully disabled %s", use)
				return nil
			},
		},
	)

	return cmd
}
