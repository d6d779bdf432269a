package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joule-sh/joule/pkg/monitor"
	"github.com/joule-sh/joule/pkg/types"
)

type statusData struct {
	power   *types.PowerState
	energy  *monitor.EnergySummary
	sampler *types.SamplerState
	rate    *monitor.RateConfig
}

// fetchStatusData gathers all data required for the status command from the daemon.
func fetchStatusData() (*statusData, error) {
	power, err := apiClient.GetPower()
	if err != nil {
		return nil, fmt.Errorf("failed to get power state: %w", err)
	}

	energy, err := apiClient.GetEnergy()
	if err != nil {
		return nil, fmt.Errorf("failed to get energy summary: %w", err)
	}

	samplerState, err := apiClient.GetSampler()
	if err != nil {
		return nil, fmt.Errorf("failed to get sampler state: %w", err)
	}

	rate, err := apiClient.GetRate()
	if err != nil {
		return nil, fmt.Errorf("failed to get rate config: %w", err)
	}

	return &statusData{
		power:   power,
		energy:  energy,
		sampler: samplerState,
		rate:    rate,
	}, nil
}

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current power and energy status",
		Long:    `Get the reconciled power state, today's and lifetime energy statistics, and sampler status.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := fetchStatusData()
			if err != nil {
				return err
			}

			cmd.Println(bold("Power:"))
			cmd.Printf("  Current draw: %s\n", bold("%.1f W", data.power.CurrentPowerW))
			cmd.Printf("  System: %.1f W\n", data.power.SystemPowerW)
			cmd.Printf("  Wall: %.1f W\n", data.power.WallPowerW)
			switch {
			case data.power.BatteryPowerW > 0:
				cmd.Printf("  Battery: %.1f W (discharging)\n", data.power.BatteryPowerW)
			case data.power.BatteryPowerW < 0:
				cmd.Printf("  Battery: %.1f W (charging)\n", -data.power.BatteryPowerW)
			default:
				cmd.Println("  Battery: idle")
			}

			cmd.Println()
			cmd.Println(bold("Energy:"))
			cmd.Printf("  Today (%s): %.2f Wh ($%.4f)\n", data.energy.TodayDate, data.energy.TodayEnergyWh, data.energy.TodayCostUSD)
			cmd.Printf("  Lifetime: %.2f Wh ($%.4f) over %d sessions\n", data.energy.LifetimeEnergyWh, data.energy.LifetimeCostUSD, data.energy.LifetimeSessionCount)
			if data.energy.RatePctPerMin != 0 {
				cmd.Printf("  Battery rate: %+.2f %%/min\n", data.energy.RatePctPerMin)
			}

			cmd.Println()
			cmd.Println(bold("Electricity rate:"))
			cmd.Printf("  Rate: $%.2f/kWh", data.rate.RatePerKWh)
			if data.rate.AutoDetect && data.rate.ZipCode != "" {
				cmd.Printf(" (auto-detected from zip %s)", data.rate.ZipCode)
			}
			cmd.Println()

			cmd.Println()
			cmd.Println(bold("Sampler:"))
			cmd.Println("  Installed: " + bool2Text(data.sampler.Installed))
			cmd.Println("  Running: " + bool2Text(data.sampler.Running))
			if data.sampler.LastError != "" {
				cmd.Printf("  Last error: %s\n", data.sampler.LastError)
			}
			if m := data.sampler.Metrics; m != nil {
				cmd.Printf("  CPU: %.2f W, GPU: %.2f W, ANE: %.2f W\n", m.CPUPowerW, m.GPUPowerW, m.ANEPowerW)
				for _, cl := range m.Clusters {
					cmd.Printf("    %s: %.0f%% @ %.0f MHz (%.2f W)\n", cl.Name, cl.UsagePercent, cl.FrequencyMHz, cl.PowerW)
				}
			}

			return nil
		},
	}
}

func NewHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "history",
		GroupID: gBasic,
		Short:   "Show daily energy history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			hist, err := apiClient.GetHistory()
			if err != nil {
				return fmt.Errorf("failed to get history: %w", err)
			}

			if len(hist.Daily) == 0 {
				cmd.Println("No completed days recorded yet.")
				return nil
			}

			cmd.Println(bold("Daily energy:"))
			for _, rec := range hist.Daily {
				cmd.Printf("  %s  %8.2f Wh\n", rec.Date, rec.EnergyWh)
			}

			return nil
		},
	}
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
