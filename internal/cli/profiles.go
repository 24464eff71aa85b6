// Package cli provides the command-line interface for the backtesting application.
package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"backfolio/internal/strategy"
)

// addProfileCommands adds strategy profile commands.
func addProfileCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newProfilesCmd(app))
}

func newProfilesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List risk profiles",
		Long:  "Show the resolved risk profiles, including any config overrides.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)

			profiles, err := app.Config.ResolveProfiles()
			if err != nil {
				return err
			}

			// Built-in profiles in risk order, then custom ones by name.
			names := make([]string, 0, len(profiles))
			for _, name := range strategy.ProfileNames() {
				if _, ok := profiles[name]; ok {
					names = append(names, name)
				}
			}
			var custom []string
			builtin := strategy.DefaultProfiles()
			for name := range profiles {
				if _, ok := builtin[name]; !ok {
					custom = append(custom, name)
				}
			}
			sort.Strings(custom)
			names = append(names, custom...)

			if output.IsJSON() {
				ordered := make([]strategy.Profile, 0, len(names))
				for _, name := range names {
					ordered = append(ordered, profiles[name])
				}
				return output.JSON(ordered)
			}

			output.Bold("Risk Profiles")
			table := NewTable(output, "", "Profile", "Min Confidence", "Max Position", "Stop Loss", "Take Profit", "Min Signals")
			for _, name := range names {
				p := profiles[name]
				marker := " "
				if p.Name == app.Config.Backtest.DefaultProfile {
					marker = "*"
				}
				table.AddRow(
					marker,
					p.Name,
					fmt.Sprintf("%.2f", p.MinConfidence),
					fmt.Sprintf("%.0f%%", p.MaxPositionFraction*100),
					fmt.Sprintf("%.0f%%", p.StopLossFraction*100),
					fmt.Sprintf("%.0f%%", p.TakeProfitFraction*100),
					fmt.Sprintf("%d", p.RequiredSignalCount),
				)
			}
			table.Render()
			output.Println()
			output.Dim("* default profile. Position sizes scale with decision confidence up to the max.")

			return nil
		},
	}
}
