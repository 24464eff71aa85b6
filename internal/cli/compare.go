// Package cli provides the command-line interface for the backtesting application.
package cli

import (
	"fmt"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"backfolio/internal/backtest"
	"backfolio/internal/models"
	"backfolio/internal/performance"
	"backfolio/internal/signal"
	"backfolio/internal/strategy"
	"backfolio/pkg/utils"
)

func newCompareCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare all risk profiles on the same data",
		Long: `Run the same backtest under every risk profile and rank the results.

All profiles replay an identical market history, so differences in the
outcome are attributable to the profile alone. Runs execute in parallel.`,
		Example: `  backfolio compare --days 90 --seed 7
  backfolio compare --prices prices.csv --signals signals.csv
  backfolio compare --symbols AAPL,NVDA --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)

			req, err := newRunRequest(cmd)
			if err != nil {
				return err
			}

			days, source, _, err := loadDays(req)
			if err != nil {
				return err
			}

			names := strategy.ProfileNames()
			results := make(map[string]*backtest.Result, len(names))
			errs := make(map[string]error, len(names))
			var mu sync.Mutex

			pool := performance.NewWorkerPool(len(names))
			pool.Start()
			defer pool.Stop()

			tasks := make([]func(), 0, len(names))
			for _, name := range names {
				name := name
				tasks = append(tasks, func() {
					result, err := runProfile(app, req, name, days)
					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						errs[name] = err
						return
					}
					results[name] = result
				})
			}
			pool.RunAll(tasks)

			for _, name := range names {
				if err := errs[name]; err != nil {
					output.Error("Profile %s failed: %v", name, err)
					return err
				}
			}

			comparisons := backtest.CompareProfiles(results)
			if output.IsJSON() {
				return output.JSON(comparisons)
			}

			renderComparison(output, comparisons, source, len(days))
			return nil
		},
	}

	cmd.Flags().String("prices", "", "CSV file of daily closing prices (date,symbol,close)")
	cmd.Flags().String("signals", "", "CSV file of model signals (date,symbol,source,direction,confidence)")
	cmd.Flags().Int("days", 0, "synthetic trading days (default 30)")
	cmd.Flags().Int64("seed", 0, "synthetic data seed (default 42)")
	cmd.Flags().StringSlice("symbols", nil, "synthetic symbols (default AAPL,MSFT,GOOG)")
	cmd.Flags().Float64("cash", app.Config.Portfolio.InitialCash, "initial cash")
	cmd.Flags().Float64("fee", app.Config.Portfolio.FeeRate, "fee rate per trade")

	// compare ignores --profile and --save; the hidden profile flag keeps
	// newRunRequest validation satisfied.
	cmd.Flags().String("profile", app.Config.Backtest.DefaultProfile, "")
	cmd.Flags().MarkHidden("profile")

	return cmd
}

// runProfile executes one profile's backtest. The day slice is shared
// across profiles and only read, so concurrent runs are safe.
func runProfile(app *App, req *runRequest, name string, days []models.DayRecord) (*backtest.Result, error) {
	profile, err := app.Config.Profile(name)
	if err != nil {
		return nil, err
	}

	sim, err := backtest.NewSimulator(backtest.Config{
		InitialCash: req.Cash,
		FeeRate:     req.Fee,
		Profile:     profile,
		Combiner:    signal.NewCombiner(app.Config.CombinerConfig()),
	}, app.Logger)
	if err != nil {
		return nil, err
	}
	return sim.Run(days)
}

func renderComparison(output *Output, comparisons []backtest.ProfileComparison, source string, days int) {
	color.Cyan("📊 Profile Comparison — %s, %d days", source, days)
	output.Println()

	table := NewTable(output, "Rank", "Profile", "Score", "Return", "Annualized", "Sharpe", "Sortino", "Max DD", "Win Rate", "Trades", "Final Value")
	for i, c := range comparisons {
		rank := fmt.Sprintf("%d", i+1)
		profileName := c.Profile
		if i == 0 {
			rank = output.BoldText(rank)
			profileName = output.BoldText(profileName)
		}
		table.AddRow(
			rank,
			profileName,
			fmt.Sprintf("%.2f", c.Score),
			output.FormatFraction(c.TotalReturn),
			FormatFractionPlain(c.AnnualizedReturn),
			fmt.Sprintf("%.2f", c.SharpeRatio),
			fmt.Sprintf("%.2f", c.SortinoRatio),
			FormatFractionPlain(-c.MaxDrawdown),
			fmt.Sprintf("%.1f%%", c.WinRate*100),
			fmt.Sprintf("%d", c.TotalTrades),
			utils.FormatCurrency(c.FinalValue),
		)
	}
	table.Render()
	output.Println()

	if len(comparisons) > 0 {
		best := comparisons[0]
		color.Green("✓ Best profile: %s (score %.2f, return %s)",
			best.Profile, best.Score, FormatFractionPlain(best.TotalReturn))
		color.Yellow("💡 Score is total return %% plus 10x Sharpe ratio")
	}
}
