// Package cli provides the command-line interface for the backtesting application.
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"backfolio/internal/errors"
	"backfolio/internal/models"
	"backfolio/internal/store"
	"backfolio/pkg/utils"
)

// addJournalCommands adds run journal commands.
func addJournalCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Backtest run history",
		Long:  "List and inspect saved backtest runs.",
	}

	cmd.AddCommand(newJournalListCmd(app))
	cmd.AddCommand(newJournalShowCmd(app))

	rootCmd.AddCommand(cmd)
}

func newJournalListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved runs",
		Example: `  backfolio journal list
  backfolio journal list --profile aggressive --limit 10
  backfolio journal list --since 2024-01-01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)

			if app.Store == nil {
				output.Warning("Store not initialized. No run history available.")
				return nil
			}

			profile, _ := cmd.Flags().GetString("profile")
			limit, _ := cmd.Flags().GetInt("limit")
			sinceArg, _ := cmd.Flags().GetString("since")

			filter := store.RunFilter{Profile: profile, Limit: limit}
			if sinceArg != "" {
				since, err := utils.ParseDate(sinceArg)
				if err != nil {
					return errors.NewValidationError("since", sinceArg, "expected YYYY-MM-DD")
				}
				filter.Since = since
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			runs, err := app.Store.GetRuns(ctx, filter)
			if err != nil {
				output.Error("Failed to fetch runs: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(runs)
			}

			if len(runs) == 0 {
				output.Info("No saved runs found.")
				output.Println()
				output.Dim("Tip: save a run with 'backfolio run --save'.")
				return nil
			}

			output.Bold("Saved Runs")
			table := NewTable(output, "ID", "Created", "Profile", "Source", "Days", "Return", "Sharpe", "Max DD", "Trades", "Final Value")
			for _, run := range runs {
				table.AddRow(
					ShortID(run.ID),
					run.CreatedAt.Format(app.Config.UI.DateFormat),
					run.Profile,
					run.Source,
					fmt.Sprintf("%d", run.Days),
					output.FormatFraction(run.TotalReturn),
					fmt.Sprintf("%.2f", run.SharpeRatio),
					FormatFractionPlain(-run.MaxDrawdown),
					fmt.Sprintf("%d", run.TotalTrades),
					utils.FormatCurrency(run.FinalValue),
				)
			}
			table.Render()
			output.Println()
			output.Dim("Use 'backfolio journal show <id>' for details. ID prefixes are accepted.")

			return nil
		},
	}

	cmd.Flags().String("profile", "", "filter by profile")
	cmd.Flags().Int("limit", 20, "maximum runs to list")
	cmd.Flags().String("since", "", "only runs created on or after this date (YYYY-MM-DD)")

	return cmd
}

func newJournalShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one saved run with its trades",
		Example: `  backfolio journal show 3f2a9c1e
  backfolio journal show 3f2a9c1e-8703-4c6b-9d1f-57e2a4b90c11 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)

			if app.Store == nil {
				output.Warning("Store not initialized. No run history available.")
				return nil
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			id, err := resolveRunID(ctx, app.Store, args[0])
			if err != nil {
				return err
			}

			run, err := app.Store.GetRun(ctx, id)
			if err != nil {
				return err
			}
			trades, err := app.Store.GetRunTrades(ctx, id)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(struct {
					Run    *store.Run           `json:"run"`
					Trades []models.Transaction `json:"trades"`
				}{run, trades})
			}

			renderRun(output, run, len(trades))
			renderTradeLog(output, trades, 50)
			return nil
		},
	}
}

// resolveRunID resolves a possibly-abbreviated run ID to a stored run.
func resolveRunID(ctx context.Context, runStore store.RunStore, idArg string) (string, error) {
	if len(idArg) >= 36 {
		return idArg, nil
	}

	runs, err := runStore.GetRuns(ctx, store.RunFilter{})
	if err != nil {
		return "", err
	}

	var matches []string
	for _, run := range runs {
		if strings.HasPrefix(run.ID, idArg) {
			matches = append(matches, run.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", errors.Wrapf(errors.ErrDataNotFound, "no run matches %q", idArg)
	case 1:
		return matches[0], nil
	default:
		return "", errors.Wrapf(errors.ErrInvalidArgument, "run ID %q is ambiguous (%d matches)", idArg, len(matches))
	}
}

func renderRun(output *Output, run *store.Run, tradeCount int) {
	output.Box("Run "+ShortID(run.ID), []string{
		fmt.Sprintf("Created:  %s", FormatDateTime(run.CreatedAt)),
		fmt.Sprintf("Profile:  %s", run.Profile),
		fmt.Sprintf("Source:   %s", run.Source),
		fmt.Sprintf("Symbols:  %s", strings.Join(run.Symbols, ", ")),
		fmt.Sprintf("Days:     %d  Seed: %d", run.Days, run.Seed),
	})
	output.Println()

	output.Bold("Performance")
	output.Printf("  Initial Cash:      %s\n", utils.FormatCurrency(run.InitialCash))
	output.Printf("  Final Value:       %s\n", utils.FormatCurrency(run.FinalValue))
	output.Printf("  Total Return:      %s\n", output.FormatFraction(run.TotalReturn))
	output.Printf("  Annualized:        %s\n", output.FormatFraction(run.AnnualizedReturn))
	output.Printf("  Sharpe Ratio:      %.2f\n", run.SharpeRatio)
	output.Printf("  Sortino Ratio:     %.2f\n", run.SortinoRatio)
	output.Printf("  Calmar Ratio:      %.2f\n", run.CalmarRatio)
	output.Printf("  Max Drawdown:      %s\n", output.Yellow(FormatFractionPlain(-run.MaxDrawdown)))
	output.Printf("  Win Rate:          %.1f%% (%d/%d)\n", run.WinRate*100, run.WinningTrades, run.TotalTrades)
	output.Printf("  Realized P&L:      %s\n", output.FormatPnL(run.RealizedPnL))
	output.Printf("  Fees Paid:         %s\n", utils.FormatCurrency(run.FeesPaid))
	output.Printf("  Trades:            %d\n", tradeCount)
	output.Println()
}
