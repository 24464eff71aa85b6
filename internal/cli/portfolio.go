// Package cli provides the command-line interface for the backtesting application.
package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"backfolio/internal/errors"
	"backfolio/internal/feed"
	"backfolio/internal/models"
	"backfolio/internal/portfolio"
	"backfolio/pkg/utils"
)

// addPortfolioCommands adds portfolio accounting commands.
func addPortfolioCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Portfolio accounting from a trade history",
		Long: `Replay a CSV trade history through the fee-charging ledger and inspect
the resulting portfolio: valuation, what-if scenarios, rebalancing
suggestions and the filtered trade log.`,
	}

	cmd.AddCommand(newPortfolioSummaryCmd(app))
	cmd.AddCommand(newPortfolioScenarioCmd(app))
	cmd.AddCommand(newPortfolioRebalanceCmd(app))
	cmd.AddCommand(newPortfolioTradesCmd(app))

	rootCmd.AddCommand(cmd)
}

// replayLedger loads a trades CSV and replays it through a fresh ledger.
// Each trade is timestamped with its CSV date.
func replayLedger(tradesPath string, cash, fee float64) (*portfolio.Ledger, error) {
	rows, err := feed.LoadTrades(tradesPath)
	if err != nil {
		return nil, err
	}

	var current time.Time
	ledger, err := portfolio.NewLedger(portfolio.LedgerConfig{
		InitialCash: cash,
		FeeRate:     fee,
		Clock:       func() time.Time { return current },
	})
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		date, err := utils.ParseDate(row.Date)
		if err != nil {
			return nil, errors.NewValidationError("date", row.Date, "invalid trade date")
		}
		current = date

		side := models.Direction(strings.ToUpper(row.Side))
		if _, err := ledger.Execute(row.Symbol, side, row.Quantity, row.Price); err != nil {
			return nil, errors.Wrapf(err, "replaying trade %s %s %d @ %.2f on %s",
				row.Side, row.Symbol, row.Quantity, row.Price, row.Date)
		}
	}
	return ledger, nil
}

// loadLatestPrices reads a prices CSV and returns the last known price
// per symbol.
func loadLatestPrices(pricesPath string) (map[string]float64, error) {
	records, err := feed.LoadDayRecords(pricesPath, "")
	if err != nil {
		return nil, err
	}
	return feed.LatestPrices(records), nil
}

func addReplayFlags(cmd *cobra.Command, app *App) {
	cmd.Flags().String("trades", "", "CSV file of executed trades (date,symbol,side,quantity,price)")
	cmd.Flags().String("prices", "", "CSV file of daily closing prices (date,symbol,close)")
	cmd.Flags().Float64("cash", app.Config.Portfolio.InitialCash, "initial cash before the first trade")
	cmd.Flags().Float64("fee", app.Config.Portfolio.FeeRate, "fee rate per trade")
	cmd.MarkFlagRequired("trades")
}

func replayFromFlags(cmd *cobra.Command) (*portfolio.Ledger, map[string]float64, error) {
	tradesPath, _ := cmd.Flags().GetString("trades")
	pricesPath, _ := cmd.Flags().GetString("prices")
	cash, _ := cmd.Flags().GetFloat64("cash")
	fee, _ := cmd.Flags().GetFloat64("fee")

	ledger, err := replayLedger(tradesPath, cash, fee)
	if err != nil {
		return nil, nil, err
	}

	prices := map[string]float64{}
	if pricesPath != "" {
		prices, err = loadLatestPrices(pricesPath)
		if err != nil {
			return nil, nil, err
		}
	}
	return ledger, prices, nil
}

func newPortfolioSummaryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Value the portfolio after replaying a trade history",
		Example: `  backfolio portfolio summary --trades trades.csv --prices prices.csv
  backfolio portfolio summary --trades trades.csv --prices prices.csv --cash 50000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)

			ledger, prices, err := replayFromFlags(cmd)
			if err != nil {
				return err
			}

			summary := ledger.Snapshot(prices)
			metrics := ledger.Metrics(prices)

			if output.IsJSON() {
				return output.JSON(struct {
					Summary portfolio.Summary       `json:"summary"`
					Metrics portfolio.LedgerMetrics `json:"metrics"`
				}{summary, metrics})
			}

			renderSummary(output, summary, metrics)
			return nil
		},
	}

	addReplayFlags(cmd, app)
	return cmd
}

func renderSummary(output *Output, summary portfolio.Summary, metrics portfolio.LedgerMetrics) {
	output.Bold("Portfolio Summary")
	output.Println()

	if len(summary.Positions) > 0 {
		table := NewTable(output, "Symbol", "Qty", "Avg Cost", "Price", "Mkt Value", "Unrealized", "Weight")
		for _, pos := range summary.Positions {
			price := output.DimText("no price")
			mktValue := "-"
			unrealized := "-"
			weight := "-"
			if pos.Priced {
				price = FormatPrice(pos.Price)
				mktValue = utils.FormatCurrency(pos.MarketValue)
				unrealized = output.FormatPnL(pos.UnrealizedPnL)
				weight = fmt.Sprintf("%.1f%%", pos.Weight)
			}
			table.AddRow(
				pos.Symbol,
				utils.FormatQuantity(pos.Quantity),
				FormatPrice(pos.AverageCost),
				price,
				mktValue,
				unrealized,
				weight,
			)
		}
		table.Render()
		output.Println()
	}

	output.Printf("  Cash:            %s (%.1f%%)\n", utils.FormatCurrency(summary.Cash), summary.CashWeight)
	output.Printf("  Market Value:    %s\n", utils.FormatCurrency(summary.MarketValue))
	output.Printf("  Total Value:     %s\n", utils.FormatCurrency(summary.TotalValue))
	output.Printf("  Unrealized P&L:  %s\n", output.FormatPnL(summary.UnrealizedPnL))
	output.Println()

	output.Bold("Activity")
	output.Printf("  Trades:          %d (%d buys, %d sells)\n", metrics.TradeCount, metrics.BuyCount, metrics.SellCount)
	output.Printf("  Fees Paid:       %s\n", utils.FormatCurrency(metrics.FeesPaid))
	output.Printf("  Realized P&L:    %s\n", output.FormatPnL(metrics.RealizedPnL))
	if metrics.PositionCount > 0 {
		output.Printf("  Largest Weight:  %.1f%%\n", metrics.LargestWeight)
	}
}

func newPortfolioScenarioCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Project portfolio value under a uniform price shock",
		Example: `  backfolio portfolio scenario --trades trades.csv --prices prices.csv --change=-10
  backfolio portfolio scenario --trades trades.csv --prices prices.csv --change=25`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)
			change, _ := cmd.Flags().GetFloat64("change")

			ledger, prices, err := replayFromFlags(cmd)
			if err != nil {
				return err
			}
			if len(prices) == 0 {
				return errors.NewValidationError("prices", "", "scenario requires --prices")
			}

			result := ledger.SimulateScenario(prices, change)

			if output.IsJSON() {
				return output.JSON(result)
			}

			output.Bold("Scenario: all prices %s", utils.FormatPercent(change))
			output.Println()
			output.Printf("  Current Value:    %s\n", utils.FormatCurrency(result.CurrentValue))
			output.Printf("  Projected Value:  %s\n", utils.FormatCurrency(result.ProjectedValue))
			output.Printf("  Change:           %s (%s)\n", output.FormatPnL(result.Delta), output.FormatPercent(result.DeltaPct))
			return nil
		},
	}

	addReplayFlags(cmd, app)
	cmd.Flags().Float64("change", 0, "uniform price change percent, e.g. -10")
	cmd.MarkFlagRequired("change")
	return cmd
}

func newPortfolioRebalanceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebalance",
		Short: "Suggest trades to reach target weights",
		Long: `Compare current position weights against target weights and suggest
trades for positions more than one percentage point off target.`,
		Example: `  backfolio portfolio rebalance --trades trades.csv --prices prices.csv \
    --target AAPL=40 --target MSFT=30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)

			targetArgs, _ := cmd.Flags().GetStringArray("target")
			targets, err := parseTargets(targetArgs)
			if err != nil {
				return err
			}

			ledger, prices, err := replayFromFlags(cmd)
			if err != nil {
				return err
			}
			if len(prices) == 0 {
				return errors.NewValidationError("prices", "", "rebalance requires --prices")
			}

			suggestions := ledger.SuggestRebalance(targets, prices)

			if output.IsJSON() {
				return output.JSON(suggestions)
			}

			output.Bold("Rebalance Suggestions")
			output.Println()
			if len(suggestions) == 0 {
				output.Success("✓ All positions within 1.0%% of target weights")
				return nil
			}

			table := NewTable(output, "Symbol", "Action", "Current", "Target", "Trade Value")
			for _, s := range suggestions {
				table.AddRow(
					s.Symbol,
					output.Direction(string(s.Side)),
					fmt.Sprintf("%.1f%%", s.CurrentWeight),
					fmt.Sprintf("%.1f%%", s.TargetWeight),
					utils.FormatCurrency(s.ValueDelta),
				)
			}
			table.Render()
			return nil
		},
	}

	addReplayFlags(cmd, app)
	cmd.Flags().StringArray("target", nil, "target weight as SYMBOL=PERCENT (repeatable)")
	cmd.MarkFlagRequired("target")
	return cmd
}

// parseTargets parses SYMBOL=PERCENT pairs into a target weight map.
func parseTargets(args []string) (map[string]float64, error) {
	targets := make(map[string]float64, len(args))
	for _, arg := range args {
		parts := strings.SplitN(arg, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, errors.NewValidationError("target", arg, "expected SYMBOL=PERCENT")
		}
		pct, err := strconv.ParseFloat(parts[1], 64)
		if err != nil || pct < 0 || pct > 100 {
			return nil, errors.NewValidationError("target", arg, "percent must be between 0 and 100")
		}
		targets[strings.ToUpper(parts[0])] = pct
	}
	return targets, nil
}

func newPortfolioTradesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List replayed trades with optional filters",
		Example: `  backfolio portfolio trades --trades trades.csv --symbol AAPL
  backfolio portfolio trades --trades trades.csv --side SELL --limit 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)

			symbol, _ := cmd.Flags().GetString("symbol")
			sideArg, _ := cmd.Flags().GetString("side")
			limit, _ := cmd.Flags().GetInt("limit")

			var side models.Direction
			if sideArg != "" {
				side = models.Direction(strings.ToUpper(sideArg))
				if !side.Tradable() {
					return errors.NewValidationError("side", sideArg, "must be BUY or SELL")
				}
			}

			ledger, _, err := replayFromFlags(cmd)
			if err != nil {
				return err
			}

			trades := portfolio.FilterTransactions(ledger.Transactions(), portfolio.TransactionFilter{
				Symbol: strings.ToUpper(symbol),
				Side:   side,
				Limit:  limit,
			})

			if output.IsJSON() {
				return output.JSON(trades)
			}

			if len(trades) == 0 {
				output.Info("No trades match the filter.")
				return nil
			}

			table := NewTable(output, "ID", "Date", "Symbol", "Side", "Qty", "Price", "Fee", "Net")
			for _, t := range trades {
				net := -t.NetValue()
				if t.Side == models.DirectionSell {
					net = t.NetValue()
				}
				table.AddRow(
					fmt.Sprintf("%d", t.ID),
					FormatDate(t.Timestamp),
					t.Symbol,
					output.Direction(string(t.Side)),
					utils.FormatQuantity(t.Quantity),
					FormatPrice(t.Price),
					fmt.Sprintf("%.2f", t.Fee),
					output.FormatPnL(net),
				)
			}
			table.Render()
			return nil
		},
	}

	addReplayFlags(cmd, app)
	cmd.Flags().String("symbol", "", "filter by symbol")
	cmd.Flags().String("side", "", "filter by side (BUY or SELL)")
	cmd.Flags().Int("limit", 0, "show only the most recent N trades")
	return cmd
}
