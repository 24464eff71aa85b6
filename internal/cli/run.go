// Package cli provides the command-line interface for the backtesting application.
package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"backfolio/internal/backtest"
	"backfolio/internal/config"
	"backfolio/internal/errors"
	"backfolio/internal/feed"
	"backfolio/internal/logging"
	"backfolio/internal/models"
	"backfolio/internal/signal"
	"backfolio/internal/store"
	"backfolio/pkg/utils"
)

var validate = validator.New()

// addBacktestCommands adds backtest commands.
func addBacktestCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newCompareCmd(app))
}

// runRequest carries the validated inputs of one backtest run.
type runRequest struct {
	Prices  string
	Signals string
	Days    int   `default:"30" validate:"gt=0,lte=3650"`
	Seed    int64 `default:"42"`
	Symbols []string
	Profile string  `validate:"required"`
	Cash    float64 `validate:"gt=0"`
	Fee     float64 `validate:"gte=0,lt=1"`
	Save    bool
}

// defaultSymbols is the universe used for synthetic data when --symbols
// is not given.
var defaultSymbols = []string{"AAPL", "MSFT", "GOOG"}

func newRunRequest(cmd *cobra.Command) (*runRequest, error) {
	req := &runRequest{}
	req.Prices, _ = cmd.Flags().GetString("prices")
	req.Signals, _ = cmd.Flags().GetString("signals")
	req.Days, _ = cmd.Flags().GetInt("days")
	req.Seed, _ = cmd.Flags().GetInt64("seed")
	req.Symbols, _ = cmd.Flags().GetStringSlice("symbols")
	req.Profile, _ = cmd.Flags().GetString("profile")
	req.Cash, _ = cmd.Flags().GetFloat64("cash")
	req.Fee, _ = cmd.Flags().GetFloat64("fee")
	req.Save, _ = cmd.Flags().GetBool("save")

	if err := defaults.Set(req); err != nil {
		return nil, errors.Wrap(err, "applying run defaults")
	}
	if len(req.Symbols) == 0 {
		req.Symbols = defaultSymbols
	}
	if err := validate.Struct(req); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidArgument, "invalid run options: %s", validationMessage(err))
	}
	if req.Signals != "" && req.Prices == "" {
		return nil, errors.NewValidationError("signals", req.Signals, "requires --prices")
	}
	return req, nil
}

// validationMessage flattens validator errors into a readable summary.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", field))
		case "gt":
			parts = append(parts, fmt.Sprintf("%s must be greater than %s", field, fe.Param()))
		case "gte":
			parts = append(parts, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "lt":
			parts = append(parts, fmt.Sprintf("%s must be less than %s", field, fe.Param()))
		case "lte":
			parts = append(parts, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s validation", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func newRunCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a backtest",
		Long: `Run a strategy backtest over CSV market data or synthetic data.

When --prices is given the run replays the CSV history (with optional
--signals). Otherwise a deterministic synthetic random walk with model
signals is generated from --days, --seed and --symbols.`,
		Example: `  backfolio run --days 60 --seed 7 --profile aggressive
  backfolio run --prices prices.csv --signals signals.csv --save
  backfolio run --symbols AAPL,NVDA --cash 25000 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)

			req, err := newRunRequest(cmd)
			if err != nil {
				return err
			}

			days, source, symbols, err := loadDays(req)
			if err != nil {
				return err
			}

			profile, err := app.Config.Profile(req.Profile)
			if err != nil {
				return err
			}

			sim, err := backtest.NewSimulator(backtest.Config{
				InitialCash: req.Cash,
				FeeRate:     req.Fee,
				Profile:     profile,
				Combiner:    signal.NewCombiner(app.Config.CombinerConfig()),
			}, app.Logger)
			if err != nil {
				return err
			}

			started := time.Now()
			result, err := sim.Run(days)
			if err != nil {
				return err
			}
			elapsed := time.Since(started)

			runID := ""
			if req.Save {
				if app.Store == nil {
					output.Warning("Store unavailable, run not saved.")
				} else {
					seed := req.Seed
					if source != "synthetic" {
						seed = 0
					}
					run := store.NewRunFromResult(result, source, symbols, len(days), seed, req.Fee)
					ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
					defer cancel()
					if err := app.Store.SaveRun(ctx, run, result.TradeLog); err != nil {
						output.Error("Failed to save run: %v", err)
						return err
					}
					runID = run.ID
				}
			}
			logging.LogRunComplete(app.Logger, runID, result.Profile, len(days), result.TotalReturn, result.SharpeRatio, elapsed)

			if output.IsJSON() {
				return output.JSON(result)
			}

			renderRunResult(output, app.Config, result, source, elapsed)
			if runID != "" {
				output.Println()
				output.Success("✓ Run saved to journal: %s", runID)
			}
			return nil
		},
	}

	cmd.Flags().String("prices", "", "CSV file of daily closing prices (date,symbol,close)")
	cmd.Flags().String("signals", "", "CSV file of model signals (date,symbol,source,direction,confidence)")
	cmd.Flags().Int("days", 0, "synthetic trading days (default 30)")
	cmd.Flags().Int64("seed", 0, "synthetic data seed (default 42)")
	cmd.Flags().StringSlice("symbols", nil, "synthetic symbols (default AAPL,MSFT,GOOG)")
	cmd.Flags().String("profile", app.Config.Backtest.DefaultProfile, "risk profile")
	cmd.Flags().Float64("cash", app.Config.Portfolio.InitialCash, "initial cash")
	cmd.Flags().Float64("fee", app.Config.Portfolio.FeeRate, "fee rate per trade")
	cmd.Flags().Bool("save", false, "save the run to the journal")

	return cmd
}

// loadDays builds the day records for a run from CSV files or the
// synthetic generator.
func loadDays(req *runRequest) ([]models.DayRecord, string, []string, error) {
	if req.Prices != "" {
		records, err := feed.LoadDayRecords(req.Prices, req.Signals)
		if err != nil {
			return nil, "", nil, err
		}
		return records, "csv", feed.Symbols(records), nil
	}

	records := feed.Synthetic(feed.SyntheticConfig{
		Symbols: req.Symbols,
		Days:    req.Days,
		Seed:    req.Seed,
	})
	return records, "synthetic", req.Symbols, nil
}

func renderRunResult(output *Output, cfg *config.Config, result *backtest.Result, source string, elapsed time.Duration) {
	period := "no data"
	if n := len(result.EquityCurve); n > 0 {
		period = fmt.Sprintf("%s to %s (%d days)",
			FormatDate(result.EquityCurve[0].Date),
			FormatDate(result.EquityCurve[n-1].Date),
			n)
	}

	output.Box("Backtest Result", []string{
		fmt.Sprintf("Profile:  %s", result.Profile),
		fmt.Sprintf("Source:   %s", source),
		fmt.Sprintf("Period:   %s", period),
		fmt.Sprintf("Initial:  %s", utils.FormatCurrency(result.InitialCash)),
		fmt.Sprintf("Final:    %s  (%s)", utils.FormatCurrency(result.FinalValue), FormatFractionPlain(result.TotalReturn)),
	})
	output.Println()

	output.Bold("Performance")
	output.Printf("  Total Return:      %s\n", output.FormatFraction(result.TotalReturn))
	output.Printf("  Annualized:        %s\n", output.FormatFraction(result.AnnualizedReturn))
	output.Printf("  Sharpe Ratio:      %.2f\n", result.SharpeRatio)
	output.Printf("  Sortino Ratio:     %.2f\n", result.SortinoRatio)
	output.Printf("  Calmar Ratio:      %.2f\n", result.CalmarRatio)
	output.Printf("  Max Drawdown:      %s\n", output.Yellow(FormatFractionPlain(-result.MaxDrawdown)))
	output.Printf("  Final Cash:        %s\n", utils.FormatCurrency(result.FinalCash))
	output.Printf("  Fees Paid:         %s\n", utils.FormatCurrency(result.FeesPaid))
	output.Println()

	output.Bold("Trades")
	output.Printf("  Total Trades:      %d\n", result.TotalTrades)
	output.Printf("  Wins / Losses:     %d / %d\n", result.WinningTrades, result.LosingTrades)
	output.Printf("  Win Rate:          %.1f%%\n", result.WinRate*100)
	output.Printf("  Avg Win:           %s\n", output.FormatPnL(result.AvgWin))
	output.Printf("  Avg Loss:          %s\n", output.FormatPnL(result.AvgLoss))
	output.Printf("  Profit Factor:     %.2f\n", result.ProfitFactor)
	output.Printf("  Realized P&L:      %s\n", output.FormatPnL(result.RealizedPnL))
	if result.SkippedSignals > 0 {
		output.Dim("  Skipped signals:   %d (no price data)", result.SkippedSignals)
	}
	output.Println()

	output.Print("%s\n", backtest.EquityCurveASCII(result, cfg.Backtest.ChartWidth, cfg.Backtest.ChartHeight))
	output.Println()

	if len(result.FinalPositions) > 0 {
		output.Bold("Final Positions")
		table := NewTable(output, "Symbol", "Qty", "Avg Cost")
		for _, symbol := range sortedPositionSymbols(result.FinalPositions) {
			pos := result.FinalPositions[symbol]
			table.AddRow(symbol, utils.FormatQuantity(pos.Quantity), FormatPrice(pos.AverageCost))
		}
		table.Render()
		output.Println()
	}

	renderTradeLog(output, result.TradeLog, 15)
	output.Dim("Completed in %s", FormatDuration(elapsed))
}

// renderTradeLog prints up to limit most recent trades.
func renderTradeLog(output *Output, trades []models.Transaction, limit int) {
	if len(trades) == 0 {
		return
	}

	shown := trades
	if len(shown) > limit {
		shown = shown[len(shown)-limit:]
	}

	output.Bold("Trade Log")
	if len(shown) < len(trades) {
		output.Dim("  showing last %d of %d trades", len(shown), len(trades))
	}
	table := NewTable(output, "ID", "Date", "Symbol", "Side", "Qty", "Price", "Fee")
	for _, t := range shown {
		table.AddRow(
			fmt.Sprintf("%d", t.ID),
			FormatDate(t.Timestamp),
			t.Symbol,
			output.Direction(string(t.Side)),
			utils.FormatQuantity(t.Quantity),
			FormatPrice(t.Price),
			fmt.Sprintf("%.2f", t.Fee),
		)
	}
	table.Render()
	output.Println()
}

func sortedPositionSymbols(positions map[string]models.Position) []string {
	symbols := make([]string, 0, len(positions))
	for symbol := range positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
