// Package cli provides the command-line interface for the backtesting application.
package cli

import (
	"sort"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"backfolio/internal/config"
	"backfolio/internal/logging"
	"backfolio/internal/store"
	"backfolio/pkg/utils"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-06-01"
)

// App holds the application dependencies.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Store     store.RunStore
	ConfigDir string
}

// NewOutput creates an Output for a command, honoring the UI color setting.
func (a *App) NewOutput(cmd *cobra.Command) *Output {
	o := NewOutput(cmd)
	if a.Config != nil && !a.Config.UI.ColorEnabled {
		o.colorEnabled = false
	}
	return o
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger, configDir string) *cobra.Command {
	if configDir == "" {
		configDir = config.DefaultConfigDir()
	}

	app := &App{
		Config:    cfg,
		Logger:    logger,
		ConfigDir: configDir,
	}

	// Initialize SQLite store
	dbPath := cfg.DatabasePath(configDir)
	runStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, run history will be unavailable")
	} else {
		app.Store = runStore
		logger.Debug().Str("path", dbPath).Msg("SQLite store initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "backfolio",
		Short: "Backfolio - portfolio accounting and strategy backtesting CLI",
		Long: `Backfolio simulates trading strategies over historical or synthetic price data.

It combines model signals into decisions, applies a risk profile, executes
trades through a fee-charging portfolio ledger, and reports performance
metrics such as Sharpe ratio and maximum drawdown. Completed runs can be
saved to a local journal for later review.

Use 'backfolio help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Handle debug flag
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			if app.Config != nil && !app.Config.UI.ColorEnabled {
				color.NoColor = true
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/backfolio)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	// Add all command groups
	addCoreCommands(rootCmd, app)
	addBacktestCommands(rootCmd, app)
	addPortfolioCommands(rootCmd, app)
	addJournalCommands(rootCmd, app)
	addProfileCommands(rootCmd, app)

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd(app))
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := app.NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Backfolio v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			output := app.NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"dir":  app.ConfigDir,
					"file": config.ConfigFilePath(app.ConfigDir),
				})
			} else {
				output.Println(config.ConfigFilePath(app.ConfigDir))
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, app *App) error {
	cfg := app.Config

	output.Bold("Portfolio Configuration")
	output.Printf("  Initial Cash:    %s\n", utils.FormatCurrency(cfg.Portfolio.InitialCash))
	output.Printf("  Fee Rate:        %.4f (%.2f%% per trade)\n", cfg.Portfolio.FeeRate, cfg.Portfolio.FeeRate*100)
	output.Println()

	output.Bold("Signal Configuration")
	output.Printf("  Fallback Weight: %.2f\n", cfg.Signals.FallbackWeight)
	if len(cfg.Signals.Weights) > 0 {
		for source, weight := range cfg.Signals.Weights {
			output.Printf("  %-16s %.2f\n", source+":", weight)
		}
	}
	output.Println()

	output.Bold("Backtest Configuration")
	output.Printf("  Default Profile: %s\n", cfg.Backtest.DefaultProfile)
	output.Printf("  Chart Size:      %dx%d\n", cfg.Backtest.ChartWidth, cfg.Backtest.ChartHeight)
	output.Println()

	output.Bold("Storage")
	output.Printf("  Database:        %s\n", cfg.DatabasePath(app.ConfigDir))
	output.Println()

	profiles, err := cfg.ResolveProfiles()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	output.Bold("Profiles")
	for _, name := range names {
		p := profiles[name]
		marker := " "
		if p.Name == cfg.Backtest.DefaultProfile {
			marker = "*"
		}
		output.Printf("  %s %-14s min confidence %.2f, max position %.0f%%\n",
			marker, p.Name, p.MinConfidence, p.MaxPositionFraction*100)
	}

	return nil
}
