package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	_ "github.com/mattn/go-sqlite3"

	"backfolio/internal/errors"
	"backfolio/internal/models"
)

// SQLiteStore implements RunStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ RunStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite-backed run journal.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Completed backtest runs
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		profile TEXT NOT NULL,
		source TEXT NOT NULL,
		symbols TEXT,
		days INTEGER NOT NULL,
		seed INTEGER,
		initial_cash REAL NOT NULL,
		fee_rate REAL NOT NULL,
		final_value REAL NOT NULL,
		total_return REAL NOT NULL,
		annualized_return REAL,
		sharpe_ratio REAL,
		sortino_ratio REAL,
		calmar_ratio REAL,
		max_drawdown REAL,
		win_rate REAL,
		total_trades INTEGER,
		winning_trades INTEGER,
		losing_trades INTEGER,
		realized_pnl REAL,
		fees_paid REAL
	);

	-- Trade logs of journaled runs
	CREATE TABLE IF NOT EXISTS run_trades (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		ts DATETIME NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price REAL NOT NULL,
		fee REAL NOT NULL,
		PRIMARY KEY (run_id, seq),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	-- Create indexes for performance
	CREATE INDEX IF NOT EXISTS idx_runs_profile ON runs(profile);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_run_trades_symbol ON run_trades(symbol);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts a run and its trade log in one transaction, assigning
// the run a fresh ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run, trades []models.Transaction) error {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("failed to generate run id: %w", err)
	}
	run.ID = id.String()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	symbolsJSON, err := json.Marshal(run.Symbols)
	if err != nil {
		return fmt.Errorf("failed to encode symbols: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, profile, source, symbols, days, seed,
			initial_cash, fee_rate, final_value, total_return, annualized_return,
			sharpe_ratio, sortino_ratio, calmar_ratio, max_drawdown, win_rate,
			total_trades, winning_trades, losing_trades, realized_pnl, fees_paid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.CreatedAt, run.Profile, run.Source, string(symbolsJSON), run.Days, run.Seed,
		run.InitialCash, run.FeeRate, run.FinalValue, run.TotalReturn, run.AnnualizedReturn,
		run.SharpeRatio, run.SortinoRatio, run.CalmarRatio, run.MaxDrawdown, run.WinRate,
		run.TotalTrades, run.WinningTrades, run.LosingTrades, run.RealizedPnL, run.FeesPaid)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_trades (run_id, seq, ts, symbol, side, quantity, price, fee)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, trade := range trades {
		_, err := stmt.ExecContext(ctx, run.ID, trade.ID, trade.Timestamp, trade.Symbol,
			string(trade.Side), trade.Quantity, trade.Price, trade.Fee)
		if err != nil {
			return fmt.Errorf("failed to insert trade: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

const runColumns = `id, created_at, profile, source, symbols, days, seed,
	initial_cash, fee_rate, final_value, total_return, annualized_return,
	sharpe_ratio, sortino_ratio, calmar_ratio, max_drawdown, win_rate,
	total_trades, winning_trades, losing_trades, realized_pnl, fees_paid`

// GetRuns retrieves journaled runs, most recent first.
func (s *SQLiteStore) GetRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs WHERE 1=1"
	args := []interface{}{}

	if filter.Profile != "" {
		query += " AND profile = ?"
		args = append(args, filter.Profile)
	}
	if !filter.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.Since)
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetRun retrieves one run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(errors.ErrDataNotFound, "run %s", id)
		}
		return nil, err
	}
	return &run, nil
}

// GetRunTrades retrieves a run's trade log in execution order.
func (s *SQLiteStore) GetRunTrades(ctx context.Context, runID string) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, ts, symbol, side, quantity, price, fee
		FROM run_trades
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var side string
		if err := rows.Scan(&tx.ID, &tx.Timestamp, &tx.Symbol, &side, &tx.Quantity, &tx.Price, &tx.Fee); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		tx.Side = models.Direction(side)
		trades = append(trades, tx)
	}

	return trades, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var symbolsJSON string
	err := row.Scan(&run.ID, &run.CreatedAt, &run.Profile, &run.Source, &symbolsJSON,
		&run.Days, &run.Seed, &run.InitialCash, &run.FeeRate, &run.FinalValue,
		&run.TotalReturn, &run.AnnualizedReturn, &run.SharpeRatio, &run.SortinoRatio,
		&run.CalmarRatio, &run.MaxDrawdown, &run.WinRate, &run.TotalTrades,
		&run.WinningTrades, &run.LosingTrades, &run.RealizedPnL, &run.FeesPaid)
	if err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}
	json.Unmarshal([]byte(symbolsJSON), &run.Symbols)
	return run, nil
}
