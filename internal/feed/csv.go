// Package feed loads daily price and signal history for the simulator
// from CSV files or a seeded synthetic generator.
package feed

import (
	"encoding/json"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"backfolio/internal/errors"
	"backfolio/internal/models"
	"backfolio/pkg/utils"
)

// PriceRow is one line of a prices CSV: date,symbol,close.
type PriceRow struct {
	Date   string  `csv:"date"`
	Symbol string  `csv:"symbol"`
	Close  float64 `csv:"close"`
}

// SignalRow is one line of a signals CSV:
// date,symbol,source,direction,confidence,detail.
type SignalRow struct {
	Date       string  `csv:"date"`
	Symbol     string  `csv:"symbol"`
	Source     string  `csv:"source"`
	Direction  string  `csv:"direction"`
	Confidence float64 `csv:"confidence"`
	Detail     string  `csv:"detail"`
}

// TradeRow is one line of a trades CSV: date,symbol,side,quantity,price.
type TradeRow struct {
	Date     string  `csv:"date"`
	Symbol   string  `csv:"symbol"`
	Side     string  `csv:"side"`
	Quantity int64   `csv:"quantity"`
	Price    float64 `csv:"price"`
}

// LoadDayRecords reads a prices CSV and an optional signals CSV and
// merges them into chronologically sorted day records. Signals for
// dates absent from the prices file are kept; the simulator skips them
// when no price is available.
func LoadDayRecords(pricesPath, signalsPath string) ([]models.DayRecord, error) {
	prices, err := loadPriceRows(pricesPath)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]*models.DayRecord)
	ensureDay := func(date string) (*models.DayRecord, error) {
		if day, ok := byDate[date]; ok {
			return day, nil
		}
		parsed, err := utils.ParseDate(date)
		if err != nil {
			return nil, errors.NewDataError("feed", "", "bad date "+strconv.Quote(date), err)
		}
		day := &models.DayRecord{
			Date:    parsed,
			Prices:  make(map[string]float64),
			Signals: make(map[string][]models.Signal),
		}
		byDate[date] = day
		return day, nil
	}

	for _, row := range prices {
		day, err := ensureDay(row.Date)
		if err != nil {
			return nil, err
		}
		if row.Symbol == "" {
			return nil, errors.NewDataError("prices", "", "row for "+row.Date+" has no symbol", errors.ErrInvalidArgument)
		}
		if row.Close <= 0 {
			return nil, errors.NewDataError("prices", row.Symbol, "close must be positive", errors.ErrInvalidArgument)
		}
		day.Prices[row.Symbol] = row.Close
	}

	if signalsPath != "" {
		signals, err := loadSignalRows(signalsPath)
		if err != nil {
			return nil, err
		}
		for _, row := range signals {
			day, err := ensureDay(row.Date)
			if err != nil {
				return nil, err
			}
			sig, err := row.toSignal(day.Date)
			if err != nil {
				return nil, err
			}
			day.Signals[row.Symbol] = append(day.Signals[row.Symbol], sig)
		}
	}

	records := make([]models.DayRecord, 0, len(byDate))
	for _, day := range byDate {
		records = append(records, *day)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})
	return records, nil
}

func (row SignalRow) toSignal(date time.Time) (models.Signal, error) {
	if row.Symbol == "" {
		return models.Signal{}, errors.NewDataError("signals", "", "row for "+row.Date+" has no symbol", errors.ErrInvalidArgument)
	}
	direction := models.Direction(strings.ToUpper(row.Direction))
	if !direction.Valid() {
		return models.Signal{}, errors.NewDataError("signals", row.Symbol, "bad direction "+strconv.Quote(row.Direction), errors.ErrInvalidArgument)
	}
	if row.Confidence < 0 || row.Confidence > 1 {
		return models.Signal{}, errors.NewDataError("signals", row.Symbol, "confidence must be in [0,1]", errors.ErrInvalidArgument)
	}

	// Detail is carried opaquely; non-JSON text is quoted so it stays a
	// valid raw message.
	var detail json.RawMessage
	if row.Detail != "" {
		if json.Valid([]byte(row.Detail)) {
			detail = json.RawMessage(row.Detail)
		} else {
			detail = json.RawMessage(strconv.Quote(row.Detail))
		}
	}

	return models.Signal{
		Source:     models.SignalSource(strings.ToUpper(row.Source)),
		Direction:  direction,
		Confidence: row.Confidence,
		Timestamp:  date,
		Detail:     detail,
	}, nil
}

// LoadTrades reads a trades CSV for replay through a ledger.
func LoadTrades(path string) ([]TradeRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewDataError("trades", "", "open "+path, err)
	}
	defer file.Close()

	var rows []*TradeRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, errors.NewDataError("trades", "", "parse "+path, err)
	}

	out := make([]TradeRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	return out, nil
}

// LatestPrices returns the most recent price per symbol across the
// records.
func LatestPrices(records []models.DayRecord) map[string]float64 {
	prices := make(map[string]float64)
	for _, day := range records {
		for symbol, price := range day.Prices {
			prices[symbol] = price
		}
	}
	return prices
}

// Symbols returns the sorted set of symbols priced in the records.
func Symbols(records []models.DayRecord) []string {
	set := make(map[string]struct{})
	for _, day := range records {
		for symbol := range day.Prices {
			set[symbol] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for symbol := range set {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

func loadPriceRows(path string) ([]*PriceRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewDataError("prices", "", "open "+path, err)
	}
	defer file.Close()

	var rows []*PriceRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, errors.NewDataError("prices", "", "parse "+path, err)
	}
	if len(rows) == 0 {
		return nil, errors.NewDataError("prices", "", "no rows in "+path, errors.ErrDataNotFound)
	}
	return rows, nil
}

func loadSignalRows(path string) ([]*SignalRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewDataError("signals", "", "open "+path, err)
	}
	defer file.Close()

	var rows []*SignalRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, errors.NewDataError("signals", "", "parse "+path, err)
	}
	return rows, nil
}
