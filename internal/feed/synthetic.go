package feed

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"time"

	"backfolio/internal/models"
	"backfolio/pkg/utils"
)

// SyntheticConfig controls the generated demo series.
type SyntheticConfig struct {
	Symbols    []string
	Days       int
	Seed       int64
	StartPrice float64   // zero means 100
	StartDate  time.Time // zero means 2024-01-02
}

var sourceOrder = []models.SignalSource{models.SourceSVM, models.SourceLSTM, models.SourceNLP}

// Synthetic generates a random-walk price series with model-flavored
// signals. The same config always produces the same records.
func Synthetic(cfg SyntheticConfig) []models.DayRecord {
	if len(cfg.Symbols) == 0 || cfg.Days <= 0 {
		return nil
	}
	startPrice := cfg.StartPrice
	if startPrice == 0 {
		startPrice = 100
	}
	startDate := cfg.StartDate
	if startDate.IsZero() {
		startDate = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	dates := utils.TradingDays(startDate, cfg.Days)

	prices := make(map[string]float64, len(cfg.Symbols))
	for _, symbol := range cfg.Symbols {
		prices[symbol] = startPrice
	}

	records := make([]models.DayRecord, 0, cfg.Days)
	for _, date := range dates {
		day := models.DayRecord{
			Date:    date,
			Prices:  make(map[string]float64, len(cfg.Symbols)),
			Signals: make(map[string][]models.Signal),
		}

		for _, symbol := range cfg.Symbols {
			prev := prices[symbol]
			next := prev * (1 + (rng.Float64()-0.5)*0.04)
			if next < 0.01 {
				next = 0.01
			}
			prices[symbol] = next
			day.Prices[symbol] = math.Round(next*100) / 100

			momentum := (next - prev) / prev
			for _, source := range sourceOrder {
				if rng.Float64() > 0.6 {
					continue
				}
				day.Signals[symbol] = append(day.Signals[symbol], syntheticSignal(rng, source, date, momentum))
			}
		}

		records = append(records, day)
	}
	return records
}

// syntheticSignal draws a direction tilted by momentum so trends
// attract agreeing signals.
func syntheticSignal(rng *rand.Rand, source models.SignalSource, date time.Time, momentum float64) models.Signal {
	buyCut := 0.34 + momentum*5
	if buyCut < 0.1 {
		buyCut = 0.1
	}
	if buyCut > 0.6 {
		buyCut = 0.6
	}

	roll := rng.Float64()
	direction := models.DirectionHold
	switch {
	case roll < buyCut:
		direction = models.DirectionBuy
	case roll < buyCut+0.33:
		direction = models.DirectionSell
	}

	confidence := math.Round((0.40+rng.Float64()*0.55)*100) / 100
	detail := json.RawMessage(fmt.Sprintf(`{"model":%q,"score":%.2f}`, string(source), confidence))

	return models.Signal{
		Source:     source,
		Direction:  direction,
		Confidence: confidence,
		Timestamp:  date,
		Detail:     detail,
	}
}
