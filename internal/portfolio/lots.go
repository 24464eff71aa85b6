package portfolio

import (
	"backfolio/internal/models"
)

// lot is a parcel of shares acquired by a single buy.
type lot struct {
	quantity int64
	price    float64
}

// SellAttribution is the FIFO-matched outcome of one sell transaction.
type SellAttribution struct {
	TransactionID int64
	Symbol        string
	Quantity      int64
	Realized      float64
}

// Profitable reports whether the sell realized a gain.
func (a SellAttribution) Profitable() bool {
	return a.Realized > 0
}

// RealizedPnL computes total realized profit and loss over a transaction
// log using FIFO lot matching. Fees are not part of realized P&L. The
// function is pure: the same log always yields the same result.
func RealizedPnL(transactions []models.Transaction) float64 {
	var total float64
	for _, a := range RealizedBySell(transactions) {
		total += a.Realized
	}
	return total
}

// RealizedBySell attributes FIFO realized P&L to each sell in the log,
// in log order. Partial lots are split; a sell can consume several lots.
func RealizedBySell(transactions []models.Transaction) []SellAttribution {
	queues := make(map[string][]lot)
	var out []SellAttribution

	for _, tx := range transactions {
		switch tx.Side {
		case models.DirectionBuy:
			queues[tx.Symbol] = append(queues[tx.Symbol], lot{quantity: tx.Quantity, price: tx.Price})

		case models.DirectionSell:
			queue := queues[tx.Symbol]
			remaining := tx.Quantity
			var realized float64

			for remaining > 0 && len(queue) > 0 {
				head := &queue[0]
				consumed := head.quantity
				if consumed > remaining {
					consumed = remaining
				}
				realized += float64(consumed) * (tx.Price - head.price)
				head.quantity -= consumed
				remaining -= consumed
				if head.quantity == 0 {
					queue = queue[1:]
				}
			}

			queues[tx.Symbol] = queue
			out = append(out, SellAttribution{
				TransactionID: tx.ID,
				Symbol:        tx.Symbol,
				Quantity:      tx.Quantity,
				Realized:      realized,
			})
		}
	}

	return out
}
