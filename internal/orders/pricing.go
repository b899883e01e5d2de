package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	standardBasePrice = decimal.RequireFromString("14.99")
	rushBasePrice     = decimal.RequireFromString("22.99")
	lengthSurcharge   = decimal.RequireFromString("5.00")
)

const (
	surchargeTierOne = 1500
	surchargeTierTwo = 2500

	standardTurnaround = 24 * time.Hour
	rushTurnaround     = time.Hour
)

// Quote is the price and delivery promise for an order.
type Quote struct {
	Price decimal.Decimal `json:"price"`
	DueAt time.Time       `json:"dueAt"`
}

// QuoteFor prices an order of length words placed at now.
func QuoteFor(length int, isRush bool, now time.Time) Quote {
	price := standardBasePrice
	turnaround := standardTurnaround
	if isRush {
		price = rushBasePrice
		turnaround = rushTurnaround
	}
	if length > surchargeTierOne {
		price = price.Add(lengthSurcharge)
	}
	if length > surchargeTierTwo {
		price = price.Add(lengthSurcharge)
	}
	return Quote{Price: price, DueAt: now.Add(turnaround)}
}
