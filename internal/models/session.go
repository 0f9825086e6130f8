package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus marks whether a session has been settled.
type PaymentStatus int

const (
	StatusUnpaid PaymentStatus = iota
	StatusPaid
)

// ParkingSession represents one vehicle stay from gate entry to settlement.
// A plate can carry several historical sessions; only the latest unpaid one
// is ever settled.
type ParkingSession struct {
	Plate      string
	EntryTime  time.Time
	Status     PaymentStatus
	AmountPaid decimal.NullDecimal
}
