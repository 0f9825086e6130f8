package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"parkpay/internal/models"
)

// ErrNoUnpaidSession signals a lookup miss. It is a normal outcome, not a
// storage failure.
var ErrNoUnpaidSession = errors.New("ledger: no unpaid session")

// Store is the authoritative record of parking sessions. Implementations must
// settle at most one session per CommitPayment call.
type Store interface {
	// FindLatestUnpaid returns the unpaid session with the greatest entry
	// time for the plate, or ErrNoUnpaidSession. Equal timestamps resolve
	// to the earliest stored record, stably across calls.
	FindLatestUnpaid(ctx context.Context, plate string) (*models.ParkingSession, error)

	// CommitPayment re-locates the latest unpaid session by the same rule,
	// marks it paid with the amount, and persists atomically. It returns
	// false when no session matched, e.g. it was settled by another actor
	// between lookup and commit.
	CommitPayment(ctx context.Context, plate string, amount decimal.Decimal) (bool, error)
}
