// Package service drives the settlement transaction cycle at the exit lane.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"parkpay/internal/device"
	"parkpay/internal/fee"
	"parkpay/internal/ledger"
)

// Outcome classifies one pass of the transaction cycle.
type Outcome int

const (
	// OutcomeIgnored means the received line was not an identification
	// message; the terminal stays in the waiting state.
	OutcomeIgnored Outcome = iota
	// OutcomeBadMessage means the identification message was malformed.
	OutcomeBadMessage
	// OutcomeNoSession means the plate has no unpaid session.
	OutcomeNoSession
	// OutcomeInsufficient means the reported balance cannot cover the fee.
	OutcomeInsufficient
	// OutcomeSettled means the card was charged and the ledger updated.
	OutcomeSettled
	// OutcomeRejected means the terminal reported the deduction failed.
	OutcomeRejected
	// OutcomeConflict means the terminal confirmed the charge but the
	// session was already settled elsewhere; the payment is not recorded.
	OutcomeConflict
	// OutcomeAborted covers unexpected terminal responses and per
	// transaction storage failures.
	OutcomeAborted
)

// ExitService runs settlement transactions against the card terminal, one at
// a time: identify the card, match the newest unpaid session, quote the fee,
// and commit only after the terminal confirms the deduction.
type ExitService struct {
	link     device.Link
	store    ledger.Store
	rate     decimal.Decimal
	currency string
	logger   *zap.Logger

	now func() time.Time
}

// NewExitService builds the service.
func NewExitService(link device.Link, store ledger.Store, rate decimal.Decimal, currency string, logger *zap.Logger) *ExitService {
	return &ExitService{
		link:     link,
		store:    store,
		rate:     rate,
		currency: currency,
		logger:   logger,
		now:      time.Now,
	}
}

// Run processes transactions until ctx is done. Only transport failures
// propagate; every per-transaction condition returns the loop to waiting.
func (s *ExitService) Run(ctx context.Context) error {
	s.logger.Info("awaiting card",
		zap.String("rate_per_hour", s.rate.String()),
		zap.String("currency", s.currency),
	)
	for {
		if _, err := s.ProcessNext(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return err
		}
	}
}

// ProcessNext runs a single pass of the cycle: it blocks for the next line
// from the terminal and carries an identification message through to one of
// the terminal outcomes. The returned error is fatal (transport failure or
// context cancellation); everything recoverable is folded into the Outcome.
func (s *ExitService) ProcessNext(ctx context.Context) (Outcome, error) {
	line, err := s.link.ReceiveMessage(ctx)
	if err != nil {
		return OutcomeAborted, err
	}
	if !device.IsCardData(line) {
		return OutcomeIgnored, nil
	}

	card, err := device.ParseCardData(line)
	if err != nil {
		s.logger.Warn("malformed card message", zap.String("line", line), zap.Error(err))
		return OutcomeBadMessage, nil
	}
	s.logger.Info("card detected",
		zap.String("plate", card.Plate),
		zap.String("balance", card.Balance.StringFixed(2)),
		zap.String("currency", s.currency),
	)

	session, err := s.store.FindLatestUnpaid(ctx, card.Plate)
	if errors.Is(err, ledger.ErrNoUnpaidSession) {
		s.logger.Warn("no unpaid entry for plate", zap.String("plate", card.Plate))
		return OutcomeNoSession, nil
	}
	if err != nil {
		s.logger.Error("ledger lookup failed", zap.String("plate", card.Plate), zap.Error(err))
		return OutcomeAborted, nil
	}

	// One wall-clock sample per transaction keeps the quoted and committed
	// amounts identical.
	now := s.now()
	amountDue := fee.AmountDue(session.EntryTime, now, s.rate)
	s.logger.Info("fee quoted",
		zap.String("plate", card.Plate),
		zap.Float64("hours", now.Sub(session.EntryTime).Hours()),
		zap.String("amount_due", amountDue.StringFixed(2)),
	)

	if card.Balance.LessThan(amountDue) {
		if err := s.link.SendMessage(device.TokenInsufficient); err != nil {
			return OutcomeAborted, err
		}
		s.logger.Warn("insufficient balance",
			zap.String("plate", card.Plate),
			zap.String("balance", card.Balance.StringFixed(2)),
			zap.String("amount_due", amountDue.StringFixed(2)),
		)
		return OutcomeInsufficient, nil
	}

	if err := s.link.SendMessage(amountDue.StringFixed(2)); err != nil {
		return OutcomeAborted, err
	}

	response, err := s.link.ReceiveMessage(ctx)
	if err != nil {
		return OutcomeAborted, err
	}

	switch response {
	case device.TokenDone:
		updated, err := s.store.CommitPayment(ctx, card.Plate, amountDue)
		if err != nil {
			s.logger.Error("settlement write failed", zap.String("plate", card.Plate), zap.Error(err))
			return OutcomeAborted, nil
		}
		if !updated {
			s.logger.Error("session already settled, charge not recorded",
				zap.String("plate", card.Plate),
				zap.String("amount", amountDue.StringFixed(2)),
			)
			return OutcomeConflict, nil
		}
		s.logger.Info("payment settled",
			zap.String("plate", card.Plate),
			zap.String("amount", amountDue.StringFixed(2)),
			zap.String("remaining_balance", card.Balance.Sub(amountDue).Round(2).StringFixed(2)),
		)
		return OutcomeSettled, nil
	case device.TokenInsufficient:
		s.logger.Warn("terminal rejected deduction", zap.String("plate", card.Plate))
		return OutcomeRejected, nil
	default:
		s.logger.Error("unexpected terminal response",
			zap.String("plate", card.Plate),
			zap.String("response", response),
		)
		return OutcomeAborted, nil
	}
}
