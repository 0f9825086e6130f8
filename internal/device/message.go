package device

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Wire tokens exchanged with the card terminal.
const (
	TokenDone         = "DONE"
	TokenInsufficient = "INSUFFICIENT"

	plateKey   = "PLATE"
	balanceKey = "BALANCE"
)

// CardData is the terminal's identification message: the plate stored on the
// card and its current balance.
type CardData struct {
	Plate   string
	Balance decimal.Decimal
}

// IsCardData reports whether a received line looks like an identification
// message. Lines without the plate token are terminal noise, not errors.
func IsCardData(line string) bool {
	return strings.Contains(line, plateKey+":")
}

// ParseCardData decodes a PLATE:<plate>;BALANCE:<decimal> line.
func ParseCardData(line string) (CardData, error) {
	fields := strings.Split(line, ";")
	if len(fields) != 2 {
		return CardData{}, fmt.Errorf("device: expected 2 fields, got %d", len(fields))
	}

	plate, err := fieldValue(fields[0], plateKey)
	if err != nil {
		return CardData{}, err
	}
	plate = strings.TrimSpace(plate)
	if plate == "" {
		return CardData{}, fmt.Errorf("device: empty plate")
	}

	rawBalance, err := fieldValue(fields[1], balanceKey)
	if err != nil {
		return CardData{}, err
	}
	balance, err := decimal.NewFromString(strings.TrimSpace(rawBalance))
	if err != nil {
		return CardData{}, fmt.Errorf("device: parse balance: %w", err)
	}

	return CardData{Plate: plate, Balance: balance}, nil
}

func fieldValue(field, key string) (string, error) {
	k, v, ok := strings.Cut(field, ":")
	if !ok || strings.TrimSpace(k) != key {
		return "", fmt.Errorf("device: missing %s field", key)
	}
	return v, nil
}
