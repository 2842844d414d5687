// Package calculator holds the pure money algorithms of the ledger:
// dividing an expense into splits and netting obligations into balances.
// Nothing here touches storage.
package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/models"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports malformed or sum-mismatched input.
// Field names the offending input, Reason the violated constraint.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) true for any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// SumTolerance is the allowed difference between split totals and the expense amount.
var SumTolerance = decimal.New(1, -2)

var hundred = decimal.NewFromInt(100)

// Share is a caller-supplied split line for unequal, percentage and share splits.
type Share struct {
	UserID string

	// Amount is required for unequal splits. For percentage and share splits
	// it is derived when nil.
	Amount *decimal.Decimal

	// Percentage is required for percentage splits.
	Percentage *decimal.Decimal

	// Shares is required (positive) for share splits.
	Shares int64
}

// ComputeSplits divides amount among the participants of an expense.
//
// Equal splits run over the payer plus participantIDs. Every participant gets
// the amount in cents divided by the headcount, floored, and the leftover
// cents go to the payer, so the result sums to amount exactly.
//
// Other kinds take their participants from shares. Missing amounts for
// percentage and share lines are derived by the same floor-then-residual
// rule; the residual goes to the payer's line, or the first line when the
// payer is not splitting.
func ComputeSplits(amount decimal.Decimal, payerID string, participantIDs []string, kind models.SplitKind, shares []Share) ([]models.Split, error) {
	if !amount.IsPositive() {
		return nil, invalid("amount", "must be greater than zero")
	}
	if !amount.Equal(amount.Truncate(2)) {
		return nil, invalid("amount", "must not have more than 2 decimal places")
	}
	if payerID == "" {
		return nil, invalid("payer_id", "is required")
	}

	switch kind {
	case models.SplitEqual:
		return equalSplits(amount, payerID, participantIDs)
	case models.SplitUnequal, models.SplitPercentage, models.SplitShares:
		return explicitSplits(amount, payerID, participantIDs, kind, shares)
	default:
		return nil, invalid("split_kind", "unknown split kind %q", kind)
	}
}

func equalSplits(amount decimal.Decimal, payerID string, participantIDs []string) ([]models.Split, error) {
	if len(participantIDs) == 0 {
		return nil, invalid("participant_ids", "must have at least one participant")
	}

	users := []string{payerID}
	seen := map[string]bool{}
	for _, id := range participantIDs {
		if id == "" {
			return nil, invalid("participant_ids", "participant id cannot be empty")
		}
		if seen[id] {
			return nil, invalid("participant_ids", "duplicate participant %q", id)
		}
		seen[id] = true
		if id != payerID {
			users = append(users, id)
		}
	}

	base, residual := amount.Shift(2).QuoRem(decimal.NewFromInt(int64(len(users))), 0)

	splits := make([]models.Split, len(users))
	for i, id := range users {
		share := base
		if i == 0 {
			share = share.Add(residual)
		}
		splits[i] = models.Split{UserID: id, Amount: share.Shift(-2)}
	}
	return splits, nil
}

func explicitSplits(amount decimal.Decimal, payerID string, participantIDs []string, kind models.SplitKind, shares []Share) ([]models.Split, error) {
	if len(shares) == 0 {
		return nil, invalid("shares", "must have at least one participant")
	}

	seen := map[string]bool{}
	for _, sh := range shares {
		if sh.UserID == "" {
			return nil, invalid("shares", "participant id cannot be empty")
		}
		if seen[sh.UserID] {
			return nil, invalid("shares", "duplicate participant %q", sh.UserID)
		}
		seen[sh.UserID] = true
	}
	if len(participantIDs) > 0 {
		if len(participantIDs) != len(shares) {
			return nil, invalid("participant_ids", "must match the participants of shares")
		}
		for _, id := range participantIDs {
			if !seen[id] {
				return nil, invalid("participant_ids", "participant %q has no share", id)
			}
		}
	}

	var (
		splits []models.Split
		err    error
	)
	switch kind {
	case models.SplitUnequal:
		splits, err = unequalSplits(shares)
	case models.SplitPercentage:
		splits, err = percentageSplits(amount, shares)
	case models.SplitShares:
		splits, err = shareSplits(amount, shares)
	}
	if err != nil {
		return nil, err
	}

	if err := assignResidual(amount, payerID, shares, splits); err != nil {
		return nil, err
	}

	if err := ValidateSplits(amount, splits); err != nil {
		return nil, err
	}
	return splits, nil
}

func unequalSplits(shares []Share) ([]models.Split, error) {
	splits := make([]models.Split, len(shares))
	for i, sh := range shares {
		if sh.Amount == nil {
			return nil, invalid("shares", "amount is required for %q", sh.UserID)
		}
		if err := checkLineAmount(sh.UserID, *sh.Amount); err != nil {
			return nil, err
		}
		splits[i] = models.Split{UserID: sh.UserID, Amount: *sh.Amount}
	}
	return splits, nil
}

func percentageSplits(amount decimal.Decimal, shares []Share) ([]models.Split, error) {
	totalPct := decimal.Zero
	for _, sh := range shares {
		if sh.Percentage == nil {
			return nil, invalid("shares", "percentage is required for %q", sh.UserID)
		}
		if sh.Percentage.IsNegative() {
			return nil, invalid("shares", "percentage for %q cannot be negative", sh.UserID)
		}
		totalPct = totalPct.Add(*sh.Percentage)
	}
	if totalPct.Sub(hundred).Abs().GreaterThan(SumTolerance) {
		return nil, invalid("shares", "percentages must sum to 100 (got %s)", totalPct.String())
	}

	cents := amount.Shift(2)
	splits := make([]models.Split, len(shares))
	for i, sh := range shares {
		split := models.Split{UserID: sh.UserID, Percentage: decimal.NewNullDecimal(*sh.Percentage)}
		if sh.Amount != nil {
			if err := checkLineAmount(sh.UserID, *sh.Amount); err != nil {
				return nil, err
			}
			split.Amount = *sh.Amount
		} else {
			split.Amount = cents.Mul(*sh.Percentage).Div(hundred).Floor().Shift(-2)
		}
		splits[i] = split
	}
	return splits, nil
}

func shareSplits(amount decimal.Decimal, shares []Share) ([]models.Split, error) {
	total := decimal.Zero
	for _, sh := range shares {
		if sh.Shares <= 0 {
			return nil, invalid("shares", "share count for %q must be a positive integer", sh.UserID)
		}
		total = total.Add(decimal.NewFromInt(sh.Shares))
	}

	cents := amount.Shift(2)
	splits := make([]models.Split, len(shares))
	for i, sh := range shares {
		split := models.Split{UserID: sh.UserID, Shares: sh.Shares}
		if sh.Amount != nil {
			if err := checkLineAmount(sh.UserID, *sh.Amount); err != nil {
				return nil, err
			}
			split.Amount = *sh.Amount
		} else {
			q, _ := cents.Mul(decimal.NewFromInt(sh.Shares)).QuoRem(total, 0)
			split.Amount = q.Shift(-2)
		}
		splits[i] = split
	}
	return splits, nil
}

// assignResidual moves whatever flooring left over onto one line so derived
// splits sum to amount exactly. Lines with caller-supplied amounts disable it:
// those totals are only held to SumTolerance. Percentages above 100 can
// derive more than amount; that is reported instead of a negative line.
func assignResidual(amount decimal.Decimal, payerID string, shares []Share, splits []models.Split) error {
	target := 0
	for i, sh := range shares {
		if sh.Amount != nil {
			return nil
		}
		if sh.UserID == payerID {
			target = i
		}
	}
	residual := amount.Sub(models.SplitTotal(splits))
	adjusted := splits[target].Amount.Add(residual)
	if adjusted.IsNegative() {
		return invalid("shares", "derived amounts exceed the expense amount by %s; percentages must not sum above 100",
			residual.Neg().StringFixed(2))
	}
	splits[target].Amount = adjusted
	return nil
}

func checkLineAmount(userID string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return invalid("shares", "amount for %q cannot be negative", userID)
	}
	if !amount.Equal(amount.Truncate(2)) {
		return invalid("shares", "amount for %q must not have more than 2 decimal places", userID)
	}
	return nil
}

// ValidateSplits checks the stored-split invariant: at least one split,
// unique non-empty user ids, non-negative amounts, and a total within
// SumTolerance of amount.
func ValidateSplits(amount decimal.Decimal, splits []models.Split) error {
	if len(splits) == 0 {
		return invalid("splits", "must have at least one split")
	}
	seen := make(map[string]bool, len(splits))
	for _, s := range splits {
		if s.UserID == "" {
			return invalid("splits", "user id cannot be empty")
		}
		if seen[s.UserID] {
			return invalid("splits", "duplicate participant %q", s.UserID)
		}
		seen[s.UserID] = true
		if s.Amount.IsNegative() {
			return invalid("splits", "amount for %q cannot be negative", s.UserID)
		}
	}
	total := models.SplitTotal(splits)
	if total.Sub(amount).Abs().GreaterThan(SumTolerance) {
		return invalid("splits", "split amounts must sum to expense amount (got %s, want %s)",
			total.StringFixed(2), amount.StringFixed(2))
	}
	return nil
}
