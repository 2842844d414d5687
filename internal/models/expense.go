package models

import "github.com/shopspring/decimal"

// SplitKind describes how an expense amount was divided.
type SplitKind string

const (
	SplitEqual      SplitKind = "equal"
	SplitUnequal    SplitKind = "unequal"
	SplitPercentage SplitKind = "percentage"
	SplitShares     SplitKind = "shares"
)

// Valid reports whether k is one of the known split kinds.
func (k SplitKind) Valid() bool {
	switch k {
	case SplitEqual, SplitUnequal, SplitPercentage, SplitShares:
		return true
	}
	return false
}

// DefaultCategory is applied to expenses created without a category.
const DefaultCategory = "General"

// Expense represents a payment made by PayerID on behalf of the split participants.
// Expenses are immutable once created, except for deletion.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// Description is the human-readable label (e.g., "Groceries").
	Description string

	// Amount is the total paid. Always positive.
	Amount decimal.Decimal

	// PayerID is the user who paid and is the creditor of every obligation.
	PayerID string

	// GroupID is the group the expense belongs to. Empty for non-group expenses.
	GroupID string

	// Category is a free-form label, "General" by default.
	Category string

	// Kind records how the amount was divided.
	Kind SplitKind

	// Splits holds one entry per participant, including the payer when they
	// took part. Amounts sum to Amount.
	Splits []Split

	// Date is the Unix timestamp when the spend happened.
	Date int64

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}

// Split is one participant's assigned share of an expense.
type Split struct {
	UserID string

	// Amount is this participant's share. Never negative.
	Amount decimal.Decimal

	// Percentage is set for percentage splits.
	Percentage decimal.NullDecimal

	// Shares is set for share splits; 0 means unset.
	Shares int64
}

// SplitTotal returns the sum of all split amounts.
func SplitTotal(splits []Split) decimal.Decimal {
	total := decimal.Zero
	for _, s := range splits {
		total = total.Add(s.Amount)
	}
	return total
}
