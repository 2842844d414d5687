package models

import "github.com/shopspring/decimal"

// ObligationStatus is the settlement state of an obligation.
type ObligationStatus string

const (
	StatusPending ObligationStatus = "pending"
	StatusSettled ObligationStatus = "settled"
)

// Valid reports whether s is a known status.
func (s ObligationStatus) Valid() bool {
	return s == StatusPending || s == StatusSettled
}

// Obligation is a directed debt: DebtorID owes CreditorID Amount.
// It is created with its source expense and only ever transitions
// pending -> settled.
type Obligation struct {
	// ID is the unique identifier for the obligation (UUID format).
	ID string

	// DebtorID is the user who owes.
	DebtorID string

	// CreditorID is the user who is owed (the expense payer).
	CreditorID string

	// Amount is the debt. Always positive.
	Amount decimal.Decimal

	// GroupID is copied from the source expense.
	GroupID string

	// ExpenseID is the source expense. Deleting it deletes the obligation.
	ExpenseID string

	Status ObligationStatus

	// CreatedAt is the Unix timestamp when the obligation was created.
	CreatedAt int64

	// SettledAt is the Unix timestamp of settlement, 0 while pending.
	SettledAt int64
}

// Counterparty returns the other side of the obligation from userID's point of view.
func (o *Obligation) Counterparty(userID string) string {
	if o.DebtorID == userID {
		return o.CreditorID
	}
	return o.DebtorID
}

// Balance is the signed net amount between a user and one counterparty.
// Positive means the user owes the counterparty, negative means the
// counterparty owes the user, zero means settled up.
type Balance struct {
	CounterpartyID string
	Net            decimal.Decimal
}

// DebtEdge is a simplified payment suggestion inside a group.
type DebtEdge struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount decimal.Decimal
}
