// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/splitwiser/internal/models"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a conditional write lost against the
	// current state of the record (e.g. settling a settled obligation).
	ErrConflict = errors.New("record state conflict")

	// ErrSettledObligations is returned by DeleteExpense under
	// DeleteUnlessSettled when any obligation of the expense is settled.
	ErrSettledObligations = errors.New("expense has settled obligations")
)

// DeleteMode controls how DeleteExpense treats settled obligations.
type DeleteMode int

const (
	// DeleteCascade removes the expense and all its obligations regardless of status.
	DeleteCascade DeleteMode = iota
	// DeleteUnlessSettled refuses to delete an expense once any obligation is settled.
	DeleteUnlessSettled
)

// ExpenseFilter selects expenses for ListExpenses.
// With GroupID set only that group's expenses are returned. Otherwise
// expenses involving UserID are returned: paid by them, split with them,
// or recorded in a group they belong to.
type ExpenseFilter struct {
	UserID  string
	GroupID string
}

// ObligationFilter selects obligations where UserID is debtor or creditor.
// GroupID and Status are optional narrowing filters.
type ObligationFilter struct {
	UserID  string
	GroupID string
	Status  models.ObligationStatus
}

// ExpenseStore persists expenses together with their splits and obligations.
type ExpenseStore interface {
	// CreateExpense writes the expense, its splits and its obligations as a
	// single transaction. On any error nothing is persisted.
	CreateExpense(ctx context.Context, expense *models.Expense, obligations []*models.Obligation) error

	// GetExpense retrieves an expense with its splits.
	// Returns ErrNotFound if it does not exist.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ListExpenses returns matching expenses, newest Date first.
	ListExpenses(ctx context.Context, filter ExpenseFilter) ([]*models.Expense, error)

	// DeleteExpense removes an expense and its obligations in one transaction.
	DeleteExpense(ctx context.Context, expenseID string, mode DeleteMode) error
}

// ObligationStore reads obligations and performs the settlement transition.
type ObligationStore interface {
	// GetObligation retrieves an obligation by ID.
	// Returns ErrNotFound if it does not exist.
	GetObligation(ctx context.Context, obligationID string) (*models.Obligation, error)

	// ListObligations returns matching obligations, newest first.
	ListObligations(ctx context.Context, filter ObligationFilter) ([]*models.Obligation, error)

	// ListGroupObligations returns every obligation recorded in a group.
	ListGroupObligations(ctx context.Context, groupID string, status models.ObligationStatus) ([]*models.Obligation, error)

	// SettleObligation flips a pending obligation to settled at settledAt.
	// Exactly one concurrent caller succeeds; the others get ErrConflict.
	// Returns ErrNotFound if the obligation does not exist.
	SettleObligation(ctx context.Context, obligationID string, settledAt int64) error
}

// GroupStore manages groups and answers membership questions.
type GroupStore interface {
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error)
	AddGroupMember(ctx context.Context, groupID string, member models.GroupMember) error
	RemoveGroupMember(ctx context.Context, groupID, userID string) error

	// IsMember reports whether userID belongs to groupID. Unknown groups report false.
	IsMember(ctx context.Context, groupID, userID string) (bool, error)

	// IsAdmin reports whether userID is an admin of groupID.
	IsAdmin(ctx context.Context, groupID, userID string) (bool, error)
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Store defines the full storage surface of the application.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	ExpenseStore
	ObligationStore
	GroupStore
	UserStore

	// Close releases any resources held by the store.
	Close() error
}
