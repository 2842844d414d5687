// Package ledger records shared expenses as pairwise obligations, nets them
// into balances and settles them.
//
// Every operation takes the requester's user ID from the caller; the ledger
// enforces who may see, delete or settle an entry but does not authenticate.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitwiser/internal/storage"
)

// Store is the persistence the ledger needs.
type Store interface {
	storage.ExpenseStore
	storage.ObligationStore
}

// Membership answers group membership questions.
type Membership interface {
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
	IsAdmin(ctx context.Context, groupID, userID string) (bool, error)
}

// Ledger coordinates the split calculator, the obligation generator, the
// balance aggregator and settlement over a Store.
type Ledger struct {
	store      Store
	groups     Membership
	now        func() time.Time
	newID      func() string
	deleteMode storage.DeleteMode
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used for created-at and settled-at stamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithDeleteMode sets how DeleteExpense treats settled obligations.
// The default is storage.DeleteCascade.
func WithDeleteMode(mode storage.DeleteMode) Option {
	return func(l *Ledger) {
		l.deleteMode = mode
	}
}

// New creates a Ledger backed by store, checking group membership with groups.
func New(store Store, groups Membership, opts ...Option) *Ledger {
	l := &Ledger{
		store:      store,
		groups:     groups,
		now:        time.Now,
		newID:      uuid.NewString,
		deleteMode: storage.DeleteCascade,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// requireMember returns ErrUnauthorized unless userID belongs to groupID.
func (l *Ledger) requireMember(ctx context.Context, groupID, userID string) error {
	ok, err := l.groups.IsMember(ctx, groupID, userID)
	if err != nil {
		return &StorageError{Op: "check group membership", Err: err}
	}
	if !ok {
		return fmt.Errorf("user %s in group %s: %w", userID, groupID, ErrUnauthorized)
	}
	return nil
}

// translate maps store sentinels onto ledger errors.
func translate(op, what string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return &StorageError{Op: op, Err: err}
}
