package ledger

import (
	"context"

	"github.com/mmynk/splitwiser/internal/calculator"
	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
)

// GetBalances returns the user's signed net balance with every counterparty
// they share an obligation with, sorted by counterparty ID.
func (l *Ledger) GetBalances(ctx context.Context, userID string) ([]models.Balance, error) {
	obligations, err := l.store.ListObligations(ctx, storage.ObligationFilter{UserID: userID})
	if err != nil {
		return nil, &StorageError{Op: "list obligations", Err: err}
	}
	return calculator.NetBalances(userID, obligations), nil
}

// GroupBalances returns the simplified payments that clear the pending
// obligations of a group. Members only.
func (l *Ledger) GroupBalances(ctx context.Context, groupID, requesterID string) ([]models.DebtEdge, error) {
	if err := l.requireMember(ctx, groupID, requesterID); err != nil {
		return nil, err
	}
	obligations, err := l.store.ListGroupObligations(ctx, groupID, models.StatusPending)
	if err != nil {
		return nil, &StorageError{Op: "list group obligations", Err: err}
	}
	return calculator.SimplifyDebts(obligations), nil
}
