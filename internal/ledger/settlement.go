package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/splitwiser/internal/metrics"
	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
)

// Settle marks a pending obligation settled. Only the debtor may settle.
// Of any number of concurrent calls exactly one succeeds; the rest get
// ErrAlreadySettled. Anyone but the debtor gets ErrUnauthorized whatever
// the status.
func (l *Ledger) Settle(ctx context.Context, obligationID, requesterID string) (*models.Obligation, error) {
	o, err := l.store.GetObligation(ctx, obligationID)
	if err != nil {
		err = translate("get obligation", "obligation "+obligationID, err)
		recordSettlement(err)
		return nil, err
	}
	if o.DebtorID != requesterID {
		err = fmt.Errorf("settle obligation %s: %w", obligationID, ErrUnauthorized)
		recordSettlement(err)
		return nil, err
	}
	if o.Status != models.StatusPending {
		err = fmt.Errorf("obligation %s: %w", obligationID, ErrAlreadySettled)
		recordSettlement(err)
		return nil, err
	}

	settledAt := l.now().Unix()
	err = l.store.SettleObligation(ctx, obligationID, settledAt)
	switch {
	case errors.Is(err, storage.ErrConflict):
		err = fmt.Errorf("obligation %s: %w", obligationID, ErrAlreadySettled)
	case err != nil:
		err = translate("settle obligation", "obligation "+obligationID, err)
	}
	recordSettlement(err)
	if err != nil {
		return nil, err
	}

	o.Status = models.StatusSettled
	o.SettledAt = settledAt
	slog.Info("Obligation settled",
		"obligation_id", o.ID,
		"debtor_id", o.DebtorID,
		"creditor_id", o.CreditorID,
		"amount", o.Amount.StringFixed(2),
	)
	return o, nil
}

func recordSettlement(err error) {
	result := metrics.ResultSettled
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadySettled):
		result = metrics.ResultAlreadySettled
	case errors.Is(err, ErrUnauthorized):
		result = metrics.ResultUnauthorized
	case errors.Is(err, ErrNotFound):
		result = metrics.ResultNotFound
	default:
		result = metrics.ResultError
	}
	metrics.SettlementsTotal.WithLabelValues(result).Inc()
}

// ObligationFilter narrows ListObligations. Zero fields match everything.
type ObligationFilter struct {
	GroupID string
	Status  models.ObligationStatus
}

// ListObligations returns the obligations where userID is debtor or creditor, newest first.
func (l *Ledger) ListObligations(ctx context.Context, userID string, filter ObligationFilter) ([]*models.Obligation, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", filter.Status)}
	}
	obligations, err := l.store.ListObligations(ctx, storage.ObligationFilter{
		UserID:  userID,
		GroupID: filter.GroupID,
		Status:  filter.Status,
	})
	if err != nil {
		return nil, &StorageError{Op: "list obligations", Err: err}
	}
	return obligations, nil
}
