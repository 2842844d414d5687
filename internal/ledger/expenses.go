package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/calculator"
	"github.com/mmynk/splitwiser/internal/metrics"
	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
)

// NewExpense is the input to CreateExpense.
type NewExpense struct {
	Description string
	Amount      decimal.Decimal
	PayerID     string
	GroupID     string
	Category    string
	Kind        models.SplitKind
	Splits      []models.Split

	// Date is when the spend happened. Zero means now.
	Date int64
}

// ComputeSplits divides amount among the participants without recording anything.
func (l *Ledger) ComputeSplits(amount decimal.Decimal, payerID string, participantIDs []string, kind models.SplitKind, shares []calculator.Share) ([]models.Split, error) {
	return calculator.ComputeSplits(amount, payerID, participantIDs, kind, shares)
}

// CreateExpense records an expense and generates one pending obligation for
// every non-payer split with a positive amount. The expense, its splits and
// its obligations are persisted atomically.
func (l *Ledger) CreateExpense(ctx context.Context, in NewExpense) (*models.Expense, []*models.Obligation, error) {
	if err := validateNewExpense(in); err != nil {
		return nil, nil, err
	}
	if in.GroupID != "" {
		if err := l.requireMember(ctx, in.GroupID, in.PayerID); err != nil {
			return nil, nil, err
		}
	}

	now := l.now().Unix()
	expense := &models.Expense{
		ID:          l.newID(),
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		PayerID:     in.PayerID,
		GroupID:     in.GroupID,
		Category:    in.Category,
		Kind:        in.Kind,
		Splits:      append([]models.Split(nil), in.Splits...),
		Date:        in.Date,
		CreatedAt:   now,
	}
	if expense.Category == "" {
		expense.Category = models.DefaultCategory
	}
	if expense.Kind == "" {
		expense.Kind = models.SplitEqual
	}
	if expense.Date == 0 {
		expense.Date = now
	}

	obligations := l.obligationsFor(expense)
	if err := l.store.CreateExpense(ctx, expense, obligations); err != nil {
		slog.Error("Failed to create expense", "error", err, "payer_id", expense.PayerID)
		return nil, nil, &StorageError{Op: "create expense", Err: err}
	}

	metrics.ExpensesCreated.Inc()
	metrics.ObligationsCreated.Add(float64(len(obligations)))
	slog.Info("Expense created",
		"expense_id", expense.ID,
		"payer_id", expense.PayerID,
		"group_id", expense.GroupID,
		"amount", expense.Amount.StringFixed(2),
		"obligations", len(obligations),
	)
	return expense, obligations, nil
}

func validateNewExpense(in NewExpense) error {
	if strings.TrimSpace(in.Description) == "" {
		return &ValidationError{Field: "description", Reason: "is required"}
	}
	if !in.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if in.PayerID == "" {
		return &ValidationError{Field: "payer_id", Reason: "is required"}
	}
	if in.Kind != "" && !in.Kind.Valid() {
		return &ValidationError{Field: "split_kind", Reason: fmt.Sprintf("unknown split kind %q", in.Kind)}
	}
	return calculator.ValidateSplits(in.Amount, in.Splits)
}

// obligationsFor derives the obligations of an expense: the split users owe the payer.
func (l *Ledger) obligationsFor(expense *models.Expense) []*models.Obligation {
	var obligations []*models.Obligation
	for _, s := range expense.Splits {
		if s.UserID == expense.PayerID || !s.Amount.IsPositive() {
			continue
		}
		obligations = append(obligations, &models.Obligation{
			ID:         l.newID(),
			DebtorID:   s.UserID,
			CreditorID: expense.PayerID,
			Amount:     s.Amount,
			GroupID:    expense.GroupID,
			ExpenseID:  expense.ID,
			Status:     models.StatusPending,
			CreatedAt:  expense.CreatedAt,
		})
	}
	return obligations
}

// DeleteExpense removes an expense and its obligations. Only the payer may delete.
func (l *Ledger) DeleteExpense(ctx context.Context, expenseID, requesterID string) error {
	expense, err := l.store.GetExpense(ctx, expenseID)
	if err != nil {
		return translate("get expense", "expense "+expenseID, err)
	}
	if expense.PayerID != requesterID {
		return fmt.Errorf("delete expense %s: %w", expenseID, ErrUnauthorized)
	}

	err = l.store.DeleteExpense(ctx, expenseID, l.deleteMode)
	switch {
	case errors.Is(err, storage.ErrSettledObligations):
		return fmt.Errorf("expense %s: %w", expenseID, ErrSettledObligations)
	case err != nil:
		return translate("delete expense", "expense "+expenseID, err)
	}

	metrics.ExpensesDeleted.Inc()
	slog.Info("Expense deleted", "expense_id", expenseID, "payer_id", requesterID)
	return nil
}

// GetExpense returns an expense visible to the requester: the payer, a split
// participant or a member of the expense's group.
func (l *Ledger) GetExpense(ctx context.Context, expenseID, requesterID string) (*models.Expense, error) {
	expense, err := l.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, translate("get expense", "expense "+expenseID, err)
	}
	if expense.PayerID == requesterID {
		return expense, nil
	}
	for _, s := range expense.Splits {
		if s.UserID == requesterID {
			return expense, nil
		}
	}
	if expense.GroupID != "" {
		if err := l.requireMember(ctx, expense.GroupID, requesterID); err != nil {
			return nil, err
		}
		return expense, nil
	}
	return nil, fmt.Errorf("get expense %s: %w", expenseID, ErrUnauthorized)
}

// ListExpenses returns the expenses of a group when groupID is set (members
// only), otherwise every expense involving userID. Newest first.
func (l *Ledger) ListExpenses(ctx context.Context, userID, groupID string) ([]*models.Expense, error) {
	filter := storage.ExpenseFilter{UserID: userID}
	if groupID != "" {
		if err := l.requireMember(ctx, groupID, userID); err != nil {
			return nil, err
		}
		filter = storage.ExpenseFilter{GroupID: groupID}
	}

	expenses, err := l.store.ListExpenses(ctx, filter)
	if err != nil {
		return nil, &StorageError{Op: "list expenses", Err: err}
	}
	return expenses, nil
}
