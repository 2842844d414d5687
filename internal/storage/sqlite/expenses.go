package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
)

const expenseColumns = `id, description, amount, payer_id, group_id, category, split_kind, expense_date, created_at`

// CreateExpense persists an expense, its splits and its obligations in one transaction.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense, obligations []*models.Obligation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Insert expense first; obligations reference it
	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.Description, expense.Amount, expense.PayerID, nullString(expense.GroupID),
		expense.Category, string(expense.Kind), expense.Date, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	// Insert splits
	for i, split := range expense.Splits {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO expense_splits (expense_id, position, user_id, amount, percentage, shares)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			expense.ID, i, split.UserID, split.Amount, split.Percentage, nullInt64(split.Shares),
		)
		if err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
	}

	// Insert obligations
	for _, o := range obligations {
		if err := insertObligation(ctx, tx, o); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func insertObligation(ctx context.Context, tx *sql.Tx, o *models.Obligation) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO obligations (id, expense_id, debtor_id, creditor_id, amount, group_id, status, created_at, settled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.ExpenseID, o.DebtorID, o.CreditorID, o.Amount, nullString(o.GroupID),
		string(o.Status), o.CreatedAt, nullInt64(o.SettledAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert obligation: %w", err)
	}
	return nil
}

// GetExpense retrieves an expense by ID, including its splits.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`,
		expenseID,
	)
	expense, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	if expense.Splits, err = s.loadSplits(ctx, expense.ID); err != nil {
		return nil, err
	}
	return expense, nil
}

// ListExpenses retrieves expenses matching the filter, newest first.
func (s *SQLiteStore) ListExpenses(ctx context.Context, filter storage.ExpenseFilter) ([]*models.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE `
	var args []any
	if filter.GroupID != "" {
		query += `group_id = ?`
		args = append(args, filter.GroupID)
	} else {
		query += `payer_id = ?
			OR id IN (SELECT expense_id FROM expense_splits WHERE user_id = ?)
			OR group_id IN (SELECT group_id FROM group_members WHERE user_id = ?)`
		args = append(args, filter.UserID, filter.UserID, filter.UserID)
	}
	query += ` ORDER BY expense_date DESC, created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	rows.Close()

	// Splits are loaded after the expense cursor is closed
	for _, expense := range expenses {
		if expense.Splits, err = s.loadSplits(ctx, expense.ID); err != nil {
			return nil, err
		}
	}

	return expenses, nil
}

// DeleteExpense removes an expense, its splits and its obligations.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, expenseID string, mode storage.DeleteMode) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Check if expense exists
	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM expenses WHERE id = ?", expenseID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check expense existence: %w", err)
	}

	if mode == storage.DeleteUnlessSettled {
		var settled int
		err = tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM obligations WHERE expense_id = ? AND status = ?",
			expenseID, string(models.StatusSettled),
		).Scan(&settled)
		if err != nil {
			return fmt.Errorf("failed to count settled obligations: %w", err)
		}
		if settled > 0 {
			return fmt.Errorf("expense %s: %w", expenseID, storage.ErrSettledObligations)
		}
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM obligations WHERE expense_id = ?", expenseID); err != nil {
		return fmt.Errorf("failed to delete obligations: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM expense_splits WHERE expense_id = ?", expenseID); err != nil {
		return fmt.Errorf("failed to delete splits: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", expenseID); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *SQLiteStore) loadSplits(ctx context.Context, expenseID string) ([]models.Split, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, amount, percentage, shares FROM expense_splits
		 WHERE expense_id = ? ORDER BY position`,
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	var splits []models.Split
	for rows.Next() {
		var (
			split  models.Split
			shares sql.NullInt64
		)
		if err := rows.Scan(&split.UserID, &split.Amount, &split.Percentage, &shares); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		split.Shares = shares.Int64
		splits = append(splits, split)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}
	return splits, nil
}

func scanExpense(row scanner) (*models.Expense, error) {
	var (
		expense models.Expense
		groupID sql.NullString
		kind    string
	)
	err := row.Scan(&expense.ID, &expense.Description, &expense.Amount, &expense.PayerID, &groupID,
		&expense.Category, &kind, &expense.Date, &expense.CreatedAt)
	if err != nil {
		return nil, err
	}
	expense.GroupID = groupID.String
	expense.Kind = models.SplitKind(kind)
	return &expense, nil
}
