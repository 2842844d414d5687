package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
)

const obligationColumns = `id, expense_id, debtor_id, creditor_id, amount, group_id, status, created_at, settled_at`

// GetObligation retrieves an obligation by ID.
func (s *SQLiteStore) GetObligation(ctx context.Context, obligationID string) (*models.Obligation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+obligationColumns+` FROM obligations WHERE id = ?`,
		obligationID,
	)
	o, err := scanObligation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("obligation %s: %w", obligationID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get obligation: %w", err)
	}
	return o, nil
}

// ListObligations retrieves obligations where the user is debtor or creditor.
func (s *SQLiteStore) ListObligations(ctx context.Context, filter storage.ObligationFilter) ([]*models.Obligation, error) {
	query := `SELECT ` + obligationColumns + ` FROM obligations WHERE (debtor_id = ? OR creditor_id = ?)`
	args := []any{filter.UserID, filter.UserID}
	if filter.GroupID != "" {
		query += ` AND group_id = ?`
		args = append(args, filter.GroupID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, id`

	return s.queryObligations(ctx, query, args...)
}

// ListGroupObligations retrieves every obligation of a group, optionally by status.
func (s *SQLiteStore) ListGroupObligations(ctx context.Context, groupID string, status models.ObligationStatus) ([]*models.Obligation, error) {
	query := `SELECT ` + obligationColumns + ` FROM obligations WHERE group_id = ?`
	args := []any{groupID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id`

	return s.queryObligations(ctx, query, args...)
}

// SettleObligation marks a pending obligation settled.
// The status guard in the UPDATE is the compare-and-set: of two racing
// callers only one sees a row affected.
func (s *SQLiteStore) SettleObligation(ctx context.Context, obligationID string, settledAt int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE obligations SET status = ?, settled_at = ? WHERE id = ? AND status = ?`,
		string(models.StatusSettled), settledAt, obligationID, string(models.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("failed to settle obligation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read settle result: %w", err)
	}
	if n == 1 {
		return nil
	}

	// Nothing changed: either gone or no longer pending
	var status string
	err = s.db.QueryRowContext(ctx, "SELECT status FROM obligations WHERE id = ?", obligationID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("obligation %s: %w", obligationID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check obligation status: %w", err)
	}
	return fmt.Errorf("obligation %s is %s: %w", obligationID, status, storage.ErrConflict)
}

func (s *SQLiteStore) queryObligations(ctx context.Context, query string, args ...any) ([]*models.Obligation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list obligations: %w", err)
	}
	defer rows.Close()

	var obligations []*models.Obligation
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan obligation: %w", err)
		}
		obligations = append(obligations, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate obligations: %w", err)
	}
	return obligations, nil
}

func scanObligation(row scanner) (*models.Obligation, error) {
	var (
		o         models.Obligation
		groupID   sql.NullString
		status    string
		settledAt sql.NullInt64
	)
	err := row.Scan(&o.ID, &o.ExpenseID, &o.DebtorID, &o.CreditorID, &o.Amount, &groupID,
		&status, &o.CreatedAt, &settledAt)
	if err != nil {
		return nil, err
	}
	o.GroupID = groupID.String
	o.Status = models.ObligationStatus(status)
	o.SettledAt = settledAt.Int64
	return &o, nil
}
