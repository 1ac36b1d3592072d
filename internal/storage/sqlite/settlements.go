package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/expensedash/internal/storage"
)

// SettleGroup deletes every split and expense of a group in one transaction.
func (s *SQLiteStore) SettleGroup(ctx context.Context, groupID int64) (int64, error) {
	var deleted int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		deleted, err = settleTx(ctx, tx, groupID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// settleTx runs both deletes. Splits go first: splits.expense_id references
// expenses(id).
func settleTx(ctx context.Context, tx *sql.Tx, groupID int64) (int64, error) {
	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM groups WHERE id = ?", groupID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("failed to check group existence: %w", err)
	}
	if exists == 0 {
		return 0, storage.ErrUnknownGroup
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM splits WHERE expense_id IN (SELECT id FROM expenses WHERE group_id = ?)",
		groupID,
	); err != nil {
		return 0, fmt.Errorf("failed to delete splits: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM expenses WHERE group_id = ?", groupID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expenses: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted expenses: %w", err)
	}
	return deleted, nil
}
