package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mmynk/expensedash/internal/models"
	"github.com/mmynk/expensedash/internal/storage"
)

// AddExpense persists an expense and its splits in one transaction.
func (s *SQLiteStore) AddExpense(ctx context.Context, expense *models.Expense, splits []models.Split) error {
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	amountCents, splitCents, err := storage.ExpenseCents(expense.Amount, splits)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM groups WHERE id = ?", expense.GroupID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check group existence: %w", err)
		}
		if exists == 0 {
			return storage.ErrUnknownGroup
		}

		res, err := tx.ExecContext(ctx,
			"INSERT INTO expenses (group_id, payer, amount_cents, description, created_at) VALUES (?, ?, ?, ?, ?)",
			expense.GroupID, expense.Payer, amountCents, expense.Description, expense.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense: %w", err)
		}

		expenseID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read expense id: %w", err)
		}

		for i := range splits {
			split := &splits[i]
			split.ExpenseID = expenseID
			_, err = tx.ExecContext(ctx,
				"INSERT INTO splits (expense_id, member_id, amount_cents) VALUES (?, ?, ?)",
				split.ExpenseID, split.MemberID, splitCents[i],
			)
			if err != nil {
				return fmt.Errorf("failed to insert split: %w", err)
			}
		}

		expense.ID = expenseID
		return nil
	})
}

// ExpensesOf returns the expenses of a group in id order.
func (s *SQLiteStore) ExpensesOf(ctx context.Context, groupID int64) ([]models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, payer, amount_cents, description, created_at
		 FROM expenses WHERE group_id = ? ORDER BY id ASC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var (
			e     models.Expense
			cents int64
		)
		if err := rows.Scan(&e.ID, &e.GroupID, &e.Payer, &cents, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		e.Amount = storage.FromCents(cents)
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	return expenses, nil
}

// SplitsOf returns the splits of an expense ordered by member id.
func (s *SQLiteStore) SplitsOf(ctx context.Context, expenseID int64) ([]models.Split, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT expense_id, member_id, amount_cents FROM splits WHERE expense_id = ? ORDER BY member_id ASC",
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	var splits []models.Split
	for rows.Next() {
		var (
			sp    models.Split
			cents int64
		)
		if err := rows.Scan(&sp.ExpenseID, &sp.MemberID, &cents); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		sp.Amount = storage.FromCents(cents)
		splits = append(splits, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}

	return splits, nil
}
