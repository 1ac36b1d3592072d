package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmynk/expensedash/internal/models"
	"github.com/mmynk/expensedash/internal/storage"
)

// AddExpense persists an expense and its splits in one transaction.
func (s *Store) AddExpense(ctx context.Context, expense *models.Expense, splits []models.Split) error {
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	amountCents, splitCents, err := storage.ExpenseCents(expense.Amount, splits)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(tx pgx.Tx) error {
		if err := checkGroup(ctx, tx, expense.GroupID); err != nil {
			return err
		}

		var expenseID int64
		err := tx.QueryRow(ctx,
			`INSERT INTO expenses (group_id, payer, amount_cents, description, created_at)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			expense.GroupID, expense.Payer, amountCents, expense.Description, expense.CreatedAt,
		).Scan(&expenseID)
		if err != nil {
			return fmt.Errorf("insert expense: %w", err)
		}

		batch := &pgx.Batch{}
		for i := range splits {
			splits[i].ExpenseID = expenseID
			batch.Queue(
				"INSERT INTO splits (expense_id, member_id, amount_cents) VALUES ($1, $2, $3)",
				expenseID, splits[i].MemberID, splitCents[i],
			)
		}
		if batch.Len() > 0 {
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("insert splits: %w", err)
			}
		}

		expense.ID = expenseID
		return nil
	})
}

// ExpensesOf returns the expenses of a group in id order.
func (s *Store) ExpensesOf(ctx context.Context, groupID int64) ([]models.Expense, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, group_id, payer, amount_cents, description, created_at
		 FROM expenses WHERE group_id = $1 ORDER BY id ASC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("get expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var (
			e     models.Expense
			cents int64
		)
		if err := rows.Scan(&e.ID, &e.GroupID, &e.Payer, &cents, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Amount = storage.FromCents(cents)
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

// SplitsOf returns the splits of an expense ordered by member id.
func (s *Store) SplitsOf(ctx context.Context, expenseID int64) ([]models.Split, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT expense_id, member_id, amount_cents FROM splits WHERE expense_id = $1 ORDER BY member_id ASC",
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("get splits: %w", err)
	}
	defer rows.Close()

	var splits []models.Split
	for rows.Next() {
		var (
			sp    models.Split
			cents int64
		)
		if err := rows.Scan(&sp.ExpenseID, &sp.MemberID, &cents); err != nil {
			return nil, fmt.Errorf("scan split: %w", err)
		}
		sp.Amount = storage.FromCents(cents)
		splits = append(splits, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate splits: %w", err)
	}
	return splits, nil
}

// SettleGroup deletes every split and expense of a group in one transaction.
func (s *Store) SettleGroup(ctx context.Context, groupID int64) (int64, error) {
	var deleted int64
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		deleted, err = settleTx(ctx, tx, groupID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func settleTx(ctx context.Context, tx pgx.Tx, groupID int64) (int64, error) {
	if err := checkGroup(ctx, tx, groupID); err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx,
		"DELETE FROM splits WHERE expense_id IN (SELECT id FROM expenses WHERE group_id = $1)",
		groupID,
	); err != nil {
		return 0, fmt.Errorf("delete splits: %w", err)
	}

	tag, err := tx.Exec(ctx, "DELETE FROM expenses WHERE group_id = $1", groupID)
	if err != nil {
		return 0, fmt.Errorf("delete expenses: %w", err)
	}
	return tag.RowsAffected(), nil
}
