package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mmynk/expensedash/internal/calculator"
	"github.com/mmynk/expensedash/internal/models"
	"github.com/mmynk/expensedash/internal/storage"
)

// ExpenseService records expenses, settles groups and computes balances.
type ExpenseService struct {
	store storage.Store
}

// NewExpenseService creates a new ExpenseService with the given storage backend.
func NewExpenseService(store storage.Store) *ExpenseService {
	return &ExpenseService{store: store}
}

// MaxAmount is the largest accepted expense amount.
var MaxAmount = decimal.New(1, 12)

// validateAmount accepts strictly positive amounts with at most two decimals,
// up to MaxAmount.
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || amount.GreaterThan(MaxAmount) {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(2)) {
		return ErrInvalidAmount
	}
	return nil
}

// AddExpense splits amount equally over the group's current members, in
// membership order, and persists the expense with its splits.
func (s *ExpenseService) AddExpense(ctx context.Context, groupID int64, payer string, amount decimal.Decimal, description string) (*models.Expense, []models.Split, error) {
	if err := validateAmount(amount); err != nil {
		return nil, nil, err
	}
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, nil, err
	}

	members, err := s.store.MembersOf(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}
	memberIDs := make([]int64, len(members))
	for i, m := range members {
		memberIDs[i] = m.ID
	}

	shares := calculator.EqualSplit(amount, memberIDs)
	splits := make([]models.Split, len(shares))
	for i, sh := range shares {
		splits[i] = models.Split{MemberID: sh.MemberID, Amount: sh.Amount}
	}

	expense := &models.Expense{
		GroupID:     groupID,
		Payer:       payer,
		Amount:      amount.Round(2),
		Description: description,
	}
	if err := s.store.AddExpense(ctx, expense, splits); err != nil {
		return nil, nil, err
	}

	slog.Info("Expense added",
		"expense_id", expense.ID,
		"group_id", groupID,
		"payer", payer,
		"amount", expense.Amount.StringFixed(2),
		"members", len(members),
	)
	return expense, splits, nil
}

// Settle deletes every expense of a group and returns how many were removed.
func (s *ExpenseService) Settle(ctx context.Context, groupID int64) (int64, error) {
	deleted, err := s.store.SettleGroup(ctx, groupID)
	if err != nil {
		return 0, err
	}
	slog.Info("Group settled", "group_id", groupID, "expenses_deleted", deleted)
	return deleted, nil
}

// Balances computes per-member totals and the simplified debts of a group.
func (s *ExpenseService) Balances(ctx context.Context, groupID int64) ([]calculator.MemberBalance, []calculator.DebtEdge, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, nil, err
	}

	members, err := s.store.MembersOf(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}
	names := make(map[int64]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}

	expenses, err := s.store.ExpensesOf(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}

	inputs := make([]calculator.ExpenseForBalance, 0, len(expenses))
	for _, e := range expenses {
		splits, err := s.store.SplitsOf(ctx, e.ID)
		if err != nil {
			return nil, nil, err
		}
		shares := make([]calculator.NamedShare, 0, len(splits))
		for _, sp := range splits {
			name, ok := names[sp.MemberID]
			if !ok {
				if sp.MemberID != calculator.PayerMemberID {
					return nil, nil, fmt.Errorf("split of expense %d references unknown member %d", e.ID, sp.MemberID)
				}
				name = e.Payer
			}
			shares = append(shares, calculator.NamedShare{Name: name, Amount: sp.Amount})
		}
		inputs = append(inputs, calculator.ExpenseForBalance{Payer: e.Payer, Amount: e.Amount, Shares: shares})
	}

	balances, debts := calculator.CalculateGroupBalances(inputs)
	return balances, debts, nil
}
