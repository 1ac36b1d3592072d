package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/expensedash/internal/models"
	"github.com/mmynk/expensedash/internal/storage"
)

// newTestStore connects to EXPENSEDASH_TEST_DATABASE_URL and empties every table.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("EXPENSEDASH_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("EXPENSEDASH_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	store, err := New(ctx, url)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	_, err = store.pool.Exec(ctx,
		"TRUNCATE splits, expenses, join_requests, members, expense_groups, users RESTART IDENTITY CASCADE")
	if err != nil {
		t.Fatalf("Failed to reset tables: %v", err)
	}
	return store
}

func TestLedgerLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, u := range []string{"alice", "bob"} {
		if err := store.RegisterUser(ctx, u, "tok-"+u); err != nil {
			t.Fatalf("RegisterUser(%s) failed: %v", u, err)
		}
	}

	t.Run("duplicate user", func(t *testing.T) {
		err := store.RegisterUser(ctx, "alice", "x")
		if !errors.Is(err, storage.ErrDuplicateUser) {
			t.Errorf("expected ErrDuplicateUser, got %v", err)
		}
		ok, err := store.ValidateUser(ctx, "alice", "tok-alice")
		if err != nil || !ok {
			t.Errorf("ValidateUser = %v, %v", ok, err)
		}
	})

	g := &models.Group{Name: "Trip", Category: "Travel", Creator: "alice"}
	aliceID, err := store.AddGroup(ctx, g)
	if err != nil {
		t.Fatalf("AddGroup failed: %v", err)
	}

	t.Run("duplicate group", func(t *testing.T) {
		_, err := store.AddGroup(ctx, &models.Group{Name: "Trip", Creator: "bob"})
		if !errors.Is(err, storage.ErrDuplicateName) {
			t.Errorf("expected ErrDuplicateName, got %v", err)
		}
	})

	bobID, added, err := store.AddMemberIfAbsent(ctx, "bob", g.ID)
	if err != nil || !added {
		t.Fatalf("AddMemberIfAbsent = %d, %v, %v", bobID, added, err)
	}

	t.Run("member is idempotent", func(t *testing.T) {
		id, added, err := store.AddMemberIfAbsent(ctx, "bob", g.ID)
		if err != nil || added || id != bobID {
			t.Errorf("AddMemberIfAbsent = %d, %v, %v", id, added, err)
		}
	})

	t.Run("expense and settle", func(t *testing.T) {
		e := &models.Expense{GroupID: g.ID, Payer: "alice", Amount: decimal.RequireFromString("10.00"), Description: "Dinner"}
		splits := []models.Split{
			{MemberID: aliceID, Amount: decimal.RequireFromString("5.00")},
			{MemberID: bobID, Amount: decimal.RequireFromString("5.00")},
		}
		if err := store.AddExpense(ctx, e, splits); err != nil {
			t.Fatalf("AddExpense failed: %v", err)
		}

		got, err := store.SplitsOf(ctx, e.ID)
		if err != nil || len(got) != 2 {
			t.Fatalf("SplitsOf = %v, %v", got, err)
		}

		deleted, err := store.SettleGroup(ctx, g.ID)
		if err != nil || deleted != 1 {
			t.Errorf("SettleGroup = %d, %v", deleted, err)
		}
		expenses, _ := store.ExpensesOf(ctx, g.ID)
		if len(expenses) != 0 {
			t.Errorf("expected no expenses after settle, got %d", len(expenses))
		}
	})

	t.Run("search", func(t *testing.T) {
		groups, err := store.SearchGroups(ctx, "tri")
		if err != nil || len(groups) != 1 || groups[0].ID != g.ID {
			t.Errorf("SearchGroups = %+v, %v", groups, err)
		}
	})
}
