package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/expensedash/internal/auth"
	"github.com/mmynk/expensedash/internal/storage"
	"github.com/mmynk/expensedash/internal/storage/sqlite"
)

type testServices struct {
	store    *sqlite.SQLiteStore
	auth     *AuthService
	groups   *GroupService
	expenses *ExpenseService
}

// setupServices creates services over a fresh temp database with the given
// users registered.
func setupServices(t *testing.T, users ...string) *testServices {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := &testServices{
		store:    store,
		auth:     NewAuthService(auth.NewTokenAuthenticator(store), logger),
		groups:   NewGroupService(store),
		expenses: NewExpenseService(store),
	}

	for _, u := range users {
		if err := s.auth.Register(context.Background(), u, "tok-"+u); err != nil {
			t.Fatalf("failed to register %s: %v", u, err)
		}
	}
	return s
}

func TestAuthService(t *testing.T) {
	s := setupServices(t, "alice")
	ctx := context.Background()

	if err := s.auth.Register(ctx, "alice", "x"); !errors.Is(err, storage.ErrDuplicateUser) {
		t.Errorf("expected ErrDuplicateUser, got %v", err)
	}

	ok, err := s.auth.Login(ctx, "alice", "tok-alice")
	if err != nil || !ok {
		t.Errorf("Login with correct token = %v, %v", ok, err)
	}
	ok, err = s.auth.Login(ctx, "alice", "wrong")
	if err != nil || ok {
		t.Errorf("Login with wrong token = %v, %v", ok, err)
	}
}

func TestCreateGroup(t *testing.T) {
	s := setupServices(t, "alice", "bob")
	ctx := context.Background()

	group, creator, err := s.groups.CreateGroup(ctx, "Trip", "Travel", "alice")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if group.ID == 0 || creator.ID == 0 {
		t.Fatalf("expected generated ids, got group %d member %d", group.ID, creator.ID)
	}
	if creator.Name != "alice" || creator.GroupID != group.ID {
		t.Errorf("unexpected creator member: %+v", creator)
	}

	_, _, err = s.groups.CreateGroup(ctx, "Trip", "Other", "bob")
	if !errors.Is(err, storage.ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}
}

func TestJoinGroup(t *testing.T) {
	s := setupServices(t, "alice", "bob")
	ctx := context.Background()
	group, _, _ := s.groups.CreateGroup(ctx, "Trip", "Travel", "alice")

	tests := []struct {
		name      string
		groupID   int64
		username  string
		wantAdded bool
		wantErr   error
	}{
		{"new member", group.ID, "bob", true, nil},
		{"duplicate", group.ID, "bob", false, nil},
		{"creator already member", group.ID, "alice", false, nil},
		{"unknown user", group.ID, "carol", false, storage.ErrUnknownUser},
		{"unknown group", 999, "bob", false, storage.ErrUnknownGroup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, added, err := s.groups.JoinGroup(ctx, tt.groupID, tt.username)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("JoinGroup error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if added != tt.wantAdded {
				t.Errorf("added = %v, want %v", added, tt.wantAdded)
			}
			if m.ID == 0 || m.Name != tt.username {
				t.Errorf("unexpected member %+v", m)
			}
		})
	}
}

func TestAddExpense(t *testing.T) {
	s := setupServices(t, "alice", "bob", "carol")
	ctx := context.Background()
	group, _, _ := s.groups.CreateGroup(ctx, "Trip", "Travel", "alice")

	t.Run("single member", func(t *testing.T) {
		e, splits, err := s.expenses.AddExpense(ctx, group.ID, "alice", decimal.RequireFromString("30.00"), "Taxi")
		if err != nil {
			t.Fatalf("AddExpense failed: %v", err)
		}
		if len(splits) != 1 || splits[0].Amount.StringFixed(2) != "30.00" || splits[0].ExpenseID != e.ID {
			t.Errorf("unexpected splits: %+v", splits)
		}
	})

	s.groups.JoinGroup(ctx, group.ID, "bob")
	s.groups.JoinGroup(ctx, group.ID, "carol")

	t.Run("three members with remainder", func(t *testing.T) {
		_, splits, err := s.expenses.AddExpense(ctx, group.ID, "alice", decimal.RequireFromString("10"), "Lunch")
		if err != nil {
			t.Fatalf("AddExpense failed: %v", err)
		}
		want := []string{"3.33", "3.33", "3.34"}
		members, _ := s.store.MembersOf(ctx, group.ID)
		for i, sp := range splits {
			if sp.Amount.StringFixed(2) != want[i] {
				t.Errorf("split %d = %s, want %s", i, sp.Amount.StringFixed(2), want[i])
			}
			if sp.MemberID != members[i].ID {
				t.Errorf("split %d member = %d, want %d", i, sp.MemberID, members[i].ID)
			}
		}
	})

	t.Run("invalid amounts", func(t *testing.T) {
		for _, a := range []string{"0", "-5.00", "1.001", "1000000000000.01", "184467440737095517.16"} {
			_, _, err := s.expenses.AddExpense(ctx, group.ID, "alice", decimal.RequireFromString(a), "x")
			if !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("amount %s: expected ErrInvalidAmount, got %v", a, err)
			}
		}
	})

	t.Run("maximum amount round-trips", func(t *testing.T) {
		e, _, err := s.expenses.AddExpense(ctx, group.ID, "alice", MaxAmount, "Max")
		if err != nil {
			t.Fatalf("AddExpense failed: %v", err)
		}
		expenses, err := s.store.ExpensesOf(ctx, group.ID)
		if err != nil {
			t.Fatalf("ExpensesOf failed: %v", err)
		}
		last := expenses[len(expenses)-1]
		if last.ID != e.ID || last.Amount.StringFixed(2) != "1000000000000.00" {
			t.Errorf("stored %s, want 1000000000000.00", last.Amount.StringFixed(2))
		}
	})

	t.Run("unknown group", func(t *testing.T) {
		_, _, err := s.expenses.AddExpense(ctx, 999, "alice", decimal.NewFromInt(1), "x")
		if !errors.Is(err, storage.ErrUnknownGroup) {
			t.Errorf("expected ErrUnknownGroup, got %v", err)
		}
	})
}

func TestBalancesAndSettle(t *testing.T) {
	s := setupServices(t, "alice", "bob")
	ctx := context.Background()
	group, _, _ := s.groups.CreateGroup(ctx, "Trip", "Travel", "alice")
	s.groups.JoinGroup(ctx, group.ID, "bob")

	if _, _, err := s.expenses.AddExpense(ctx, group.ID, "alice", decimal.RequireFromString("10.00"), "Lunch"); err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	balances, debts, err := s.expenses.Balances(ctx, group.ID)
	if err != nil {
		t.Fatalf("Balances failed: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("expected 2 balances, got %d", len(balances))
	}
	if balances[0].MemberName != "alice" || balances[0].NetBalance.StringFixed(2) != "5.00" {
		t.Errorf("unexpected alice balance: %+v", balances[0])
	}
	if len(debts) != 1 || debts[0].From != "bob" || debts[0].To != "alice" || debts[0].Amount.StringFixed(2) != "5.00" {
		t.Errorf("unexpected debts: %+v", debts)
	}

	deleted, err := s.expenses.Settle(ctx, group.ID)
	if err != nil || deleted != 1 {
		t.Fatalf("Settle = %d, %v", deleted, err)
	}

	balances, debts, err = s.expenses.Balances(ctx, group.ID)
	if err != nil {
		t.Fatalf("Balances failed: %v", err)
	}
	if len(balances) != 0 || len(debts) != 0 {
		t.Errorf("expected empty balances after settle, got %+v %+v", balances, debts)
	}

	if _, _, err := s.expenses.Balances(ctx, 999); !errors.Is(err, storage.ErrUnknownGroup) {
		t.Errorf("expected ErrUnknownGroup, got %v", err)
	}
}

func TestJoinRequests(t *testing.T) {
	s := setupServices(t, "alice", "bob", "carol")
	ctx := context.Background()
	group, _, _ := s.groups.CreateGroup(ctx, "Trip", "Travel", "alice")

	t.Run("member cannot request", func(t *testing.T) {
		_, _, err := s.groups.RequestJoin(ctx, "alice", group.ID)
		if !errors.Is(err, ErrAlreadyMember) {
			t.Errorf("expected ErrAlreadyMember, got %v", err)
		}
	})

	t.Run("unknown group", func(t *testing.T) {
		_, _, err := s.groups.RequestJoin(ctx, "bob", 999)
		if !errors.Is(err, storage.ErrUnknownGroup) {
			t.Errorf("expected ErrUnknownGroup, got %v", err)
		}
	})

	req, g, err := s.groups.RequestJoin(ctx, "bob", group.ID)
	if err != nil {
		t.Fatalf("RequestJoin failed: %v", err)
	}
	if g.Creator != "alice" {
		t.Errorf("unexpected group %+v", g)
	}

	t.Run("only creator resolves", func(t *testing.T) {
		_, err := s.groups.ResolveJoin(ctx, "carol", req.ID, true)
		if !errors.Is(err, ErrNotCreator) {
			t.Errorf("expected ErrNotCreator, got %v", err)
		}
	})

	t.Run("approve", func(t *testing.T) {
		out, err := s.groups.ResolveJoin(ctx, "alice", req.ID, true)
		if err != nil {
			t.Fatalf("ResolveJoin failed: %v", err)
		}
		if !out.Added || out.Member.Name != "bob" || out.Member.ID == 0 {
			t.Errorf("unexpected outcome %+v", out)
		}
		_, err = s.groups.ResolveJoin(ctx, "alice", req.ID, true)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second resolve, got %v", err)
		}
	})

	t.Run("reject", func(t *testing.T) {
		req, _, err := s.groups.RequestJoin(ctx, "carol", group.ID)
		if err != nil {
			t.Fatalf("RequestJoin failed: %v", err)
		}
		out, err := s.groups.ResolveJoin(ctx, "alice", req.ID, false)
		if err != nil {
			t.Fatalf("ResolveJoin failed: %v", err)
		}
		if out.Added {
			t.Error("rejection must not add a member")
		}
	})

	t.Run("unknown request", func(t *testing.T) {
		_, err := s.groups.ResolveJoin(ctx, "alice", 999, true)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
