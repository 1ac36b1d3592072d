package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCalculateGroupBalances(t *testing.T) {
	tests := []struct {
		name      string
		expenses  []ExpenseForBalance
		wantNet   map[string]string
		wantDebts []DebtEdge
	}{
		{
			name:     "no expenses",
			expenses: nil,
			wantNet:  map[string]string{},
		},
		{
			name: "payer covers an even split",
			expenses: []ExpenseForBalance{
				{Payer: "alice", Amount: d("10.00"), Shares: []NamedShare{
					{Name: "alice", Amount: d("5.00")},
					{Name: "bob", Amount: d("5.00")},
				}},
			},
			wantNet: map[string]string{"alice": "5.00", "bob": "-5.00"},
			wantDebts: []DebtEdge{
				{From: "bob", To: "alice", Amount: d("5.00")},
			},
		},
		{
			name: "offsetting expenses net out",
			expenses: []ExpenseForBalance{
				{Payer: "alice", Amount: d("10.00"), Shares: []NamedShare{
					{Name: "alice", Amount: d("5.00")},
					{Name: "bob", Amount: d("5.00")},
				}},
				{Payer: "bob", Amount: d("10.00"), Shares: []NamedShare{
					{Name: "alice", Amount: d("5.00")},
					{Name: "bob", Amount: d("5.00")},
				}},
			},
			wantNet: map[string]string{"alice": "0.00", "bob": "0.00"},
		},
		{
			name: "three way split with remainder",
			expenses: []ExpenseForBalance{
				{Payer: "carol", Amount: d("10.00"), Shares: []NamedShare{
					{Name: "alice", Amount: d("3.33")},
					{Name: "bob", Amount: d("3.33")},
					{Name: "carol", Amount: d("3.34")},
				}},
			},
			wantNet: map[string]string{"alice": "-3.33", "bob": "-3.33", "carol": "6.66"},
			wantDebts: []DebtEdge{
				{From: "alice", To: "carol", Amount: d("3.33")},
				{From: "bob", To: "carol", Amount: d("3.33")},
			},
		},
		{
			name: "expense without payer is skipped",
			expenses: []ExpenseForBalance{
				{Payer: "", Amount: d("10.00"), Shares: []NamedShare{{Name: "alice", Amount: d("10.00")}}},
			},
			wantNet: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balances, debts := CalculateGroupBalances(tt.expenses)

			if len(balances) != len(tt.wantNet) {
				t.Fatalf("got %d balances, want %d", len(balances), len(tt.wantNet))
			}
			for i, b := range balances {
				if i > 0 && balances[i-1].MemberName >= b.MemberName {
					t.Errorf("balances not sorted by name: %s before %s", balances[i-1].MemberName, b.MemberName)
				}
				want, ok := tt.wantNet[b.MemberName]
				if !ok {
					t.Errorf("unexpected member %s", b.MemberName)
					continue
				}
				if got := b.NetBalance.StringFixed(2); got != want {
					t.Errorf("%s net = %s, want %s", b.MemberName, got, want)
				}
				if !b.NetBalance.Equal(b.TotalPaid.Sub(b.TotalOwed)) {
					t.Errorf("%s net != paid - owed", b.MemberName)
				}
			}

			if len(debts) != len(tt.wantDebts) {
				t.Fatalf("got debts %+v, want %+v", debts, tt.wantDebts)
			}
			for i, e := range debts {
				w := tt.wantDebts[i]
				if e.From != w.From || e.To != w.To || !e.Amount.Equal(w.Amount) {
					t.Errorf("debt %d = %s->%s %s, want %s->%s %s", i, e.From, e.To, e.Amount, w.From, w.To, w.Amount)
				}
			}
		})
	}
}

func TestSimplifiedDebtsSettleEveryone(t *testing.T) {
	expenses := []ExpenseForBalance{
		{Payer: "alice", Amount: d("90.00"), Shares: []NamedShare{
			{Name: "alice", Amount: d("30.00")}, {Name: "bob", Amount: d("30.00")}, {Name: "carol", Amount: d("30.00")},
		}},
		{Payer: "bob", Amount: d("20.00"), Shares: []NamedShare{
			{Name: "bob", Amount: d("6.67")}, {Name: "carol", Amount: d("6.67")}, {Name: "dave", Amount: d("6.66")},
		}},
	}

	balances, debts := CalculateGroupBalances(expenses)

	net := make(map[string]decimal.Decimal)
	for _, b := range balances {
		net[b.MemberName] = b.NetBalance
	}
	for _, e := range debts {
		if !e.Amount.IsPositive() {
			t.Errorf("non-positive debt edge %+v", e)
		}
		net[e.From] = net[e.From].Add(e.Amount)
		net[e.To] = net[e.To].Sub(e.Amount)
	}
	for name, n := range net {
		if !n.IsZero() {
			t.Errorf("%s still has net %s after applying debts", name, n)
		}
	}
	if len(debts) > len(balances)-1 {
		t.Errorf("got %d debt edges for %d members", len(debts), len(balances))
	}
}
