package calculator

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ExpenseForBalance represents an expense with the minimal information needed for balance calculations.
type ExpenseForBalance struct {
	Payer  string
	Amount decimal.Decimal
	Shares []NamedShare
}

// NamedShare is a share already resolved from member id to member name.
type NamedShare struct {
	Name   string
	Amount decimal.Decimal
}

// MemberBalance represents the balance information for one group member.
type MemberBalance struct {
	MemberName string
	NetBalance decimal.Decimal // Positive = owed money, Negative = owes money
	TotalPaid  decimal.Decimal
	TotalOwed  decimal.Decimal
}

// DebtEdge represents a debt from one person to another.
type DebtEdge struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount decimal.Decimal
}

// CalculateGroupBalances aggregates who paid what and who owes what across
// the expenses of one group. Balances are sorted by member name. The debt
// list is simplified with greedy matching of the largest debtor against the
// largest creditor, so it has at most len(balances)-1 edges.
func CalculateGroupBalances(expenses []ExpenseForBalance) ([]MemberBalance, []DebtEdge) {
	balances := make(map[string]*MemberBalance)
	get := func(name string) *MemberBalance {
		b, ok := balances[name]
		if !ok {
			b = &MemberBalance{MemberName: name}
			balances[name] = b
		}
		return b
	}

	for _, e := range expenses {
		// Skip expenses without payer (can't calculate balances)
		if e.Payer == "" {
			continue
		}
		payer := get(e.Payer)
		payer.TotalPaid = payer.TotalPaid.Add(e.Amount)

		for _, s := range e.Shares {
			m := get(s.Name)
			m.TotalOwed = m.TotalOwed.Add(s.Amount)
		}
	}

	memberBalances := make([]MemberBalance, 0, len(balances))
	for _, b := range balances {
		b.NetBalance = b.TotalPaid.Sub(b.TotalOwed)
		memberBalances = append(memberBalances, *b)
	}
	sort.Slice(memberBalances, func(i, j int) bool {
		return memberBalances[i].MemberName < memberBalances[j].MemberName
	})

	return memberBalances, simplifyDebts(memberBalances)
}

type position struct {
	name   string
	amount decimal.Decimal
}

func simplifyDebts(balances []MemberBalance) []DebtEdge {
	var creditors, debtors []position
	for _, b := range balances {
		switch b.NetBalance.Sign() {
		case 1:
			creditors = append(creditors, position{b.MemberName, b.NetBalance})
		case -1:
			debtors = append(debtors, position{b.MemberName, b.NetBalance.Neg()})
		}
	}
	byAmount := func(p []position) func(i, j int) bool {
		return func(i, j int) bool {
			if c := p[i].amount.Cmp(p[j].amount); c != 0 {
				return c > 0
			}
			return p[i].name < p[j].name
		}
	}
	sort.Slice(creditors, byAmount(creditors))
	sort.Slice(debtors, byAmount(debtors))

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := decimal.Min(debtors[i].amount, creditors[j].amount)
		if amount.IsPositive() {
			edges = append(edges, DebtEdge{From: debtors[i].name, To: creditors[j].name, Amount: amount})
		}

		debtors[i].amount = debtors[i].amount.Sub(amount)
		creditors[j].amount = creditors[j].amount.Sub(amount)

		if !debtors[i].amount.IsPositive() {
			i++
		}
		if !creditors[j].amount.IsPositive() {
			j++
		}
	}
	return edges
}
