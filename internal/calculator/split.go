package calculator

import (
	"github.com/shopspring/decimal"
)

// PayerMemberID is the member id used for the single share of an expense
// added to a group that has no members yet.
const PayerMemberID int64 = 0

// Share is one member's portion of an expense.
type Share struct {
	MemberID int64
	Amount   decimal.Decimal
}

// EqualSplit divides amount across memberIDs in the given order.
// Every share but the last is round(amount/N, 2); the last share absorbs the
// rounding remainder so the shares always sum to amount exactly.
// Amount validation is the caller's job.
func EqualSplit(amount decimal.Decimal, memberIDs []int64) []Share {
	if len(memberIDs) == 0 {
		return []Share{{MemberID: PayerMemberID, Amount: amount}}
	}

	n := decimal.NewFromInt(int64(len(memberIDs)))
	base := amount.Div(n).Round(2)

	shares := make([]Share, len(memberIDs))
	assigned := decimal.Zero
	last := len(memberIDs) - 1
	for i, id := range memberIDs[:last] {
		shares[i] = Share{MemberID: id, Amount: base}
		assigned = assigned.Add(base)
	}
	shares[last] = Share{MemberID: memberIDs[last], Amount: amount.Sub(assigned)}

	return shares
}
