package models

import "github.com/shopspring/decimal"

// Expense represents a payment made by Payer on behalf of a group.
type Expense struct {
	// ID is assigned by the store.
	ID int64

	// GroupID is the group this expense belongs to.
	GroupID int64

	// Payer is the username who paid. The payer does not have to be a member.
	Payer string

	// Amount is strictly positive with at most two fractional digits.
	Amount decimal.Decimal

	// Description is the free-form label (e.g., "Taxi", "Groceries").
	Description string

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}

// Split is one member's share of an expense.
// For a given ExpenseID the Amounts of all splits sum exactly to the
// expense Amount.
type Split struct {
	ExpenseID int64
	MemberID  int64
	Amount    decimal.Decimal
}
