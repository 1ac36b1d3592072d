// Package models defines the persisted entities of the ExpenseDash ledger.
//
// # Entities
//
//   - User: a registered account, identified by username
//   - Group: a named expense group with a category and a creator
//   - Member: membership of a username in a group
//   - Expense: a payment made by one username inside a group
//   - Split: one member's share of an expense
//   - JoinRequest: a pending request to join a group, resolved by its creator
//
// # Design Principles
//
//  1. **Store-generated ids**: every int64 ID is assigned by the storage layer.
//     Nothing may assume ids are sequential or gap-free.
//  2. **Exact money**: amounts are decimal.Decimal with two fractional digits.
//     Backends persist them as integer cents.
//  3. **No pointers between entities**: relationships are expressed by ids only.
//  4. **Immutable structure**: groups and members are never renamed or removed.
//     Expenses and splits are only removed together by settlement.
package models
