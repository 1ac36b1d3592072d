// Package storage provides abstractions for persistent ledger storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/expensedash/internal/models"
)

var (
	// ErrDuplicateUser indicates the username is already registered.
	ErrDuplicateUser = errors.New("username already registered")

	// ErrDuplicateName indicates a group with the same name already exists.
	ErrDuplicateName = errors.New("group name already exists")

	// ErrUnknownUser indicates no user is registered under the username.
	ErrUnknownUser = errors.New("user not found")

	// ErrUnknownGroup indicates no group exists with the given id.
	ErrUnknownGroup = errors.New("group not found")

	// ErrNotFound indicates a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrAmountOutOfRange indicates an amount whose cents do not fit in int64.
	ErrAmountOutOfRange = errors.New("amount out of range")
)

// JoinResolution is the outcome of resolving a join request.
type JoinResolution struct {
	Request *models.JoinRequest

	// MemberID and Added describe the membership on approval.
	// Added is false when the user was already a member.
	MemberID int64
	Added    bool
}

// Store defines the interface for ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the service layer.
//
// Every method opens and releases its own connection or transaction scope.
type Store interface {
	// RegisterUser creates a user. Uniqueness is enforced by the database
	// constraint and reported as ErrDuplicateUser.
	RegisterUser(ctx context.Context, username, token string) error

	// ValidateUser reports whether username and token match a registered user.
	// An unknown username and a wrong token produce the same answer.
	ValidateUser(ctx context.Context, username, token string) (bool, error)

	// UserExists reports whether username is registered.
	UserExists(ctx context.Context, username string) (bool, error)

	// GroupExists reports whether a group named name exists.
	GroupExists(ctx context.Context, name string) (bool, error)

	// AddGroup persists a new group and, when group.Creator is set, adds the
	// creator as its first member in the same transaction. group.ID and
	// group.CreatedAt are populated. The returned id is the creator's member
	// id, or 0 when there is no creator.
	AddGroup(ctx context.Context, group *models.Group) (int64, error)

	// GetGroup retrieves a group by id, or ErrUnknownGroup.
	GetGroup(ctx context.Context, groupID int64) (*models.Group, error)

	// SearchGroups returns groups whose name contains query, ignoring case.
	// A blank query returns every group. Results are ordered by name.
	SearchGroups(ctx context.Context, query string) ([]models.Group, error)

	// AddMemberIfAbsent adds username to the group. When the membership
	// already exists it returns the existing member id and added=false.
	AddMemberIfAbsent(ctx context.Context, username string, groupID int64) (memberID int64, added bool, err error)

	// MembersOf returns the members of a group in insertion order.
	MembersOf(ctx context.Context, groupID int64) ([]models.Member, error)

	// GroupIDsOf returns, in ascending order, the ids of groups username belongs to.
	GroupIDsOf(ctx context.Context, username string) ([]int64, error)

	// AddExpense persists an expense together with its splits in one
	// transaction. expense.ID, expense.CreatedAt and each split's ExpenseID
	// are populated.
	AddExpense(ctx context.Context, expense *models.Expense, splits []models.Split) error

	// ExpensesOf returns the expenses of a group in id order.
	ExpensesOf(ctx context.Context, groupID int64) ([]models.Expense, error)

	// SplitsOf returns the splits of an expense ordered by member id.
	SplitsOf(ctx context.Context, expenseID int64) ([]models.Split, error)

	// SettleGroup atomically deletes every split and expense of a group and
	// returns the number of expenses removed.
	SettleGroup(ctx context.Context, groupID int64) (int64, error)

	// CreateJoinRequest records a pending join request. If a pending request
	// for the same user and group exists it is returned instead.
	CreateJoinRequest(ctx context.Context, username string, groupID int64) (*models.JoinRequest, error)

	// GetJoinRequest retrieves a join request, or ErrNotFound.
	GetJoinRequest(ctx context.Context, requestID int64) (*models.JoinRequest, error)

	// ResolveJoinRequest marks a pending request approved or rejected. On
	// approval the member is added in the same transaction. A request that is
	// missing or no longer pending is ErrNotFound.
	ResolveJoinRequest(ctx context.Context, requestID int64, approve bool) (*JoinResolution, error)

	// Close releases any resources held by the store.
	Close() error
}
