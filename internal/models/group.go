package models

// Group represents a named set of members who share expenses.
type Group struct {
	// ID is assigned by the store.
	ID int64

	// Name is unique across all groups (e.g., "Roommates", "Trip to Europe").
	Name string

	// Category is a free-form label such as "Travel" or "Living".
	Category string

	// Creator is the username that created the group.
	// The creator is the only user allowed to resolve join requests.
	Creator string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// Member represents membership of a username in a group.
// At most one Member exists per (Name, GroupID) pair.
type Member struct {
	ID      int64
	Name    string
	GroupID int64
}

// JoinStatus is the lifecycle state of a JoinRequest.
type JoinStatus string

const (
	JoinPending  JoinStatus = "PENDING"
	JoinApproved JoinStatus = "APPROVED"
	JoinRejected JoinStatus = "REJECTED"
)

// JoinRequest is a user's request to become a member of a group.
// Only the group's creator may approve or reject it.
type JoinRequest struct {
	ID        int64
	Username  string
	GroupID   int64
	Status    JoinStatus
	CreatedAt int64
}
