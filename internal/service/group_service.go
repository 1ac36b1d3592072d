package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/mmynk/expensedash/internal/models"
	"github.com/mmynk/expensedash/internal/storage"
)

// GroupService manages groups, memberships and join requests.
type GroupService struct {
	store storage.Store
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{store: store}
}

// CreateGroup creates a group and makes creator its first member.
// The existence check only yields a friendlier error; the unique constraint
// decides races.
func (s *GroupService) CreateGroup(ctx context.Context, name, category, creator string) (*models.Group, models.Member, error) {
	exists, err := s.store.GroupExists(ctx, name)
	if err != nil {
		return nil, models.Member{}, err
	}
	if exists {
		return nil, models.Member{}, storage.ErrDuplicateName
	}

	group := &models.Group{
		Name:     name,
		Category: category,
		Creator:  creator,
	}
	memberID, err := s.store.AddGroup(ctx, group)
	if err != nil {
		return nil, models.Member{}, err
	}

	slog.Info("Group created", "group_id", group.ID, "name", group.Name, "creator", creator)
	return group, models.Member{ID: memberID, Name: creator, GroupID: group.ID}, nil
}

// JoinGroup adds username to a group. added is false when the user was
// already a member.
func (s *GroupService) JoinGroup(ctx context.Context, groupID int64, username string) (models.Member, bool, error) {
	memberID, added, err := s.store.AddMemberIfAbsent(ctx, username, groupID)
	if err != nil {
		return models.Member{}, false, err
	}
	if added {
		slog.Info("Member added", "group_id", groupID, "username", username, "member_id", memberID)
	}
	return models.Member{ID: memberID, Name: username, GroupID: groupID}, added, nil
}

// SearchGroups returns groups whose name contains query, case-insensitively.
func (s *GroupService) SearchGroups(ctx context.Context, query string) ([]models.Group, error) {
	return s.store.SearchGroups(ctx, query)
}

// RequestJoin records a pending join request from username.
func (s *GroupService) RequestJoin(ctx context.Context, username string, groupID int64) (*models.JoinRequest, *models.Group, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}

	ids, err := s.store.GroupIDsOf(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	if slices.Contains(ids, groupID) {
		return nil, group, ErrAlreadyMember
	}

	req, err := s.store.CreateJoinRequest(ctx, username, groupID)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("Join requested", "request_id", req.ID, "group_id", groupID, "username", username)
	return req, group, nil
}

// JoinOutcome is the result of approving or rejecting a join request.
type JoinOutcome struct {
	Request *models.JoinRequest
	Group   *models.Group
	Member  models.Member
	// Added is true when approval created a new membership.
	Added bool
}

// ResolveJoin approves or rejects a pending request. Only the group's
// creator may do so.
func (s *GroupService) ResolveJoin(ctx context.Context, approver string, requestID int64, approve bool) (*JoinOutcome, error) {
	req, err := s.store.GetJoinRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	group, err := s.store.GetGroup(ctx, req.GroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group of join request: %w", err)
	}
	if group.Creator != approver {
		return nil, ErrNotCreator
	}

	res, err := s.store.ResolveJoinRequest(ctx, requestID, approve)
	if err != nil {
		return nil, err
	}

	slog.Info("Join request resolved",
		"request_id", requestID,
		"group_id", group.ID,
		"username", res.Request.Username,
		"status", res.Request.Status,
	)

	return &JoinOutcome{
		Request: res.Request,
		Group:   group,
		Member:  models.Member{ID: res.MemberID, Name: res.Request.Username, GroupID: group.ID},
		Added:   res.Added,
	}, nil
}
