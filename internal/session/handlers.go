package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmynk/expensedash/internal/auth"
	"github.com/mmynk/expensedash/internal/middleware"
	"github.com/mmynk/expensedash/internal/protocol"
	"github.com/mmynk/expensedash/internal/service"
	"github.com/mmynk/expensedash/internal/storage"
)

// dispatch routes a parsed command to its handler.
func (s *Session) dispatch(ctx context.Context, cmd protocol.Command) error {
	switch c := cmd.(type) {
	case protocol.Register:
		return s.register(ctx, c)
	case protocol.Login:
		return s.login(ctx, c)
	case protocol.RequestSnapshot:
		return s.requestSnapshot(ctx)
	case protocol.AddGroup:
		return s.addGroup(ctx, c)
	case protocol.JoinGroup:
		return s.joinGroup(ctx, c)
	case protocol.SearchGroup:
		return s.searchGroup(ctx, c)
	case protocol.AddExpense:
		return s.addExpense(ctx, c)
	case protocol.Settle:
		return s.settle(ctx, c)
	case protocol.RequestJoin:
		return s.requestJoin(ctx, c)
	case protocol.ApproveJoin:
		return s.resolveJoin(ctx, c.Name(), c.RequestID, true)
	case protocol.RejectJoin:
		return s.resolveJoin(ctx, c.Name(), c.RequestID, false)
	case protocol.Balances:
		return s.balances(ctx, c)
	default:
		return fmt.Errorf("no handler for %s", cmd.Name())
	}
}

func (s *Session) register(ctx context.Context, c protocol.Register) error {
	err := s.deps.Auth.Register(ctx, c.Username, c.Token)
	switch {
	case err == nil:
		return s.reply(protocol.RegisterOK)
	case errors.Is(err, storage.ErrDuplicateUser):
		return protocol.Conflict(protocol.RegisterDup, err)
	case errors.Is(err, auth.ErrEmptyUsername),
		errors.Is(err, auth.ErrInvalidUsername),
		errors.Is(err, auth.ErrLongUsername):
		return protocol.Invalid(c.Name(), err.Error())
	default:
		return protocol.Failure(c.Name(), err)
	}
}

// login authenticates and replies LOGIN_OK followed by the user's snapshot
// as one batch.
func (s *Session) login(ctx context.Context, c protocol.Login) error {
	ok, err := s.deps.Auth.Login(ctx, c.Username, c.Token)
	if err != nil {
		return protocol.Failure(c.Name(), err)
	}
	if !ok {
		return protocol.Conflict(protocol.LoginFail, nil)
	}

	s.setUsername(c.Username)

	lines, _ := s.deps.Snapshots.Build(ctx, c.Username)
	s.deps.Metrics.SnapshotLines.Observe(float64(len(lines)))
	return s.reply(append([]string{protocol.LoginOK}, lines...)...)
}

func (s *Session) requestSnapshot(ctx context.Context) error {
	lines, err := s.deps.Snapshots.Build(ctx, middleware.GetUsername(ctx))
	if err != nil {
		return protocol.Failure(protocol.CmdRequestSnapshot, err)
	}
	s.deps.Metrics.SnapshotLines.Observe(float64(len(lines)))
	return s.reply(lines...)
}

func (s *Session) addGroup(ctx context.Context, c protocol.AddGroup) error {
	group, creator, err := s.deps.Groups.CreateGroup(ctx, c.GroupName, c.Category, middleware.GetUsername(ctx))
	if errors.Is(err, storage.ErrDuplicateName) {
		return protocol.Conflict(protocol.ErrorLine(c.Name(), protocol.ReasonDuplicate), err)
	}
	if err != nil {
		return protocol.Failure(c.Name(), err)
	}

	if err := s.reply(protocol.AddGroupOKLine(group.ID)); err != nil {
		return err
	}
	s.deps.Registry.Broadcast(protocol.GroupLine(*group), protocol.MemberLine(creator))
	return nil
}

func (s *Session) joinGroup(ctx context.Context, c protocol.JoinGroup) error {
	member, added, err := s.deps.Groups.JoinGroup(ctx, c.GroupID, c.Username)
	switch {
	case errors.Is(err, storage.ErrUnknownUser):
		return protocol.Conflict(protocol.ErrorLine(c.Name(), protocol.ReasonUserNotFound), err)
	case errors.Is(err, storage.ErrUnknownGroup):
		return protocol.Conflict(protocol.ErrorLine(c.Name(), protocol.ReasonGroupNotFound), err)
	case err != nil:
		return protocol.Failure(c.Name(), err)
	case !added:
		return protocol.Conflict(protocol.JoinDup, nil)
	}

	if err := s.reply(protocol.JoinOKLine(member.ID)); err != nil {
		return err
	}
	s.deps.Registry.Broadcast(protocol.MemberLine(member))
	return nil
}

func (s *Session) searchGroup(ctx context.Context, c protocol.SearchGroup) error {
	groups, err := s.deps.Groups.SearchGroups(ctx, c.Query)
	if err != nil {
		return protocol.Failure(c.Name(), err)
	}

	lines := make([]string, 0, len(groups)+2)
	lines = append(lines, protocol.SearchBegin)
	for _, g := range groups {
		lines = append(lines, protocol.GroupLine(g))
	}
	return s.reply(append(lines, protocol.SearchEnd)...)
}

// addExpense has no direct acknowledgement: the caller receives the
// broadcast like every other session.
func (s *Session) addExpense(ctx context.Context, c protocol.AddExpense) error {
	expense, splits, err := s.deps.Expenses.AddExpense(ctx, c.GroupID, c.Payer, c.Amount, c.Description)
	switch {
	case errors.Is(err, service.ErrInvalidAmount), errors.Is(err, storage.ErrAmountOutOfRange):
		return protocol.Invalid(c.Name(), protocol.ReasonInvalidAmount)
	case errors.Is(err, storage.ErrUnknownGroup):
		return protocol.Conflict(protocol.ErrorLine(c.Name(), protocol.ReasonGroupNotFound), err)
	case err != nil:
		return protocol.Failure(c.Name(), err)
	}

	lines := make([]string, 0, len(splits)+1)
	lines = append(lines, protocol.ExpenseLine(*expense))
	for _, sp := range splits {
		lines = append(lines, protocol.SplitLine(sp))
	}
	s.deps.Registry.Broadcast(lines...)
	return nil
}

func (s *Session) settle(ctx context.Context, c protocol.Settle) error {
	_, err := s.deps.Expenses.Settle(ctx, c.GroupID)
	if errors.Is(err, storage.ErrUnknownGroup) {
		return protocol.Conflict(protocol.ErrorLine(c.Name(), protocol.ReasonGroupNotFound), err)
	}
	if err != nil {
		return protocol.Failure(c.Name(), err)
	}

	s.deps.Registry.Broadcast(protocol.ResetLine(c.GroupID))
	return nil
}

func (s *Session) requestJoin(ctx context.Context, c protocol.RequestJoin) error {
	req, group, err := s.deps.Groups.RequestJoin(ctx, middleware.GetUsername(ctx), c.GroupID)
	switch {
	case errors.Is(err, service.ErrAlreadyMember):
		return protocol.Conflict(protocol.JoinDup, err)
	case errors.Is(err, storage.ErrUnknownGroup):
		return protocol.Conflict(protocol.ErrorLine(c.Name(), protocol.ReasonGroupNotFound), err)
	case errors.Is(err, storage.ErrUnknownUser):
		return protocol.Conflict(protocol.ErrorLine(c.Name(), protocol.ReasonUserNotFound), err)
	case err != nil:
		return protocol.Failure(c.Name(), err)
	}

	if err := s.reply(protocol.JoinQueuedLine(group.ID)); err != nil {
		return err
	}
	s.deps.Registry.SendTo(group.Creator, protocol.JoinReqLine(*req, *group))
	return nil
}

func (s *Session) resolveJoin(ctx context.Context, name string, requestID int64, approve bool) error {
	out, err := s.deps.Groups.ResolveJoin(ctx, middleware.GetUsername(ctx), requestID, approve)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return protocol.Conflict(protocol.ErrorLine(name, protocol.ReasonNotFound), err)
	case errors.Is(err, service.ErrNotCreator):
		return protocol.Conflict(protocol.ErrorLine(name, protocol.ReasonNotCreator), err)
	case errors.Is(err, storage.ErrUnknownUser):
		return protocol.Conflict(protocol.ErrorLine(name, protocol.ReasonUserNotFound), err)
	case err != nil:
		return protocol.Failure(name, err)
	}

	if !approve {
		if err := s.reply(protocol.RejectOKLine(requestID)); err != nil {
			return err
		}
		s.deps.Registry.SendTo(out.Request.Username, protocol.JoinRejectedLine(*out.Group))
		return nil
	}

	if err := s.reply(protocol.ApproveOKLine(requestID)); err != nil {
		return err
	}
	if out.Added {
		s.deps.Registry.Broadcast(protocol.MemberLine(out.Member))
	}
	s.deps.Registry.SendTo(out.Request.Username, protocol.JoinApprovedLine(*out.Group))
	return nil
}

func (s *Session) balances(ctx context.Context, c protocol.Balances) error {
	balances, debts, err := s.deps.Expenses.Balances(ctx, c.GroupID)
	if errors.Is(err, storage.ErrUnknownGroup) {
		return protocol.Conflict(protocol.ErrorLine(c.Name(), protocol.ReasonGroupNotFound), err)
	}
	if err != nil {
		return protocol.Failure(c.Name(), err)
	}
	return s.reply(protocol.BalanceLines(c.GroupID, balances, debts)...)
}
