// Package snapshot builds the full state dump a client receives after LOGIN
// and on REQUEST_SNAPSHOT.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/mmynk/expensedash/internal/models"
	"github.com/mmynk/expensedash/internal/protocol"
)

// Reader is the subset of storage.Store a snapshot needs.
type Reader interface {
	GroupIDsOf(ctx context.Context, username string) ([]int64, error)
	GetGroup(ctx context.Context, groupID int64) (*models.Group, error)
	MembersOf(ctx context.Context, groupID int64) ([]models.Member, error)
	ExpensesOf(ctx context.Context, groupID int64) ([]models.Expense, error)
	SplitsOf(ctx context.Context, expenseID int64) ([]models.Split, error)
}

// Builder assembles snapshots from storage.
type Builder struct {
	store Reader
}

// NewBuilder creates a Builder reading from store.
func NewBuilder(store Reader) *Builder {
	return &Builder{store: store}
}

// Build returns the snapshot of every group username belongs to, framed by
// SNAPSHOT_BEGIN and SNAPSHOT_END. Lines come in three phases: all GROUP
// lines, then all MEMBER lines, then each EXPENSE followed by its SPLITs.
//
// Nothing is returned until every read has succeeded. On failure the result
// is the single SNAPSHOT_ERR line together with the error.
func (b *Builder) Build(ctx context.Context, username string) ([]string, error) {
	lines, err := b.build(ctx, username)
	if err != nil {
		slog.Error("Snapshot failed", "username", username, "error", err)
		return []string{protocol.ErrorLine(protocol.CmdRequestSnapshot, err.Error())}, err
	}
	return lines, nil
}

func (b *Builder) build(ctx context.Context, username string) ([]string, error) {
	ids, err := b.store.GroupIDsOf(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	lines := []string{protocol.SnapshotBegin}

	for _, id := range ids {
		g, err := b.store.GetGroup(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load group %d: %w", id, err)
		}
		lines = append(lines, protocol.GroupLine(*g))
	}

	for _, id := range ids {
		members, err := b.store.MembersOf(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load members of group %d: %w", id, err)
		}
		for _, m := range members {
			lines = append(lines, protocol.MemberLine(m))
		}
	}

	for _, id := range ids {
		expenses, err := b.store.ExpensesOf(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load expenses of group %d: %w", id, err)
		}
		for _, e := range expenses {
			lines = append(lines, protocol.ExpenseLine(e))

			splits, err := b.store.SplitsOf(ctx, e.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load splits of expense %d: %w", e.ID, err)
			}
			for _, s := range splits {
				lines = append(lines, protocol.SplitLine(s))
			}
		}
	}

	return append(lines, protocol.SnapshotEnd), nil
}
