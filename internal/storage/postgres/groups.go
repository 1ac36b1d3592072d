package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmynk/expensedash/internal/models"
	"github.com/mmynk/expensedash/internal/storage"
)

// GroupExists reports whether a group with the given name exists.
func (s *Store) GroupExists(ctx context.Context, name string) (bool, error) {
	ok, err := exists(ctx, s.pool, "SELECT EXISTS (SELECT 1 FROM expense_groups WHERE name = $1)", name)
	if err != nil {
		return false, fmt.Errorf("check group existence: %w", err)
	}
	return ok, nil
}

// AddGroup inserts a group and its creator membership atomically.
func (s *Store) AddGroup(ctx context.Context, group *models.Group) (int64, error) {
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	var creatorMemberID int64
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var groupID int64
		err := tx.QueryRow(ctx,
			`INSERT INTO expense_groups (name, category, creator, created_at)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			group.Name, group.Category, group.Creator, group.CreatedAt,
		).Scan(&groupID)
		if isUniqueViolation(err) {
			return storage.ErrDuplicateName
		}
		if err != nil {
			return fmt.Errorf("insert group: %w", err)
		}

		if group.Creator != "" {
			creatorMemberID, _, err = addMemberTx(ctx, tx, group.Creator, groupID)
			if err != nil {
				return err
			}
		}

		group.ID = groupID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return creatorMemberID, nil
}

// GetGroup fetches a group by id.
func (s *Store) GetGroup(ctx context.Context, groupID int64) (*models.Group, error) {
	g := &models.Group{}
	err := s.pool.QueryRow(ctx,
		"SELECT id, name, category, creator, created_at FROM expense_groups WHERE id = $1",
		groupID,
	).Scan(&g.ID, &g.Name, &g.Category, &g.Creator, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrUnknownGroup
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

// SearchGroups returns groups whose name contains query, ignoring case.
func (s *Store) SearchGroups(ctx context.Context, query string) ([]models.Group, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(query))) + "%"

	rows, err := s.pool.Query(ctx,
		`SELECT id, name, category, creator, created_at FROM expense_groups
		 WHERE LOWER(name) LIKE $1 ESCAPE '\'
		 ORDER BY name COLLATE "C" ASC, id ASC`,
		pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("search groups: %w", err)
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Category, &g.Creator, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return groups, nil
}

// AddMemberIfAbsent adds username to a group unless already a member.
func (s *Store) AddMemberIfAbsent(ctx context.Context, username string, groupID int64) (int64, bool, error) {
	var (
		memberID int64
		added    bool
	)
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		memberID, added, err = addMemberTx(ctx, tx, username, groupID)
		return err
	})
	if err != nil {
		return 0, false, err
	}
	return memberID, added, nil
}

func addMemberTx(ctx context.Context, tx pgx.Tx, username string, groupID int64) (int64, bool, error) {
	if err := checkUserAndGroup(ctx, tx, username, groupID); err != nil {
		return 0, false, err
	}

	var memberID int64
	err := tx.QueryRow(ctx,
		`INSERT INTO members (name, group_id) VALUES ($1, $2)
		 ON CONFLICT (name, group_id) DO NOTHING RETURNING id`,
		username, groupID,
	).Scan(&memberID)
	if err == nil {
		return memberID, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("insert member: %w", err)
	}

	err = tx.QueryRow(ctx,
		"SELECT id FROM members WHERE name = $1 AND group_id = $2",
		username, groupID,
	).Scan(&memberID)
	if err != nil {
		return 0, false, fmt.Errorf("get existing member: %w", err)
	}
	return memberID, false, nil
}

// MembersOf returns the members of a group in insertion order.
func (s *Store) MembersOf(ctx context.Context, groupID int64) ([]models.Member, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, name, group_id FROM members WHERE group_id = $1 ORDER BY id ASC",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("get members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.GroupID); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// GroupIDsOf returns the ids of the groups username belongs to, ascending.
func (s *Store) GroupIDsOf(ctx context.Context, username string) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT DISTINCT group_id FROM members WHERE name = $1 ORDER BY group_id ASC",
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("get groups for user: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collect group ids: %w", err)
	}
	return ids, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
