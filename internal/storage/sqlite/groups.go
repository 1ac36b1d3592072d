package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmynk/expensedash/internal/models"
	"github.com/mmynk/expensedash/internal/storage"
)

// GroupExists reports whether a group with the given name exists.
func (s *SQLiteStore) GroupExists(ctx context.Context, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM groups WHERE name = ?", name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check group existence: %w", err)
	}
	return count > 0, nil
}

// AddGroup persists a new group and adds its creator as the first member.
func (s *SQLiteStore) AddGroup(ctx context.Context, group *models.Group) (int64, error) {
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	var creatorMemberID int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO groups (name, category, creator, created_at) VALUES (?, ?, ?, ?)",
			group.Name, group.Category, group.Creator, group.CreatedAt,
		)
		if isConstraintViolation(err) {
			return storage.ErrDuplicateName
		}
		if err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}

		groupID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read group id: %w", err)
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

// GetGroup retrieves a group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID int64) (*models.Group, error) {
	group := &models.Group{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, category, creator, created_at FROM groups WHERE id = ?",
		groupID,
	).Scan(&group.ID, &group.Name, &group.Category, &group.Creator, &group.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrUnknownGroup
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// SearchGroups returns groups whose name contains query, ignoring case.
func (s *SQLiteStore) SearchGroups(ctx context.Context, query string) ([]models.Group, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(query))) + "%"

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, category, creator, created_at FROM groups
		 WHERE LOWER(name) LIKE ? ESCAPE '\'
		 ORDER BY name ASC, id ASC`,
		pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search groups: %w", err)
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Category, &g.Creator, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	return groups, nil
}

// AddMemberIfAbsent adds username to a group unless already a member.
func (s *SQLiteStore) AddMemberIfAbsent(ctx context.Context, username string, groupID int64) (int64, bool, error) {
	var (
		memberID int64
		added    bool
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		memberID, added, err = addMemberTx(ctx, tx, username, groupID)
		return err
	})
	if err != nil {
		return 0, false, err
	}
	return memberID, added, nil
}

// addMemberTx inserts a membership inside an existing transaction.
func addMemberTx(ctx context.Context, tx *sql.Tx, username string, groupID int64) (int64, bool, error) {
	var exists int
	err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&exists)
	if err != nil {
		return 0, false, fmt.Errorf("failed to check user existence: %w", err)
	}
	if exists == 0 {
		return 0, false, storage.ErrUnknownUser
	}

	err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM groups WHERE id = ?", groupID).Scan(&exists)
	if err != nil {
		return 0, false, fmt.Errorf("failed to check group existence: %w", err)
	}
	if exists == 0 {
		return 0, false, storage.ErrUnknownGroup
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO members (name, group_id) VALUES (?, ?) ON CONFLICT (name, group_id) DO NOTHING",
		username, groupID,
	)
	if err != nil {
		return 0, false, fmt.Errorf("failed to insert member: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 1 {
		id, err := res.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("failed to read member id: %w", err)
		}
		return id, true, nil
	}

	var memberID int64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM members WHERE name = ? AND group_id = ?",
		username, groupID,
	).Scan(&memberID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to get existing member: %w", err)
	}
	return memberID, false, nil
}

// MembersOf returns the members of a group in insertion order.
func (s *SQLiteStore) MembersOf(ctx context.Context, groupID int64) ([]models.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, group_id FROM members WHERE group_id = ? ORDER BY id ASC",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.GroupID); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

// GroupIDsOf returns the ids of the groups username is a member of.
func (s *SQLiteStore) GroupIDsOf(ctx context.Context, username string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT group_id FROM members WHERE name = ? ORDER BY group_id ASC",
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get groups for user: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group ids: %w", err)
	}

	return ids, nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
