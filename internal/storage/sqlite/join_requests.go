package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/expensedash/internal/models"
	"github.com/mmynk/expensedash/internal/storage"
)

// CreateJoinRequest records a pending request, reusing an open one.
func (s *SQLiteStore) CreateJoinRequest(ctx context.Context, username string, groupID int64) (*models.JoinRequest, error) {
	req := &models.JoinRequest{
		Username: username,
		GroupID:  groupID,
		Status:   models.JoinPending,
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check user existence: %w", err)
		}
		if exists == 0 {
			return storage.ErrUnknownUser
		}
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM groups WHERE id = ?", groupID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check group existence: %w", err)
		}
		if exists == 0 {
			return storage.ErrUnknownGroup
		}

		err := tx.QueryRowContext(ctx,
			`SELECT id, created_at FROM join_requests
			 WHERE username = ? AND group_id = ? AND status = 'PENDING'
			 ORDER BY id DESC LIMIT 1`,
			username, groupID,
		).Scan(&req.ID, &req.CreatedAt)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check pending request: %w", err)
		}

		req.CreatedAt = time.Now().Unix()
		res, err := tx.ExecContext(ctx,
			"INSERT INTO join_requests (username, group_id, status, created_at) VALUES (?, ?, 'PENDING', ?)",
			username, groupID, req.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert join request: %w", err)
		}
		req.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read join request id: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return req, nil
}

// GetJoinRequest retrieves a join request by ID.
func (s *SQLiteStore) GetJoinRequest(ctx context.Context, requestID int64) (*models.JoinRequest, error) {
	return getJoinRequest(ctx, s.db, requestID)
}

// ResolveJoinRequest approves or rejects a pending request.
func (s *SQLiteStore) ResolveJoinRequest(ctx context.Context, requestID int64, approve bool) (*storage.JoinResolution, error) {
	status := models.JoinRejected
	if approve {
		status = models.JoinApproved
	}

	result := &storage.JoinResolution{}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		req, err := getJoinRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if req.Status != models.JoinPending {
			return storage.ErrNotFound
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE join_requests SET status = ? WHERE id = ?",
			string(status), requestID,
		); err != nil {
			return fmt.Errorf("failed to update join request: %w", err)
		}
		req.Status = status

		if approve {
			result.MemberID, result.Added, err = addMemberTx(ctx, tx, req.Username, req.GroupID)
			if err != nil {
				return err
			}
		}

		result.Request = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getJoinRequest(ctx context.Context, q rowQueryer, requestID int64) (*models.JoinRequest, error) {
	req := &models.JoinRequest{}
	var status string
	err := q.QueryRowContext(ctx,
		"SELECT id, username, group_id, status, created_at FROM join_requests WHERE id = ?",
		requestID,
	).Scan(&req.ID, &req.Username, &req.GroupID, &status, &req.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get join request: %w", err)
	}
	req.Status = models.JoinStatus(status)
	return req, nil
}
