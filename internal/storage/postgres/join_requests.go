package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmynk/expensedash/internal/models"
	"github.com/mmynk/expensedash/internal/storage"
)

// CreateJoinRequest records a pending request, reusing an open one.
func (s *Store) CreateJoinRequest(ctx context.Context, username string, groupID int64) (*models.JoinRequest, error) {
	req := &models.JoinRequest{
		Username: username,
		GroupID:  groupID,
		Status:   models.JoinPending,
	}

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if err := checkUserAndGroup(ctx, tx, username, groupID); err != nil {
			return err
		}

		err := tx.QueryRow(ctx,
			`SELECT id, created_at FROM join_requests
			 WHERE username = $1 AND group_id = $2 AND status = 'PENDING'
			 ORDER BY id DESC LIMIT 1`,
			username, groupID,
		).Scan(&req.ID, &req.CreatedAt)
		if err == nil {
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("check pending request: %w", err)
		}

		req.CreatedAt = time.Now().Unix()
		err = tx.QueryRow(ctx,
			`INSERT INTO join_requests (username, group_id, status, created_at)
			 VALUES ($1, $2, 'PENDING', $3) RETURNING id`,
			username, groupID, req.CreatedAt,
		).Scan(&req.ID)
		if err != nil {
			return fmt.Errorf("insert join request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// GetJoinRequest fetches a join request by id.
func (s *Store) GetJoinRequest(ctx context.Context, requestID int64) (*models.JoinRequest, error) {
	return getJoinRequest(ctx, s.pool, requestID, false)
}

// ResolveJoinRequest approves or rejects a pending request.
func (s *Store) ResolveJoinRequest(ctx context.Context, requestID int64, approve bool) (*storage.JoinResolution, error) {
	status := models.JoinRejected
	if approve {
		status = models.JoinApproved
	}

	result := &storage.JoinResolution{}
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		req, err := getJoinRequest(ctx, tx, requestID, true)
		if err != nil {
			return err
		}
		if req.Status != models.JoinPending {
			return storage.ErrNotFound
		}

		if _, err := tx.Exec(ctx, "UPDATE join_requests SET status = $1 WHERE id = $2", string(status), requestID); err != nil {
			return fmt.Errorf("update join request: %w", err)
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

func getJoinRequest(ctx context.Context, q querier, requestID int64, forUpdate bool) (*models.JoinRequest, error) {
	query := "SELECT id, username, group_id, status, created_at FROM join_requests WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}

	req := &models.JoinRequest{}
	var status string
	err := q.QueryRow(ctx, query, requestID).Scan(&req.ID, &req.Username, &req.GroupID, &status, &req.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get join request: %w", err)
	}
	req.Status = models.JoinStatus(status)
	return req, nil
}
