package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/garderoba/internal/model"
)

// ErrInsufficientBalance is returned when a debit would drive a user's
// balance negative. The debit is not applied at all in that case.
var ErrInsufficientBalance = errors.New("insufficient point balance")

// CreditPoints atomically adds amount to a user's balance and records a
// ledger entry. swapID may be empty for credits not tied to a swap.
func CreditPoints(ctx context.Context, q Querier, userID int64, amount int, reason, swapID string) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive")
	}

	result, err := q.ExecContext(ctx,
		`UPDATE users SET points = points + ? WHERE id = ? AND deleted_at IS NULL`,
		amount, userID,
	)
	if err != nil {
		return fmt.Errorf("crediting points: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("crediting points: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("crediting points: user %d not found", userID)
	}

	return appendPointEntry(ctx, q, userID, amount, reason, swapID)
}

// DebitPoints atomically subtracts amount from a user's balance and records
// a ledger entry. The balance check and the subtraction are a single UPDATE
// guarded on the current balance, so concurrent debits can never combine to
// drive the balance negative. Returns ErrInsufficientBalance without any
// change when the user cannot cover the amount.
func DebitPoints(ctx context.Context, q Querier, userID int64, amount int, reason, swapID string) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive")
	}

	result, err := q.ExecContext(ctx,
		`UPDATE users SET points = points - ?
		 WHERE id = ? AND deleted_at IS NULL AND points >= ?`,
		amount, userID, amount,
	)
	if err != nil {
		return fmt.Errorf("debiting points: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("debiting points: %w", err)
	}
	if n == 0 {
		u, err := GetUser(ctx, q, userID)
		if err != nil {
			return fmt.Errorf("debiting points: %w", err)
		}
		if u == nil || u.DeletedAt != nil {
			return fmt.Errorf("debiting points: user %d not found", userID)
		}
		return ErrInsufficientBalance
	}

	return appendPointEntry(ctx, q, userID, -amount, reason, swapID)
}

// GetPointsBalance returns a user's current balance.
func GetPointsBalance(ctx context.Context, q Querier, userID int64) (int, error) {
	var points int
	err := q.QueryRowContext(ctx,
		`SELECT points FROM users WHERE id = ?`, userID,
	).Scan(&points)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("getting balance: user %d not found", userID)
	}
	if err != nil {
		return 0, fmt.Errorf("getting balance: %w", err)
	}
	return points, nil
}

// ListPointEntries returns a user's ledger history, newest first.
func ListPointEntries(ctx context.Context, q Querier, userID int64) ([]model.PointEntry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, user_id, delta, reason, swap_id, created_at
		 FROM point_entries WHERE user_id = ? ORDER BY id DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing point entries: %w", err)
	}
	defer rows.Close()

	var entries []model.PointEntry
	for rows.Next() {
		var e model.PointEntry
		var swapID sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.Delta, &e.Reason, &swapID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning point entry: %w", err)
		}
		e.SwapID = swapID.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func appendPointEntry(ctx context.Context, q Querier, userID int64, delta int, reason, swapID string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO point_entries (user_id, delta, reason, swap_id) VALUES (?, ?, ?, NULLIF(?, ''))`,
		userID, delta, reason, swapID,
	)
	if err != nil {
		return fmt.Errorf("recording point entry: %w", err)
	}
	return nil
}
