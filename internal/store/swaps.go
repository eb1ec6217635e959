package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/erazemk/garderoba/internal/model"
)

// ErrDuplicateActiveSwap is returned when inserting a swap would give a
// requester a second pending or accepted swap for the same item. The partial
// unique index on swaps is the authority; this error is the mapped form of
// its violation.
var ErrDuplicateActiveSwap = errors.New("an active swap for this item already exists")

const swapColumns = `s.id, s.kind, s.requester_id, s.owner_id, s.item_id, s.offered_item_id,
	        s.points_offered, s.status, s.message, s.created_at, s.expires_at, s.completed_at,
	        i.title AS item_title, oi.title AS offered_item_title,
	        ru.username AS requester_name, ou.username AS owner_name`

const swapJoins = `FROM swaps s
	 JOIN items i ON i.id = s.item_id
	 LEFT JOIN items oi ON oi.id = s.offered_item_id
	 JOIN users ru ON ru.id = s.requester_id
	 JOIN users ou ON ou.id = s.owner_id`

// InsertSwap records a new swap proposal. The caller assigns the ID and
// timestamps. A duplicate active proposal by the same requester for the same
// item fails with ErrDuplicateActiveSwap.
func InsertSwap(ctx context.Context, q Querier, s *model.Swap) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO swaps (id, kind, requester_id, owner_id, item_id, offered_item_id,
		                    points_offered, status, message, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Kind, s.RequesterID, s.OwnerID, s.ItemID, s.OfferedItemID,
		s.PointsOffered, s.Status, s.Message, s.CreatedAt, s.ExpiresAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateActiveSwap
	}
	if err != nil {
		return fmt.Errorf("inserting swap: %w", err)
	}
	return nil
}

// ActiveSwapExists reports whether the requester already has a pending or
// accepted swap for the item. The partial unique index enforces this at
// insert time regardless; this is the cheap preflight form.
func ActiveSwapExists(ctx context.Context, q Querier, requesterID, itemID int64) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM swaps
		 WHERE requester_id = ? AND item_id = ? AND status IN ('pending', 'accepted')`,
		requesterID, itemID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking active swap: %w", err)
	}
	return count > 0, nil
}

// GetSwap returns a swap by ID with the joined item and participant names.
func GetSwap(ctx context.Context, q Querier, id string) (*model.Swap, error) {
	s := &model.Swap{}
	var message, offeredTitle sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT `+swapColumns+` `+swapJoins+` WHERE s.id = ?`, id,
	).Scan(&s.ID, &s.Kind, &s.RequesterID, &s.OwnerID, &s.ItemID, &s.OfferedItemID,
		&s.PointsOffered, &s.Status, &message, &s.CreatedAt, &s.ExpiresAt, &s.CompletedAt,
		&s.ItemTitle, &offeredTitle, &s.RequesterName, &s.OwnerName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting swap: %w", err)
	}
	s.Message = message.String
	s.OfferedItemTitle = offeredTitle.String
	return s, nil
}

// ListSwapsForUser returns swaps where the user is requester or owner,
// newest first, optionally filtered by status.
func ListSwapsForUser(ctx context.Context, q Querier, userID int64, status model.SwapStatus) ([]model.Swap, error) {
	query := `SELECT ` + swapColumns + ` ` + swapJoins + `
	          WHERE (s.requester_id = ? OR s.owner_id = ?)`
	args := []any{userID, userID}

	if status != "" {
		query += ` AND s.status = ?`
		args = append(args, status)
	}

	query += ` ORDER BY s.created_at DESC, s.id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing swaps: %w", err)
	}
	defer rows.Close()

	return scanSwaps(rows)
}

// ListSwapsForItem returns all swaps that requested the item, newest first.
func ListSwapsForItem(ctx context.Context, q Querier, itemID int64) ([]model.Swap, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+swapColumns+` `+swapJoins+`
		 WHERE s.item_id = ?
		 ORDER BY s.created_at DESC, s.id DESC`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing swaps for item: %w", err)
	}
	defer rows.Close()

	return scanSwaps(rows)
}

// ListExpiredPending returns pending swaps whose expiry deadline has passed.
func ListExpiredPending(ctx context.Context, q Querier, now time.Time) ([]model.Swap, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+swapColumns+` `+swapJoins+`
		 WHERE s.status = 'pending' AND s.expires_at <= ?
		 ORDER BY s.expires_at ASC`, now,
	)
	if err != nil {
		return nil, fmt.Errorf("listing expired swaps: %w", err)
	}
	defer rows.Close()

	return scanSwaps(rows)
}

// SetSwapStatus moves a swap between statuses with compare-and-set
// semantics: the update only applies when the swap is currently in the from
// status. Returns false, not an error, when it was in any other status.
func SetSwapStatus(ctx context.Context, q Querier, id string, from, to model.SwapStatus) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE swaps SET status = ? WHERE id = ? AND status = ?`,
		to, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("setting swap status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("setting swap status: %w", err)
	}
	return n == 1, nil
}

// MarkSwapCompleted moves an accepted swap to completed and stamps the
// completion time, with the same compare-and-set semantics as SetSwapStatus.
func MarkSwapCompleted(ctx context.Context, q Querier, id string, now time.Time) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE swaps SET status = 'completed', completed_at = ?
		 WHERE id = ? AND status = 'accepted'`,
		now, id,
	)
	if err != nil {
		return false, fmt.Errorf("completing swap: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("completing swap: %w", err)
	}
	return n == 1, nil
}

// AppendSwapEvent records a status change in the swap's timeline.
func AppendSwapEvent(ctx context.Context, q Querier, swapID string, status model.SwapStatus, note string, now time.Time) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO swap_events (swap_id, status, note, created_at) VALUES (?, ?, ?, ?)`,
		swapID, status, note, now,
	)
	if err != nil {
		return fmt.Errorf("appending swap event: %w", err)
	}
	return nil
}

// ListSwapEvents returns a swap's timeline, oldest first.
func ListSwapEvents(ctx context.Context, q Querier, swapID string) ([]model.SwapEvent, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT status, note, created_at FROM swap_events
		 WHERE swap_id = ? ORDER BY created_at ASC, id ASC`, swapID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing swap events: %w", err)
	}
	defer rows.Close()

	var events []model.SwapEvent
	for rows.Next() {
		var e model.SwapEvent
		var note sql.NullString
		if err := rows.Scan(&e.Status, &note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning swap event: %w", err)
		}
		e.Note = note.String
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanSwaps(rows *sql.Rows) ([]model.Swap, error) {
	var swaps []model.Swap
	for rows.Next() {
		var s model.Swap
		var message, offeredTitle sql.NullString
		if err := rows.Scan(&s.ID, &s.Kind, &s.RequesterID, &s.OwnerID, &s.ItemID, &s.OfferedItemID,
			&s.PointsOffered, &s.Status, &message, &s.CreatedAt, &s.ExpiresAt, &s.CompletedAt,
			&s.ItemTitle, &offeredTitle, &s.RequesterName, &s.OwnerName); err != nil {
			return nil, fmt.Errorf("scanning swap: %w", err)
		}
		s.Message = message.String
		s.OfferedItemTitle = offeredTitle.String
		swaps = append(swaps, s)
	}
	return swaps, rows.Err()
}
