// Package swap implements the swap lifecycle: proposal, owner response,
// completion, cancellation and expiry. Every transition runs in a single
// database transaction that moves the swap status, the item availability and
// the points ledger together, so no partial exchange is ever visible.
package swap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/garderoba/internal/model"
	"github.com/erazemk/garderoba/internal/notify"
	"github.com/erazemk/garderoba/internal/store"
)

// DefaultTTL is how long a pending swap waits for the owner's response
// before the reaper cancels it.
const DefaultTTL = 7 * 24 * time.Hour

// Engine coordinates swap state, item availability and the points ledger.
type Engine struct {
	db       *sql.DB
	notifier notify.Dispatcher
	ttl      time.Duration
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithTTL overrides the pending-swap expiry window.
func WithTTL(d time.Duration) Option {
	return func(e *Engine) { e.ttl = d }
}

// WithClock overrides the engine's time source. Tests use this to control
// expiry.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine on top of db, emitting events through
// notifier.
func NewEngine(db *sql.DB, notifier notify.Dispatcher, opts ...Option) *Engine {
	e := &Engine{
		db:       db,
		notifier: notifier,
		ttl:      DefaultTTL,
		// Second precision keeps stored timestamps and expiry comparisons
		// stable across the driver's serialization.
		now: func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateParams describes a new swap proposal.
type CreateParams struct {
	RequesterID   int64
	ItemID        int64
	Kind          model.SwapKind
	OfferedItemID int64 // direct swaps only
	PointsOffered int   // points swaps only
	Message       string
}

// Create validates and records a new pending swap. No item availability or
// ledger mutation happens here; the proposal only claims the requester's one
// active slot for the item. The owner is notified.
func (e *Engine) Create(ctx context.Context, p CreateParams) (*model.Swap, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := store.GetItem(ctx, tx, p.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.DeletedAt != nil {
		return nil, ErrItemNotFound
	}
	if item.Availability != model.ItemAvailable {
		return nil, ErrItemUnavailable
	}
	if item.OwnerID == p.RequesterID {
		return nil, ErrSelfSwap
	}

	now := e.now()
	s := &model.Swap{
		ID:          uuid.NewString(),
		Kind:        p.Kind,
		RequesterID: p.RequesterID,
		OwnerID:     item.OwnerID,
		ItemID:      item.ID,
		Status:      model.SwapPending,
		Message:     p.Message,
		CreatedAt:   now,
		ExpiresAt:   now.Add(e.ttl),
	}

	switch p.Kind {
	case model.SwapDirect:
		if p.OfferedItemID <= 0 {
			return nil, ErrMissingOfferedItem
		}
		offered, err := store.GetItem(ctx, tx, p.OfferedItemID)
		if err != nil {
			return nil, err
		}
		if offered == nil || offered.DeletedAt != nil {
			return nil, fmt.Errorf("offered item: %w", ErrItemNotFound)
		}
		if offered.OwnerID != p.RequesterID {
			return nil, ErrOwnershipMismatch
		}
		if offered.Availability != model.ItemAvailable {
			return nil, fmt.Errorf("offered item: %w", ErrItemUnavailable)
		}
		s.OfferedItemID = &offered.ID
	case model.SwapPoints:
		// Point values are always positive, so this also rejects absent and
		// negative offers.
		if p.PointsOffered < item.PointValue {
			return nil, ErrOfferTooLow
		}
		balance, err := store.GetPointsBalance(ctx, tx, p.RequesterID)
		if err != nil {
			return nil, err
		}
		if balance < p.PointsOffered {
			return nil, ErrInsufficientBalance
		}
		s.PointsOffered = &p.PointsOffered
	default:
		return nil, fmt.Errorf("unknown swap kind %q", p.Kind)
	}

	// Preflight for a friendlier failure; the partial unique index is the
	// real guard and InsertSwap maps its violation to the same error.
	exists, err := store.ActiveSwapExists(ctx, tx, p.RequesterID, item.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateActiveSwap
	}

	if err := store.InsertSwap(ctx, tx, s); err != nil {
		return nil, err
	}
	if err := store.AppendSwapEvent(ctx, tx, s.ID, model.SwapPending, "", now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing swap: %w", err)
	}

	e.notifier.Emit(notify.NewEvent(notify.EventSwapRequested, s.OwnerID, s.ID, s.ItemID, p.Message))
	return store.GetSwap(ctx, e.db, s.ID)
}

// ResponseAction is the owner's answer to a pending swap.
type ResponseAction string

// Response actions.
const (
	ActionAccept ResponseAction = "accept"
	ActionReject ResponseAction = "reject"
)

// Respond records the owner's decision on a pending swap.
//
// Rejection only moves the status. Acceptance reserves the requested item
// (and, for direct swaps, the offered item) and re-checks the requester's
// balance for points swaps; if any of those lost a race since the proposal
// was made, nothing changes and ErrStaleSwapState is returned with the swap
// still pending.
func (e *Engine) Respond(ctx context.Context, swapID string, userID int64, action ResponseAction, note string) (*model.Swap, error) {
	if action != ActionAccept && action != ActionReject {
		return nil, fmt.Errorf("unknown response action %q", action)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	s, err := store.GetSwap(ctx, tx, swapID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSwapNotFound
	}
	if s.OwnerID != userID {
		return nil, ErrNotParticipant
	}

	target := model.SwapAccepted
	if action == ActionReject {
		target = model.SwapRejected
	}
	if !model.ValidSwapTransition(s.Status, target) {
		return nil, ErrInvalidTransition
	}

	now := e.now()

	if action == ActionReject {
		ok, err := store.SetSwapStatus(ctx, tx, s.ID, model.SwapPending, model.SwapRejected)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrStaleSwapState
		}
		if err := store.AppendSwapEvent(ctx, tx, s.ID, model.SwapRejected, note, now); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("committing rejection: %w", err)
		}
		e.notifier.Emit(notify.NewEvent(notify.EventSwapRejected, s.RequesterID, s.ID, s.ItemID, note))
		return store.GetSwap(ctx, e.db, s.ID)
	}

	// Accept: both sides of the exchange must still be in the state the
	// proposal saw. Compare-and-set catches items another accepted swap
	// grabbed in the meantime, and a requester whose account was deleted
	// since proposing can no longer trade at all.
	requester, err := store.GetUser(ctx, tx, s.RequesterID)
	if err != nil {
		return nil, err
	}
	if requester == nil || requester.DeletedAt != nil {
		return nil, ErrStaleSwapState
	}

	ok, err := store.SetItemAvailability(ctx, tx, s.ItemID, model.ItemAvailable, model.ItemReserved)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStaleSwapState
	}
	if s.OfferedItemID != nil {
		ok, err := store.SetItemAvailability(ctx, tx, *s.OfferedItemID, model.ItemAvailable, model.ItemReserved)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrStaleSwapState
		}
	}
	if s.PointsOffered != nil {
		balance, err := store.GetPointsBalance(ctx, tx, s.RequesterID)
		if err != nil {
			return nil, err
		}
		if balance < *s.PointsOffered {
			return nil, ErrStaleSwapState
		}
	}

	ok, err = store.SetSwapStatus(ctx, tx, s.ID, model.SwapPending, model.SwapAccepted)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStaleSwapState
	}
	if err := store.AppendSwapEvent(ctx, tx, s.ID, model.SwapAccepted, note, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing acceptance: %w", err)
	}

	e.notifier.Emit(notify.NewEvent(notify.EventSwapAccepted, s.RequesterID, s.ID, s.ItemID, note))
	return store.GetSwap(ctx, e.db, s.ID)
}

// Complete settles an accepted swap: items move to swapped, and for points
// swaps the offer moves from requester to owner through the ledger. Either
// participant may complete. If the requester can no longer cover the offer
// the swap stays accepted, items stay reserved and ErrInsufficientBalance is
// returned.
func (e *Engine) Complete(ctx context.Context, swapID string, userID int64) (*model.Swap, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	s, err := store.GetSwap(ctx, tx, swapID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSwapNotFound
	}
	if !s.IsParticipant(userID) {
		return nil, ErrNotParticipant
	}
	if !model.ValidSwapTransition(s.Status, model.SwapCompleted) {
		return nil, ErrInvalidTransition
	}

	now := e.now()

	ok, err := store.SetItemAvailability(ctx, tx, s.ItemID, model.ItemReserved, model.ItemSwapped)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStaleSwapState
	}
	if s.OfferedItemID != nil {
		ok, err := store.SetItemAvailability(ctx, tx, *s.OfferedItemID, model.ItemReserved, model.ItemSwapped)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrStaleSwapState
		}
	}
	if s.PointsOffered != nil {
		if err := store.DebitPoints(ctx, tx, s.RequesterID, *s.PointsOffered, model.PointReasonSwapRedeemed, s.ID); err != nil {
			return nil, err
		}
		if err := store.CreditPoints(ctx, tx, s.OwnerID, *s.PointsOffered, model.PointReasonSwapEarned, s.ID); err != nil {
			return nil, err
		}
	}

	ok, err = store.MarkSwapCompleted(ctx, tx, s.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStaleSwapState
	}
	if err := store.AppendSwapEvent(ctx, tx, s.ID, model.SwapCompleted, "", now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing completion: %w", err)
	}

	e.notifier.Emit(notify.NewEvent(notify.EventSwapCompleted, s.RequesterID, s.ID, s.ItemID, ""))
	e.notifier.Emit(notify.NewEvent(notify.EventSwapCompleted, s.OwnerID, s.ID, s.ItemID, ""))
	return store.GetSwap(ctx, e.db, s.ID)
}

// Cancel withdraws a pending swap. Only the requester may cancel, and only
// before the owner has accepted.
func (e *Engine) Cancel(ctx context.Context, swapID string, userID int64) (*model.Swap, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	s, err := store.GetSwap(ctx, tx, swapID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSwapNotFound
	}
	if s.RequesterID != userID {
		return nil, ErrNotParticipant
	}
	if s.Status != model.SwapPending {
		return nil, ErrInvalidTransition
	}

	now := e.now()
	ok, err := store.SetSwapStatus(ctx, tx, s.ID, model.SwapPending, model.SwapCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStaleSwapState
	}
	if err := store.AppendSwapEvent(ctx, tx, s.ID, model.SwapCancelled, "", now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing cancellation: %w", err)
	}

	e.notifier.Emit(notify.NewEvent(notify.EventSwapCancelled, s.OwnerID, s.ID, s.ItemID, ""))
	return store.GetSwap(ctx, e.db, s.ID)
}

// Reap cancels pending swaps whose expiry deadline has passed and returns
// how many it cancelled. Each swap is settled in its own transaction with a
// status compare-and-set, so concurrent reapers (or a racing owner response)
// simply skip swaps someone else got to first.
func (e *Engine) Reap(ctx context.Context) (int, error) {
	now := e.now()
	expired, err := store.ListExpiredPending(ctx, e.db, now)
	if err != nil {
		return 0, err
	}

	reaped := 0
	for _, s := range expired {
		ok, err := e.reapOne(ctx, s.ID, now)
		if err != nil {
			return reaped, err
		}
		if ok {
			reaped++
			e.notifier.Emit(notify.NewEvent(notify.EventSwapCancelled, s.OwnerID, s.ID, s.ItemID, "expired"))
		}
	}
	return reaped, nil
}

func (e *Engine) reapOne(ctx context.Context, swapID string, now time.Time) (bool, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ok, err := store.SetSwapStatus(ctx, tx, swapID, model.SwapPending, model.SwapCancelled)
	if err != nil {
		return false, err
	}
	if !ok {
		// Accepted, cancelled or already reaped since we listed it.
		return false, nil
	}
	if err := store.AppendSwapEvent(ctx, tx, swapID, model.SwapCancelled, "expired", now); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing expiry: %w", err)
	}
	return true, nil
}

// CancelActiveFor cancels every pending or accepted swap a user participates
// in and returns how many were cancelled. Account deletion runs this after
// marking the account deleted, so no swap is left waiting on a party that no
// longer exists. The whole sweep is one transaction: a swap accepted while it
// runs either commits first and is listed here, or commits after and fails
// its own compare-and-set against the cancelled row. Cancelling an accepted
// swap hands the reserved items back; nothing was debited yet, so the ledger
// is untouched. The surviving party of each swap is notified with note.
func (e *Engine) CancelActiveFor(ctx context.Context, userID int64, note string) (int, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := e.now()
	var events []notify.Event
	for _, status := range []model.SwapStatus{model.SwapPending, model.SwapAccepted} {
		swaps, err := store.ListSwapsForUser(ctx, tx, userID, status)
		if err != nil {
			return 0, err
		}
		for i := range swaps {
			s := &swaps[i]
			ok, err := store.SetSwapStatus(ctx, tx, s.ID, s.Status, model.SwapCancelled)
			if err != nil {
				return 0, err
			}
			if !ok {
				// Moved on since we listed it.
				continue
			}

			// Holding the status means any reservations are still ours to undo.
			if s.Status == model.SwapAccepted {
				ok, err := store.SetItemAvailability(ctx, tx, s.ItemID, model.ItemReserved, model.ItemAvailable)
				if err != nil {
					return 0, err
				}
				if !ok {
					return 0, ErrStaleSwapState
				}
				if s.OfferedItemID != nil {
					ok, err := store.SetItemAvailability(ctx, tx, *s.OfferedItemID, model.ItemReserved, model.ItemAvailable)
					if err != nil {
						return 0, err
					}
					if !ok {
						return 0, ErrStaleSwapState
					}
				}
			}

			if err := store.AppendSwapEvent(ctx, tx, s.ID, model.SwapCancelled, note, now); err != nil {
				return 0, err
			}

			other := s.OwnerID
			if other == userID {
				other = s.RequesterID
			}
			events = append(events, notify.NewEvent(notify.EventSwapCancelled, other, s.ID, s.ItemID, note))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing cancellation: %w", err)
	}

	for _, ev := range events {
		e.notifier.Emit(ev)
	}
	return len(events), nil
}

// Get returns a swap with its transition timeline.
func (e *Engine) Get(ctx context.Context, swapID string) (*model.Swap, error) {
	s, err := store.GetSwap(ctx, e.db, swapID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSwapNotFound
	}
	s.Timeline, err = store.ListSwapEvents(ctx, e.db, swapID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListFor returns the swaps a user participates in, newest first, optionally
// filtered by status.
func (e *Engine) ListFor(ctx context.Context, userID int64, status model.SwapStatus) ([]model.Swap, error) {
	return store.ListSwapsForUser(ctx, e.db, userID, status)
}
