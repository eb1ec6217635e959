package swap

import (
	"errors"

	"github.com/erazemk/garderoba/internal/store"
)

// Domain failures raised by the engine. All are errors.Is-able sentinels;
// anything else coming out of an engine call is a wrapped infrastructure
// error.
var (
	// ErrItemNotFound: the requested or offered item does not exist or has
	// been deleted.
	ErrItemNotFound = errors.New("item not found")

	// ErrSwapNotFound: no swap with the given ID.
	ErrSwapNotFound = errors.New("swap not found")

	// ErrItemUnavailable: the item is reserved or already swapped.
	ErrItemUnavailable = errors.New("item is not available")

	// ErrSelfSwap: a requester cannot request their own item.
	ErrSelfSwap = errors.New("cannot request a swap for your own item")

	// ErrMissingOfferedItem: a direct swap proposal named no offered item.
	ErrMissingOfferedItem = errors.New("direct swap requires an offered item")

	// ErrOwnershipMismatch: the offered item does not belong to the requester.
	ErrOwnershipMismatch = errors.New("offered item is not owned by requester")

	// ErrOfferTooLow: the points offered are below the item's point value.
	ErrOfferTooLow = errors.New("points offered are below the item's value")

	// ErrInvalidTransition: the swap's current status does not allow the
	// requested action.
	ErrInvalidTransition = errors.New("swap status does not allow this action")

	// ErrNotParticipant: the acting user has no right to act on this swap.
	ErrNotParticipant = errors.New("user may not act on this swap")

	// ErrStaleSwapState: a concurrent actor changed the swap, an item or a
	// balance between read and write. The operation had no effect; callers
	// should re-read and may retry.
	ErrStaleSwapState = errors.New("swap state changed concurrently")
)

// Storage-enforced invariants surface under the same names the stores raise
// them with, so errors.Is works across layers.
var (
	ErrInsufficientBalance = store.ErrInsufficientBalance
	ErrDuplicateActiveSwap = store.ErrDuplicateActiveSwap
)
