package model

import "time"

// SwapKind distinguishes item-for-item exchanges from point redemptions.
type SwapKind string

// Swap kinds.
const (
	SwapDirect SwapKind = "direct"
	SwapPoints SwapKind = "points"
)

// SwapStatus is the lifecycle state of a swap request.
type SwapStatus string

// Swap statuses. The state machine is strictly forward:
//
//	pending → accepted → completed
//	pending → rejected | cancelled
//
// rejected, completed and cancelled are terminal. A requester may only cancel
// before acceptance; an accepted swap normally completes, and is cancelled
// only when a participant's account is deleted out from under it.
const (
	SwapPending   SwapStatus = "pending"
	SwapAccepted  SwapStatus = "accepted"
	SwapRejected  SwapStatus = "rejected"
	SwapCompleted SwapStatus = "completed"
	SwapCancelled SwapStatus = "cancelled"
)

// Swap represents one swap request and its outcome.
type Swap struct {
	ID            string     `json:"id"`
	Kind          SwapKind   `json:"kind"`
	RequesterID   int64      `json:"requester_id"`
	OwnerID       int64      `json:"owner_id"`
	ItemID        int64      `json:"item_id"`
	OfferedItemID *int64     `json:"offered_item_id,omitempty"`
	PointsOffered *int       `json:"points_offered,omitempty"`
	Status        SwapStatus `json:"status"`
	Message       string     `json:"message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`

	// Timeline is the ordered transition history, oldest first.
	// Populated on single-swap reads, not on lists.
	Timeline []SwapEvent `json:"timeline,omitempty"`

	// Joined fields (not always populated).
	ItemTitle        string `json:"item_title,omitempty"`
	OfferedItemTitle string `json:"offered_item_title,omitempty"`
	RequesterName    string `json:"requester_name,omitempty"`
	OwnerName        string `json:"owner_name,omitempty"`
}

// SwapEvent is one entry in a swap's transition history.
type SwapEvent struct {
	Status    SwapStatus `json:"status"`
	Note      string     `json:"note,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ValidSwapTransition reports whether a swap may move from one status to
// another. Statuses never move backward and terminal states have no exits.
func ValidSwapTransition(from, to SwapStatus) bool {
	switch from {
	case SwapPending:
		return to == SwapAccepted || to == SwapRejected || to == SwapCancelled
	case SwapAccepted:
		return to == SwapCompleted || to == SwapCancelled
	default:
		return false
	}
}

// TerminalSwapStatus reports whether a status has no outgoing transitions.
func TerminalSwapStatus(s SwapStatus) bool {
	return s == SwapRejected || s == SwapCompleted || s == SwapCancelled
}

// ActiveSwapStatus reports whether a swap in this status still holds the
// (requester, item) pair: at most one active swap may exist per pair.
func ActiveSwapStatus(s SwapStatus) bool {
	return s == SwapPending || s == SwapAccepted
}

// IsParticipant reports whether a user is one of the swap's two parties.
func (s *Swap) IsParticipant(userID int64) bool {
	return userID == s.RequesterID || userID == s.OwnerID
}
