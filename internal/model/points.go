package model

import "time"

// PointEntry is one immutable row in a user's ledger history. Entries are
// appended in the same transaction as the balance change they describe and
// are never updated or deleted.
type PointEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	SwapID    string    `json:"swap_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Ledger entry reasons.
const (
	PointReasonSignupBonus   = "signup bonus"
	PointReasonSwapRedeemed  = "points swap redeemed"
	PointReasonSwapEarned    = "points swap earned"
	PointReasonAdminAdjusted = "admin adjustment"
)
