package model

import "time"

// ItemAvailability tracks whether an item can be requested, is committed to
// an accepted swap, or has already changed hands.
type ItemAvailability string

// Availability states. Transitions are driven exclusively by the swap
// engine: available → reserved → swapped, or reserved → available when an
// accepted swap falls through.
const (
	ItemAvailable ItemAvailability = "available"
	ItemReserved  ItemAvailability = "reserved"
	ItemSwapped   ItemAvailability = "swapped"
)

// ItemModeration is the listing-review state, owned by the listing
// subsystem. The swap engine never reads it; browsing and swap submission
// are gated on it at the API layer.
type ItemModeration string

// Moderation states.
const (
	ModerationPending  ItemModeration = "pending"
	ModerationApproved ItemModeration = "approved"
	ModerationRejected ItemModeration = "rejected"
)

// ItemCondition describes the physical state of a garment.
type ItemCondition string

// Garment conditions.
const (
	ConditionNew     ItemCondition = "new"
	ConditionLikeNew ItemCondition = "like_new"
	ConditionGood    ItemCondition = "good"
	ConditionWorn    ItemCondition = "worn"
)

// Item represents a single listed garment.
type Item struct {
	ID           int64            `json:"id"`
	OwnerID      int64            `json:"owner_id"`
	Title        string           `json:"title"`
	Description  string           `json:"description,omitempty"`
	Category     string           `json:"category,omitempty"`
	Size         string           `json:"size,omitempty"`
	Condition    ItemCondition    `json:"condition"`
	PointValue   int              `json:"point_value"`
	Availability ItemAvailability `json:"availability"`
	Moderation   ItemModeration   `json:"moderation"`
	ImageMime    string           `json:"image_mime,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	DeletedAt    *time.Time       `json:"deleted_at,omitempty"`

	// Joined fields (not always populated).
	OwnerName string `json:"owner_name,omitempty"`
}

// ValidAvailabilityTransition reports whether an item may move between the
// two availability states. Items move forward through a swap and only ever
// return to available from reserved.
func ValidAvailabilityTransition(from, to ItemAvailability) bool {
	switch from {
	case ItemAvailable:
		return to == ItemReserved
	case ItemReserved:
		return to == ItemSwapped || to == ItemAvailable
	default:
		return false
	}
}

// ValidCondition reports whether c is a known garment condition.
func ValidCondition(c ItemCondition) bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionWorn:
		return true
	}
	return false
}
