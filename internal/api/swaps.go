package api

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/garderoba/internal/model"
	"github.com/erazemk/garderoba/internal/store"
	"github.com/erazemk/garderoba/internal/swap"
)

// SwapsHandler exposes the swap lifecycle over HTTP. All state changes go
// through the engine; the handlers only translate requests and errors.
type SwapsHandler struct {
	DB     *sql.DB
	Engine *swap.Engine
}

type swapRequest struct {
	ItemID        int64          `json:"item_id"`
	Kind          model.SwapKind `json:"kind"`
	OfferedItemID int64          `json:"offered_item_id,omitempty"`
	PointsOffered int            `json:"points_offered,omitempty"`
	Message       string         `json:"message,omitempty"`
}

type swapNoteRequest struct {
	Note string `json:"note,omitempty"`
}

// swapError translates engine sentinels into HTTP status codes. Conflicts
// caused by concurrent activity get a retryable hint so clients know a
// re-read and retry may succeed.
func swapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, swap.ErrItemNotFound), errors.Is(err, swap.ErrSwapNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, swap.ErrNotParticipant):
		jsonError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, swap.ErrStaleSwapState):
		jsonResponse(w, http.StatusConflict, map[string]any{"error": err.Error(), "retryable": true})
	case errors.Is(err, swap.ErrItemUnavailable),
		errors.Is(err, swap.ErrDuplicateActiveSwap),
		errors.Is(err, swap.ErrInvalidTransition),
		errors.Is(err, swap.ErrInsufficientBalance):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, swap.ErrSelfSwap),
		errors.Is(err, swap.ErrOwnershipMismatch),
		errors.Is(err, swap.ErrMissingOfferedItem),
		errors.Is(err, swap.ErrOfferTooLow):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		jsonError(w, http.StatusServiceUnavailable, "request timed out, try again")
	default:
		slog.Error("swap operation failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
	}
}

// Create submits a new swap request for an item.
func (h *SwapsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r)
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req swapRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Kind != model.SwapDirect && req.Kind != model.SwapPoints {
		jsonError(w, http.StatusBadRequest, "kind must be direct or points")
		return
	}

	// Unmoderated listings are invisible to everyone but their owner, so a
	// swap request against one reads as not found.
	item, err := store.GetItem(r.Context(), h.DB, req.ItemID)
	if err != nil {
		slog.Error("failed to get item", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if item == nil || item.DeletedAt != nil || item.Moderation != model.ModerationApproved {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	s, err := h.Engine.Create(r.Context(), swap.CreateParams{
		RequesterID:   claims.UserID,
		ItemID:        req.ItemID,
		Kind:          req.Kind,
		OfferedItemID: req.OfferedItemID,
		PointsOffered: req.PointsOffered,
		Message:       req.Message,
	})
	if err != nil {
		swapError(w, err)
		return
	}

	slog.Info("swap requested", "id", s.ID, "requester", claims.Username, "item", s.ItemID)
	jsonResponse(w, http.StatusCreated, s)
}

// List returns the caller's swaps, optionally filtered by status.
func (h *SwapsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r)
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var status model.SwapStatus
	if s := r.URL.Query().Get("status"); s != "" {
		switch v := model.SwapStatus(s); v {
		case model.SwapPending, model.SwapAccepted, model.SwapRejected,
			model.SwapCompleted, model.SwapCancelled:
			status = v
		default:
			jsonError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
	}

	swaps, err := h.Engine.ListFor(r.Context(), claims.UserID, status)
	if err != nil {
		slog.Error("failed to list swaps", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if swaps == nil {
		swaps = []model.Swap{}
	}

	jsonResponse(w, http.StatusOK, swaps)
}

// Get returns one swap with its transition timeline. Swaps are only
// visible to their two participants and admins; everyone else gets a 404
// so swap IDs leak nothing.
func (h *SwapsHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r)
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	s, err := h.Engine.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		swapError(w, err)
		return
	}

	if !s.IsParticipant(claims.UserID) && !model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		jsonError(w, http.StatusNotFound, "swap not found")
		return
	}

	jsonResponse(w, http.StatusOK, s)
}

// Accept lets the item's owner accept a pending swap.
func (h *SwapsHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, swap.ActionAccept)
}

// Reject lets the item's owner turn down a pending swap.
func (h *SwapsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, swap.ActionReject)
}

func (h *SwapsHandler) respond(w http.ResponseWriter, r *http.Request, action swap.ResponseAction) {
	claims := GetClaims(r)
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req swapNoteRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	s, err := h.Engine.Respond(r.Context(), r.PathValue("id"), claims.UserID, action, req.Note)
	if err != nil {
		swapError(w, err)
		return
	}

	slog.Info("swap "+string(s.Status), "id", s.ID, "by", claims.Username)
	jsonResponse(w, http.StatusOK, s)
}

// Cancel lets the requester withdraw a swap that is still pending.
func (h *SwapsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r)
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	s, err := h.Engine.Cancel(r.Context(), r.PathValue("id"), claims.UserID)
	if err != nil {
		swapError(w, err)
		return
	}

	slog.Info("swap cancelled", "id", s.ID, "by", claims.Username)
	jsonResponse(w, http.StatusOK, s)
}

// Complete finalizes an accepted swap, moving items and points for good.
func (h *SwapsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r)
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	s, err := h.Engine.Complete(r.Context(), r.PathValue("id"), claims.UserID)
	if err != nil {
		swapError(w, err)
		return
	}

	slog.Info("swap completed", "id", s.ID, "by", claims.Username)
	jsonResponse(w, http.StatusOK, s)
}
