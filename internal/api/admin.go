package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/garderoba/internal/model"
	"github.com/erazemk/garderoba/internal/store"
	"github.com/erazemk/garderoba/internal/swap"
)

// AdminHandler handles the moderation queue and user management. All routes
// behind it require the admin role.
type AdminHandler struct {
	DB     *sql.DB
	Engine *swap.Engine
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

type adjustPointsRequest struct {
	Delta int `json:"delta"`
}

// ListItems returns listings by moderation state, pending ones by default,
// so admins can work through the review queue.
func (h *AdminHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	moderation := model.ModerationPending
	if m := r.URL.Query().Get("moderation"); m != "" {
		switch v := model.ItemModeration(m); v {
		case model.ModerationPending, model.ModerationApproved, model.ModerationRejected:
			moderation = v
		default:
			jsonError(w, http.StatusBadRequest, "invalid moderation filter")
			return
		}
	}

	items, err := store.ListItems(r.Context(), h.DB, store.ItemFilter{Moderation: moderation})
	if err != nil {
		slog.Error("failed to list items", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if items == nil {
		items = []model.Item{}
	}

	jsonResponse(w, http.StatusOK, items)
}

// ApproveItem makes a listing browsable.
func (h *AdminHandler) ApproveItem(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, model.ModerationApproved)
}

// RejectItem hides a listing from everyone but its owner.
func (h *AdminHandler) RejectItem(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, model.ModerationRejected)
}

func (h *AdminHandler) moderate(w http.ResponseWriter, r *http.Request, decision model.ItemModeration) {
	claims := GetClaims(r)
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get item", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if item == nil || item.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	if err := store.SetItemModeration(r.Context(), h.DB, id, decision); err != nil {
		slog.Error("failed to set moderation", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	slog.Info("item moderated", "id", id, "decision", decision, "by", claims.Username)

	updated, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get item", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	jsonResponse(w, http.StatusOK, updated)
}

// ListUsers returns all registered users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list users", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if users == nil {
		users = []model.User{}
	}

	jsonResponse(w, http.StatusOK, users)
}

// UpdateUserRole changes a user's role. The change applies to the user's
// requests immediately; AuthMiddleware reads the role from the account row,
// not from the token.
func (h *AdminHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r)
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req updateRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Role != model.RoleAdmin && req.Role != model.RoleUser {
		jsonError(w, http.StatusBadRequest, "invalid role")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := store.UpdateUserRole(r.Context(), h.DB, id, req.Role); err != nil {
		slog.Error("failed to update user role", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	slog.Info("user role updated", "id", id, "role", req.Role, "by", claims.Username)

	updated, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	jsonResponse(w, http.StatusOK, updated)
}

// AdjustPoints credits or debits a user's point balance by delta, recording
// the change in the ledger. Debits that would take the balance negative are
// refused.
func (h *AdminHandler) AdjustPoints(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r)
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req adjustPointsRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Delta == 0 {
		jsonError(w, http.StatusBadRequest, "delta must not be zero")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	tx, err := h.DB.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	defer tx.Rollback()

	if req.Delta > 0 {
		err = store.CreditPoints(r.Context(), tx, id, req.Delta, model.PointReasonAdminAdjusted, "")
	} else {
		err = store.DebitPoints(r.Context(), tx, id, -req.Delta, model.PointReasonAdminAdjusted, "")
	}
	if errors.Is(err, store.ErrInsufficientBalance) {
		jsonError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		slog.Error("failed to adjust points", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit adjustment", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	slog.Info("points adjusted", "id", id, "delta", req.Delta, "by", claims.Username)

	updated, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	jsonResponse(w, http.StatusOK, updated)
}

// DeleteUser soft-deletes a user account and voids the active swaps it was
// part of. Admins cannot delete themselves.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r)
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if id == claims.UserID {
		jsonError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	if user.DeletedAt == nil {
		if err := store.DeleteUser(r.Context(), h.DB, id); err != nil {
			slog.Error("failed to delete user", "error", err)
			jsonError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	// Deletion lands before the sweep, so an acceptance racing the sweep
	// sees a deleted requester and refuses. Repeating the request re-runs
	// the sweep of a delete that failed halfway.
	cancelled, err := h.Engine.CancelActiveFor(r.Context(), id, "account deleted")
	if err != nil {
		slog.Error("failed to cancel user swaps", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	slog.Info("user deleted", "id", id, "cancelled_swaps", cancelled, "by", claims.Username)
	w.WriteHeader(http.StatusNoContent)
}
