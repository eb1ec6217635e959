package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/garderoba/internal/auth"
	"github.com/erazemk/garderoba/internal/imaging"
	"github.com/erazemk/garderoba/internal/model"
	"github.com/erazemk/garderoba/internal/store"
)

// ItemsHandler handles listing CRUD and item photos.
type ItemsHandler struct {
	DB *sql.DB
}

type itemRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Category    string              `json:"category"`
	Size        string              `json:"size"`
	Condition   model.ItemCondition `json:"condition"`
	PointValue  int                 `json:"point_value"`
}

// canViewItem reports whether the caller may see a listing that is not
// publicly browsable yet. Owners and admins see their items in any
// moderation state, everyone else only approved ones.
func canViewItem(claims *auth.Claims, item *model.Item) bool {
	if item.Moderation == model.ModerationApproved {
		return true
	}
	return claims.UserID == item.OwnerID || model.RoleAtLeast(claims.Role, model.RoleAdmin)
}

// List returns browsable listings. Only approved items show up unless the
// caller asks for their own with ?mine=true.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r)
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	filter := store.ItemFilter{
		Category: r.URL.Query().Get("category"),
	}

	if availability := r.URL.Query().Get("availability"); availability != "" {
		switch a := model.ItemAvailability(availability); a {
		case model.ItemAvailable, model.ItemReserved, model.ItemSwapped:
			filter.Availability = a
		default:
			jsonError(w, http.StatusBadRequest, "invalid availability filter")
			return
		}
	}

	if r.URL.Query().Get("mine") == "true" {
		filter.OwnerID = claims.UserID
	} else {
		filter.Moderation = model.ModerationApproved
	}

	items, err := store.ListItems(r.Context(), h.DB, filter)
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

// Create adds a new listing. It starts out pending moderation and is not
// browsable until an admin approves it.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r)
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Title == "" {
		jsonError(w, http.StatusBadRequest, "title is required")
		return
	}

	if req.Condition == "" {
		req.Condition = model.ConditionGood
	}
	if !model.ValidCondition(req.Condition) {
		jsonError(w, http.StatusBadRequest, "invalid condition")
		return
	}

	if req.PointValue <= 0 {
		jsonError(w, http.StatusBadRequest, "point value must be positive")
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, claims.UserID,
		req.Title, req.Description, req.Category, req.Size, req.Condition, req.PointValue)
	if err != nil {
		slog.Error("failed to create item", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	slog.Info("item listed", "id", item.ID, "owner", claims.Username)
	jsonResponse(w, http.StatusCreated, item)
}

// Get returns a single listing.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	if item == nil || item.DeletedAt != nil || !canViewItem(claims, item) {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// Update changes a listing's descriptive fields. Only the owner can edit,
// and the point value and availability are not editable.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Title == "" {
		jsonError(w, http.StatusBadRequest, "title is required")
		return
	}

	if req.Condition == "" {
		req.Condition = model.ConditionGood
	}
	if !model.ValidCondition(req.Condition) {
		jsonError(w, http.StatusBadRequest, "invalid condition")
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

	if item.OwnerID != claims.UserID {
		jsonError(w, http.StatusForbidden, "only the owner can edit a listing")
		return
	}

	if err := store.UpdateItem(r.Context(), h.DB, id,
		req.Title, req.Description, req.Category, req.Size, req.Condition); err != nil {
		slog.Error("failed to update item", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	updated, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get item", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	jsonResponse(w, http.StatusOK, updated)
}

// Delete removes a listing. Items tied up in a pending or accepted swap
// cannot be deleted until the swap is resolved.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if item.OwnerID != claims.UserID && !model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		jsonError(w, http.StatusForbidden, "only the owner can delete a listing")
		return
	}

	if err := store.DeleteItem(r.Context(), h.DB, id); err != nil {
		if errors.Is(err, store.ErrItemInUse) {
			jsonError(w, http.StatusConflict, "item has an active swap")
			return
		}
		slog.Error("failed to delete item", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	slog.Info("item deleted", "id", id, "by", claims.Username)
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage attaches a photo to a listing. The upload is validated,
// downscaled and re-encoded before it is stored.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
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

	if item.OwnerID != claims.UserID {
		jsonError(w, http.StatusForbidden, "only the owner can upload a photo")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "image too large or invalid form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "missing image file")
		return
	}
	defer file.Close()

	processed, err := imaging.Process(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, id, processed.Data, processed.MIME); err != nil {
		slog.Error("failed to store image", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetImage serves a listing's photo.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
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

	if item == nil || item.DeletedAt != nil || !canViewItem(claims, item) {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	image, mime, err := store.GetItemImage(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get image", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if image == nil {
		jsonError(w, http.StatusNotFound, "item has no photo")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(image); err != nil {
		slog.Error("failed to write image", "error", err)
	}
}

// Swaps returns the swap history for one listing. Only the owner and
// admins can see who requested an item.
func (h *ItemsHandler) Swaps(w http.ResponseWriter, r *http.Request) {
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

	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	if item.OwnerID != claims.UserID && !model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		jsonError(w, http.StatusForbidden, "only the owner can see an item's swaps")
		return
	}

	swaps, err := store.ListSwapsForItem(r.Context(), h.DB, id)
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
