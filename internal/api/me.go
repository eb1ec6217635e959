package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/garderoba/internal/model"
	"github.com/erazemk/garderoba/internal/store"
)

// MeHandler serves the authenticated user's own profile and ledger.
type MeHandler struct {
	DB *sql.DB
}

// Get returns the caller's profile, including the current point balance.
func (h *MeHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r)
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if user == nil {
		jsonError(w, http.StatusUnauthorized, "account no longer exists")
		return
	}

	jsonResponse(w, http.StatusOK, user)
}

// Points returns the caller's ledger entries, newest first.
func (h *MeHandler) Points(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r)
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	entries, err := store.ListPointEntries(r.Context(), h.DB, claims.UserID)
	if err != nil {
		slog.Error("failed to list point entries", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if entries == nil {
		entries = []model.PointEntry{}
	}

	jsonResponse(w, http.StatusOK, entries)
}
