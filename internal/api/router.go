package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/garderoba/internal/model"
	"github.com/erazemk/garderoba/internal/notify"
	"github.com/erazemk/garderoba/internal/swap"
)

// NewRouter builds the HTTP API. Registration and login are public,
// everything else requires a valid token, and the admin routes additionally
// require the admin role.
func NewRouter(db *sql.DB, engine *swap.Engine, hub *notify.Hub, jwtSecret string, signupBonus int) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret, SignupBonus: signupBonus}
	meHandler := &MeHandler{DB: db}
	itemsHandler := &ItemsHandler{DB: db}
	swapsHandler := &SwapsHandler{DB: db, Engine: engine}
	adminHandler := &AdminHandler{DB: db, Engine: engine}
	eventsHandler := &EventsHandler{Hub: hub}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)

	// Public routes.
	mux.Handle("POST /api/auth/register", http.HandlerFunc(authHandler.Register))
	mux.Handle("POST /api/auth/login", http.HandlerFunc(authHandler.Login))

	// Authenticated routes.
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))

	mux.Handle("GET /api/me", authMW(http.HandlerFunc(meHandler.Get)))
	mux.Handle("GET /api/me/points", authMW(http.HandlerFunc(meHandler.Points)))

	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(http.HandlerFunc(itemsHandler.Create)))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("PUT /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Update)))
	mux.Handle("DELETE /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Delete)))
	mux.Handle("PUT /api/items/{id}/image", authMW(http.HandlerFunc(itemsHandler.UploadImage)))
	mux.Handle("GET /api/items/{id}/image", authMW(http.HandlerFunc(itemsHandler.GetImage)))
	mux.Handle("GET /api/items/{id}/swaps", authMW(http.HandlerFunc(itemsHandler.Swaps)))

	mux.Handle("POST /api/swaps", authMW(http.HandlerFunc(swapsHandler.Create)))
	mux.Handle("GET /api/swaps", authMW(http.HandlerFunc(swapsHandler.List)))
	mux.Handle("GET /api/swaps/{id}", authMW(http.HandlerFunc(swapsHandler.Get)))
	mux.Handle("POST /api/swaps/{id}/accept", authMW(http.HandlerFunc(swapsHandler.Accept)))
	mux.Handle("POST /api/swaps/{id}/reject", authMW(http.HandlerFunc(swapsHandler.Reject)))
	mux.Handle("POST /api/swaps/{id}/cancel", authMW(http.HandlerFunc(swapsHandler.Cancel)))
	mux.Handle("POST /api/swaps/{id}/complete", authMW(http.HandlerFunc(swapsHandler.Complete)))

	mux.Handle("GET /api/events", authMW(http.HandlerFunc(eventsHandler.Stream)))

	// Admin routes.
	mux.Handle("GET /api/admin/items", authMW(requireAdmin(http.HandlerFunc(adminHandler.ListItems))))
	mux.Handle("POST /api/admin/items/{id}/approve", authMW(requireAdmin(http.HandlerFunc(adminHandler.ApproveItem))))
	mux.Handle("POST /api/admin/items/{id}/reject", authMW(requireAdmin(http.HandlerFunc(adminHandler.RejectItem))))
	mux.Handle("GET /api/admin/users", authMW(requireAdmin(http.HandlerFunc(adminHandler.ListUsers))))
	mux.Handle("PUT /api/admin/users/{id}/role", authMW(requireAdmin(http.HandlerFunc(adminHandler.UpdateUserRole))))
	mux.Handle("POST /api/admin/users/{id}/points", authMW(requireAdmin(http.HandlerFunc(adminHandler.AdjustPoints))))
	mux.Handle("DELETE /api/admin/users/{id}", authMW(requireAdmin(http.HandlerFunc(adminHandler.DeleteUser))))

	return LoggingMiddleware(mux)
}
