// internal/notification/routes.go

package notification

import (
	"github.com/gorilla/mux"

	"github.com/beegin-app/beegin-backend/internal/auth"
)

// RegisterRoutes wires notification endpoints onto the router
func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/notifications").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("", handler.List).Methods("GET")
	api.HandleFunc("/read-all", handler.MarkAllRead).Methods("PATCH")
	api.HandleFunc("/{id:[0-9]+}/read", handler.MarkRead).Methods("PATCH")
	api.HandleFunc("/ws", handler.ServeWS).Methods("GET")
}
