// internal/search/routes.go

package search

import (
	"github.com/gorilla/mux"

	"github.com/beegin-app/beegin-backend/internal/auth"
)

// RegisterRoutes wires search endpoints onto the router
func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/search").Subrouter()
	api.Use(authMiddleware.OptionalAuthenticate)

	api.HandleFunc("/posts", handler.SearchPosts).Methods("GET")
	api.HandleFunc("/users", handler.SearchUsers).Methods("GET")
}
