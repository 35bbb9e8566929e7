// internal/profile/routes.go

package profile

import (
	"github.com/gorilla/mux"

	"github.com/beegin-app/beegin-backend/internal/auth"
)

// RegisterRoutes wires profile endpoints onto the router
func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1").Subrouter()

	protected := api.PathPrefix("/users").Subrouter()
	protected.Use(authMiddleware.Authenticate)
	protected.HandleFunc("/me", handler.GetMe).Methods("GET")
	protected.HandleFunc("/me", handler.UpdateMe).Methods("PATCH")

	public := api.PathPrefix("/users").Subrouter()
	public.Use(authMiddleware.OptionalAuthenticate)
	public.HandleFunc("/{id:[0-9]+}", handler.GetByID).Methods("GET")
}
