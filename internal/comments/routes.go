// internal/comments/routes.go

package comments

import (
	"github.com/gorilla/mux"

	"github.com/beegin-app/beegin-backend/internal/auth"
)

// RegisterRoutes wires comment endpoints onto the router
func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1").Subrouter()

	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware.Authenticate)
	protected.HandleFunc("/posts/{id:[0-9]+}/comments", handler.CreateComment).Methods("POST")
	protected.HandleFunc("/comments/{id:[0-9]+}", handler.UpdateComment).Methods("PATCH")
	protected.HandleFunc("/comments/{id:[0-9]+}", handler.DeleteComment).Methods("DELETE")
	protected.HandleFunc("/comments/{id:[0-9]+}/like", handler.LikeComment).Methods("POST")
	protected.HandleFunc("/comments/{id:[0-9]+}/like", handler.UnlikeComment).Methods("DELETE")

	public := api.NewRoute().Subrouter()
	public.Use(authMiddleware.OptionalAuthenticate)
	public.HandleFunc("/posts/{id:[0-9]+}/comments", handler.ListComments).Methods("GET")
	public.HandleFunc("/comments/{id:[0-9]+}", handler.GetComment).Methods("GET")
	public.HandleFunc("/comments/{id:[0-9]+}/replies", handler.ListReplies).Methods("GET")
	public.HandleFunc("/comments/{id:[0-9]+}/likers", handler.GetLikers).Methods("GET")
}
