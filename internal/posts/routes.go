// internal/posts/routes.go

package posts

import (
	"github.com/gorilla/mux"

	"github.com/beegin-app/beegin-backend/internal/auth"
)

// RegisterRoutes wires post endpoints onto the router. Reads allow
// anonymous access; writes require a token.
func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1").Subrouter()

	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware.Authenticate)
	protected.HandleFunc("/posts", handler.CreatePost).Methods("POST")
	protected.HandleFunc("/posts/me", handler.GetMyPosts).Methods("GET")
	protected.HandleFunc("/posts/{id:[0-9]+}", handler.UpdatePost).Methods("PATCH")
	protected.HandleFunc("/posts/{id:[0-9]+}", handler.DeletePost).Methods("DELETE")
	protected.HandleFunc("/posts/{id:[0-9]+}/like", handler.LikePost).Methods("POST")
	protected.HandleFunc("/posts/{id:[0-9]+}/like", handler.UnlikePost).Methods("DELETE")
	protected.HandleFunc("/posts/{id:[0-9]+}/liked", handler.IsPostLiked).Methods("GET")

	public := api.NewRoute().Subrouter()
	public.Use(authMiddleware.OptionalAuthenticate)
	public.HandleFunc("/posts/random", handler.GetRandomPosts).Methods("GET")
	public.HandleFunc("/posts/{id:[0-9]+}", handler.GetPost).Methods("GET")
	public.HandleFunc("/posts/{id:[0-9]+}/likers", handler.GetLikers).Methods("GET")
	public.HandleFunc("/posts/{id:[0-9]+}/sharers", handler.GetSharers).Methods("GET")
	public.HandleFunc("/users/{id:[0-9]+}/posts", handler.GetUserPosts).Methods("GET")
	public.HandleFunc("/users/{id:[0-9]+}/shares", handler.GetUserShares).Methods("GET")
	public.HandleFunc("/users/{id:[0-9]+}/likes", handler.GetUserLikes).Methods("GET")
}
