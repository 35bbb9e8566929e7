// internal/notification/handlers.go
// HTTP and websocket handlers for notifications

package notification

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/beegin-app/beegin-backend/internal/auth"
	"github.com/beegin-app/beegin-backend/internal/common/apperrors"
	"github.com/beegin-app/beegin-backend/internal/common/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is token-authenticated; origin checks add nothing here
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler handles notification HTTP requests
type Handler struct {
	service Service
	hub     *Hub
}

// NewHandler creates a notification handler. hub may be nil when live
// delivery is disabled; the websocket endpoint then returns 404.
func NewHandler(service Service, hub *Hub) *Handler {
	return &Handler{service: service, hub: hub}
}

// listEnvelope shapes the notification list payload
type listEnvelope struct {
	Unread        int             `json:"unread"`
	Notifications []*Notification `json:"notifications"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, apperrors.Unauthorized("missing_token", "Authentication required"))
		return
	}

	limit := 20
	page := 1
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}

	notifications, total, unread, err := h.service.List(r.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.ResultsResponse(w, len(notifications), total, listEnvelope{
		Unread:        unread,
		Notifications: notifications,
	})
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())
	notificationID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || notificationID <= 0 {
		utils.ErrorResponse(w, apperrors.BadRequest("invalid_id", "ID must be a positive number"))
		return
	}

	if err := h.service.MarkRead(r.Context(), userID, notificationID); err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.MessageResponse(w, http.StatusOK, "Notification marked as read")
}

func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())

	if err := h.service.MarkAllRead(r.Context(), userID); err != nil {
		utils.ErrorResponse(w, err)
		return
	}

	utils.MessageResponse(w, http.StatusOK, "All notifications marked as read")
}

// ServeWS upgrades the connection and streams notifications until the
// client goes away.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, apperrors.Unauthorized("missing_token", "Authentication required"))
		return
	}
	if h.hub == nil {
		utils.ErrorResponse(w, apperrors.NotFound("live_delivery_disabled", "Live notifications are not enabled"))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	h.hub.Register(userID, conn)
	defer func() {
		h.hub.Unregister(userID, conn)
		conn.Close()
	}()

	// Reads are discarded; the socket exists for server pushes. The
	// read loop notices the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
