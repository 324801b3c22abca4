package handlers

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/Dosada05/bounty-system/middleware"
	"github.com/Dosada05/bounty-system/realtime"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler принимает тот же список origin, что и CORS; "*" разрешает всех.
func NewWebSocketHandler(hub *realtime.Hub, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	allowAll := len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*")
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
		logger: logger.With(slog.String("component", "websocket")),
	}
}

// ServeBounty подписывает на счётчик участников: /ws/bounties/{bountyID}
func (h *WebSocketHandler) ServeBounty(w http.ResponseWriter, r *http.Request) {
	bountyID, err := getIDFromURL(r, "bountyID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.serve(w, r, realtime.BountyRoom(bountyID))
}

// ServeUser подписывает на личные события (назначение в команду): /ws/users/me
func (h *WebSocketHandler) ServeUser(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	h.serve(w, r, realtime.UserRoom(currentUserID))
}

// ServeCollege подписывает на новые баунти колледжа: /ws/colleges/{collegeID}
func (h *WebSocketHandler) ServeCollege(w http.ResponseWriter, r *http.Request) {
	collegeID, err := getIDFromURL(r, "collegeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.serve(w, r, realtime.CollegeRoom(collegeID))
}

func (h *WebSocketHandler) serve(w http.ResponseWriter, r *http.Request, room string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту ошибкой
		h.logger.Warn("failed to upgrade connection", slog.String("room", room), slog.Any("error", err))
		return
	}

	client := realtime.NewClient(h.hub, conn, room)
	if !h.hub.Subscribe(client) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()

	h.logger.Debug("client subscribed", slog.String("room", room))
}
