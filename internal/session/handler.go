package session

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The relay already serves any origin; the realtime channel matches.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler exposes the session HTTP surface: the websocket upgrade for the
// realtime channel and the out-of-band media endpoint used by the browser
// extension.
type Handler struct {
	hub  *Hub
	sync *Synchronizer
	log  *slog.Logger
}

// NewHandler returns a Handler over the given Hub and Synchronizer.
func NewHandler(hub *Hub, sync *Synchronizer, log *slog.Logger) *Handler {
	return &Handler{hub: hub, sync: sync, log: log}
}

// Connect handles GET /ws: upgrades the connection and starts routing its
// events through the Synchronizer.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := h.hub.NewClient(uuid.NewString(), conn)
	client.SetDisconnectHandler(h.sync.HandleDisconnect)

	h.hub.Register(client)
	client.Start(h.sync.HandleMessage)
}

type setMediaRequest struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// SetMedia handles POST /sessions/{session_id}/media.
// Body: { "url": "https://…/master.m3u8", "title": "…" }.
// Updates the session's media URL and broadcasts media-changed to the room.
func (h *Handler) SetMedia(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var req setMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		h.log.Debug("invalid media body", slog.String("session_id", sessionID))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "url is required"})
		return
	}

	h.sync.PublishMedia(ID(sessionID), req.URL)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "media sent to session",
		"sessionId": sessionID,
	})
}
