package session

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"watchparty/internal/platform/metrics"
)

// Synchronizer holds the authoritative playback state per session and fans
// client events out to the rest of the room. Every handler isolates its own
// failure: a malformed event produces an error notice on the offending
// connection, never a crash.
type Synchronizer struct {
	registry Registry
	hub      *Hub
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewSynchronizer returns a Synchronizer over the given Registry and Hub.
// Metrics may be nil to disable metric recording (e.g. in tests).
func NewSynchronizer(registry Registry, hub *Hub, log *slog.Logger, m *metrics.Metrics) *Synchronizer {
	return &Synchronizer{registry: registry, hub: hub, log: log, metrics: m}
}

// HandleMessage dispatches one inbound realtime event. It runs on the
// connection's read goroutine, so a single participant's events are applied
// in order.
func (s *Synchronizer) HandleMessage(c *Client, raw []byte) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		c.Send(ErrorEvent{Type: EventError, Message: "invalid message format"})
		return
	}

	if s.metrics != nil {
		s.metrics.IncSessionEvents(envelope.Type)
	}

	switch envelope.Type {
	case EventJoin:
		s.handleJoin(c, raw)
	case EventLeave:
		s.handleLeave(c, raw)
	case EventGetState:
		s.handleGetState(c, raw)
	case EventSetMedia:
		s.handleSetMedia(c, raw)
	case EventStateTick:
		s.handleStateTick(c, raw)
	case EventForceSync:
		s.handleForceSync(c, raw)
	case EventChat:
		s.handleChat(c, raw)
	default:
		c.Send(ErrorEvent{Type: EventError, Message: "unknown event type: " + envelope.Type})
	}
}

// HandleDisconnect applies leave semantics for every session the dropped
// connection had joined, so participant counts reconcile even without an
// explicit leave event.
func (s *Synchronizer) HandleDisconnect(c *Client) {
	for _, id := range s.hub.SessionsOf(c) {
		s.leave(c, id)
	}
}

func (s *Synchronizer) handleJoin(c *Client, raw []byte) {
	var evt JoinEvent
	if !s.decode(c, raw, &evt) || !s.requireSession(c, evt.SessionID) {
		return
	}

	c.DisplayName = evt.DisplayName
	c.SenderID = evt.SenderID

	id := ID(evt.SessionID)
	s.hub.JoinSession(c, id)
	count := s.registry.IncrementParticipants(id)

	sess, _ := s.registry.Get(id)
	c.Send(SnapshotEvent{Type: EventSnapshot, Snapshot: sess.Snapshot()})

	s.hub.Broadcast(id, ParticipantJoinedEvent{
		Type:             EventParticipantJoined,
		DisplayName:      evt.DisplayName,
		ParticipantCount: count,
	}, c.ID)

	s.log.Info("participant joined",
		slog.String("session_id", evt.SessionID),
		slog.String("client_id", c.ID),
		slog.Int("participants", count))
}

func (s *Synchronizer) handleLeave(c *Client, raw []byte) {
	var evt LeaveEvent
	if !s.decode(c, raw, &evt) || !s.requireSession(c, evt.SessionID) {
		return
	}
	s.leave(c, ID(evt.SessionID))
}

func (s *Synchronizer) leave(c *Client, id ID) {
	s.hub.LeaveSession(c, id)
	count := s.registry.DecrementParticipants(id)

	s.hub.Broadcast(id, ParticipantLeftEvent{
		Type:             EventParticipantLeft,
		ParticipantCount: count,
	}, "")

	s.log.Info("participant left",
		slog.String("session_id", string(id)),
		slog.String("client_id", c.ID),
		slog.Int("participants", count))
}

func (s *Synchronizer) handleGetState(c *Client, raw []byte) {
	var evt GetStateEvent
	if !s.decode(c, raw, &evt) || !s.requireSession(c, evt.SessionID) {
		return
	}

	sess, ok := s.registry.Get(ID(evt.SessionID))
	if !ok {
		c.Send(ErrorEvent{Type: EventError, Message: "unknown session: " + evt.SessionID})
		return
	}
	c.Send(SnapshotEvent{Type: EventSnapshot, Snapshot: sess.Snapshot()})
}

func (s *Synchronizer) handleSetMedia(c *Client, raw []byte) {
	var evt SetMediaEvent
	if !s.decode(c, raw, &evt) || !s.requireSession(c, evt.SessionID) {
		return
	}
	if evt.URL == "" {
		c.Send(ErrorEvent{Type: EventError, Message: "set-media requires a url"})
		return
	}
	s.PublishMedia(ID(evt.SessionID), evt.URL)
}

// PublishMedia records a session's new media URL and announces it to the
// whole session, the setter included. Also used by the out-of-band HTTP
// media endpoint.
func (s *Synchronizer) PublishMedia(id ID, url string) {
	s.registry.SetMedia(id, url)
	s.hub.Broadcast(id, MediaChangedEvent{Type: EventMediaChanged, URL: url}, "")

	s.log.Info("media changed",
		slog.String("session_id", string(id)),
		slog.String("url", url))
}

func (s *Synchronizer) handleStateTick(c *Client, raw []byte) {
	var evt StateTickEvent
	if !s.decode(c, raw, &evt) || !s.requireSession(c, evt.SessionID) {
		return
	}

	id := ID(evt.SessionID)
	s.registry.SetPlaybackState(id, evt.Playing, evt.Position)

	// Exclude the sender's connection; the origin tag in the payload lets a
	// reconnected sender discard its own update as well.
	s.hub.Broadcast(id, StateBroadcastEvent{
		Type:     EventStateBroadcast,
		Playing:  evt.Playing,
		Position: evt.Position,
		SenderID: evt.SenderID,
	}, c.ID)
}

func (s *Synchronizer) handleForceSync(c *Client, raw []byte) {
	var evt ForceSyncEvent
	if !s.decode(c, raw, &evt) || !s.requireSession(c, evt.SessionID) {
		return
	}

	s.hub.Broadcast(ID(evt.SessionID), SyncNowEvent{
		Type:     EventSyncNow,
		Position: evt.Position,
		SenderID: evt.SenderID,
	}, c.ID)
}

func (s *Synchronizer) handleChat(c *Client, raw []byte) {
	var evt ChatEvent
	if !s.decode(c, raw, &evt) || !s.requireSession(c, evt.SessionID) {
		return
	}

	author := evt.DisplayName
	if author == "" {
		author = c.DisplayName
	}

	msg := ChatMessage{
		MessageID: uuid.NewString(),
		Text:      evt.Text,
		Author:    author,
		SenderID:  evt.SenderID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	s.hub.Broadcast(ID(evt.SessionID), ChatBroadcastEvent{
		Type:    EventChatBroadcast,
		Message: msg,
	}, c.ID)
}

func (s *Synchronizer) decode(c *Client, raw []byte, evt any) bool {
	if err := json.Unmarshal(raw, evt); err != nil {
		s.log.Debug("invalid event payload",
			slog.String("client_id", c.ID),
			slog.String("error", err.Error()))
		c.Send(ErrorEvent{Type: EventError, Message: "invalid event payload"})
		return false
	}
	return true
}

func (s *Synchronizer) requireSession(c *Client, sessionID string) bool {
	if sessionID == "" {
		c.Send(ErrorEvent{Type: EventError, Message: "sessionId is required"})
		return false
	}
	return true
}
