package session

// Realtime event types from the client.
const (
	EventJoin      = "join"
	EventLeave     = "leave"
	EventGetState  = "get-state"
	EventSetMedia  = "set-media"
	EventStateTick = "state-tick"
	EventForceSync = "force-sync"
	EventChat      = "chat"
)

// Realtime event types to the client.
const (
	EventSnapshot          = "session-snapshot"
	EventParticipantJoined = "participant-joined"
	EventParticipantLeft   = "participant-left"
	EventMediaChanged      = "media-changed"
	EventStateBroadcast    = "state-broadcast"
	EventSyncNow           = "sync-now"
	EventChatBroadcast     = "chat-broadcast"
	EventError             = "error"
)

// Envelope carries the type discriminator of every realtime message.
type Envelope struct {
	Type string `json:"type"`
}

// Client -> server events.

// JoinEvent registers the connection into a session. SenderID is the
// client-chosen identity persisted across reconnects.
type JoinEvent struct {
	Type        string `json:"type"`
	SessionID   string `json:"sessionId"`
	DisplayName string `json:"displayName"`
	SenderID    string `json:"senderId"`
}

// LeaveEvent removes the connection from a session.
type LeaveEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

// GetStateEvent requests a fresh session snapshot.
type GetStateEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

// SetMediaEvent changes the session's media URL.
type SetMediaEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// StateTickEvent reports the sender's current playback state.
type StateTickEvent struct {
	Type      string  `json:"type"`
	SessionID string  `json:"sessionId"`
	Playing   bool    `json:"playing"`
	Position  float64 `json:"position"`
	SenderID  string  `json:"senderId"`
}

// ForceSyncEvent pulls every other participant to the sender's position.
type ForceSyncEvent struct {
	Type      string  `json:"type"`
	SessionID string  `json:"sessionId"`
	Position  float64 `json:"position"`
	SenderID  string  `json:"senderId"`
}

// ChatEvent relays a chat message to the rest of the session.
type ChatEvent struct {
	Type        string `json:"type"`
	SessionID   string `json:"sessionId"`
	Text        string `json:"text"`
	DisplayName string `json:"displayName"`
	SenderID    string `json:"senderId"`
}

// Server -> client events.

// SnapshotEvent delivers the full authoritative session state.
type SnapshotEvent struct {
	Type string `json:"type"`
	Snapshot
}

// ParticipantJoinedEvent notifies existing members of a new participant.
type ParticipantJoinedEvent struct {
	Type             string `json:"type"`
	DisplayName      string `json:"displayName"`
	ParticipantCount int    `json:"participantCount"`
}

// ParticipantLeftEvent notifies remaining members of a departure.
type ParticipantLeftEvent struct {
	Type             string `json:"type"`
	ParticipantCount int    `json:"participantCount"`
}

// MediaChangedEvent announces the session's new media URL to every member,
// the setter included, since it is the source of truth for late joiners too.
type MediaChangedEvent struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// StateBroadcastEvent fans out a playback state update. SenderID is the
// origin tag: receivers discard updates carrying their own id, which makes
// echo suppression deterministic instead of timing-sensitive.
type StateBroadcastEvent struct {
	Type     string  `json:"type"`
	Playing  bool    `json:"playing"`
	Position float64 `json:"position"`
	SenderID string  `json:"senderId"`
}

// SyncNowEvent is an explicit jump-to-position directive, distinct from the
// ambient state broadcast.
type SyncNowEvent struct {
	Type     string  `json:"type"`
	Position float64 `json:"position"`
	SenderID string  `json:"senderId"`
}

// ChatBroadcastEvent delivers a chat message to session members.
type ChatBroadcastEvent struct {
	Type    string      `json:"type"`
	Message ChatMessage `json:"message"`
}

// ErrorEvent surfaces a recoverable failure to the client.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
