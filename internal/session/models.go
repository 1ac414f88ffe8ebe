package session

import "time"

// ID uniquely identifies a watch session (a room sharing one playback timeline).
type ID string

// Session is the authoritative per-room playback state. It is created lazily
// on first join or first media-set and removed when the last participant
// leaves. Mutated only through the Registry.
type Session struct {
	ID           ID
	MediaURL     string
	Playing      bool
	Position     float64
	Participants int
	LastUpdated  time.Time
}

// Snapshot is the wire form of a session sent to a joining participant.
type Snapshot struct {
	VideoURL         string  `json:"videoUrl"`
	Playing          bool    `json:"playing"`
	Position         float64 `json:"position"`
	ParticipantCount int     `json:"participantCount"`
}

// Snapshot converts a session into its wire form.
func (s Session) Snapshot() Snapshot {
	return Snapshot{
		VideoURL:         s.MediaURL,
		Playing:          s.Playing,
		Position:         s.Position,
		ParticipantCount: s.Participants,
	}
}

// ChatMessage is a pass-through broadcast object; never persisted.
// SenderID is the client-declared identity, stable across reconnects, which
// receivers use together with the connection id to deduplicate.
type ChatMessage struct {
	MessageID string `json:"id"`
	Text      string `json:"text"`
	Author    string `json:"author"`
	SenderID  string `json:"senderId"`
	Timestamp string `json:"timestamp"`
}
