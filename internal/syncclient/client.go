package syncclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"watchparty/internal/session"
)

// DefaultDriftThreshold is how far local playback may diverge from an
// authoritative position before the client seeks, in seconds.
const DefaultDriftThreshold = 0.5

// Config drives a Client. Zero values are replaced with defaults by Dial.
type Config struct {
	// URL is the realtime channel endpoint (ws:// or wss://).
	URL string

	// SessionID is the room to join.
	SessionID string

	// DisplayName is shown to other participants.
	DisplayName string

	// SenderID is the client-declared identity carried on every outbound
	// update and compared against inbound origin tags. Persist it across
	// reconnects to keep echo suppression and chat dedup working; if empty,
	// a fresh id is generated.
	SenderID string

	// DriftThreshold overrides DefaultDriftThreshold when > 0.
	DriftThreshold float64

	// Player is the local media surface. Required.
	Player Player

	// OnMediaChanged, OnSnapshot, OnChat, OnParticipants, and OnError are
	// optional callbacks for events the player itself cannot absorb.
	OnMediaChanged func(url string)
	OnSnapshot     func(session.Snapshot)
	OnChat         func(session.ChatMessage)
	OnParticipants func(count int)
	OnError        func(error)
}

func (c *Config) applyDefaults() {
	if c.SenderID == "" {
		c.SenderID = uuid.NewString()
	}
	if c.DriftThreshold <= 0 {
		c.DriftThreshold = DefaultDriftThreshold
	}
}

// Client keeps a local Player reconciled with a session's authoritative
// playback state. Self-originated updates reflected back through the
// broadcast fabric are discarded by origin tag before they touch the player.
type Client struct {
	cfg  Config
	conn *websocket.Conn

	// writeMu serializes outbound writes; the websocket connection allows
	// only one concurrent writer.
	writeMu sync.Mutex
}

// Dial connects to the realtime channel and joins the configured session.
// Call Run to start applying inbound events.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Player == nil {
		return nil, errors.New("syncclient: Player is required")
	}
	if cfg.URL == "" || cfg.SessionID == "" {
		return nil, errors.New("syncclient: URL and SessionID are required")
	}
	cfg.applyDefaults()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}

	c := &Client{cfg: cfg, conn: conn}

	if err := c.send(session.JoinEvent{
		Type:        session.EventJoin,
		SessionID:   cfg.SessionID,
		DisplayName: cfg.DisplayName,
		SenderID:    cfg.SenderID,
	}); err != nil {
		conn.Close()
		return nil, err
	}

	return c, nil
}

// SenderID returns the identity carried on this client's outbound updates.
func (c *Client) SenderID() string {
	return c.cfg.SenderID
}

// Run reads and applies inbound events until the connection fails or ctx is
// done. A connection failure is surfaced through OnError and returned; it is
// a recoverable condition the caller may answer by dialing again.
func (c *Client) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			err = fmt.Errorf("connection lost: %w", err)
			c.notifyError(err)
			return err
		}
		c.handle(raw)
	}
}

// Tick reports the player's current state to the session.
func (c *Client) Tick() error {
	return c.send(session.StateTickEvent{
		Type:      session.EventStateTick,
		SessionID: c.cfg.SessionID,
		Playing:   c.cfg.Player.Playing(),
		Position:  c.cfg.Player.Position(),
		SenderID:  c.cfg.SenderID,
	})
}

// ForceSync pulls every other participant to this player's position.
func (c *Client) ForceSync() error {
	return c.send(session.ForceSyncEvent{
		Type:      session.EventForceSync,
		SessionID: c.cfg.SessionID,
		Position:  c.cfg.Player.Position(),
		SenderID:  c.cfg.SenderID,
	})
}

// SetMedia changes the session's media URL for everyone.
func (c *Client) SetMedia(url string) error {
	return c.send(session.SetMediaEvent{
		Type:      session.EventSetMedia,
		SessionID: c.cfg.SessionID,
		URL:       url,
	})
}

// Chat sends a chat message to the rest of the session.
func (c *Client) Chat(text string) error {
	return c.send(session.ChatEvent{
		Type:        session.EventChat,
		SessionID:   c.cfg.SessionID,
		Text:        text,
		DisplayName: c.cfg.DisplayName,
		SenderID:    c.cfg.SenderID,
	})
}

// Leave departs the session without closing the connection.
func (c *Client) Leave() error {
	return c.send(session.LeaveEvent{
		Type:      session.EventLeave,
		SessionID: c.cfg.SessionID,
	})
}

// Close tears down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) send(message any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(message)
}

// handle applies one inbound event to the player and callbacks.
func (c *Client) handle(raw []byte) {
	var envelope session.Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		c.notifyError(fmt.Errorf("malformed event: %w", err))
		return
	}

	switch envelope.Type {
	case session.EventStateBroadcast:
		var evt session.StateBroadcastEvent
		if json.Unmarshal(raw, &evt) != nil {
			return
		}
		if evt.SenderID == c.cfg.SenderID {
			return
		}
		c.applyState(evt.Playing, evt.Position)

	case session.EventSyncNow:
		var evt session.SyncNowEvent
		if json.Unmarshal(raw, &evt) != nil {
			return
		}
		if evt.SenderID == c.cfg.SenderID {
			return
		}
		c.cfg.Player.Seek(evt.Position)

	case session.EventSnapshot:
		var evt session.SnapshotEvent
		if json.Unmarshal(raw, &evt) != nil {
			return
		}
		c.cfg.Player.Seek(evt.Position)
		c.alignPlayback(evt.Playing)
		if c.cfg.OnSnapshot != nil {
			c.cfg.OnSnapshot(evt.Snapshot)
		}

	case session.EventMediaChanged:
		var evt session.MediaChangedEvent
		if json.Unmarshal(raw, &evt) != nil {
			return
		}
		if c.cfg.OnMediaChanged != nil {
			c.cfg.OnMediaChanged(evt.URL)
		}

	case session.EventParticipantJoined:
		var evt session.ParticipantJoinedEvent
		if json.Unmarshal(raw, &evt) != nil {
			return
		}
		if c.cfg.OnParticipants != nil {
			c.cfg.OnParticipants(evt.ParticipantCount)
		}

	case session.EventParticipantLeft:
		var evt session.ParticipantLeftEvent
		if json.Unmarshal(raw, &evt) != nil {
			return
		}
		if c.cfg.OnParticipants != nil {
			c.cfg.OnParticipants(evt.ParticipantCount)
		}

	case session.EventChatBroadcast:
		var evt session.ChatBroadcastEvent
		if json.Unmarshal(raw, &evt) != nil {
			return
		}
		// A reconnect changes the connection identity but not the declared
		// sender id, so dedupe on the declared id.
		if evt.Message.SenderID == c.cfg.SenderID {
			return
		}
		if c.cfg.OnChat != nil {
			c.cfg.OnChat(evt.Message)
		}

	case session.EventError:
		var evt session.ErrorEvent
		if json.Unmarshal(raw, &evt) != nil {
			return
		}
		c.notifyError(errors.New(evt.Message))
	}
}

// applyState reconciles local playback against an authoritative update: seek
// only when drift exceeds the threshold, then align the play/pause state.
func (c *Client) applyState(playing bool, position float64) {
	if math.Abs(c.cfg.Player.Position()-position) > c.cfg.DriftThreshold {
		c.cfg.Player.Seek(position)
	}
	c.alignPlayback(playing)
}

func (c *Client) alignPlayback(playing bool) {
	switch {
	case playing && !c.cfg.Player.Playing():
		c.cfg.Player.Play()
	case !playing && c.cfg.Player.Playing():
		c.cfg.Player.Pause()
	}
}

func (c *Client) notifyError(err error) {
	if c.cfg.OnError != nil {
		c.cfg.OnError(err)
	}
}
