package session

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func TestHandler_SetMedia(t *testing.T) {
	srv, reg := newTestServer(t)

	a := dial(t, srv)
	join(t, a, "abc", "alice", "sender-a")

	const video = "http://h/a/b/master.m3u8"
	body := strings.NewReader(`{"url":"` + video + `","title":"Movie Night"}`)
	resp, err := http.Post(srv.URL+"/sessions/abc/media", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["sessionId"] != "abc" {
		t.Errorf("response sessionId = %q", out["sessionId"])
	}

	// Connected members are notified of the out-of-band change.
	var changed MediaChangedEvent
	json.Unmarshal(readEvent(t, a, EventMediaChanged), &changed)
	if changed.URL != video {
		t.Errorf("media-changed url = %q", changed.URL)
	}

	sess, ok := reg.Get(ID("abc"))
	if !ok || sess.MediaURL != video {
		t.Errorf("registry url = %q ok=%v", sess.MediaURL, ok)
	}
}

func TestHandler_SetMedia_missingURL(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/sessions/abc/media", "application/json", strings.NewReader(`{"title":"no url"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestHandler_SetMedia_invalidBody(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/sessions/abc/media", "application/json", strings.NewReader("not json"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}
