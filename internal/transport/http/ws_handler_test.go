package http

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestLiveStreamDeliversFrames(t *testing.T) {
	server := newTestServer(t, time.Now().Add(time.Hour))

	u := "ws" + server.URL[len("http"):] + "/challenge/live?challengeId=challenge-1&userId=u1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	typ, payload := readFrame(conn, t)
	if typ != "leaderboard" {
		t.Fatalf("expected leaderboard frame, got %s", typ)
	}
	if payload == nil {
		t.Fatalf("expected leaderboard payload")
	}

	// The ticker keeps frames coming while the challenge is live.
	typ, _ = readFrame(conn, t)
	if typ != "leaderboard" {
		t.Fatalf("expected second leaderboard frame, got %s", typ)
	}
}

func TestLiveStreamEndsWithFinalFrame(t *testing.T) {
	// Already-expired challenge: the stream resolves the archived view
	// once, tags it final, and stops.
	server := newTestServer(t, time.Now().Add(-time.Minute))

	u := "ws" + server.URL[len("http"):] + "/challenge/live?challengeId=challenge-1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	typ, payload := readFrame(conn, t)
	if typ != "final" {
		t.Fatalf("expected final frame, got %s", typ)
	}
	entries, ok := payload["topEntries"].([]interface{})
	if !ok || len(entries) != 2 {
		t.Fatalf("expected archived top entries in final frame, got %v", payload["topEntries"])
	}
}

func TestLiveStreamUnknownChallenge(t *testing.T) {
	server := newTestServer(t, time.Now().Add(time.Hour))

	u := "ws" + server.URL[len("http"):] + "/challenge/live?challengeId=nope"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	typ, _ := readFrame(conn, t)
	if typ != "error" {
		t.Fatalf("expected error frame, got %s", typ)
	}
}

func readFrame(conn *websocket.Conn, t *testing.T) (string, map[string]interface{}) {
	t.Helper()
	var msg struct {
		Type    string      `json:"type"`
		Payload interface{} `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	payload, _ := msg.Payload.(map[string]interface{})
	return msg.Type, payload
}
