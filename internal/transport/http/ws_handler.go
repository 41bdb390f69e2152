package http

import (
	"errors"
	"log"
	"net/http"
	"time"

	"quiz-ranking-service/internal/domain"
	"quiz-ranking-service/internal/ranking"
	"github.com/gorilla/websocket"
)

// LiveHandler streams leaderboard frames over a websocket while a
// challenge is live, then a final frame once it has been archived.
type LiveHandler struct {
	leaderboards *ranking.LeaderboardService
	interval     time.Duration
	upgrader     websocket.Upgrader
}

func NewLiveHandler(leaderboards *ranking.LeaderboardService, interval time.Duration) *LiveHandler {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &LiveHandler{
		leaderboards: leaderboards,
		interval:     interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ServeWS upgrades GET /challenge/live?challengeId=&userId= and pushes the
// resolved leaderboard on a fixed cadence. userId is optional.
func (h *LiveHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	challengeID := r.URL.Query().Get("challengeId")
	if challengeID == "" {
		http.Error(w, "missing challengeId", http.StatusBadRequest)
		return
	}
	userID := r.URL.Query().Get("userId")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Reader goroutine only detects client disconnects; inbound frames are ignored.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if !h.push(conn, r, challengeID, userID) {
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if !h.push(conn, r, challengeID, userID) {
				return
			}
		}
	}
}

// push sends one leaderboard frame and reports whether streaming should
// continue. The stream ends with a "final" frame once every entry carries
// an archived rank, which happens on the first resolve after expiry.
func (h *LiveHandler) push(conn *websocket.Conn, r *http.Request, challengeID, userID string) bool {
	view, err := h.leaderboards.ResolveLeaderboard(r.Context(), challengeID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrChallengeNotFound) {
			_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: err.Error()})
			return false
		}
		log.Printf("live leaderboard resolve failed: %v", err)
		return true // transient; keep the stream open
	}

	frameType := "leaderboard"
	if expired, err := h.leaderboards.IsExpired(r.Context(), challengeID); err == nil && expired {
		frameType = "final"
	}
	if err := conn.WriteJSON(outboundMessage{Type: frameType, Payload: view}); err != nil {
		return false
	}
	return frameType != "final"
}
