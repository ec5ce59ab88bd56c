package comments

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JaimeStill/glimpse/pkg/handlers"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Callers authenticate with a session token, not cookies.
	CheckOrigin: func(*http.Request) bool { return true },
}

// StreamEvent is a thread change annotated for the receiving caller.
type StreamEvent struct {
	Type    EventType `json:"type"`
	Comment View      `json:"comment"`
}

// Stream upgrades to a websocket and pushes every change to the thread named
// by the classification_id query parameter until the client goes away.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	classificationID, err := normalizeClassification(r.URL.Query().Get("classification_id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := h.sys.Subscribe(classificationID)
	defer sub.Close()

	h.logger.Debug("stream opened", "classification_id", classificationID, "user_id", actor.UserID)

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.logger.Debug("stream read failed", "error", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-sub.Events():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteJSON(StreamEvent{Type: e.Type, Comment: ViewFor(e.Comment, actor)}); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-gone:
			h.logger.Debug("stream closed", "classification_id", classificationID, "user_id", actor.UserID)
			return

		case <-r.Context().Done():
			return
		}
	}
}
