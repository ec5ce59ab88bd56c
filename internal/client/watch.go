package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/JaimeStill/glimpse/internal/comments"
)

// Watch streams changes to the thread for classificationID to fn until ctx
// is cancelled or the connection drops. It returns nil on cancellation.
func (c *Client) Watch(ctx context.Context, classificationID string, fn func(comments.StreamEvent)) error {
	token := c.currentToken()
	if token == "" {
		return ErrNotSignedIn
	}

	u := c.base.JoinPath(c.basePath, "/comments/stream")
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	q := url.Values{}
	q.Set("classification_id", classificationID)
	u.RawQuery = q.Encode()

	header := http.Header{"Authorization": {"Bearer " + token}}
	conn, resp, err := c.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return &APIError{Status: resp.StatusCode, Message: "stream rejected"}
		}
		return fmt.Errorf("dial comment stream: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	})
	defer stop()

	c.logger.Debug("watching thread", "classification_id", classificationID)

	for {
		var e comments.StreamEvent
		if err := conn.ReadJSON(&e); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read comment stream: %w", err)
		}
		fn(e)
	}
}
