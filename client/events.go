package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/linesmerrill/legal-case-api/models"
)

// WatchCases subscribes to the case event stream. The returned channel is
// closed when ctx ends or the connection drops.
func (c *Client) WatchCases(ctx context.Context) (<-chan models.CaseEvent, error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/api/cases/events"
	header := http.Header{}
	if tok := c.Token(); tok != "" {
		header.Set("Authorization", "Bearer "+tok)
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.http.Timeout}
	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, decodeError(resp)
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	events := make(chan models.CaseEvent)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()
	go func() {
		defer close(events)
		defer close(done)
		for {
			var ev models.CaseEvent
			if err := conn.ReadJSON(&ev); err != nil {
				if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					zap.S().Warnw("case event stream ended", "error", err)
				}
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}
