// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/chefzaid/travelmapster/internal/logging"
	ws "github.com/chefzaid/travelmapster/internal/websocket"
)

// wsMessage is one frame of the per-user feed.
type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Watch streams the caller's markers_changed notifications to onChange
// until ctx is canceled or the connection drops. It returns nil on
// cancellation.
func (c *Client) Watch(ctx context.Context, onChange func(ws.MarkersChangedData)) error {
	wsURL := *c.baseURL
	if wsURL.Scheme == "https" {
		wsURL.Scheme = "wss"
	} else {
		wsURL.Scheme = "ws"
	}
	wsURL.Path += "/api/v1/ws"

	dialer := websocket.Dialer{
		Jar:              c.httpClient.Jar,
		HandshakeTimeout: 10 * time.Second,
	}
	conn, resp, err := dialer.DialContext(ctx, wsURL.String(), nil)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return &StatusError{StatusCode: resp.StatusCode, Message: "websocket handshake rejected"}
		}
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("%w: websocket dial: %v", ErrUnreachable, err)
	}

	// Closing the connection unblocks ReadMessage on cancellation.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-stop:
			_ = conn.Close()
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("%w: websocket read: %v", ErrUnreachable, err)
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logging.Debug().Err(err).Msg("Ignoring malformed websocket frame")
			continue
		}
		if msg.Type != ws.MessageTypeMarkersChanged {
			continue
		}

		var change ws.MarkersChangedData
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &change); err != nil {
				logging.Debug().Err(err).Msg("Ignoring malformed markers_changed payload")
				continue
			}
		}
		onChange(change)
	}
}
