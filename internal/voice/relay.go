package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Stream message types. Client frames are audio, text, ping or end; the
// service answers with status, response, error, pong or complete.
const (
	MsgAudio    = "audio"
	MsgText     = "text"
	MsgPing     = "ping"
	MsgEnd      = "end"
	MsgStatus   = "status"
	MsgResponse = "response"
	MsgError    = "error"
	MsgPong     = "pong"
	MsgComplete = "complete"
)

// Upgrader accepts browser connections for the relay.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// MessageFunc observes the type of every text frame sent by the service.
type MessageFunc func(msgType string)

const closeWait = time.Second

// Relay dials upstream and copies frames in both directions between it and
// client until either side closes or ctx is done. Both connections are
// closed on return. A normal close from either side returns nil.
func Relay(ctx context.Context, client *websocket.Conn, upstream string, dialer *websocket.Dialer, onServer MessageFunc) error {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	up, resp, err := dialer.DialContext(ctx, upstream, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			err = ErrSessionNotFound
		}
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "voice service unavailable")
		_ = client.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait))
		client.Close()
		return fmt.Errorf("dial voice stream: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		errc <- pump(client, up, nil)
	}()
	go func() {
		defer wg.Done()
		errc <- pump(up, client, onServer)
	}()

	var first error
	select {
	case first = <-errc:
	case <-ctx.Done():
		first = ctx.Err()
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
		_ = client.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait))
		_ = up.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait))
	}
	client.Close()
	up.Close()
	wg.Wait()

	if isNormalClose(first) || errors.Is(first, context.Canceled) {
		return nil
	}
	return first
}

// pump copies frames from src to dst. A close received on src is forwarded.
func pump(src, dst *websocket.Conn, onText MessageFunc) error {
	for {
		mt, data, err := src.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				msg := websocket.FormatCloseMessage(ce.Code, ce.Text)
				if ce.Code == websocket.CloseNoStatusReceived {
					msg = websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				}
				_ = dst.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait))
			}
			return err
		}
		if mt == websocket.TextMessage && onText != nil {
			var m struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(data, &m) == nil && m.Type != "" {
				onText(m.Type)
			}
		}
		if err := dst.WriteMessage(mt, data); err != nil {
			return err
		}
	}
}

func isNormalClose(err error) bool {
	return err == nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}
