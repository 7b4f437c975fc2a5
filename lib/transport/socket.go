package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pthm/suit"
)

// Local events broadcast on Socket.Events.
const (
	EventOpen    = "onopen"
	EventMessage = "onmessage"
	EventClose   = "onclose"
)

// Socket is a websocket push channel. Every JSON message is handed to the
// runtime as a completion, then broadcast locally as EventMessage and,
// when it carries a "ws"."event" discriminator, under that name too.
type Socket struct {
	d      Dispatcher
	s      *settings
	url    string
	conn   *websocket.Conn
	events *suit.EventBus

	writeMu sync.Mutex
	closed  bool
}

// Dial opens a websocket to target.
func Dial(ctx context.Context, target string, d Dispatcher, opts ...Option) (*Socket, error) {
	s := newSettings(opts)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	conn, resp, err := s.dialer.DialContext(ctx, target, http.Header{})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		wrapped := fmt.Errorf("%w: dial %s: %v", suit.ErrTransport, target, err)
		s.logger.Warn("websocket dial failed", zap.String("url", target), zap.Error(err))
		d.Fail(suit.Error{Type: suit.ErrorTypeUnknown, Data: wrapped})
		return nil, wrapped
	}

	return &Socket{
		d:      d,
		s:      s,
		url:    target,
		conn:   conn,
		events: suit.NewEventBus(d.Live),
	}, nil
}

// Events returns the socket's local bus.
func (sk *Socket) Events() *suit.EventBus {
	return sk.events
}

// Run broadcasts EventOpen, then reads and dispatches messages until the
// connection closes or ctx is done, and finally broadcasts EventClose with
// the terminating error (nil on a normal close). A malformed message is
// published as an error and skipped.
func (sk *Socket) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		sk.Close()
	})
	defer stop()

	sk.events.Broadcast(EventOpen, sk.url)

	var runErr error
	for {
		_, message, err := sk.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil && !sk.isClosed() {
				runErr = fmt.Errorf("%w: read %s: %v", suit.ErrTransport, sk.url, err)
				sk.s.logger.Warn("websocket read failed", zap.String("url", sk.url), zap.Error(err))
				sk.d.Fail(suit.Error{Type: suit.ErrorTypeUnknown, Data: runErr})
			}
			break
		}
		sk.dispatch(message)
	}

	sk.Close()
	sk.events.Broadcast(EventClose, runErr)
	if runErr == nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return runErr
}

func (sk *Socket) dispatch(message []byte) {
	comp, err := suit.ParseCompletion(message)
	if err != nil {
		sk.s.logger.Warn("malformed websocket message", zap.String("url", sk.url), zap.Error(err))
		sk.d.Fail(suit.Error{Type: suit.ErrorTypeUnknown, Data: fmt.Errorf("%w: %v", suit.ErrTransport, err)})
		return
	}

	if sk.s.suppress == nil || !sk.s.suppress(comp) {
		sk.d.Complete(comp)
	}
	sk.events.Broadcast(EventMessage, comp)
	if comp.Event != "" {
		sk.events.Broadcast(comp.Event, comp)
	}
}

// Send writes data as a JSON text message with its "action" key set. data
// may be nil. Send is safe to call from any goroutine.
func (sk *Socket) Send(action string, data map[string]any) error {
	msg := make(map[string]any, len(data)+1)
	for k, v := range data {
		msg[k] = v
	}
	msg["action"] = action

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("transport: encode %q: %w", action, err)
	}

	sk.writeMu.Lock()
	defer sk.writeMu.Unlock()
	if sk.closed {
		return fmt.Errorf("%w: socket closed", suit.ErrTransport)
	}
	if err := sk.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("%w: write %s: %v", suit.ErrTransport, sk.url, err)
	}
	return nil
}

// Close sends a close frame and closes the connection. It is idempotent.
func (sk *Socket) Close() error {
	sk.writeMu.Lock()
	if sk.closed {
		sk.writeMu.Unlock()
		return nil
	}
	sk.closed = true
	_ = sk.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	sk.writeMu.Unlock()

	if err := sk.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (sk *Socket) isClosed() bool {
	sk.writeMu.Lock()
	defer sk.writeMu.Unlock()
	return sk.closed
}
