// Package transport connects a suit runtime to its backend.
//
// Client posts requests and uploads over HTTP; Socket keeps a websocket
// push channel open. Both decode every JSON response into a
// suit.Completion and hand it to the runtime, which broadcasts it as
// suit.EventRequestCompleted so the environment store can merge its result.
// Failures are published on the runtime error dispatcher as
// suit.ErrorTypeUnknown and returned wrapping suit.ErrTransport.
//
// Calls block the calling goroutine and dispatch on it, which keeps the
// runtime single-threaded.
package transport

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pthm/suit"
)

// Dispatcher receives the outcome of transport operations. *suit.Runtime
// implements it.
type Dispatcher interface {
	Complete(c suit.Completion)
	Fail(err suit.Error)
	Live(ref suit.Ref) bool
}

// Suppress decides whether a completion is kept from the runtime bus. The
// caller still receives it.
type Suppress func(c suit.Completion) bool

// Option configures a Client or Socket.
type Option func(*settings)

type settings struct {
	httpClient *http.Client
	dialer     *websocket.Dialer
	logger     *zap.Logger
	timeout    time.Duration
	suppress   Suppress
}

func defaultSettings() *settings {
	return &settings{
		httpClient: http.DefaultClient,
		dialer:     websocket.DefaultDialer,
		logger:     zap.NewNop(),
	}
}

func newSettings(opts []Option) *settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithHTTPClient sets the HTTP client used by Client.
// Defaults to http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithDialer sets the websocket dialer used by Dial.
// Defaults to websocket.DefaultDialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(s *settings) {
		if d != nil {
			s.dialer = d
		}
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTimeout bounds every request, and the websocket handshake. Zero
// means no bound beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.timeout = d
	}
}

// WithConfig applies the transport settings of cfg: request_timeout
// becomes the request bound. A config that fails validation leaves the
// settings unchanged.
func WithConfig(cfg *suit.Config) Option {
	return func(s *settings) {
		if cfg == nil {
			return
		}
		if d, err := cfg.Timeout(); err == nil {
			s.timeout = d
		}
	}
}

// WithSuppress installs a filter keeping matching completions off the
// runtime bus.
func WithSuppress(fn Suppress) Option {
	return func(s *settings) {
		s.suppress = fn
	}
}
