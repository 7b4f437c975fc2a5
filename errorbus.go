package suit

import "fmt"

// Wildcard registers the fallback handler of an ErrorDispatcher.
const Wildcard = "*"

// Error types published by the runtime and its transport collaborators.
const (
	ErrorTypeUnknown       = "UnknownError"
	ErrorTypeTransport     = "TransportFailure"
	ErrorTypeRefreshFailed = "RefreshFailed"
)

// Error is a typed failure routed through an ErrorDispatcher.
type Error struct {
	Type string
	Data any
}

func (e Error) Error() string {
	if err, ok := e.Data.(error); ok {
		return fmt.Sprintf("%s: %v", e.Type, err)
	}
	if e.Data == nil {
		return e.Type
	}
	return fmt.Sprintf("%s: %v", e.Type, e.Data)
}

// Unwrap exposes a wrapped error carried as Data.
func (e Error) Unwrap() error {
	err, _ := e.Data.(error)
	return err
}

// ErrorDispatcher routes typed errors to handlers registered for their type,
// with one fallback for types never registered.
type ErrorDispatcher struct {
	bus      *EventBus
	known    map[string]bool
	fallback Callback
}

// NewErrorDispatcher creates a dispatcher whose internal bus gates delivery
// with live.
func NewErrorDispatcher(live Liveness) *ErrorDispatcher {
	return &ErrorDispatcher{
		bus:   NewEventBus(live),
		known: make(map[string]bool),
	}
}

// On registers handler for errType. Registering Wildcard replaces the
// fallback handler; any other type becomes known and keeps every handler
// registered for it.
func (d *ErrorDispatcher) On(errType string, handler Callback) {
	if errType == Wildcard {
		d.fallback = handler
		return
	}
	d.known[errType] = true
	d.bus.On(errType, nil, handler)
}

// OnFor is On with a subscriber reference: the handler stops receiving
// errors once subscriber leaves the document. The type stays known.
func (d *ErrorDispatcher) OnFor(errType string, subscriber Ref, handler Callback) {
	if errType == Wildcard {
		d.fallback = handler
		return
	}
	d.known[errType] = true
	d.bus.On(errType, subscriber, handler)
}

// Broadcast publishes err.Data to the handlers of err.Type. The fallback
// receives it only when err.Type was never registered; the current number
// of handlers does not matter.
func (d *ErrorDispatcher) Broadcast(err Error) {
	d.bus.Broadcast(err.Type, err.Data)
	if !d.known[err.Type] && d.fallback != nil {
		d.fallback(err.Data)
	}
}

// Known reports whether errType was ever registered.
func (d *ErrorDispatcher) Known(errType string) bool {
	return d.known[errType]
}
