package suit

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Completion is the JSON-shaped value a finished network or push operation
// yields. Broadcasting it as EventRequestCompleted feeds Result into the
// environment store.
type Completion struct {
	// Result is the optional "result" mapping merged into the environment.
	Result Data
	// Event is the optional push-channel discriminator ("ws"."event").
	Event string
	// Raw is the whole decoded value.
	Raw Data
}

// ParseCompletion decodes a response body. The body must be a JSON object;
// "result" and "ws" are optional.
//
//	{"result": {"cart_total": 3}, "ws": {"event": "cart:updated"}}
func ParseCompletion(body []byte) (Completion, error) {
	var raw Data
	if err := json.Unmarshal(body, &raw); err != nil {
		return Completion{}, fmt.Errorf("suit: decode completion: %w", err)
	}
	if raw == nil {
		return Completion{}, fmt.Errorf("suit: decode completion: body is not an object")
	}
	return CompletionFromMap(raw), nil
}

// CompletionFromMap extracts the known fields of a decoded response.
func CompletionFromMap(raw Data) Completion {
	c := Completion{Raw: raw}
	if r, ok := raw["result"].(map[string]any); ok {
		c.Result = r
	}
	if ws, ok := raw["ws"].(map[string]any); ok {
		if ev, ok := ws["event"].(string); ok {
			c.Event = ev
		}
	}
	return c
}

// Complete broadcasts c as EventRequestCompleted on the runtime bus.
// Transport collaborators call it on the runtime goroutine when a request
// finishes.
func (rt *Runtime) Complete(c Completion) {
	rt.events.Broadcast(EventRequestCompleted, c)
}

// Fail publishes err on the runtime error dispatcher.
func (rt *Runtime) Fail(err Error) {
	rt.log.Debug("error published", zap.String("type", err.Type), zap.Any("data", err.Data))
	rt.errors.Broadcast(err)
}
