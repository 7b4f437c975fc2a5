package suit

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/net/html"
)

// recorder is a behaviour counting its listener setups.
type recorder struct {
	api   *API
	log   *[]string
	setup int
}

func (r *recorder) CreateListeners(ctx context.Context) error {
	r.setup++
	*r.log = append(*r.log, r.api.Template())
	return nil
}

func recorderFactory(log *[]string) Factory {
	return func(api *API) any {
		return &recorder{api: api, log: log}
	}
}

func newObservedRuntime(t *testing.T, body string, opts ...Option) (*Runtime, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	opts = append([]Option{WithLogger(zap.New(core))}, opts...)
	rt, err := NewTestRuntime(body, opts...)
	if err != nil {
		t.Fatalf("NewTestRuntime: %v", err)
	}
	return rt, logs
}

func mustQuery(t *testing.T, rt *Runtime, sel string) *html.Node {
	t.Helper()
	n, err := rt.Document().Query(nil, sel)
	if err != nil {
		t.Fatalf("query %q: %v", sel, err)
	}
	if n == nil {
		t.Fatalf("query %q matched nothing", sel)
	}
	return n
}

func mustAPI(t *testing.T, rt *Runtime, sel string) *API {
	t.Helper()
	api := rt.WidgetAt(mustQuery(t, rt, sel))
	if api == nil {
		t.Fatalf("no widget bound at %q", sel)
	}
	return api
}
