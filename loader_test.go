package suit

import (
	"context"
	"strings"
	"testing"

	"github.com/pthm/suit/lib/dom"
)

const nestedPage = `
<div id="outer" class="ui-container" data-template-name="outer">
  <div id="inner" class="ui-container" data-template-name="inner"></div>
</div>
<div id="sibling" class="ui-container" data-template-name="inner"></div>`

func TestLoadPostOrder(t *testing.T) {
	rt, _ := newObservedRuntime(t, nestedPage)
	var log []string
	rt.Register("outer", Markup(greeting), WithFactory(recorderFactory(&log)))
	rt.Register("inner", Markup(greeting), WithFactory(recorderFactory(&log)))

	report := rt.Load(context.Background())

	if got := strings.Join(log, ","); got != "inner,outer,inner" {
		t.Errorf("activation order = %s, want inner,outer,inner", got)
	}
	if len(report.Activated) != 3 {
		t.Errorf("Activated = %d, want 3", len(report.Activated))
	}
	for _, sel := range []string{"#outer", "#inner", "#sibling"} {
		if !IsLoaded(mustQuery(t, rt, sel)) {
			t.Errorf("%s not flagged loaded", sel)
		}
	}
}

func TestLoadIdempotent(t *testing.T) {
	rt, _ := newObservedRuntime(t, nestedPage)
	var log []string
	rt.Register("outer", Markup(greeting), WithFactory(recorderFactory(&log)))
	rt.Register("inner", Markup(greeting), WithFactory(recorderFactory(&log)))

	ctx := context.Background()
	rt.Load(ctx)
	first := mustAPI(t, rt, "#outer")

	report := rt.Load(ctx)
	if len(report.Activated) != 0 {
		t.Errorf("second pass activated %d widgets", len(report.Activated))
	}
	if report.Skipped != 3 {
		t.Errorf("Skipped = %d, want 3", report.Skipped)
	}
	if len(log) != 3 {
		t.Errorf("CreateListeners ran %d times, want 3", len(log))
	}
	if mustAPI(t, rt, "#outer") != first {
		t.Error("second pass replaced the widget")
	}
}

func TestLoadMissingTemplate(t *testing.T) {
	rt, logs := newObservedRuntime(t, `
<div id="ghost" class="ui-container" data-template-name="ghost">
  <div id="inner" class="ui-container" data-template-name="inner"></div>
</div>`)
	var log []string
	rt.Register("inner", Markup(greeting), WithFactory(recorderFactory(&log)))

	report := rt.Load(context.Background())

	if strings.Join(report.Missing, ",") != "ghost" {
		t.Errorf("Missing = %v, want [ghost]", report.Missing)
	}
	if IsLoaded(mustQuery(t, rt, "#ghost")) {
		t.Error("container without template flagged loaded")
	}
	if !IsLoaded(mustQuery(t, rt, "#inner")) {
		t.Error("nested container should still load")
	}
	if n := logs.FilterMessage("no template for container").Len(); n != 1 {
		t.Errorf("warned %d times, want 1", n)
	}
}

func TestLoadReusesBoundAPI(t *testing.T) {
	rt, _ := newObservedRuntime(t, `<div id="w" class="ui-container" data-template-name="w"></div>`)
	var log []string
	rt.Register("w", Markup(greeting), WithFactory(recorderFactory(&log)))

	ctx := context.Background()
	rt.Load(ctx)
	api := mustAPI(t, rt, "#w")

	// Clearing the flag makes the loader revisit the container; the bound
	// widget is kept and set up again.
	dom.RemoveAttr(mustQuery(t, rt, "#w"), AttrLoaded)
	rt.Load(ctx)

	if mustAPI(t, rt, "#w") != api {
		t.Error("loader built a new widget for a bound container")
	}
	if len(log) != 2 {
		t.Errorf("CreateListeners ran %d times, want 2", len(log))
	}
}

func TestLoadKeepsEarlyBindings(t *testing.T) {
	rt, _ := newObservedRuntime(t, `<div id="w" class="ui-container" data-template-name="w"><a></a></div>`)
	rt.Register("w", Markup(greeting))
	w := mustQuery(t, rt, "#w")

	calls := 0
	if err := rt.ConnectOn(ElementRef(w), "click", "a", func(*dom.Event) { calls++ }); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	rt.Load(ctx)

	rt.Trigger(mustQuery(t, rt, "#w a"), "click", nil)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	// Reactivating a bound container starts its listeners afresh.
	dom.RemoveAttr(w, AttrLoaded)
	rt.Load(ctx)
	if n := rt.Document().Listeners(w); n != 0 {
		t.Errorf("container has %d bindings after reactivation, want 0", n)
	}
}

func TestLoadWithoutFactory(t *testing.T) {
	rt, _ := newObservedRuntime(t, `<div id="plain" class="ui-container" data-template-name="plain"></div>`)
	rt.Register("plain", Markup(greeting))

	rt.Load(context.Background())

	api := mustAPI(t, rt, "#plain")
	if api.Impl() != nil {
		t.Errorf("Impl = %v, want nil without factory", api.Impl())
	}
	if !strings.HasPrefix(api.ID(), "api.") {
		t.Errorf("ID = %q", api.ID())
	}
}

func TestListenerErrorIsPublished(t *testing.T) {
	rt, logs := newObservedRuntime(t, `<div class="ui-container" data-template-name="bad"></div>`)
	rt.Register("bad", Markup(greeting), WithFactory(func(api *API) any {
		return ListenersFunc(func(context.Context) error { return ErrNotMounted })
	}))

	var published []any
	rt.Errors().On(ErrorTypeUnknown, func(d any) { published = append(published, d) })

	report := rt.Load(context.Background())

	if len(report.Activated) != 1 {
		t.Errorf("failing listener setup must not abort activation")
	}
	if len(published) != 1 || published[0] != ErrNotMounted {
		t.Errorf("published = %v", published)
	}
	if logs.FilterMessage("create listeners failed").Len() != 1 {
		t.Error("failure not logged")
	}
}
