package suit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pthm/suit/lib/dom"
	"github.com/pthm/suit/lib/encoding"
)

func TestGreetingEndToEnd(t *testing.T) {
	rt, _ := newObservedRuntime(t, ``)
	rt.Register("greeting", Markup(func(d Data) string { return "Hello " + d["name"].(string) }))
	ctx := context.Background()

	if _, err := rt.Mount(ctx, nil, "greeting", Data{"name": "Ann"}); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	out, err := rt.Template("greeting").Execute(ctx, Data{"name": "Ann"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "Hello Ann" {
		t.Errorf("Execute = %q, want %q", out, "Hello Ann")
	}
	if !strings.Contains(BodyHTML(rt), "Hello Ann") {
		t.Errorf("mounted markup = %s", BodyHTML(rt))
	}

	api, err := rt.Template("greeting").API()
	if err != nil {
		t.Fatal(err)
	}
	if !api.Mounted() {
		t.Error("Template.API should return the mounted widget")
	}
}

// envPage has one container depending on a, one on b, and a region
// depending on b inside a container depending on nothing.
const envPage = `
<div id="wa" class="ui-container" data-template-name="show" auto-refresh="a"></div>
<div id="wb" class="ui-container" data-template-name="show" auto-refresh="b"></div>
<div id="host" class="ui-container" data-template-name="host">
  <div class="data-container" data-part-name="left"></div>
  <div class="data-container" data-part-name="right" auto-refresh="b"></div>
</div>`

func envRuntime(t *testing.T, opts ...Option) (*Runtime, map[string]int) {
	t.Helper()
	rt, _ := newObservedRuntime(t, envPage, opts...)
	renders := make(map[string]int)
	rt.Register("show", Markup(func(d Data) string {
		renders["show"]++
		return fmt.Sprintf(`<i>%v/%v</i>`, d["a"], d["b"])
	}))
	rt.Register("host", Markup(func(d Data) string {
		renders["host"]++
		return fmt.Sprintf(`<div class="ui-container" data-template-name="host">`+
			`<div class="data-container" data-part-name="left">L%v</div>`+
			`<div class="data-container" data-part-name="right" auto-refresh="b">R%v</div></div>`, d["a"], d["b"])
	}))
	rt.Load(context.Background())
	return rt, renders
}

func TestEnvironmentDiffRefreshesDependents(t *testing.T) {
	rt, renders := envRuntime(t)
	if err := rt.Env().Seed([]byte(`{"a": 1, "b": 2}`)); err != nil {
		t.Fatal(err)
	}

	changed := rt.Env().Merge(Data{"a": 1, "b": 5})
	if strings.Join(changed, ",") != "b" {
		t.Fatalf("changed = %v, want [b]", changed)
	}

	targets := rt.Dependents(changed)
	if len(targets) != 2 {
		t.Fatalf("targets = %+v", targets)
	}
	if targets[0].Container != mustQuery(t, rt, "#wb") || targets[0].Region != "" {
		t.Errorf("first target = %+v, want #wb", targets[0])
	}
	if targets[1].Container != mustQuery(t, rt, "#host") || targets[1].Region != "right" {
		t.Errorf("second target = %+v, want host/right", targets[1])
	}
	if renders["show"] != 0 {
		t.Error("Merge alone must not refresh")
	}
}

func TestEnvironmentAutoRefresh(t *testing.T) {
	rt, renders := envRuntime(t)
	if err := rt.Env().Seed([]byte(`{"a": 1, "b": 2}`)); err != nil {
		t.Fatal(err)
	}

	rt.Complete(Completion{Result: Data{"a": 1, "b": 5}})

	if renders["show"] != 1 || renders["host"] != 1 {
		t.Errorf("renders = %v, want one refresh each", renders)
	}
	if got := text(t, rt, "#wb"); got != "1/5" {
		t.Errorf("#wb = %q, want 1/5", got)
	}
	if got := text(t, rt, "#wa"); got != "" {
		t.Errorf("#wa should be untouched, got %q", got)
	}
	if got := text(t, rt, `[data-part-name="right"]`); got != "R5" {
		t.Errorf("right region = %q, want R5", got)
	}
	if got := text(t, rt, `[data-part-name="left"]`); got != "" {
		t.Errorf("left region should be untouched, got %q", got)
	}
	if v, _ := rt.Env().Get("b"); v != 5 {
		t.Errorf("env b = %v", v)
	}
}

func TestEnvironmentNumericEquality(t *testing.T) {
	rt, renders := envRuntime(t)
	if err := rt.Env().Seed([]byte(`{"a": 1, "b": 2}`)); err != nil {
		t.Fatal(err)
	}
	// Seeded values decode as float64; an int result with the same value
	// is not a change.
	rt.Complete(Completion{Result: Data{"b": 2}})
	if renders["show"] != 0 {
		t.Error("equal value triggered a refresh")
	}
}

func TestEnvironmentAbsentKeys(t *testing.T) {
	tests := []struct {
		name  string
		adopt bool
		want  string
	}{
		{"ignored by default", false, ""},
		{"adopted when enabled", true, "c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, _ := newObservedRuntime(t, ``, WithAdoptNewKeys(tt.adopt))
			if err := rt.Env().SeedData(Data{"a": 1}); err != nil {
				t.Fatal(err)
			}
			changed := rt.Env().Merge(Data{"c": true})
			if strings.Join(changed, ",") != tt.want {
				t.Errorf("changed = %v, want %q", changed, tt.want)
			}
			_, ok := rt.Env().Get("c")
			if ok != tt.adopt {
				t.Errorf("key c present = %v", ok)
			}
		})
	}
}

func TestEnvironmentBootstrapFailure(t *testing.T) {
	rt, logs := newObservedRuntime(t, envPage)

	err := rt.Env().Seed([]byte(`{"a": `))
	if !errors.Is(err, ErrBootstrap) {
		t.Fatalf("expected bootstrap error, got %v", err)
	}
	if rt.Env().Enabled() {
		t.Error("store enabled after malformed payload")
	}
	if logs.FilterMessage("environment loading failed").Len() != 1 {
		t.Error("failure not logged")
	}

	// Disabled for the lifetime of the runtime.
	if err := rt.Env().Seed([]byte(`{"a": 1}`)); err == nil {
		t.Error("second seed accepted")
	}
	rt.Complete(Completion{Result: Data{"b": 9}})
	if rt.Env().Merge(Data{"b": 9}) != nil {
		t.Error("disabled store merged")
	}
}

func TestEnvironmentSeedVariants(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		ok      bool
	}{
		{"object", `{"a": 1}`, true},
		{"comments and trailing comma", "{\n// note\n\"a\": 1,\n}", true},
		{"array", `[1, 2]`, false},
		{"null", `null`, false},
		{"garbage", `<html>`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, _ := newObservedRuntime(t, ``)
			err := rt.Env().Seed([]byte(tt.payload))
			if (err == nil) != tt.ok || rt.Env().Enabled() != tt.ok {
				t.Errorf("Seed(%s) err=%v enabled=%v", tt.payload, err, rt.Env().Enabled())
			}
		})
	}
}

func TestEnvironmentSeedSealed(t *testing.T) {
	enc, err := encoding.NewEncoder([]byte("page-secret"))
	if err != nil {
		t.Fatal(err)
	}
	for _, sensitive := range []bool{false, true} {
		token, err := enc.Seal(map[string]any{"a": 1, "b": "x"}, sensitive)
		if err != nil {
			t.Fatal(err)
		}

		rt, _ := newObservedRuntime(t, ``)
		if err := rt.Env().SeedSealed(enc, token); err != nil {
			t.Fatalf("SeedSealed(sensitive=%v): %v", sensitive, err)
		}
		// The sealed integer comes back as int64 and still compares equal.
		if changed := rt.Env().Merge(Data{"a": 1, "b": "y"}); strings.Join(changed, ",") != "b" {
			t.Errorf("changed = %v, want [b]", changed)
		}
	}

	rt, _ := newObservedRuntime(t, ``)
	if err := rt.Env().SeedSealed(enc, "tampered.token"); err == nil {
		t.Error("tampered token accepted")
	}
	if rt.Env().Enabled() {
		t.Error("store enabled after rejected token")
	}
}

func TestEnvironmentRefreshFailureContinues(t *testing.T) {
	rt, logs := newObservedRuntime(t, `
<div id="broken" class="ui-container" data-template-name="broken" auto-refresh="k"></div>
<div id="ok" class="ui-container" data-template-name="ok" auto-refresh="k"></div>`)
	rt.Register("broken", Markup(func(d Data) string {
		if d["k"] == "v2" {
			return `<div class="data-container"></div>`
		}
		return ``
	}))
	rt.Register("ok", Markup(func(d Data) string { return fmt.Sprint(d["k"]) }))
	rt.Load(context.Background())

	var failures []any
	rt.Errors().On(ErrorTypeRefreshFailed, func(p any) { failures = append(failures, p) })

	if err := rt.Env().SeedData(Data{"k": "v1"}); err != nil {
		t.Fatal(err)
	}
	rt.Complete(Completion{Result: Data{"k": "v2"}})

	if len(failures) != 1 {
		t.Fatalf("failures = %v, want 1", failures)
	}
	if err, _ := failures[0].(error); !IsCompositionMismatch(err) {
		t.Errorf("failure = %v", failures[0])
	}
	if text(t, rt, "#ok") != "v2" {
		t.Error("dependent after the failing one was not refreshed")
	}
	if logs.FilterMessage("auto-refresh failed").Len() != 1 {
		t.Error("failure not logged")
	}
}

func TestEnvironmentTemplateDeps(t *testing.T) {
	rt, _ := newObservedRuntime(t, `<div id="c" class="ui-container" data-template-name="cart"></div>`)
	rt.Register("cart", Markup(func(d Data) string { return fmt.Sprint(d["total"]) }), WithDeps("total"))
	rt.Load(context.Background())
	if err := rt.Env().SeedData(Data{"total": 1}); err != nil {
		t.Fatal(err)
	}

	rt.Events().Broadcast(EventRequestCompleted, Data{"total": 2})

	if got := dom.Text(mustQuery(t, rt, "#c")); got != "2" {
		t.Errorf("cart = %q, want 2", got)
	}
}

func TestCompletionParsing(t *testing.T) {
	c, err := ParseCompletion([]byte(`{"result": {"a": 1}, "ws": {"event": "x"}, "extra": true}`))
	if err != nil {
		t.Fatal(err)
	}
	if c.Result["a"] != float64(1) || c.Event != "x" || c.Raw["extra"] != true {
		t.Errorf("completion = %+v", c)
	}

	for _, body := range []string{`[]`, `null`, `nope`} {
		if _, err := ParseCompletion([]byte(body)); err == nil {
			t.Errorf("ParseCompletion(%s) accepted", body)
		}
	}

	bare := CompletionFromMap(Data{"result": "not a map"})
	if bare.Result != nil {
		t.Errorf("non-object result kept: %v", bare.Result)
	}
}
