package suit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/a-h/templ"
)

func greeting(d Data) string {
	return fmt.Sprintf("Hello %v", d["name"])
}

func TestRegistryRender(t *testing.T) {
	reg := NewRegistry()
	reg.Register("greeting", Markup(greeting))

	out, err := reg.Render(context.Background(), "greeting", Data{"name": "Ann"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if out != "Hello Ann" {
		t.Errorf("Render = %q, want %q", out, "Hello Ann")
	}
}

func TestRegistryRenderNilData(t *testing.T) {
	reg := NewRegistry()
	var got Data
	reg.Register("probe", Markup(func(d Data) string {
		got = d
		return ""
	}))

	if _, err := reg.Render(context.Background(), "probe", nil); err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Error("template should receive an empty mapping, got nil")
	}
}

func TestRegistryUnknownTemplate(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Render(context.Background(), "missing", nil)
	if !IsTemplateNotFound(err) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), `"missing"`) {
		t.Errorf("error should name the template: %v", err)
	}
}

func TestRegistryOverwrite(t *testing.T) {
	reg := NewRegistry()
	reg.Register("t", Markup(func(Data) string { return "first" }))
	reg.Register("t", Markup(func(Data) string { return "second" }))

	out, err := reg.Render(context.Background(), "t", nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != "second" {
		t.Errorf("Render = %q, want the later registration", out)
	}
}

func TestRegistryOptions(t *testing.T) {
	reg := NewRegistry()
	factory := func(api *API) any { return "behaviour" }
	reg.Register("cart", Markup(greeting), WithFactory(factory), WithDeps("cart_total"), WithDeps("currency"))

	tmpl, ok := reg.Lookup("cart")
	if !ok {
		t.Fatal("Lookup failed")
	}
	if tmpl.Factory == nil {
		t.Error("factory not set")
	}
	if strings.Join(tmpl.Deps, ",") != "cart_total,currency" {
		t.Errorf("Deps = %v", tmpl.Deps)
	}
}

func TestRegistryNames(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"b", "c", "a"} {
		reg.Register(name, Markup(greeting))
	}
	if got := strings.Join(reg.Names(), ","); got != "a,b,c" {
		t.Errorf("Names = %s, want a,b,c", got)
	}
}

func TestRegisterNilRenderPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewRegistry().Register("broken", nil)
}

func TestRegistryRenderError(t *testing.T) {
	reg := NewRegistry()
	boom := errors.New("boom")
	reg.Register("broken", func(ctx context.Context, d Data) templ.Component {
		return templ.ComponentFunc(func(context.Context, io.Writer) error { return boom })
	})

	if _, err := reg.Render(context.Background(), "broken", nil); !errors.Is(err, boom) {
		t.Errorf("expected wrapped render error, got %v", err)
	}
}

type cardProps struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

func TestTyped(t *testing.T) {
	reg := NewRegistry()
	reg.Register("card", Typed(func(ctx context.Context, p cardProps) templ.Component {
		return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			_, err := fmt.Fprintf(w, "%s:%d", p.Title, p.Count)
			return err
		})
	}))

	out, err := reg.Render(context.Background(), "card", Data{"title": "Inbox", "count": 4})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if out != "Inbox:4" {
		t.Errorf("Render = %q, want Inbox:4", out)
	}
}

func TestTypedDecodeError(t *testing.T) {
	reg := NewRegistry()
	reg.Register("card", Typed(func(ctx context.Context, p cardProps) templ.Component {
		return templ.NopComponent
	}))

	if _, err := reg.Render(context.Background(), "card", Data{"count": "many"}); err == nil {
		t.Error("expected decode error")
	}
}

func TestAttrs(t *testing.T) {
	c := ContainerAttrs("cart", "cart_total", "currency")
	if c["class"] != ContainerClass || c[AttrTemplateName] != "cart" {
		t.Errorf("ContainerAttrs = %v", c)
	}
	if c[AttrAutoRefresh] != "cart_total,currency" {
		t.Errorf("auto-refresh = %v", c[AttrAutoRefresh])
	}
	if _, ok := ContainerAttrs("cart")[AttrAutoRefresh]; ok {
		t.Error("auto-refresh set without deps")
	}

	r := RegionAttrs("sidebar")
	if r["class"] != RegionClass || r[AttrRegionName] != "sidebar" {
		t.Errorf("RegionAttrs = %v", r)
	}

	m := MergeAttrs(templ.Attributes{"class": "card", "id": "a"}, ContainerAttrs("cart"), templ.Attributes{"id": "b"})
	if m["class"] != "card "+ContainerClass {
		t.Errorf("merged class = %v", m["class"])
	}
	if m["id"] != "b" {
		t.Errorf("merged id = %v, want last value", m["id"])
	}
}
