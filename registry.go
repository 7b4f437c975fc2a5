package suit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/a-h/templ"

	"github.com/pthm/suit/lib/encoding"
)

// Data is the loose mapping passed to templates and held by the
// environment store.
type Data = map[string]any

// RenderFunc produces the markup of a template for the given data.
//
// The output may wrap itself in its own container element (an element
// carrying ContainerAttrs for the same name); the reconciler then treats
// that element as the instance root. Otherwise the whole output is the
// content of the container.
type RenderFunc func(ctx context.Context, data Data) templ.Component

// Factory builds the behaviour value of a freshly instantiated widget.
// The value may implement ListenerCreator and Refresher.
type Factory func(api *API) any

// Template is one registered (render, factory) pair.
type Template struct {
	Name    string
	Render  RenderFunc
	Factory Factory
	// Deps are environment keys every container of this template depends
	// on, in addition to any auto-refresh attribute in its markup.
	Deps []string
}

// TemplateOption configures a registration.
type TemplateOption func(*Template)

// WithFactory sets the behaviour factory of a template.
func WithFactory(f Factory) TemplateOption {
	return func(t *Template) {
		t.Factory = f
	}
}

// WithDeps declares the environment keys the template's containers depend on.
//
//	reg.Register("cart", renderCart, suit.WithDeps("cart_total", "currency"))
func WithDeps(keys ...string) TemplateOption {
	return func(t *Template) {
		t.Deps = append(t.Deps, keys...)
	}
}

// Registry stores templates by name. It is safe for concurrent use, so one
// registry can back many runtimes.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{templates: make(map[string]*Template)}
}

// Register adds a template, replacing any prior registration for name.
// Panics if render is nil.
func (reg *Registry) Register(name string, render RenderFunc, opts ...TemplateOption) {
	if render == nil {
		panic(fmt.Sprintf("suit: template %q registered without a render func", name))
	}
	t := &Template{Name: name, Render: render}
	for _, opt := range opts {
		opt(t)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.templates[name] = t
}

// Lookup returns the template registered under name.
func (reg *Registry) Lookup(name string) (*Template, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	t, ok := reg.templates[name]
	return t, ok
}

// Names returns the registered template names, sorted.
func (reg *Registry) Names() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	names := make([]string, 0, len(reg.templates))
	for name := range reg.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render executes the named template. A nil data renders with an empty
// mapping.
func (reg *Registry) Render(ctx context.Context, name string, data Data) (string, error) {
	t, ok := reg.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}
	if data == nil {
		data = Data{}
	}

	var buf bytes.Buffer
	if err := t.Render(ctx, data).Render(ctx, &buf); err != nil {
		return "", fmt.Errorf("suit: render %q: %w", name, err)
	}
	return buf.String(), nil
}

// Markup adapts a plain string-producing function into a RenderFunc. The
// returned string is written as-is; escaping is the caller's job.
//
//	reg.Register("greeting", suit.Markup(func(d suit.Data) string {
//	    return "Hello " + html.EscapeString(d["name"].(string))
//	}))
func Markup(fn func(Data) string) RenderFunc {
	return func(ctx context.Context, data Data) templ.Component {
		return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			_, err := io.WriteString(w, fn(data))
			return err
		})
	}
}

// Typed adapts a templ component constructor taking a props struct. The
// loose data is decoded into P by matching `json` tags.
//
//	type CartProps struct {
//	    Total int `json:"cart_total"`
//	}
//	reg.Register("cart", suit.Typed(func(ctx context.Context, p CartProps) templ.Component {
//	    return cartTemplate(p)
//	}))
func Typed[P any](fn func(ctx context.Context, props P) templ.Component) RenderFunc {
	return func(ctx context.Context, data Data) templ.Component {
		var props P
		if err := encoding.Convert(data, &props); err != nil {
			return templ.ComponentFunc(func(context.Context, io.Writer) error {
				return fmt.Errorf("suit: decode props: %w", err)
			})
		}
		return fn(ctx, props)
	}
}
