package suit

import (
	"context"
	"fmt"

	"golang.org/x/net/html"

	"github.com/pthm/suit/lib/dom"
)

// TemplateHandle gives direct access to one registered template.
type TemplateHandle struct {
	rt   *Runtime
	name string
}

// Template returns a handle for the template registered under name. The
// name is resolved lazily, so a handle may be taken before registration.
func (rt *Runtime) Template(name string) *TemplateHandle {
	return &TemplateHandle{rt: rt, name: name}
}

// Name returns the template name.
func (h *TemplateHandle) Name() string {
	return h.name
}

// Execute renders the template off-tree.
func (h *TemplateHandle) Execute(ctx context.Context, data Data) (string, error) {
	return h.rt.registry.Render(ctx, h.name, data)
}

// API returns the widget of the first container of this template in
// document order. When none is mounted a fresh, unbound API is built from
// the factory.
func (h *TemplateHandle) API() (*API, error) {
	var found *API
	dom.Walk(h.rt.doc.Root(), func(n *html.Node) bool {
		if n.Type != html.ElementNode || !IsContainer(n) || TemplateName(n) != h.name {
			return true
		}
		if api := h.rt.apiOf(n); api != nil {
			found = api
			return false
		}
		return true
	})
	if found != nil {
		return found, nil
	}

	t, ok := h.rt.registry.Lookup(h.name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, h.name)
	}
	return h.rt.instantiate(t), nil
}
