package suit

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pthm/suit/lib/dom"
)

// Runtime owns one live document and everything hung off it: the template
// registry, the page-wide event bus and error dispatcher, the environment
// store, and the listener bindings.
//
// A Runtime is not safe for concurrent use. Drive it from one goroutine;
// transport collaborators deliver completions on that same goroutine.
type Runtime struct {
	ctx      context.Context
	doc      *dom.Document
	registry *Registry
	events   *EventBus
	errors   *ErrorDispatcher
	env      *EnvironmentStore
	bindings bindings
	log      *zap.Logger
}

// New creates a runtime for doc.
func New(doc *dom.Document, opts ...Option) *Runtime {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	rt := &Runtime{
		ctx:      o.ctx,
		doc:      doc,
		registry: o.registry,
		bindings: make(bindings),
		log:      o.logger,
	}
	rt.events = NewEventBus(rt.isLive)
	rt.errors = NewErrorDispatcher(rt.isLive)
	rt.env = newEnvironmentStore(rt, o.adoptNewKeys)

	doc.OnDetach(func(n *html.Node) {
		delete(rt.bindings, n)
	})
	return rt
}

// NewFromMarkup parses a full HTML page and creates a runtime for it.
func NewFromMarkup(markup string, opts ...Option) (*Runtime, error) {
	doc, err := dom.Parse(markup)
	if err != nil {
		return nil, err
	}
	return New(doc, opts...), nil
}

// Document returns the live document.
func (rt *Runtime) Document() *dom.Document { return rt.doc }

// Registry returns the template registry.
func (rt *Runtime) Registry() *Registry { return rt.registry }

// Events returns the page-wide event bus.
func (rt *Runtime) Events() *EventBus { return rt.events }

// Errors returns the page-wide error dispatcher.
func (rt *Runtime) Errors() *ErrorDispatcher { return rt.errors }

// Env returns the environment store.
func (rt *Runtime) Env() *EnvironmentStore { return rt.env }

// Logger returns the runtime logger.
func (rt *Runtime) Logger() *zap.Logger { return rt.log }

// Register adds a template to the runtime registry.
func (rt *Runtime) Register(name string, render RenderFunc, opts ...TemplateOption) {
	rt.registry.Register(name, render, opts...)
}

// WidgetAt returns the API bound to container n, or nil.
func (rt *Runtime) WidgetAt(n *html.Node) *API {
	return rt.apiOf(n)
}

// Live reports whether ref resolves to at least one node of the document.
// It is the Liveness of every bus the runtime creates; collaborators pass
// it to buses of their own.
func (rt *Runtime) Live(ref Ref) bool {
	return isLive(rt.doc, ref)
}

func (rt *Runtime) isLive(ref Ref) bool {
	return rt.Live(ref)
}

// Mount renders the named template, appends it to parent (the document
// body when nil) and activates it. If the rendered markup does not wrap
// itself in a container for name, it is wrapped in a <div> container.
func (rt *Runtime) Mount(ctx context.Context, parent *html.Node, name string, data Data) (*API, error) {
	markup, err := rt.registry.Render(ctx, name, data)
	if err != nil {
		return nil, err
	}
	frag, err := dom.Fragment(markup)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		parent = rt.doc.Body()
	}

	root := renderedRoot(frag, name)
	if root == frag {
		root = &html.Node{Type: html.ElementNode, Data: "div"}
		for k, v := range ContainerAttrs(name) {
			dom.SetAttr(root, k, fmt.Sprint(v))
		}
		rt.doc.ReplaceChildren(root, frag)
		parent.AppendChild(root)
	} else {
		appendChildren(parent, frag)
	}

	rt.Load(ctx)
	api := rt.apiOf(root)
	if api == nil {
		return nil, fmt.Errorf("%w: %q did not activate", ErrNotMounted, name)
	}
	return api, nil
}

// appendChildren moves every child of src to the end of dst.
func appendChildren(dst, src *html.Node) {
	for c := src.FirstChild; c != nil; {
		next := c.NextSibling
		src.RemoveChild(c)
		dst.AppendChild(c)
		c = next
	}
}
