package suit

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pthm/suit/lib/dom"
)

// dataKeyAPI is the per-node data key holding a container's *API.
const dataKeyAPI = "api"

// ListenerCreator is implemented by behaviours that bind event listeners.
//
// CreateListeners runs when the container is activated by the loader,
// after every nested container is active, and again after each refresh of
// the widget. Once the container is loaded, bindings made through
// API.Connect are deduplicated, so a refresh never doubles a listener.
//
//	func (c *Cart) CreateListeners(ctx context.Context) error {
//	    return c.api.Connect(".remove", "click", c.onRemove)
//	}
type ListenerCreator interface {
	CreateListeners(ctx context.Context) error
}

// Refresher is implemented by behaviours that take over API.Refresh. An
// override usually adjusts data and then calls API.Reconcile.
type Refresher interface {
	Refresh(ctx context.Context, data Data, region string) error
}

// ListenersFunc adapts a function into a ListenerCreator.
type ListenersFunc func(ctx context.Context) error

// CreateListeners calls f.
func (f ListenersFunc) CreateListeners(ctx context.Context) error {
	return f(ctx)
}

// API is the persistent object of one mounted widget. It survives refreshes
// of ancestor widgets as long as its enclosing region keeps its shape.
type API struct {
	id       string
	template string
	rt       *Runtime
	self     *html.Node
	impl     any
	events   *EventBus
	errors   *ErrorDispatcher
}

// instantiate builds an unbound API for t and runs its factory.
func (rt *Runtime) instantiate(t *Template) *API {
	api := &API{
		id:       "api." + ulid.Make().String(),
		template: t.Name,
		rt:       rt,
		events:   NewEventBus(rt.isLive),
		errors:   NewErrorDispatcher(rt.isLive),
	}
	if t.Factory != nil {
		api.impl = t.Factory(api)
	}
	return api
}

// apiOf returns the API bound to container n.
func (rt *Runtime) apiOf(n *html.Node) *API {
	v, ok := rt.doc.Data(n, dataKeyAPI)
	if !ok {
		return nil
	}
	api, _ := v.(*API)
	return api
}

// ID returns the widget identifier.
func (a *API) ID() string { return a.id }

// Template returns the template name the widget was built from.
func (a *API) Template() string { return a.template }

// Self returns the container the widget is bound to, or nil.
func (a *API) Self() *html.Node { return a.self }

// Impl returns the behaviour value built by the template factory.
func (a *API) Impl() any { return a.impl }

// Events returns the widget's own event bus.
func (a *API) Events() *EventBus { return a.events }

// Errors returns the widget's own error dispatcher.
func (a *API) Errors() *ErrorDispatcher { return a.errors }

// Env returns the runtime environment store.
func (a *API) Env() *EnvironmentStore { return a.rt.env }

// Runtime returns the runtime owning the widget.
func (a *API) Runtime() *Runtime { return a.rt }

// Mounted reports whether the widget is bound to a container in the document.
func (a *API) Mounted() bool {
	return a.self != nil && a.rt.doc.Contains(a.self)
}

// As returns the behaviour of api as T.
//
//	cart, ok := suit.As[*Cart](page.Widget("cart"))
func As[T any](api *API) (T, bool) {
	var zero T
	if api == nil {
		return zero, false
	}
	v, ok := api.impl.(T)
	return v, ok
}

// registerSelf binds the widget to container n.
func (a *API) registerSelf(n *html.Node) {
	a.self = n
	a.rt.doc.SetData(n, dataKeyAPI, a)
}

// createListeners runs the behaviour's CreateListeners, if any. Errors are
// logged and published; they never abort the caller.
func (a *API) createListeners(ctx context.Context) {
	lc, ok := a.impl.(ListenerCreator)
	if !ok {
		return
	}
	if err := lc.CreateListeners(ctx); err != nil {
		a.rt.log.Warn("create listeners failed",
			zap.String("template", a.template),
			zap.String("api", a.id),
			zap.Error(err))
		a.rt.errors.Broadcast(Error{Type: ErrorTypeUnknown, Data: err})
	}
}

// Connect binds handler for event on elements matching selector inside the
// widget. The binding is delegated from the container, so it keeps working
// for elements replaced by later refreshes.
func (a *API) Connect(selector, event string, handler dom.Handler) error {
	if a.self == nil {
		return ErrNotMounted
	}
	return a.rt.bind(a.self, event, selector, handler)
}

// ConnectAll is Connect for several selectors.
func (a *API) ConnectAll(selectors []string, event string, handler dom.Handler) error {
	var errs []error
	for _, sel := range selectors {
		if err := a.Connect(sel, event, handler); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Widget returns the API of the first descendant container bound to the
// template name, or nil. host narrows the search: an element or widget is
// used as is, a selector is resolved inside this widget.
func (a *API) Widget(name string, host ...Ref) *API {
	for _, n := range a.descendants(name, host) {
		if api := a.rt.apiOf(n); api != nil {
			return api
		}
	}
	return nil
}

// Widgets returns the APIs of every descendant container bound to the
// template name, in document order. Containers not yet activated are
// skipped.
func (a *API) Widgets(name string, host ...Ref) []*API {
	var out []*API
	for _, n := range a.descendants(name, host) {
		if api := a.rt.apiOf(n); api != nil {
			out = append(out, api)
		}
	}
	return out
}

func (a *API) descendants(name string, host []Ref) []*html.Node {
	if a.self == nil {
		return nil
	}
	scopes := []*html.Node{a.self}
	if len(host) > 0 && host[0] != nil {
		nodes, err := host[0].resolve(a.rt.doc, a.self)
		if err != nil {
			a.rt.log.Debug("widget host did not resolve", zap.Stringer("host", host[0]), zap.Error(err))
			return nil
		}
		scopes = nodes
	}

	var out []*html.Node
	for _, scope := range scopes {
		out = append(out, dom.Descendants(scope, func(n *html.Node) bool {
			return TemplateName(n) == name
		})...)
	}
	return out
}

// Refresh re-renders the widget with data. When a region name is given only
// that region is replaced. A behaviour implementing Refresher takes over.
func (a *API) Refresh(ctx context.Context, data Data, region ...string) error {
	target := ""
	if len(region) > 0 {
		target = region[0]
	}
	if r, ok := a.impl.(Refresher); ok {
		return r.Refresh(ctx, data, target)
	}
	_, err := a.Reconcile(ctx, data, target)
	return err
}
