package suit

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pthm/suit/lib/dom"
)

// bindings remembers which handlers were bound on which node, so repeated
// listener setup on a loaded container (every refresh re-runs
// CreateListeners) attaches each (initiator, selector, event, handler) once.
//
// Handlers are compared by code pointer: two closures built from the same
// function literal, or two method values of the same method, count as the
// same handler. Repeats are therefore only suppressed on a loaded container,
// which belongs to exactly one widget; shared initiators such as <body>
// accept every binding.
type bindings map[*html.Node]map[string][]uintptr

func bindingKey(selector, event string) string {
	return "[" + selector + "]" + event
}

// bind attaches handler on initiator. When initiator is a loaded container
// and an identical binding exists the call is a no-op.
func (rt *Runtime) bind(initiator *html.Node, event, selector string, handler dom.Handler) error {
	if handler == nil {
		return fmt.Errorf("%w: %s", dom.ErrNilHandler, bindingKey(selector, event))
	}
	key := bindingKey(selector, event)
	ptr := reflect.ValueOf(handler).Pointer()

	if IsContainer(initiator) && IsLoaded(initiator) {
		for _, seen := range rt.bindings[initiator][key] {
			if seen == ptr {
				rt.log.Debug("duplicate listener suppressed",
					zap.String("event", event),
					zap.String("selector", selector))
				return nil
			}
		}
	}

	if err := rt.doc.On(initiator, event, selector, handler); err != nil {
		return err
	}

	m := rt.bindings[initiator]
	if m == nil {
		m = make(map[string][]uintptr)
		rt.bindings[initiator] = m
	}
	m[key] = append(m[key], ptr)
	return nil
}

// unbind drops every binding on n. The loader calls it before a bound
// container is activated again so its listener setup starts from a clean
// slate.
func (rt *Runtime) unbind(n *html.Node) {
	rt.doc.Off(n)
	delete(rt.bindings, n)
}

// Connect binds handler for event on any element of the page matching
// selector. The binding is delegated from <body>.
func (rt *Runtime) Connect(selector, event string, handler dom.Handler) error {
	return rt.bind(rt.doc.Body(), event, selector, handler)
}

// ConnectOn binds handler for event on every node initiator resolves to.
// With a non-empty selector the binding is delegated to matching
// descendants. Returns ErrNoInitiator if initiator resolves to nothing.
//
// Bindings made on a container before its first activation are kept. A
// container activated again after its loaded flag was cleared loses every
// binding it held, and its widget's CreateListeners rebinds.
func (rt *Runtime) ConnectOn(initiator Ref, event, selector string, handler dom.Handler) error {
	if initiator == nil {
		return ErrNoInitiator
	}
	nodes, err := initiator.resolve(rt.doc, nil)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fmt.Errorf("%w: %s %s", ErrNoInitiator, initiator.Kind(), initiator)
	}
	for _, n := range nodes {
		if err := rt.bind(n, event, selector, handler); err != nil {
			return err
		}
	}
	return nil
}

// Trigger dispatches event at target. It bubbles to the document root and
// runs every matching binding. Returns how many handlers ran.
func (rt *Runtime) Trigger(target *html.Node, event string, detail any) int {
	return rt.doc.Dispatch(target, event, detail)
}
