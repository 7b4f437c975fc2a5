package dom

import (
	"errors"

	"golang.org/x/net/html"
)

// ErrNilHandler is returned when binding a nil Handler.
var ErrNilHandler = errors.New("dom: nil handler")

// Handler receives a dispatched event.
type Handler func(*Event)

// Event is a DOM-style event travelling from Target up to the document root.
type Event struct {
	Type string
	// Target is the node the event was dispatched on.
	Target *html.Node
	// CurrentTarget is the node a handler is running for: the node matched
	// by a delegated selector, or the bound node itself.
	CurrentTarget *html.Node
	// Delegate is the node the handler was bound on.
	Delegate *html.Node
	Detail   any

	stopped bool
}

// StopPropagation prevents the event from reaching further ancestors.
// Handlers bound on the current node still run.
func (e *Event) StopPropagation() {
	e.stopped = true
}

type binding struct {
	event    string
	selector string
	handler  Handler
}

// On binds h on n for event. With a non-empty selector the binding is
// delegated: h runs for every node between the event target and n that
// matches selector.
func (d *Document) On(n *html.Node, event, selector string, h Handler) error {
	if h == nil {
		return ErrNilHandler
	}
	if selector != "" {
		if _, err := d.compile(selector); err != nil {
			return err
		}
	}
	d.listeners[n] = append(d.listeners[n], &binding{event: event, selector: selector, handler: h})
	return nil
}

// Off drops every binding on n.
func (d *Document) Off(n *html.Node) {
	delete(d.listeners, n)
}

// Listeners returns the number of bindings on n.
func (d *Document) Listeners(n *html.Node) int {
	return len(d.listeners[n])
}

// Dispatch fires event at target and returns how many handlers ran.
func (d *Document) Dispatch(target *html.Node, event string, detail any) int {
	ev := &Event{Type: event, Target: target, Detail: detail}
	ran := 0
	for cur := target; cur != nil; cur = cur.Parent {
		bs := d.listeners[cur]
		if len(bs) == 0 {
			continue
		}
		snapshot := make([]*binding, len(bs))
		copy(snapshot, bs)
		for _, b := range snapshot {
			if b.event != event {
				continue
			}
			ev.Delegate = cur
			if b.selector == "" {
				ev.CurrentTarget = cur
				b.handler(ev)
				ran++
				continue
			}
			sel := d.selectors[b.selector]
			for m := target; m != nil && m != cur; m = m.Parent {
				if m.Type == html.ElementNode && sel.Match(m) {
					ev.CurrentTarget = m
					b.handler(ev)
					ran++
				}
			}
		}
		if ev.stopped {
			break
		}
	}
	return ran
}
