package suit

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/pthm/suit/lib/dom"
)

// RefKind tags the variants of Ref.
type RefKind int

const (
	// KindElement refers to one node directly.
	KindElement RefKind = iota
	// KindSelector refers to whatever a CSS selector matches.
	KindSelector
	// KindWidget refers to the container a widget is bound to.
	KindWidget
)

func (k RefKind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindSelector:
		return "selector"
	case KindWidget:
		return "widget"
	}
	return fmt.Sprintf("RefKind(%d)", int(k))
}

// Ref is a reference to nodes of the live document: a subscriber for the
// event bus, an initiator for listener binding, or a host for widget
// lookups. Construct one with ElementRef, SelectorRef or WidgetRef.
type Ref interface {
	Kind() RefKind
	String() string
	// resolve returns the referenced nodes. Selectors are evaluated below
	// scope; a nil scope means the whole document.
	resolve(doc *dom.Document, scope *html.Node) ([]*html.Node, error)
}

// ElementRef refers to n.
func ElementRef(n *html.Node) Ref {
	return elementRef{n: n}
}

// SelectorRef refers to the elements matching a CSS selector.
func SelectorRef(selector string) Ref {
	return selectorRef{sel: selector}
}

// WidgetRef refers to the container api is currently bound to.
func WidgetRef(api *API) Ref {
	return widgetRef{api: api}
}

type elementRef struct{ n *html.Node }

func (r elementRef) Kind() RefKind  { return KindElement }
func (r elementRef) String() string { return fmt.Sprintf("element(%p)", r.n) }

func (r elementRef) resolve(*dom.Document, *html.Node) ([]*html.Node, error) {
	if r.n == nil {
		return nil, nil
	}
	return []*html.Node{r.n}, nil
}

type selectorRef struct{ sel string }

func (r selectorRef) Kind() RefKind  { return KindSelector }
func (r selectorRef) String() string { return r.sel }

func (r selectorRef) resolve(doc *dom.Document, scope *html.Node) ([]*html.Node, error) {
	return doc.QueryAll(scope, r.sel)
}

type widgetRef struct{ api *API }

func (r widgetRef) Kind() RefKind { return KindWidget }

func (r widgetRef) String() string {
	if r.api == nil {
		return "widget(nil)"
	}
	return r.api.ID()
}

func (r widgetRef) resolve(*dom.Document, *html.Node) ([]*html.Node, error) {
	if r.api == nil || r.api.self == nil {
		return nil, nil
	}
	return []*html.Node{r.api.self}, nil
}

// isLive reports whether ref resolves to at least one node attached to doc.
// A nil ref is always live.
func isLive(doc *dom.Document, ref Ref) bool {
	if ref == nil {
		return true
	}
	nodes, err := ref.resolve(doc, nil)
	if err != nil {
		return false
	}
	for _, n := range nodes {
		if doc.Contains(n) {
			return true
		}
	}
	return false
}
