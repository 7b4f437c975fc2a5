// Package dom wraps a golang.org/x/net/html node tree as a live, mutable
// document: attribute and class helpers, CSS selector queries, per-node data
// storage, and delegated event listeners that bubble from a target node up
// to the document root.
//
// A Document is not safe for concurrent use. Callers own it from a single
// goroutine, the same way a browser page is driven from one event loop.
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrInvalidSelector is returned when a CSS selector does not compile.
var ErrInvalidSelector = errors.New("dom: invalid selector")

// Document is a parsed HTML document plus the runtime state hung off its
// nodes (data values and event bindings).
type Document struct {
	root      *html.Node
	data      map[*html.Node]map[string]any
	listeners map[*html.Node][]*binding
	selectors map[string]cascadia.Selector
	onDetach  []func(*html.Node)
}

// Parse parses a full HTML document.
func Parse(markup string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return New(root), nil
}

// New wraps an existing node tree. root should be the document node.
func New(root *html.Node) *Document {
	return &Document{
		root:      root,
		data:      make(map[*html.Node]map[string]any),
		listeners: make(map[*html.Node][]*binding),
		selectors: make(map[string]cascadia.Selector),
	}
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Body returns the <body> element, or the root when the tree has none.
func (d *Document) Body() *html.Node {
	var body *html.Node
	Walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return false
		}
		return true
	})
	if body == nil {
		return d.root
	}
	return body
}

// Contains reports whether n is attached to this document.
func (d *Document) Contains(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == d.root {
			return true
		}
	}
	return false
}

// OnDetach registers fn to be called for every node of a subtree removed
// through ReplaceChildren, SetInnerHTML or Remove. Data and listeners of
// the node are already dropped when fn runs.
func (d *Document) OnDetach(fn func(*html.Node)) {
	d.onDetach = append(d.onDetach, fn)
}

// compile returns the cached compiled form of sel.
func (d *Document) compile(sel string) (cascadia.Selector, error) {
	if s, ok := d.selectors[sel]; ok {
		return s, nil
	}
	s, err := cascadia.Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSelector, sel, err)
	}
	d.selectors[sel] = s
	return s, nil
}

// Matches reports whether n matches the CSS selector sel.
func (d *Document) Matches(n *html.Node, sel string) (bool, error) {
	s, err := d.compile(sel)
	if err != nil {
		return false, err
	}
	return n.Type == html.ElementNode && s.Match(n), nil
}

// QueryAll returns the descendants of scope matching sel, in document order.
// scope itself is never included. A nil scope means the document root.
func (d *Document) QueryAll(scope *html.Node, sel string) ([]*html.Node, error) {
	s, err := d.compile(sel)
	if err != nil {
		return nil, err
	}
	if scope == nil {
		scope = d.root
	}
	return cascadia.QueryAll(scope, s), nil
}

// Query returns the first descendant of scope matching sel, or nil.
func (d *Document) Query(scope *html.Node, sel string) (*html.Node, error) {
	s, err := d.compile(sel)
	if err != nil {
		return nil, err
	}
	if scope == nil {
		scope = d.root
	}
	return cascadia.Query(scope, s), nil
}

// Data returns the value stored under key for n.
func (d *Document) Data(n *html.Node, key string) (any, bool) {
	v, ok := d.data[n][key]
	return v, ok
}

// SetData stores v under key for n.
func (d *Document) SetData(n *html.Node, key string, v any) {
	m := d.data[n]
	if m == nil {
		m = make(map[string]any)
		d.data[n] = m
	}
	m[key] = v
}

// RemoveData deletes the value stored under key for n.
func (d *Document) RemoveData(n *html.Node, key string) {
	if m := d.data[n]; m != nil {
		delete(m, key)
		if len(m) == 0 {
			delete(d.data, n)
		}
	}
}

// ReplaceChildren detaches every child of n and moves the children of src
// into n. src is left empty.
func (d *Document) ReplaceChildren(n, src *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		d.detached(c)
		c = next
	}
	if src == nil {
		return
	}
	for c := src.FirstChild; c != nil; {
		next := c.NextSibling
		src.RemoveChild(c)
		n.AppendChild(c)
		c = next
	}
}

// SetInnerHTML replaces the children of n with the parsed markup.
func (d *Document) SetInnerHTML(n *html.Node, markup string) error {
	frag, err := Fragment(markup)
	if err != nil {
		return err
	}
	d.ReplaceChildren(n, frag)
	return nil
}

// Remove detaches n from its parent.
func (d *Document) Remove(n *html.Node) {
	if n.Parent == nil {
		return
	}
	n.Parent.RemoveChild(n)
	d.detached(n)
}

// detached drops runtime state for the subtree rooted at n.
func (d *Document) detached(n *html.Node) {
	Walk(n, func(c *html.Node) bool {
		delete(d.data, c)
		delete(d.listeners, c)
		for _, fn := range d.onDetach {
			fn(c)
		}
		return true
	})
}

// Render serializes the whole document.
func (d *Document) Render() string {
	var buf bytes.Buffer
	_ = html.Render(&buf, d.root)
	return buf.String()
}

// Fragment parses markup as the content of a detached <div> and returns
// that div.
func Fragment(markup string) (*html.Node, error) {
	wrapper := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(markup), wrapper)
	if err != nil {
		return nil, fmt.Errorf("dom: parse fragment: %w", err)
	}
	for _, c := range nodes {
		wrapper.AppendChild(c)
	}
	return wrapper, nil
}

// InnerHTML serializes the children of n.
func InnerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// OuterHTML serializes n itself.
func OuterHTML(n *html.Node) string {
	var buf bytes.Buffer
	_ = html.Render(&buf, n)
	return buf.String()
}
