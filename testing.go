package suit

import (
	"context"
	"strings"

	"github.com/pthm/suit/lib/dom"
)

// TestResult holds rendered markup for assertions.
type TestResult struct {
	HTML string
	// Ran is the number of handlers a triggered event ran.
	Ran int
}

// NewTestRuntime builds a runtime over a page whose body is body. Nothing is
// loaded yet; call Load once templates are registered.
//
//	rt, err := suit.NewTestRuntime(`<div class="ui-container" data-template-name="cart"></div>`)
//	rt.Register("cart", renderCart)
//	rt.Load(ctx)
func NewTestRuntime(body string, opts ...Option) (*Runtime, error) {
	return NewFromMarkup("<!DOCTYPE html><html><head></head><body>"+body+"</body></html>", opts...)
}

// TestRender renders a registered template off-tree.
//
//	result, err := suit.TestRender(reg, "greeting", suit.Data{"name": "Ada"})
//	if !result.HTMLContains("Hello Ada") {
//	    t.Fatal("missing greeting")
//	}
func TestRender(reg *Registry, name string, data Data) (*TestResult, error) {
	return TestRenderWithContext(context.Background(), reg, name, data)
}

// TestRenderWithContext renders a registered template with a custom context.
func TestRenderWithContext(ctx context.Context, reg *Registry, name string, data Data) (*TestResult, error) {
	markup, err := reg.Render(ctx, name, data)
	if err != nil {
		return nil, err
	}
	return &TestResult{HTML: markup}, nil
}

// TestTrigger dispatches event on the first element matching selector and
// returns the page body afterwards.
func TestTrigger(rt *Runtime, selector, event string, detail any) (*TestResult, error) {
	target, err := rt.doc.Query(nil, selector)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrNoInitiator
	}
	ran := rt.Trigger(target, event, detail)
	return &TestResult{HTML: BodyHTML(rt), Ran: ran}, nil
}

// BodyHTML serializes the content of the page body.
func BodyHTML(rt *Runtime) string {
	return dom.InnerHTML(rt.doc.Body())
}

// HTMLContains checks if the HTML contains a substring.
func (r *TestResult) HTMLContains(substr string) bool {
	return strings.Contains(r.HTML, substr)
}

// HTMLContainsAll checks if the HTML contains all the given substrings.
func (r *TestResult) HTMLContainsAll(substrs ...string) bool {
	for _, s := range substrs {
		if !strings.Contains(r.HTML, s) {
			return false
		}
	}
	return true
}

// HTMLContainsAny checks if the HTML contains any of the given substrings.
func (r *TestResult) HTMLContainsAny(substrs ...string) bool {
	for _, s := range substrs {
		if strings.Contains(r.HTML, s) {
			return true
		}
	}
	return false
}

// Count returns how many elements of the HTML match the CSS selector.
// An invalid selector counts as zero.
func (r *TestResult) Count(selector string) int {
	frag, err := dom.Fragment(r.HTML)
	if err != nil {
		return 0
	}
	nodes, err := dom.New(frag).QueryAll(frag, selector)
	if err != nil {
		return 0
	}
	return len(nodes)
}

// Has checks if any element of the HTML matches the CSS selector.
func (r *TestResult) Has(selector string) bool {
	return r.Count(selector) > 0
}

// Text returns the text content of the first element matching selector.
func (r *TestResult) Text(selector string) string {
	frag, err := dom.Fragment(r.HTML)
	if err != nil {
		return ""
	}
	n, err := dom.New(frag).Query(frag, selector)
	if err != nil || n == nil {
		return ""
	}
	return dom.Text(n)
}
