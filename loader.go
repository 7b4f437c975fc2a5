package suit

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pthm/suit/lib/dom"
)

// LoadReport summarizes one loader pass.
type LoadReport struct {
	// Activated lists the widgets activated in this pass, children first.
	Activated []*API
	// Skipped counts containers that were already loaded.
	Skipped int
	// Missing lists template names that could not be resolved.
	Missing []string
}

// Load activates every container of the document that is not yet loaded.
//
// Containers are visited in post-order, so when a container's
// CreateListeners runs its nested containers are already active and can be
// looked up with Widget. For each container Load reuses the API already
// bound to it (or builds one from the template factory), binds it, runs its
// listener setup and sets the loaded flag. Loaded containers are skipped,
// which makes Load safe to call after every mutation of the document.
//
// A container whose template is not registered is logged and left
// unloaded; the rest of the pass continues.
func (rt *Runtime) Load(ctx context.Context) LoadReport {
	var report LoadReport

	var containers []*html.Node
	postOrder(rt.doc.Root(), func(n *html.Node) {
		if n.Type == html.ElementNode && IsContainer(n) {
			containers = append(containers, n)
		}
	})

	for _, n := range containers {
		if !rt.doc.Contains(n) {
			// Removed by the listener setup of an earlier container.
			continue
		}
		if IsLoaded(n) {
			report.Skipped++
			continue
		}
		name := TemplateName(n)
		if name == "" {
			continue
		}

		api := rt.apiOf(n)
		if api != nil {
			// Reactivation: drop the bindings of the previous setup.
			rt.unbind(n)
		} else {
			t, ok := rt.registry.Lookup(name)
			if !ok {
				rt.log.Warn("no template for container", zap.String("template", name), zap.Error(ErrTemplateNotFound))
				report.Missing = append(report.Missing, name)
				continue
			}
			api = rt.instantiate(t)
		}

		api.registerSelf(n)
		api.createListeners(ctx)
		dom.SetAttr(n, AttrLoaded, "true")
		report.Activated = append(report.Activated, api)
	}

	if len(report.Activated) > 0 {
		rt.log.Debug("containers activated", zap.Int("count", len(report.Activated)), zap.Int("skipped", report.Skipped))
	}
	return report
}

func postOrder(n *html.Node, fn func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		postOrder(c, fn)
	}
	fn(n)
}
