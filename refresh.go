package suit

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pthm/suit/lib/dom"
)

// RefreshMode tells how a refresh matched mounted and rendered regions.
type RefreshMode int

const (
	// RefreshWhole replaced the whole content of a widget without regions.
	RefreshWhole RefreshMode = iota
	// RefreshPositional matched every region by document order.
	RefreshPositional
	// RefreshDirect matched only the regions that are direct children of
	// the widget root, after the full region counts disagreed.
	RefreshDirect
	// RefreshTargeted replaced one named region.
	RefreshTargeted
)

func (m RefreshMode) String() string {
	switch m {
	case RefreshWhole:
		return "whole"
	case RefreshPositional:
		return "positional"
	case RefreshDirect:
		return "direct"
	case RefreshTargeted:
		return "targeted"
	}
	return fmt.Sprintf("RefreshMode(%d)", int(m))
}

// RefreshReport describes a completed refresh.
type RefreshReport struct {
	Mode RefreshMode
	// Regions is the number of regions whose content was replaced.
	Regions int
	// Reattached is the number of nested widgets carried over to the new
	// markup instead of being rebuilt.
	Reattached int
}

// slot addresses a nested container by its region and its position among
// the containers of that region.
type slot struct {
	region, nested int
}

type regionPair struct {
	index    int
	old, new *html.Node
}

// Reconcile re-renders the widget's template with data and patches the
// mounted markup in place.
//
// Regions of the mounted and rendered markup are matched by position when
// their counts agree, otherwise only the regions directly under the widget
// root are compared; if those disagree too the refresh fails with
// ErrCompositionMismatch and nothing is modified. A non-empty region name
// replaces only the region(s) of that name.
//
// Nested widgets found at the same (region, position) slot before and after
// keep their API: it is rebound to the new container, flagged loaded and
// its listeners recreated. Everything else in the replaced markup starts
// fresh and is activated by the loader pass that closes the refresh.
func (a *API) Reconcile(ctx context.Context, data Data, region string) (RefreshReport, error) {
	var report RefreshReport
	if !a.Mounted() {
		return report, ErrNotMounted
	}
	rt := a.rt

	markup, err := rt.registry.Render(ctx, a.template, data)
	if err != nil {
		return report, err
	}
	frag, err := dom.Fragment(markup)
	if err != nil {
		return report, err
	}
	root := renderedRoot(frag, a.template)

	oldRegions := dom.Descendants(a.self, IsRegion)
	newRegions := dom.Descendants(root, IsRegion)

	var pairs []regionPair
	switch {
	case region != "":
		report.Mode = RefreshTargeted
		pairs, err = pairByName(oldRegions, newRegions, region)
		if err != nil {
			return report, fmt.Errorf("%w: template %q", err, a.template)
		}
	default:
		report.Mode = RefreshPositional
		if len(oldRegions) != len(newRegions) {
			report.Mode = RefreshDirect
			oldRegions = dom.Children(a.self, IsRegion)
			newRegions = dom.Children(root, IsRegion)
			if len(oldRegions) != len(newRegions) {
				return report, fmt.Errorf("%w: template %q mounts %d regions, render produced %d",
					ErrCompositionMismatch, a.template, len(oldRegions), len(newRegions))
			}
		}
		if len(oldRegions) == 0 {
			report.Mode = RefreshWhole
		}
		for i := range oldRegions {
			pairs = append(pairs, regionPair{index: i, old: oldRegions[i], new: newRegions[i]})
		}
	}

	if report.Mode == RefreshWhole {
		rt.doc.ReplaceChildren(a.self, root)
		for _, n := range dom.Descendants(a.self, IsContainer) {
			dom.RemoveAttr(n, AttrLoaded)
		}
	} else {
		saved := make(map[slot]*API)
		for i, r := range oldRegions {
			for j, c := range dom.Descendants(r, IsContainer) {
				if api := rt.apiOf(c); api != nil {
					saved[slot{i, j}] = api
				}
			}
		}

		var moved []*API
		for _, p := range pairs {
			if !rt.doc.Contains(p.old) {
				// Nested in a region replaced earlier in this pass.
				continue
			}
			rt.doc.ReplaceChildren(p.old, p.new)
			report.Regions++

			for j, c := range dom.Descendants(p.old, IsContainer) {
				api, ok := saved[slot{p.index, j}]
				if !ok || api.template != TemplateName(c) || api.Mounted() {
					continue
				}
				api.registerSelf(c)
				dom.SetAttr(c, AttrLoaded, "true")
				moved = append(moved, api)
			}
		}
		// moved is in document order; walk it backwards so nested widgets
		// set up their listeners before the widgets enclosing them.
		for i := len(moved) - 1; i >= 0; i-- {
			moved[i].createListeners(ctx)
		}
		report.Reattached = len(moved)
	}

	rt.Load(ctx)
	a.createListeners(ctx)

	rt.log.Debug("widget refreshed",
		zap.String("template", a.template),
		zap.Stringer("mode", report.Mode),
		zap.Int("regions", report.Regions),
		zap.Int("reattached", report.Reattached))
	return report, nil
}

// renderedRoot returns the element of a rendered fragment standing for the
// widget root: the first container bound to the same template, or the
// fragment itself.
func renderedRoot(frag *html.Node, name string) *html.Node {
	for _, n := range dom.Descendants(frag, IsContainer) {
		if TemplateName(n) == name {
			return n
		}
	}
	return frag
}

// pairByName pairs the k-th mounted region called name with the k-th
// rendered one.
func pairByName(oldRegions, newRegions []*html.Node, name string) ([]regionPair, error) {
	var rendered []*html.Node
	for _, n := range newRegions {
		if RegionName(n) == name {
			rendered = append(rendered, n)
		}
	}

	var pairs []regionPair
	k := 0
	for i, n := range oldRegions {
		if RegionName(n) != name {
			continue
		}
		if k >= len(rendered) {
			return nil, fmt.Errorf("%w: %q rendered %d times, mounted more", ErrRegionNotFound, name, len(rendered))
		}
		pairs = append(pairs, regionPair{index: i, old: n, new: rendered[k]})
		k++
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: %q is not mounted", ErrRegionNotFound, name)
	}
	return pairs, nil
}
