package suit

import (
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/net/html"

	"github.com/pthm/suit/lib/dom"
)

// Markup attribute contract. Templates produce these attributes; the
// loader, reconciler and environment store consume them.
const (
	// ContainerClass marks an element as a mount point for a template.
	ContainerClass = "ui-container"
	// AttrTemplateName names the template bound to a container.
	AttrTemplateName = "data-template-name"
	// AttrLoaded is set by the loader once a container is active.
	AttrLoaded = "ui-container-loaded"
	// RegionClass marks an independently refreshable sub-section.
	RegionClass = "data-container"
	// AttrRegionName names a region for targeted refreshes.
	AttrRegionName = "data-part-name"
	// AttrAutoRefresh lists, comma separated, the environment keys a
	// container or region depends on.
	AttrAutoRefresh = "auto-refresh"
)

// ContainerAttrs returns the attributes binding an element to the template
// name. Optional deps opt the container into auto-refresh.
//
//	<div { suit.ContainerAttrs("cart", "cart_total")... }>
func ContainerAttrs(name string, deps ...string) templ.Attributes {
	attrs := templ.Attributes{
		"class":          ContainerClass,
		AttrTemplateName: name,
	}
	if len(deps) > 0 {
		attrs[AttrAutoRefresh] = strings.Join(deps, ",")
	}
	return attrs
}

// RegionAttrs returns the attributes of a named region.
func RegionAttrs(name string, deps ...string) templ.Attributes {
	attrs := templ.Attributes{"class": RegionClass}
	if name != "" {
		attrs[AttrRegionName] = name
	}
	if len(deps) > 0 {
		attrs[AttrAutoRefresh] = strings.Join(deps, ",")
	}
	return attrs
}

// AutoRefreshAttrs returns only the auto-refresh attribute, for elements
// that carry their container or region attributes some other way.
func AutoRefreshAttrs(keys ...string) templ.Attributes {
	return templ.Attributes{AttrAutoRefresh: strings.Join(keys, ",")}
}

// MergeAttrs combines attribute sets. Class values are joined, any other
// key is taken from the last set defining it.
func MergeAttrs(sets ...templ.Attributes) templ.Attributes {
	out := templ.Attributes{}
	for _, set := range sets {
		for k, v := range set {
			if k == "class" {
				if prev, ok := out[k].(string); ok && prev != "" {
					if s, ok := v.(string); ok {
						out[k] = prev + " " + s
						continue
					}
				}
			}
			out[k] = v
		}
	}
	return out
}

// IsContainer reports whether n is a template mount point.
func IsContainer(n *html.Node) bool {
	return dom.HasClass(n, ContainerClass)
}

// IsRegion reports whether n is a region.
func IsRegion(n *html.Node) bool {
	return dom.HasClass(n, RegionClass)
}

// IsLoaded reports whether the loader has activated the container n.
func IsLoaded(n *html.Node) bool {
	_, ok := dom.Attr(n, AttrLoaded)
	return ok
}

// TemplateName returns the template bound to n, or "".
func TemplateName(n *html.Node) string {
	v, _ := dom.Attr(n, AttrTemplateName)
	return v
}

// RegionName returns the region name of n, or "".
func RegionName(n *html.Node) string {
	v, _ := dom.Attr(n, AttrRegionName)
	return v
}

// Dependencies returns the environment keys listed in the auto-refresh
// attribute of n.
func Dependencies(n *html.Node) []string {
	v, ok := dom.Attr(n, AttrAutoRefresh)
	if !ok {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(v, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
