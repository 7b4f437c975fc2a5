// Package suit mounts, reconciles and wires server-rendered widgets inside a
// live HTML document.
//
// A widget is a template (a render func producing markup, optionally with a
// behaviour factory) bound to a container element of the page. suit finds
// those containers, activates them, re-renders them in place when their data
// changes, and carries the behaviour objects of nested widgets across those
// re-renders.
//
// # Markup Contract
//
// Templates mark their output with a few attributes:
//
//	<div class="ui-container" data-template-name="cart" auto-refresh="cart_total">
//	    <ul class="data-container" data-part-name="items">...</ul>
//	    <p class="data-container" data-part-name="total">...</p>
//	</div>
//
// ContainerAttrs, RegionAttrs and AutoRefreshAttrs build these as
// templ.Attributes. The loader flags every container it activated with
// ui-container-loaded, so running it again is a no-op.
//
// # Registration
//
// Templates are registered by name on a Registry, which a Runtime owns:
//
//	rt := suit.New(doc, suit.WithLogger(logger))
//	rt.Register("cart", suit.Typed(cartView), suit.WithFactory(newCart), suit.WithDeps("cart_total"))
//	rt.Load(ctx)
//
// A behaviour may implement ListenerCreator to bind delegated listeners
// through API.Connect, and Refresher to take over API.Refresh.
//
// # Refresh
//
// API.Refresh re-renders a widget off-tree and patches only its regions
// (data-container elements). Regions are matched by position, or by the
// direct children of the widget root when counts differ; if neither lines
// up the refresh fails with ErrCompositionMismatch and the document is left
// untouched. Nested widgets sitting in the same slot before and after keep
// their API.
//
// # Events and Errors
//
// Each runtime and each widget has an EventBus and an ErrorDispatcher.
// Subscribers are Refs into the document: once a subscriber leaves the
// page its callbacks stop firing. Errors are routed by type; a "*" handler
// receives types nobody registered for.
//
// # Environment
//
// The EnvironmentStore holds page-wide state seeded once from a bootstrap
// payload. Every completed request broadcasts EventRequestCompleted; its
// result mapping is merged into the store and every container or region
// whose auto-refresh list names a changed key is refreshed.
//
// A Runtime is driven from a single goroutine. Transport collaborators in
// lib/transport block the caller and deliver completions on it.
package suit
