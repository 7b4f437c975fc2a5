package suit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tidwall/jsonc"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pthm/suit/lib/dom"
	"github.com/pthm/suit/lib/encoding"
)

// EnvironmentStore is the page-wide key/value state. It is seeded once
// from a bootstrap payload and afterwards only changes by merging the
// result mappings of completed requests. Every merge that changes a value
// refreshes the containers and regions depending on the changed keys.
type EnvironmentStore struct {
	rt       *Runtime
	state    Data
	seeded   bool
	enabled  bool
	adoptNew bool
	sub      *Subscription
}

func newEnvironmentStore(rt *Runtime, adoptNew bool) *EnvironmentStore {
	return &EnvironmentStore{rt: rt, adoptNew: adoptNew}
}

// Seed parses the bootstrap payload (JSON, comments and trailing commas
// allowed) and enables auto-refresh. A malformed payload is logged and
// disables the store for the lifetime of the runtime. Only the first call
// has an effect.
func (s *EnvironmentStore) Seed(payload []byte) error {
	if s.seeded {
		s.rt.log.Warn("environment already seeded")
		return fmt.Errorf("%w: already seeded", ErrBootstrap)
	}
	s.seeded = true

	var state Data
	if err := json.Unmarshal(jsonc.ToJSON(payload), &state); err != nil {
		s.rt.log.Error("environment loading failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrBootstrap, err)
	}
	if state == nil {
		s.rt.log.Error("environment loading failed", zap.String("reason", "payload is not an object"))
		return fmt.Errorf("%w: payload is not an object", ErrBootstrap)
	}
	s.enable(state)
	return nil
}

// SeedSealed opens a token produced by encoding.Encoder.Seal and seeds the
// store with it. Failure disables the store like a malformed payload.
func (s *EnvironmentStore) SeedSealed(enc *encoding.Encoder, token string) error {
	if s.seeded {
		s.rt.log.Warn("environment already seeded")
		return fmt.Errorf("%w: already seeded", ErrBootstrap)
	}
	s.seeded = true

	state, err := enc.Open(token)
	if err != nil {
		s.rt.log.Error("environment loading failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrBootstrap, err)
	}
	if state == nil {
		state = Data{}
	}
	s.enable(state)
	return nil
}

// SeedData seeds the store with a copy of state.
func (s *EnvironmentStore) SeedData(state Data) error {
	if s.seeded {
		s.rt.log.Warn("environment already seeded")
		return fmt.Errorf("%w: already seeded", ErrBootstrap)
	}
	s.seeded = true
	cp := make(Data, len(state))
	for k, v := range state {
		cp[k] = v
	}
	s.enable(cp)
	return nil
}

func (s *EnvironmentStore) enable(state Data) {
	s.state = state
	s.enabled = true
	s.sub = s.rt.events.On(EventRequestCompleted, nil, s.onCompleted)
}

// Enabled reports whether the store was seeded successfully.
func (s *EnvironmentStore) Enabled() bool {
	return s.enabled
}

// Get returns the value stored under key.
func (s *EnvironmentStore) Get(key string) (any, bool) {
	v, ok := s.state[key]
	return v, ok
}

// Snapshot returns a shallow copy of the state.
func (s *EnvironmentStore) Snapshot() Data {
	cp := make(Data, len(s.state))
	for k, v := range s.state {
		cp[k] = v
	}
	return cp
}

// Merge applies result to the state and returns the sorted keys whose value
// changed. Only keys already present are considered unless the runtime was
// configured to adopt new keys.
func (s *EnvironmentStore) Merge(result Data) []string {
	if !s.enabled {
		return nil
	}
	var changed []string
	for k, v := range result {
		prev, ok := s.state[k]
		if !ok {
			if !s.adoptNew {
				continue
			}
		} else if sameValue(prev, v) {
			continue
		}
		s.state[k] = v
		changed = append(changed, k)
	}
	sort.Strings(changed)
	return changed
}

func (s *EnvironmentStore) onCompleted(payload any) {
	var result Data
	switch p := payload.(type) {
	case Completion:
		result = p.Result
	case *Completion:
		if p != nil {
			result = p.Result
		}
	case Data:
		result = p
	}
	if len(result) == 0 {
		return
	}

	changed := s.Merge(result)
	if len(changed) == 0 {
		return
	}
	s.rt.log.Debug("environment changed", zap.Strings("keys", changed))
	s.rt.refreshDependents(changed)
}

// Target is a node whose declared dependencies intersect a change set.
type Target struct {
	// Node declared the dependency.
	Node *html.Node
	// Container is the widget to refresh: Node itself, or the closest
	// container enclosing a region.
	Container *html.Node
	// Region is the region to refresh, "" for the whole widget.
	Region string
	// Keys are the changed keys Node depends on.
	Keys []string
}

// Dependents returns, in document order, the containers and named regions
// depending on any of the changed keys. Dependencies come from the
// auto-refresh attribute and, for containers, from the template's Deps.
func (rt *Runtime) Dependents(changed []string) []Target {
	set := make(map[string]bool, len(changed))
	for _, k := range changed {
		set[k] = true
	}

	var out []Target
	dom.Walk(rt.doc.Root(), func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		container := IsContainer(n)
		deps := Dependencies(n)
		if container {
			if t, ok := rt.registry.Lookup(TemplateName(n)); ok {
				deps = append(deps, t.Deps...)
			}
		}
		if len(deps) == 0 {
			return true
		}

		var keys []string
		seen := make(map[string]bool)
		for _, k := range deps {
			if set[k] && !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
		if len(keys) == 0 {
			return true
		}

		switch {
		case container:
			out = append(out, Target{Node: n, Container: n, Keys: keys})
		case IsRegion(n) && RegionName(n) != "":
			owner := dom.Closest(n, IsContainer)
			if owner == nil {
				rt.log.Debug("region outside any container", zap.String("region", RegionName(n)))
				return true
			}
			out = append(out, Target{Node: n, Container: owner, Region: RegionName(n), Keys: keys})
		}
		return true
	})
	return out
}

// refreshDependents refreshes every dependent of changed with the full
// environment. A failing refresh is logged and published as
// ErrorTypeRefreshFailed; the remaining dependents are still refreshed.
func (rt *Runtime) refreshDependents(changed []string) {
	for _, t := range rt.Dependents(changed) {
		if !rt.doc.Contains(t.Container) {
			continue
		}
		api := rt.apiOf(t.Container)
		if api == nil {
			rt.log.Warn("dependent container is not loaded", zap.String("template", TemplateName(t.Container)))
			continue
		}
		if err := api.Refresh(rt.ctx, rt.env.Snapshot(), t.Region); err != nil {
			rt.log.Error("auto-refresh failed",
				zap.String("template", api.template),
				zap.String("region", t.Region),
				zap.Error(err))
			rt.errors.Broadcast(Error{Type: ErrorTypeRefreshFailed, Data: err})
		}
	}
}

// sameValue compares two JSON-shaped values by their canonical encoding,
// so 1, int64(1) and float64(1) compare equal.
func sameValue(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}
