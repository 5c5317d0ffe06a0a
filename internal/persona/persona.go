// Package persona holds the coaching personas and the policies that pick
// one for a user.
package persona

import "slices"

// Persona is a coaching voice: a system prompt, the tools it may call and
// the goal types it specializes in.
type Persona struct {
	ID          string
	Name        string
	Description string
	Available   bool
	GoalTypes   []string
	Tools       []string
	Prompt      string
}

// matches counts how many of goalTypes this persona specializes in.
func (p Persona) matches(goalTypes []string) int {
	n := 0
	for _, gt := range goalTypes {
		if slices.Contains(p.GoalTypes, gt) {
			n++
		}
	}
	return n
}

// Registry is an ordered set of personas.
type Registry struct {
	order []string
	byID  map[string]Persona
}

func NewRegistry(personas ...Persona) *Registry {
	r := &Registry{byID: make(map[string]Persona)}
	for _, p := range personas {
		if _, dup := r.byID[p.ID]; !dup {
			r.order = append(r.order, p.ID)
		}
		r.byID[p.ID] = p
	}
	return r
}

// Default returns the registry of built-in personas.
func Default() *Registry {
	return NewRegistry(AppBuilder, PerformanceCoach, MasterCraftsman, SystemsEngineer)
}

// Get returns the persona with the given id.
func (r *Registry) Get(id string) (Persona, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// All returns every persona in registration order.
func (r *Registry) All() []Persona {
	out := make([]Persona, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Available returns the personas that can be selected.
func (r *Registry) Available() []Persona {
	var out []Persona
	for _, p := range r.All() {
		if p.Available {
			out = append(out, p)
		}
	}
	return out
}

// Policy picks a persona for a user given the types of their goals.
type Policy interface {
	Select(r *Registry, goalTypes []string) Persona
}

// Static always selects one persona, falling back to the first available
// persona when the id is unknown or unavailable.
type Static struct {
	ID string
}

func (s Static) Select(r *Registry, _ []string) Persona {
	if p, ok := r.Get(s.ID); ok && p.Available {
		return p
	}
	return first(r)
}

// Affinity selects the available persona that specializes in the most of
// the user's goal types. Ties go to the earlier registered persona; no
// match selects Fallback.
type Affinity struct {
	Fallback string
}

func (a Affinity) Select(r *Registry, goalTypes []string) Persona {
	var best Persona
	bestScore := 0
	for _, p := range r.Available() {
		if n := p.matches(goalTypes); n > bestScore {
			best, bestScore = p, n
		}
	}
	if bestScore > 0 {
		return best
	}
	return Static{ID: a.Fallback}.Select(r, goalTypes)
}

func first(r *Registry) Persona {
	if avail := r.Available(); len(avail) > 0 {
		return avail[0]
	}
	return AppBuilder
}

// PolicyFor maps a configuration value to a policy: "auto" selects by goal
// affinity, anything else names a persona.
func PolicyFor(name string) Policy {
	if name == "auto" {
		return Affinity{Fallback: AppBuilder.ID}
	}
	return Static{ID: name}
}
