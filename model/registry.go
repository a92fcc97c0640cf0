package model

import "fmt"
import "sort"

// Registry maps a model family name to its factory. Families are registered
// once at process start.
type Registry struct {
	families map[string]Family
}

func NewRegistry() *Registry {
	return &Registry{families: make(map[string]Family)}
}

// Register adds a family. Registering a name twice is a programming error.
func (r *Registry) Register(name string, family Family) {
	if _, exists := r.families[name]; exists {
		panic(fmt.Sprintf("model: family %q registered twice", name))
	}
	r.families[name] = family
}

// Build looks up the family by name and builds its models.
func (r *Registry) Build(name string, parameters map[string]any) (*Set, error) {
	family, ok := r.families[name]
	if !ok {
		return nil, fmt.Errorf("unknown model family %q (registered: %v)", name, r.Names())
	}
	set, err := family.Build(parameters)
	if err != nil {
		return nil, fmt.Errorf("build model family %q: %w", name, err)
	}
	if set.Extensions == nil {
		set.Extensions = map[string]Extension{}
	}
	if set.Principals == nil {
		set.Principals = map[string]Principal{}
	}
	return set, nil
}

// Names lists registered families in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.families))
	for name := range r.families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
