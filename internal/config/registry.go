package config

import (
	"fmt"
	"sort"
	"strings"

	gserrors "github.com/shkmv/gitlab-search-cli/internal/errors"
)

// Registry resolves instance names to configured instances.
type Registry struct {
	instances  []Instance
	envDefault string
}

// NewRegistry creates a registry. envDefault is the instance named by
// GITLAB_SEARCH_INSTANCE, if any.
func NewRegistry(instances []Instance, envDefault string) *Registry {
	return &Registry{instances: instances, envDefault: strings.TrimSpace(envDefault)}
}

// Resolve returns the named instance. With an empty name it returns, in
// order: the instance named by GITLAB_SEARCH_INSTANCE, the single instance
// marked default, or the only configured instance. Several defaults, or
// several instances and no default, are ambiguous.
func (r *Registry) Resolve(name string) (Instance, error) {
	name = strings.TrimSpace(name)
	if len(r.instances) == 0 {
		return Instance{}, gserrors.New(gserrors.ErrCodeNoInstances, "no GitLab instances are configured", nil).
			WithSuggestion("Add one with 'gitlab-search config add --name NAME --url URL --token TOKEN'")
	}

	if name == "" {
		name = r.envDefault
	}
	if name != "" {
		if inst, ok := r.lookup(name); ok {
			return inst, nil
		}
		return Instance{}, instanceNotFound(name, r.instances)
	}

	var defaults []Instance
	for _, inst := range r.instances {
		if inst.Default {
			defaults = append(defaults, inst)
		}
	}

	switch {
	case len(defaults) == 1:
		return defaults[0], nil
	case len(defaults) > 1:
		return Instance{}, gserrors.New(gserrors.ErrCodeAmbiguousDefault,
			fmt.Sprintf("more than one instance is marked default: %s", strings.Join(names(defaults), ", ")), nil).
			WithSuggestion("Run 'gitlab-search config default NAME' to pick one")
	case len(r.instances) == 1:
		return r.instances[0], nil
	default:
		return Instance{}, gserrors.New(gserrors.ErrCodeAmbiguousDefault,
			fmt.Sprintf("no default instance among %s", strings.Join(names(r.instances), ", ")), nil).
			WithSuggestion("Pass --instance NAME or run 'gitlab-search config default NAME'")
	}
}

// Names returns the configured instance names, sorted.
func (r *Registry) Names() []string {
	out := names(r.instances)
	sort.Strings(out)
	return out
}

// All returns the configured instances in file order.
func (r *Registry) All() []Instance {
	out := make([]Instance, len(r.instances))
	copy(out, r.instances)
	return out
}

func (r *Registry) lookup(name string) (Instance, bool) {
	for _, inst := range r.instances {
		if inst.Name == name {
			return inst, true
		}
	}
	return Instance{}, false
}

func names(instances []Instance) []string {
	out := make([]string, len(instances))
	for i, inst := range instances {
		out[i] = inst.Name
	}
	return out
}

func instanceNotFound(name string, instances []Instance) error {
	e := gserrors.New(gserrors.ErrCodeInstanceNotFound, fmt.Sprintf("instance %q is not configured", name), nil)
	if len(instances) > 0 {
		known := names(instances)
		sort.Strings(known)
		e = e.WithSuggestion("Known instances: " + strings.Join(known, ", "))
	}
	return e
}
