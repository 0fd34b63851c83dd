package play

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/mensylisir/rolerun/common"
	"github.com/mensylisir/rolerun/inventory"
	"github.com/mensylisir/rolerun/loader"
	"github.com/mensylisir/rolerun/util"
	"github.com/mensylisir/rolerun/vars"
)

// RoleRef names a role inside a play description together with the variable
// overrides scoped to that role.
type RoleRef struct {
	Role string         `yaml:"role"`
	Vars map[string]any `yaml:"vars,omitempty"`
}

// Spec is the raw play description assembled per execute call: a label, a
// host selector, the fact-gathering flag and the roles to apply. It mirrors
// the backend's play document shape.
type Spec struct {
	Name        string    `yaml:"name"`
	Hosts       string    `yaml:"hosts,omitempty"`
	GatherFacts bool      `yaml:"gather_facts"`
	Roles       []RoleRef `yaml:"roles"`
}

// ResolvedRole is a role reference after compilation: the identifier the
// backend should load, plus its rendered variable overrides.
type ResolvedRole struct {
	Name string
	Path string
	Vars map[string]any
}

// Play is a compiled, single-use execution plan. It carries everything the
// backend engine needs to dispatch: the selected hosts, the flattened
// variable view and the resolved roles.
type Play struct {
	Name        string
	HostPattern string
	Hosts       []*inventory.Host
	GatherFacts bool
	Roles       []ResolvedRole
	Vars        map[string]any
}

// Compile turns a play description into an executable plan using the
// session's variable scope and data loader. It resolves role identifiers,
// renders templated variable values against the flattened scope and selects
// the target hosts from the bound inventory.
//
// The returned Play owns copies of every variable map: mutating it never
// touches the scope or the caller's override maps.
func Compile(spec Spec, scope *vars.Scope, dl *loader.DataLoader, roleSearchPaths []string) (*Play, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, errors.New("play: name must not be empty")
	}
	if len(spec.Roles) == 0 {
		return nil, errors.New("play: at least one role is required")
	}
	if scope == nil {
		return nil, errors.New("play: variable scope is nil")
	}
	if dl == nil {
		return nil, errors.New("play: data loader is nil")
	}
	if scope.Inventory() == nil {
		return nil, errors.New("play: scope has no inventory bound")
	}

	hostPattern := spec.Hosts
	if strings.TrimSpace(hostPattern) == "" {
		hostPattern = common.GroupAll
	}

	compiled := &Play{
		Name:        spec.Name,
		HostPattern: hostPattern,
		Hosts:       scope.Inventory().Select(hostPattern),
		GatherFacts: spec.GatherFacts,
	}

	for _, ref := range spec.Roles {
		resolved, err := dl.ResolveRole(ref.Role, roleSearchPaths)
		if err != nil {
			return nil, errors.Wrapf(err, "play '%s': cannot resolve role '%s'", spec.Name, ref.Role)
		}

		flattened, err := scope.Flatten(ref.Vars)
		if err != nil {
			return nil, errors.Wrapf(err, "play '%s'", spec.Name)
		}

		roleVars := make(map[string]any, len(ref.Vars))
		for k, v := range ref.Vars {
			rendered, err := vars.RenderValue(v, flattened)
			if err != nil {
				return nil, errors.Wrapf(err, "play '%s': role '%s'", spec.Name, ref.Role)
			}
			roleVars[k] = rendered
		}

		compiled.Roles = append(compiled.Roles, ResolvedRole{
			Name: ref.Role,
			Path: resolved,
			Vars: roleVars,
		})
		// The play-level view is the last role's flattened scope; with the
		// single-role plays this layer builds, that is the only one.
		compiled.Vars = util.MergeMaps(flattened, roleVars)
	}

	return compiled, nil
}
