package vars

import (
	"github.com/pkg/errors"

	"github.com/mensylisir/rolerun/inventory"
	"github.com/mensylisir/rolerun/util"
)

// Scope is the session-level variable mapping visible to every play a
// session compiles. It must be bound to the session's inventory before any
// play flattening happens: host variable resolution consults the inventory.
//
// Per-call overrides are layered on top during flattening and are never
// written back into the scope.
type Scope struct {
	values map[string]any
	inv    *inventory.Inventory
}

// NewScope creates an empty, unbound scope.
func NewScope() *Scope {
	return &Scope{values: make(map[string]any)}
}

// BindInventory attaches the session's inventory to the scope. Binding is
// a construction-time step; rebinding an already bound scope is an error.
func (s *Scope) BindInventory(inv *inventory.Inventory) error {
	if inv == nil {
		return errors.New("vars: cannot bind a nil inventory")
	}
	if s.inv != nil {
		return errors.New("vars: scope is already bound to an inventory")
	}
	s.inv = inv
	return nil
}

// Inventory returns the bound inventory, or nil when unbound.
func (s *Scope) Inventory() *inventory.Inventory {
	return s.inv
}

// Set stores a session-level variable.
func (s *Scope) Set(key string, value any) {
	s.values[key] = value
}

// SetAll stores every entry of the given map as session-level variables.
func (s *Scope) SetAll(values map[string]any) {
	for k, v := range values {
		s.values[k] = v
	}
}

// Get returns a session-level variable.
func (s *Scope) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Len returns the number of session-level variables.
func (s *Scope) Len() int {
	return len(s.values)
}

// Snapshot returns a copy of the session-level variables. Tests use it to
// assert that execute calls leave the scope untouched.
func (s *Scope) Snapshot() map[string]any {
	return util.CopyMap(s.values)
}

// Flatten merges the session variables with the given override layers,
// later layers winning. The scope must be bound first.
func (s *Scope) Flatten(overrides ...map[string]any) (map[string]any, error) {
	if s.inv == nil {
		return nil, errors.New("vars: scope has no inventory bound")
	}
	layers := append([]map[string]any{s.values}, overrides...)
	return util.MergeMaps(layers...), nil
}

// FlattenForHost merges session variables, the host's inventory variables
// and the given override layers, in that precedence order.
func (s *Scope) FlattenForHost(host *inventory.Host, overrides ...map[string]any) (map[string]any, error) {
	if s.inv == nil {
		return nil, errors.New("vars: scope has no inventory bound")
	}
	if host == nil {
		return nil, errors.New("vars: host is nil")
	}
	layers := append([]map[string]any{s.values, host.Vars}, overrides...)
	return util.MergeMaps(layers...), nil
}

// RenderValue interpolates template actions in string values against the
// given flattened variables. Non-string values and plain strings pass
// through unchanged.
func RenderValue(value any, flattened map[string]any) (any, error) {
	str, ok := value.(string)
	if !ok || !util.IsTemplated(str) {
		return value, nil
	}
	rendered, err := util.RenderString(str, util.Data(flattened))
	if err != nil {
		return nil, errors.Wrapf(err, "vars: failed to render value '%s'", str)
	}
	return rendered, nil
}
