package vars

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/rolerun/inventory"
)

func boundScope(t *testing.T) (*Scope, *inventory.Inventory) {
	t.Helper()
	inv, err := inventory.FromHostList([]string{"10.0.0.1"})
	require.NoError(t, err)
	s := NewScope()
	require.NoError(t, s.BindInventory(inv))
	return s, inv
}

func TestScope_BindInventory(t *testing.T) {
	s := NewScope()
	assert.Nil(t, s.Inventory())
	assert.Error(t, s.BindInventory(nil))

	inv, err := inventory.FromHostList(nil)
	require.NoError(t, err)
	require.NoError(t, s.BindInventory(inv))
	assert.Same(t, inv, s.Inventory())

	other, err := inventory.FromHostList(nil)
	require.NoError(t, err)
	assert.Error(t, s.BindInventory(other), "rebinding must fail")
}

func TestScope_Flatten_RequiresBinding(t *testing.T) {
	s := NewScope()
	s.Set("a", 1)
	_, err := s.Flatten()
	assert.Error(t, err)
}

func TestScope_Flatten_Precedence(t *testing.T) {
	s, _ := boundScope(t)
	s.Set("port", 80)
	s.Set("user", "deploy")

	flat, err := s.Flatten(map[string]any{"port": 8080})
	require.NoError(t, err)
	assert.Equal(t, 8080, flat["port"], "override layer must win")
	assert.Equal(t, "deploy", flat["user"])

	// Overrides never leak back into the scope.
	v, _ := s.Get("port")
	assert.Equal(t, 80, v)
}

func TestScope_FlattenForHost(t *testing.T) {
	s, inv := boundScope(t)
	s.Set("datadir", "/var/lib")
	s.Set("port", 80)

	host, ok := inv.Host("10.0.0.1")
	require.True(t, ok)
	host.SetVar("port", 81)

	flat, err := s.FlattenForHost(host, map[string]any{"port": 82})
	require.NoError(t, err)
	assert.Equal(t, 82, flat["port"], "call override beats host var")
	assert.Equal(t, "/var/lib", flat["datadir"])

	flat, err = s.FlattenForHost(host)
	require.NoError(t, err)
	assert.Equal(t, 81, flat["port"], "host var beats session var")

	_, err = s.FlattenForHost(nil)
	assert.Error(t, err)
}

func TestScope_Snapshot_Isolated(t *testing.T) {
	s, _ := boundScope(t)
	s.Set("k", "v")

	snap := s.Snapshot()
	snap["k"] = "tampered"

	v, _ := s.Get("k")
	assert.Equal(t, "v", v)
}

func TestRenderValue(t *testing.T) {
	flat := map[string]any{"port": 8080}

	out, err := RenderValue("listen {{ .port }}", flat)
	require.NoError(t, err)
	assert.Equal(t, "listen 8080", out)

	out, err = RenderValue("plain", flat)
	require.NoError(t, err)
	assert.Equal(t, "plain", out)

	out, err = RenderValue(42, flat)
	require.NoError(t, err)
	assert.Equal(t, 42, out)

	_, err = RenderValue("{{ .missing }}", flat)
	assert.Error(t, err)
}
