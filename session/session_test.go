package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/rolerun/common"
	"github.com/mensylisir/rolerun/engine"
	"github.com/mensylisir/rolerun/play"
)

// fakeEngine records handle acquisition and release so tests can verify the
// scoped-release guarantee.
type fakeEngine struct {
	mu       sync.Mutex
	acquired int
	released int

	acquireErr error
	runErr     error
	cleanupErr error

	handleIDs []string

	result   *engine.Result
	lastCfg  engine.HandleConfig
	received []*play.Play
	running  int
	maxConc  int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{result: engine.NewResult()}
}

func (f *fakeEngine) NewHandle(cfg engine.HandleConfig) (engine.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	f.acquired++
	f.lastCfg = cfg
	h := &fakeHandle{engine: f, id: engine.NewHandleID()}
	f.handleIDs = append(f.handleIDs, h.id)
	return h, nil
}

func (f *fakeEngine) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acquired, f.released
}

type fakeHandle struct {
	engine *fakeEngine
	id     string
}

func (h *fakeHandle) ID() string { return h.id }

func (h *fakeHandle) Run(_ context.Context, p *play.Play) (*engine.Result, error) {
	h.engine.mu.Lock()
	h.engine.received = append(h.engine.received, p)
	h.engine.running++
	if h.engine.running > h.engine.maxConc {
		h.engine.maxConc = h.engine.running
	}
	runErr := h.engine.runErr
	result := h.engine.result
	h.engine.mu.Unlock()

	defer func() {
		h.engine.mu.Lock()
		h.engine.running--
		h.engine.mu.Unlock()
	}()

	if runErr != nil {
		return nil, runErr
	}
	return result, nil
}

func (h *fakeHandle) Cleanup() error {
	h.engine.mu.Lock()
	defer h.engine.mu.Unlock()
	h.engine.released++
	return h.engine.cleanupErr
}

func newTestSession(t *testing.T, eng *fakeEngine, cfg Config) *Session {
	t.Helper()
	s, err := New(eng, cfg)
	require.NoError(t, err)
	return s
}

func TestExecuteRole_ReleasesHandleOnSuccessAndFailure(t *testing.T) {
	eng := newFakeEngine()
	s := newTestSession(t, eng, Config{HostList: []string{"10.0.0.1"}})

	_, err := s.ExecuteRole(context.Background(), "ok-run", "webserver")
	require.NoError(t, err)

	eng.runErr = errors.New("host unreachable")
	_, err = s.ExecuteRole(context.Background(), "bad-run", "webserver")
	require.Error(t, err)

	eng.runErr = nil
	for i := 0; i < 3; i++ {
		_, err = s.ExecuteRole(context.Background(), "loop-run", "webserver")
		require.NoError(t, err)
	}

	acquired, released := eng.counts()
	assert.Equal(t, 5, acquired)
	assert.Equal(t, acquired, released, "every acquired handle must be released exactly once")
}

func TestExecuteRole_NoReleaseWithoutAcquire(t *testing.T) {
	eng := newFakeEngine()
	s := newTestSession(t, eng, Config{HostList: []string{"10.0.0.1"}})

	// Compilation fails before any handle is acquired.
	_, err := s.ExecuteRole(context.Background(), "", "webserver")
	require.Error(t, err)

	eng.acquireErr = errors.New("engine saturated")
	_, err = s.ExecuteRole(context.Background(), "run", "webserver")
	require.Error(t, err)

	acquired, released := eng.counts()
	assert.Zero(t, acquired)
	assert.Zero(t, released)
}

func TestExecuteRole_OverrideIsolation(t *testing.T) {
	eng := newFakeEngine()
	s := newTestSession(t, eng, Config{HostList: []string{"10.0.0.1"}})
	s.Scope().Set("port", 80)
	s.Scope().Set("user", "deploy")

	before := s.Scope().Snapshot()

	_, err := s.ExecuteRole(context.Background(), "deploy", "webserver",
		WithVars(map[string]any{"port": 8080, "fresh": true}))
	require.NoError(t, err)

	assert.Equal(t, before, s.Scope().Snapshot(), "per-call overrides must not leak into the session scope")
}

func TestExecuteRole_Defaults(t *testing.T) {
	eng := newFakeEngine()
	s := newTestSession(t, eng, Config{HostList: []string{"10.0.0.1", "10.0.0.2"}})

	_, err := s.ExecuteRole(context.Background(), "deploy", "webserver")
	require.NoError(t, err)

	require.Len(t, eng.received, 1)
	p := eng.received[0]
	assert.Equal(t, common.GroupAll, p.HostPattern, "no hosts option must target all")
	assert.Len(t, p.Hosts, 2)
	assert.True(t, p.GatherFacts, "fact gathering must default to enabled")
}

func TestExecuteRole_SingleInventoryPerSession(t *testing.T) {
	eng := newFakeEngine()
	s := newTestSession(t, eng, Config{HostList: []string{"10.0.0.1"}})

	_, err := s.ExecuteRole(context.Background(), "run-1", "webserver")
	require.NoError(t, err)
	first := eng.lastCfg.Inventory

	_, err = s.ExecuteRole(context.Background(), "run-2", "webserver")
	require.NoError(t, err)

	assert.Same(t, s.Inventory(), first)
	assert.Same(t, first, eng.lastCfg.Inventory, "inventory must never be rebuilt between calls")
	assert.Same(t, s.Scope(), eng.lastCfg.Scope)
}

func TestNew_ConfigurationErrors(t *testing.T) {
	eng := newFakeEngine()

	t.Run("nil engine", func(t *testing.T) {
		_, err := New(nil, Config{})
		var cfgErr *ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("unreadable inventory file", func(t *testing.T) {
		s, err := New(eng, Config{InventoryFile: filepath.Join(t.TempDir(), "missing.yaml")})
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Nil(t, s)
	})

	t.Run("conflicting host sources", func(t *testing.T) {
		_, err := New(eng, Config{HostList: []string{"a"}, InventoryFile: "inv.yaml"})
		var cfgErr *ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("bad credential material", func(t *testing.T) {
		_, err := New(eng, Config{Credentials: &engine.Credentials{PrivateKey: []byte("junk")}})
		var cfgErr *ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("negative forks", func(t *testing.T) {
		_, err := New(eng, Config{Forks: -2})
		var cfgErr *ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("unknown connection", func(t *testing.T) {
		_, err := New(eng, Config{Connection: "carrier-pigeon"})
		var cfgErr *ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	})
}

func TestExecuteRole_RoleResolutionError(t *testing.T) {
	eng := newFakeEngine()
	s := newTestSession(t, eng, Config{HostList: []string{"10.0.0.1"}})

	missing := filepath.Join(t.TempDir(), "roles", "ghost")
	_, err := s.ExecuteRole(context.Background(), "deploy", missing)

	var roleErr *RoleResolutionError
	require.ErrorAs(t, err, &roleErr)
	assert.Equal(t, missing, roleErr.Role)
}

func TestExecuteRole_RunFailureSurfacesAsExecutionError(t *testing.T) {
	eng := newFakeEngine()
	eng.runErr = errors.New("task 'install packages' failed on 10.0.0.1")
	s := newTestSession(t, eng, Config{HostList: []string{"10.0.0.1"}})

	res, err := s.ExecuteRole(context.Background(), "deploy", "webserver")
	assert.Nil(t, res)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "deploy", execErr.Play)
	assert.ErrorIs(t, err, eng.runErr)
}

func TestExecuteRole_CleanupFailure(t *testing.T) {
	t.Run("does not mask run failure", func(t *testing.T) {
		eng := newFakeEngine()
		eng.runErr = errors.New("run failed")
		eng.cleanupErr = errors.New("cleanup failed")
		s := newTestSession(t, eng, Config{HostList: []string{"10.0.0.1"}})

		_, err := s.ExecuteRole(context.Background(), "deploy", "webserver")
		require.Error(t, err)
		assert.ErrorIs(t, err, eng.runErr)
		assert.NotErrorIs(t, err, eng.cleanupErr)
	})

	t.Run("fails an otherwise successful run", func(t *testing.T) {
		eng := newFakeEngine()
		eng.cleanupErr = errors.New("cleanup failed")
		s := newTestSession(t, eng, Config{HostList: []string{"10.0.0.1"}})

		res, err := s.ExecuteRole(context.Background(), "deploy", "webserver")
		require.Error(t, err)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, eng.cleanupErr)
	})
}

func TestExecuteRole_EndToEnd(t *testing.T) {
	eng := newFakeEngine()
	s := newTestSession(t, eng, Config{
		Name:       "prepare",
		HostList:   []string{"10.0.0.1", "10.0.0.2"},
		Connection: common.ConnectionLocal,
	})

	res, err := s.ExecuteRole(context.Background(), "deploy", "webserver",
		WithVars(map[string]any{"port": 8080}),
		WithHosts("all"),
		WithoutFactGathering(),
	)
	require.NoError(t, err)
	assert.Same(t, eng.result, res, "the backend result must be passed through unmodified")

	require.Len(t, eng.received, 1)
	p := eng.received[0]
	assert.Equal(t, "deploy", p.Name)
	assert.Len(t, p.Hosts, 2)
	assert.False(t, p.GatherFacts)
	require.Len(t, p.Roles, 1)
	assert.Equal(t, "webserver", p.Roles[0].Name)
	assert.Equal(t, map[string]any{"port": 8080}, p.Roles[0].Vars)

	assert.Equal(t, common.ConnectionLocal, eng.lastCfg.Options.Connection)
	assert.Equal(t, common.DefaultForks, eng.lastCfg.Options.Forks)

	acquired, released := eng.counts()
	assert.Equal(t, 1, acquired)
	assert.Equal(t, 1, released)
}

func TestExecuteRole_SerializesConcurrentCalls(t *testing.T) {
	eng := newFakeEngine()
	s := newTestSession(t, eng, Config{HostList: []string{"10.0.0.1"}})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ExecuteRole(context.Background(), "concurrent", "webserver")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, eng.maxConc, "calls on one session must never overlap in the engine")

	acquired, released := eng.counts()
	assert.Equal(t, 8, acquired)
	assert.Equal(t, 8, released)
}

func TestExecuteRole_FreshHandlePerCall(t *testing.T) {
	eng := newFakeEngine()
	s := newTestSession(t, eng, Config{HostList: []string{"10.0.0.1"}})

	for i := 0; i < 3; i++ {
		_, err := s.ExecuteRole(context.Background(), "run", "webserver")
		require.NoError(t, err)
	}

	require.Len(t, eng.handleIDs, 3)
	distinct := make(map[string]bool)
	for _, id := range eng.handleIDs {
		distinct[id] = true
	}
	assert.Len(t, distinct, 3, "a handle must never be reused across calls")
}
