// Package session provides a thin lifecycle wrapper around running a
// provisioning role against a set of hosts: it builds an inventory, wires
// the variable scope, compiles a play invoking the role and drives the
// backend engine, guaranteeing the engine handle is released on every
// exit path.
package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/rolerun/common"
	"github.com/mensylisir/rolerun/engine"
	"github.com/mensylisir/rolerun/inventory"
	"github.com/mensylisir/rolerun/loader"
	"github.com/mensylisir/rolerun/logger"
	"github.com/mensylisir/rolerun/play"
	"github.com/mensylisir/rolerun/util"
	"github.com/mensylisir/rolerun/vars"
)

// Config for creating a new Session. Everything is optional except the host
// source when remote hosts are wanted: HostList and InventoryFile are
// mutually exclusive and leaving both empty yields an empty inventory.
type Config struct {
	// Name labels the session in logs.
	Name string
	// Scope is the session-level variable scope. A fresh empty scope is
	// created when nil. The scope must not be bound to an inventory yet.
	Scope *vars.Scope
	// Loader is the data-loading facility. A fresh loader is created when nil.
	Loader *loader.DataLoader
	// HostList is a literal list of host identifiers.
	HostList []string
	// InventoryFile is the path to an inventory description file.
	InventoryFile string
	// RoleSearchPaths are directories bare role names are looked up under.
	RoleSearchPaths []string
	// Credentials is host credential material handed to the engine.
	Credentials *engine.Credentials
	// Connection selects the transport. Default: local.
	Connection common.ConnectionType
	// ModulePath points the backend at third-party modules.
	ModulePath string
	// Forks caps parallel host dispatch. Default: 5.
	Forks int
	// Become enables privilege escalation, via BecomeMethod as BecomeUser.
	Become       bool
	BecomeMethod string
	BecomeUser   string
	// Check makes runs simulate instead of apply.
	Check bool
	// Logger receives session logging. Discarded when nil.
	Logger *logrus.Entry
}

// Session holds the configuration for the lifetime of a runner instance:
// one inventory, one variable scope, one frozen option record. It exposes
// a single operation, ExecuteRole.
//
// Calls are serialized with an internal mutex: the engine handle is
// single-use and concurrent executions would race on the shared
// inventory and scope.
type Session struct {
	engine    engine.Engine
	scope     *vars.Scope
	loader    *loader.DataLoader
	inventory *inventory.Inventory
	options   engine.Options
	creds     *engine.Credentials
	rolePaths []string
	log       *logrus.Entry

	mu sync.Mutex
}

// New creates a Session bound to the given engine. The inventory is built
// exactly once, from the host list or the inventory file, and bound into
// the variable scope before New returns.
func New(eng engine.Engine, cfg Config) (*Session, error) {
	if eng == nil {
		return nil, NewConfigurationError("engine must not be nil", nil)
	}
	if len(cfg.HostList) > 0 && cfg.InventoryFile != "" {
		return nil, NewConfigurationError("host list and inventory file are mutually exclusive", nil)
	}

	scope := cfg.Scope
	if scope == nil {
		scope = vars.NewScope()
	}
	dl := cfg.Loader
	if dl == nil {
		dl = loader.NewDataLoader()
	}

	connection := cfg.Connection
	if connection == "" {
		connection = common.ConnectionLocal
	}
	forks := cfg.Forks
	if forks == 0 {
		forks = common.DefaultForks
	}

	options := engine.Options{
		Connection:   connection,
		ModulePath:   cfg.ModulePath,
		Forks:        forks,
		Become:       cfg.Become,
		BecomeMethod: cfg.BecomeMethod,
		BecomeUser:   cfg.BecomeUser,
		Check:        cfg.Check,
	}
	if err := options.Validate(); err != nil {
		return nil, NewConfigurationError("invalid run options", err)
	}

	if err := cfg.Credentials.Validate(); err != nil {
		return nil, NewConfigurationError("invalid credential material", err)
	}

	var inv *inventory.Inventory
	var err error
	if cfg.InventoryFile != "" {
		inv, err = inventory.FromFile(dl, cfg.InventoryFile)
	} else {
		inv, err = inventory.FromHostList(cfg.HostList)
	}
	if err != nil {
		return nil, NewConfigurationError("failed to build inventory", err)
	}

	// The scope must know its inventory before any role executes: role
	// variable resolution consults it during play compilation.
	if err := scope.BindInventory(inv); err != nil {
		return nil, NewConfigurationError("failed to bind inventory into variable scope", err)
	}

	return &Session{
		engine:    eng,
		scope:     scope,
		loader:    dl,
		inventory: inv,
		options:   options,
		creds:     cfg.Credentials,
		rolePaths: cfg.RoleSearchPaths,
		log:       logger.SessionEntry(cfg.Logger, cfg.Name),
	}, nil
}

// Inventory returns the session's inventory. It is shared, never rebuilt.
func (s *Session) Inventory() *inventory.Inventory {
	return s.inventory
}

// Scope returns the session's variable scope.
func (s *Session) Scope() *vars.Scope {
	return s.scope
}

// Options returns the frozen run options.
func (s *Session) Options() engine.Options {
	return s.options
}

// executeConfig holds the per-call parameters of ExecuteRole.
type executeConfig struct {
	vars        map[string]any
	hosts       string
	gatherFacts bool
}

// ExecuteOption customizes a single ExecuteRole call.
type ExecuteOption func(*executeConfig)

// WithVars merges variable overrides into the role's scope for this call
// only. The session-level scope is never modified.
func WithVars(overrides map[string]any) ExecuteOption {
	return func(ec *executeConfig) {
		ec.vars = util.CopyMap(overrides)
	}
}

// WithHosts targets a host or group selector instead of the default "all".
func WithHosts(selector string) ExecuteOption {
	return func(ec *executeConfig) {
		ec.hosts = selector
	}
}

// WithGatherFacts controls backend fact collection before the role runs.
func WithGatherFacts(gather bool) ExecuteOption {
	return func(ec *executeConfig) {
		ec.gatherFacts = gather
	}
}

// WithoutFactGathering disables fact collection, an optimization for roles
// that do not consult host facts.
func WithoutFactGathering() ExecuteOption {
	return WithGatherFacts(false)
}

// ExecuteRole runs a play consisting of the single named role against the
// selected hosts and returns the backend's result unmodified.
//
// Each call compiles one ephemeral play and acquires one fresh engine
// handle; the handle is released on every exit path, including compilation
// and run failures, and never reused.
func (s *Session) ExecuteRole(ctx context.Context, name, role string, opts ...ExecuteOption) (result *engine.Result, retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ec := executeConfig{hosts: common.GroupAll, gatherFacts: true}
	for _, opt := range opts {
		opt(&ec)
	}

	log := s.log.WithFields(logrus.Fields{common.PlayName: name, common.RoleName: role})
	log.Debugf("execute call state: %s", common.CallConfigured)

	spec := play.Spec{
		Name:        name,
		Hosts:       ec.hosts,
		GatherFacts: ec.gatherFacts,
		Roles:       []play.RoleRef{{Role: role, Vars: ec.vars}},
	}

	compiled, err := play.Compile(spec, s.scope, s.loader, s.rolePaths)
	if err != nil {
		var notFound *loader.RoleNotFoundError
		if errors.As(err, &notFound) {
			return nil, NewRoleResolutionError(role, err)
		}
		return nil, NewExecutionError(name, err)
	}
	log.Debugf("execute call state: %s (%d hosts selected)", common.CallPlanBuilt, len(compiled.Hosts))

	handle, err := s.engine.NewHandle(engine.HandleConfig{
		Inventory:   s.inventory,
		Scope:       s.scope,
		Loader:      s.loader,
		Options:     s.options,
		Credentials: s.creds,
		Logger:      log,
	})
	if err != nil {
		return nil, NewExecutionError(name, errors.Wrap(err, "failed to acquire engine handle"))
	}
	log = log.WithField(common.HandleName, handle.ID())
	log.Debugf("execute call state: %s", common.CallEngineAcquired)

	defer func() {
		if cleanupErr := handle.Cleanup(); cleanupErr != nil {
			log.WithError(cleanupErr).Warn("engine handle cleanup failed")
			// A run failure is never masked by a cleanup failure.
			if retErr == nil {
				result = nil
				retErr = NewExecutionError(name, errors.Wrap(cleanupErr, "engine handle cleanup failed"))
			}
		}
		log.Debugf("execute call state: %s", common.CallEngineReleased)
	}()

	log.Debugf("execute call state: %s", common.CallRunning)
	res, err := handle.Run(ctx, compiled)
	if err != nil {
		log.Debugf("execute call state: %s", common.CallFailed)
		return nil, NewExecutionError(name, err)
	}
	log.Debugf("execute call state: %s", common.CallCompleted)
	return res, nil
}
