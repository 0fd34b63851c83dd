package engine

import (
	"fmt"

	"github.com/mensylisir/rolerun/common"
)

// Options is the fixed bundle of run-level configuration handed to the
// backend with every handle. It is assembled once at session construction
// and never modified afterwards.
type Options struct {
	// Connection selects how the backend reaches hosts.
	Connection common.ConnectionType
	// ModulePath points the backend at third-party modules to load.
	ModulePath string
	// Forks caps how many hosts the backend dispatches to in parallel.
	Forks int
	// Become activates privilege escalation.
	Become bool
	// BecomeMethod names the escalation mechanism (e.g. sudo).
	BecomeMethod string
	// BecomeUser is the user to assume when escalating.
	BecomeUser string
	// Check makes the backend simulate actions instead of applying them.
	Check bool
}

// Validate checks the options for structural problems.
func (o Options) Validate() error {
	if !o.Connection.Valid() {
		return fmt.Errorf("engine: unsupported connection type '%s'", o.Connection)
	}
	if o.Forks <= 0 {
		return fmt.Errorf("engine: forks must be positive, got %d", o.Forks)
	}
	if !o.Become && (o.BecomeMethod != "" || o.BecomeUser != "") {
		return fmt.Errorf("engine: become method/user set but become is disabled")
	}
	return nil
}
