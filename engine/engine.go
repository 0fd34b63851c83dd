// Package engine defines the contract between the session layer and a host
// automation backend. The backend owns everything hard: connection plugins,
// parallel dispatch, privilege escalation, fact gathering, retries. This
// package only fixes the shapes the two sides exchange.
package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/rolerun/inventory"
	"github.com/mensylisir/rolerun/loader"
	"github.com/mensylisir/rolerun/play"
	"github.com/mensylisir/rolerun/vars"
)

// HandleConfig carries the session state a handle needs for one run.
type HandleConfig struct {
	Inventory   *inventory.Inventory
	Scope       *vars.Scope
	Loader      *loader.DataLoader
	Options     Options
	Credentials *Credentials
	Logger      *logrus.Entry
}

// Engine creates execution handles. Implementations are long-lived and safe
// to share; the handles they produce are not.
type Engine interface {
	// NewHandle acquires a fresh handle for a single run.
	NewHandle(cfg HandleConfig) (Handle, error)
}

// Handle is a per-call execution resource. A handle runs exactly one
// compiled play and is released afterwards; it is never reused across
// calls. Cleanup must be safe to call regardless of whether Run happened
// or failed.
type Handle interface {
	// ID identifies the handle for logging and bookkeeping.
	ID() string

	// Run dispatches the compiled play to its hosts and blocks until the
	// backend finishes. The result is backend-owned and passed through to
	// the caller unmodified.
	Run(ctx context.Context, p *play.Play) (*Result, error)

	// Cleanup releases every resource the handle holds. It is called on
	// both success and failure paths.
	Cleanup() error
}

// NewHandleID returns a unique identifier for a freshly acquired handle.
func NewHandleID() string {
	return uuid.NewString()
}
