package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/mensylisir/rolerun/cache"
	"github.com/mensylisir/rolerun/common"
)

// Host describes a single target machine as declared by an inventory source.
// Connection fields are carried through to the backend engine untouched.
type Host struct {
	Name              string         `yaml:"name,omitempty" json:"name,omitempty"`
	Address           string         `yaml:"address,omitempty" json:"address,omitempty"`
	Port              int            `yaml:"port,omitempty" json:"port,omitempty"`
	User              string         `yaml:"user,omitempty" json:"user,omitempty"`
	Password          string         `yaml:"password,omitempty" json:"password,omitempty"`
	PrivateKey        string         `yaml:"privateKey,omitempty" json:"privateKey,omitempty"`
	PrivateKeyPath    string         `yaml:"privateKeyPath,omitempty" json:"privateKeyPath,omitempty"`
	HostArch          common.Arch    `yaml:"arch,omitempty" json:"arch,omitempty"`
	ConnectionTimeout time.Duration  `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Vars              map[string]any `yaml:"vars,omitempty" json:"vars,omitempty"`

	groups     []string
	groupTable map[string]bool
	facts      *cache.Cache[string, any]
}

// NewHost creates a host with defaulted port and timeout.
func NewHost() *Host {
	h := &Host{}
	h.applyDefaults()
	return h
}

func (h *Host) applyDefaults() {
	if h.Port == 0 {
		h.Port = common.DefaultSSHPort
	}
	if h.ConnectionTimeout == 0 {
		h.ConnectionTimeout = 30 * time.Second
	}
	if h.Vars == nil {
		h.Vars = make(map[string]any)
	}
	if h.groupTable == nil {
		h.groupTable = make(map[string]bool)
	}
}

// Groups returns the groups this host belongs to, excluding the implicit
// "all" group. The returned slice is a copy.
func (h *Host) Groups() []string {
	groupsCopy := make([]string, len(h.groups))
	copy(groupsCopy, h.groups)
	return groupsCopy
}

// AddGroup records membership in the named group. Blank and duplicate names
// are ignored, as is the implicit "all" group.
func (h *Host) AddGroup(group string) {
	trimmed := strings.TrimSpace(group)
	if trimmed == "" || trimmed == common.GroupAll {
		return
	}
	if h.groupTable == nil {
		h.groupTable = make(map[string]bool)
	}
	if !h.groupTable[trimmed] {
		h.groupTable[trimmed] = true
		h.groups = append(h.groups, trimmed)
	}
}

// InGroup reports whether the host belongs to the named group.
// Every host is in "all".
func (h *Host) InGroup(group string) bool {
	trimmed := strings.TrimSpace(group)
	if trimmed == common.GroupAll {
		return true
	}
	return h.groupTable[trimmed]
}

// Var returns a host-level variable.
func (h *Host) Var(key string) (any, bool) {
	if h.Vars == nil {
		return nil, false
	}
	v, ok := h.Vars[key]
	return v, ok
}

// SetVar sets a host-level variable.
func (h *Host) SetVar(key string, value any) {
	if h.Vars == nil {
		h.Vars = make(map[string]any)
	}
	h.Vars[key] = value
}

// Facts returns the per-host fact cache, creating it on first use. The
// backend engine populates it during fact gathering; entries age out so
// stale host metadata is not trusted across long-lived sessions.
func (h *Host) Facts() *cache.Cache[string, any] {
	if h.facts == nil {
		h.facts = cache.NewCache[string, any](cache.WithDefaultTTL[string, any](5 * time.Minute))
	}
	return h.facts
}

// Validate checks the host for structural problems. Authentication material
// is not required here: local and containerized connections need none, and
// remote credentials may arrive separately through the session.
func (h *Host) Validate() error {
	if strings.TrimSpace(h.Name) == "" && strings.TrimSpace(h.Address) == "" {
		return fmt.Errorf("host must declare a name or an address")
	}
	if h.Port <= 0 || h.Port > 65535 {
		return fmt.Errorf("invalid port number %d for host '%s'", h.Port, h.ID())
	}
	if !common.KnownArch(h.HostArch) {
		return fmt.Errorf("invalid architecture '%s' for host '%s'", h.HostArch, h.ID())
	}
	return nil
}

// ID returns a stable identifier for the host: its name when set, otherwise
// its address:port pair.
func (h *Host) ID() string {
	if trimmed := strings.TrimSpace(h.Name); trimmed != "" {
		return trimmed
	}
	if trimmed := strings.TrimSpace(h.Address); trimmed != "" && h.Port > 0 {
		return fmt.Sprintf("%s:%d", trimmed, h.Port)
	}
	return fmt.Sprintf("unidentified-host-%p", h)
}
