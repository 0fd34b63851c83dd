package common

import "fmt"

const (
	AppName    = "rolerun"
	TmpDirBase = "/tmp/"
)

// Standard logging field keys, ordered from coarse to fine grained.
const (
	SessionName = "Session"
	PlayName    = "Play"
	RoleName    = "Role"
	HostName    = "Host"
	HandleName  = "Handle"
)

// ConnectionType enumerates how the backend engine reaches target hosts.
type ConnectionType string

const (
	// ConnectionLocal executes against the local machine without a transport.
	ConnectionLocal ConnectionType = "local"
	// ConnectionSSH executes over a remote shell transport.
	ConnectionSSH ConnectionType = "ssh"
	// ConnectionDocker executes inside containers.
	ConnectionDocker ConnectionType = "docker"
)

// Valid reports whether the connection type is one of the supported kinds.
func (c ConnectionType) Valid() bool {
	switch c {
	case ConnectionLocal, ConnectionSSH, ConnectionDocker:
		return true
	default:
		return false
	}
}

const (
	// DefaultForks is the number of parallel host dispatches the engine
	// performs when the session does not override it.
	DefaultForks = 5
	// DefaultSSHPort is used for hosts that do not declare a port.
	DefaultSSHPort = 22
	// GroupAll is the implicit group containing every inventory host.
	GroupAll = "all"
)

// CallState tracks the lifecycle of a single execute call on a session.
type CallState int

const (
	CallConfigured CallState = iota
	CallPlanBuilt
	CallEngineAcquired
	CallRunning
	CallCompleted
	CallFailed
	CallEngineReleased
)

func (s CallState) String() string {
	switch s {
	case CallConfigured:
		return "Configured"
	case CallPlanBuilt:
		return "PlanBuilt"
	case CallEngineAcquired:
		return "EngineAcquired"
	case CallRunning:
		return "Running"
	case CallCompleted:
		return "Completed"
	case CallFailed:
		return "Failed"
	case CallEngineReleased:
		return "EngineReleased"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Arch identifies a host CPU architecture as declared in inventory files.
type Arch string

const (
	ArchAmd64   Arch = "amd64"
	ArchX86_64  Arch = "x86_64"
	ArchArm64   Arch = "arm64"
	ArchArm     Arch = "arm"
	ArchUnknown Arch = "unknown"
)

// KnownArch reports whether the architecture is one this layer recognizes.
// An empty value is accepted and means "not declared".
func KnownArch(a Arch) bool {
	switch a {
	case ArchAmd64, ArchX86_64, ArchArm64, ArchArm, ArchUnknown, "":
		return true
	default:
		return false
	}
}
