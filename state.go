package gate

// Phase is the lifecycle position of a mounted gate.
type Phase uint8

const (
	// PhaseBooting is the phase before Mount and after Unmount.
	PhaseBooting Phase = iota
	// PhaseChecking means at least one validity check is in flight.
	PhaseChecking
	// PhaseSettled means the status is definite and no check is in flight.
	PhaseSettled
)

func (p Phase) String() string {
	switch p {
	case PhaseBooting:
		return "booting"
	case PhaseChecking:
		return "checking"
	case PhaseSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Status is the session status derived from the stored credential.
type Status uint8

const (
	// StatusUnknown is reported until the first check of a mount completes.
	StatusUnknown Status = iota
	// StatusAuthenticated means a present, unexpired credential was found.
	StatusAuthenticated
	// StatusUnauthenticated means no usable credential was found.
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// State is a read-only snapshot of the gate.
type State struct {
	Phase   Phase
	Status  Status
	Path    string
	Mounted bool
	// Pending is the number of checks started but not yet completed.
	Pending int
	// Redirecting is true while the single-flight redirect guard is held.
	Redirecting bool
}

// Authenticated reports the session status as the (authed, known) pair consumers
// branch on. known is false while the status is StatusUnknown.
func (s State) Authenticated() (authed bool, known bool) {
	switch s.Status {
	case StatusAuthenticated:
		return true, true
	case StatusUnauthenticated:
		return false, true
	default:
		return false, false
	}
}
