package supervisor

// State is the lifecycle state of a unit. Starting and Stopping only exist
// while a lifecycle operation holds the unit lock.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

var allStates = []State{StateIdle, StateStarting, StateRunning, StateStopping}
