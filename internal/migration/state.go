package migration

// State is the phase an Engine is in.
type State int

const (
	// Idle means no run has started yet.
	Idle State = iota
	// Resolving means the engine is reading the current version and planning.
	Resolving
	// Applying means a unit's up or down step is running.
	Applying
	// RollingBack means a failed unit's rollback hook is running.
	RollingBack
	// Succeeded means the last run reached its target.
	Succeeded
	// Failed means the last run stopped with an error.
	Failed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Resolving:
		return "resolving"
	case Applying:
		return "applying"
	case RollingBack:
		return "rolling_back"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Observer receives every state transition together with the version the
// transition concerns (the unit for Applying and RollingBack, the stored
// version otherwise).
type Observer func(state State, version Version)
