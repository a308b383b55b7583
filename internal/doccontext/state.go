package doccontext

// State is the lifecycle position of a compilation.
type State int

const (
	StateNotStarted State = iota
	StateRegistering
	StateCurating
	StateReadyToConvert
	StateConverting
	StateDone
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRegistering:
		return "registering"
	case StateCurating:
		return "curating"
	case StateReadyToConvert:
		return "ready_to_convert"
	case StateConverting:
		return "converting"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// transitions lists the states each state may move to.
var transitions = map[State][]State{
	StateNotStarted:     {StateRegistering},
	StateRegistering:    {StateCurating, StateCancelled},
	StateCurating:       {StateReadyToConvert},
	StateReadyToConvert: {StateConverting},
	StateConverting:     {StateDone, StateCancelled},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
