package agent

import "fmt"

// Mode is the controller's lifecycle state. Setup and Live are both terminal
// loops entered from Idle; Stopped is final for a Live run, Setup returns to
// Idle. There is no Setup→Live shortcut: calibration output must be reviewed
// and loaded as config before going live.
type Mode int

const (
	ModeIdle Mode = iota
	ModeSetup
	ModeLive
	ModeStopped
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeSetup:
		return "setup"
	case ModeLive:
		return "live"
	case ModeStopped:
		return "stopped"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// TransitionError reports an illegal mode change.
type TransitionError struct {
	From Mode
	To   Mode
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal mode transition %s -> %s", e.From, e.To)
}

// legal transitions; Stop is handled separately and is always allowed.
func canTransition(from, to Mode) bool {
	switch from {
	case ModeIdle:
		return to == ModeSetup || to == ModeLive
	case ModeSetup:
		return to == ModeIdle
	case ModeLive:
		return to == ModeStopped
	default:
		return false
	}
}
