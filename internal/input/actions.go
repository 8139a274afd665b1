package input

import "fmt"

// ActionID identifies one of the closed set of discrete actions the decision
// engine may emit. The dispatcher maps each to a concrete input sequence.
type ActionID string

const (
	ActionMoveForward ActionID = "MoveForward"
	ActionTurnLeft    ActionID = "TurnLeft"
	ActionTurnRight   ActionID = "TurnRight"
	ActionJump        ActionID = "Jump"
	ActionStop        ActionID = "Stop"
)

// Actions lists every valid action in a stable order.
func Actions() []ActionID {
	return []ActionID{ActionMoveForward, ActionTurnLeft, ActionTurnRight, ActionJump, ActionStop}
}

// ParseAction validates an action name from a tree profile.
func ParseAction(s string) (ActionID, error) {
	for _, id := range Actions() {
		if string(id) == s {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", s)
}
