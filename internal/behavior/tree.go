package behavior

import (
	"fmt"

	"mizukoshi.dev/craft-agent-go/internal/blackboard"
	"mizukoshi.dev/craft-agent-go/internal/input"
)

// TickResult is the outcome of one tree tick: at most one action, or no-op
// when no branch fired. Transient, never persisted.
type TickResult struct {
	Fired  bool
	Action input.ActionID
}

// NoOp is the empty tick result.
var NoOp = TickResult{}

// Tree is the decision strategy for a Live session. The structure is
// immutable after New; the only mutation during ticking happens inside
// cooldown decorators.
type Tree struct {
	name string
	root *Node
}

// New builds a tree and rejects structural problems (empty composites,
// unknown actions, malformed decorators). Construction errors are fatal:
// a broken tree must never reach the live loop.
func New(name string, root *Node) (*Tree, error) {
	if root == nil {
		return nil, fmt.Errorf("tree %q has no root", name)
	}
	if err := root.validate(); err != nil {
		return nil, fmt.Errorf("tree %q: %w", name, err)
	}
	return &Tree{name: name, root: root}, nil
}

// Name returns the profile name the tree was built from.
func (t *Tree) Name() string {
	return t.name
}

// Tick re-evaluates the whole strategy against the current blackboard
// snapshot. Given identical snapshots the result is identical; document
// order decides between competing branches.
func (t *Tree) Tick(bb *blackboard.Blackboard) TickResult {
	r := t.root.evaluate(bb)
	if !r.ok || !r.hasAction {
		return NoOp
	}
	return TickResult{Fired: true, Action: r.action}
}

// SelfCheck verifies that every fact referenced by any condition exists in
// the schema. Run once at Live entry so UnknownFactError can never surface
// mid-session.
func (t *Tree) SelfCheck(schema *blackboard.Schema) error {
	if err := t.root.selfCheck(schema); err != nil {
		return fmt.Errorf("tree %q failed self-check: %w", t.name, err)
	}
	return nil
}

// DefaultTree is the built-in survival strategy used when no profile is
// configured: stop for obstacles or low health, nudge out of stuck states,
// otherwise explore forward.
func DefaultTree() *Tree {
	root := Selector("root",
		Sequence("avoid-obstacle",
			Condition("obstacle ahead", &FactTrue{Fact: "obstacle_ahead"}),
			Action(input.ActionStop),
		),
		Sequence("preserve-health",
			Condition("health low", &FactBelow{Fact: "hud.health", Threshold: 6}),
			Action(input.ActionStop),
		),
		Sequence("unstick",
			Condition("stuck", &FactTrue{Fact: "stuck"}),
			Cooldown(5, Action(input.ActionTurnRight)),
		),
		Action(input.ActionMoveForward),
	)
	tree, err := New("default", root)
	if err != nil {
		// The built-in tree is statically correct; a failure here is a bug.
		panic(err)
	}
	return tree
}
