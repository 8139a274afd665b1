package behavior

import (
	"fmt"

	"mizukoshi.dev/craft-agent-go/internal/blackboard"
	"mizukoshi.dev/craft-agent-go/internal/input"
)

// NodeKind is the closed set of node variants. The tree is a tagged-variant
// structure rather than an interface hierarchy so the whole evaluation
// contract lives in one switch.
type NodeKind int

const (
	KindSequence NodeKind = iota
	KindSelector
	KindCondition
	KindAction
	KindCooldown
	KindInvert
)

func (k NodeKind) String() string {
	switch k {
	case KindSequence:
		return "sequence"
	case KindSelector:
		return "selector"
	case KindCondition:
		return "condition"
	case KindAction:
		return "action"
	case KindCooldown:
		return "cooldown"
	case KindInvert:
		return "invert"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// Node is one tree node. Which fields are meaningful depends on Kind:
// composites use Children, conditions use Predicate, actions use Action, and
// decorators use Children[0] plus their own parameters. The cooldown counter
// is the only mutable state in the whole tree and lives here as explicit
// fields, never in globals.
type Node struct {
	Kind      NodeKind
	Name      string
	Children  []*Node
	Predicate Predicate
	Action    input.ActionID

	// Cooldown decorator: the child may fire at most once per EveryTicks.
	EveryTicks uint64
	lastFired  uint64
	hasFired   bool
}

// Convenience constructors, used by the built-in tree and by tests.

func Sequence(name string, children ...*Node) *Node {
	return &Node{Kind: KindSequence, Name: name, Children: children}
}

func Selector(name string, children ...*Node) *Node {
	return &Node{Kind: KindSelector, Name: name, Children: children}
}

func Condition(name string, pred Predicate) *Node {
	return &Node{Kind: KindCondition, Name: name, Predicate: pred}
}

func Action(id input.ActionID) *Node {
	return &Node{Kind: KindAction, Name: string(id), Action: id}
}

func Cooldown(everyTicks uint64, child *Node) *Node {
	return &Node{Kind: KindCooldown, EveryTicks: everyTicks, Children: []*Node{child}}
}

func Invert(child *Node) *Node {
	return &Node{Kind: KindInvert, Children: []*Node{child}}
}

// result is the internal evaluation outcome of one node.
type result struct {
	ok        bool
	action    input.ActionID
	hasAction bool
}

var failure = result{}

// evaluate walks the node against the blackboard. Predicate errors and panics
// are mapped to plain branch failure; only construction problems are fatal,
// and those are rejected by New before the first tick.
func (n *Node) evaluate(bb *blackboard.Blackboard) result {
	switch n.Kind {
	case KindCondition:
		if safeEval(n.Predicate, bb) {
			return result{ok: true}
		}
		return failure

	case KindAction:
		return result{ok: true, action: n.Action, hasAction: true}

	case KindSequence:
		// All children must succeed; the sequence yields the action of the
		// last child that produced one. Short-circuits on first failure.
		var last result
		last.ok = true
		for _, child := range n.Children {
			r := child.evaluate(bb)
			if !r.ok {
				return failure
			}
			if r.hasAction {
				last = r
			}
		}
		return last

	case KindSelector:
		// First success wins; document order is the sole tie-break.
		for _, child := range n.Children {
			if r := child.evaluate(bb); r.ok {
				return r
			}
		}
		return failure

	case KindCooldown:
		tick := bb.TickCount()
		if n.hasFired && tick-n.lastFired < n.EveryTicks {
			return failure
		}
		r := n.Children[0].evaluate(bb)
		if r.ok {
			n.lastFired = tick
			n.hasFired = true
		}
		return r

	case KindInvert:
		r := n.Children[0].evaluate(bb)
		if r.ok {
			return failure
		}
		return result{ok: true}

	default:
		return failure
	}
}

// safeEval runs a predicate, converting errors and panics into failure.
func safeEval(pred Predicate, bb *blackboard.Blackboard) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	v, err := pred.Eval(bb)
	if err != nil {
		return false
	}
	return v
}

// validate rejects structurally broken nodes at construction time.
func (n *Node) validate() error {
	switch n.Kind {
	case KindSequence, KindSelector:
		if len(n.Children) == 0 {
			return fmt.Errorf("%s node %q has no children", n.Kind, n.Name)
		}
	case KindCondition:
		if n.Predicate == nil {
			return fmt.Errorf("condition node %q has no predicate", n.Name)
		}
	case KindAction:
		if _, err := input.ParseAction(string(n.Action)); err != nil {
			return fmt.Errorf("action node %q: %w", n.Name, err)
		}
	case KindCooldown:
		if len(n.Children) != 1 {
			return fmt.Errorf("cooldown node %q needs exactly one child", n.Name)
		}
		if n.EveryTicks == 0 {
			return fmt.Errorf("cooldown node %q needs every_ticks > 0", n.Name)
		}
	case KindInvert:
		if len(n.Children) != 1 {
			return fmt.Errorf("invert node %q needs exactly one child", n.Name)
		}
	default:
		return fmt.Errorf("unknown node kind %d", int(n.Kind))
	}
	for _, child := range n.Children {
		if err := child.validate(); err != nil {
			return err
		}
	}
	return nil
}

// selfCheck collects every fact reference and verifies it against the schema.
func (n *Node) selfCheck(schema *blackboard.Schema) error {
	if n.Kind == KindCondition {
		if err := n.Predicate.Validate(schema); err != nil {
			return fmt.Errorf("condition %q: %w", n.Name, err)
		}
	}
	for _, child := range n.Children {
		if err := child.selfCheck(schema); err != nil {
			return err
		}
	}
	return nil
}
