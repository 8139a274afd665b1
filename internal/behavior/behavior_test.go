package behavior

import (
	"testing"
	"time"

	"mizukoshi.dev/craft-agent-go/internal/blackboard"
	"mizukoshi.dev/craft-agent-go/internal/input"
)

func testSchema() *blackboard.Schema {
	s := blackboard.NewSchema()
	s.MustRegister("obstacle_ahead", blackboard.KindBool)
	s.MustRegister("stuck", blackboard.KindBool)
	s.MustRegister("hud.health", blackboard.KindNumber)
	s.MustRegister("biome", blackboard.KindEnum)
	return s
}

func testBoard(t *testing.T) *blackboard.Blackboard {
	t.Helper()
	return blackboard.New(testSchema(), time.Second)
}

func mustTree(t *testing.T, name string, root *Node) *Tree {
	t.Helper()
	tree, err := New(name, root)
	if err != nil {
		t.Fatalf("New(%q) failed: %v", name, err)
	}
	return tree
}

func setBool(t *testing.T, bb *blackboard.Blackboard, name string, v bool) {
	t.Helper()
	if dropped := bb.Update([]blackboard.Sample{{Name: name, Value: blackboard.BoolValue(v)}}); len(dropped) != 0 {
		t.Fatalf("sample %q dropped", name)
	}
}

func setNumber(t *testing.T, bb *blackboard.Blackboard, name string, v float64) {
	t.Helper()
	if dropped := bb.Update([]blackboard.Sample{{Name: name, Value: blackboard.NumberValue(v)}}); len(dropped) != 0 {
		t.Fatalf("sample %q dropped", name)
	}
}

func TestSelectorFirstSuccessWins(t *testing.T) {
	bb := testBoard(t)
	setBool(t, bb, "obstacle_ahead", false)
	setBool(t, bb, "stuck", true)
	setNumber(t, bb, "hud.health", 20)

	// First branch fails, second and third would both fire; the second wins.
	tree := mustTree(t, "selector", Selector("root",
		Sequence("a",
			Condition("obstacle", &FactTrue{Fact: "obstacle_ahead"}),
			Action(input.ActionStop),
		),
		Sequence("b",
			Condition("stuck", &FactTrue{Fact: "stuck"}),
			Action(input.ActionTurnRight),
		),
		Action(input.ActionMoveForward),
	))

	r := tree.Tick(bb)
	if !r.Fired || r.Action != input.ActionTurnRight {
		t.Errorf("Tick = %+v, want TurnRight", r)
	}
}

func TestSequenceShortCircuitYieldsNoOp(t *testing.T) {
	bb := testBoard(t)
	setBool(t, bb, "obstacle_ahead", false)

	tree := mustTree(t, "sequence", Sequence("root",
		Condition("obstacle", &FactTrue{Fact: "obstacle_ahead"}),
		Action(input.ActionStop),
	))

	if r := tree.Tick(bb); r.Fired {
		t.Errorf("Tick = %+v, want no-op", r)
	}
}

func TestSequenceReturnsLastActionProducingChild(t *testing.T) {
	bb := testBoard(t)
	setBool(t, bb, "stuck", true)

	tree := mustTree(t, "sequence", Sequence("root",
		Action(input.ActionJump),
		Condition("stuck", &FactTrue{Fact: "stuck"}),
		Action(input.ActionTurnLeft),
	))

	r := tree.Tick(bb)
	if !r.Fired || r.Action != input.ActionTurnLeft {
		t.Errorf("Tick = %+v, want TurnLeft", r)
	}
}

func TestTickIsDeterministicOverIdenticalSnapshots(t *testing.T) {
	bb := testBoard(t)
	setBool(t, bb, "obstacle_ahead", true)
	setNumber(t, bb, "hud.health", 3)

	tree := DefaultTree()
	first := tree.Tick(bb)
	for i := 0; i < 10; i++ {
		if r := tree.Tick(bb); r != first {
			t.Fatalf("tick %d = %+v, first = %+v", i, r, first)
		}
	}
}

func TestUnknownFactFailsQuietly(t *testing.T) {
	bb := testBoard(t)
	// Nothing observed yet: the obstacle branch must not fire.
	tree := DefaultTree()
	if err := tree.SelfCheck(bb.Schema()); err != nil {
		t.Fatalf("SelfCheck failed: %v", err)
	}
	r := tree.Tick(bb)
	if !r.Fired || r.Action != input.ActionMoveForward {
		t.Errorf("cold blackboard Tick = %+v, want MoveForward fallback", r)
	}
}

func TestCooldownSuppressesUntilWindowPasses(t *testing.T) {
	bb := testBoard(t)
	setBool(t, bb, "stuck", true)

	tree := mustTree(t, "cooldown", Selector("root",
		Sequence("unstick",
			Condition("stuck", &FactTrue{Fact: "stuck"}),
			Cooldown(3, Action(input.ActionTurnRight)),
		),
		Action(input.ActionMoveForward),
	))

	got := make([]input.ActionID, 0, 6)
	for i := 0; i < 6; i++ {
		bb.AdvanceTick()
		got = append(got, tree.Tick(bb).Action)
	}
	want := []input.ActionID{
		input.ActionTurnRight, input.ActionMoveForward, input.ActionMoveForward,
		input.ActionTurnRight, input.ActionMoveForward, input.ActionMoveForward,
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tick %d: got %v, want %v (all: %v)", i+1, got[i], want[i], got)
		}
	}
}

type panicPredicate struct{}

func (panicPredicate) Eval(*blackboard.Blackboard) (bool, error) { panic("boom") }
func (panicPredicate) Validate(*blackboard.Schema) error         { return nil }

func TestPanickingPredicateFailsBranchOnly(t *testing.T) {
	bb := testBoard(t)
	tree := mustTree(t, "panic", Selector("root",
		Sequence("broken",
			Condition("explodes", panicPredicate{}),
			Action(input.ActionStop),
		),
		Action(input.ActionMoveForward),
	))

	r := tree.Tick(bb)
	if !r.Fired || r.Action != input.ActionMoveForward {
		t.Errorf("Tick = %+v, want MoveForward via fallback branch", r)
	}
}

func TestInvertFlipsCondition(t *testing.T) {
	bb := testBoard(t)
	setBool(t, bb, "obstacle_ahead", false)

	tree := mustTree(t, "invert", Sequence("root",
		Invert(Condition("obstacle", &FactTrue{Fact: "obstacle_ahead"})),
		Action(input.ActionMoveForward),
	))
	if r := tree.Tick(bb); !r.Fired || r.Action != input.ActionMoveForward {
		t.Errorf("Tick = %+v, want MoveForward", r)
	}
}

func TestNewRejectsStructuralProblems(t *testing.T) {
	cases := []struct {
		name string
		root *Node
	}{
		{"nil root", nil},
		{"empty selector", Selector("root")},
		{"empty sequence", Sequence("root")},
		{"condition without predicate", Condition("bare", nil)},
		{"unknown action", Action(input.ActionID("Teleport"))},
		{"cooldown without period", &Node{Kind: KindCooldown, Children: []*Node{Action(input.ActionJump)}}},
	}
	for _, tc := range cases {
		if _, err := New(tc.name, tc.root); err == nil {
			t.Errorf("New accepted %s", tc.name)
		}
	}
}

func TestSelfCheckRejectsUnregisteredFact(t *testing.T) {
	tree := mustTree(t, "bad-fact", Sequence("root",
		Condition("phantom", &FactTrue{Fact: "no_such_fact"}),
		Action(input.ActionStop),
	))
	if err := tree.SelfCheck(testSchema()); err == nil {
		t.Error("SelfCheck accepted a condition on an unregistered fact")
	}
}

func TestSelfCheckRejectsKindMismatch(t *testing.T) {
	tree := mustTree(t, "bad-kind", Sequence("root",
		Condition("health as bool", &FactTrue{Fact: "hud.health"}),
		Action(input.ActionStop),
	))
	if err := tree.SelfCheck(testSchema()); err == nil {
		t.Error("SelfCheck accepted a bool predicate on a number fact")
	}
}

func TestDefaultTreeObstacleScenario(t *testing.T) {
	bb := testBoard(t)
	tree := DefaultTree()

	setBool(t, bb, "obstacle_ahead", true)
	if r := tree.Tick(bb); r.Action != input.ActionStop {
		t.Errorf("obstacle ahead: got %v, want Stop", r.Action)
	}

	setBool(t, bb, "obstacle_ahead", false)
	setNumber(t, bb, "hud.health", 20)
	if r := tree.Tick(bb); r.Action != input.ActionMoveForward {
		t.Errorf("clear path: got %v, want MoveForward", r.Action)
	}

	setNumber(t, bb, "hud.health", 4)
	if r := tree.Tick(bb); r.Action != input.ActionStop {
		t.Errorf("low health: got %v, want Stop", r.Action)
	}
}

func TestPredicateSemantics(t *testing.T) {
	bb := testBoard(t)
	setNumber(t, bb, "hud.health", 10)
	bb.Update([]blackboard.Sample{{Name: "biome", Value: blackboard.EnumValue("forest")}})

	cases := []struct {
		name string
		pred Predicate
		want bool
	}{
		{"below miss", &FactBelow{Fact: "hud.health", Threshold: 10}, false},
		{"below hit", &FactBelow{Fact: "hud.health", Threshold: 10.5}, true},
		{"above hit", &FactAbove{Fact: "hud.health", Threshold: 9}, true},
		{"equals hit", &FactEquals{Fact: "biome", Equals: "forest"}, true},
		{"equals miss", &FactEquals{Fact: "biome", Equals: "desert"}, false},
		{"false on unknown bool", &FactFalse{Fact: "stuck"}, false},
		{"fresh", &FactFresh{Fact: "hud.health"}, true},
		{"fresh on unknown", &FactFresh{Fact: "stuck"}, false},
	}
	for _, tc := range cases {
		got, err := tc.pred.Eval(bb)
		if err != nil {
			t.Errorf("%s: Eval failed: %v", tc.name, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}
