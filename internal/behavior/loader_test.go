package behavior

import (
	"strings"
	"testing"

	"mizukoshi.dev/craft-agent-go/internal/blackboard"
	"mizukoshi.dev/craft-agent-go/internal/input"
)

const exploreProfile = `
name: explore
root:
  type: selector
  name: root
  children:
    - type: sequence
      name: avoid
      children:
        - type: condition
          name: obstacle ahead
          predicate: {type: FactTrue, fact: obstacle_ahead}
        - type: action
          action: Stop
    - type: sequence
      name: retreat
      children:
        - type: condition
          name: health low
          predicate: {type: FactBelow, fact: hud.health, threshold: 6}
        - type: action
          action: Stop
    - type: sequence
      name: unstick
      children:
        - type: condition
          name: stuck
          predicate: {type: FactTrue, fact: stuck}
        - type: cooldown
          every_ticks: 5
          child: {type: action, action: TurnRight}
    - type: action
      action: MoveForward
`

func TestParseProfileBuildsWorkingTree(t *testing.T) {
	tree, err := ParseProfile([]byte(exploreProfile))
	if err != nil {
		t.Fatalf("ParseProfile failed: %v", err)
	}
	if tree.Name() != "explore" {
		t.Errorf("Name = %q, want explore", tree.Name())
	}
	if err := tree.SelfCheck(testSchema()); err != nil {
		t.Fatalf("SelfCheck failed: %v", err)
	}

	bb := testBoard(t)
	setBool(t, bb, "obstacle_ahead", true)
	if r := tree.Tick(bb); r.Action != input.ActionStop {
		t.Errorf("obstacle ahead: got %v, want Stop", r.Action)
	}

	setBool(t, bb, "obstacle_ahead", false)
	setNumber(t, bb, "hud.health", 20)
	if r := tree.Tick(bb); r.Action != input.ActionMoveForward {
		t.Errorf("clear path: got %v, want MoveForward", r.Action)
	}
}

func TestParseProfileErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			"not yaml",
			`{root: [`,
			"not valid YAML",
		},
		{
			"missing name",
			`root: {type: action, action: Stop}`,
			"no name",
		},
		{
			"missing root",
			`name: empty`,
			"no root",
		},
		{
			"unknown node type",
			"name: bad\nroot: {type: parallel}",
			"unknown node type",
		},
		{
			"unknown predicate type",
			"name: bad\nroot:\n  type: condition\n  predicate: {type: FactMaybe, fact: stuck}",
			"unknown predicate type",
		},
		{
			"predicate without type",
			"name: bad\nroot:\n  type: condition\n  predicate: {fact: stuck}",
			"no type field",
		},
		{
			"unknown action",
			"name: bad\nroot: {type: action, action: Teleport}",
			"unknown action",
		},
		{
			"cooldown without child",
			"name: bad\nroot: {type: cooldown, every_ticks: 3}",
			"no child",
		},
		{
			"empty selector",
			"name: bad\nroot: {type: selector, name: root}",
			"no children",
		},
	}
	for _, tc := range cases {
		_, err := ParseProfile([]byte(tc.yaml))
		if err == nil {
			t.Errorf("%s: ParseProfile succeeded, want error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: error %q does not mention %q", tc.name, err, tc.want)
		}
	}
}

func TestParseProfileDecodesAllPredicateTypes(t *testing.T) {
	const profile = `
name: kitchen-sink
root:
  type: selector
  children:
    - type: condition
      predicate: {type: FactTrue, fact: obstacle_ahead}
    - type: condition
      predicate: {type: FactFalse, fact: stuck}
    - type: condition
      predicate: {type: FactEquals, fact: biome, equals: forest}
    - type: condition
      predicate: {type: FactBelow, fact: hud.health, threshold: 6}
    - type: condition
      predicate: {type: FactAbove, fact: hud.health, threshold: 15}
    - type: condition
      predicate: {type: FactFresh, fact: obstacle_ahead}
    - type: invert
      child:
        type: condition
        predicate: {type: FactTrue, fact: stuck}
    - type: action
      action: Jump
`
	tree, err := ParseProfile([]byte(profile))
	if err != nil {
		t.Fatalf("ParseProfile failed: %v", err)
	}
	if err := tree.SelfCheck(testSchema()); err != nil {
		t.Fatalf("SelfCheck failed: %v", err)
	}
}

func TestParseProfileThresholdSurvivesRoundTrip(t *testing.T) {
	const profile = `
name: threshold
root:
  type: sequence
  children:
    - type: condition
      predicate: {type: FactBelow, fact: hud.health, threshold: 6}
    - type: action
      action: Stop
`
	tree, err := ParseProfile([]byte(profile))
	if err != nil {
		t.Fatalf("ParseProfile failed: %v", err)
	}

	bb := blackboard.New(testSchema(), 0)
	setNumber(t, bb, "hud.health", 5)
	if r := tree.Tick(bb); r.Action != input.ActionStop {
		t.Errorf("health 5 under threshold 6: got %v, want Stop", r.Action)
	}
	setNumber(t, bb, "hud.health", 6)
	if r := tree.Tick(bb); r.Fired {
		t.Errorf("health 6 at threshold: got %+v, want no-op", r)
	}
}
