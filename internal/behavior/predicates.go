package behavior

import (
	"fmt"

	"mizukoshi.dev/craft-agent-go/internal/blackboard"
)

// Predicate is a pure, non-blocking test over blackboard facts. Predicates
// never mutate the blackboard; an absent (unknown) fact simply fails the
// test rather than erroring, so a cold blackboard yields a quiet tree.
type Predicate interface {
	Eval(bb *blackboard.Blackboard) (bool, error)
	Validate(schema *blackboard.Schema) error
}

func requireFact(schema *blackboard.Schema, name string, kind blackboard.Kind) error {
	got, ok := schema.KindOf(name)
	if !ok {
		return &blackboard.UnknownFactError{Name: name}
	}
	if got != kind {
		return fmt.Errorf("fact %q is %s, predicate needs %s", name, got, kind)
	}
	return nil
}

// FactTrue succeeds when a boolean fact is perceived or stale true.
type FactTrue struct {
	Fact string `yaml:"fact"`
}

func (p *FactTrue) Validate(schema *blackboard.Schema) error {
	return requireFact(schema, p.Fact, blackboard.KindBool)
}

func (p *FactTrue) Eval(bb *blackboard.Blackboard) (bool, error) {
	fact, err := bb.Read(p.Fact)
	if err != nil {
		return false, err
	}
	return !fact.Value.Absent && fact.Value.Bool, nil
}

// FactFalse succeeds when a boolean fact has been observed false. An unknown
// fact is not "false": it fails the test.
type FactFalse struct {
	Fact string `yaml:"fact"`
}

func (p *FactFalse) Validate(schema *blackboard.Schema) error {
	return requireFact(schema, p.Fact, blackboard.KindBool)
}

func (p *FactFalse) Eval(bb *blackboard.Blackboard) (bool, error) {
	fact, err := bb.Read(p.Fact)
	if err != nil {
		return false, err
	}
	return !fact.Value.Absent && !fact.Value.Bool, nil
}

// FactEquals succeeds when an enum fact matches a literal.
type FactEquals struct {
	Fact   string `yaml:"fact"`
	Equals string `yaml:"equals"`
}

func (p *FactEquals) Validate(schema *blackboard.Schema) error {
	if p.Equals == "" {
		return fmt.Errorf("FactEquals on %q: equals is required", p.Fact)
	}
	return requireFact(schema, p.Fact, blackboard.KindEnum)
}

func (p *FactEquals) Eval(bb *blackboard.Blackboard) (bool, error) {
	fact, err := bb.Read(p.Fact)
	if err != nil {
		return false, err
	}
	return !fact.Value.Absent && fact.Value.Enum == p.Equals, nil
}

// FactBelow succeeds when a number fact is strictly below a threshold.
type FactBelow struct {
	Fact      string  `yaml:"fact"`
	Threshold float64 `yaml:"threshold"`
}

func (p *FactBelow) Validate(schema *blackboard.Schema) error {
	return requireFact(schema, p.Fact, blackboard.KindNumber)
}

func (p *FactBelow) Eval(bb *blackboard.Blackboard) (bool, error) {
	fact, err := bb.Read(p.Fact)
	if err != nil {
		return false, err
	}
	return !fact.Value.Absent && fact.Value.Number < p.Threshold, nil
}

// FactAbove succeeds when a number fact is strictly above a threshold.
type FactAbove struct {
	Fact      string  `yaml:"fact"`
	Threshold float64 `yaml:"threshold"`
}

func (p *FactAbove) Validate(schema *blackboard.Schema) error {
	return requireFact(schema, p.Fact, blackboard.KindNumber)
}

func (p *FactAbove) Eval(bb *blackboard.Blackboard) (bool, error) {
	fact, err := bb.Read(p.Fact)
	if err != nil {
		return false, err
	}
	return !fact.Value.Absent && fact.Value.Number > p.Threshold, nil
}

// FactFresh succeeds only while a fact's last observation is younger than the
// staleness threshold. Useful for gating actions on live perception.
type FactFresh struct {
	Fact string `yaml:"fact"`
}

func (p *FactFresh) Validate(schema *blackboard.Schema) error {
	if !schema.Has(p.Fact) {
		return &blackboard.UnknownFactError{Name: p.Fact}
	}
	return nil
}

func (p *FactFresh) Eval(bb *blackboard.Blackboard) (bool, error) {
	fact, err := bb.Read(p.Fact)
	if err != nil {
		return false, err
	}
	return fact.Confidence == blackboard.ConfidencePerceived, nil
}
