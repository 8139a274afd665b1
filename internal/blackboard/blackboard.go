package blackboard

import (
	"fmt"
	"time"
)

// Kind identifies the type of a fact value. The schema is closed: every fact
// name is declared with its kind before the first tick.
type Kind int

const (
	KindBool Kind = iota
	KindNumber
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindEnum:
		return "enum"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a tagged variant. Absent values carry no payload and represent the
// "unknown" sentinel.
type Value struct {
	Kind   Kind
	Absent bool
	Bool   bool
	Number float64
	Enum   string
}

// AbsentValue returns the unknown sentinel for a given kind.
func AbsentValue(kind Kind) Value {
	return Value{Kind: kind, Absent: true}
}

func BoolValue(v bool) Value      { return Value{Kind: KindBool, Bool: v} }
func NumberValue(v float64) Value { return Value{Kind: KindNumber, Number: v} }
func EnumValue(v string) Value    { return Value{Kind: KindEnum, Enum: v} }

// Confidence reports how trustworthy a fact currently is.
type Confidence int

const (
	// ConfidenceUnknown means the fact was registered but never observed.
	ConfidenceUnknown Confidence = iota
	// ConfidencePerceived means the fact was observed recently.
	ConfidencePerceived
	// ConfidenceStale means the last observation is older than the staleness
	// threshold.
	ConfidenceStale
)

func (c Confidence) String() string {
	switch c {
	case ConfidencePerceived:
		return "perceived"
	case ConfidenceStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Fact is a named, typed value with observation metadata.
type Fact struct {
	Name       string
	Value      Value
	UpdatedAt  time.Time
	Confidence Confidence
}

// Sample is one observation produced by a perception adapter.
type Sample struct {
	Name  string
	Value Value
}

// Blackboard is the shared fact store for one session. It is deliberately not
// safe for concurrent use: the mode controller guarantees a single tick in
// flight, with perception as the only writer and the tree as the only reader.
type Blackboard struct {
	schema     *Schema
	facts      map[string]*Fact
	tick       uint64
	staleAfter time.Duration
	now        func() time.Time
}

// Option configures a Blackboard.
type Option func(*Blackboard)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(b *Blackboard) { b.now = now }
}

// New creates a blackboard over a closed schema. Every registered fact starts
// at the unknown sentinel.
func New(schema *Schema, staleAfter time.Duration, opts ...Option) *Blackboard {
	b := &Blackboard{
		schema:     schema,
		facts:      make(map[string]*Fact, len(schema.names)),
		staleAfter: staleAfter,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	for _, name := range schema.names {
		b.facts[name] = &Fact{
			Name:       name,
			Value:      AbsentValue(schema.kinds[name]),
			Confidence: ConfidenceUnknown,
		}
	}
	return b
}

// Schema returns the closed fact schema this blackboard was built from.
func (b *Blackboard) Schema() *Schema {
	return b.schema
}

// Update overwrites the named facts with fresh values and the current
// timestamp. Samples whose name is not in the schema, or whose value kind does
// not match the declared kind, are dropped; their names are returned so the
// caller can log them. The core never trusts adapter output blindly.
func (b *Blackboard) Update(samples []Sample) (dropped []string) {
	now := b.now()
	for _, s := range samples {
		kind, ok := b.schema.kinds[s.Name]
		if !ok || s.Value.Kind != kind {
			dropped = append(dropped, s.Name)
			continue
		}
		fact := b.facts[s.Name]
		fact.Value = s.Value
		fact.UpdatedAt = now
		fact.Confidence = ConfidencePerceived
	}
	return dropped
}

// Read returns the current fact for a registered name. A registered but never
// observed fact yields the unknown sentinel; an unregistered name is a
// programming error and fails with *UnknownFactError.
func (b *Blackboard) Read(name string) (Fact, error) {
	fact, ok := b.facts[name]
	if !ok {
		return Fact{}, &UnknownFactError{Name: name}
	}
	return *fact, nil
}

// AdvanceTick increments the monotonic tick counter and demotes facts whose
// last observation has aged past the staleness threshold. Called exactly once
// per Live cycle, before the tree is ticked.
func (b *Blackboard) AdvanceTick() uint64 {
	b.tick++
	now := b.now()
	for _, fact := range b.facts {
		if fact.Confidence == ConfidencePerceived && now.Sub(fact.UpdatedAt) > b.staleAfter {
			fact.Confidence = ConfidenceStale
		}
	}
	return b.tick
}

// TickCount returns the current tick counter. Used by stateful decorators.
func (b *Blackboard) TickCount() uint64 {
	return b.tick
}
