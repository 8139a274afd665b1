package blackboard

import (
	"errors"
	"testing"
	"time"
)

func testSchema(t *testing.T) *Schema {
	t.Helper()
	schema := NewSchema()
	for _, reg := range []struct {
		name string
		kind Kind
	}{
		{"obstacle_ahead", KindBool},
		{"hud.health", KindNumber},
		{"screen", KindEnum},
	} {
		if err := schema.Register(reg.name, reg.kind); err != nil {
			t.Fatalf("Register(%s) failed: %v", reg.name, err)
		}
	}
	return schema
}

func TestReadBeforeUpdateReturnsUnknownSentinel(t *testing.T) {
	bb := New(testSchema(t), time.Second)

	for _, name := range []string{"obstacle_ahead", "hud.health", "screen"} {
		fact, err := bb.Read(name)
		if err != nil {
			t.Fatalf("Read(%s) before update returned error: %v", name, err)
		}
		if !fact.Value.Absent {
			t.Errorf("Read(%s) = %+v, want absent sentinel", name, fact.Value)
		}
		if fact.Confidence != ConfidenceUnknown {
			t.Errorf("Read(%s) confidence = %v, want unknown", name, fact.Confidence)
		}
	}
}

func TestReadUnregisteredNameFails(t *testing.T) {
	bb := New(testSchema(t), time.Second)

	// Must fail deterministically regardless of update history.
	bb.Update([]Sample{{Name: "obstacle_ahead", Value: BoolValue(true)}})

	for i := 0; i < 3; i++ {
		_, err := bb.Read("no_such_fact")
		var unknown *UnknownFactError
		if !errors.As(err, &unknown) {
			t.Fatalf("Read(no_such_fact) error = %v, want *UnknownFactError", err)
		}
		if unknown.Name != "no_such_fact" {
			t.Errorf("UnknownFactError.Name = %q, want no_such_fact", unknown.Name)
		}
	}
}

func TestUpdateDropsUnknownAndMistypedSamples(t *testing.T) {
	bb := New(testSchema(t), time.Second)

	dropped := bb.Update([]Sample{
		{Name: "obstacle_ahead", Value: BoolValue(true)},
		{Name: "not_registered", Value: BoolValue(true)},
		{Name: "hud.health", Value: BoolValue(true)}, // wrong kind
	})

	if len(dropped) != 2 {
		t.Fatalf("dropped = %v, want 2 entries", dropped)
	}

	fact, err := bb.Read("obstacle_ahead")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !fact.Value.Bool || fact.Confidence != ConfidencePerceived {
		t.Errorf("obstacle_ahead = %+v, want perceived true", fact)
	}

	// The mistyped sample must not have clobbered the registered fact.
	health, err := bb.Read("hud.health")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !health.Value.Absent {
		t.Errorf("hud.health = %+v, want absent", health.Value)
	}
}

func TestStalenessMarking(t *testing.T) {
	now := time.Unix(0, 0)
	bb := New(testSchema(t), time.Second, WithClock(func() time.Time { return now }))

	bb.Update([]Sample{{Name: "hud.health", Value: NumberValue(17)}})
	bb.AdvanceTick()

	fact, _ := bb.Read("hud.health")
	if fact.Confidence != ConfidencePerceived {
		t.Fatalf("confidence = %v, want perceived", fact.Confidence)
	}

	// Age the fact past the threshold without a fresh observation.
	now = now.Add(1500 * time.Millisecond)
	bb.AdvanceTick()

	fact, _ = bb.Read("hud.health")
	if fact.Confidence != ConfidenceStale {
		t.Errorf("confidence = %v, want stale", fact.Confidence)
	}
	if fact.Value.Number != 17 {
		t.Errorf("stale fact lost its value: %+v", fact.Value)
	}

	// A fresh observation restores perceived confidence.
	bb.Update([]Sample{{Name: "hud.health", Value: NumberValue(16)}})
	bb.AdvanceTick()
	fact, _ = bb.Read("hud.health")
	if fact.Confidence != ConfidencePerceived || fact.Value.Number != 16 {
		t.Errorf("fact after re-observation = %+v, want perceived 16", fact)
	}
}

func TestTickCountMonotonic(t *testing.T) {
	bb := New(testSchema(t), time.Second)
	if bb.TickCount() != 0 {
		t.Fatalf("initial tick count = %d, want 0", bb.TickCount())
	}
	for want := uint64(1); want <= 5; want++ {
		if got := bb.AdvanceTick(); got != want {
			t.Errorf("AdvanceTick() = %d, want %d", got, want)
		}
	}
}

func TestSchemaRejectsDuplicates(t *testing.T) {
	schema := NewSchema()
	if err := schema.Register("x", KindBool); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := schema.Register("x", KindNumber); err == nil {
		t.Error("duplicate Register succeeded, want error")
	}
	if err := schema.Register("", KindBool); err == nil {
		t.Error("empty-name Register succeeded, want error")
	}
}
