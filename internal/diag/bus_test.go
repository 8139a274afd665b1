package diag

import (
	"sync"
	"testing"
	"time"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus(16)
	defer bus.Stop()

	var mu sync.Mutex
	var got []Event
	done := make(chan struct{})
	bus.Subscribe(EventTickOverrun, func(e Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
		if len(got) == 2 {
			close(done)
		}
	})

	bus.Emit(EventTickOverrun, map[string]interface{}{"tick": 1})
	bus.Emit(EventTickOverrun, map[string]interface{}{"tick": 2})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("events not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	if got[0].Data["tick"] != 1 || got[1].Data["tick"] != 2 {
		t.Errorf("events out of order: %+v", got)
	}
	if got[0].Timestamp.IsZero() {
		t.Error("event not timestamped")
	}
}

func TestBusIgnoresUnrelatedTypes(t *testing.T) {
	bus := NewBus(16)

	fired := false
	bus.Subscribe(EventModeChanged, func(Event) { fired = true })
	bus.Emit(EventTickOverrun, nil)
	bus.Stop() // drains the queue

	if fired {
		t.Error("handler fired for an unsubscribed type")
	}
}

func TestBusSurvivesPanickingHandler(t *testing.T) {
	bus := NewBus(16)

	delivered := make(chan struct{})
	bus.Subscribe(EventDispatchFailed, func(Event) { panic("broken listener") })
	bus.Subscribe(EventDispatchFailed, func(Event) { close(delivered) })

	bus.Emit(EventDispatchFailed, nil)

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("second handler starved by panicking first handler")
	}
	bus.Stop()
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(16)

	count := 0
	id := bus.Subscribe(EventSessionEnded, func(Event) { count++ })
	bus.Emit(EventSessionEnded, nil)
	// Let the worker drain before unsubscribing.
	time.Sleep(50 * time.Millisecond)
	bus.Unsubscribe(id)
	bus.Emit(EventSessionEnded, nil)
	bus.Stop()

	if count != 1 {
		t.Errorf("handler ran %d times, want 1", count)
	}
}

func TestReporterLocalizesMessages(t *testing.T) {
	en := NewReporter("en")
	msg := en.Message("capture.unavailable", map[string]interface{}{"Monitor": 0})
	if msg != "screen capture is unavailable on monitor 0" {
		t.Errorf("en message = %q", msg)
	}

	ja := NewReporter("ja")
	jmsg := ja.Message("capture.unavailable", map[string]interface{}{"Monitor": 0})
	if jmsg == msg || jmsg == "capture.unavailable" {
		t.Errorf("ja message not localized: %q", jmsg)
	}

	// Unknown language falls back to English.
	fb := NewReporter("xx")
	if got := fb.Message("capture.unavailable", map[string]interface{}{"Monitor": 0}); got != msg {
		t.Errorf("fallback message = %q", got)
	}

	// Unknown ID degrades to the ID itself.
	if got := en.Message("no.such.message", nil); got != "no.such.message" {
		t.Errorf("unknown ID = %q", got)
	}
}
