package input

import (
	"context"
	"fmt"
	"time"

	"mizukoshi.dev/craft-agent-go/internal/config"
)

// Outcome is the result of applying one action.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeAborted
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeAborted:
		return "aborted"
	default:
		return "failed"
	}
}

// Dispatcher turns a decided action into a time-bounded input sequence.
// Apply is called at most once per tick and is awaited before the next
// capture begins.
type Dispatcher interface {
	Apply(ctx context.Context, id ActionID) (Outcome, error)
}

// Driver is the OS-level input injection boundary.
type Driver interface {
	KeyDown(key string) error
	KeyUp(key string) error
}

// binding describes how one action maps onto keys. Hold actions keep the key
// down across ticks (subject to the max-hold limit); tap actions press and
// release within the same Apply call.
type binding struct {
	key  string
	hold bool
}

var bindings = map[ActionID]binding{
	ActionMoveForward: {key: "w", hold: true},
	ActionTurnLeft:    {key: "a"},
	ActionTurnRight:   {key: "d"},
	ActionJump:        {key: "space"},
}

// KeyDispatcher drives a keyboard Driver while guaranteeing safe shutdown:
// no key is ever held longer than the configured limit, repeated presses are
// rate limited, and PanicStop releases everything that is down.
type KeyDispatcher struct {
	driver Driver
	timing config.InputTiming

	heldSince map[string]time.Time
	lastPress map[string]time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// KeyOption configures a KeyDispatcher.
type KeyOption func(*KeyDispatcher)

// WithTimeSource overrides the clock and sleeper, used by tests.
func WithTimeSource(now func() time.Time, sleep func(context.Context, time.Duration) error) KeyOption {
	return func(d *KeyDispatcher) {
		d.now = now
		d.sleep = sleep
	}
}

func NewKeyDispatcher(driver Driver, timing config.InputTiming, opts ...KeyOption) *KeyDispatcher {
	d := &KeyDispatcher{
		driver:    driver,
		timing:    timing,
		heldSince: make(map[string]time.Time),
		lastPress: make(map[string]time.Time),
		now:       time.Now,
		sleep:     sleepCtx,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Apply executes the input sequence for one action. Context cancellation
// aborts an in-flight tap and releases its key rather than leaving it held.
func (d *KeyDispatcher) Apply(ctx context.Context, id ActionID) (Outcome, error) {
	// Long-held keys are released before anything else; this is the per-tick
	// safety sweep the loop relies on.
	if err := d.releaseExpired(); err != nil {
		return OutcomeFailed, err
	}

	if id == ActionStop {
		if err := d.PanicStop(); err != nil {
			return OutcomeFailed, err
		}
		return OutcomeCompleted, nil
	}

	b, ok := bindings[id]
	if !ok {
		return OutcomeFailed, fmt.Errorf("no binding for action %q", id)
	}

	now := d.now()
	if last, ok := d.lastPress[b.key]; ok {
		minGap := time.Duration(float64(time.Second) / d.timing.MaxClickHz)
		if now.Sub(last) < minGap && !b.hold {
			// Rate limited: the action is deliberately swallowed, not failed.
			return OutcomeCompleted, nil
		}
	}
	d.lastPress[b.key] = now

	if b.hold {
		if _, held := d.heldSince[b.key]; !held {
			if err := d.driver.KeyDown(b.key); err != nil {
				return OutcomeFailed, fmt.Errorf("key down %q: %w", b.key, err)
			}
			d.heldSince[b.key] = now
		}
		return OutcomeCompleted, nil
	}

	// Tap: press, dwell, release. The release runs even when the dwell is
	// cancelled, so an aborted dispatch never leaves input dangling.
	if err := d.driver.KeyDown(b.key); err != nil {
		return OutcomeFailed, fmt.Errorf("key down %q: %w", b.key, err)
	}
	dwellErr := d.sleep(ctx, d.timing.PressDuration)
	if err := d.driver.KeyUp(b.key); err != nil {
		return OutcomeFailed, fmt.Errorf("key up %q: %w", b.key, err)
	}
	if dwellErr != nil {
		return OutcomeAborted, nil
	}
	return OutcomeCompleted, nil
}

func (d *KeyDispatcher) releaseExpired() error {
	now := d.now()
	for key, since := range d.heldSince {
		if now.Sub(since) > d.timing.MaxHold {
			if err := d.driver.KeyUp(key); err != nil {
				return fmt.Errorf("key up %q: %w", key, err)
			}
			delete(d.heldSince, key)
		}
	}
	return nil
}

// PanicStop releases every held key. Always safe to call, including twice.
func (d *KeyDispatcher) PanicStop() error {
	var firstErr error
	for key := range d.heldSince {
		if err := d.driver.KeyUp(key); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("key up %q: %w", key, err)
		}
		delete(d.heldSince, key)
	}
	return firstErr
}

// Holding reports whether a key is currently held.
func (d *KeyDispatcher) Holding(key string) bool {
	_, ok := d.heldSince[key]
	return ok
}
