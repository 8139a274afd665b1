package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mizukoshi.dev/craft-agent-go/internal/behavior"
	"mizukoshi.dev/craft-agent-go/internal/blackboard"
	"mizukoshi.dev/craft-agent-go/internal/config"
	"mizukoshi.dev/craft-agent-go/internal/diag"
	"mizukoshi.dev/craft-agent-go/internal/input"
	"mizukoshi.dev/craft-agent-go/internal/logging"
	"mizukoshi.dev/craft-agent-go/internal/store"
	"mizukoshi.dev/craft-agent-go/internal/vision"
)

// FrameSink consumes calibration frames during a Setup session. The sink is
// external (typically streams to the calibration tool); the controller only
// feeds it.
type FrameSink interface {
	Consume(roiName string, frame *vision.Frame) error
}

// Prober is implemented by capturers that can be health-checked before Live
// entry.
type Prober interface {
	Probe(monitor int) error
}

// Deps is the controller's full dependency set, injected explicitly. Store
// and Bus may be nil; everything else is required.
type Deps struct {
	Config      *config.Config
	Capturer    vision.Capturer
	Recognizers []vision.Recognizer
	Tree        *behavior.Tree
	Dispatcher  input.Dispatcher
	Store       *store.Store
	Bus         *diag.Bus
	Logger      *logging.Logger
}

// Stats are the counters of the current or last session.
type Stats struct {
	Ticks            uint64
	Overruns         uint64
	SkippedCaptures  uint64
	DroppedSamples   uint64
	DispatchFailures uint64
}

// Controller owns the agent lifecycle: mode transitions, the Setup frame
// feed, and the Live perception-decision-action loop.
type Controller struct {
	deps Deps

	mu        sync.Mutex
	mode      Mode
	cancel    context.CancelFunc
	stats     Stats
	sessionID string
}

// New builds an idle controller. Deps are checked here so a misassembled
// graph fails before any mode entry.
func New(deps Deps) (*Controller, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Capturer == nil {
		return nil, fmt.Errorf("capturer is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.New("agent")
	}
	return &Controller{deps: deps}, nil
}

// Mode returns the current lifecycle state.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Stats returns a snapshot of the session counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Stop requests the current session to end. Legal and idempotent from any
// mode; a running Live loop observes it within one tick period, cancels any
// in-flight dispatch, and releases held input.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		return
	}
	if c.mode == ModeIdle {
		c.setModeLocked(ModeStopped)
	}
}

// EnterSetup validates config and feeds ROI frames to the sink until the
// context is cancelled or Stop is called. Returns the controller to Idle.
func (c *Controller) EnterSetup(ctx context.Context, sink FrameSink) error {
	if sink == nil {
		return fmt.Errorf("frame sink is required")
	}
	if err := c.gate(); err != nil {
		return err
	}

	c.startSession("setup", "")
	ctx, err := c.begin(ctx, ModeSetup)
	if err != nil {
		c.endSession("entry refused")
		return err
	}
	c.deps.Logger.InfoWith("setup session started", map[string]interface{}{
		"rois": len(c.deps.Config.ROIs),
	})

	runErr := c.runSetup(ctx, sink)

	c.finish(ModeIdle)
	c.endSession("setup ended")
	return runErr
}

// EnterLive validates config, self-checks the strategy and capture path, and
// runs the fixed-period live loop until the context is cancelled or Stop is
// called. Always leaves the controller Stopped.
func (c *Controller) EnterLive(ctx context.Context) error {
	if c.deps.Tree == nil {
		return fmt.Errorf("behavior tree is required for live mode")
	}
	if err := c.gate(); err != nil {
		return err
	}

	schema, err := c.buildSchema()
	if err != nil {
		return err
	}
	if err := c.deps.Tree.SelfCheck(schema); err != nil {
		return err
	}
	if err := c.probeCapture(); err != nil {
		c.emit(diag.EventCaptureUnavailable, map[string]interface{}{
			"monitor": c.deps.Config.Monitor,
		})
		return err
	}

	c.startSession("live", c.deps.Tree.Name())
	ctx, err = c.begin(ctx, ModeLive)
	if err != nil {
		c.endSession("entry refused")
		return err
	}
	bb := blackboard.New(schema, c.deps.Config.StalenessThreshold)

	c.deps.Logger.InfoWith("live session started", map[string]interface{}{
		"tree":   c.deps.Tree.Name(),
		"period": c.deps.Config.TickInterval,
	})

	runErr := c.runLive(ctx, bb)

	// Whatever ended the loop, leave no key held.
	if ps, ok := c.deps.Dispatcher.(interface{ PanicStop() error }); ok {
		if err := ps.PanicStop(); err != nil {
			c.deps.Logger.Error("panic stop failed", err)
		}
	}

	reason := "stopped"
	if runErr != nil {
		reason = runErr.Error()
	}
	c.finish(ModeStopped)
	c.endSession(reason)
	return runErr
}

// gate re-validates config at every mode entry; a config that drifted invalid
// since load must not start a session.
func (c *Controller) gate() error {
	if err := c.deps.Config.Validate(); err != nil {
		c.emit(diag.EventConfigInvalid, map[string]interface{}{"error": err.Error()})
		return err
	}
	return nil
}

// begin performs the mode transition and installs the session cancel hook.
func (c *Controller) begin(ctx context.Context, to Mode) (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !canTransition(c.mode, to) {
		return nil, &TransitionError{From: c.mode, To: to}
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.stats = Stats{}
	c.setModeLocked(to)
	return ctx, nil
}

// finish clears the session hook and records the final transition.
func (c *Controller) finish(to Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.setModeLocked(to)
}

func (c *Controller) setModeLocked(to Mode) {
	from := c.mode
	c.mode = to
	if from == to {
		return
	}
	c.emit(diag.EventModeChanged, map[string]interface{}{
		"from": from.String(),
		"to":   to.String(),
	})
	if c.deps.Store != nil && c.sessionID != "" {
		if err := c.deps.Store.RecordTransition(c.sessionID, from.String(), to.String()); err != nil {
			c.deps.Logger.Error("failed to record mode transition", err)
		}
	}
}

// buildSchema assembles the closed fact schema from the recognizer set.
func (c *Controller) buildSchema() (*blackboard.Schema, error) {
	schema := blackboard.NewSchema()
	for _, rec := range c.deps.Recognizers {
		for _, decl := range rec.Facts() {
			if schema.Has(decl.Name) {
				continue // two recognizers may feed the same fact
			}
			if err := schema.Register(decl.Name, decl.Kind); err != nil {
				return nil, err
			}
		}
	}
	return schema, nil
}

func (c *Controller) probeCapture() error {
	if p, ok := c.deps.Capturer.(Prober); ok {
		return p.Probe(c.deps.Config.Monitor)
	}
	// No probe support: try one real capture instead.
	for _, name := range c.roiNames() {
		_, err := c.deps.Capturer.Capture(c.deps.Config.Monitor, c.deps.Config.ROIs[name])
		return err
	}
	return nil
}

// roiNames returns ROI names in sorted order so capture order is stable
// across ticks and runs.
func (c *Controller) roiNames() []string {
	names := make([]string, 0, len(c.deps.Config.ROIs))
	for name := range c.deps.Config.ROIs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Controller) emit(t diag.EventType, data map[string]interface{}) {
	if c.deps.Bus != nil {
		c.deps.Bus.Emit(t, data)
	}
}

func (c *Controller) startSession(mode, tree string) {
	if c.deps.Store == nil {
		c.emitSessionStarted(tree)
		return
	}
	id, err := c.deps.Store.StartSession(mode, tree)
	if err != nil {
		c.deps.Logger.Error("failed to record session start", err)
	} else {
		c.mu.Lock()
		c.sessionID = id
		c.mu.Unlock()
	}
	c.emitSessionStarted(tree)
}

func (c *Controller) emitSessionStarted(tree string) {
	c.emit(diag.EventSessionStarted, map[string]interface{}{
		"session": c.SessionID(),
		"tree":    tree,
	})
}

func (c *Controller) endSession(reason string) {
	c.mu.Lock()
	id := c.sessionID
	c.sessionID = ""
	stats := c.stats
	c.mu.Unlock()

	if c.deps.Store != nil && id != "" {
		err := c.deps.Store.EndSession(id, reason, stats.Ticks, stats.Overruns, stats.SkippedCaptures)
		if err != nil {
			c.deps.Logger.Error("failed to record session end", err)
		}
	}
	c.emit(diag.EventSessionEnded, map[string]interface{}{
		"session":  id,
		"reason":   reason,
		"ticks":    stats.Ticks,
		"overruns": stats.Overruns,
	})
}

// SessionID returns the store ID of the active session, if any.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}
