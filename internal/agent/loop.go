package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mizukoshi.dev/craft-agent-go/internal/blackboard"
	"mizukoshi.dev/craft-agent-go/internal/diag"
	"mizukoshi.dev/craft-agent-go/internal/input"
	"mizukoshi.dev/craft-agent-go/internal/store"
	"mizukoshi.dev/craft-agent-go/internal/vision"
)

// maxConsecutiveCaptureFailures escalates a run of recoverable capture
// misses into a fatal session error.
const maxConsecutiveCaptureFailures = 10

// runSetup feeds every configured ROI to the calibration sink once per
// period. Capture misses are tolerated; a sink error ends the session, since
// the external tool went away.
func (c *Controller) runSetup(ctx context.Context, sink FrameSink) error {
	period := c.deps.Config.TickInterval
	names := c.roiNames()

	for {
		start := time.Now()
		for _, name := range names {
			frame, err := c.deps.Capturer.Capture(c.deps.Config.Monitor, c.deps.Config.ROIs[name])
			if err != nil {
				c.countSkippedCapture(name, err)
				continue
			}
			frame.ROI = name
			if err := sink.Consume(name, frame); err != nil {
				return fmt.Errorf("calibration sink failed: %w", err)
			}
		}
		if err := c.await(ctx, period-time.Since(start)); err != nil {
			return nil // stop requested; a clean end for setup
		}
	}
}

// runLive is the fixed-period perception-decision-action loop. One tick:
// capture every ROI, recognize, update the blackboard, advance the tick,
// tick the tree, await the dispatch. Overruns delay the next tick; they are
// never silently dropped.
func (c *Controller) runLive(ctx context.Context, bb *blackboard.Blackboard) error {
	period := c.deps.Config.TickInterval
	names := c.roiNames()
	captureFailures := 0

	for {
		if ctx.Err() != nil {
			return nil
		}
		start := time.Now()

		samples, captured, err := c.perceive(names)
		if err != nil {
			captureFailures++
			if captureFailures >= maxConsecutiveCaptureFailures {
				return fmt.Errorf("capture failed %d ticks in a row: %w", captureFailures, err)
			}
			c.emit(diag.EventTickSkipped, map[string]interface{}{
				"tick":   bb.TickCount() + 1,
				"reason": err.Error(),
			})
			if werr := c.await(ctx, period-time.Since(start)); werr != nil {
				return nil
			}
			continue
		}
		if captured {
			captureFailures = 0
		}

		if dropped := bb.Update(samples); len(dropped) > 0 {
			c.countDropped(dropped)
		}

		tick := bb.AdvanceTick()
		result := c.deps.Tree.Tick(bb)
		action := ""
		if result.Fired {
			action = string(result.Action)
			c.dispatch(ctx, tick, result.Action)
		}

		elapsed := time.Since(start)
		c.recordTick(tick, elapsed, elapsed > period, action)

		if elapsed > period {
			c.countOverrun(tick, elapsed, period)
			continue // already late; start the next tick immediately
		}
		if err := c.await(ctx, period-elapsed); err != nil {
			return nil
		}
	}
}

// perceive captures every ROI and runs the recognizer set over each frame.
// A capture error on any ROI skips the whole tick: the tree must never see a
// half-updated world.
func (c *Controller) perceive(names []string) ([]blackboard.Sample, bool, error) {
	var samples []blackboard.Sample
	captured := false
	for _, name := range names {
		frame, err := c.deps.Capturer.Capture(c.deps.Config.Monitor, c.deps.Config.ROIs[name])
		if err != nil {
			c.countSkippedCapture(name, err)
			return nil, captured, err
		}
		frame.ROI = name
		captured = true

		for _, rec := range c.deps.Recognizers {
			recognized, err := rec.Recognize(frame, name)
			if err != nil {
				// Recognizer output is untrusted; a failing recognizer
				// costs its facts this tick, not the session.
				c.deps.Logger.ErrorWith("recognizer failed", err, map[string]interface{}{
					"roi": name,
				})
				continue
			}
			samples = append(samples, recognized...)
		}
	}
	return samples, captured, nil
}

// dispatch delivers one action and waits for it. The loop never races its
// own input: the next capture starts after the dispatcher returns.
func (c *Controller) dispatch(ctx context.Context, tick uint64, action input.ActionID) {
	outcome, err := c.deps.Dispatcher.Apply(ctx, action)
	if err != nil || outcome == input.OutcomeFailed {
		c.mu.Lock()
		c.stats.DispatchFailures++
		c.mu.Unlock()
		c.deps.Logger.ErrorWith("dispatch failed", err, map[string]interface{}{
			"action": string(action),
			"tick":   tick,
		})
		c.emit(diag.EventDispatchFailed, map[string]interface{}{
			"action": string(action),
			"tick":   tick,
		})
	}
	c.recordDispatch(tick, action, outcome, err)
}

// await sleeps the remainder of the period, returning early on cancellation.
func (c *Controller) await(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		// Still yield a cancellation point even when there is no slack.
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Controller) countSkippedCapture(roi string, err error) {
	c.mu.Lock()
	c.stats.SkippedCaptures++
	c.mu.Unlock()
	if errors.Is(err, vision.ErrCaptureUnavailable) {
		c.emit(diag.EventCaptureUnavailable, map[string]interface{}{
			"roi":     roi,
			"monitor": c.deps.Config.Monitor,
		})
	}
	c.deps.Logger.WarnWith("capture miss", map[string]interface{}{
		"roi":   roi,
		"error": err.Error(),
	})
}

func (c *Controller) countDropped(names []string) {
	c.mu.Lock()
	c.stats.DroppedSamples += uint64(len(names))
	c.mu.Unlock()
	c.deps.Logger.WarnWith("dropped unrecognized samples", map[string]interface{}{
		"names": names,
	})
	c.emit(diag.EventSampleDropped, map[string]interface{}{"names": names})
}

func (c *Controller) countOverrun(tick uint64, elapsed, period time.Duration) {
	c.mu.Lock()
	c.stats.Overruns++
	c.mu.Unlock()
	c.deps.Logger.WarnWith("tick overrun", map[string]interface{}{
		"tick":    tick,
		"elapsed": elapsed,
		"period":  period,
	})
	c.emit(diag.EventTickOverrun, map[string]interface{}{
		"tick":    tick,
		"elapsed": elapsed.String(),
	})
}

func (c *Controller) recordTick(tick uint64, elapsed time.Duration, overrun bool, action string) {
	c.mu.Lock()
	c.stats.Ticks++
	id := c.sessionID
	c.mu.Unlock()

	if c.deps.Store == nil || id == "" {
		return
	}
	if err := c.deps.Store.RecordTick(id, tick, elapsed, overrun, action); err != nil {
		c.deps.Logger.Error("failed to record tick", err)
	}
}

func (c *Controller) recordDispatch(tick uint64, action input.ActionID, outcome input.Outcome, err error) {
	c.mu.Lock()
	id := c.sessionID
	c.mu.Unlock()
	if c.deps.Store == nil || id == "" {
		return
	}
	d := store.Dispatch{
		SessionID: id,
		Tick:      tick,
		Action:    string(action),
		Outcome:   outcome.String(),
	}
	if err != nil {
		d.Err = err.Error()
	}
	if err := c.deps.Store.RecordDispatch(d); err != nil {
		c.deps.Logger.Error("failed to record dispatch", err)
	}
}
