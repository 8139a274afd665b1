package vision

import (
	"fmt"
	"image"
	"time"

	"github.com/kbinani/screenshot"

	"mizukoshi.dev/craft-agent-go/internal/config"
)

// ScreenCapturer grabs ROI crops straight from a physical display.
type ScreenCapturer struct {
	now func() time.Time
}

// NewScreenCapturer returns a display-backed capturer.
func NewScreenCapturer() *ScreenCapturer {
	return &ScreenCapturer{now: time.Now}
}

// Probe verifies that the configured monitor exists and can be captured.
// Called once before entering Live so a dead display fails fast.
func (c *ScreenCapturer) Probe(monitor int) error {
	if screenshot.NumActiveDisplays() == 0 {
		return ErrCaptureUnavailable
	}
	if monitor < 0 || monitor >= screenshot.NumActiveDisplays() {
		return fmt.Errorf("monitor %d not present (%d displays): %w",
			monitor, screenshot.NumActiveDisplays(), ErrCaptureUnavailable)
	}
	return nil
}

// Capture grabs one ROI. The ROI origin is relative to the monitor's own
// bounds, so ROI tables calibrated on one monitor move with it.
func (c *ScreenCapturer) Capture(monitor int, roi config.ROI) (*Frame, error) {
	if monitor < 0 || monitor >= screenshot.NumActiveDisplays() {
		return nil, ErrCaptureUnavailable
	}
	display := screenshot.GetDisplayBounds(monitor)

	rect := image.Rect(
		display.Min.X+roi.X,
		display.Min.Y+roi.Y,
		display.Min.X+roi.X+roi.Width,
		display.Min.Y+roi.Y+roi.Height,
	)
	if !rect.In(display) {
		return nil, fmt.Errorf("roi %dx%d+%d+%d exceeds monitor %d bounds %v",
			roi.Width, roi.Height, roi.X, roi.Y, monitor, display)
	}

	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	return &Frame{Image: img, CapturedAt: c.now()}, nil
}
