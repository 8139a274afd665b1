package vision

import (
	"errors"
	"image"
	"time"

	"mizukoshi.dev/craft-agent-go/internal/config"
)

// ErrCaptureUnavailable reports that no display or capture driver is usable.
// Fatal when entering Live; a recoverable skip mid-session.
var ErrCaptureUnavailable = errors.New("screen capture unavailable")

// Frame is one captured ROI crop. A frame is owned by the tick that captured
// it and is never shared across ticks.
type Frame struct {
	Image      *image.RGBA
	CapturedAt time.Time
	ROI        string
}

// Capturer produces ROI frames from a monitor.
type Capturer interface {
	// Capture grabs the given ROI from the monitor. The returned frame is a
	// fresh buffer the caller may mutate.
	Capture(monitor int, roi config.ROI) (*Frame, error)
}
