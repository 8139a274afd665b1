package config

import (
	"fmt"
	"time"
)

// ROI is a named screen sub-rectangle, in pixels relative to the monitor origin.
type ROI struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// InputTiming holds the action timing table applied by the key dispatcher.
type InputTiming struct {
	MaxHold       time.Duration // a held key is force-released after this long
	MaxClickHz    float64       // repeated presses of the same key are rate limited
	PressDuration time.Duration // tap length for one-shot actions (turns, jumps)
}

// Config is the validated, immutable runtime configuration.
// It is built once at startup by Load and never mutated afterwards;
// every component receives it by explicit injection.
type Config struct {
	// Capture
	Monitor      int
	ROIs         map[string]ROI
	TemplatesDir string

	// Agent
	TickInterval       time.Duration
	StalenessThreshold time.Duration
	TreeProfile        string // path to a YAML tree profile, empty = built-in tree

	// Input
	Input InputTiming

	// Storage / diagnostics
	StorePath string
	LogLevel  string
	Language  string // message language for operator diagnostics ("en", "ja")
}

// Validate checks every field and collects all problems rather than stopping at
// the first one, so the operator gets a complete picture in a single run.
func (c *Config) Validate() error {
	var fields []FieldError

	if c.Monitor < 0 {
		fields = append(fields, FieldError{
			Path:    "capture.monitor",
			Message: fmt.Sprintf("monitor index must be >= 0, got %d", c.Monitor),
			Hint:    "set Monitor in Settings.ini to the index shown by the setup overlay",
		})
	}

	if len(c.ROIs) == 0 {
		fields = append(fields, FieldError{
			Path:    "rois",
			Message: "no ROI rectangles configured",
			Hint:    "run with --setup to define at least one named ROI",
		})
	}

	for name, roi := range c.ROIs {
		path := "rois." + name
		if name == "" {
			fields = append(fields, FieldError{
				Path:    "rois",
				Message: "ROI with empty name",
				Hint:    "give every ROI a unique name in the ROI table",
			})
			continue
		}
		if roi.Width <= 0 {
			fields = append(fields, FieldError{
				Path:    path + ".width",
				Message: fmt.Sprintf("width must be positive, got %d", roi.Width),
				Hint:    "re-run --setup and drag a non-empty rectangle",
			})
		}
		if roi.Height <= 0 {
			fields = append(fields, FieldError{
				Path:    path + ".height",
				Message: fmt.Sprintf("height must be positive, got %d", roi.Height),
				Hint:    "re-run --setup and drag a non-empty rectangle",
			})
		}
		if roi.X < 0 || roi.Y < 0 {
			fields = append(fields, FieldError{
				Path:    path,
				Message: fmt.Sprintf("origin must be >= 0, got (%d, %d)", roi.X, roi.Y),
				Hint:    "the ROI must lie inside the selected monitor",
			})
		}
	}

	if c.TickInterval <= 0 {
		fields = append(fields, FieldError{
			Path:    "agent.tickInterval",
			Message: fmt.Sprintf("tick interval must be positive, got %v", c.TickInterval),
			Hint:    "TickIntervalMs in Settings.ini must be a positive integer",
		})
	}
	if c.StalenessThreshold <= 0 {
		fields = append(fields, FieldError{
			Path:    "agent.stalenessThreshold",
			Message: fmt.Sprintf("staleness threshold must be positive, got %v", c.StalenessThreshold),
			Hint:    "StalenessMs in Settings.ini must be a positive integer",
		})
	}

	if c.Input.MaxHold <= 0 {
		fields = append(fields, FieldError{
			Path:    "input.maxHold",
			Message: fmt.Sprintf("max hold must be positive, got %v", c.Input.MaxHold),
			Hint:    "MaxHoldMs limits how long a key stays pressed; 1200 is a safe default",
		})
	}
	if c.Input.MaxClickHz <= 0 {
		fields = append(fields, FieldError{
			Path:    "input.maxClickHz",
			Message: fmt.Sprintf("max click rate must be positive, got %v", c.Input.MaxClickHz),
			Hint:    "MaxClickHz throttles repeated presses; 5 is a safe default",
		})
	}
	if c.Input.PressDuration <= 0 {
		fields = append(fields, FieldError{
			Path:    "input.pressDuration",
			Message: fmt.Sprintf("press duration must be positive, got %v", c.Input.PressDuration),
			Hint:    "PressDurationMs is the tap length for one-shot actions; 80 is a safe default",
		})
	}

	if len(fields) > 0 {
		return &InvalidError{Fields: fields}
	}
	return nil
}

// Warnings reports conditions that do not block startup but usually mean a
// stale calibration. Overlapping ROIs are legal at runtime; they are only
// surfaced so the operator can re-run setup.
func (c *Config) Warnings() []FieldError {
	var fields []FieldError
	if name1, name2, ok := firstOverlap(c.ROIs); ok {
		fields = append(fields, FieldError{
			Path:    "rois." + name1,
			Message: fmt.Sprintf("overlaps ROI %q", name2),
			Hint:    "overlapping ROIs usually mean a stale calibration; re-run --setup",
		})
	}
	return fields
}

func firstOverlap(rois map[string]ROI) (string, string, bool) {
	names := make([]string, 0, len(rois))
	for name := range rois {
		names = append(names, name)
	}
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			a, b := rois[names[i]], rois[names[j]]
			if a.X < b.X+b.Width && b.X < a.X+a.Width &&
				a.Y < b.Y+b.Height && b.Y < a.Y+a.Height {
				if names[i] < names[j] {
					return names[i], names[j], true
				}
				return names[j], names[i], true
			}
		}
	}
	return "", "", false
}
