package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// roiTable is the on-disk shape of the YAML ROI table written by the
// calibration tool.
type roiTable struct {
	ROIs map[string]ROI `yaml:"rois"`
}

// Load reads Settings.ini and the ROI table it references, returning a
// validated configuration. The returned Config is read-only for the lifetime
// of a session.
func Load(path string) (*Config, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	capture := cfg.Section("Capture")
	agent := cfg.Section("Agent")
	input := cfg.Section("Input")
	storage := cfg.Section("Storage")

	config := &Config{
		Monitor:      capture.Key("Monitor").MustInt(0),
		TemplatesDir: capture.Key("TemplatesDir").MustString("templates"),

		TickInterval:       time.Duration(agent.Key("TickIntervalMs").MustInt(200)) * time.Millisecond,
		StalenessThreshold: time.Duration(agent.Key("StalenessMs").MustInt(1000)) * time.Millisecond,
		TreeProfile:        agent.Key("TreeProfile").MustString(""),

		Input: InputTiming{
			MaxHold:       time.Duration(input.Key("MaxHoldMs").MustInt(1200)) * time.Millisecond,
			MaxClickHz:    input.Key("MaxClickHz").MustFloat64(5.0),
			PressDuration: time.Duration(input.Key("PressDurationMs").MustInt(80)) * time.Millisecond,
		},

		StorePath: storage.Key("DatabasePath").MustString("agent.db"),
		LogLevel:  storage.Key("LogLevel").MustString("INFO"),
		Language:  storage.Key("Language").MustString("en"),
	}

	// The ROI table lives in its own YAML file so the calibration tool can
	// rewrite it without touching operator settings.
	roiPath := capture.Key("RoiTable").MustString("rois.yaml")
	if !filepath.IsAbs(roiPath) {
		roiPath = filepath.Join(filepath.Dir(path), roiPath)
	}
	rois, err := loadROITable(roiPath)
	if err != nil {
		return nil, err
	}
	config.ROIs = rois

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadROITable(path string) (map[string]ROI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &InvalidError{Fields: []FieldError{{
			Path:    "rois",
			Message: fmt.Sprintf("ROI table %s could not be read: %v", path, err),
			Hint:    "run with --setup to create the ROI table, or fix RoiTable in Settings.ini",
		}}}
	}

	var table roiTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, &InvalidError{Fields: []FieldError{{
			Path:    "rois",
			Message: fmt.Sprintf("ROI table %s is not valid YAML: %v", path, err),
			Hint:    "delete the file and re-run --setup to regenerate it",
		}}}
	}
	return table.ROIs, nil
}

// SaveROITable persists a named ROI set. The calibration collaborator calls
// this after a committed selection.
func SaveROITable(path string, rois map[string]ROI) error {
	data, err := yaml.Marshal(roiTable{ROIs: rois})
	if err != nil {
		return fmt.Errorf("failed to encode ROI table: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write ROI table: %w", err)
	}
	return nil
}
