package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/color"
	"image/png"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"mizukoshi.dev/craft-agent-go/internal/agent"
	"mizukoshi.dev/craft-agent-go/internal/behavior"
	"mizukoshi.dev/craft-agent-go/internal/config"
	"mizukoshi.dev/craft-agent-go/internal/diag"
	"mizukoshi.dev/craft-agent-go/internal/input"
	"mizukoshi.dev/craft-agent-go/internal/logging"
	"mizukoshi.dev/craft-agent-go/internal/store"
	"mizukoshi.dev/craft-agent-go/internal/vision"
)

// heartRed is the probe color for the health icon row.
var heartRed = color.RGBA{R: 220, G: 30, B: 30, A: 255}

func main() {
	setup := flag.Bool("setup", false, "run a calibration session and dump ROI frames")
	live := flag.Bool("live", false, "run a live agent session")
	configPath := flag.String("config", "Settings.ini", "path to the settings file")
	treePath := flag.String("tree", "", "tree profile YAML (overrides the config's TreeProfile)")
	flag.Parse()

	if *setup == *live {
		fmt.Fprintln(os.Stderr, "exactly one of --setup or --live is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*setup, *configPath, *treePath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(setup bool, configPath, treePath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		// Config problems get the localized operator message; the loader may
		// have failed before the language setting was read, so default to en.
		reporter := diag.NewReporter("en")
		var invalid *config.InvalidError
		if errors.As(err, &invalid) {
			fmt.Fprintln(os.Stderr, reporter.Message("config.invalid", map[string]interface{}{
				"Count": len(invalid.Fields),
			}))
		}
		return err
	}

	logger := logging.New("craft-agent").SetMinLevel(logging.ParseLevel(cfg.LogLevel))
	reporter := diag.NewReporter(cfg.Language)
	for _, w := range cfg.Warnings() {
		logger.Warn(w.Error())
	}

	bus := diag.NewBus(64)
	defer bus.Stop()

	sessions, err := store.Open(cfg.StorePath)
	if err != nil {
		// The store is bookkeeping, not a prerequisite for playing.
		logger.Error("session store unavailable, continuing without it", err)
		sessions = nil
	} else {
		defer sessions.Close()
	}

	tree, err := loadTree(cfg, treePath)
	if err != nil {
		return err
	}

	ctrl, err := agent.New(agent.Deps{
		Config:      cfg,
		Capturer:    vision.NewScreenCapturer(),
		Recognizers: buildRecognizers(cfg, logger),
		Tree:        tree,
		Dispatcher:  input.NewKeyDispatcher(input.NewOSDriver(), cfg.Input),
		Store:       sessions,
		Bus:         bus,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	// SIGINT/SIGTERM map to a controlled stop, never a hard exit: held keys
	// must be released before the process dies.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("stop requested")
		ctrl.Stop()
	}()

	if setup {
		fmt.Println(reporter.Message("setup.started", nil))
		return ctrl.EnterSetup(context.Background(), newFrameDumper("calibration"))
	}

	err = ctrl.EnterLive(context.Background())
	if errors.Is(err, vision.ErrCaptureUnavailable) {
		fmt.Fprintln(os.Stderr, reporter.Message("capture.unavailable", map[string]interface{}{
			"Monitor": cfg.Monitor,
		}))
	}
	stats := ctrl.Stats()
	logger.InfoWith("session finished", map[string]interface{}{
		"ticks":    stats.Ticks,
		"overruns": stats.Overruns,
		"skipped":  stats.SkippedCaptures,
	})
	return err
}

// loadTree resolves the strategy: --tree flag, then the config's TreeProfile,
// then the built-in default.
func loadTree(cfg *config.Config, override string) (*behavior.Tree, error) {
	path := override
	if path == "" {
		path = cfg.TreeProfile
	}
	if path == "" {
		return behavior.DefaultTree(), nil
	}
	return behavior.LoadProfile(path)
}

// buildRecognizers wires the standard perception set: template matching on
// the center view, the HUD icon reader, and the stillness detector.
func buildRecognizers(cfg *config.Config, logger *logging.Logger) []vision.Recognizer {
	var recs []vision.Recognizer

	registry := vision.NewTemplateRegistry(cfg.TemplatesDir)
	tablePath := filepath.Join(cfg.TemplatesDir, "templates.yaml")
	if err := registry.LoadFromFile(tablePath); err != nil {
		logger.Warn("no template table loaded: " + err.Error())
	} else if err := registry.Preload(); err != nil {
		logger.Error("template preload failed", err)
	}
	recs = append(recs, vision.NewTemplateRecognizer("center", registry, vision.DefaultMatchOptions()))

	if _, ok := cfg.ROIs["hud"]; ok {
		recs = append(recs, vision.NewHUDRecognizer("hud", "hud.health", 10, heartRed, 40))
	}
	if _, ok := cfg.ROIs["center"]; ok {
		recs = append(recs, vision.NewMotionRecognizer("center", "stuck", 2.0))
	}
	return recs
}

// frameDumper writes calibration frames to disk, one PNG per ROI per sweep,
// for the external calibration tool to pick up.
type frameDumper struct {
	dir string
	seq int
}

func newFrameDumper(dir string) *frameDumper {
	return &frameDumper{dir: dir}
}

func (d *frameDumper) Consume(roiName string, frame *vision.Frame) error {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return err
	}
	d.seq++
	path := filepath.Join(d.dir, fmt.Sprintf("%s-%06d.png", roiName, d.seq))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, frame.Image)
}
