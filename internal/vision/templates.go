package vision

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/png"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Template is one reference image a recognizer can look for, plus the fact it
// feeds when found.
type Template struct {
	Name      string
	Path      string
	Threshold float64
	Fact      string           // boolean fact set true when the template is found
	Search    *image.Rectangle // optional scan window inside the ROI
}

// templateFile is the on-disk shape of a template table.
type templateFile struct {
	Templates []templateDef `yaml:"templates"`
}

type templateDef struct {
	Name      string     `yaml:"name"`
	Path      string     `yaml:"path"`
	Threshold float64    `yaml:"threshold"`
	Fact      string     `yaml:"fact"`
	Search    *searchDef `yaml:"search,omitempty"`
}

type searchDef struct {
	X1 int `yaml:"x1"`
	Y1 int `yaml:"y1"`
	X2 int `yaml:"x2"`
	Y2 int `yaml:"y2"`
}

// TemplateRegistry holds template definitions and lazily loads and caches
// their decoded images. Safe for concurrent use.
type TemplateRegistry struct {
	mu        sync.RWMutex
	templates map[string]Template
	images    map[string]*image.RGBA
	basePath  string
}

// NewTemplateRegistry creates an empty registry rooted at basePath, the
// directory template image paths are resolved against.
func NewTemplateRegistry(basePath string) *TemplateRegistry {
	return &TemplateRegistry{
		templates: make(map[string]Template),
		images:    make(map[string]*image.RGBA),
		basePath:  basePath,
	}
}

// LoadFromFile reads template definitions from a YAML table.
func (r *TemplateRegistry) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read template table %s: %w", path, err)
	}

	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse template table %s: %w", path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, def := range file.Templates {
		if def.Name == "" {
			return fmt.Errorf("template %d: name is required", i+1)
		}
		if def.Path == "" {
			return fmt.Errorf("template %q: path is required", def.Name)
		}
		if def.Fact == "" {
			return fmt.Errorf("template %q: fact is required", def.Name)
		}
		t := Template{
			Name:      def.Name,
			Path:      filepath.Join(r.basePath, def.Path),
			Threshold: def.Threshold,
			Fact:      def.Fact,
		}
		if t.Threshold == 0 {
			t.Threshold = 0.8
		}
		if def.Search != nil {
			rect := image.Rect(def.Search.X1, def.Search.Y1, def.Search.X2, def.Search.Y2)
			t.Search = &rect
		}
		r.templates[def.Name] = t
	}
	return nil
}

// Add registers a template directly, used by tests and built-in recognizers.
func (r *TemplateRegistry) Add(t Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.Name] = t
}

// All returns every registered template.
func (r *TemplateRegistry) All() []Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Template, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	return out
}

// Image returns the decoded template image, loading and caching it on first
// use.
func (r *TemplateRegistry) Image(name string) (*image.RGBA, error) {
	r.mu.RLock()
	if img, ok := r.images[name]; ok {
		r.mu.RUnlock()
		return img, nil
	}
	t, ok := r.templates[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("template %q not registered", name)
	}

	img, err := loadRGBA(t.Path)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", name, err)
	}

	r.mu.Lock()
	r.images[name] = img
	r.mu.Unlock()
	return img, nil
}

// Preload eagerly decodes every registered template so Live entry can fail
// fast on a missing or corrupt image.
func (r *TemplateRegistry) Preload() error {
	for _, t := range r.All() {
		if _, err := r.Image(t.Name); err != nil {
			return err
		}
	}
	return nil
}

func loadRGBA(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	decoded, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if rgba, ok := decoded.(*image.RGBA); ok {
		return rgba, nil
	}
	rgba := image.NewRGBA(decoded.Bounds())
	draw.Draw(rgba, rgba.Bounds(), decoded, decoded.Bounds().Min, draw.Src)
	return rgba, nil
}
