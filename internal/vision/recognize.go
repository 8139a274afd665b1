package vision

import (
	"image"
	"image/color"

	"mizukoshi.dev/craft-agent-go/internal/blackboard"
)

// FactDecl declares one fact a recognizer can produce, so the agent can build
// the blackboard schema from its recognizer set.
type FactDecl struct {
	Name string
	Kind blackboard.Kind
}

// Recognizer turns a captured frame into fact samples. An empty result means
// nothing was recognized in this frame; it is not an error.
type Recognizer interface {
	// Facts lists every fact this recognizer may emit.
	Facts() []FactDecl
	// Recognize inspects a frame captured from the named ROI.
	Recognize(frame *Frame, roiName string) ([]blackboard.Sample, error)
}

// TemplateRecognizer matches registered templates against one ROI and emits a
// boolean fact per template: true when found, false when scanned and absent.
type TemplateRecognizer struct {
	roi      string
	registry *TemplateRegistry
	opts     MatchOptions
}

// NewTemplateRecognizer binds a template registry to an ROI name.
func NewTemplateRecognizer(roi string, registry *TemplateRegistry, opts MatchOptions) *TemplateRecognizer {
	return &TemplateRecognizer{roi: roi, registry: registry, opts: opts}
}

func (r *TemplateRecognizer) Facts() []FactDecl {
	var decls []FactDecl
	for _, t := range r.registry.All() {
		decls = append(decls, FactDecl{Name: t.Fact, Kind: blackboard.KindBool})
	}
	return decls
}

func (r *TemplateRecognizer) Recognize(frame *Frame, roiName string) ([]blackboard.Sample, error) {
	if roiName != r.roi {
		return nil, nil
	}
	var samples []blackboard.Sample
	for _, t := range r.registry.All() {
		needle, err := r.registry.Image(t.Name)
		if err != nil {
			return nil, err
		}
		opts := r.opts
		opts.Threshold = t.Threshold
		opts.Search = t.Search
		m := FindTemplate(frame.Image, needle, opts)
		samples = append(samples, blackboard.Sample{
			Name:  t.Fact,
			Value: blackboard.BoolValue(m.Found),
		})
	}
	return samples, nil
}

// HUDRecognizer reads a row of equally spaced status icons (hearts, hunger)
// and emits the count of lit icons as a number fact. Each icon cell counts as
// lit when enough of its pixels sit near the probe color.
type HUDRecognizer struct {
	roi       string
	fact      string
	icons     int
	probe     color.RGBA
	tolerance uint8
	minFill   float64 // fraction of cell pixels that must match
}

// NewHUDRecognizer builds an icon-row reader for one ROI.
func NewHUDRecognizer(roi, fact string, icons int, probe color.RGBA, tolerance uint8) *HUDRecognizer {
	return &HUDRecognizer{
		roi:       roi,
		fact:      fact,
		icons:     icons,
		probe:     probe,
		tolerance: tolerance,
		minFill:   0.35,
	}
}

func (r *HUDRecognizer) Facts() []FactDecl {
	return []FactDecl{{Name: r.fact, Kind: blackboard.KindNumber}}
}

func (r *HUDRecognizer) Recognize(frame *Frame, roiName string) ([]blackboard.Sample, error) {
	if roiName != r.roi || r.icons <= 0 {
		return nil, nil
	}
	bounds := frame.Image.Bounds()
	cellWidth := bounds.Dx() / r.icons
	if cellWidth == 0 {
		return nil, nil
	}

	lit := 0
	for i := 0; i < r.icons; i++ {
		cell := image.Rect(
			bounds.Min.X+i*cellWidth,
			bounds.Min.Y,
			bounds.Min.X+(i+1)*cellWidth,
			bounds.Max.Y,
		)
		matched := CountColor(frame.Image, cell, r.probe, r.tolerance)
		if float64(matched) >= r.minFill*float64(cell.Dx()*cell.Dy()) {
			lit++
		}
	}
	return []blackboard.Sample{{
		Name:  r.fact,
		Value: blackboard.NumberValue(float64(lit)),
	}}, nil
}
