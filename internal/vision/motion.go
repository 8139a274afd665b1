package vision

import (
	"image"

	"mizukoshi.dev/craft-agent-go/internal/blackboard"
)

// MotionRecognizer compares consecutive frames of one ROI and emits a boolean
// fact when the view stops changing while it should be moving. Keeps the
// previous frame between ticks; state belongs to the recognizer, never to
// globals.
type MotionRecognizer struct {
	roi       string
	fact      string
	threshold float64 // mean per-channel diff below this means "no motion"
	prev      *image.RGBA
}

// NewMotionRecognizer builds a stillness detector for one ROI.
func NewMotionRecognizer(roi, fact string, threshold float64) *MotionRecognizer {
	return &MotionRecognizer{roi: roi, fact: fact, threshold: threshold}
}

func (r *MotionRecognizer) Facts() []FactDecl {
	return []FactDecl{{Name: r.fact, Kind: blackboard.KindBool}}
}

func (r *MotionRecognizer) Recognize(frame *Frame, roiName string) ([]blackboard.Sample, error) {
	if roiName != r.roi {
		return nil, nil
	}
	// The frame buffer is owned by the tick that captured it, so keep a
	// private copy for the next comparison.
	prev := r.prev
	r.prev = cloneRGBA(frame.Image)

	// First frame: nothing to compare against yet.
	if prev == nil || !prev.Bounds().Eq(frame.Image.Bounds()) {
		return nil, nil
	}

	return []blackboard.Sample{{
		Name:  r.fact,
		Value: blackboard.BoolValue(meanDiff(prev, frame.Image) < r.threshold),
	}}, nil
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	rowLen := bounds.Dx() * 4
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		si := src.PixOffset(bounds.Min.X, y)
		di := dst.PixOffset(bounds.Min.X, y)
		copy(dst.Pix[di:di+rowLen], src.Pix[si:si+rowLen])
	}
	return dst
}

// meanDiff is the average per-channel absolute difference between two
// same-sized frames.
func meanDiff(a, b *image.RGBA) float64 {
	bounds := a.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return 0
	}

	var total uint64
	for y := 0; y < h; y++ {
		aRow := y * a.Stride
		bRow := y * b.Stride
		for x := 0; x < w; x++ {
			ai := aRow + x*4
			bi := bRow + x*4
			total += uint64(absDiff(a.Pix[ai], b.Pix[bi]))
			total += uint64(absDiff(a.Pix[ai+1], b.Pix[bi+1]))
			total += uint64(absDiff(a.Pix[ai+2], b.Pix[bi+2]))
		}
	}
	return float64(total) / float64(w*h*3)
}
