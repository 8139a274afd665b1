package vision

import (
	"image"
	"image/color"
	"math"
)

// Method selects the pixel comparison used by template matching.
type Method int

const (
	// MethodSAD - sum of absolute differences, fastest.
	MethodSAD Method = iota
	// MethodSSD - sum of squared differences, the default.
	MethodSSD
	// MethodNCC - normalized cross-correlation, robust to brightness shifts.
	MethodNCC
)

// Match is the best template position found in a frame.
type Match struct {
	Found bool
	At    image.Point
	Score float64
}

// MatchOptions tunes a template search.
type MatchOptions struct {
	Method    Method
	Threshold float64          // 0..1, score required to count as found
	Search    *image.Rectangle // optional: restrict the scan window
	Grayscale bool             // collapse channels before scoring
}

// DefaultMatchOptions are the settings the recognizers start from.
func DefaultMatchOptions() MatchOptions {
	return MatchOptions{Method: MethodSSD, Threshold: 0.85}
}

// FindTemplate scans haystack for the best placement of needle and reports
// whether the best score clears the threshold.
func FindTemplate(haystack, needle *image.RGBA, opts MatchOptions) Match {
	if opts.Grayscale {
		haystack = grayscale(haystack)
		needle = grayscale(needle)
	}

	nw, nh := needle.Bounds().Dx(), needle.Bounds().Dy()
	if nw > haystack.Bounds().Dx() || nh > haystack.Bounds().Dy() {
		return Match{}
	}

	search := haystack.Bounds()
	if opts.Search != nil {
		search = opts.Search.Intersect(search)
		if search.Empty() {
			return Match{}
		}
	}
	maxX := search.Max.X - nw
	maxY := search.Max.Y - nh
	if maxX < search.Min.X || maxY < search.Min.Y {
		return Match{}
	}

	best := Match{}
	for y := search.Min.Y; y <= maxY; y++ {
		for x := search.Min.X; x <= maxX; x++ {
			s := score(haystack, needle, x, y, opts.Method)
			if s > best.Score {
				best.Score = s
				best.At = image.Point{X: x, Y: y}
			}
		}
	}
	best.Found = best.Score >= opts.Threshold
	return best
}

func score(haystack, needle *image.RGBA, x, y int, method Method) float64 {
	w, h := needle.Bounds().Dx(), needle.Bounds().Dy()
	switch method {
	case MethodSAD:
		return scoreSAD(haystack, needle, x, y, w, h)
	case MethodNCC:
		return scoreNCC(haystack, needle, x, y, w, h)
	default:
		return scoreSSD(haystack, needle, x, y, w, h)
	}
}

func scoreSAD(haystack, needle *image.RGBA, x, y, w, h int) float64 {
	var sad uint64
	for ny := 0; ny < h; ny++ {
		hRow := (y+ny)*haystack.Stride + x*4
		nRow := ny * needle.Stride
		for nx := 0; nx < w; nx++ {
			hi := hRow + nx*4
			ni := nRow + nx*4
			sad += uint64(absDiff(haystack.Pix[hi], needle.Pix[ni]))
			sad += uint64(absDiff(haystack.Pix[hi+1], needle.Pix[ni+1]))
			sad += uint64(absDiff(haystack.Pix[hi+2], needle.Pix[ni+2]))
		}
	}
	max := float64(w * h * 3 * 255)
	return 1.0 - float64(sad)/max
}

func scoreSSD(haystack, needle *image.RGBA, x, y, w, h int) float64 {
	var ssd uint64
	for ny := 0; ny < h; ny++ {
		hRow := (y+ny)*haystack.Stride + x*4
		nRow := ny * needle.Stride
		for nx := 0; nx < w; nx++ {
			hi := hRow + nx*4
			ni := nRow + nx*4
			dr := int(haystack.Pix[hi]) - int(needle.Pix[ni])
			dg := int(haystack.Pix[hi+1]) - int(needle.Pix[ni+1])
			db := int(haystack.Pix[hi+2]) - int(needle.Pix[ni+2])
			ssd += uint64(dr*dr + dg*dg + db*db)
		}
	}
	max := float64(w * h * 3 * 255 * 255)
	return 1.0 - float64(ssd)/max
}

func scoreNCC(haystack, needle *image.RGBA, x, y, w, h int) float64 {
	var sumH, sumN, sumHN, sumHH, sumNN float64
	n := float64(w * h * 3)

	for ny := 0; ny < h; ny++ {
		hRow := (y+ny)*haystack.Stride + x*4
		nRow := ny * needle.Stride
		for nx := 0; nx < w; nx++ {
			for c := 0; c < 3; c++ {
				hv := float64(haystack.Pix[hRow+nx*4+c])
				nv := float64(needle.Pix[nRow+nx*4+c])
				sumH += hv
				sumN += nv
				sumHN += hv * nv
				sumHH += hv * hv
				sumNN += nv * nv
			}
		}
	}

	num := sumHN - sumH*sumN/n
	denomH := math.Sqrt(sumHH - sumH*sumH/n)
	denomN := math.Sqrt(sumNN - sumN*sumN/n)
	if denomH == 0 || denomN == 0 {
		return 0
	}
	// Map the correlation coefficient from [-1,1] onto [0,1].
	return (num/(denomH*denomN) + 1.0) / 2.0
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func grayscale(img *image.RGBA) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			idx := (y-bounds.Min.Y)*out.Stride + (x-bounds.Min.X)*4
			src := (y-img.Rect.Min.Y)*img.Stride + (x-img.Rect.Min.X)*4
			lum := uint8((int(img.Pix[src])*299 + int(img.Pix[src+1])*587 + int(img.Pix[src+2])*114) / 1000)
			out.Pix[idx] = lum
			out.Pix[idx+1] = lum
			out.Pix[idx+2] = lum
			out.Pix[idx+3] = 255
		}
	}
	return out
}

// CountColor returns how many pixels in rect sit within tolerance of target,
// comparing mean per-channel distance. Used by the HUD icon reader.
func CountColor(img *image.RGBA, rect image.Rectangle, target color.RGBA, tolerance uint8) int {
	rect = rect.Intersect(img.Bounds())
	count := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			c := img.RGBAAt(x, y)
			d := (absDiff(c.R, target.R) + absDiff(c.G, target.G) + absDiff(c.B, target.B)) / 3
			if uint8(d) <= tolerance {
				count++
			}
		}
	}
	return count
}

// RegionAverage returns the mean color of a rectangle.
func RegionAverage(img *image.RGBA, rect image.Rectangle) color.RGBA {
	rect = rect.Intersect(img.Bounds())
	var r, g, b uint64
	count := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			c := img.RGBAAt(x, y)
			r += uint64(c.R)
			g += uint64(c.G)
			b += uint64(c.B)
			count++
		}
	}
	if count == 0 {
		return color.RGBA{A: 255}
	}
	return color.RGBA{
		R: uint8(r / uint64(count)),
		G: uint8(g / uint64(count)),
		B: uint8(b / uint64(count)),
		A: 255,
	}
}

// CropRegion copies a rectangle out of an image into a zero-origin buffer.
func CropRegion(img *image.RGBA, rect image.Rectangle) *image.RGBA {
	rect = rect.Intersect(img.Bounds())
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			out.SetRGBA(x-rect.Min.X, y-rect.Min.Y, img.RGBAAt(x, y))
		}
	}
	return out
}
