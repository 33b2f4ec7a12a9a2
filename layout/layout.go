// Package layout computes absolute positions and scaled sizes for images
// inside labeled deck containers. The resolver is a pure function over
// pre-measured metrics - it performs no I/O and never suspends.
package layout

import (
	"slidefit/css"
)

// Dimension is a width/height pair in pixels.
type Dimension struct {
	Width  int
	Height int
}

// IsZero reports whether either side of the dimension is missing.
func (d Dimension) IsZero() bool {
	return d.Width <= 0 || d.Height <= 0
}

// Margins holds an element's four margin values resolved to pixels.
type Margins struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

// BoxMetrics carries everything the resolver needs to know about geometry:
// the image's natural size, the container's rendered content-box size and
// the image's resolved margins.
type BoxMetrics struct {
	Natural   Dimension
	Container Dimension
	Margins   Margins
}

// ScaleConstraint holds the raw max-width/max-height measurement strings for
// an image. Percentages resolve against the container's corresponding
// dimension; an empty string means unconstrained (the full container side).
type ScaleConstraint struct {
	MaxWidth  string
	MaxHeight string
}

// Result is the outcome of a resolution pass. Offsets are relative to the
// container's top-left content-box origin. An axis with no alignment keyword
// is left untouched (HasTop/HasLeft false) so prior positioning survives.
type Result struct {
	Size       Dimension
	Top        int
	Left       int
	HasTop     bool
	HasLeft    bool
	Positioned bool
}

// Resolve computes the target size and offsets for one image. Scaling
// triggers when fit is set or the natural size overflows the container on
// either axis; when it does, the dimension more constrained relative to the
// container is clamped to the available space and the other side follows the
// natural aspect ratio, truncated toward zero.
//
// Keywords apply strictly in list order and each write overwrites the axis
// unconditionally, so the last keyword for an axis wins. That ordering is a
// semantic contract with deck authors, not an accident.
func Resolve(m BoxMetrics, c ScaleConstraint, keywords []Keyword, fit bool) (Result, error) {
	res := Result{Size: m.Natural}

	if fit || m.Natural.Height > m.Container.Height || m.Natural.Width > m.Container.Width {
		size, err := scale(m, c)
		if err != nil {
			return Result{}, err
		}
		res.Size = size
	}

	for _, kw := range keywords {
		switch kw {
		case KeywordTop:
			res.Top, res.HasTop = 0, true
		case KeywordMiddle:
			res.Top, res.HasTop = floorHalf(m.Container.Height-res.Size.Height-m.Margins.Top-m.Margins.Bottom), true
		case KeywordBottom:
			res.Top, res.HasTop = m.Container.Height-res.Size.Height-m.Margins.Bottom, true
		case KeywordLeft:
			res.Left, res.HasLeft = 0, true
		case KeywordCenter, KeywordCentre:
			res.Left, res.HasLeft = floorHalf(m.Container.Width-res.Size.Width-m.Margins.Left-m.Margins.Right), true
		case KeywordRight:
			res.Left, res.HasLeft = m.Container.Width-res.Size.Width-m.Margins.Right, true
		}
	}

	res.Positioned = true
	return res, nil
}

// scale clamps the more constrained dimension to the container's available
// space and derives the other side from the natural aspect ratio.
func scale(m BoxMetrics, c ScaleConstraint) (Dimension, error) {
	var d Dimension

	// ratios compare how much each natural dimension exceeds its container
	// side; the strictly greater one is the constrained axis, ties fall
	// through to the height branch
	wRatio := float64(m.Natural.Width) / float64(m.Container.Width)
	hRatio := float64(m.Natural.Height) / float64(m.Container.Height)

	if wRatio > hRatio {
		maxWidth, err := resolveMax(c.MaxWidth, m.Container.Width)
		if err != nil {
			return d, err
		}
		d.Width = maxWidth - m.Margins.Left - m.Margins.Right
		d.Height = int(float64(m.Natural.Height) * float64(d.Width) / float64(m.Natural.Width))
		return d, nil
	}

	maxHeight, err := resolveMax(c.MaxHeight, m.Container.Height)
	if err != nil {
		return d, err
	}
	d.Height = maxHeight - m.Margins.Top - m.Margins.Bottom
	d.Width = int(float64(m.Natural.Width) * float64(d.Height) / float64(m.Natural.Height))
	return d, nil
}

// floorHalf halves n rounding toward negative infinity. Integer division
// truncates toward zero which is wrong for oversized images centered in a
// smaller container.
func floorHalf(n int) int {
	if n < 0 && n%2 != 0 {
		return n/2 - 1
	}
	return n / 2
}

// resolveMax normalizes a max-width/max-height measurement against the
// container side it constrains. Unset means the whole side is available.
func resolveMax(measurement string, side int) (int, error) {
	if measurement == "" || measurement == "none" {
		return side, nil
	}
	return css.Normalize(measurement, float64(side))
}
