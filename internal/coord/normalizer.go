// Package coord implements the Coord Normalizer (spec.md §4.7): given raw
// boxes in an unknown convention and the source image's pixel dimensions,
// it scores four candidate conventions and applies the best-fitting one.
// Used only in VLM direct mode (proxy mode already resolves the
// provider's own convention before returning unit coordinates).
package coord

import "math"

// RawBox is a candidate rectangle in whatever convention the model used,
// expressed as [xmin, ymin, xmax, ymax].
type RawBox struct {
	XMin, YMin, XMax, YMax float64
}

// Convention names one of the four candidate coordinate systems.
type Convention string

const (
	ConventionPixel           Convention = "pixel"
	ConventionNormalized      Convention = "normalized"
	ConventionSquare1000      Convention = "coord_square_1000"
	ConventionSquare1024      Convention = "coord_square_1024"
	conventionLetterbox1000              = ConventionSquare1000 + "_letterbox"
	conventionLetterbox1024              = ConventionSquare1024 + "_letterbox"
)

const (
	minValidSpan = 0.003
	maxValidSpan = 0.98

	discardMinSpan = 0.005
	discardMaxSpan = 0.95
)

// Unit is a normalized [0,1]-space rectangle, xmin<=xmax, ymin<=ymax.
type Unit struct {
	XMin, YMin, XMax, YMax float64
}

// Normalize tests the four conventions from spec.md §4.7 against boxes,
// picks the best-scoring one (preferring a square convention on ties),
// applies it, clamps to [0,1], and discards boxes outside the valid span
// after normalization.
func Normalize(boxes []RawBox, imgW, imgH float64) []Unit {
	_, units := NormalizeIndexed(boxes, imgW, imgH)
	return units
}

// NormalizeIndexed behaves like Normalize but also returns, for each
// surviving Unit, the index of the RawBox it came from in the input
// slice — callers that need to re-associate normalized boxes with
// per-object metadata (type, text) that Normalize itself discards should
// use this instead of re-deriving indices by position.
func NormalizeIndexed(boxes []RawBox, imgW, imgH float64) (indices []int, units []Unit) {
	if len(boxes) == 0 {
		return nil, nil
	}

	candidates := []struct {
		name  Convention
		apply func(RawBox) Unit
	}{
		{ConventionPixel, func(b RawBox) Unit { return pixelConvention(b, imgW, imgH) }},
		{ConventionNormalized, func(b RawBox) Unit { return Unit(b) }},
		{ConventionSquare1000, func(b RawBox) Unit { return squareConvention(b, 1000) }},
		{ConventionSquare1024, func(b RawBox) Unit { return squareConvention(b, 1024) }},
		{conventionLetterbox1000, func(b RawBox) Unit { return letterboxConvention(b, 1000, imgW, imgH) }},
		{conventionLetterbox1024, func(b RawBox) Unit { return letterboxConvention(b, 1024, imgW, imgH) }},
	}

	bestScore := -1
	bestIdx := 0
	for i, cand := range candidates {
		score := 0
		for _, b := range boxes {
			u := cand.apply(b)
			if fitsValidSpan(u) {
				score++
			}
		}
		if score > bestScore || (score == bestScore && isSquare(cand.name) && !isSquare(candidates[bestIdx].name)) {
			bestScore = score
			bestIdx = i
		}
	}

	apply := candidates[bestIdx].apply
	outUnits := make([]Unit, 0, len(boxes))
	outIdx := make([]int, 0, len(boxes))
	for i, b := range boxes {
		u := clamp01(apply(b))
		if u.XMax-u.XMin < discardMinSpan || u.XMax-u.XMin > discardMaxSpan {
			continue
		}
		if u.YMax-u.YMin < discardMinSpan || u.YMax-u.YMin > discardMaxSpan {
			continue
		}
		if u.XMin >= u.XMax || u.YMin >= u.YMax {
			continue
		}
		outUnits = append(outUnits, u)
		outIdx = append(outIdx, i)
	}
	return outIdx, outUnits
}

func isSquare(c Convention) bool {
	return c == ConventionSquare1000 || c == ConventionSquare1024 ||
		c == conventionLetterbox1000 || c == conventionLetterbox1024
}

func pixelConvention(b RawBox, w, h float64) Unit {
	if w == 0 || h == 0 {
		return Unit{}
	}
	return Unit{XMin: b.XMin / w, YMin: b.YMin / h, XMax: b.XMax / w, YMax: b.YMax / h}
}

func squareConvention(b RawBox, base float64) Unit {
	return Unit{XMin: b.XMin / base, YMin: b.YMin / base, XMax: b.XMax / base, YMax: b.YMax / base}
}

// letterboxConvention undoes center-padding applied before a model that
// only accepts square input saw the image: scale = min(B/W, B/H), then
// (raw - pad) / scale recovers original-pixel coordinates, which are then
// divided by W/H to reach unit space.
func letterboxConvention(b RawBox, base, w, h float64) Unit {
	if w == 0 || h == 0 {
		return Unit{}
	}
	scale := math.Min(base/w, base/h)
	padX := (base - w*scale) / 2
	padY := (base - h*scale) / 2
	return Unit{
		XMin: ((b.XMin - padX) / scale) / w,
		YMin: ((b.YMin - padY) / scale) / h,
		XMax: ((b.XMax - padX) / scale) / w,
		YMax: ((b.YMax - padY) / scale) / h,
	}
}

func fitsValidSpan(u Unit) bool {
	if u.XMin < 0 || u.YMin < 0 || u.XMax > 1 || u.YMax > 1 {
		return false
	}
	w, h := u.XMax-u.XMin, u.YMax-u.YMin
	return w >= minValidSpan && w <= maxValidSpan && h >= minValidSpan && h <= maxValidSpan
}

func clamp01(u Unit) Unit {
	return Unit{
		XMin: clamp(u.XMin), YMin: clamp(u.YMin),
		XMax: clamp(u.XMax), YMax: clamp(u.YMax),
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
