// Package pano computes the grid of image-center orientations needed to
// capture a panorama with a given camera field of view, required overlap,
// and attitude tolerance.
package pano

import (
	"fmt"
	"math"
)

const eps = 1e-5

// Orientation is one image center, in degrees.
type Orientation struct {
	Pan  float64 `yaml:"pan"`
	Tilt float64 `yaml:"tilt"`
}

// Grid is a panorama capture sequence in column-major order: columns left to
// right, and within each column, tilt top to bottom.
type Grid struct {
	Centers []Orientation
	Cols    int
	Rows    int
}

// Config describes the desired panorama coverage.
type Config struct {
	// PanRadius covers pan -PanRadius .. +PanRadius. Exactly 180 selects
	// complete wrap-around coverage.
	PanRadius float64
	// TiltRadius covers tilt -TiltRadius .. +TiltRadius.
	TiltRadius float64
	// HFov and VFov are the camera fields of view.
	HFov float64
	VFov float64
	// Overlap is the minimum overlap between consecutive images, as a
	// proportion of the field of view (0 .. 1).
	Overlap float64
	// AttitudeTolerance keeps the overlap criterion satisfied even when
	// relative attitude between adjacent images is off by this much.
	AttitudeTolerance float64
}

// Orientations returns the image centers covering cfg's pan and tilt ranges.
func Orientations(cfg Config) (Grid, error) {
	var panVals []float64
	var err error
	if cfg.PanRadius == 180 {
		panVals, err = completePan(cfg.HFov, cfg.Overlap, cfg.AttitudeTolerance)
	} else {
		panVals, err = span(cfg.PanRadius, cfg.HFov, cfg.Overlap, cfg.AttitudeTolerance)
	}
	if err != nil {
		return Grid{}, fmt.Errorf("pan axis: %w", err)
	}

	tiltVals, err := span(cfg.TiltRadius, cfg.VFov, cfg.Overlap, cfg.AttitudeTolerance)
	if err != nil {
		return Grid{}, fmt.Errorf("tilt axis: %w", err)
	}

	// Column-major order: when capturing a long panorama with people
	// present, it is easier for them to move out of the field of view.
	centers := make([]Orientation, 0, len(panVals)*len(tiltVals))
	for _, pan := range panVals {
		for i := len(tiltVals) - 1; i >= 0; i-- {
			centers = append(centers, Orientation{Pan: pan, Tilt: tiltVals[i]})
		}
	}
	return Grid{Centers: centers, Cols: len(panVals), Rows: len(tiltVals)}, nil
}

// span returns image centers covering -radius .. +radius with the required
// overlap. A single image is centered; otherwise the boundary images cover
// exactly to the range edges and the rest are evenly spaced.
func span(radius, fov, overlap, tolerance float64) ([]float64, error) {
	width := radius * 2
	if width < fov {
		return []float64{0}, nil
	}

	maxStride := fov*(1-overlap) - tolerance
	if maxStride <= 0 {
		return nil, fmt.Errorf("overlap %v and tolerance %v leave no usable stride for fov %v",
			overlap, tolerance, fov)
	}

	// Sufficient overlap: stride <= fov*(1-overlap) - tolerance, with
	// (k-1)*stride + fov = width + 2*tolerance.
	k := int(math.Ceil((width+2*tolerance-fov)/maxStride)) + 1

	stride := (width + 2*tolerance - fov) / float64(k-1)
	if stride > maxStride+eps {
		return nil, fmt.Errorf("stride %v exceeds usable stride %v", stride, maxStride)
	}

	minCenter := -(radius + tolerance) + fov/2
	maxCenter := -minCenter
	return linspace(minCenter, maxCenter, k), nil
}

// completePan returns image centers covering the full -180 .. 180 pan range
// with overlap maintained across the wrap-around, centered at pan 0.
func completePan(fov, overlap, tolerance float64) ([]float64, error) {
	maxStride := fov*(1-overlap) - tolerance
	if maxStride <= 0 {
		return nil, fmt.Errorf("overlap %v and tolerance %v leave no usable stride for fov %v",
			overlap, tolerance, fov)
	}

	k := int(math.Ceil(360 / maxStride))
	stride := 360.0 / float64(k)
	centers := make([]float64, k)
	for i := range centers {
		centers[i] = -180 + float64(i)*stride
	}

	// Recenter the sequence at pan 0.
	mid := (centers[0] + centers[k-1]) / 2
	for i := range centers {
		centers[i] -= mid
	}
	return centers, nil
}

func linspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}
