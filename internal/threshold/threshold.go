package threshold

import (
	"fmt"
	"image"
)

// Mode selects the binarization strategy.
type Mode string

const (
	ModeGlobal   Mode = "global"
	ModeAdaptive Mode = "adaptive"
)

// Policy describes how a grayscale page is binarized. It is immutable
// configuration: validate once, then share freely across workers.
type Policy struct {
	Mode      Mode
	Threshold int // global cutoff, 0..255
	BlockSize int // adaptive neighborhood side, odd, >= 3
	C         int // adaptive constant subtracted from the local mean, >= 1
	Invert    bool
}

// Validate rejects bad parameters before any page is processed. Only the
// parameters of the selected mode are checked; the rest are ignored.
func (p Policy) Validate() error {
	switch p.Mode {
	case ModeGlobal:
		if p.Threshold < 0 || p.Threshold > 255 {
			return fmt.Errorf("threshold must be in [0,255], got %d", p.Threshold)
		}
	case ModeAdaptive:
		if p.BlockSize < 3 || p.BlockSize%2 == 0 {
			return fmt.Errorf("block size must be an odd integer >= 3, got %d", p.BlockSize)
		}
		if p.C < 1 {
			return fmt.Errorf("c-val must be >= 1, got %d", p.C)
		}
	default:
		return fmt.Errorf("unknown threshold mode %q", p.Mode)
	}
	return nil
}

const (
	foreground = 0   // ink
	background = 255 // paper
)

// Apply binarizes src according to the policy and returns a new bilevel
// image of identical dimensions (pixels are 0 or 255). src is not
// modified. Apply is deterministic: the same image and policy always
// produce bit-identical output, independent of goroutine scheduling.
func Apply(src *image.Gray, pol Policy) *image.Gray {
	if pol.Mode == ModeAdaptive {
		return applyAdaptive(src, pol)
	}
	return applyGlobal(src, pol)
}

func applyGlobal(src *image.Gray, pol Policy) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	cut := uint8(pol.Threshold)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		srow := src.Pix[(y-b.Min.Y)*src.Stride : (y-b.Min.Y)*src.Stride+b.Dx()]
		drow := dst.Pix[(y-b.Min.Y)*dst.Stride : (y-b.Min.Y)*dst.Stride+b.Dx()]
		for x, s := range srow {
			if pol.Invert {
				s = 255 - s
			}
			if s <= cut {
				drow[x] = foreground
			} else {
				drow[x] = background
			}
		}
	}
	return dst
}

// applyAdaptive classifies each pixel against the mean of a block×block
// window centered on it, clamped to the image bounds. The comparison
// sample <= mean - C is evaluated without division, as
// sample*count <= sum - C*count, so no rounding is involved.
func applyAdaptive(src *image.Gray, pol Policy) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(b)
	if w == 0 || h == 0 {
		return dst
	}

	sat := integralImage(src, pol.Invert)
	half := pol.BlockSize / 2
	c := int64(pol.C)

	for y := 0; y < h; y++ {
		y0, y1 := y-half, y+half+1
		if y0 < 0 {
			y0 = 0
		}
		if y1 > h {
			y1 = h
		}
		for x := 0; x < w; x++ {
			x0, x1 := x-half, x+half+1
			if x0 < 0 {
				x0 = 0
			}
			if x1 > w {
				x1 = w
			}
			sum := sat[y1*(w+1)+x1] - sat[y0*(w+1)+x1] - sat[y1*(w+1)+x0] + sat[y0*(w+1)+x0]
			count := int64((y1 - y0) * (x1 - x0))

			s := src.Pix[y*src.Stride+x]
			if pol.Invert {
				s = 255 - s
			}
			if int64(s)*count <= sum-c*count {
				dst.Pix[y*dst.Stride+x] = foreground
			} else {
				dst.Pix[y*dst.Stride+x] = background
			}
		}
	}
	return dst
}

// integralImage builds a (w+1)×(h+1) summed-area table so any window sum
// is four lookups. Inversion is folded in here so the table matches the
// samples being classified.
func integralImage(src *image.Gray, invert bool) []int64 {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	sat := make([]int64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var rowSum int64
		for x := 0; x < w; x++ {
			s := src.Pix[y*src.Stride+x]
			if invert {
				s = 255 - s
			}
			rowSum += int64(s)
			sat[(y+1)*(w+1)+x+1] = sat[y*(w+1)+x+1] + rowSum
		}
	}
	return sat
}
