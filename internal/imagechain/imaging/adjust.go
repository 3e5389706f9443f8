package imaging

import "fmt"

// Pixel adjustments used by the editor-facing callers. The chain
// records edit operations descriptively; these helpers are what a
// caller applies to its canvas before committing.

// AdjustBrightness multiplies every color channel by factor.
func AdjustBrightness(g *Grid, factor float64) *Grid {
	out := g.Clone()
	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i] = clampByte(float64(out.Pix[i]) * factor)
		out.Pix[i+1] = clampByte(float64(out.Pix[i+1]) * factor)
		out.Pix[i+2] = clampByte(float64(out.Pix[i+2]) * factor)
	}
	return out
}

// AdjustContrast scales every channel around the mid-point 128.
func AdjustContrast(g *Grid, factor float64) *Grid {
	out := g.Clone()
	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i] = clampByte((float64(out.Pix[i])-128)*factor + 128)
		out.Pix[i+1] = clampByte((float64(out.Pix[i+1])-128)*factor + 128)
		out.Pix[i+2] = clampByte((float64(out.Pix[i+2])-128)*factor + 128)
	}
	return out
}

// ApplyFilter applies one of the named color filters: none, grayscale,
// sepia, invert.
func ApplyFilter(g *Grid, name string) (*Grid, error) {
	out := g.Clone()
	switch name {
	case "none":
		return out, nil
	case "grayscale":
		for i := 0; i < len(out.Pix); i += 4 {
			y := clampByte(lumaR*float64(out.Pix[i]) + lumaG*float64(out.Pix[i+1]) + lumaB*float64(out.Pix[i+2]))
			out.Pix[i], out.Pix[i+1], out.Pix[i+2] = y, y, y
		}
	case "sepia":
		for i := 0; i < len(out.Pix); i += 4 {
			r, gr, b := float64(out.Pix[i]), float64(out.Pix[i+1]), float64(out.Pix[i+2])
			out.Pix[i] = clampByte(0.393*r + 0.769*gr + 0.189*b)
			out.Pix[i+1] = clampByte(0.349*r + 0.686*gr + 0.168*b)
			out.Pix[i+2] = clampByte(0.272*r + 0.534*gr + 0.131*b)
		}
	case "invert":
		for i := 0; i < len(out.Pix); i += 4 {
			out.Pix[i] = 255 - out.Pix[i]
			out.Pix[i+1] = 255 - out.Pix[i+1]
			out.Pix[i+2] = 255 - out.Pix[i+2]
		}
	default:
		return nil, fmt.Errorf("imaging: unknown filter %q", name)
	}
	return out, nil
}

// Crop returns the sub-grid at (x, y) with the given size.
func Crop(g *Grid, x, y, w, h int) (*Grid, error) {
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > g.Width || y+h > g.Height {
		return nil, fmt.Errorf("%w: crop %d,%d %dx%d of %dx%d", ErrBadDimensions, x, y, w, h, g.Width, g.Height)
	}
	out, err := NewGrid(w, h)
	if err != nil {
		return nil, err
	}
	for row := 0; row < h; row++ {
		src := 4 * ((y+row)*g.Width + x)
		dst := 4 * (row * w)
		copy(out.Pix[dst:dst+4*w], g.Pix[src:src+4*w])
	}
	return out, nil
}
