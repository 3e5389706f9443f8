package imaging

import "fmt"

// Rotate returns a pixel-exact copy of the grid rotated
// counter-clockwise by a multiple of 90 degrees. Nearest-neighbour
// mapping only: every destination pixel is a source pixel, so
// least-significant bits survive untouched. Angles that are not
// multiples of 90 are rejected.
func Rotate(g *Grid, degrees int) (*Grid, error) {
	deg := ((degrees % 360) + 360) % 360
	switch deg {
	case 0:
		return g.Clone(), nil
	case 90, 270:
		out, err := NewGrid(g.Height, g.Width)
		if err != nil {
			return nil, err
		}
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				r, gr, b, a := g.At(x, y)
				if deg == 90 {
					// CCW: (x, y) -> (y, W-1-x)
					out.Set(y, g.Width-1-x, r, gr, b, a)
				} else {
					// CW equivalent of 270 CCW: (x, y) -> (H-1-y, x)
					out.Set(g.Height-1-y, x, r, gr, b, a)
				}
			}
		}
		return out, nil
	case 180:
		out, err := NewGrid(g.Width, g.Height)
		if err != nil {
			return nil, err
		}
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				r, gr, b, a := g.At(x, y)
				out.Set(g.Width-1-x, g.Height-1-y, r, gr, b, a)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("imaging: rotation %d not a multiple of 90", degrees)
	}
}
