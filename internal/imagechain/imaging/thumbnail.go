package imaging

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// Thumbnail downscales the grid to the given width, preserving aspect
// ratio. Images narrower than width are returned at original size.
func Thumbnail(g *Grid, width int) *Grid {
	if g.Width <= width {
		return g.Clone()
	}
	height := g.Height * width / g.Width
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), g.ToImage(), g.ToImage().Bounds(), xdraw.Src, nil)
	return &Grid{Width: width, Height: height, Pix: dst.Pix}
}
