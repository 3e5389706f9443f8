package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"

	"github.com/chai2010/webp"

	// Registered so Decode accepts lossy re-encodes of committed images.
	_ "image/gif"
)

// Decode reads PNG, JPEG, GIF or WebP bytes into a grid.
func Decode(data []byte) (*Grid, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		// image.Decode only dispatches on registered magic numbers;
		// WebP carries its own sniffing in the codec package.
		if wimg, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
			img = wimg
		} else {
			return nil, fmt.Errorf("decode image: %w", err)
		}
	}
	return FromImage(img), nil
}

// FromImage converts any image.Image into a grid.
func FromImage(img image.Image) *Grid {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return &Grid{Width: bounds.Dx(), Height: bounds.Dy(), Pix: rgba.Pix}
}

// ToImage exposes the grid as an image.RGBA sharing the same pixels.
func (g *Grid) ToImage() *image.RGBA {
	return &image.RGBA{Pix: g.Pix, Stride: 4 * g.Width, Rect: image.Rect(0, 0, g.Width, g.Height)}
}

// EncodePNG returns the lossless encoding of the grid. This is the
// canonical byte form hashed into history entries, so it must be
// bit-stable across runs.
func EncodePNG(g *Grid) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, g.ToImage()); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeWebP returns a lossy WebP encoding at the given quality in
// [0,1]. Used for snapshot thumbnails.
func EncodeWebP(g *Grid, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	opts := &webp.Options{Lossless: false, Quality: float32(quality * 100)}
	if err := webp.Encode(&buf, g.ToImage(), opts); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJPEG returns a lossy JPEG encoding at the given quality in
// [0,1]. JPEG re-encoding destroys the spatial-domain payload; the
// frequency-domain layer is the recovery path after such a pass.
func EncodeJPEG(g *Grid, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	q := int(quality * 100)
	if q < 1 {
		q = 1
	}
	if q > 100 {
		q = 100
	}
	if err := jpeg.Encode(&buf, g.ToImage(), &jpeg.Options{Quality: q}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
