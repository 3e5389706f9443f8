package imaging

// ITU-R BT.601 luma weights. The same weights distribute a luminance
// delta back onto R, G and B so that achromatic shifts minimize
// visible color drift.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114

	// Distributing a shift as delta*w per channel moves the projected
	// luminance by delta*(wR^2+wG^2+wB^2); dividing by this restores a
	// unit response so an embedded coefficient lands where the decoder
	// expects it.
	lumaNorm = lumaR*lumaR + lumaG*lumaG + lumaB*lumaB
)

// Luminance projects the grid onto a width x height array of luma
// values: Y = 0.299 R + 0.587 G + 0.114 B.
func Luminance(g *Grid) []float64 {
	out := make([]float64, g.Width*g.Height)
	for p := 0; p < len(out); p++ {
		i := 4 * p
		out[p] = lumaR*float64(g.Pix[i]) + lumaG*float64(g.Pix[i+1]) + lumaB*float64(g.Pix[i+2])
	}
	return out
}

// ApplyLuminanceDelta shifts the pixel at linear index p by delta in
// luminance, distributing the shift over R, G, B with the luma weights
// and clamping each channel to [0,255]. Alpha is untouched.
func ApplyLuminanceDelta(g *Grid, p int, delta float64) {
	i := 4 * p
	d := delta / lumaNorm
	g.Pix[i] = clampByte(float64(g.Pix[i]) + d*lumaR)
	g.Pix[i+1] = clampByte(float64(g.Pix[i+1]) + d*lumaG)
	g.Pix[i+2] = clampByte(float64(g.Pix[i+2]) + d*lumaB)
}

// ApplyLuminanceDeltaKeepLSB is ApplyLuminanceDelta with each channel
// rounded to the nearest value that keeps its current low bit. Used
// when the low bits already carry the spatial-layer payload and must
// survive the luminance shift.
func ApplyLuminanceDeltaKeepLSB(g *Grid, p int, delta float64) {
	i := 4 * p
	d := delta / lumaNorm
	g.Pix[i] = clampByteKeepLSB(float64(g.Pix[i])+d*lumaR, g.Pix[i]&1)
	g.Pix[i+1] = clampByteKeepLSB(float64(g.Pix[i+1])+d*lumaG, g.Pix[i+1]&1)
	g.Pix[i+2] = clampByteKeepLSB(float64(g.Pix[i+2])+d*lumaB, g.Pix[i+2]&1)
}

// clampByteKeepLSB rounds v to the nearest byte whose low bit is lsb.
func clampByteKeepLSB(v float64, lsb byte) byte {
	b := clampByte(v)
	if b&1 == lsb {
		return b
	}
	// The two same-parity neighbours straddle b; pick the one closer
	// to the unclamped target, staying in range.
	if v > float64(b) && b < 255 {
		return b + 1
	}
	if b > 0 {
		return b - 1
	}
	return b + 1
}
