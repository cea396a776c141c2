package qoi

// pixel is one fully resolved color value. All channel arithmetic is
// modular: the format depends on 8-bit wraparound, never saturation.
type pixel struct {
	r, g, b, a uint8
}

// opaqueBlack is the implicit "previous pixel" at the start of every
// stream, on both the encode and decode side.
var opaqueBlack = pixel{0, 0, 0, 255}

// hash returns the pixel's cache slot. Folding mod 256 first is harmless
// since 64 divides 256.
func (p pixel) hash() uint8 {
	return (p.r*3 + p.g*5 + p.b*7 + p.a*11) % cacheSize
}

type diffKind uint8

const (
	diffColor diffKind = iota
	diffLuma
)

// pixelDiff is a bounded delta between two pixels, holding the biased
// wire-ready field values. For diffColor d0..d2 are dr+2, dg+2, db+2;
// for diffLuma they are dg+32, dr-dg+8, db-dg+8.
type pixelDiff struct {
	kind       diffKind
	d0, d1, d2 uint8
}

// diffPixels returns the delta encoding of p against prev, preferring
// the one-byte color form over the two-byte luma form. It reports false
// when neither fits; alpha changes can never be delta encoded.
func diffPixels(p, prev pixel) (pixelDiff, bool) {
	if p.a != prev.a {
		return pixelDiff{}, false
	}

	dr := p.r - prev.r
	dg := p.g - prev.g
	db := p.b - prev.b

	if cr, cg, cb := dr+2, dg+2, db+2; cr <= 3 && cg <= 3 && cb <= 3 {
		return pixelDiff{kind: diffColor, d0: cr, d1: cg, d2: cb}, true
	}

	lg := dg + 32
	if lg > 63 {
		return pixelDiff{}, false
	}
	if lrg, lbg := dr+8-dg, db+8-dg; lrg <= 15 && lbg <= 15 {
		return pixelDiff{kind: diffLuma, d0: lg, d1: lrg, d2: lbg}, true
	}

	return pixelDiff{}, false
}

// apply reconstructs the pixel that diffed into d against prev. Exact
// inverse of diffPixels; alpha is always carried over from prev.
func (d pixelDiff) apply(prev pixel) pixel {
	switch d.kind {
	case diffColor:
		return pixel{
			r: prev.r + d.d0 - 2,
			g: prev.g + d.d1 - 2,
			b: prev.b + d.d2 - 2,
			a: prev.a,
		}
	default: // diffLuma
		dg := d.d0 - 32
		return pixel{
			r: prev.r + dg + d.d1 - 8,
			g: prev.g + dg,
			b: prev.b + dg + d.d2 - 8,
			a: prev.a,
		}
	}
}

// op converts the diff into its stream chunk.
func (d pixelDiff) op() op {
	kind := opColor
	if d.kind == diffLuma {
		kind = opLuma
	}
	return op{kind: kind, p0: d.d0, p1: d.d1, p2: d.d2}
}
