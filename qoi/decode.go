package qoi

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"io"
)

// DecodePixels reads one QOI stream from r and writes the raw
// interleaved channel bytes to w in row-major order: three bytes per
// pixel for linear images, four for sRGB, as the colorspace byte
// dictates. The destination is fully flushed before the decoded Meta
// is returned.
func DecodePixels(w io.Writer, r io.Reader) (Meta, error) {
	br := bufio.NewReader(r)
	meta, err := readHeader(br)
	if err != nil {
		return Meta{}, err
	}

	stride := 4
	if meta.Colorspace == ColorspaceLinear {
		stride = 3
	}

	bw := bufio.NewWriter(w)
	st := newState()
	var buf [4]byte

	for n := meta.NumPixels(); n > 0; n-- {
		px, err := decodePixel(br, st)
		if err != nil {
			return Meta{}, err
		}

		if px != st.prev {
			st.insert(px)
			st.prev = px
		}

		buf[0], buf[1], buf[2], buf[3] = px.r, px.g, px.b, px.a
		if _, err := bw.Write(buf[:stride]); err != nil {
			return Meta{}, err
		}
	}

	if err := bw.Flush(); err != nil {
		return Meta{}, err
	}
	return meta, nil
}

func readHeader(r *bufio.Reader) (Meta, error) {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Meta{}, eofErr(err)
	}

	if string(hdr[:4]) != Magic {
		return Meta{}, ErrInvalidHeader
	}

	colorspace, err := parseColorspace(hdr[13])
	if err != nil {
		return Meta{}, err
	}

	meta := Meta{
		Width:      binary.BigEndian.Uint32(hdr[4:8]),
		Height:     binary.BigEndian.Uint32(hdr[8:12]),
		Channels:   hdr[12],
		Colorspace: colorspace,
	}
	if meta.Channels != 3 && meta.Channels != 4 {
		return Meta{}, fmt.Errorf("%w: %d", ErrInvalidChannels, meta.Channels)
	}
	if meta.NumPixels() > maxPixels {
		return Meta{}, ErrInvalidDimensions
	}
	return meta, nil
}

// decodePixel resolves the next pixel. An open run repeats the previous
// pixel without touching the byte stream; otherwise one chunk is read
// and resolved against the current state. Cache and prev updates are
// the caller's job, since a run continuation must leave both untouched.
func decodePixel(r *bufio.Reader, st *state) (pixel, error) {
	if st.run > 0 {
		st.run--
		return st.prev, nil
	}

	o, err := readOp(r)
	if err != nil {
		return pixel{}, err
	}

	switch o.kind {
	case opIndex:
		return st.cache[o.p0], nil
	case opColor:
		return pixelDiff{kind: diffColor, d0: o.p0, d1: o.p1, d2: o.p2}.apply(st.prev), nil
	case opLuma:
		return pixelDiff{kind: diffLuma, d0: o.p0, d1: o.p1, d2: o.p2}.apply(st.prev), nil
	case opRGB:
		return pixel{r: o.p0, g: o.p1, b: o.p2, a: st.prev.a}, nil
	case opRGBA:
		return pixel{r: o.p0, g: o.p1, b: o.p2, a: o.p3}, nil
	default: // opRun
		st.run = o.p0 - 1
		return st.prev, nil
	}
}

// Decode reads one QOI image from r. The result is always an
// *image.NRGBA; three channel images decode with every alpha at 255.
func Decode(r io.Reader) (image.Image, error) {
	br := bufio.NewReader(r)
	meta, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, int(meta.Width), int(meta.Height)))
	st := newState()

	for i := uint64(0); i < meta.NumPixels(); i++ {
		px, err := decodePixel(br, st)
		if err != nil {
			return nil, err
		}

		if px != st.prev {
			st.insert(px)
			st.prev = px
		}

		img.Pix[i*4+0] = px.r
		img.Pix[i*4+1] = px.g
		img.Pix[i*4+2] = px.b
		img.Pix[i*4+3] = px.a
	}

	return img, nil
}

// DecodeConfig returns the color model and dimensions of a QOI image
// without decoding the pixel data.
func DecodeConfig(r io.Reader) (image.Config, error) {
	meta, err := readHeader(bufio.NewReader(r))
	if err != nil {
		return image.Config{}, err
	}

	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      int(meta.Width),
		Height:     int(meta.Height),
	}, nil
}
