package qoi

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"image"
	"image/draw"
	"io"
)

// EncodePixels reads meta.NumPixels() raw pixels from r, each
// meta.Channels bytes wide in row-major order, and writes the encoded
// QOI stream to w. Three-channel input has no alpha of its own; each
// pixel inherits the previous pixel's alpha, 255 for the first. The
// destination is fully flushed before a nil error is returned.
func EncodePixels(w io.Writer, r io.Reader, meta Meta) error {
	if err := meta.validate(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	if err := writeHeader(bw, meta); err != nil {
		return err
	}

	br := bufio.NewReader(r)
	st := newState()
	buf := make([]byte, meta.Channels)

	for n := meta.NumPixels(); n > 0; n-- {
		if _, err := io.ReadFull(br, buf); err != nil {
			return eofErr(err)
		}

		px := pixel{r: buf[0], g: buf[1], b: buf[2], a: st.prev.a}
		if meta.Channels == 4 {
			px.a = buf[3]
		}

		if err := encodePixel(bw, st, px); err != nil {
			return err
		}
		st.prev = px
	}

	if st.run > 0 {
		if err := (op{kind: opRun, p0: st.run}).writeTo(bw); err != nil {
			return err
		}
	}
	if _, err := bw.Write(endMarker[:]); err != nil {
		return err
	}
	return bw.Flush()
}

func writeHeader(w *bufio.Writer, meta Meta) error {
	var hdr [headerLen]byte
	copy(hdr[:4], Magic)
	binary.BigEndian.PutUint32(hdr[4:8], meta.Width)
	binary.BigEndian.PutUint32(hdr[8:12], meta.Height)
	hdr[12] = meta.Channels
	hdr[13] = byte(meta.Colorspace)

	_, err := w.Write(hdr[:])
	return err
}

// encodePixel emits the chunk for px, if any. First match wins: an open
// run is extended (and flushed only at the 62 ceiling), a broken run is
// flushed, then cache hit, then delta, then literal. The caller updates
// st.prev afterwards regardless of which branch fired.
func encodePixel(w *bufio.Writer, st *state, px pixel) error {
	if px == st.prev {
		st.run++
		if st.run == maxRun {
			st.run = 0
			return op{kind: opRun, p0: maxRun}.writeTo(w)
		}
		return nil
	}

	if st.run > 0 {
		if err := (op{kind: opRun, p0: st.run}).writeTo(w); err != nil {
			return err
		}
		st.run = 0
	}

	if slot, hit := st.matchOrReplace(px); hit {
		return op{kind: opIndex, p0: slot}.writeTo(w)
	}

	if d, ok := diffPixels(px, st.prev); ok {
		return d.op().writeTo(w)
	}

	if px.a == st.prev.a {
		return op{kind: opRGB, p0: px.r, p1: px.g, p2: px.b}.writeTo(w)
	}
	return op{kind: opRGBA, p0: px.r, p1: px.g, p2: px.b, p3: px.a}.writeTo(w)
}

// Encode writes img to w as a four channel sRGB QOI image. Images that
// are not image.NRGBA are converted first, which may lose information
// for color models wider than 8 bits per channel.
func Encode(w io.Writer, img image.Image) error {
	nrgba := toNRGBA(img)
	meta := Meta{
		Width:      uint32(nrgba.Rect.Dx()),
		Height:     uint32(nrgba.Rect.Dy()),
		Channels:   4,
		Colorspace: ColorspaceSRGB,
	}
	return EncodePixels(w, bytes.NewReader(nrgba.Pix), meta)
}

// toNRGBA returns src as a zero-origin, tightly packed NRGBA image,
// copying only when the layout requires it.
func toNRGBA(src image.Image) *image.NRGBA {
	if m, ok := src.(*image.NRGBA); ok {
		if m.Rect.Min == (image.Point{}) && m.Stride == 4*m.Rect.Dx() {
			return m
		}
	}

	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
