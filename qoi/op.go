package qoi

import (
	"bufio"
	"fmt"
)

// opKind enumerates the six chunk kinds of a QOI stream body.
type opKind uint8

const (
	// opIndex references a pixel cache slot.
	//
	//	| 7 6   5  4  3  2  1  0 |
	//	|------------------------|
	//	| 0 0 |      index       |
	opIndex opKind = iota

	// opColor carries per-channel deltas from the previous pixel,
	// each biased by +2. (QOI_OP_DIFF in the format reference.)
	//
	//	| 7 6   5  4  3  2  1  0 |
	//	|------------------------|
	//	| 0 1 |  dr |  dg |  db  |
	opColor

	// opLuma carries the green delta biased +32 and the red/blue
	// deltas relative to it, biased +8.
	//
	//	| 7 6   5  4  3  2  1  0 | 7  6  5  4   3  2  1  0 |
	//	|------------------------|-------------------------|
	//	| 1 0 |       dg         |   dr - dg  |   db - dg  |
	opLuma

	// opRGB carries literal red, green and blue bytes after the
	// 0xfe tag byte.
	opRGB

	// opRGBA carries all four literal channel bytes after the 0xff
	// tag byte.
	opRGBA

	// opRun repeats the previous pixel. p0 holds the logical count
	// 1..62; the wire stores count-1 in the low six bits.
	//
	//	| 7 6   5  4  3  2  1  0 |
	//	|------------------------|
	//	| 1 1 |      run - 1     |
	opRun
)

// op is one decoded chunk. The payload fields hold the raw wire values
// (biased, where the kind biases); their meaning depends on kind.
type op struct {
	kind           opKind
	p0, p1, p2, p3 uint8
}

// writeTo appends the chunk's exact byte representation to w.
func (o op) writeTo(w *bufio.Writer) error {
	switch o.kind {
	case opIndex:
		return w.WriteByte(tagIndex | o.p0)
	case opColor:
		return w.WriteByte(tagColor | o.p0<<4 | o.p1<<2 | o.p2)
	case opLuma:
		if err := w.WriteByte(tagLuma | o.p0); err != nil {
			return err
		}
		return w.WriteByte(o.p1<<4 | o.p2)
	case opRGB:
		_, err := w.Write([]byte{tagRGB, o.p0, o.p1, o.p2})
		return err
	case opRGBA:
		_, err := w.Write([]byte{tagRGBA, o.p0, o.p1, o.p2, o.p3})
		return err
	default: // opRun
		return w.WriteByte(tagRun | (o.p0 - 1))
	}
}

// readOp decodes the next chunk from r. The RGB and RGBA literal tags
// occupy the top of the run tag space, so they must be matched before
// the generic two-bit tag mask.
func readOp(r *bufio.Reader) (op, error) {
	b, err := r.ReadByte()
	if err != nil {
		return op{}, eofErr(err)
	}

	switch b {
	case tagRGB:
		var px [3]byte
		if err := readFull(r, px[:]); err != nil {
			return op{}, err
		}
		return op{kind: opRGB, p0: px[0], p1: px[1], p2: px[2]}, nil
	case tagRGBA:
		var px [4]byte
		if err := readFull(r, px[:]); err != nil {
			return op{}, err
		}
		return op{kind: opRGBA, p0: px[0], p1: px[1], p2: px[2], p3: px[3]}, nil
	}

	switch b & maskTag {
	case tagIndex:
		index := b & mask6
		if index >= cacheSize {
			return op{}, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
		}
		return op{kind: opIndex, p0: index}, nil
	case tagColor:
		return op{kind: opColor, p0: b >> 4 & mask2, p1: b >> 2 & mask2, p2: b & mask2}, nil
	case tagLuma:
		b2, err := r.ReadByte()
		if err != nil {
			return op{}, eofErr(err)
		}
		return op{kind: opLuma, p0: b & mask6, p1: b2 >> 4 & mask4, p2: b2 & mask4}, nil
	case tagRun:
		return op{kind: opRun, p0: b&mask6 + 1}, nil
	}

	return op{}, fmt.Errorf("%w: %#08b", ErrUnknownTag, b)
}

func readFull(r *bufio.Reader, buf []byte) error {
	for i := range buf {
		b, err := r.ReadByte()
		if err != nil {
			return eofErr(err)
		}
		buf[i] = b
	}
	return nil
}
