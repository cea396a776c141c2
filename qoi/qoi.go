// Package qoi implements an encoder and decoder for the QOI
// ("Quite OK Image") format, https://qoiformat.org.
//
// The raw surface, EncodePixels and DecodePixels, streams interleaved
// channel bytes through io.Reader/io.Writer pairs. Encode, Decode and
// DecodeConfig provide the usual image package surface, and the format
// is registered with image.RegisterFormat so image.Decode picks up QOI
// files transparently.
package qoi

import (
	"fmt"
	"image"
)

const (
	// Magic is the four byte signature opening every QOI stream.
	Magic = "qoif"

	headerLen = 14
	cacheSize = 64
	maxRun    = 62

	/*
		Worst case is 5 bytes per pixel, so anything beyond this bound
		risks producing files over 2GB and exhausting memory on small
		hosts. 400 million pixels ought to be enough for anybody.
	*/
	maxPixels = 400_000_000
)

// endMarker terminates every encoded stream, after the final chunk.
var endMarker = [8]byte{0, 0, 0, 0, 0, 0, 0, 1}

const (
	tagIndex byte = 0b00000000
	tagColor byte = 0b01000000
	tagLuma  byte = 0b10000000
	tagRun   byte = 0b11000000
	tagRGB   byte = 0b11111110
	tagRGBA  byte = 0b11111111

	maskTag byte = 0b11000000
	mask6   byte = 0b00111111
	mask4   byte = 0b00001111
	mask2   byte = 0b00000011
)

func init() {
	image.RegisterFormat("qoi", Magic, Decode, DecodeConfig)
}

// Colorspace describes how a decoded image's channel values are to be
// interpreted. The wire values are fixed by the format and inverted
// relative to what enum ordinals would suggest: 0 is sRGB, 1 is linear.
type Colorspace uint8

const (
	ColorspaceSRGB   Colorspace = 0
	ColorspaceLinear Colorspace = 1
)

func parseColorspace(b byte) (Colorspace, error) {
	switch cs := Colorspace(b); cs {
	case ColorspaceSRGB, ColorspaceLinear:
		return cs, nil
	default:
		return 0, fmt.Errorf("%w: %d, expected 0 for sRGB or 1 for linear", ErrInvalidColorspace, b)
	}
}

// Meta describes the dimensions and pixel layout of an image.
type Meta struct {
	Width      uint32
	Height     uint32
	Channels   uint8 // 3 (RGB) or 4 (RGBA), without premultiplied alpha
	Colorspace Colorspace
}

// NumPixels returns width*height. The product is computed in 64 bits so
// dimensions near the uint32 ceiling cannot silently wrap.
func (m Meta) NumPixels() uint64 {
	return uint64(m.Width) * uint64(m.Height)
}

func (m Meta) validate() error {
	if m.Channels != 3 && m.Channels != 4 {
		return fmt.Errorf("%w: %d", ErrInvalidChannels, m.Channels)
	}
	if _, err := parseColorspace(byte(m.Colorspace)); err != nil {
		return err
	}
	if m.NumPixels() > maxPixels {
		return ErrInvalidDimensions
	}
	return nil
}
