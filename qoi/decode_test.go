package qoi

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func header(magic string, width, height uint32, channels, colorspace byte) []byte {
	hdr := make([]byte, 0, headerLen)
	hdr = append(hdr, magic...)
	hdr = binary.BigEndian.AppendUint32(hdr, width)
	hdr = binary.BigEndian.AppendUint32(hdr, height)
	return append(hdr, channels, colorspace)
}

func TestReadHeader(t *testing.T) {
	t.Parallel()

	t.Run("valid header", func(t *testing.T) {
		meta, err := readHeader(bufio.NewReader(bytes.NewReader(header(Magic, 3, 2, 4, 0))))
		if err != nil {
			t.Fatalf("readHeader failed: %v", err)
		}
		want := Meta{Width: 3, Height: 2, Channels: 4, Colorspace: ColorspaceSRGB}
		if meta != want {
			t.Fatalf("got %+v, want %+v", meta, want)
		}
	})

	cases := []struct {
		name string
		src  []byte
		want error
	}{
		{"bad magic", header("qqqq", 1, 1, 4, 0), ErrInvalidHeader},
		{"truncated header", header(Magic, 1, 1, 4, 0)[:10], ErrUnexpectedEOF},
		{"empty source", nil, ErrUnexpectedEOF},
		{"colorspace byte 2", header(Magic, 1, 1, 4, 2), ErrInvalidColorspace},
		{"five channels", header(Magic, 1, 1, 5, 0), ErrInvalidChannels},
		{"oversized dimensions", header(Magic, 1<<31, 1<<31, 4, 0), ErrInvalidDimensions},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := readHeader(bufio.NewReader(bytes.NewReader(tc.src)))
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func decodeOne(t *testing.T, st *state, src []byte) pixel {
	t.Helper()

	px, err := decodePixel(bufio.NewReader(bytes.NewReader(src)), st)
	if err != nil {
		t.Fatalf("decodePixel failed: %v", err)
	}
	return px
}

func TestDecodePixel(t *testing.T) {
	t.Parallel()

	t.Run("rgb keeps the previous alpha", func(t *testing.T) {
		st := newState()
		got := decodeOne(t, st, []byte{0xfe, 101, 102, 103})
		if want := (pixel{101, 102, 103, 255}); got != want {
			t.Fatalf("got %v, want %v", got, want)
		}
	})

	t.Run("rgba is literal", func(t *testing.T) {
		st := newState()
		got := decodeOne(t, st, []byte{0xff, 101, 102, 103, 104})
		if want := (pixel{101, 102, 103, 104}); got != want {
			t.Fatalf("got %v, want %v", got, want)
		}
	})

	t.Run("run repeats the previous pixel", func(t *testing.T) {
		st := newState()
		px := pixel{101, 102, 103, 104}
		st.prev = px

		if got := decodeOne(t, st, []byte{0xc0}); got != px {
			t.Fatalf("got %v, want %v", got, px)
		}
		if st.run != 0 {
			t.Fatalf("run = %d, want 0", st.run)
		}
	})

	t.Run("open run skips the byte stream", func(t *testing.T) {
		st := newState()
		px := pixel{101, 102, 103, 104}
		st.prev = px
		st.run = 2

		// No source bytes at all; the run must satisfy the read.
		if got := decodeOne(t, st, nil); got != px {
			t.Fatalf("got %v, want %v", got, px)
		}
		if st.run != 1 {
			t.Fatalf("run = %d, want 1", st.run)
		}
	})

	t.Run("index reads the cache slot as-is", func(t *testing.T) {
		st := newState()
		px := pixel{101, 102, 103, 104}
		st.insert(px)

		if got := decodeOne(t, st, []byte{54}); got != px {
			t.Fatalf("got %v, want %v", got, px)
		}
	})

	t.Run("color applies against prev", func(t *testing.T) {
		st := newState()
		st.prev = pixel{100, 100, 100, 255}

		got := decodeOne(t, st, []byte{0x40 | 3<<4 | 3<<2 | 3})
		if want := (pixel{101, 101, 101, 255}); got != want {
			t.Fatalf("got %v, want %v", got, want)
		}
	})

	t.Run("luma applies against prev", func(t *testing.T) {
		st := newState()
		st.prev = pixel{100, 100, 100, 255}

		got := decodeOne(t, st, []byte{0x80 | 40, 0x00})
		if want := (pixel{100, 108, 100, 255}); got != want {
			t.Fatalf("got %v, want %v", got, want)
		}
	})
}

func TestDecodePixelsOutputStride(t *testing.T) {
	t.Parallel()

	t.Run("sRGB writes four bytes per pixel", func(t *testing.T) {
		var enc bytes.Buffer
		meta := Meta{Width: 1, Height: 1, Channels: 3, Colorspace: ColorspaceSRGB}
		if err := EncodePixels(&enc, bytes.NewReader([]byte{10, 20, 30}), meta); err != nil {
			t.Fatalf("EncodePixels failed: %v", err)
		}

		var dec bytes.Buffer
		if _, err := DecodePixels(&dec, &enc); err != nil {
			t.Fatalf("DecodePixels failed: %v", err)
		}
		want := []byte{10, 20, 30, 255}
		if !bytes.Equal(dec.Bytes(), want) {
			t.Fatalf("got % #x, want % #x", dec.Bytes(), want)
		}
	})

	t.Run("linear writes three bytes per pixel", func(t *testing.T) {
		var enc bytes.Buffer
		meta := Meta{Width: 1, Height: 1, Channels: 3, Colorspace: ColorspaceLinear}
		if err := EncodePixels(&enc, bytes.NewReader([]byte{10, 20, 30}), meta); err != nil {
			t.Fatalf("EncodePixels failed: %v", err)
		}

		var dec bytes.Buffer
		if _, err := DecodePixels(&dec, &enc); err != nil {
			t.Fatalf("DecodePixels failed: %v", err)
		}
		want := []byte{10, 20, 30}
		if !bytes.Equal(dec.Bytes(), want) {
			t.Fatalf("got % #x, want % #x", dec.Bytes(), want)
		}
	})
}

func TestDecodePixelsTruncatedBody(t *testing.T) {
	t.Parallel()

	src := append(header(Magic, 2, 2, 4, 0), 0xfe, 101)
	_, err := DecodePixels(&bytes.Buffer{}, bytes.NewReader(src))
	if !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("got %v, want ErrUnexpectedEOF", err)
	}
}
