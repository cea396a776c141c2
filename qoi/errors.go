package qoi

import (
	"errors"
	"io"
)

// Every error is fatal to the call that produced it: there is no resync
// point in a QOI stream, so callers should discard any output already
// produced. Transport errors from the underlying reader or writer are
// returned as-is.
var (
	// ErrInvalidHeader reports missing or mismatched magic bytes.
	ErrInvalidHeader = errors.New("invalid or malformed QOI header")
	// ErrInvalidColorspace reports a colorspace byte outside {0, 1}.
	ErrInvalidColorspace = errors.New("invalid colorspace")
	// ErrInvalidChannels reports a channel count outside {3, 4}.
	ErrInvalidChannels = errors.New("invalid channel count")
	// ErrInvalidDimensions reports a width/height product too large to
	// decode safely.
	ErrInvalidDimensions = errors.New("invalid image width or height")
	// ErrInvalidIndex reports a cache index outside 0..63.
	ErrInvalidIndex = errors.New("invalid cache index")
	// ErrUnexpectedEOF reports an image source that ended before a
	// required chunk or field could be fully read.
	ErrUnexpectedEOF = errors.New("unexpected end of image data")
	// ErrUnknownTag reports a chunk byte matching no defined tag.
	ErrUnknownTag = errors.New("unknown chunk tag")
)

// eofErr folds the two stdlib end-of-stream values into ErrUnexpectedEOF.
// Inside a QOI stream any EOF is premature; the decoder knows exactly how
// many bytes it still needs.
func eofErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrUnexpectedEOF
	}
	return err
}
