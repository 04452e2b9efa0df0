package conversation

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decoder turns a stream of byte chunks into text. A code point split across
// two chunks is held back until the rest of it arrives; invalid sequences
// decode to U+FFFD.
type Decoder struct {
	t       transform.Transformer
	pending []byte
}

func NewDecoder() *Decoder {
	return &Decoder{t: unicode.UTF8.NewDecoder()}
}

// Decode returns the text for every complete code point seen so far.
func (d *Decoder) Decode(chunk []byte) string {
	return d.run(chunk, false)
}

// Flush decodes whatever is still buffered, as if the stream ended, and
// resets the decoder.
func (d *Decoder) Flush() string {
	out := d.run(nil, true)
	d.t.Reset()
	return out
}

func (d *Decoder) run(chunk []byte, atEOF bool) string {
	src := append(d.pending, chunk...)
	d.pending = nil
	if len(src) == 0 {
		return ""
	}

	// Worst case every byte is invalid and becomes a 3-byte U+FFFD.
	dst := make([]byte, len(src)*3+utf8.UTFMax)
	nDst, nSrc, err := d.t.Transform(dst, src, atEOF)
	if errors.Is(err, transform.ErrShortSrc) {
		d.pending = append([]byte(nil), src[nSrc:]...)
	}

	return string(dst[:nDst])
}
