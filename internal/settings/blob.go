package settings

import (
	"net/url"
)

// EncodeBlob percent-encodes the raw settings text so it can be embedded into
// a single compiler-visible string: the result contains no raw newlines and no
// unescaped quote characters, and the encoding is reversible.
func EncodeBlob(raw string) string {
	return url.QueryEscape(raw)
}

// DecodeBlob reverses EncodeBlob.
func DecodeBlob(blob string) (string, error) {
	return url.QueryUnescape(blob)
}

// EncodedBlob returns the percent-encoded form of the original file text.
func (s *Settings) EncodedBlob() string {
	return EncodeBlob(s.raw)
}
