// Package codec converts binary artifacts (keys, nonces, ciphertext) to and
// from the text form used in metadata records.
package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedInput is returned by Decode when the text is not codec output.
var ErrMalformedInput = errors.New("malformed input")

// Encode returns the padded standard base64 form of b.
func Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Decode reverses Encode. Invalid alphabet or padding yields ErrMalformedInput.
// Line breaks are rejected: Encode never emits them.
func Decode(s string) ([]byte, error) {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return nil, fmt.Errorf("%w: line break at offset %d", ErrMalformedInput, i)
	}
	b, err := base64.StdEncoding.Strict().DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if b == nil {
		b = []byte{}
	}
	return b, nil
}
