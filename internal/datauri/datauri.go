// Package datauri locates and decodes RFC 2397 data URIs embedded in
// template text.
package datauri

import (
	"errors"
	"fmt"
)

// Encoding is the declared transfer encoding of a data URI payload.
type Encoding string

const (
	EncodingBase64  Encoding = "base64"
	EncodingPercent Encoding = "percent"
)

// Marker is the scheme prefix that starts every data URI.
const Marker = "data:"

var (
	// ErrMalformed reports a data URI whose bounds or header could not be parsed.
	ErrMalformed = errors.New("malformed data uri")
	// ErrDecode reports a payload that could not be decoded.
	ErrDecode = errors.New("decode data uri payload")
)

// Occurrence is one data URI found in a document. Start and End delimit the
// URI itself (from "data:" up to, not including, the closing delimiter or a
// candidate list descriptor), so replacing text[Start:End] leaves the
// surrounding quotes, parentheses, and descriptors intact. An unterminated
// value spans only its "data:" marker.
type Occurrence struct {
	Index int
	Start int
	End   int
	// Delimiter is the text that closes the value: a quote form, or ")" for
	// an unquoted CSS url().
	Delimiter string

	// MediaType is the declared type, lower-cased; empty when omitted.
	MediaType string
	Params    []string
	Encoding  Encoding

	PayloadStart int
	Payload      string

	// Err is non-nil for malformed occurrences; such occurrences carry a
	// Start offset but no usable payload.
	Err error
}

// Malformed reports whether the occurrence could not be delimited or parsed.
func (o Occurrence) Malformed() bool { return o.Err != nil }

// Len is the byte length of the URI text.
func (o Occurrence) Len() int {
	if o.End < o.Start {
		return 0
	}
	return o.End - o.Start
}

// Param returns the value of a key=value header parameter.
func (o Occurrence) Param(key string) (string, bool) {
	for _, p := range o.Params {
		k, v, ok := cutParam(p)
		if ok && equalFoldASCII(k, key) {
			return v, true
		}
	}
	return "", false
}

// MalformedError describes why an occurrence was rejected by the scanner.
type MalformedError struct {
	Offset int
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed data uri at offset %d: %s", e.Offset, e.Reason)
}

func (e *MalformedError) Is(target error) bool { return target == ErrMalformed }

// DecodeError wraps a payload decoding failure.
type DecodeError struct {
	Offset   int
	Encoding Encoding
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s payload at offset %d: %v", e.Encoding, e.Offset, e.Err)
}

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

func (e *DecodeError) Unwrap() error { return e.Err }
