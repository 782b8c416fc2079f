package datauri

import (
	"encoding/base64"
	"strings"
)

// Payload is the decoded content of an occurrence.
type Payload struct {
	Bytes     []byte
	Size      int64
	MIME      string
	Kind      string
	Extension string
}

// Decode resolves the MIME type of o and decodes its payload. Base64
// payloads that fail to decode return a *DecodeError; percent-encoded
// payloads always decode.
func Decode(o Occurrence) (Payload, error) {
	if o.Err != nil {
		return Payload{}, o.Err
	}
	mt := ResolveMIME(o.MediaType)
	t := Lookup(mt)
	var b []byte
	if o.Encoding == EncodingBase64 {
		var err error
		b, err = decodeBase64(o.Payload)
		if err != nil {
			return Payload{}, &DecodeError{Offset: o.Start, Encoding: o.Encoding, Err: err}
		}
	} else {
		b = PercentDecode(o.Payload)
	}
	return Payload{
		Bytes:     b,
		Size:      int64(len(b)),
		MIME:      mt,
		Kind:      t.Kind,
		Extension: t.Extension,
	}, nil
}

// decodeBase64 accepts the standard alphabet with or without trailing
// padding. Whitespace (line-wrapped payloads) and percent escapes are
// removed first.
func decodeBase64(s string) ([]byte, error) {
	if strings.IndexByte(s, '%') >= 0 {
		s = string(PercentDecode(s))
	}
	s = stripASCIISpace(s)
	if len(s)%4 == 0 {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

// PercentDecode decodes %XX escapes. Anything that is not a valid escape,
// including a truncated one, is copied through unchanged.
func PercentDecode(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			out = append(out, unhex(s[i+1])<<4|unhex(s[i+2]))
			i += 2
			continue
		}
		out = append(out, c)
	}
	return out
}

func stripASCIISpace(s string) string {
	if strings.IndexAny(s, " \t\r\n\f\v") < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\r', '\n', '\f', '\v':
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
