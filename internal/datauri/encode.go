package datauri

import "encoding/base64"

const upperhex = "0123456789ABCDEF"

// Encode renders p with the given transfer encoding. It is the inverse of
// Decode for canonical payloads: padded standard base64, or percent-encoding
// of every byte outside the unreserved set.
func Encode(p []byte, enc Encoding) string {
	if enc == EncodingBase64 {
		return base64.StdEncoding.EncodeToString(p)
	}
	return PercentEncode(p)
}

// PercentEncode escapes every byte except A-Z a-z 0-9 - . _ ~
func PercentEncode(p []byte) string {
	out := make([]byte, 0, len(p)*3)
	for _, c := range p {
		if isUnreserved(c) {
			out = append(out, c)
			continue
		}
		out = append(out, '%', upperhex[c>>4], upperhex[c&0x0f])
	}
	return string(out)
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return c == '-' || c == '.' || c == '_' || c == '~'
}
