package datauri

import "sort"

// Type maps a MIME type to the file extension used for extracted assets.
type Type struct {
	MIME        string `json:"mime_type"`
	Kind        string `json:"kind"`
	Extension   string `json:"extension"`
	Description string `json:"description"`
}

// Binary is the fallback for MIME types without a known extension.
var Binary = Type{MIME: "application/octet-stream", Kind: "bin", Extension: ".bin", Description: "Unrecognized binary payload"}

var supported = []Type{
	{MIME: "image/svg+xml", Kind: "svg", Extension: ".svg", Description: "Embedded SVG vector images"},
	{MIME: "image/png", Kind: "png", Extension: ".png", Description: "PNG images with transparency"},
	{MIME: "image/jpeg", Kind: "jpg", Extension: ".jpg", Description: "JPG photographic images"},
	{MIME: "image/webp", Kind: "webp", Extension: ".webp", Description: "Optimized WebP images"},
	{MIME: "image/gif", Kind: "gif", Extension: ".gif", Description: "Animated GIF images"},
	{MIME: "image/avif", Kind: "avif", Extension: ".avif", Description: "AVIF images"},
	{MIME: "image/bmp", Kind: "bmp", Extension: ".bmp", Description: "Bitmap images"},
	{MIME: "image/x-icon", Kind: "ico", Extension: ".ico", Description: "Icons"},
	{MIME: "image/tiff", Kind: "tiff", Extension: ".tiff", Description: "TIFF images"},
	{MIME: "font/woff", Kind: "woff", Extension: ".woff", Description: "WOFF web fonts"},
	{MIME: "font/woff2", Kind: "woff2", Extension: ".woff2", Description: "WOFF2 web fonts"},
	{MIME: "font/ttf", Kind: "ttf", Extension: ".ttf", Description: "TrueType fonts"},
	{MIME: "font/otf", Kind: "otf", Extension: ".otf", Description: "OpenType fonts"},
	{MIME: "application/pdf", Kind: "pdf", Extension: ".pdf", Description: "PDF documents"},
	{MIME: "text/css", Kind: "css", Extension: ".css", Description: "Stylesheets"},
	{MIME: "application/json", Kind: "json", Extension: ".json", Description: "JSON documents"},
	{MIME: "text/plain", Kind: "txt", Extension: ".txt", Description: "Plain text"},
}

var aliases = map[string]string{
	"image/jpg":                "image/jpeg",
	"image/pjpeg":              "image/jpeg",
	"image/vnd.microsoft.icon": "image/x-icon",
	"application/font-woff":    "font/woff",
	"application/font-woff2":   "font/woff2",
	"application/x-font-ttf":   "font/ttf",
	"application/x-font-otf":   "font/otf",
}

var byMIME = func() map[string]Type {
	m := make(map[string]Type, len(supported)+len(aliases))
	for _, t := range supported {
		m[t.MIME] = t
	}
	for alias, canonical := range aliases {
		m[alias] = m[canonical]
	}
	return m
}()

// ResolveMIME applies the RFC 2397 default for an omitted media type.
func ResolveMIME(declared string) string {
	if declared == "" {
		return "text/plain"
	}
	return declared
}

// Lookup returns the Type for mime, or Binary (carrying mime) when unknown.
func Lookup(mime string) Type {
	if t, ok := byMIME[mime]; ok {
		return t
	}
	t := Binary
	if mime != "" {
		t.MIME = mime
	}
	return t
}

// SupportedTypes returns the known types ordered by kind.
func SupportedTypes() []Type {
	out := append([]Type(nil), supported...)
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}
