package datauri

import (
	"regexp"
	"strings"
)

// delimiters that may open a data URI value, longest first so that an
// escaped quote is not mistaken for a bare one.
var delimiters = []string{`&quot;`, `&#39;`, `\"`, `\'`, `"`, `'`}

// urlOpen matches an unquoted CSS url( right before the marker.
var urlOpen = regexp.MustCompile(`(?i)url\(\s*$`)

// An image candidate list (srcset) separates entries with an optional
// width/density descriptor and a comma. listSplit is tried at whitespace and
// commas inside a payload; listGap checks the text between two entries.
var (
	listSplit = regexp.MustCompile(`^(?:\s+\d+(?:\.\d+)?[wxh]\s*(?:,|$)|\s*,\s*(?i:data:))`)
	listGap   = regexp.MustCompile(`,\s*$`)
)

// Scanner walks a document and yields data URI occurrences lazily, left to
// right. Occurrences never overlap: scanning resumes after the end of each
// span, and an unterminated value spans only its marker.
type Scanner struct {
	text  string
	pos   int
	index int

	// Open candidate list: entries end at or before listEnd, and listNext is
	// where scanning resumes after its closing delimiter.
	listEnd   int
	listNext  int
	listDelim string
}

// NewScanner returns a scanner positioned at the start of text.
func NewScanner(text string) *Scanner {
	return &Scanner{text: text}
}

// Scan collects every occurrence in text.
func Scan(text string) []Occurrence {
	s := NewScanner(text)
	var out []Occurrence
	for {
		o, ok := s.Next()
		if !ok {
			return out
		}
		out = append(out, o)
	}
}

// Next returns the next occurrence, or false once the text is exhausted.
// Malformed occurrences are returned with Err set rather than stopping the
// scan.
func (s *Scanner) Next() (Occurrence, bool) {
	for s.pos < len(s.text) {
		i := indexMarker(s.text[s.pos:])
		if i < 0 {
			s.pos = len(s.text)
			return Occurrence{}, false
		}
		start := s.pos + i
		var (
			o      Occurrence
			resume int
		)
		if s.inList(start) {
			o, resume = s.parse(start, s.listDelim, s.listEnd, s.listNext)
		} else {
			s.listEnd = 0
			delim := openingDelimiter(s.text[:start])
			if delim == "" {
				// Not a delimited value (prose); ignore.
				s.pos = start + len(Marker)
				continue
			}
			end, next := closingDelimiter(s.text, start+len(Marker), delim)
			if end < 0 {
				o = Occurrence{
					Start:     start,
					End:       start + len(Marker),
					Delimiter: closerOf(delim),
					Err:       &MalformedError{Offset: start, Reason: "unterminated value, missing closing " + closerOf(delim)},
				}
				resume = o.End
			} else {
				o, resume = s.parse(start, closerOf(delim), end, next)
			}
		}
		o.Index = s.index
		s.index++
		s.pos = resume
		return o, true
	}
	return Occurrence{}, false
}

// inList reports whether a marker at start is a later entry of the candidate
// list the previous occurrence came from.
func (s *Scanner) inList(start int) bool {
	return s.listEnd > 0 && start < s.listEnd && listGap.MatchString(s.text[s.pos:start])
}

// parse reads the value text[start:end]. next is the offset just past the
// closing delimiter. When the value is a candidate list the occurrence stops
// at the first entry and the list is remembered for the following calls.
func (s *Scanner) parse(start int, delim string, end, next int) (Occurrence, int) {
	o := Occurrence{Start: start, End: end, Delimiter: delim}
	resume := next
	s.listEnd = 0

	value := s.text[start:end]
	comma := strings.IndexByte(value, ',')
	if comma < 0 {
		o.Err = &MalformedError{Offset: start, Reason: "missing comma before payload"}
		return o, resume
	}
	if p := listEntryEnd(s.text, start+comma+1, end); p >= 0 {
		s.listEnd, s.listNext, s.listDelim = end, next, delim
		o.End = p
		resume = p
		value = s.text[start:p]
	}
	header := value[len(Marker):comma]
	if bad := strings.IndexFunc(header, func(r rune) bool { return r > 0x7f || !isHeaderByte(byte(r)) }); bad >= 0 {
		o.Err = &MalformedError{Offset: start, Reason: "invalid character in header"}
		return o, resume
	}
	mediaType, params, base64 := parseHeader(header)
	if mediaType != "" && !validMediaType(mediaType) {
		o.Err = &MalformedError{Offset: start, Reason: "invalid media type " + mediaType}
		return o, resume
	}
	o.MediaType = mediaType
	o.Params = params
	o.Encoding = EncodingPercent
	if base64 {
		o.Encoding = EncodingBase64
	}
	o.PayloadStart = start + comma + 1
	o.Payload = value[comma+1:]
	return o, resume
}

// listEntryEnd returns the offset in [from, end) where a candidate list entry
// ends, or -1 when the payload runs to end.
func listEntryEnd(text string, from, end int) int {
	for p := from; p < end; p++ {
		switch text[p] {
		case ' ', '\t', '\n', '\r', '\f', ',':
			if listSplit.MatchString(text[p:end]) {
				return p
			}
		}
	}
	return -1
}

func parseHeader(header string) (mediaType string, params []string, base64 bool) {
	parts := strings.Split(header, ";")
	mediaType = strings.ToLower(strings.TrimSpace(parts[0]))
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		switch {
		case p == "":
		case equalFoldASCII(p, "base64"):
			base64 = true
		default:
			params = append(params, p)
		}
	}
	return mediaType, params, base64
}

func validMediaType(mt string) bool {
	slash := strings.IndexByte(mt, '/')
	return slash > 0 && slash < len(mt)-1 && strings.Count(mt, "/") == 1
}

// indexMarker finds "data:" case-insensitively without changing byte offsets.
func indexMarker(s string) int {
	for i := 0; i+len(Marker) <= len(s); i++ {
		if s[i]|0x20 == 'd' && equalFoldASCII(s[i:i+len(Marker)], Marker) {
			return i
		}
	}
	return -1
}

// openingDelimiter returns the quote, or "url(" for an unquoted CSS url,
// that opens the value ending in before.
func openingDelimiter(before string) string {
	for _, d := range delimiters {
		if strings.HasSuffix(before, d) {
			return d
		}
	}
	if urlOpen.MatchString(before) {
		return "url("
	}
	return ""
}

// closerOf maps an opening delimiter to the text that closes it.
func closerOf(delim string) string {
	if delim == "url(" {
		return ")"
	}
	return delim
}

// closingDelimiter returns the offset where a value opened with delim ends
// and the offset just past its closing delimiter, searching from `from`. A
// bare quote preceded by a backslash does not close the value. Both are -1
// when the value is unterminated.
func closingDelimiter(text string, from int, delim string) (end, next int) {
	switch {
	case delim == "url(":
		return closingParen(text, from)
	case len(delim) > 1:
		i := strings.Index(text[from:], delim)
		if i < 0 {
			return -1, -1
		}
		return from + i, from + i + len(delim)
	}
	q := delim[0]
	for i := from; i < len(text); i++ {
		if text[i] == q && text[i-1] != '\\' {
			return i, i + 1
		}
	}
	return -1, -1
}

// closingParen ends an unquoted url( value. Trailing whitespace before the
// parenthesis is not part of the URI; quotes, angle brackets, and inner
// whitespace cannot appear unescaped, so they leave it unterminated.
func closingParen(text string, from int) (end, next int) {
	for i := from; i < len(text); i++ {
		switch text[i] {
		case ')':
			return i, i + 1
		case '"', '\'', '<', '>':
			return -1, -1
		case ' ', '\t', '\n', '\r', '\f':
			j := i
			for j < len(text) && strings.IndexByte(" \t\n\r\f", text[j]) >= 0 {
				j++
			}
			if j < len(text) && text[j] == ')' {
				return i, j + 1
			}
			return -1, -1
		}
	}
	return -1, -1
}

func isHeaderByte(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("!#$%&*+-.^_`|~/;= ", c) >= 0
}

func cutParam(p string) (key, value string, ok bool) {
	k, v, found := strings.Cut(p, "=")
	if !found {
		return "", "", false
	}
	return strings.TrimSpace(k), strings.Trim(strings.TrimSpace(v), `"`), true
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		x, y := a[i], b[i]
		if 'A' <= x && x <= 'Z' {
			x += 'a' - 'A'
		}
		if 'A' <= y && y <= 'Z' {
			y += 'a' - 'A'
		}
		if x != y {
			return false
		}
	}
	return true
}
