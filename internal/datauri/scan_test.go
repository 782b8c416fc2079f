package datauri

import (
	"errors"
	"strings"
	"testing"
)

const pngB64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func TestScan_FindsQuotedValuesInOrder(t *testing.T) {
	doc := `<p>x</p><img src="data:image/svg+xml,%3Csvg%3E%3C/svg%3E" alt="a">` +
		`<img src='data:image/png;base64,` + pngB64 + `'>`
	got := Scan(doc)
	if len(got) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(got))
	}
	if got[0].Index != 0 || got[1].Index != 1 {
		t.Fatalf("unexpected indexes: %d %d", got[0].Index, got[1].Index)
	}
	if got[0].MediaType != "image/svg+xml" || got[0].Encoding != EncodingPercent {
		t.Fatalf("first occurrence: %+v", got[0])
	}
	if got[1].MediaType != "image/png" || got[1].Encoding != EncodingBase64 {
		t.Fatalf("second occurrence: %+v", got[1])
	}
	if got[1].Payload != pngB64 {
		t.Fatalf("payload mismatch: %q", got[1].Payload)
	}
	for _, o := range got {
		if !strings.HasPrefix(doc[o.Start:o.End], "data:") {
			t.Fatalf("span does not start at marker: %q", doc[o.Start:o.End])
		}
		if doc[o.End:o.End+1] != o.Delimiter {
			t.Fatalf("span does not end at closing delimiter %q", o.Delimiter)
		}
	}
	if got[0].End >= got[1].Start {
		t.Fatalf("spans overlap or are out of order")
	}
}

func TestScan_EncodedAngleBracketsDoNotEndSpan(t *testing.T) {
	payload := `%3Csvg width="141"%3E%3Cg clip-path="url(%23clip0)"%3E%3C/g%3E%3C/svg%3E`
	doc := `<img src='data:image/svg+xml,` + payload + `' />`
	got := Scan(doc)
	if len(got) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(got))
	}
	if got[0].Payload != payload {
		t.Fatalf("payload truncated: %q", got[0].Payload)
	}
}

func TestScan_RawMarkupInsidePayload(t *testing.T) {
	doc := `<img src='data:image/svg+xml;utf8,<svg xmlns="http://www.w3.org/2000/svg"></svg>'>`
	got := Scan(doc)
	if len(got) != 1 || got[0].Malformed() {
		t.Fatalf("expected one well-formed occurrence, got %+v", got)
	}
	if got[0].Payload != `<svg xmlns="http://www.w3.org/2000/svg"></svg>` {
		t.Fatalf("unexpected payload %q", got[0].Payload)
	}
	if v, ok := got[0].Param("utf8"); ok || v != "" {
		t.Fatalf("bare parameter should not parse as key=value")
	}
}

func TestScan_DelimiterVariants(t *testing.T) {
	cases := []struct {
		name  string
		doc   string
		delim string
	}{
		{"double", `src="data:text/plain,hi"`, `"`},
		{"single", `src='data:text/plain,hi'`, `'`},
		{"entity", `style="background:url(&quot;data:text/plain,hi&quot;)"`, `&quot;`},
		{"json escaped", `<!-- wp:image {\"url\":\"data:text/plain,hi\"} -->`, `\"`},
		{"css url", `style="background:url(data:text/plain,hi)"`, `)`},
		{"css url padded", `style="background:URL( data:text/plain,hi )"`, `)`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Scan(tc.doc)
			if len(got) != 1 {
				t.Fatalf("expected 1 occurrence, got %d", len(got))
			}
			if got[0].Delimiter != tc.delim {
				t.Fatalf("delimiter = %q, want %q", got[0].Delimiter, tc.delim)
			}
			if got[0].Payload != "hi" {
				t.Fatalf("payload = %q", got[0].Payload)
			}
		})
	}
}

func TestScan_UnquotedCSSURL(t *testing.T) {
	doc := `<p>Use data: URIs sparingly.</p>` +
		`<div style="background-image:url(data:image/png;base64,iVBORw0KGgo=)"></div>`
	got := Scan(doc)
	if len(got) != 1 {
		t.Fatalf("expected 1 occurrence, got %+v", got)
	}
	o := got[0]
	if o.Malformed() {
		t.Fatalf("unexpected error: %v", o.Err)
	}
	if o.MediaType != "image/png" || o.Payload != "iVBORw0KGgo=" {
		t.Fatalf("unexpected occurrence: %+v", o)
	}
	if doc[o.End:o.End+2] != `)"` {
		t.Fatalf("span should stop at the parenthesis, got %q", doc[o.End:])
	}
}

func TestScan_UnquotedCSSURLWithoutParenIsMalformed(t *testing.T) {
	got := Scan(`<div style="background:url(data:text/plain,hi"></div><img src="data:text/plain,ok">`)
	if len(got) != 2 {
		t.Fatalf("expected 2 occurrences, got %+v", got)
	}
	if !got[0].Malformed() {
		t.Fatalf("expected first occurrence to be malformed")
	}
	if got[1].Malformed() || got[1].Payload != "ok" {
		t.Fatalf("expected scanning to continue: %+v", got[1])
	}
}

func TestScan_CandidateList(t *testing.T) {
	cases := []struct {
		name     string
		doc      string
		payloads []string
	}{
		{
			name:     "density descriptors",
			doc:      `<img srcset="data:image/png;base64,AAAA 1x, data:image/png;base64,BBBB 2x">`,
			payloads: []string{"AAAA", "BBBB"},
		},
		{
			name:     "width descriptors",
			doc:      `<img srcset='data:image/png;base64,AAAA 480w,data:image/png;base64,BBBB 1.5x'>`,
			payloads: []string{"AAAA", "BBBB"},
		},
		{
			name:     "no descriptors",
			doc:      `<img srcset="data:text/plain,a, data:text/plain,b">`,
			payloads: []string{"a", "b"},
		},
		{
			name:     "url entry between",
			doc:      `<img srcset="data:text/plain,a 1x, /img/b.png 2x, data:text/plain,c 3x">`,
			payloads: []string{"a", "c"},
		},
		{
			name:     "single entry",
			doc:      `<img srcset="data:image/png;base64,AAAA 2x" src="data:text/plain,z">`,
			payloads: []string{"AAAA", "z"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Scan(tc.doc)
			if len(got) != len(tc.payloads) {
				t.Fatalf("expected %d occurrences, got %+v", len(tc.payloads), got)
			}
			for i, o := range got {
				if o.Malformed() {
					t.Fatalf("occurrence %d: %v", i, o.Err)
				}
				if o.Payload != tc.payloads[i] {
					t.Fatalf("occurrence %d payload = %q, want %q", i, o.Payload, tc.payloads[i])
				}
				if o.Index != i {
					t.Fatalf("occurrence %d has index %d", i, o.Index)
				}
				if i > 0 && got[i-1].End > o.Start {
					t.Fatalf("occurrences %d and %d overlap", i-1, i)
				}
			}
		})
	}
}

func TestScan_CommaInPercentPayloadIsNotAList(t *testing.T) {
	got := Scan(`<a href="data:text/plain,a,b, c">`)
	if len(got) != 1 || got[0].Payload != "a,b, c" {
		t.Fatalf("unexpected occurrences: %+v", got)
	}
}

func TestScan_CaseInsensitiveMarker(t *testing.T) {
	got := Scan(`<img src="DATA:IMAGE/PNG;BASE64,` + pngB64 + `">`)
	if len(got) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(got))
	}
	if got[0].MediaType != "image/png" || got[0].Encoding != EncodingBase64 {
		t.Fatalf("unexpected header parse: %+v", got[0])
	}
}

func TestScan_UnterminatedIsMalformedAndScanContinues(t *testing.T) {
	doc := `<img src='data:text/plain,ok'><img src="data:image/png;base64,` + pngB64
	got := Scan(doc)
	if len(got) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(got))
	}
	if got[0].Malformed() {
		t.Fatalf("first occurrence should be well-formed: %v", got[0].Err)
	}
	if !got[1].Malformed() {
		t.Fatalf("second occurrence should be malformed")
	}
	if !errors.Is(got[1].Err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", got[1].Err)
	}
	var me *MalformedError
	if !errors.As(got[1].Err, &me) || !strings.Contains(me.Reason, "unterminated") {
		t.Fatalf("expected unterminated reason, got %v", got[1].Err)
	}
	if got[1].End != got[1].Start+len(Marker) {
		t.Fatalf("unterminated span should cover only the marker, got [%d,%d)", got[1].Start, got[1].End)
	}
}

func TestScan_UnterminatedDoesNotOverlapLaterOccurrences(t *testing.T) {
	doc := `<img src="data:text/plain,broken><p>x</p><img src='data:text/plain,ok'>`
	got := Scan(doc)
	if len(got) != 2 {
		t.Fatalf("expected 2 occurrences, got %+v", got)
	}
	if !got[0].Malformed() || got[1].Malformed() {
		t.Fatalf("unexpected outcomes: %+v", got)
	}
	if got[0].End > got[1].Start {
		t.Fatalf("malformed span [%d,%d) overlaps next occurrence at %d", got[0].Start, got[0].End, got[1].Start)
	}
	if got[0].Len() != len(Marker) {
		t.Fatalf("malformed span length = %d", got[0].Len())
	}
}

func TestScan_MissingCommaAndBadHeader(t *testing.T) {
	got := Scan(`<a href="data:image/png;base64"></a><a href="data:im<age/png,AAAA"></a><a href="data:text/plain,ok"></a>`)
	if len(got) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(got))
	}
	if !got[0].Malformed() || !got[1].Malformed() {
		t.Fatalf("expected first two to be malformed: %+v", got[:2])
	}
	if got[2].Malformed() || got[2].Payload != "ok" {
		t.Fatalf("expected scanning to resume after malformed values: %+v", got[2])
	}
}

func TestScan_ParamsAndEmptyMediaType(t *testing.T) {
	got := Scan(`x="data:;charset=UTF-8,abc" y="data:,"`)
	if len(got) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(got))
	}
	if got[0].MediaType != "" {
		t.Fatalf("expected empty media type, got %q", got[0].MediaType)
	}
	if v, ok := got[0].Param("charset"); !ok || v != "UTF-8" {
		t.Fatalf("charset param = %q, %v", v, ok)
	}
	if got[1].Payload != "" || got[1].Malformed() {
		t.Fatalf("empty payload should be well-formed: %+v", got[1])
	}
}

func TestScanner_IsLazy(t *testing.T) {
	s := NewScanner(`a="data:,1" b="data:,2" c="data:,3"`)
	first, ok := s.Next()
	if !ok || first.Payload != "1" {
		t.Fatalf("unexpected first: %+v", first)
	}
	second, ok := s.Next()
	if !ok || second.Payload != "2" || second.Index != 1 {
		t.Fatalf("unexpected second: %+v", second)
	}
	if _, ok := s.Next(); !ok {
		t.Fatalf("expected third")
	}
	if _, ok := s.Next(); ok {
		t.Fatalf("expected exhaustion")
	}
}
