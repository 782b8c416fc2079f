package analyze

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/hyperifyio/gutenextract/internal/extractor"
)

const pngB64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

const doc = `<!-- wp:image {"id":7} -->
<figure class="wp-block-image"><img src="data:image/png;base64,` + pngB64 + `" alt=""/></figure>
<!-- /wp:image -->

<!-- wp:group {"style":{"color":{"background":"#fff"}}} -->
<div class="wp-block-group" style="background-image:url(&quot;data:image/svg+xml,%3Csvg%3E%3C%2Fsvg%3E&quot;)"></div>
<!-- /wp:group -->

<!-- wp:spacer /-->
<p><img src="data:image/gif;base64,@@"></p>
`

func TestText_CountsAndSavings(t *testing.T) {
	a := Text(doc, Options{ThresholdBytes: 20})
	if a.TotalDataURIs != 3 || a.Malformed != 1 {
		t.Fatalf("total=%d malformed=%d", a.TotalDataURIs, a.Malformed)
	}
	want := map[string]TypeSummary{
		"png": {Count: 1, EncodedSize: int64(len("data:image/png;base64,") + len(pngB64)), DecodedSize: 70, AboveThreshold: 1},
		"svg": {Count: 1, EncodedSize: int64(len("data:image/svg+xml,%3Csvg%3E%3C%2Fsvg%3E")), DecodedSize: 11},
	}
	if diff := cmp.Diff(want, a.ResourceTypes); diff != "" {
		t.Fatalf("resource types (-want +got):\n%s", diff)
	}
	if a.Extractable != 1 {
		t.Fatalf("extractable = %d", a.Extractable)
	}
	wantSavings := want["png"].EncodedSize - int64(len("assets/asset_001.png"))
	if a.EstimatedSavings != wantSavings {
		t.Fatalf("savings = %d, want %d", a.EstimatedSavings, wantSavings)
	}
	if diff := cmp.Diff([]string{"png", "svg"}, a.Kinds()); diff != "" {
		t.Fatalf("kinds:\n%s", diff)
	}
}

func TestText_HostElementsAndBlocks(t *testing.T) {
	a := Text(doc, Options{})
	if diff := cmp.Diff(map[string]int{"img": 2, "div": 1}, a.HostElements); diff != "" {
		t.Fatalf("host elements (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]int{"image": 1, "group": 1, "spacer": 1}, a.Blocks); diff != "" {
		t.Fatalf("blocks (-want +got):\n%s", diff)
	}
}

func TestFile_EstimateMatchesExtraction(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "page.gutenberg")
	if err := os.WriteFile(p, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	a, err := File(p, Options{ThresholdBytes: 1})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	res, err := extractor.Extract(t.Context(), extractor.Options{InputPath: p, ThresholdBytes: 1}, zerolog.Nop())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if a.EstimatedOptimizedSize != res.Report.OptimizedSize {
		t.Fatalf("estimate %d != actual %d", a.EstimatedOptimizedSize, res.Report.OptimizedSize)
	}
	if a.Extractable != res.Report.Externalized {
		t.Fatalf("extractable %d != externalized %d", a.Extractable, res.Report.Externalized)
	}
}

func TestFile_Missing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "nope"), Options{})
	if !errors.Is(err, extractor.ErrInputNotFound) {
		t.Fatalf("expected ErrInputNotFound, got %v", err)
	}
}
