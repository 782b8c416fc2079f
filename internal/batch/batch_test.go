package batch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/hyperifyio/gutenextract/internal/extractor"
)

const pngB64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func page(n int) string {
	return strings.Repeat(`<p><img src="data:image/png;base64,`+pngB64+`"></p>`+"\n", n)
}

func write(t *testing.T, p, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRun_ProcessesFilesConcurrentlyAndAggregates(t *testing.T) {
	dir := t.TempDir()
	var inputs []string
	for i, n := range []int{1, 2, 3, 0} {
		inputs = append(inputs, write(t, filepath.Join(dir, "in", "p"+string(rune('a'+i))+".gutenberg"), page(n)))
	}
	missing := filepath.Join(dir, "in", "missing.gutenberg")
	base := filepath.Join(dir, "out")

	res, err := Run(context.Background(), Options{
		Inputs:      append(inputs, missing),
		OutputBase:  base,
		Concurrency: 3,
		Template:    extractor.Options{ThresholdBytes: 1},
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	s := res.Summary
	if s.TotalFiles != 5 || s.ProcessedSuccessfully != 4 || s.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.TotalExtractedResources != 6 {
		t.Fatalf("extracted = %d, want 6", s.TotalExtractedResources)
	}
	if s.TotalReductionBytes != s.TotalOriginalSize-s.TotalOptimizedSize || s.OverallReductionPercentage <= 0 {
		t.Fatalf("reduction not aggregated: %+v", s)
	}
	if len(res.Results) != 5 || res.Results[4].FilePath != missing || res.Results[4].Success {
		t.Fatalf("results should follow input order with the failure last")
	}
	if len(res.Errors) != 1 || res.Errors[0].FilePath != missing {
		t.Fatalf("unexpected errors: %+v", res.Errors)
	}
	if got := res.Results[1].OutputDir; got != filepath.Join(base, "pb_batch") {
		t.Fatalf("output dir = %s", got)
	}
	if _, err := os.Stat(filepath.Join(base, "pc_batch", "assets", "asset_003.png")); err != nil {
		t.Fatalf("expected per-document asset numbering: %v", err)
	}
}

func TestRun_DetectsOutputCollisions(t *testing.T) {
	dir := t.TempDir()
	a := write(t, filepath.Join(dir, "a", "home.gutenberg"), page(1))
	b := write(t, filepath.Join(dir, "b", "home.gutenberg"), page(1))
	res, err := Run(context.Background(), Options{
		Inputs:     []string{a, b},
		OutputBase: filepath.Join(dir, "out"),
		Template:   extractor.Options{ThresholdBytes: 1},
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Results[0].Success || res.Results[1].Success {
		t.Fatalf("second document should be rejected: %+v", res.Results)
	}
	if !strings.Contains(res.Results[1].Error, "already used by") {
		t.Fatalf("unexpected error: %s", res.Results[1].Error)
	}
}

func TestExpand_GlobsAndPlainPaths(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "site", "b.gutenberg"), "")
	write(t, filepath.Join(dir, "site", "a.gutenberg"), "")
	write(t, filepath.Join(dir, "site", "nested", "c.gutenberg"), "")
	write(t, filepath.Join(dir, "site", "notes.txt"), "")

	files, unmatched, err := Expand([]string{
		filepath.Join(dir, "site", "**", "*.gutenberg"),
		filepath.Join(dir, "site", "a.gutenberg"),
		filepath.Join(dir, "plain-missing.gutenberg"),
		filepath.Join(dir, "site", "*.html"),
	})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{
		filepath.Join(dir, "site", "a.gutenberg"),
		filepath.Join(dir, "site", "b.gutenberg"),
		filepath.Join(dir, "site", "nested", "c.gutenberg"),
		filepath.Join(dir, "plain-missing.gutenberg"),
	}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Fatalf("files (-want +got):\n%s", diff)
	}
	if len(unmatched) != 1 || !strings.HasSuffix(unmatched[0], "*.html") {
		t.Fatalf("unmatched = %v", unmatched)
	}
}

func TestRun_NoInputs(t *testing.T) {
	if _, err := Run(context.Background(), Options{}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error")
	}
}
