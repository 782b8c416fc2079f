package stats

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hyperifyio/gutenextract/internal/extractor"
)

func sampleMetadata() extractor.Metadata {
	return extractor.Metadata{
		RunID:               "run-1",
		OriginalFile:        "/in/page.gutenberg",
		OptimizedFile:       "/out/index.html",
		ExtractionTimestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		ThresholdKB:         1,
		ExtractedResources: []extractor.AssetRecord{
			{Kind: "png", File: "asset_002.png", SizeBytes: 200},
			{Kind: "png", File: "asset_001.png", SizeBytes: 100},
			{Kind: "svg", File: "asset_003.svg", SizeBytes: 50},
		},
		Statistics: extractor.Statistics{
			TotalResources: 4,
			Extracted:      3,
			Skipped:        1,
			KeptInline:     1,
			OriginalSize:   10000,
			OptimizedSize:  4000,
			BytesSaved:     6000,
			BytesMoved:     350,
		},
	}
}

func TestCompute_Formulas(t *testing.T) {
	st := Compute(sampleMetadata())
	wantTypes := map[string]TypeAnalysis{
		"png": {Count: 2, TotalSize: 300, AverageSize: 150, Files: []string{"asset_001.png", "asset_002.png"}},
		"svg": {Count: 1, TotalSize: 50, AverageSize: 50, Files: []string{"asset_003.svg"}},
	}
	if diff := cmp.Diff(wantTypes, st.ResourceTypeAnalysis); diff != "" {
		t.Fatalf("type analysis (-want +got):\n%s", diff)
	}
	wantEff := Efficiency{ResourcesPerKBSaved: 3, CompressionRatio: 2.5, BytesSavedPerResource: 2000}
	if diff := cmp.Diff(wantEff, st.EfficiencyMetrics); diff != "" {
		t.Fatalf("efficiency (-want +got):\n%s", diff)
	}
	wantProj := Projection{EstimatedMonthlySavingsMB: 0.57, ProjectedYearlySavingsMB: 6.87}
	if diff := cmp.Diff(wantProj, st.SavingsProjection); diff != "" {
		t.Fatalf("projection (-want +got):\n%s", diff)
	}
	if st.Metadata.OriginalFile != "/in/page.gutenberg" || st.Metadata.ThresholdKB != 1 {
		t.Fatalf("run info not echoed: %+v", st.Metadata)
	}
}

func TestCompute_EmptyRecordAvoidsDivisionByZero(t *testing.T) {
	st := Compute(extractor.Metadata{})
	if st.EfficiencyMetrics.CompressionRatio != 0 || st.EfficiencyMetrics.BytesSavedPerResource != 0 {
		t.Fatalf("unexpected metrics: %+v", st.EfficiencyMetrics)
	}
	if len(st.ResourceTypeAnalysis) != 0 {
		t.Fatalf("expected no types")
	}
}

func TestService_CachesUntilFileChanges(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "extraction_metadata.json")
	md := sampleMetadata()
	if err := extractor.WriteMetadata(p, md, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := NewService(4)
	a, err := s.FromFile(p)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	b, err := s.FromFile(p)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if a != b {
		t.Fatalf("expected cached value on second load")
	}
	if hits, misses := s.CacheStats(); hits != 1 || misses != 1 {
		t.Fatalf("hits=%d misses=%d", hits, misses)
	}

	md.Statistics.Extracted = 1
	md.RunID = "run-2-with-a-longer-id"
	if err := extractor.WriteMetadata(p, md, 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	c, err := s.FromFile(p)
	if err != nil {
		t.Fatalf("third load: %v", err)
	}
	if c.BasicStats.Extracted != 1 {
		t.Fatalf("stale statistics served after rewrite")
	}
}

func TestService_MissingFile(t *testing.T) {
	if _, err := NewService(0).FromFile(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Fatalf("expected error")
	}
}
