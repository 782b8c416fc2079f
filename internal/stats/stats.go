// Package stats derives efficiency figures from an extraction metadata record.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/hyperifyio/gutenextract/internal/extractor"
)

// Loads per month and per year assumed by the savings projection.
const (
	MonthlyLoads = 100
	YearlyLoads  = 1200
)

// TypeAnalysis groups extracted resources of one kind.
type TypeAnalysis struct {
	Count       int      `json:"count"`
	TotalSize   int64    `json:"total_size"`
	AverageSize int64    `json:"average_size"`
	Files       []string `json:"files"`
}

// Efficiency relates the savings to the number of extracted resources.
type Efficiency struct {
	ResourcesPerKBSaved   float64 `json:"resources_per_kb_saved"`
	CompressionRatio      float64 `json:"compression_ratio"`
	BytesSavedPerResource int64   `json:"bytes_saved_per_resource"`
}

// Projection extrapolates the per-load saving over repeated loads.
type Projection struct {
	EstimatedMonthlySavingsMB float64 `json:"estimated_monthly_savings_mb"`
	ProjectedYearlySavingsMB  float64 `json:"projected_yearly_savings_mb"`
}

// RunInfo echoes identifying fields of the record.
type RunInfo struct {
	RunID               string    `json:"run_id,omitempty"`
	ExtractionTimestamp time.Time `json:"extraction_timestamp"`
	ThresholdKB         float64   `json:"threshold_kb"`
	OriginalFile        string    `json:"original_file"`
	OptimizedFile       string    `json:"optimized_file"`
}

// Statistics is the full derived view of one metadata record.
type Statistics struct {
	BasicStats           extractor.Statistics    `json:"basic_stats"`
	ResourceTypeAnalysis map[string]TypeAnalysis `json:"resource_type_analysis"`
	EfficiencyMetrics    Efficiency              `json:"efficiency_metrics"`
	SavingsProjection    Projection              `json:"savings_projection"`
	Metadata             RunInfo                 `json:"metadata"`
}

// Compute derives Statistics from md.
func Compute(md extractor.Metadata) *Statistics {
	st := md.Statistics
	out := &Statistics{
		BasicStats:           st,
		ResourceTypeAnalysis: map[string]TypeAnalysis{},
		Metadata: RunInfo{
			RunID:               md.RunID,
			ExtractionTimestamp: md.ExtractionTimestamp,
			ThresholdKB:         md.ThresholdKB,
			OriginalFile:        md.OriginalFile,
			OptimizedFile:       md.OptimizedFile,
		},
	}

	seen := map[string]bool{}
	for _, r := range md.ExtractedResources {
		kind := r.Kind
		if kind == "" {
			kind = "unknown"
		}
		ta := out.ResourceTypeAnalysis[kind]
		ta.Count++
		ta.TotalSize += r.SizeBytes
		if !seen[r.File] {
			seen[r.File] = true
			ta.Files = append(ta.Files, r.File)
		}
		out.ResourceTypeAnalysis[kind] = ta
	}
	for kind, ta := range out.ResourceTypeAnalysis {
		if ta.Count > 0 {
			ta.AverageSize = int64(math.RoundToEven(float64(ta.TotalSize) / float64(ta.Count)))
		}
		sort.Strings(ta.Files)
		out.ResourceTypeAnalysis[kind] = ta
	}

	saved := float64(st.OriginalSize - st.OptimizedSize)
	out.EfficiencyMetrics = Efficiency{
		ResourcesPerKBSaved:   round(float64(st.Extracted)/math.Max(float64(st.OriginalSize)/1024/1000, 1), 3),
		CompressionRatio:      round(float64(st.OriginalSize)/math.Max(float64(st.OptimizedSize), 1), 2),
		BytesSavedPerResource: int64(math.RoundToEven(saved / math.Max(float64(st.Extracted), 1))),
	}
	out.SavingsProjection = Projection{
		EstimatedMonthlySavingsMB: round(saved*MonthlyLoads/1024/1024, 2),
		ProjectedYearlySavingsMB:  round(saved*YearlyLoads/1024/1024, 2),
	}
	return out
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.RoundToEven(v*p) / p
}
