package extractor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Statistics is the aggregate block of the metadata record.
type Statistics struct {
	TotalResources      int     `json:"total_resources"`
	Extracted           int     `json:"extracted"`
	Skipped             int     `json:"skipped"`
	KeptInline          int     `json:"kept_inline"`
	Malformed           int     `json:"malformed"`
	OriginalSize        int64   `json:"original_size"`
	OptimizedSize       int64   `json:"optimized_size"`
	BytesSaved          int64   `json:"bytes_saved"`
	BytesMoved          int64   `json:"bytes_moved"`
	ReductionPercentage float64 `json:"reduction_percentage"`
}

// Metadata is the record persisted next to the optimized document.
type Metadata struct {
	RunID               string             `json:"run_id"`
	OriginalFile        string             `json:"original_file"`
	OriginalFilename    string             `json:"original_filename"`
	OptimizedFile       string             `json:"optimized_file"`
	OptimizedFilename   string             `json:"optimized_filename"`
	AssetsDirectory     string             `json:"assets_directory"`
	OutputDirectory     string             `json:"output_directory"`
	ExtractionTimestamp time.Time          `json:"extraction_timestamp"`
	ThresholdKB         float64            `json:"threshold_kb"`
	ThresholdBytes      int64              `json:"threshold_bytes"`
	Dedupe              bool               `json:"dedupe"`
	ExtractedResources  []AssetRecord      `json:"extracted_resources"`
	Occurrences         []OccurrenceRecord `json:"occurrences"`
	Statistics          Statistics         `json:"statistics"`
}

// StatisticsOf summarizes a finalized report.
func StatisticsOf(r *Report) Statistics {
	return Statistics{
		TotalResources:      r.Found,
		Extracted:           r.Externalized,
		Skipped:             r.KeptInline + r.Malformed,
		KeptInline:          r.KeptInline,
		Malformed:           r.Malformed,
		OriginalSize:        r.OriginalSize,
		OptimizedSize:       r.OptimizedSize,
		BytesSaved:          r.BytesSaved(),
		BytesMoved:          r.BytesMoved,
		ReductionPercentage: Round2(r.ReductionPercentage()),
	}
}

func buildMetadata(res *Result, thresholdBytes int64, dedupe bool, at time.Time) Metadata {
	md := Metadata{
		RunID:               res.RunID,
		OriginalFile:        res.InputPath,
		OriginalFilename:    filepath.Base(res.InputPath),
		OptimizedFile:       res.OptimizedPath,
		OptimizedFilename:   filepath.Base(res.OptimizedPath),
		AssetsDirectory:     res.AssetsDir,
		OutputDirectory:     res.OutputDir,
		ExtractionTimestamp: at.UTC(),
		ThresholdKB:         float64(thresholdBytes) / 1024,
		ThresholdBytes:      thresholdBytes,
		Dedupe:              dedupe,
		ExtractedResources:  res.Report.Assets,
		Occurrences:         res.Report.Occurrences,
		Statistics:          StatisticsOf(res.Report),
	}
	if md.ExtractedResources == nil {
		md.ExtractedResources = []AssetRecord{}
	}
	if md.Occurrences == nil {
		md.Occurrences = []OccurrenceRecord{}
	}
	return md
}

// WriteMetadata writes md as indented JSON via a temp file and rename.
func WriteMetadata(path string, md Metadata, mode os.FileMode) error {
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	data = append(data, '\n')
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, mode); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// LoadMetadata reads a record written by WriteMetadata.
func LoadMetadata(path string) (Metadata, error) {
	var md Metadata
	b, err := os.ReadFile(path)
	if err != nil {
		return md, err
	}
	if err := json.Unmarshal(b, &md); err != nil {
		return md, fmt.Errorf("parse metadata %s: %w", path, err)
	}
	return md, nil
}
