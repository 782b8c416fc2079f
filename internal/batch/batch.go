// Package batch runs the extractor over many documents concurrently.
package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/gutenextract/internal/extractor"
)

// OutputSuffix names per-file output directories under an output base.
const OutputSuffix = "_batch"

// Options configures a batch run.
type Options struct {
	// Inputs are file paths or doublestar glob patterns.
	Inputs []string
	// OutputBase, when set, places each document's output in
	// <OutputBase>/<stem>_batch; otherwise the extractor default is used.
	OutputBase  string
	Concurrency int
	// Template supplies every extractor setting except input and output dir.
	Template extractor.Options
}

// FileResult is the outcome for one document.
type FileResult struct {
	FilePath            string  `json:"file_path"`
	Success             bool    `json:"success"`
	Error               string  `json:"error,omitempty"`
	OutputDir           string  `json:"output_directory,omitempty"`
	OptimizedFile       string  `json:"optimized_file,omitempty"`
	MetadataFile        string  `json:"metadata_file,omitempty"`
	Extracted           int     `json:"extracted_resources_count"`
	OriginalSize        int64   `json:"original_size"`
	OptimizedSize       int64   `json:"optimized_size"`
	ReductionPercentage float64 `json:"reduction_percentage"`
}

// FileError pairs a failed input with its error message.
type FileError struct {
	FilePath string `json:"file_path"`
	Error    string `json:"error"`
}

// Summary aggregates a batch over its successful documents.
type Summary struct {
	TotalFiles                 int     `json:"total_files"`
	ProcessedSuccessfully      int     `json:"processed_successfully"`
	Failed                     int     `json:"failed"`
	TotalExtractedResources    int     `json:"total_extracted_resources"`
	TotalOriginalSize          int64   `json:"total_original_size"`
	TotalOptimizedSize         int64   `json:"total_optimized_size"`
	TotalReductionBytes        int64   `json:"total_reduction_bytes"`
	OverallReductionPercentage float64 `json:"overall_reduction_percentage"`
}

// Result is the outcome of a batch run. Results follow input order.
type Result struct {
	Summary Summary      `json:"batch_summary"`
	Results []FileResult `json:"individual_results"`
	Errors  []FileError  `json:"errors"`
}

// Run expands the inputs and extracts every document. A failing document is
// recorded and never stops the others; the returned error is reserved for
// invalid options and cancellation.
func Run(ctx context.Context, opts Options, log zerolog.Logger) (*Result, error) {
	if len(opts.Inputs) == 0 {
		return nil, fmt.Errorf("batch: no inputs")
	}
	workers := opts.Concurrency
	if workers <= 0 {
		workers = 1
	}
	files, unmatched, err := Expand(opts.Inputs)
	if err != nil {
		return nil, err
	}

	results := make([]FileResult, len(files))
	outDirs := make(map[string]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		results[i].FilePath = f
		out := outputDirFor(f, opts.OutputBase)
		if prev, dup := outDirs[out]; dup {
			results[i].Error = fmt.Sprintf("output directory %s already used by %s", out, prev)
			log.Warn().Str("input", f).Str("output_dir", out).Msg("batch output collision")
			continue
		}
		outDirs[out] = f

		g.Go(func() error {
			eo := opts.Template
			eo.InputPath = f
			eo.OutputDir = out
			res, err := extractor.Extract(gctx, eo, log)
			results[i] = fileResult(f, res, err)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &Result{Results: results, Errors: []FileError{}}
	for _, pattern := range unmatched {
		out.Errors = append(out.Errors, FileError{FilePath: pattern, Error: "no files match pattern"})
		out.Summary.Failed++
		out.Summary.TotalFiles++
	}
	for _, r := range results {
		out.Summary.TotalFiles++
		if !r.Success {
			out.Summary.Failed++
			out.Errors = append(out.Errors, FileError{FilePath: r.FilePath, Error: r.Error})
			continue
		}
		out.Summary.ProcessedSuccessfully++
		out.Summary.TotalExtractedResources += r.Extracted
		out.Summary.TotalOriginalSize += r.OriginalSize
		out.Summary.TotalOptimizedSize += r.OptimizedSize
	}
	s := &out.Summary
	s.TotalReductionBytes = s.TotalOriginalSize - s.TotalOptimizedSize
	if s.TotalOriginalSize > 0 {
		s.OverallReductionPercentage = extractor.Round2(float64(s.TotalReductionBytes) / float64(s.TotalOriginalSize) * 100)
	}
	log.Info().
		Int("files", s.TotalFiles).
		Int("ok", s.ProcessedSuccessfully).
		Int("failed", s.Failed).
		Float64("reduction_pct", s.OverallReductionPercentage).
		Msg("batch finished")
	return out, nil
}

func fileResult(path string, res *extractor.Result, err error) FileResult {
	fr := FileResult{FilePath: path}
	if res != nil {
		fr.OutputDir = res.OutputDir
		fr.OptimizedFile = res.OptimizedPath
		fr.MetadataFile = res.MetadataPath
	}
	if err != nil {
		fr.Error = err.Error()
		return fr
	}
	fr.Success = res.Success
	fr.Extracted = res.Report.Externalized
	fr.OriginalSize = res.Report.OriginalSize
	fr.OptimizedSize = res.Report.OptimizedSize
	fr.ReductionPercentage = extractor.Round2(res.Report.ReductionPercentage())
	return fr
}

func outputDirFor(input, base string) string {
	if base == "" {
		abs, err := filepath.Abs(input)
		if err != nil {
			abs = input
		}
		return extractor.DefaultOutputDir(abs)
	}
	name := filepath.Base(input)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	out := filepath.Join(base, stem+OutputSuffix)
	if abs, err := filepath.Abs(out); err == nil {
		out = abs
	}
	return out
}
