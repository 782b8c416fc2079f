package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/gutenextract/internal/analyze"
	"github.com/hyperifyio/gutenextract/internal/batch"
	"github.com/hyperifyio/gutenextract/internal/config"
	"github.com/hyperifyio/gutenextract/internal/datauri"
	"github.com/hyperifyio/gutenextract/internal/extractor"
	"github.com/hyperifyio/gutenextract/internal/stats"
)

// Names of the builtin tools.
const (
	ToolExtractResources   = "extract_resources"
	ToolAnalyzeFile        = "analyze_file"
	ToolBatchProcess       = "batch_process"
	ToolGetStatistics      = "get_statistics"
	ToolListSupportedTypes = "list_supported_types"
)

// Deps bundles what the builtin tools need.
type Deps struct {
	Config config.Config
	Logger zerolog.Logger
	// Stats defaults to a fresh service when nil.
	Stats *stats.Service
}

// status is the common envelope of every tool result. Error is null on
// success, and the payload key next to it is null on failure unless the tool
// has partial results to report.
type status struct {
	Success bool    `json:"success"`
	Error   *string `json:"error"`
}

func failed(err error) status {
	msg := err.Error()
	return status{Error: &msg}
}

// ExtractResults is the payload of an extract_resources call. A failed run
// still reports its paths and whatever was extracted before it stopped.
type ExtractResults struct {
	RunID                   string               `json:"run_id"`
	OriginalFile            string               `json:"original_file"`
	OptimizedFile           string               `json:"optimized_file"`
	AssetsDirectory         string               `json:"assets_directory"`
	MetadataFile            string               `json:"metadata_file"`
	ExtractedResourcesCount int                  `json:"extracted_resources_count"`
	Statistics              extractor.Statistics `json:"statistics"`
	ReductionPercentage     float64              `json:"reduction_percentage"`
	// ExtractedResources lists the asset files written, in document order.
	ExtractedResources []extractor.AssetRecord `json:"extracted_resources"`
}

func extractResultsOf(res *extractor.Result) *ExtractResults {
	if res == nil || res.Report == nil {
		return nil
	}
	st := extractor.StatisticsOf(res.Report)
	assets := res.Report.Assets
	if assets == nil {
		assets = []extractor.AssetRecord{}
	}
	return &ExtractResults{
		RunID:                   res.RunID,
		OriginalFile:            res.InputPath,
		OptimizedFile:           res.OptimizedPath,
		AssetsDirectory:         res.AssetsDir,
		MetadataFile:            res.MetadataPath,
		ExtractedResourcesCount: res.Report.Externalized,
		Statistics:              st,
		ReductionPercentage:     st.ReductionPercentage,
		ExtractedResources:      assets,
	}
}

// NewDefaultRegistry registers the builtin tools.
func NewDefaultRegistry(deps Deps) (*Registry, error) {
	if deps.Stats == nil {
		deps.Stats = stats.NewService(0)
	}
	b := &builtins{deps: deps}
	r := NewRegistry()
	for _, def := range []Definition{
		{
			StableName:  ToolExtractResources,
			SemVer:      "v2.0.0",
			Description: "Extract embedded data URIs at or above a size threshold from a Gutenberg template into asset files",
			JSONSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "file_path": {"type": "string", "description": "Path to the Gutenberg template"},
    "threshold_kb": {"type": "number", "minimum": 0, "default": 1, "description": "Minimum decoded size in KB to extract"},
    "threshold_bytes": {"type": "integer", "minimum": 0, "description": "Minimum decoded size in bytes; overrides threshold_kb"},
    "output_dir": {"type": "string", "description": "Output directory; defaults to <stem>_optimized next to the input"},
    "dedupe": {"type": "boolean", "description": "Reuse one asset for byte-identical payloads"}
  },
  "required": ["file_path"]
}`),
			Capabilities: []string{"extract", "write"},
			Handler:      b.extract,
		},
		{
			StableName:  ToolAnalyzeFile,
			SemVer:      "v2.0.0",
			Description: "Analyze a Gutenberg template for embedded resources without modifying it",
			JSONSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "file_path": {"type": "string", "description": "Path to the Gutenberg template"},
    "threshold_kb": {"type": "number", "minimum": 0, "default": 1, "description": "Threshold used for the estimate"}
  },
  "required": ["file_path"]
}`),
			Capabilities: []string{"analyze"},
			Handler:      b.analyze,
		},
		{
			StableName:  ToolBatchProcess,
			SemVer:      "v2.0.0",
			Description: "Extract resources from several templates; entries may be glob patterns",
			JSONSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "file_paths": {"type": "array", "items": {"type": "string"}, "minItems": 1, "description": "Template paths or glob patterns"},
    "threshold_kb": {"type": "number", "minimum": 0, "default": 1},
    "output_base_dir": {"type": "string", "description": "Base directory for per-file outputs"},
    "concurrency": {"type": "integer", "minimum": 1, "maximum": 64}
  },
  "required": ["file_paths"]
}`),
			Capabilities: []string{"extract", "write", "batch"},
			Handler:      b.batch,
		},
		{
			StableName:  ToolGetStatistics,
			SemVer:      "v2.0.0",
			Description: "Compute detailed statistics from an extraction metadata file",
			JSONSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "metadata_file_path": {"type": "string", "description": "Path to extraction_metadata.json"}
  },
  "required": ["metadata_file_path"]
}`),
			Capabilities: []string{"analyze"},
			Handler:      b.statistics,
		},
		{
			StableName:   ToolListSupportedTypes,
			SemVer:       "v2.0.0",
			Description:  "List the resource types recognized in data URIs",
			JSONSchema:   json.RawMessage(`{"type": "object", "properties": {}}`),
			Capabilities: []string{"info"},
			Handler:      b.types,
		},
	} {
		if err := r.Register(def); err != nil {
			return nil, err
		}
	}
	return r, nil
}

type builtins struct {
	deps Deps
}

// threshold resolves the byte threshold from optional KB and byte arguments.
func (b *builtins) threshold(kb *float64, bytes *int64) int64 {
	switch {
	case bytes != nil:
		return *bytes
	case kb != nil:
		return int64(math.Round(*kb * 1024))
	default:
		return b.deps.Config.Threshold()
	}
}

func encode(v any) (json.RawMessage, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return out, nil
}

func decodeArgs(tool string, raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return &ArgumentError{Tool: tool, Err: err}
	}
	return nil
}

func (b *builtins) extract(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var args struct {
		FilePath       string   `json:"file_path"`
		ThresholdKB    *float64 `json:"threshold_kb"`
		ThresholdBytes *int64   `json:"threshold_bytes"`
		OutputDir      string   `json:"output_dir"`
		Dedupe         *bool    `json:"dedupe"`
	}
	if err := decodeArgs(ToolExtractResources, raw, &args); err != nil {
		return nil, err
	}
	opts := b.deps.Config.ExtractorOptions(args.FilePath, args.OutputDir)
	opts.ThresholdBytes = b.threshold(args.ThresholdKB, args.ThresholdBytes)
	if args.Dedupe != nil {
		opts.Dedupe = *args.Dedupe
	}

	type response struct {
		status
		Results *ExtractResults `json:"results"`
	}
	res, err := extractor.Extract(ctx, opts, b.deps.Logger)
	if err != nil {
		out := response{status: failed(err)}
		if res.Partial() {
			out.Results = extractResultsOf(res)
		}
		return encode(out)
	}
	return encode(response{status: status{Success: true}, Results: extractResultsOf(res)})
}

func (b *builtins) analyze(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var args struct {
		FilePath    string   `json:"file_path"`
		ThresholdKB *float64 `json:"threshold_kb"`
	}
	if err := decodeArgs(ToolAnalyzeFile, raw, &args); err != nil {
		return nil, err
	}
	type response struct {
		status
		Analysis *analyze.Analysis `json:"analysis"`
	}
	a, err := analyze.File(args.FilePath, analyze.Options{
		ThresholdBytes: b.threshold(args.ThresholdKB, nil),
		AssetsDirName:  b.deps.Config.AssetsDirName,
		AssetPrefix:    b.deps.Config.AssetPrefix,
	})
	if err != nil {
		return encode(response{status: failed(err)})
	}
	return encode(response{status: status{Success: true}, Analysis: a})
}

func (b *builtins) batch(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var args struct {
		FilePaths     []string `json:"file_paths"`
		ThresholdKB   *float64 `json:"threshold_kb"`
		OutputBaseDir string   `json:"output_base_dir"`
		Concurrency   int      `json:"concurrency"`
	}
	if err := decodeArgs(ToolBatchProcess, raw, &args); err != nil {
		return nil, err
	}
	cfg := b.deps.Config
	template := cfg.ExtractorOptions("", "")
	template.ThresholdBytes = b.threshold(args.ThresholdKB, nil)
	base := strings.TrimSpace(args.OutputBaseDir)
	if base == "" {
		base = cfg.BatchOutputBase
	}
	workers := args.Concurrency
	if workers <= 0 {
		workers = cfg.BatchConcurrency
	}

	type response struct {
		status
		*batch.Result
	}
	res, err := batch.Run(ctx, batch.Options{
		Inputs:      args.FilePaths,
		OutputBase:  base,
		Concurrency: workers,
		Template:    template,
	}, b.deps.Logger)
	if err != nil {
		return encode(response{status: failed(err)})
	}
	return encode(response{status: status{Success: true}, Result: res})
}

func (b *builtins) statistics(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var args struct {
		MetadataFilePath string `json:"metadata_file_path"`
	}
	if err := decodeArgs(ToolGetStatistics, raw, &args); err != nil {
		return nil, err
	}
	type response struct {
		status
		Statistics *stats.Statistics `json:"statistics"`
	}
	st, err := b.deps.Stats.FromFile(args.MetadataFilePath)
	if err != nil {
		return encode(response{status: failed(err)})
	}
	return encode(response{status: status{Success: true}, Statistics: st})
}

func (b *builtins) types(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	supported := map[string]datauri.Type{}
	for _, t := range datauri.SupportedTypes() {
		supported[t.Kind] = t
	}
	return encode(struct {
		status
		SupportedTypes map[string]datauri.Type `json:"supported_types"`
	}{status{Success: true}, supported})
}
