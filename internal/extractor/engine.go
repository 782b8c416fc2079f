// Package extractor moves large inline data URIs out of block-editor
// templates into asset files and rewrites the template to reference them.
package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hyperifyio/gutenextract/internal/datauri"
)

const (
	DefaultThresholdKB   = 1
	DefaultOutputSuffix  = "_optimized"
	DefaultAssetsDir     = "assets"
	DefaultOptimizedName = "index.html"
	DefaultMetadataName  = "extraction_metadata.json"
)

// Options configures one extraction run.
type Options struct {
	InputPath string
	// OutputDir defaults to DefaultOutputDir(InputPath).
	OutputDir string
	// ThresholdBytes is the inclusive minimum decoded size to externalize.
	ThresholdBytes int64

	AssetsDirName string
	OptimizedName string
	MetadataName  string
	AssetPrefix   string

	Dedupe      bool
	StrictPerms bool
	// AllowedExtensions restricts input file extensions (e.g. ".gutenberg").
	// Empty accepts any file.
	AllowedExtensions []string
}

func (o Options) withDefaults() Options {
	if o.AssetsDirName == "" {
		o.AssetsDirName = DefaultAssetsDir
	}
	if o.OptimizedName == "" {
		o.OptimizedName = DefaultOptimizedName
	}
	if o.MetadataName == "" {
		o.MetadataName = DefaultMetadataName
	}
	if o.AssetPrefix == "" {
		o.AssetPrefix = DefaultAssetPrefix
	}
	return o
}

// DefaultOutputDir is the sibling directory <dir>/<stem>_optimized.
func DefaultOutputDir(input string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(input), stem+DefaultOutputSuffix)
}

// State is the lifecycle position of an Extractor.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateDeciding
	StateWriting
	StateReporting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateDeciding:
		return "deciding"
	case StateWriting:
		return "writing"
	case StateReporting:
		return "reporting"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Result is the outcome of a run. It is returned for failed runs too, with
// Success false and whatever the report had accumulated.
type Result struct {
	Success bool
	Message string
	RunID   string

	InputPath     string
	OutputDir     string
	OptimizedPath string
	AssetsDir     string
	MetadataPath  string

	Report   *Report
	Metadata *Metadata
}

// Partial reports whether a failed run resolved occurrences before it
// stopped. Assets listed in its report were written and remain on disk.
func (r *Result) Partial() bool {
	return r != nil && !r.Success && r.Report != nil && r.Report.Found > 0
}

// Extractor processes a single document. Create a new one per document.
type Extractor struct {
	opts  Options
	log   zerolog.Logger
	runID string
	state State
	now   func() time.Time
}

// New returns an idle extractor. Pass zerolog.Nop() to discard events.
func New(opts Options, log zerolog.Logger) *Extractor {
	runID := uuid.NewString()
	return &Extractor{
		opts:  opts.withDefaults(),
		log:   log.With().Str("run_id", runID).Logger(),
		runID: runID,
		now:   time.Now,
	}
}

// Extract runs a fresh Extractor once.
func Extract(ctx context.Context, opts Options, log zerolog.Logger) (*Result, error) {
	return New(opts, log).Run(ctx)
}

// State returns the current lifecycle state.
func (e *Extractor) State() State { return e.state }

// RunID identifies this run in logs and in the metadata record.
func (e *Extractor) RunID() string { return e.runID }

func (e *Extractor) setState(s State) {
	if e.state == s {
		return
	}
	e.log.Trace().Stringer("from", e.state).Stringer("to", s).Msg("state")
	e.state = s
}

// Run extracts the document. Per-occurrence problems are recorded and never
// abort the run; a missing input, an asset write failure, or an output write
// failure does.
func (e *Extractor) Run(ctx context.Context) (*Result, error) {
	if e.state != StateIdle {
		return nil, ErrEngineReused
	}
	defer e.setState(StateDone)

	opts := e.opts
	res := &Result{RunID: e.runID, Report: &Report{}}
	fail := func(err error) (*Result, error) {
		res.Success = false
		res.Message = err.Error()
		e.log.Error().Err(err).Str("input", res.InputPath).Msg("extraction failed")
		return res, err
	}

	if opts.ThresholdBytes < 0 {
		return fail(fmt.Errorf("threshold must not be negative: %d", opts.ThresholdBytes))
	}
	if strings.TrimSpace(opts.InputPath) == "" {
		return fail(fmt.Errorf("%w: empty path", ErrInputNotFound))
	}
	in, err := filepath.Abs(opts.InputPath)
	if err != nil {
		return fail(fmt.Errorf("%w: %s: %v", ErrInputNotFound, opts.InputPath, err))
	}
	res.InputPath = in
	if !allowedExtension(in, opts.AllowedExtensions) {
		return fail(fmt.Errorf("%w: %s: extension must be one of %s", ErrUnsupportedInput, in, strings.Join(opts.AllowedExtensions, ", ")))
	}
	out := opts.OutputDir
	if out == "" {
		out = DefaultOutputDir(in)
	}
	if out, err = filepath.Abs(out); err != nil {
		return fail(fmt.Errorf("resolve output dir: %w", err))
	}
	res.OutputDir = out
	res.OptimizedPath = filepath.Join(out, opts.OptimizedName)
	res.AssetsDir = filepath.Join(out, opts.AssetsDirName)
	res.MetadataPath = filepath.Join(out, opts.MetadataName)
	if res.OptimizedPath == in || res.MetadataPath == in {
		return fail(fmt.Errorf("%w: output would overwrite %s", ErrUnsupportedInput, in))
	}

	raw, err := os.ReadFile(in)
	if err != nil {
		return fail(fmt.Errorf("%w: %s: %v", ErrInputNotFound, in, err))
	}
	text := string(raw)
	e.log.Info().
		Str("input", in).
		Str("output_dir", out).
		Int64("threshold_bytes", opts.ThresholdBytes).
		Int("size", len(raw)).
		Msg("extraction started")

	writer := &AssetWriter{
		Dir:         res.AssetsDir,
		BaseDir:     out,
		Prefix:      opts.AssetPrefix,
		StrictPerms: opts.StrictPerms,
		Dedupe:      opts.Dedupe,
	}
	if err := writer.EnsureDir(); err != nil {
		return fail(err)
	}

	e.setState(StateScanning)
	var edits []Edit
	sc := datauri.NewScanner(text)
	for {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		o, ok := sc.Next()
		if !ok {
			break
		}
		e.setState(StateDeciding)
		rec := OccurrenceRecord{Index: o.Index, Offset: o.Start, Length: o.Len()}
		if o.Malformed() {
			res.Report.addMalformed(rec, o.Err.Error())
			e.log.Warn().Int("index", o.Index).Int("offset", o.Start).Err(o.Err).Msg("malformed data uri kept inline")
			continue
		}
		rec.Encoding = string(o.Encoding)
		rec.MIME = datauri.ResolveMIME(o.MediaType)
		p, err := datauri.Decode(o)
		if err != nil {
			res.Report.addMalformed(rec, err.Error())
			e.log.Warn().Int("index", o.Index).Int("offset", o.Start).Err(err).Msg("undecodable data uri kept inline")
			continue
		}
		rec.Kind = p.Kind
		rec.DecodedSize = p.Size

		decision := Decide(p.Size, opts.ThresholdBytes)
		if decision == KeepInline {
			res.Report.addKept(rec)
			e.log.Debug().Int("index", o.Index).Str("mime", p.MIME).Int64("size", p.Size).Stringer("decision", decision).Msg("occurrence resolved")
			continue
		}

		e.setState(StateWriting)
		a, err := writer.Write(o.Index, p.Bytes, p.Extension)
		if err != nil {
			return fail(err)
		}
		edits = append(edits, Edit{Start: o.Start, End: o.End, Replacement: a.RelURL})
		res.Report.addExternalized(rec, AssetRecord{
			OccurrenceIndex: o.Index,
			Kind:            p.Kind,
			MIME:            p.MIME,
			File:            a.Name,
			Path:            a.Path,
			RelativeURL:     a.RelURL,
			SizeBytes:       a.Size,
			ContentHash:     a.SHA256,
			MatchPosition:   o.Start,
			EncodedLength:   o.Len(),
			Reused:          a.Reused,
		})
		e.log.Debug().
			Int("index", o.Index).
			Str("mime", p.MIME).
			Int64("size", p.Size).
			Stringer("decision", decision).
			Str("asset", a.RelURL).
			Bool("reused", a.Reused).
			Msg("occurrence resolved")
	}

	e.setState(StateWriting)
	optimized, err := Rewrite(text, edits)
	if err != nil {
		return fail(err)
	}
	if err := os.WriteFile(res.OptimizedPath, []byte(optimized), e.fileMode()); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrOutputWrite, err))
	}

	e.setState(StateReporting)
	res.Report.Finalize(int64(len(raw)), int64(len(optimized)))
	md := buildMetadata(res, opts.ThresholdBytes, opts.Dedupe, e.now())
	if err := WriteMetadata(res.MetadataPath, md, e.fileMode()); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrOutputWrite, err))
	}
	res.Metadata = &md
	res.Success = true
	res.Message = summarize(res.Report)

	e.log.Info().
		Int("found", res.Report.Found).
		Int("extracted", res.Report.Externalized).
		Int("kept_inline", res.Report.KeptInline).
		Int("malformed", res.Report.Malformed).
		Int64("original_size", res.Report.OriginalSize).
		Int64("optimized_size", res.Report.OptimizedSize).
		Float64("reduction_pct", Round2(res.Report.ReductionPercentage())).
		Msg("extraction finished")
	return res, nil
}

func (e *Extractor) fileMode() os.FileMode {
	if e.opts.StrictPerms {
		return 0o600
	}
	return 0o644
}

func allowedExtension(path string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, a := range allowed {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" && !strings.HasPrefix(a, ".") {
			a = "." + a
		}
		if a == ext {
			return true
		}
	}
	return false
}

func summarize(r *Report) string {
	if r.Externalized == 0 {
		return fmt.Sprintf("no data URIs at or above threshold (%d found); document unchanged", r.Found)
	}
	return fmt.Sprintf("extracted %d of %d data URIs (%d kept inline, %d malformed); document %.2f%% smaller",
		r.Externalized, r.Found, r.KeptInline, r.Malformed, r.ReductionPercentage())
}
