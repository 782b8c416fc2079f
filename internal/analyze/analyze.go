// Package analyze previews what an extraction run would do to a document
// without writing anything.
package analyze

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hyperifyio/gutenextract/internal/datauri"
	"github.com/hyperifyio/gutenextract/internal/extractor"
)

// Options mirror the extraction settings that affect the estimate.
type Options struct {
	ThresholdBytes int64
	AssetsDirName  string
	AssetPrefix    string
}

// TypeSummary aggregates occurrences of one resource kind.
type TypeSummary struct {
	Count          int   `json:"count"`
	EncodedSize    int64 `json:"encoded_size"`
	DecodedSize    int64 `json:"decoded_size"`
	AboveThreshold int   `json:"above_threshold"`
}

// Analysis is the result of previewing one document.
type Analysis struct {
	FilePath       string                 `json:"file_path"`
	FileSize       int64                  `json:"file_size"`
	ThresholdBytes int64                  `json:"threshold_bytes"`
	TotalDataURIs  int                    `json:"total_data_uris"`
	Extractable    int                    `json:"extractable"`
	Malformed      int                    `json:"malformed"`
	ResourceTypes  map[string]TypeSummary `json:"resource_types"`
	// EstimatedSavings is the byte reduction the run would achieve: the
	// encoded URI text of each extractable occurrence minus its reference.
	EstimatedSavings             int64          `json:"estimated_savings"`
	EstimatedOptimizedSize       int64          `json:"estimated_optimized_size"`
	EstimatedReductionPercentage float64        `json:"estimated_reduction_percentage"`
	HostElements                 map[string]int `json:"host_elements"`
	Blocks                       map[string]int `json:"blocks"`
}

// File reads and analyzes the document at path.
func File(path string, opts Options) (*Analysis, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", extractor.ErrInputNotFound, abs, err)
	}
	a := Text(string(b), opts)
	a.FilePath = abs
	return a, nil
}

// Text analyzes an in-memory document.
func Text(text string, opts Options) *Analysis {
	if opts.AssetsDirName == "" {
		opts.AssetsDirName = extractor.DefaultAssetsDir
	}
	if opts.AssetPrefix == "" {
		opts.AssetPrefix = extractor.DefaultAssetPrefix
	}
	a := &Analysis{
		FileSize:       int64(len(text)),
		ThresholdBytes: opts.ThresholdBytes,
		ResourceTypes:  map[string]TypeSummary{},
	}
	seq := 0
	for _, o := range datauri.Scan(text) {
		a.TotalDataURIs++
		if o.Malformed() {
			a.Malformed++
			continue
		}
		p, err := datauri.Decode(o)
		if err != nil {
			a.Malformed++
			continue
		}
		ts := a.ResourceTypes[p.Kind]
		ts.Count++
		ts.EncodedSize += int64(o.Len())
		ts.DecodedSize += p.Size
		if extractor.Decide(p.Size, opts.ThresholdBytes) == extractor.Externalize {
			ts.AboveThreshold++
			a.Extractable++
			seq++
			ref := fmt.Sprintf("%s/%s%03d%s", filepath.ToSlash(opts.AssetsDirName), opts.AssetPrefix, seq, p.Extension)
			a.EstimatedSavings += int64(o.Len() - len(ref))
		}
		a.ResourceTypes[p.Kind] = ts
	}
	a.EstimatedOptimizedSize = a.FileSize - a.EstimatedSavings
	if a.FileSize > 0 {
		a.EstimatedReductionPercentage = extractor.Round2(float64(a.EstimatedSavings) / float64(a.FileSize) * 100)
	}
	a.HostElements = HostElements(text)
	a.Blocks = Blocks(text)
	return a
}

// Kinds returns the resource kinds present, sorted.
func (a *Analysis) Kinds() []string {
	out := make([]string, 0, len(a.ResourceTypes))
	for k := range a.ResourceTypes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
