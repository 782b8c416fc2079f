// Package summary renders a human-readable report of an extraction run as
// Markdown and, optionally, as a PDF.
package summary

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hyperifyio/gutenextract/internal/extractor"
	"github.com/hyperifyio/gutenextract/internal/stats"
)

var printer = message.NewPrinter(language.English)

// Markdown renders md and its derived statistics.
func Markdown(md extractor.Metadata) string {
	st := stats.Compute(md)
	b := &strings.Builder{}
	name := md.OriginalFilename
	if name == "" {
		name = filepath.Base(md.OriginalFile)
	}
	fmt.Fprintf(b, "# Extraction summary: %s\n\n", name)
	if md.RunID != "" {
		fmt.Fprintf(b, "- Run: %s\n", md.RunID)
	}
	if !md.ExtractionTimestamp.IsZero() {
		fmt.Fprintf(b, "- Date: %s\n", md.ExtractionTimestamp.UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	fmt.Fprintf(b, "- Threshold: %s bytes\n", printer.Sprintf("%d", md.ThresholdBytes))
	fmt.Fprintf(b, "- Optimized document: %s\n", md.OptimizedFile)
	fmt.Fprintf(b, "- Assets: %s\n\n", md.AssetsDirectory)

	s := md.Statistics
	b.WriteString("## Totals\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	row := func(k, v string) { fmt.Fprintf(b, "| %s | %s |\n", k, v) }
	row("Data URIs found", printer.Sprintf("%d", s.TotalResources))
	row("Externalized", printer.Sprintf("%d", s.Extracted))
	row("Kept inline", printer.Sprintf("%d", s.KeptInline))
	row("Malformed", printer.Sprintf("%d", s.Malformed))
	row("Original size", Bytes(s.OriginalSize))
	row("Optimized size", Bytes(s.OptimizedSize))
	row("Bytes saved", Bytes(s.BytesSaved))
	row("Bytes moved to assets", Bytes(s.BytesMoved))
	row("Reduction", printer.Sprintf("%.2f%%", s.ReductionPercentage))
	row("Compression ratio", printer.Sprintf("%.2f", st.EfficiencyMetrics.CompressionRatio))
	b.WriteString("\n")

	if len(st.ResourceTypeAnalysis) > 0 {
		b.WriteString("## By type\n\n")
		b.WriteString("| Type | Count | Total | Average |\n|---|---|---|---|\n")
		kinds := make([]string, 0, len(st.ResourceTypeAnalysis))
		for k := range st.ResourceTypeAnalysis {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			ta := st.ResourceTypeAnalysis[k]
			fmt.Fprintf(b, "| %s | %s | %s | %s |\n", k, printer.Sprintf("%d", ta.Count), Bytes(ta.TotalSize), Bytes(ta.AverageSize))
		}
		b.WriteString("\n")
	}

	if len(md.ExtractedResources) > 0 {
		b.WriteString("## Assets\n\n")
		for _, a := range md.ExtractedResources {
			suffix := ""
			if a.Reused {
				suffix = " (reused)"
			}
			fmt.Fprintf(b, "- [%s](%s): %s, %s%s\n", a.File, a.RelativeURL, a.MIME, Bytes(a.SizeBytes), suffix)
		}
		b.WriteString("\n")
	}

	var malformed []extractor.OccurrenceRecord
	for _, o := range md.Occurrences {
		if o.Outcome == extractor.OutcomeMalformed {
			malformed = append(malformed, o)
		}
	}
	if len(malformed) > 0 {
		b.WriteString("## Malformed\n\n")
		for _, o := range malformed {
			fmt.Fprintf(b, "- #%d at offset %s: %s\n", o.Index, printer.Sprintf("%d", o.Offset), o.Reason)
		}
		b.WriteString("\n")
	}

	p := st.SavingsProjection
	b.WriteString("## Projection\n\n")
	fmt.Fprintf(b, "At %d loads a month the document saves about %s MB monthly and %s MB yearly.\n",
		stats.MonthlyLoads, printer.Sprintf("%.2f", p.EstimatedMonthlySavingsMB), printer.Sprintf("%.2f", p.ProjectedYearlySavingsMB))
	return b.String()
}

// Bytes formats n with thousands separators and a unit.
func Bytes(n int64) string {
	return printer.Sprintf("%d B", n)
}
