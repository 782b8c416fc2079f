package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/gutenextract/internal/analyze"
	"github.com/hyperifyio/gutenextract/internal/batch"
	"github.com/hyperifyio/gutenextract/internal/datauri"
	"github.com/hyperifyio/gutenextract/internal/extractor"
	"github.com/hyperifyio/gutenextract/internal/rpc"
	"github.com/hyperifyio/gutenextract/internal/stats"
	"github.com/hyperifyio/gutenextract/internal/summary"
)

// thresholdFlags are shared by commands that take a threshold.
type thresholdFlags struct {
	kb    int64
	bytes int64
}

func (f *thresholdFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64VarP(&f.kb, "threshold", "t", extractor.DefaultThresholdKB, "Minimum decoded size in KB to extract")
	cmd.Flags().Int64Var(&f.bytes, "threshold-bytes", -1, "Minimum decoded size in bytes; overrides --threshold")
}

func (f *thresholdFlags) apply(cmd *cobra.Command, c *cli) {
	if cmd.Flags().Changed("threshold") {
		c.cfg.ThresholdKB = f.kb
		c.cfg.ThresholdBytes = -1
	}
	if cmd.Flags().Changed("threshold-bytes") {
		c.cfg.ThresholdBytes = f.bytes
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newExtractCommand(c *cli) *cobra.Command {
	var (
		th         thresholdFlags
		outputDir  string
		dedupe     bool
		summaryMD  string
		summaryPDF string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract large data URIs from a template into asset files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			th.apply(cmd, c)
			if cmd.Flags().Changed("dedupe") {
				c.cfg.Dedupe = dedupe
			}
			if err := c.validate(); err != nil {
				return err
			}
			res, err := extractor.Extract(cmd.Context(), c.cfg.ExtractorOptions(args[0], outputDir), c.log)
			if err != nil {
				if res.Partial() {
					printPartial(cmd.OutOrStdout(), res, asJSON)
				}
				return err
			}
			if summaryMD != "" || summaryPDF != "" {
				md := summary.Markdown(*res.Metadata)
				if summaryMD != "" {
					if err := os.WriteFile(summaryMD, []byte(md), 0o644); err != nil {
						return fmt.Errorf("write summary: %w", err)
					}
				}
				if summaryPDF != "" {
					if err := summary.WritePDF(md, summaryPDF); err != nil {
						return fmt.Errorf("write summary pdf: %w", err)
					}
				}
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, res.Metadata)
			}
			st := extractor.StatisticsOf(res.Report)
			fmt.Fprintf(out, "%s %s\n", green("✓"), res.Message)
			fmt.Fprintf(out, "  %s %s\n", bold("Optimized:"), cyan(res.OptimizedPath))
			fmt.Fprintf(out, "  %s %s\n", bold("Assets:   "), cyan(res.AssetsDir))
			fmt.Fprintf(out, "  %s %s\n", bold("Metadata: "), cyan(res.MetadataPath))
			fmt.Fprintf(out, "  %s %s -> %s (%s)\n", bold("Size:     "),
				summary.Bytes(st.OriginalSize), summary.Bytes(st.OptimizedSize), green(fmt.Sprintf("-%.2f%%", st.ReductionPercentage)))
			if st.Malformed > 0 {
				fmt.Fprintf(out, "  %s %d malformed data URI(s) left unchanged\n", yellow("!"), st.Malformed)
			}
			return nil
		},
	}
	th.register(cmd)
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default <stem>_optimized next to the input)")
	cmd.Flags().BoolVar(&dedupe, "dedupe", false, "Write byte-identical payloads once")
	cmd.Flags().StringVar(&summaryMD, "summary", "", "Also write a Markdown summary to this path")
	cmd.Flags().StringVar(&summaryPDF, "summary-pdf", "", "Also write a PDF summary to this path")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the metadata record as JSON")
	return cmd
}

// printPartial reports what a failed extraction left behind.
func printPartial(out io.Writer, res *extractor.Result, asJSON bool) {
	st := extractor.StatisticsOf(res.Report)
	if asJSON {
		_ = writeJSON(out, struct {
			Success            bool                    `json:"success"`
			Error              string                  `json:"error"`
			AssetsDirectory    string                  `json:"assets_directory"`
			Statistics         extractor.Statistics    `json:"statistics"`
			ExtractedResources []extractor.AssetRecord `json:"extracted_resources"`
		}{false, res.Message, res.AssetsDir, st, res.Report.Assets})
		return
	}
	fmt.Fprintf(out, "%s extraction stopped after writing %d asset(s); the document was not rewritten\n",
		red("✗"), st.Extracted)
	fmt.Fprintf(out, "  %s %s\n", bold("Assets:   "), cyan(res.AssetsDir))
	for _, a := range res.Report.Assets {
		fmt.Fprintf(out, "    %s (%s)\n", a.File, summary.Bytes(a.SizeBytes))
	}
}

func newAnalyzeCommand(c *cli) *cobra.Command {
	var (
		th     thresholdFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Report the data URIs in a template without changing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			th.apply(cmd, c)
			a, err := analyze.File(args[0], analyze.Options{
				ThresholdBytes: c.cfg.Threshold(),
				AssetsDirName:  c.cfg.AssetsDirName,
				AssetPrefix:    c.cfg.AssetPrefix,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, a)
			}
			fmt.Fprintf(out, "%s %s (%s)\n", bold("File:"), a.FilePath, summary.Bytes(a.FileSize))
			fmt.Fprintf(out, "%s %d found, %d at or above %s, %d malformed\n", bold("Data URIs:"),
				a.TotalDataURIs, a.Extractable, summary.Bytes(a.ThresholdBytes), a.Malformed)
			for _, k := range a.Kinds() {
				ts := a.ResourceTypes[k]
				fmt.Fprintf(out, "  %-6s %3d  encoded %s  decoded %s\n", cyan(k), ts.Count, summary.Bytes(ts.EncodedSize), summary.Bytes(ts.DecodedSize))
			}
			fmt.Fprintf(out, "%s %s (%.2f%%)\n", bold("Estimated savings:"),
				green(summary.Bytes(a.EstimatedSavings)), a.EstimatedReductionPercentage)
			return nil
		},
	}
	th.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the analysis as JSON")
	return cmd
}

func newBatchCommand(c *cli) *cobra.Command {
	var (
		th          thresholdFlags
		outputBase  string
		concurrency int
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "batch <file|glob>...",
		Short: "Extract resources from many templates concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			th.apply(cmd, c)
			if cmd.Flags().Changed("output-base") {
				c.cfg.BatchOutputBase = outputBase
			}
			if cmd.Flags().Changed("concurrency") {
				c.cfg.BatchConcurrency = concurrency
			}
			if err := c.validate(); err != nil {
				return err
			}
			res, err := batch.Run(cmd.Context(), batch.Options{
				Inputs:      args,
				OutputBase:  c.cfg.BatchOutputBase,
				Concurrency: c.cfg.BatchConcurrency,
				Template:    c.cfg.ExtractorOptions("", ""),
			}, c.log)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				if err := writeJSON(out, res); err != nil {
					return err
				}
			} else {
				for _, r := range res.Results {
					if r.Success {
						fmt.Fprintf(out, "%s %s: %d extracted, -%.2f%%\n", green("✓"), r.FilePath, r.Extracted, r.ReductionPercentage)
					}
				}
				for _, e := range res.Errors {
					fmt.Fprintf(out, "%s %s: %s\n", red("✗"), e.FilePath, e.Error)
				}
				s := res.Summary
				fmt.Fprintf(out, "%s %d/%d succeeded, %d resources, %s saved (%.2f%%)\n", bold("Batch:"),
					s.ProcessedSuccessfully, s.TotalFiles, s.TotalExtractedResources,
					summary.Bytes(s.TotalReductionBytes), s.OverallReductionPercentage)
			}
			if res.Summary.Failed > 0 {
				return fmt.Errorf("%d of %d documents failed", res.Summary.Failed, res.Summary.TotalFiles)
			}
			return nil
		},
	}
	th.register(cmd)
	cmd.Flags().StringVar(&outputBase, "output-base", "", "Place each document's output in <base>/<stem>_batch")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 4, "Documents processed in parallel")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the batch result as JSON")
	return cmd
}

func newStatsCommand(c *cli) *cobra.Command {
	var markdown bool
	cmd := &cobra.Command{
		Use:   "stats <extraction_metadata.json>",
		Short: "Compute statistics from an extraction metadata record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if markdown {
				md, err := extractor.LoadMetadata(args[0])
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.OutOrStdout(), summary.Markdown(md))
				return err
			}
			st, err := stats.NewService(1).FromFile(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), st)
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print a Markdown summary instead of JSON")
	return cmd
}

func newTypesCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the resource types recognized in data URIs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, t := range datauri.SupportedTypes() {
				fmt.Fprintf(out, "%-6s %-6s %-16s %s\n", cyan(t.Kind), t.Extension, t.MIME, t.Description)
			}
			return nil
		},
	}
}

func newServeCommand(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tools over JSON-RPC on stdio, or over HTTP with --http",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("http") {
				c.cfg.HTTPAddr = addr
			}
			if err := c.validate(); err != nil {
				return err
			}
			srv, err := rpc.NewFromConfig(c.cfg, c.log)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if c.cfg.HTTPAddr != "" {
				return srv.ListenAndServe(ctx, c.cfg.HTTPAddr)
			}
			err = srv.ServeStdio(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
			if errors.Is(err, ctx.Err()) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "http", "", "Listen address for HTTP, e.g. :8080")
	return cmd
}
