// Package config resolves runtime settings from defaults, a config file,
// environment variables, and flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperifyio/gutenextract/internal/extractor"
)

// Config holds runtime configuration shared by the CLI and the RPC server.
type Config struct {
	// ThresholdKB is the boundary threshold. ThresholdBytes, when not
	// negative, takes precedence for callers that need byte precision.
	ThresholdKB    int64
	ThresholdBytes int64

	OutputDir     string
	AssetsDirName string
	OptimizedName string
	MetadataName  string
	AssetPrefix   string

	Dedupe            bool
	StrictPerms       bool
	AllowedExtensions []string

	// Batch
	BatchConcurrency int
	BatchOutputBase  string

	// Server
	HTTPAddr string

	Verbose bool
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ThresholdKB:      extractor.DefaultThresholdKB,
		ThresholdBytes:   -1,
		AssetsDirName:    extractor.DefaultAssetsDir,
		OptimizedName:    extractor.DefaultOptimizedName,
		MetadataName:     extractor.DefaultMetadataName,
		AssetPrefix:      extractor.DefaultAssetPrefix,
		BatchConcurrency: 4,
	}
}

// Threshold returns the active threshold in bytes.
func (c Config) Threshold() int64 {
	if c.ThresholdBytes >= 0 {
		return c.ThresholdBytes
	}
	return extractor.KBToBytes(c.ThresholdKB)
}

// ExtractorOptions maps the configuration onto one engine run.
func (c Config) ExtractorOptions(input, outputDir string) extractor.Options {
	if outputDir == "" {
		outputDir = c.OutputDir
	}
	return extractor.Options{
		InputPath:         input,
		OutputDir:         outputDir,
		ThresholdBytes:    c.Threshold(),
		AssetsDirName:     c.AssetsDirName,
		OptimizedName:     c.OptimizedName,
		MetadataName:      c.MetadataName,
		AssetPrefix:       c.AssetPrefix,
		Dedupe:            c.Dedupe,
		StrictPerms:       c.StrictPerms,
		AllowedExtensions: append([]string(nil), c.AllowedExtensions...),
	}
}

// Validate rejects settings the engine cannot run with.
func Validate(c Config) error {
	if c.ThresholdKB < 0 {
		return errors.New("config: threshold kb must not be negative")
	}
	if c.BatchConcurrency < 1 {
		return errors.New("config: batch concurrency must be at least 1")
	}
	for name, v := range map[string]string{
		"assets dir":     c.AssetsDirName,
		"optimized name": c.OptimizedName,
		"metadata name":  c.MetadataName,
	} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("config: %s is required", name)
		}
		if strings.ContainsAny(v, `/\`) && name != "assets dir" {
			return fmt.Errorf("config: %s must be a file name, got %q", name, v)
		}
	}
	if c.OptimizedName == c.MetadataName {
		return errors.New("config: optimized document and metadata must use different names")
	}
	return nil
}

// Load builds a Config from defaults, an optional config file, dotenv files,
// and the environment. Flags are applied by the caller afterwards.
func Load(configPath string, envFiles ...string) (Config, error) {
	cfg := Default()
	if err := LoadEnvFiles(envFiles...); err != nil {
		return cfg, fmt.Errorf("load env files: %w", err)
	}
	if strings.TrimSpace(configPath) != "" {
		fc, err := LoadFile(configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config %s: %w", configPath, err)
		}
		ApplyFile(&cfg, fc)
	}
	ApplyEnvOverrides(&cfg)
	return cfg, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
