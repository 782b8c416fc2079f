package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the config file schema. Pointer fields distinguish an
// explicit zero (threshold 0, dedupe false) from an omitted key.
type FileConfig struct {
	Threshold struct {
		KB    *int64 `yaml:"kb" json:"kb" toml:"kb"`
		Bytes *int64 `yaml:"bytes" json:"bytes" toml:"bytes"`
	} `yaml:"threshold" json:"threshold" toml:"threshold"`

	Output struct {
		Dir         string `yaml:"dir" json:"dir" toml:"dir"`
		AssetsDir   string `yaml:"assetsDir" json:"assetsDir" toml:"assetsDir"`
		Document    string `yaml:"document" json:"document" toml:"document"`
		Metadata    string `yaml:"metadata" json:"metadata" toml:"metadata"`
		AssetPrefix string `yaml:"assetPrefix" json:"assetPrefix" toml:"assetPrefix"`
	} `yaml:"output" json:"output" toml:"output"`

	Input struct {
		AllowedExtensions []string `yaml:"allowedExtensions" json:"allowedExtensions" toml:"allowedExtensions"`
	} `yaml:"input" json:"input" toml:"input"`

	Dedupe      *bool `yaml:"dedupe" json:"dedupe" toml:"dedupe"`
	StrictPerms *bool `yaml:"strictPerms" json:"strictPerms" toml:"strictPerms"`

	Batch struct {
		Concurrency int    `yaml:"concurrency" json:"concurrency" toml:"concurrency"`
		OutputBase  string `yaml:"outputBase" json:"outputBase" toml:"outputBase"`
	} `yaml:"batch" json:"batch" toml:"batch"`

	Server struct {
		HTTPAddr string `yaml:"httpAddr" json:"httpAddr" toml:"httpAddr"`
	} `yaml:"server" json:"server" toml:"server"`

	Verbose bool `yaml:"verbose" json:"verbose" toml:"verbose"`
}

// LoadFile reads YAML, JSON, or TOML into FileConfig, chosen by extension.
// Unknown extensions are tried as YAML, then JSON, then TOML.
func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse toml: %w", err)
		}
	default:
		yerr := yaml.Unmarshal(b, &fc)
		if yerr == nil {
			return fc, nil
		}
		fc = FileConfig{}
		jerr := json.Unmarshal(b, &fc)
		if jerr == nil {
			return fc, nil
		}
		fc = FileConfig{}
		if terr := toml.Unmarshal(b, &fc); terr != nil {
			return fc, fmt.Errorf("parse config: %v (yaml) / %v (json) / %v (toml)", yerr, jerr, terr)
		}
	}
	return fc, nil
}

// ApplyFile overlays values present in fc onto cfg.
func ApplyFile(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	if fc.Threshold.KB != nil {
		cfg.ThresholdKB = *fc.Threshold.KB
	}
	if fc.Threshold.Bytes != nil {
		cfg.ThresholdBytes = *fc.Threshold.Bytes
	}
	if fc.Output.Dir != "" {
		cfg.OutputDir = fc.Output.Dir
	}
	if fc.Output.AssetsDir != "" {
		cfg.AssetsDirName = fc.Output.AssetsDir
	}
	if fc.Output.Document != "" {
		cfg.OptimizedName = fc.Output.Document
	}
	if fc.Output.Metadata != "" {
		cfg.MetadataName = fc.Output.Metadata
	}
	if fc.Output.AssetPrefix != "" {
		cfg.AssetPrefix = fc.Output.AssetPrefix
	}
	if len(fc.Input.AllowedExtensions) > 0 {
		cfg.AllowedExtensions = append([]string{}, fc.Input.AllowedExtensions...)
	}
	if fc.Dedupe != nil {
		cfg.Dedupe = *fc.Dedupe
	}
	if fc.StrictPerms != nil {
		cfg.StrictPerms = *fc.StrictPerms
	}
	if fc.Batch.Concurrency > 0 {
		cfg.BatchConcurrency = fc.Batch.Concurrency
	}
	if fc.Batch.OutputBase != "" {
		cfg.BatchOutputBase = fc.Batch.OutputBase
	}
	if fc.Server.HTTPAddr != "" {
		cfg.HTTPAddr = fc.Server.HTTPAddr
	}
	if fc.Verbose {
		cfg.Verbose = true
	}
}
