package config

import (
	"os"
	"strconv"
	"strings"
)

// EnvPrefix namespaces every environment variable read by ApplyEnvOverrides.
const EnvPrefix = "GUTENEXTRACT_"

// ApplyEnvOverrides overrides cfg fields whose environment variables are set,
// so env takes precedence over a config file while flags, applied later,
// stay highest.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	setInt := func(dst *int64, key string) {
		if s := strings.TrimSpace(os.Getenv(EnvPrefix + key)); s != "" {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				*dst = n
			}
		}
	}
	setString := func(dst *string, key string) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}
	setBool := func(dst *bool, key string) {
		if s := strings.ToLower(strings.TrimSpace(os.Getenv(EnvPrefix + key))); s != "" {
			switch s {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			}
		}
	}

	setInt(&cfg.ThresholdKB, "THRESHOLD_KB")
	setInt(&cfg.ThresholdBytes, "THRESHOLD_BYTES")
	setString(&cfg.OutputDir, "OUTPUT_DIR")
	setString(&cfg.AssetsDirName, "ASSETS_DIR")
	setString(&cfg.OptimizedName, "OPTIMIZED_NAME")
	setString(&cfg.MetadataName, "METADATA_NAME")
	setString(&cfg.AssetPrefix, "ASSET_PREFIX")
	setString(&cfg.BatchOutputBase, "BATCH_OUTPUT_BASE")
	setString(&cfg.HTTPAddr, "HTTP_ADDR")
	if v := strings.TrimSpace(os.Getenv(EnvPrefix + "ALLOWED_EXTENSIONS")); v != "" {
		cfg.AllowedExtensions = splitList(v)
	}
	if s := strings.TrimSpace(os.Getenv(EnvPrefix + "CONCURRENCY")); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			cfg.BatchConcurrency = n
		}
	}
	setBool(&cfg.Dedupe, "DEDUPE")
	setBool(&cfg.StrictPerms, "STRICT_PERMS")
	setBool(&cfg.Verbose, "VERBOSE")
}
