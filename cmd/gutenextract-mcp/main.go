package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gutenextract/internal/buildinfo"
	"github.com/hyperifyio/gutenextract/internal/config"
	"github.com/hyperifyio/gutenextract/internal/rpc"
)

func main() {
	// Stdout carries protocol messages; logs go to stderr.
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		configPath string
		envFiles   string
		httpAddr   string
		verbose    bool
		version    bool
	)
	flag.StringVar(&configPath, "config", os.Getenv("GUTENEXTRACT_CONFIG"), "Path to a YAML, JSON or TOML config file")
	flag.StringVar(&envFiles, "env-file", "", "Comma-separated dotenv files to load")
	flag.StringVar(&httpAddr, "http", "", "Serve HTTP on this address instead of stdio")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.BoolVar(&version, "version", false, "Print version and exit")
	flag.Parse()

	if version {
		fmt.Println(buildinfo.String())
		return
	}

	var files []string
	for _, f := range strings.Split(envFiles, ",") {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}
	cfg, err := config.Load(configPath, files...)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}
	if verbose {
		cfg.Verbose = true
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	srv, err := rpc.NewFromConfig(cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("build server")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.HTTPAddr != "" {
		err = srv.ListenAndServe(ctx, cfg.HTTPAddr)
	} else {
		err = srv.ServeStdio(ctx, os.Stdin, os.Stdout)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("server stopped")
		stop()
		os.Exit(1)
	}
}
