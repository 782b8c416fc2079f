package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/gutenextract/internal/buildinfo"
	"github.com/hyperifyio/gutenextract/internal/config"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// cli carries state shared by all commands.
type cli struct {
	configPath string
	envFiles   []string
	verbose    bool

	cfg config.Config
	log zerolog.Logger
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, red("error: "+err.Error()))
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "gutenextract",
		Short:         "Move large inline data URIs out of Gutenberg templates",
		Version:       buildinfo.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", os.Getenv("GUTENEXTRACT_CONFIG"), "Path to a YAML, JSON or TOML config file")
	root.PersistentFlags().StringSliceVar(&c.envFiles, "env-file", nil, "Dotenv files to load before reading the environment")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Verbose logging")

	root.AddCommand(
		newExtractCommand(c),
		newAnalyzeCommand(c),
		newBatchCommand(c),
		newStatsCommand(c),
		newTypesCommand(c),
		newServeCommand(c),
	)
	return root
}

// load resolves configuration from defaults, file and environment, and
// sets up logging. Command flags are applied afterwards by each command.
func (c *cli) load() error {
	cfg, err := config.Load(c.configPath, c.envFiles...)
	if err != nil {
		return err
	}
	if c.verbose {
		cfg.Verbose = true
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	c.cfg = cfg
	c.log = log.Logger
	return nil
}

// validate checks the configuration after command flags were applied.
func (c *cli) validate() error { return config.Validate(c.cfg) }
