package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stosh/internal/config"
	"stosh/pkg/stosh"
)

// cliOptions holds persistent flag values. Defaults come from the environment.
type cliOptions struct {
	ConfigPath string
	StanRoot   string
	MakeTool   string
	LogLevel   string
	LogFormat  string
	RunsDB     string
}

// app is the resolved runtime state shared by subcommands.
type app struct {
	cfg config.Config
	log zerolog.Logger
}

func defaultOptions(getenv func(string) string) *cliOptions {
	return &cliOptions{
		ConfigPath: getenv("STOSH_CONFIG"),
		LogLevel:   getenv("STOSH_LOG_LEVEL"),
		LogFormat:  "console",
		RunsDB:     getenv("STOSH_RUNS_DB"),
	}
}

// buildRootCmd constructs the command tree. Persistent flags are merged over
// the optional config file before any subcommand runs.
func buildRootCmd(opts *cliOptions) *cobra.Command {
	a := &app{log: zerolog.Nop()}
	root := &cobra.Command{
		Use:           "stosh",
		Short:         "Compile Stan models and run their samplers in-process",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.ConfigPath, "config", opts.ConfigPath, "Config file (.yaml|.json|.toml|.hcl; defaults STOSH_CONFIG)")
	pf.StringVar(&opts.StanRoot, "stan-root", opts.StanRoot, "Build directory containing the makefile (defaults STAN_ROOT)")
	pf.StringVar(&opts.MakeTool, "make", opts.MakeTool, "Build tool executable (default make)")
	pf.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "Log level: debug|info|warn|error (defaults STOSH_LOG_LEVEL or info)")
	pf.StringVar(&opts.LogFormat, "log-format", opts.LogFormat, "Log format: console|json")
	pf.StringVar(&opts.RunsDB, "runs-db", opts.RunsDB, "SQLite run ledger path; empty disables recording (defaults STOSH_RUNS_DB)")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var file config.Config
		if opts.ConfigPath != "" {
			c, err := config.Load(opts.ConfigPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			file = c
		}
		a.cfg = mergeOptions(file, *opts).WithDefaults()
		l, err := newLogger(cmd.ErrOrStderr(), a.cfg.LogLevel, opts.LogFormat)
		if err != nil {
			return err
		}
		a.log = l
		return nil
	}

	root.AddCommand(
		newCompileCmd(a),
		newSampleCmd(a),
		newModelsCmd(a),
		newRunsCmd(a),
		newServeCmd(a),
	)
	return root
}

// mergeOptions overlays non-empty flag values on the file config.
func mergeOptions(c config.Config, o cliOptions) config.Config {
	if o.StanRoot != "" {
		c.StanRoot = o.StanRoot
	}
	if o.MakeTool != "" {
		c.MakeTool = o.MakeTool
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.RunsDB != "" {
		c.RunsDB = o.RunsDB
	}
	return c
}

func newLogger(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q", level)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	switch format {
	case "", "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q (want console or json)", format)
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// modelOptions translates the resolved config into session options.
func (a *app) modelOptions() []stosh.Option {
	return []stosh.Option{
		stosh.WithStanRoot(a.cfg.StanRoot),
		stosh.WithTool(a.cfg.MakeTool),
		stosh.WithBufferSize(a.cfg.BufferSize),
		stosh.WithLogger(a.log),
	}
}

// splitCSV splits a comma-separated list, trimming blanks.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
