// Package build turns a model source file into a loadable binary artifact.
//
// The Resolver decides whether an existing artifact can be reused (its
// modification time is strictly newer than the source's) and otherwise runs
// the external build tool (GNU make by default) from the build directory with
// a single target. Freshness is judged by mtime only; clock skew, copied files
// and touched-but-unchanged sources can produce false hits or misses.
package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"stosh/internal/common/fsutil"
	"stosh/internal/errs"
)

const (
	// SourceExt is the required extension of model sources.
	SourceExt = ".stan"
	// ArtifactSuffix is appended to the source stem to name the artifact.
	ArtifactSuffix = "_model.so"
	// DefaultTool is the build tool invoked when none is configured.
	DefaultTool = "make"
	// Descriptor is the build description file expected in the build directory.
	Descriptor = "makefile"
	// RootEnv overrides the build directory when no explicit root is set.
	RootEnv = "STAN_ROOT"
)

// Config configures a Resolver. Zero values select defaults.
type Config struct {
	// Root is an explicit build directory; it wins over RootEnv.
	Root string
	// Tool is the build executable name or path.
	Tool   string
	Runner Runner
	Logger *zerolog.Logger

	// Process hooks, replaceable in tests.
	Getenv     func(string) string
	Getwd      func() (string, error)
	Executable func() (string, error)
}

// Artifact describes the outcome of a resolution.
type Artifact struct {
	// Source is the absolute model source path.
	Source string
	// Path is the absolute artifact path, co-located with Source.
	Path string
	// BuildDir is the directory the build tool ran (or would run) in.
	BuildDir string
	// Built is false when a fresh artifact was reused.
	Built bool
	// Target and Strategy are set when a build ran.
	Target   string
	Strategy Strategy
}

// Resolver produces artifacts for model sources.
type Resolver struct {
	root       string
	tool       string
	runner     Runner
	log        zerolog.Logger
	getenv     func(string) string
	getwd      func() (string, error)
	executable func() (string, error)

	group singleflight.Group
}

// New constructs a Resolver from cfg.
func New(cfg Config) *Resolver {
	r := &Resolver{
		root:       strings.TrimSpace(cfg.Root),
		tool:       strings.TrimSpace(cfg.Tool),
		runner:     cfg.Runner,
		getenv:     cfg.Getenv,
		getwd:      cfg.Getwd,
		executable: cfg.Executable,
	}
	if r.tool == "" {
		r.tool = DefaultTool
	}
	if r.runner == nil {
		r.runner = ExecRunner{}
	}
	if cfg.Logger != nil {
		r.log = *cfg.Logger
	} else {
		r.log = zerolog.Nop()
	}
	if r.getenv == nil {
		r.getenv = os.Getenv
	}
	if r.getwd == nil {
		r.getwd = os.Getwd
	}
	if r.executable == nil {
		r.executable = os.Executable
	}
	return r
}

// ArtifactPath returns the artifact path derived from a source path.
func ArtifactPath(source string) string {
	return filepath.Join(filepath.Dir(source), fsutil.Stem(source)+ArtifactSuffix)
}

// Resolve returns a loadable artifact for source, building it when it is
// missing, stale, or force is set.
func (r *Resolver) Resolve(ctx context.Context, source string, force bool) (Artifact, error) {
	src, err := checkSource(source)
	if err != nil {
		return Artifact{}, err
	}
	dir, err := r.BuildDir()
	if err != nil {
		return Artifact{}, err
	}
	art := Artifact{Source: src, Path: ArtifactPath(src), BuildDir: dir}

	if !force {
		fresh, err := fsutil.IsFresher(art.Path, src)
		if err != nil {
			return Artifact{}, errs.Wrap(errs.ErrInvalidInput, err, "stat model source")
		}
		if fresh {
			r.log.Info().Str("artifact", art.Path).Msg("using existing compiled model")
			buildTotal.WithLabelValues("cached").Inc()
			return art, nil
		}
	}

	// Concurrent requests for one artifact share a single build.
	v, err, _ := r.group.Do(art.Path, func() (any, error) {
		return r.build(ctx, art)
	})
	if err != nil {
		buildTotal.WithLabelValues("failed").Inc()
		return Artifact{}, err
	}
	buildTotal.WithLabelValues("built").Inc()
	return v.(Artifact), nil
}

func (r *Resolver) build(ctx context.Context, art Artifact) (Artifact, error) {
	cwd, err := r.getwd()
	if err != nil {
		cwd = ""
	} else if resolved, e := filepath.EvalSymlinks(cwd); e == nil {
		cwd = resolved
	}
	art.Target, art.Strategy = Target(art.Path, art.BuildDir, cwd)

	l := r.log.With().Str("source", art.Source).Str("build_dir", art.BuildDir).Str("target", art.Target).Logger()
	switch art.Strategy {
	case StrategyCwd:
		l.Warn().Msg("model source is outside the build directory; using target relative to working directory")
	case StrategyBase:
		l.Warn().Msg("using fallback target")
	}
	l.Info().Msg("compiling model")

	inv := Invocation{Tool: r.tool, Args: []string{art.Target}, Dir: art.BuildDir}
	start := time.Now()
	res, err := r.runner.Run(ctx, inv)
	buildDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return Artifact{}, err
	}
	if res.ExitCode != 0 {
		l.Error().Int("exit_code", res.ExitCode).Msg("compilation failed")
		return Artifact{}, errs.BuildFailed(errs.BuildOutput{
			Command:  inv.Command(),
			Dir:      inv.Dir,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
			ExitCode: res.ExitCode,
		})
	}
	if !fsutil.IsFile(art.Path) {
		return Artifact{}, errs.Newf(errs.ErrArtifactMissingAfterBuild,
			"compilation succeeded but output file not found: %s", art.Path)
	}
	art.Built = true
	l.Info().Str("artifact", art.Path).Dur("dur", time.Since(start)).Msg("compilation successful")
	return art, nil
}

// BuildDir resolves the build tool's working directory: the explicit root,
// then $STAN_ROOT, then the parent of the directory holding the running
// executable. The directory must contain the build descriptor.
func (r *Resolver) BuildDir() (string, error) {
	dir := r.root
	if dir == "" {
		dir = strings.TrimSpace(r.getenv(RootEnv))
	}
	if dir == "" {
		exe, err := r.executable()
		if err != nil {
			return "", errs.Wrap(errs.ErrConfiguration, err, "locate install directory")
		}
		if resolved, e := filepath.EvalSymlinks(exe); e == nil {
			exe = resolved
		}
		dir = filepath.Dir(filepath.Dir(exe))
	}
	dir, err := fsutil.ExpandHome(dir)
	if err != nil {
		return "", errs.Wrap(errs.ErrConfiguration, err, "expand build directory")
	}
	if dir, err = filepath.Abs(dir); err != nil {
		return "", errs.Wrap(errs.ErrConfiguration, err, "absolute build directory")
	}
	if resolved, e := filepath.EvalSymlinks(dir); e == nil {
		dir = resolved
	}
	desc := filepath.Join(dir, Descriptor)
	if !fsutil.IsFile(desc) {
		return "", errs.Newf(errs.ErrConfiguration, "%s not found at: %s", Descriptor, desc)
	}
	return dir, nil
}

// checkSource validates source and returns its absolute, symlink-free path.
func checkSource(source string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", errs.New(errs.ErrInvalidInput, "model source path is empty")
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", errs.Wrap(errs.ErrInvalidInput, err, "model source path")
	}
	fi, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", errs.Newf(errs.ErrInvalidInput, "model source does not exist: %s", source)
		}
		return "", errs.Wrap(errs.ErrInvalidInput, err, "model source")
	}
	if fi.IsDir() {
		return "", errs.Newf(errs.ErrInvalidInput, "model source is a directory: %s", source)
	}
	if filepath.Ext(abs) != SourceExt {
		return "", errs.Newf(errs.ErrInvalidInput, "file must have %s extension: %s", SourceExt, source)
	}
	if resolved, e := filepath.EvalSymlinks(abs); e == nil {
		abs = resolved
	}
	return abs, nil
}
