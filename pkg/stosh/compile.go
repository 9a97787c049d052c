// Package stosh compiles statistical model sources into native artifacts and
// drives them through a two-phase protocol: LoadData, then Sample.
//
//	m, err := stosh.Compile(ctx, "examples/bernoulli.stan")
//	if err != nil { ... }
//	defer m.Close()
//	if err := m.LoadData(stosh.DataFile("examples/bernoulli.data.json"), 12345); err != nil { ... }
//	var p stosh.Params
//	p.Set("num_chains", stosh.Int(2)).Set("warmup", stosh.Int(100))
//	res, err := m.Sample(p)
//
// All failures are *Error values; test their kind with errors.Is.
package stosh

import (
	"context"

	"github.com/rs/zerolog"

	"stosh/internal/build"
	"stosh/internal/native"
)

// Artifact describes a resolved build artifact.
type Artifact = build.Artifact

// Resolver produces an artifact for a model source.
type Resolver interface {
	Resolve(ctx context.Context, source string, force bool) (build.Artifact, error)
}

// Opener loads an artifact into the process.
type Opener func(path string) (*native.Boundary, error)

type options struct {
	force    bool
	root     string
	tool     string
	logger   zerolog.Logger
	bufSize  int
	resolver Resolver
	opener   Opener
}

// Option configures Compile, Open and NewModel.
type Option func(*options)

// WithForce rebuilds even when a fresh artifact exists.
func WithForce(force bool) Option { return func(o *options) { o.force = force } }

// WithStanRoot sets the build directory explicitly, overriding $STAN_ROOT.
func WithStanRoot(dir string) Option { return func(o *options) { o.root = dir } }

// WithTool sets the build tool executable (default "make").
func WithTool(tool string) Option { return func(o *options) { o.tool = tool } }

// WithLogger installs a structured logger.
func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.logger = l } }

// WithBufferSize sets the capacity of native error/output buffers.
func WithBufferSize(n int) Option { return func(o *options) { o.bufSize = n } }

// WithResolver replaces the artifact resolver; WithStanRoot and WithTool are
// then ignored.
func WithResolver(r Resolver) Option { return func(o *options) { o.resolver = r } }

// WithOpener replaces the artifact loader.
func WithOpener(fn Opener) Option { return func(o *options) { o.opener = fn } }

func collect(opts []Option) options {
	o := options{
		logger:  zerolog.Nop(),
		bufSize: native.DefaultBufferSize,
		opener:  native.Open,
	}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	if o.bufSize < native.MinBufferSize {
		o.bufSize = native.MinBufferSize
	}
	return o
}

// NewResolver returns the resolver Compile would use for opts. Concurrent
// builds of one artifact are deduplicated only within a single resolver, so
// long-lived callers should create one and pass it back with WithResolver.
func NewResolver(opts ...Option) Resolver {
	o := collect(opts)
	return o.resolverFor()
}

func (o *options) resolverFor() Resolver {
	if o.resolver != nil {
		return o.resolver
	}
	return build.New(build.Config{Root: o.root, Tool: o.tool, Logger: &o.logger})
}

// Compile resolves source to an artifact (building it when missing or stale),
// loads it, and returns an Empty session.
func Compile(ctx context.Context, source string, opts ...Option) (*Model, error) {
	o := collect(opts)
	art, err := o.resolverFor().Resolve(ctx, source, o.force)
	if err != nil {
		return nil, err
	}
	b, err := o.opener(art.Path)
	if err != nil {
		return nil, err
	}
	m := NewModel(b, opts...)
	m.artifact = art
	return m, nil
}

// Open loads an already-built artifact and returns an Empty session.
func Open(artifactPath string, opts ...Option) (*Model, error) {
	o := collect(opts)
	b, err := o.opener(artifactPath)
	if err != nil {
		return nil, err
	}
	return NewModel(b, opts...), nil
}
