package manager

import (
	"context"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"stosh/internal/runstore"
	"stosh/pkg/stosh"
	"stosh/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultSeed uint32 = 12345
)

// CompileFunc turns a model source into a session. stosh.Compile satisfies it.
type CompileFunc func(ctx context.Context, source string, opts ...stosh.Option) (*stosh.Model, error)

// RunRecorder persists sampling runs. *runstore.Store satisfies it.
type RunRecorder interface {
	Record(ctx context.Context, r runstore.Run) (runstore.Run, error)
	List(ctx context.Context, p runstore.ListParams) ([]runstore.Run, error)
}

// Config encapsulates all tunables for Manager construction.
type Config struct {
	// Registry is a fixed model list. When ModelsDir is set it is rescanned
	// on every listing instead, so Compiled flags stay current.
	Registry  []types.Model
	ModelsDir string
	// AllowPaths lets CompileRequest.Model name a .stan path outside the registry.
	AllowPaths bool
	// Options are passed to every compile (build root, tool, buffers, logger).
	Options []stosh.Option
	// Resolver is shared by every compile so concurrent builds of one model
	// run the build tool once. Built from Options when nil.
	Resolver    stosh.Resolver
	Compile     CompileFunc
	DefaultSeed uint32
	Runs        RunRecorder
	Publisher   EventPublisher
	Logger      *zerolog.Logger
}

// New constructs a Manager from Config.
func New(cfg Config) *Manager {
	m := &Manager{
		registry:   cfg.Registry,
		modelsDir:  cfg.ModelsDir,
		allowPaths: cfg.AllowPaths,
		compile:    cfg.Compile,
		seed:       cfg.DefaultSeed,
		runs:       cfg.Runs,
		publisher:  cfg.Publisher,
		sessions:   make(map[string]*session),
		startTime:  time.Now(),
	}
	r := cfg.Resolver
	if r == nil {
		r = stosh.NewResolver(cfg.Options...)
	}
	m.options = append(append([]stosh.Option(nil), cfg.Options...), stosh.WithResolver(r))
	if m.compile == nil {
		m.compile = stosh.Compile
	}
	if m.seed == 0 {
		m.seed = defaultSeed
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if cfg.Logger != nil {
		m.log = *cfg.Logger
	} else {
		m.log = zerolog.Nop()
	}
	m.entropy = ulid.Monotonic(rand.New(rand.NewSource(m.startTime.UnixNano())), 0)
	return m
}
