package stosh

import (
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stosh/internal/errs"
	"stosh/internal/native"
)

// State is the lifecycle state of a Model.
type State int

const (
	// StateEmpty: no native handle is held.
	StateEmpty State = iota
	// StateLoaded: exactly one live native handle is held.
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	}
	return "unknown"
}

// Result is the outcome of a successful sampling run.
type Result struct {
	// OutputLocation is where the sampler wrote its output, as reported by
	// the native side.
	OutputLocation string `json:"output_dir"`
}

// owned is the single owner of a native handle. It is referenced only by its
// Model, so the handle can never be duplicated or freed twice.
type owned struct {
	b   *native.Boundary
	h   native.Handle
	log zerolog.Logger
}

func (o *owned) set(h native.Handle) {
	o.h = h
	liveHandles.Inc()
}

// release frees the held handle, if any, exactly once.
func (o *owned) release() bool {
	if o.h == nil {
		return false
	}
	o.b.FreeModel(o.h)
	o.h = nil
	liveHandles.Dec()
	nativeCalls.WithLabelValues("free_model", "ok").Inc()
	return true
}

// Model is a session over one loaded artifact. It owns at most one native
// handle at a time. All methods are safe for concurrent use; they are
// serialized by an internal lock.
type Model struct {
	mu       sync.Mutex
	b        *native.Boundary
	res      *owned
	bufSize  int
	log      zerolog.Logger
	artifact Artifact
}

// NewModel starts an empty session over an already-loaded boundary.
func NewModel(b *native.Boundary, opts ...Option) *Model {
	o := collect(opts)
	m := &Model{
		b:        b,
		bufSize:  o.bufSize,
		log:      o.logger.With().Str("artifact", b.Path()).Logger(),
		artifact: Artifact{Path: b.Path()},
	}
	m.res = &owned{b: b, log: m.log}
	// Safety net for sessions dropped without Close; Close stays the contract.
	runtime.AddCleanup(m, func(o *owned) {
		if o.h != nil {
			o.log.Warn().Msg("model dropped without Close; releasing native handle")
			o.release()
		}
	}, m.res)
	return m
}

// Artifact describes the binary this session was loaded from.
func (m *Model) Artifact() Artifact { return m.artifact }

// State reports whether a native handle is currently held.
func (m *Model) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.res.h == nil {
		return StateEmpty
	}
	return StateLoaded
}

// LoadData loads data into a fresh native model. Any handle already held is
// released first, unconditionally, so a failed load leaves the session Empty
// and never with two live handles. A nil src is NoData().
func (m *Model) LoadData(src DataSource, seed uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.res.release() {
		m.log.Debug().Msg("released previous model before reload")
	}

	var path string
	switch s := src.(type) {
	case nil, noData:
	case dataFile:
		path = string(s)
		if strings.IndexByte(path, 0) >= 0 {
			return errs.New(errs.ErrInvalidInput, "data file path contains a NUL byte")
		}
	case dataValues:
		return errs.New(errs.ErrUnsupportedInput,
			"in-memory data is not supported; provide a JSON data file path")
	default:
		return errs.Newf(errs.ErrInvalidInput, "unsupported data source %T", src)
	}

	errBuf := native.NewBuffer(m.bufSize)
	h := m.b.LoadModel(path, seed, errBuf)
	if h == nil {
		msg := errBuf.String()
		nativeCalls.WithLabelValues("load_model", "error").Inc()
		m.log.Debug().Str("data", path).Uint32("seed", seed).Str("native_error", msg).Msg("load failed")
		return errs.New(errs.ErrDataLoadFailed, msg)
	}
	m.res.set(h)
	nativeCalls.WithLabelValues("load_model", "ok").Inc()
	m.log.Debug().Str("data", path).Uint32("seed", seed).Msg("data loaded")
	return nil
}

// Sample runs the sampler with params against the loaded data. A failed run
// leaves the loaded data intact.
func (m *Model) Sample(params Params) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.res.h == nil {
		return Result{}, errs.New(errs.ErrNoDataLoaded, "call LoadData first")
	}
	args, err := params.marshal()
	if err != nil {
		return Result{}, err
	}

	outBuf := native.NewBuffer(m.bufSize)
	errBuf := native.NewBuffer(m.bufSize)
	start := time.Now()
	rc := m.b.RunSampler(m.res.h, args, outBuf, errBuf)
	dur := time.Since(start)
	sampleDuration.Observe(dur.Seconds())
	if rc != 0 {
		msg := errBuf.String()
		nativeCalls.WithLabelValues("run_samplers", "error").Inc()
		m.log.Debug().Int("status", rc).Str("native_error", msg).Dur("dur", dur).Msg("sampling failed")
		return Result{}, errs.New(errs.ErrSamplingFailed, msg)
	}
	nativeCalls.WithLabelValues("run_samplers", "ok").Inc()
	res := Result{OutputLocation: outBuf.String()}
	m.log.Debug().Int("params", args.Len()).Str("output", res.OutputLocation).Dur("dur", dur).Msg("sampling completed")
	return res, nil
}

// Name returns the native-reported model name. It is absent when the artifact
// lacks the optional entry point or no data is loaded.
func (m *Model) Name() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.b.ModelName(m.res.h)
}

// Close releases the native handle if one is held. It is idempotent. The
// session may be reused with LoadData afterwards.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.res.release() {
		m.log.Debug().Msg("model released")
	}
	return nil
}
