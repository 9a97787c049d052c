package manager

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"stosh/internal/build"
	"stosh/internal/errs"
	"stosh/internal/registry"
	"stosh/internal/runstore"
	"stosh/pkg/stosh"
	"stosh/pkg/types"
)

type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session
	closed   bool
	err      string

	registry   []types.Model
	modelsDir  string
	allowPaths bool
	options    []stosh.Option
	compile    CompileFunc
	seed       uint32
	runs       RunRecorder
	publisher  EventPublisher
	log        zerolog.Logger

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy

	startTime     time.Time
	compilesTotal uint64
	samplesTotal  uint64
}

// SetEventPublisher replaces the event sink; nil restores the no-op default.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p == nil {
		p = noopPublisher{}
	}
	m.publisher = p
}

func (m *Manager) publish(e Event) {
	m.mu.RLock()
	p := m.publisher
	m.mu.RUnlock()
	p.Publish(e)
}

func (m *Manager) newID() string {
	m.idMu.Lock()
	defer m.idMu.Unlock()
	return ulid.MustNew(ulid.Now(), m.entropy).String()
}

func (m *Manager) setErr(err error) {
	m.mu.Lock()
	m.err = err.Error()
	m.mu.Unlock()
}

// Ready reports whether the manager accepts work.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.closed
}

// ListModels returns the known model sources.
func (m *Manager) ListModels() ([]types.Model, error) {
	if m.modelsDir != "" {
		return registry.LoadDir(m.modelsDir)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	// return a shallow copy to avoid external mutation
	out := make([]types.Model, len(m.registry))
	copy(out, m.registry)
	return out, nil
}

func (m *Manager) lookupModel(ref string) (types.Model, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return types.Model{}, errs.New(errs.ErrInvalidInput, "model is required")
	}
	models, err := m.ListModels()
	if err != nil {
		return types.Model{}, err
	}
	if mdl, ok := registry.Find(models, ref); ok {
		return mdl, nil
	}
	if m.allowPaths && strings.HasSuffix(ref, build.SourceExt) {
		return registry.Describe(ref)
	}
	return types.Model{}, ErrModelNotFound(ref)
}

func (m *Manager) get(id string) (*session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	s := m.sessions[id]
	if s == nil {
		return nil, ErrSessionNotFound(id)
	}
	return s, nil
}

// Compile resolves and loads a model and registers a new Empty session.
func (m *Manager) Compile(ctx context.Context, req types.CompileRequest) (types.SessionInfo, error) {
	if !m.Ready() {
		return types.SessionInfo{}, ErrClosed
	}
	mdl, err := m.lookupModel(req.Model)
	if err != nil {
		return types.SessionInfo{}, err
	}
	opts := append(append([]stosh.Option(nil), m.options...), stosh.WithForce(req.Force))
	start := time.Now()
	sm, err := m.compile(ctx, mdl.Path, opts...)
	if err != nil {
		m.setErr(err)
		m.log.Error().Err(err).Str("model", mdl.ID).Msg("compile failed")
		return types.SessionInfo{}, err
	}
	now := time.Now()
	s := &session{id: m.newID(), model: mdl, m: sm, created: now, lastUsed: now}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = sm.Close()
		return types.SessionInfo{}, ErrClosed
	}
	m.sessions[s.id] = s
	m.compilesTotal++
	m.mu.Unlock()

	art := sm.Artifact()
	m.log.Info().Str("session", s.id).Str("model", mdl.ID).Bool("built", art.Built).
		Dur("dur", time.Since(start)).Msg("session created")
	m.publish(Event{Name: EventCompiled, SessionID: s.id, Fields: map[string]any{
		"model": mdl.ID, "artifact": art.Path, "built": art.Built,
	}})
	return s.info(), nil
}

// LoadData loads data into a session. With no data path and no in-memory
// data, the model's sibling data file is used when one exists.
func (m *Manager) LoadData(ctx context.Context, id string, req types.LoadDataRequest) (types.SessionInfo, error) {
	s, err := m.get(id)
	if err != nil {
		return types.SessionInfo{}, err
	}
	var src stosh.DataSource
	switch {
	case req.Data != nil:
		src = stosh.DataValues(req.Data)
	case req.DataPath != "":
		src = stosh.DataFile(req.DataPath)
	case s.model.DataPath != "":
		src = stosh.DataFile(s.model.DataPath)
	default:
		src = stosh.NoData()
	}
	seed := m.seed
	if req.Seed != nil {
		seed = *req.Seed
	}
	err = s.m.LoadData(src, seed)
	s.touch(false)
	if err != nil {
		m.setErr(err)
		return types.SessionInfo{}, err
	}
	m.publish(Event{Name: EventDataLoaded, SessionID: id, Fields: map[string]any{"seed": seed}})
	return s.info(), nil
}

// Sample runs the sampler on a session and records the run.
func (m *Manager) Sample(ctx context.Context, id string, params map[string]any) (types.SampleResponse, error) {
	s, err := m.get(id)
	if err != nil {
		return types.SampleResponse{}, err
	}
	p, err := stosh.ParamsFromMap(params)
	if err != nil {
		return types.SampleResponse{}, err
	}
	start := time.Now()
	res, err := s.m.Sample(p)
	dur := time.Since(start)
	s.touch(err == nil)
	if errors.Is(err, errs.ErrNoDataLoaded) || errors.Is(err, errs.ErrInvalidInput) {
		// no native run happened
		return types.SampleResponse{}, err
	}

	m.mu.Lock()
	m.samplesTotal++
	m.mu.Unlock()

	run := runstore.Run{
		SessionID: id,
		Model:     s.model.ID,
		Artifact:  s.m.Artifact().Path,
		Params:    pairsMap(p),
		Output:    res.OutputLocation,
		StartedAt: start,
		Duration:  dur,
		Status:    runstore.StatusOK,
	}
	if err != nil {
		run.Status = runstore.StatusError
		run.ErrorKind = errs.Code(err)
		run.Error = errs.Message(err)
	}
	runID := m.record(ctx, run)

	if err != nil {
		m.setErr(err)
		m.publish(Event{Name: EventSampleFailed, SessionID: id, Fields: map[string]any{"error": errs.Message(err), "run_id": runID}})
		return types.SampleResponse{}, err
	}
	m.publish(Event{Name: EventSampled, SessionID: id, Fields: map[string]any{"output": res.OutputLocation, "run_id": runID}})
	return types.SampleResponse{
		SessionID:  id,
		RunID:      runID,
		OutputDir:  res.OutputLocation,
		DurationMS: dur.Milliseconds(),
	}, nil
}

func (m *Manager) record(ctx context.Context, run runstore.Run) string {
	if m.runs == nil {
		return ""
	}
	saved, err := m.runs.Record(ctx, run)
	if err != nil {
		// a ledger failure never fails the sample itself
		m.log.Warn().Err(err).Str("session", run.SessionID).Msg("record run failed")
		return ""
	}
	return saved.ID
}

func pairsMap(p stosh.Params) map[string]string {
	if p.Len() == 0 {
		return nil
	}
	out := make(map[string]string, p.Len())
	for _, kv := range p.Pairs() {
		out[kv.Key] = kv.Value
	}
	return out
}

// Get returns a session summary.
func (m *Manager) Get(id string) (types.SessionInfo, error) {
	s, err := m.get(id)
	if err != nil {
		return types.SessionInfo{}, err
	}
	return s.info(), nil
}

// List returns all live sessions ordered by id (creation order).
func (m *Manager) List() []types.SessionInfo {
	m.mu.RLock()
	ss := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		ss = append(ss, s)
	}
	m.mu.RUnlock()
	sort.Slice(ss, func(i, j int) bool { return ss[i].id < ss[j].id })
	out := make([]types.SessionInfo, 0, len(ss))
	for _, s := range ss {
		out = append(out, s.info())
	}
	return out
}

// CloseSession releases a session's native handle and forgets it.
func (m *Manager) CloseSession(id string) error {
	m.mu.Lock()
	s := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if s == nil {
		return ErrSessionNotFound(id)
	}
	err := s.m.Close()
	m.publish(Event{Name: EventClosed, SessionID: id, Fields: map[string]any{"model": s.model.ID}})
	return err
}

// Runs lists recorded runs newest first; empty when no ledger is configured.
func (m *Manager) Runs(ctx context.Context, sessionID string, limit int) ([]types.Run, error) {
	if m.runs == nil {
		return []types.Run{}, nil
	}
	rs, err := m.runs.List(ctx, runstore.ListParams{SessionID: sessionID, Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]types.Run, 0, len(rs))
	for _, r := range rs {
		out = append(out, types.Run{
			ID:          r.ID,
			SessionID:   r.SessionID,
			Model:       r.Model,
			Artifact:    r.Artifact,
			Params:      r.Params,
			Status:      r.Status,
			Output:      r.Output,
			ErrorKind:   r.ErrorKind,
			Error:       r.Error,
			StartedUnix: r.StartedAt.Unix(),
			DurationMS:  r.Duration.Milliseconds(),
		})
	}
	return out, nil
}

// Close releases every session. Further operations return ErrClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	ss := m.sessions
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	var errList []error
	for id, s := range ss {
		if err := s.m.Close(); err != nil {
			errList = append(errList, err)
		}
		m.publish(Event{Name: EventClosed, SessionID: id, Fields: map[string]any{"model": s.model.ID}})
	}
	return errors.Join(errList...)
}
