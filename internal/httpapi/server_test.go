package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"stosh/internal/errs"
	"stosh/internal/manager"
	"stosh/pkg/types"
)

type mockService struct {
	models     []types.Model
	modelsErr  error
	status     types.StatusResponse
	ready      bool
	sessions   []types.SessionInfo
	compileErr error
	loadErr    error
	sampleErr  error
	closeErr   error
	runs       []types.Run

	lastCompile types.CompileRequest
	lastLoad    types.LoadDataRequest
	lastParams  map[string]any
	lastRunsQ   string
	lastLimit   int
}

func (m *mockService) ListModels() ([]types.Model, error) {
	return append([]types.Model(nil), m.models...), m.modelsErr
}
func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) Ready() bool                  { return m.ready }
func (m *mockService) Compile(ctx context.Context, req types.CompileRequest) (types.SessionInfo, error) {
	m.lastCompile = req
	if m.compileErr != nil {
		return types.SessionInfo{}, m.compileErr
	}
	return types.SessionInfo{ID: "S1", Model: req.Model, State: "empty"}, nil
}
func (m *mockService) LoadData(ctx context.Context, id string, req types.LoadDataRequest) (types.SessionInfo, error) {
	m.lastLoad = req
	if m.loadErr != nil {
		return types.SessionInfo{}, m.loadErr
	}
	if id != "S1" {
		return types.SessionInfo{}, manager.ErrSessionNotFound(id)
	}
	return types.SessionInfo{ID: id, State: "loaded"}, nil
}
func (m *mockService) Sample(ctx context.Context, id string, params map[string]any) (types.SampleResponse, error) {
	m.lastParams = params
	if m.sampleErr != nil {
		return types.SampleResponse{}, m.sampleErr
	}
	return types.SampleResponse{SessionID: id, OutputDir: "/tmp/out"}, nil
}
func (m *mockService) Get(id string) (types.SessionInfo, error) {
	for _, s := range m.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return types.SessionInfo{}, manager.ErrSessionNotFound(id)
}
func (m *mockService) List() []types.SessionInfo { return m.sessions }
func (m *mockService) CloseSession(id string) error {
	if m.closeErr != nil {
		return m.closeErr
	}
	if _, err := m.Get(id); err != nil {
		return err
	}
	return nil
}
func (m *mockService) Runs(ctx context.Context, sessionID string, limit int) ([]types.Run, error) {
	m.lastRunsQ, m.lastLimit = sessionID, limit
	return m.runs, nil
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.ErrorResponse {
	t.Helper()
	var e types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("error body not JSON: %v (%q)", err, w.Body.String())
	}
	return e
}

func TestModelsHandler(t *testing.T) {
	svc := &mockService{models: []types.Model{{ID: "m1"}, {ID: "m2"}}}
	w := do(t, NewMux(svc), http.MethodGet, "/models", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var body types.ModelsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body.Models) != 2 {
		t.Fatalf("models len=%d", len(body.Models))
	}
}

func TestModelsHandler_EmptyIsArray(t *testing.T) {
	w := do(t, NewMux(&mockService{}), http.MethodGet, "/models", "")
	if !strings.Contains(w.Body.String(), `"models":[]`) {
		t.Fatalf("body=%s", w.Body.String())
	}
}

func TestStatusHandler(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{Loaded: 2, SamplesTotal: 5}}
	w := do(t, NewMux(svc), http.MethodGet, "/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Loaded != 2 || body.SamplesTotal != 5 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestReadyz(t *testing.T) {
	w := do(t, NewMux(&mockService{ready: true}), http.MethodGet, "/readyz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	w = do(t, NewMux(&mockService{ready: false}), http.MethodGet, "/readyz", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	w := do(t, NewMux(&mockService{}), http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
}

func TestCompileHandler(t *testing.T) {
	svc := &mockService{}
	w := do(t, NewMux(svc), http.MethodPost, "/sessions", `{"model":"bernoulli","force":true}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if svc.lastCompile.Model != "bernoulli" || !svc.lastCompile.Force {
		t.Fatalf("request not forwarded: %+v", svc.lastCompile)
	}
	var info types.SessionInfo
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil || info.ID != "S1" {
		t.Fatalf("info=%+v err=%v", info, err)
	}
}

func TestCompileHandler_BuildFailureCarriesOutput(t *testing.T) {
	svc := &mockService{compileErr: errs.BuildFailed(errs.BuildOutput{
		Command: []string{"make", "examples/bad_model.so"}, Dir: "/opt/stan",
		Stdout: "--- Translating", Stderr: "Syntax error", ExitCode: 2,
	})}
	w := do(t, NewMux(svc), http.MethodPost, "/sessions", `{"model":"bad"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", w.Code)
	}
	e := decodeError(t, w)
	if e.Kind != "build_failed" || e.Build == nil || e.Build.Stderr != "Syntax error" || e.Build.ExitCode != 2 {
		t.Fatalf("unexpected error payload: %+v", e)
	}
}

func TestContentTypeAndBodyChecks(t *testing.T) {
	h := NewMux(&mockService{})
	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"model":"x"}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("missing content-type: status=%d", w.Code)
	}
	w = do(t, h, http.MethodPost, "/sessions", `{"model":`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad json: status=%d", w.Code)
	}

	SetMaxBodyBytes(16)
	defer SetMaxBodyBytes(0)
	w = do(t, h, http.MethodPost, "/sessions", `{"model":"`+strings.Repeat("x", 64)+`"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("oversized body: status=%d", w.Code)
	}
}

func TestLoadDataAndSampleHandlers(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc)
	w := do(t, h, http.MethodPost, "/sessions/S1/data", `{"data_path":"/d.json","seed":7}`)
	if w.Code != http.StatusOK {
		t.Fatalf("load status=%d body=%s", w.Code, w.Body.String())
	}
	if svc.lastLoad.DataPath != "/d.json" || svc.lastLoad.Seed == nil || *svc.lastLoad.Seed != 7 {
		t.Fatalf("load request=%+v", svc.lastLoad)
	}
	w = do(t, h, http.MethodPost, "/sessions/S1/sample", `{"params":{"warmup":100,"adapt":true}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("sample status=%d body=%s", w.Code, w.Body.String())
	}
	if svc.lastParams["warmup"] != float64(100) || svc.lastParams["adapt"] != true {
		t.Fatalf("params=%v", svc.lastParams)
	}
	var res types.SampleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil || res.OutputDir != "/tmp/out" {
		t.Fatalf("res=%+v err=%v", res, err)
	}
}

func TestGetAndDeleteSession(t *testing.T) {
	svc := &mockService{sessions: []types.SessionInfo{{ID: "S1", State: "loaded"}}}
	h := NewMux(svc)
	if w := do(t, h, http.MethodGet, "/sessions/S1", ""); w.Code != http.StatusOK {
		t.Fatalf("get status=%d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/sessions", ""); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"S1"`) {
		t.Fatalf("list status=%d body=%s", w.Code, w.Body.String())
	}
	if w := do(t, h, http.MethodDelete, "/sessions/S1", ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", w.Code)
	}
	w := do(t, h, http.MethodDelete, "/sessions/S9", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("delete unknown status=%d", w.Code)
	}
}

func TestRunsHandler(t *testing.T) {
	svc := &mockService{runs: []types.Run{{ID: "R1", Status: "ok"}}}
	h := NewMux(svc)
	w := do(t, h, http.MethodGet, "/runs?session=S1&limit=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if svc.lastRunsQ != "S1" || svc.lastLimit != 5 {
		t.Fatalf("query not forwarded: %q %d", svc.lastRunsQ, svc.lastLimit)
	}
	var body types.RunsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || len(body.Runs) != 1 {
		t.Fatalf("body=%s err=%v", w.Body.String(), err)
	}
	if w := do(t, h, http.MethodGet, "/runs?limit=-1", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status=%d", w.Code)
	}
}
