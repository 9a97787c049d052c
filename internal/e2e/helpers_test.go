package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
	"unsafe"

	"stosh/internal/build"
	"stosh/internal/httpapi"
	"stosh/internal/manager"
	"stosh/internal/native"
	"stosh/internal/runstore"
	"stosh/pkg/stosh"
)

// makeRunner stands in for the build tool; it writes the artifact unless
// told to fail.
type makeRunner struct {
	mu       sync.Mutex
	calls    []build.Invocation
	exitCode int
}

func (r *makeRunner) Run(ctx context.Context, inv build.Invocation) (build.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, inv)
	if r.exitCode != 0 {
		return build.Result{Stdout: "--- Translating Stan model", Stderr: "Semantic error", ExitCode: r.exitCode}, nil
	}
	target := filepath.Join(inv.Dir, inv.Args[len(inv.Args)-1])
	return build.Result{Stdout: "--- Compiling"}, os.WriteFile(target, []byte("\x7fELF"), 0o755)
}

func (r *makeRunner) setExit(code int) {
	r.mu.Lock()
	r.exitCode = code
	r.mu.Unlock()
}

func (r *makeRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type handle struct{ seed uint32 }

// sampler is an in-process model library honoring the native contract.
type sampler struct {
	mu      sync.Mutex
	live    int
	loadErr string
}

func (s *sampler) LoadModel(dataPath string, seed uint32, errBuf *native.Buffer) native.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != "" {
		errBuf.WriteString(s.loadErr)
		return nil
	}
	s.live++
	return native.Handle(unsafe.Pointer(&handle{seed: seed}))
}

func (s *sampler) RunSampler(h native.Handle, args native.Args, outBuf, errBuf *native.Buffer) int {
	for i, k := range args.Keys {
		if k == "num_chains" && args.Values[i] == "0" {
			errBuf.WriteString("num_chains must be positive")
			return 1
		}
	}
	outBuf.WriteString("/tmp/stosh/bernoulli-output")
	return 0
}

func (s *sampler) FreeModel(h native.Handle) {
	s.mu.Lock()
	s.live--
	s.mu.Unlock()
}

func (s *sampler) ModelName(h native.Handle) (string, bool) { return "bernoulli_model", true }

func (s *sampler) liveHandles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

type fixture struct {
	srv     *httptest.Server
	mgr     *manager.Manager
	runner  *makeRunner
	sampler *sampler
	source  string
}

// newFixture lays out a build root with a makefile and an examples/ models
// directory, then serves a manager over it.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, build.Descriptor), []byte("%_model.so: %.stan\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	models := filepath.Join(root, "examples")
	if err := os.MkdirAll(models, 0o755); err != nil {
		t.Fatal(err)
	}
	source := filepath.Join(models, "bernoulli.stan")
	files := map[string]string{
		source: "data { int N; } parameters { real<lower=0,upper=1> theta; }",
		filepath.Join(models, "bernoulli.data.json"): `{"N":10,"y":[0,1,0,0,0,0,0,0,0,1]}`,
	}
	past := time.Now().Add(-time.Hour)
	for p, body := range files {
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatal(err)
		}
	}

	store, err := runstore.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open runstore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{runner: &makeRunner{}, sampler: &sampler{}, source: source}
	resolver := build.New(build.Config{
		Root:   root,
		Runner: f.runner,
		Getenv: func(string) string { return "" },
	})
	f.mgr = manager.New(manager.Config{
		ModelsDir:  models,
		AllowPaths: true,
		Options: []stosh.Option{
			stosh.WithResolver(resolver),
			stosh.WithOpener(func(path string) (*native.Boundary, error) {
				return native.New(path, f.sampler, true), nil
			}),
		},
		Runs: store,
	})
	t.Cleanup(func() { _ = f.mgr.Close() })
	f.srv = httptest.NewServer(httpapi.NewMux(f.mgr))
	t.Cleanup(f.srv.Close)
	return f
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func httpPost(t *testing.T, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func httpDelete(t *testing.T, url string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodDelete, url, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE %s: %v", url, err)
	}
	resp.Body.Close()
	return resp
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("decode %T: %v (%s)", v, err, b)
	}
	return v
}
