package manager

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"unsafe"

	"stosh/internal/build"
	"stosh/internal/errs"
	"stosh/internal/native"
	"stosh/pkg/stosh"
)

type fakeHandle struct{ data string }

// fakeNative is a lightweight in-memory model library used for tests.
type fakeNative struct {
	mu      sync.Mutex
	loads   []string
	runs    [][]string
	frees   int
	loadErr string
	runErr  string
	output  string
}

func (f *fakeNative) LoadModel(dataPath string, seed uint32, errBuf *native.Buffer) native.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, dataPath)
	if f.loadErr != "" {
		errBuf.WriteString(f.loadErr)
		return nil
	}
	return native.Handle(unsafe.Pointer(&fakeHandle{data: dataPath}))
}

func (f *fakeNative) RunSampler(h native.Handle, args native.Args, outBuf, errBuf *native.Buffer) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, args.Keys)
	if f.runErr != "" {
		errBuf.WriteString(f.runErr)
		return 1
	}
	outBuf.WriteString(f.output)
	return 0
}

func (f *fakeNative) FreeModel(h native.Handle) {
	f.mu.Lock()
	f.frees++
	f.mu.Unlock()
}

func (f *fakeNative) ModelName(h native.Handle) (string, bool) {
	return "fake_model", true
}

func (f *fakeNative) freeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frees
}

// fakeCompile returns a CompileFunc that skips the build tool and loads fn.
func fakeCompile(fn *fakeNative, compileErr error) CompileFunc {
	return func(ctx context.Context, source string, opts ...stosh.Option) (*stosh.Model, error) {
		if compileErr != nil {
			return nil, compileErr
		}
		opts = append(opts, stosh.WithOpener(func(path string) (*native.Boundary, error) {
			return native.New(path, fn, true), nil
		}))
		return stosh.Open(build.ArtifactPath(source), opts...)
	}
}

// modelsDir creates a directory with bernoulli.stan + data and bare.stan.
func modelsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{
		"bernoulli.stan":      "model {}",
		"bernoulli.data.json": `{"N":10}`,
		"bare.stan":           "model {}",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return dir
}

func newTestManager(t *testing.T, fn *fakeNative, runs RunRecorder) (*Manager, *MemoryPublisher) {
	t.Helper()
	pub := NewMemoryPublisher()
	m := New(Config{
		ModelsDir: modelsDir(t),
		Compile:   fakeCompile(fn, nil),
		Runs:      runs,
		Publisher: pub,
	})
	t.Cleanup(func() { _ = m.Close() })
	return m, pub
}

var errBuild = errs.BuildFailed(errs.BuildOutput{Command: []string{"make", "x"}, ExitCode: 2})
