package stosh

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"stosh/internal/native"
)

// stubModel is the native state a recorder hands out.
type stubModel struct {
	id    int
	data  string
	seed  uint32
	freed bool
}

// recorder is an in-process native.EntryPoints that logs the call order and
// behaves like a well-behaved native library.
type recorder struct {
	mu           sync.Mutex
	calls        []string
	models       []*stubModel
	args         []native.Args
	frees        map[int]int
	useAfterFree int
	loadErr      string // when set, load_model returns NULL with this message
	runRC        int
	runErr       string
	output       string
	name         string
}

func newRecorder() *recorder {
	return &recorder{frees: make(map[int]int), output: "/tmp/stosh/output"}
}

func (r *recorder) boundary(hasName bool) *native.Boundary {
	return native.New("/models/stub_model.so", r, hasName)
}

func (r *recorder) record(format string, a ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, a...))
}

func (r *recorder) LoadModel(dataPath string, seed uint32, errBuf *native.Buffer) native.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("load(%s,%d)", dataPath, seed)
	if r.loadErr != "" {
		errBuf.WriteString(r.loadErr)
		return nil
	}
	m := &stubModel{id: len(r.models) + 1, data: dataPath, seed: seed}
	r.models = append(r.models, m)
	return native.Handle(unsafe.Pointer(m))
}

func (r *recorder) RunSampler(h native.Handle, args native.Args, outBuf, errBuf *native.Buffer) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := (*stubModel)(unsafe.Pointer(h))
	r.record("run(%d,%s)", m.id, strings.Join(args.Keys, ","))
	r.args = append(r.args, args)
	if m.freed {
		r.useAfterFree++
		errBuf.WriteString("use after free")
		return -1
	}
	if r.runRC != 0 {
		errBuf.WriteString(r.runErr)
		return r.runRC
	}
	outBuf.WriteString(r.output)
	return 0
}

func (r *recorder) FreeModel(h native.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := (*stubModel)(unsafe.Pointer(h))
	r.record("free(%d)", m.id)
	m.freed = true
	r.frees[m.id]++
}

func (r *recorder) ModelName(h native.Handle) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name, r.name != ""
}

func (r *recorder) callLog() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}
