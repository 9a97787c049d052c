// Package native loads a built model artifact into the process and exposes
// its C entry points with fixed Go signatures.
//
// The artifact must export:
//
//	void* stosh_load_model(const char* data, unsigned int seed, char* err, size_t errlen);
//	int   stosh_run_samplers(void* model, const char** keys, const char** values, int n,
//	                         char* out, size_t outlen, char* err, size_t errlen);
//	void  stosh_free_model(void* model);
//
// and may export
//
//	const char* stosh_get_model_name(void* model);
//
// A Boundary holds only resolved entry points; it never holds model state and
// may back any number of sessions. Loaded artifacts stay mapped for the life
// of the process.
package native

import (
	"unsafe"

	"stosh/internal/common/fsutil"
	"stosh/internal/errs"
)

// Exported symbol names.
const (
	SymLoadModel    = "stosh_load_model"
	SymRunSampler   = "stosh_run_samplers"
	SymFreeModel    = "stosh_free_model"
	SymGetModelName = "stosh_get_model_name"
)

// Handle is an opaque reference to native model state. A nil Handle means
// no state was allocated.
type Handle unsafe.Pointer

// Args is the marshalled parameter form: two parallel arrays of text.
type Args struct {
	Keys   []string
	Values []string
}

// Len returns the number of key/value pairs.
func (a Args) Len() int { return len(a.Keys) }

// EntryPoints are the typed native calls. Implementations write result text
// into the supplied buffers and never retain them.
type EntryPoints interface {
	LoadModel(dataPath string, seed uint32, errBuf *Buffer) Handle
	RunSampler(h Handle, args Args, outBuf, errBuf *Buffer) int
	FreeModel(h Handle)
	// ModelName is only called when the name capability was resolved.
	ModelName(h Handle) (string, bool)
}

// Boundary is a loaded artifact with its entry points resolved once.
type Boundary struct {
	path    string
	ep      EntryPoints
	hasName bool
}

// Open loads the artifact at path and resolves its entry points. Failures
// are errs.ErrLoad.
func Open(path string) (*Boundary, error) {
	if !fsutil.IsFile(path) {
		return nil, errs.Newf(errs.ErrLoad, "artifact not found: %s", path)
	}
	ep, hasName, err := openLibrary(path)
	if err != nil {
		return nil, err
	}
	return &Boundary{path: path, ep: ep, hasName: hasName}, nil
}

// New wraps already-resolved entry points, e.g. an in-process implementation.
func New(path string, ep EntryPoints, hasModelName bool) *Boundary {
	return &Boundary{path: path, ep: ep, hasName: hasModelName}
}

// Path returns the artifact path this boundary was loaded from.
func (b *Boundary) Path() string { return b.path }

// HasModelName reports whether the optional name entry point was found.
func (b *Boundary) HasModelName() bool { return b.hasName }

func (b *Boundary) LoadModel(dataPath string, seed uint32, errBuf *Buffer) Handle {
	return b.ep.LoadModel(dataPath, seed, errBuf)
}

func (b *Boundary) RunSampler(h Handle, args Args, outBuf, errBuf *Buffer) int {
	return b.ep.RunSampler(h, args, outBuf, errBuf)
}

func (b *Boundary) FreeModel(h Handle) {
	if h == nil {
		return
	}
	b.ep.FreeModel(h)
}

// ModelName returns the native-reported name, or false when the capability
// is absent, h is nil, or the native side returned no name.
func (b *Boundary) ModelName(h Handle) (string, bool) {
	if !b.hasName || h == nil {
		return "", false
	}
	return b.ep.ModelName(h)
}
