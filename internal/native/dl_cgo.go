//go:build cgo && (linux || darwin || freebsd)

package native

/*
#cgo linux LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>
#include <stddef.h>
#include <stdio.h>

typedef void* (*st_load_model_fn)(const char*, unsigned int, char*, size_t);
typedef int (*st_run_samplers_fn)(void*, const char**, const char**, int, char*, size_t, char*, size_t);
typedef void (*st_free_model_fn)(void*);
typedef const char* (*st_get_model_name_fn)(void*);

// dlerror is thread-local, so its text is copied out on the calling thread.
static void* st_dlopen(const char* path, char* err, size_t errlen) {
	dlerror();
	void* h = dlopen(path, RTLD_NOW | RTLD_LOCAL);
	if (!h) {
		const char* e = dlerror();
		snprintf(err, errlen, "%s", e ? e : "unknown dlopen error");
	}
	return h;
}

// Clear dlerror, call dlsym, and copy the error (if any) into err.
static void* st_dlsym(void* h, const char* name, char* err, size_t errlen) {
	dlerror();
	void* p = dlsym(h, name);
	const char* e = dlerror();
	if (e) {
		snprintf(err, errlen, "%s", e);
		return NULL;
	}
	return p;
}

// Call trampolines: cgo cannot call C function pointers directly.
static void* st_call_load(void* fn, const char* data, unsigned int seed, char* err, size_t errlen) {
	return ((st_load_model_fn)fn)(data, seed, err, errlen);
}
static int st_call_run(void* fn, void* h, const char** keys, const char** values, int n,
		char* out, size_t outlen, char* err, size_t errlen) {
	return ((st_run_samplers_fn)fn)(h, keys, values, n, out, outlen, err, errlen);
}
static void st_call_free(void* fn, void* h) {
	((st_free_model_fn)fn)(h);
}
static const char* st_call_name(void* fn, void* h) {
	return ((st_get_model_name_fn)fn)(h);
}
*/
import "C"

import (
	"unsafe"

	"stosh/internal/errs"
)

// dlLibrary calls entry points resolved from a dlopen'ed artifact.
type dlLibrary struct {
	lib     unsafe.Pointer
	load    unsafe.Pointer
	run     unsafe.Pointer
	free    unsafe.Pointer
	getName unsafe.Pointer // nil when the optional symbol is absent
}

func openLibrary(path string) (EntryPoints, bool, error) {
	cs := C.CString(path)
	defer C.free(unsafe.Pointer(cs))
	errBuf := NewBuffer(DefaultBufferSize)
	ep, en := bufPtr(errBuf)
	h := C.st_dlopen(cs, ep, en)
	if h == nil {
		return nil, false, errs.Newf(errs.ErrLoad, "failed to load compiled model %s: %s", path, errBuf.String())
	}
	l := &dlLibrary{lib: h}
	required := []struct {
		name string
		dst  *unsafe.Pointer
	}{
		{SymLoadModel, &l.load},
		{SymRunSampler, &l.run},
		{SymFreeModel, &l.free},
	}
	for _, r := range required {
		p, err := symbol(h, r.name)
		if err != nil {
			// The artifact is left mapped: unloading a library whose static
			// initializers have run is not reliably safe.
			return nil, false, errs.Newf(errs.ErrLoad, "%s: missing entry point %s: %s", path, r.name, err.Error())
		}
		*r.dst = p
	}
	if p, err := symbol(h, SymGetModelName); err == nil {
		l.getName = p
	}
	return l, l.getName != nil, nil
}

type dlsymError string

func (e dlsymError) Error() string { return string(e) }

func symbol(lib unsafe.Pointer, name string) (unsafe.Pointer, error) {
	cs := C.CString(name)
	defer C.free(unsafe.Pointer(cs))
	errBuf := NewBuffer(DefaultBufferSize)
	ep, en := bufPtr(errBuf)
	p := C.st_dlsym(lib, cs, ep, en)
	if msg := errBuf.String(); msg != "" {
		return nil, dlsymError(msg)
	}
	if p == nil {
		return nil, dlsymError("symbol resolved to NULL")
	}
	return p, nil
}

func bufPtr(b *Buffer) (*C.char, C.size_t) {
	raw := b.Bytes()
	return (*C.char)(unsafe.Pointer(&raw[0])), C.size_t(len(raw))
}

func (l *dlLibrary) LoadModel(dataPath string, seed uint32, errBuf *Buffer) Handle {
	cdata := C.CString(dataPath)
	defer C.free(unsafe.Pointer(cdata))
	ep, en := bufPtr(errBuf)
	return Handle(C.st_call_load(l.load, cdata, C.uint(seed), ep, en))
}

func (l *dlLibrary) RunSampler(h Handle, args Args, outBuf, errBuf *Buffer) int {
	n := args.Len()
	var keys, values **C.char
	if n > 0 {
		ptrSize := C.size_t(unsafe.Sizeof((*C.char)(nil)))
		keys = (**C.char)(C.malloc(C.size_t(n) * ptrSize))
		values = (**C.char)(C.malloc(C.size_t(n) * ptrSize))
		ks := unsafe.Slice(keys, n)
		vs := unsafe.Slice(values, n)
		for i := 0; i < n; i++ {
			ks[i] = C.CString(args.Keys[i])
			vs[i] = C.CString(args.Values[i])
		}
		defer func() {
			for i := 0; i < n; i++ {
				C.free(unsafe.Pointer(ks[i]))
				C.free(unsafe.Pointer(vs[i]))
			}
			C.free(unsafe.Pointer(keys))
			C.free(unsafe.Pointer(values))
		}()
	}
	op, on := bufPtr(outBuf)
	ep, en := bufPtr(errBuf)
	rc := C.st_call_run(l.run, unsafe.Pointer(h), keys, values, C.int(n), op, on, ep, en)
	return int(rc)
}

func (l *dlLibrary) FreeModel(h Handle) {
	C.st_call_free(l.free, unsafe.Pointer(h))
}

func (l *dlLibrary) ModelName(h Handle) (string, bool) {
	if l.getName == nil {
		return "", false
	}
	p := C.st_call_name(l.getName, unsafe.Pointer(h))
	if p == nil {
		return "", false
	}
	return C.GoString(p), true
}
