//go:build cgo && (linux || darwin || freebsd)

package native

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"stosh/internal/errs"
)

// fixtureSource is a tiny stand-in for a built model artifact. Loading with
// seed 0 fails; sampling echoes the data path and the key/value pairs, and a
// "fail" key makes it return a nonzero code.
const fixtureSource = `
#include <stdio.h>
#include <stdlib.h>
#include <string.h>

typedef struct { char data[256]; } model;

void* stosh_load_model(const char* data, unsigned int seed, char* err, size_t errlen) {
	if (seed == 0) {
		snprintf(err, errlen, "seed required");
		return NULL;
	}
	model* m = calloc(1, sizeof(model));
	snprintf(m->data, sizeof(m->data), "%s", data ? data : "");
	return m;
}

int stosh_run_samplers(void* h, const char** keys, const char** values, int n,
		char* out, size_t outlen, char* err, size_t errlen) {
	model* m = h;
	size_t off = snprintf(out, outlen, "%s|", m->data);
	for (int i = 0; i < n; i++) {
		if (strcmp(keys[i], "fail") == 0) {
			snprintf(err, errlen, "sampler failed: %s", values[i]);
			return 3;
		}
		if (off < outlen) {
			off += snprintf(out + off, outlen - off, "%s=%s;", keys[i], values[i]);
		}
	}
	return 0;
}

void stosh_free_model(void* h) { free(h); }

#ifndef NO_NAME
const char* stosh_get_model_name(void* h) { return "bernoulli_model"; }
#endif
`

func buildFixture(t *testing.T, defines ...string) string {
	t.Helper()
	cc, err := exec.LookPath("cc")
	if err != nil {
		t.Skip("no C compiler on PATH")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "fixture.c")
	if err := os.WriteFile(src, []byte(fixtureSource), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	lib := filepath.Join(dir, "fixture_model.so")
	args := append([]string{"-shared", "-fPIC", "-o", lib, src}, defines...)
	if out, err := exec.Command(cc, args...).CombinedOutput(); err != nil {
		t.Skipf("cc failed: %v\n%s", err, out)
	}
	return lib
}

func TestOpenedLibraryRoundTrip(t *testing.T) {
	b, err := Open(buildFixture(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !b.HasModelName() {
		t.Fatalf("name entry point should resolve")
	}

	errBuf := NewBuffer(DefaultBufferSize)
	if h := b.LoadModel("/data/x.json", 0, errBuf); h != nil {
		t.Fatalf("seed 0 should yield a null handle")
	}
	if got := errBuf.String(); got != "seed required" {
		t.Fatalf("err=%q", got)
	}

	errBuf.Reset()
	h := b.LoadModel("/data/x.json", 42, errBuf)
	if h == nil {
		t.Fatalf("load failed: %q", errBuf.String())
	}
	defer b.FreeModel(h)

	out := NewBuffer(DefaultBufferSize)
	rc := b.RunSampler(h, Args{Keys: []string{"num_chains", "seed"}, Values: []string{"4", "7"}}, out, errBuf)
	if rc != 0 {
		t.Fatalf("rc=%d err=%q", rc, errBuf.String())
	}
	if got := out.String(); got != "/data/x.json|num_chains=4;seed=7;" {
		t.Fatalf("out=%q", got)
	}

	out.Reset()
	if rc := b.RunSampler(h, Args{}, out, errBuf); rc != 0 {
		t.Fatalf("zero-count rc=%d", rc)
	}
	if got := out.String(); got != "/data/x.json|" {
		t.Fatalf("zero-count out=%q", got)
	}

	errBuf.Reset()
	rc = b.RunSampler(h, Args{Keys: []string{"fail"}, Values: []string{"boom"}}, out, errBuf)
	if rc != 3 || errBuf.String() != "sampler failed: boom" {
		t.Fatalf("rc=%d err=%q", rc, errBuf.String())
	}

	if n, ok := b.ModelName(h); !ok || n != "bernoulli_model" {
		t.Fatalf("name=%q ok=%v", n, ok)
	}
}

func TestOpenedLibraryWithoutName(t *testing.T) {
	b, err := Open(buildFixture(t, "-DNO_NAME"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if b.HasModelName() {
		t.Fatalf("name entry point should be absent")
	}
	errBuf := NewBuffer(DefaultBufferSize)
	h := b.LoadModel("", 1, errBuf)
	if h == nil {
		t.Fatalf("load failed: %q", errBuf.String())
	}
	defer b.FreeModel(h)
	if _, ok := b.ModelName(h); ok {
		t.Fatalf("no name expected")
	}
}

func TestOpenReportsLoaderMessage(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bogus_model.so")
	if err := os.WriteFile(p, []byte("not an object file"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Open(p)
	if !errors.Is(err, errs.ErrLoad) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	msg := err.Error()
	if strings.Contains(msg, "unknown dlopen error") || strings.HasSuffix(msg, ": ") {
		t.Fatalf("loader message was lost: %q", msg)
	}
	if !strings.Contains(msg, "bogus_model.so") {
		t.Fatalf("message should name the artifact: %q", msg)
	}
}
