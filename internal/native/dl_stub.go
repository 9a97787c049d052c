//go:build !cgo || !(linux || darwin || freebsd)

package native

// This stub is compiled when cgo is disabled or the platform has no dlopen.
// Open fails with a LoadError; in-process EntryPoints passed to New still work.

import (
	"runtime"

	"stosh/internal/errs"
)

func openLibrary(path string) (EntryPoints, bool, error) {
	return nil, false, errs.Newf(errs.ErrLoad,
		"cannot load %s: native loading not built for %s/%s (requires cgo)", path, runtime.GOOS, runtime.GOARCH)
}
