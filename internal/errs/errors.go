// Package errs defines the single structured error type returned by every
// stage of the bridge (resolve, load, data-load, sample) and the kinds that
// classify it.
//
// Kinds are sentinel error values, so callers test them with errors.Is:
//
//	if errors.Is(err, errs.ErrBuildFailed) { ... }
//
// ErrArtifactMissingAfterBuild is a variant of ErrBuildFailed and
// ErrUnsupportedInput is a variant of ErrInvalidInput; errors.Is reports true
// for the parent kind as well.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// kind is a classification sentinel. It may wrap a parent kind.
type kind struct {
	code   string
	text   string
	parent error
}

func (k *kind) Error() string { return k.text }

func (k *kind) Unwrap() error { return k.parent }

var (
	ErrInvalidInput              error = &kind{code: "invalid_input", text: "invalid input"}
	ErrUnsupportedInput          error = &kind{code: "unsupported_input", text: "unsupported input", parent: ErrInvalidInput}
	ErrConfiguration             error = &kind{code: "configuration_error", text: "configuration error"}
	ErrToolNotFound              error = &kind{code: "tool_not_found", text: "build tool not found"}
	ErrBuildFailed               error = &kind{code: "build_failed", text: "build failed"}
	ErrArtifactMissingAfterBuild error = &kind{code: "artifact_missing_after_build", text: "artifact missing after build", parent: ErrBuildFailed}
	ErrLoad                      error = &kind{code: "load_error", text: "artifact load failed"}
	ErrDataLoadFailed            error = &kind{code: "data_load_failed", text: "data load failed"}
	ErrNoDataLoaded              error = &kind{code: "no_data_loaded", text: "no data loaded"}
	ErrSamplingFailed            error = &kind{code: "sampling_failed", text: "sampling failed"}
)

// BuildOutput is the verbatim record of one build tool invocation.
type BuildOutput struct {
	Command  []string
	Dir      string
	Stdout   string
	Stderr   string
	ExitCode int
}

// Error is the structured error carried across all bridge operations.
type Error struct {
	// Kind is one of the Err* sentinels in this package.
	Kind error
	// Msg is the human-readable detail. For native failures it is the text
	// the native side wrote, unmodified.
	Msg string
	// Build is set for build failures and retains the raw process output.
	Build *BuildOutput
	// Err is an optional underlying cause.
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	} else {
		b.WriteString("error")
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if o := e.Build; o != nil {
		fmt.Fprintf(&b, "\nCommand: %s\nWorking directory: %s\nSTDOUT:\n%s\nSTDERR:\n%s",
			strings.Join(o.Command, " "), o.Dir, o.Stdout, o.Stderr)
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// New constructs an *Error of the given kind.
func New(k error, msg string) *Error { return &Error{Kind: k, Msg: msg} }

// Newf constructs an *Error with a formatted message.
func Newf(k error, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// Wrap constructs an *Error of the given kind around cause.
func Wrap(k error, cause error, msg string) *Error {
	return &Error{Kind: k, Msg: msg, Err: cause}
}

// BuildFailed constructs an ErrBuildFailed error that keeps the full output.
func BuildFailed(out BuildOutput) *Error {
	return &Error{
		Kind:  ErrBuildFailed,
		Msg:   fmt.Sprintf("compilation failed with exit status %d", out.ExitCode),
		Build: &out,
	}
}

// KindOf returns the kind of err, or nil if err is not classified.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k *kind
	if errors.As(err, &k) {
		return k
	}
	return nil
}

// Code returns the stable snake_case code of err's kind, or "" if none.
func Code(err error) string {
	if k, ok := KindOf(err).(*kind); ok {
		return k.code
	}
	return ""
}

// Message returns the detail message of an *Error, or err.Error() otherwise.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
