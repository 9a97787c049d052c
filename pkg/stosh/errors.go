package stosh

import "stosh/internal/errs"

// Error is the structured error returned by every operation in this package.
// Test its kind with errors.Is against the Err* values below.
type Error = errs.Error

// BuildOutput is the raw record of a failed build tool run.
type BuildOutput = errs.BuildOutput

var (
	ErrInvalidInput              = errs.ErrInvalidInput
	ErrUnsupportedInput          = errs.ErrUnsupportedInput
	ErrConfiguration             = errs.ErrConfiguration
	ErrToolNotFound              = errs.ErrToolNotFound
	ErrBuildFailed               = errs.ErrBuildFailed
	ErrArtifactMissingAfterBuild = errs.ErrArtifactMissingAfterBuild
	ErrLoad                      = errs.ErrLoad
	ErrDataLoadFailed            = errs.ErrDataLoadFailed
	ErrNoDataLoaded              = errs.ErrNoDataLoaded
	ErrSamplingFailed            = errs.ErrSamplingFailed
)
