package build

import (
	"path/filepath"
	"strings"
)

// Strategy names how a build target string was derived.
type Strategy string

const (
	// StrategyRoot: artifact path relative to the build directory.
	StrategyRoot Strategy = "root-relative"
	// StrategyCwd: artifact path relative to the process working directory,
	// used when the source lives outside the build directory tree.
	StrategyCwd Strategy = "cwd-relative"
	// StrategyBase: bare artifact file name, the last fallback.
	StrategyBase Strategy = "base-name"
)

// Target computes the build target for artifact. Precedence: relative to
// root, then relative to cwd, then the base name. Falling back is a policy
// choice, never an error. root and cwd are expected to be absolute.
func Target(artifact, root, cwd string) (string, Strategy) {
	if rel, ok := relativeUnder(root, artifact); ok {
		return rel, StrategyRoot
	}
	if rel, ok := relativeUnder(cwd, artifact); ok {
		return rel, StrategyCwd
	}
	return filepath.Base(artifact), StrategyBase
}

// relativeUnder returns p relative to base when p lies inside base's tree.
func relativeUnder(base, p string) (string, bool) {
	if base == "" || !filepath.IsAbs(base) || !filepath.IsAbs(p) {
		return "", false
	}
	rel, err := filepath.Rel(base, p)
	if err != nil {
		return "", false
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}
