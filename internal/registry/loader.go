package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"stosh/internal/build"
	"stosh/internal/common/fsutil"
	"stosh/pkg/types"
)

// DataSuffix names the data file looked up next to each source.
const DataSuffix = ".data.json"

// LoadDir scans a directory for model sources (*.stan) and builds a registry.
// ID is the file stem; Path is the absolute source path. DataPath is set when
// a sibling <stem>.data.json exists. Compiled uses the resolver's freshness rule.
func LoadDir(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.EqualFold(filepath.Ext(name), build.SourceExt) {
			continue
		}
		models = append(models, describe(filepath.Join(abs, name)))
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// Find returns the model with the given id.
func Find(models []types.Model, id string) (types.Model, bool) {
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return types.Model{}, false
}

// Describe builds the registry entry for a single source path.
func Describe(source string) (types.Model, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return types.Model{}, fmt.Errorf("abs path: %w", err)
	}
	return describe(abs), nil
}

func describe(p string) types.Model {
	stem := fsutil.Stem(p)
	m := types.Model{ID: stem, Name: stem, Path: p, ArtifactPath: build.ArtifactPath(p)}
	if d := filepath.Join(filepath.Dir(p), stem+DataSuffix); fsutil.IsFile(d) {
		m.DataPath = d
	}
	// freshness errors only mean "not compiled"
	m.Compiled, _ = fsutil.IsFresher(m.ArtifactPath, p)
	return m
}
