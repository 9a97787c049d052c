package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// Defaults applied by WithDefaults.
const (
	DefaultAddr       = ":8080"
	DefaultMakeTool   = "make"
	DefaultBufferSize = 1024
	DefaultModelsDir  = "."
	DefaultLogLevel   = "info"
	DefaultSeed       = 12345
)

// Config holds runtime parameters for the CLI and the HTTP service.
// Zero values mean "unspecified" and are replaced by WithDefaults or flags.
type Config struct {
	Addr        string   `json:"addr" yaml:"addr" toml:"addr" hcl:"addr,optional"`
	StanRoot    string   `json:"stan_root" yaml:"stan_root" toml:"stan_root" hcl:"stan_root,optional"`
	MakeTool    string   `json:"make_tool" yaml:"make_tool" toml:"make_tool" hcl:"make_tool,optional"`
	BufferSize  int      `json:"buffer_size" yaml:"buffer_size" toml:"buffer_size" hcl:"buffer_size,optional"`
	ModelsDir   string   `json:"models_dir" yaml:"models_dir" toml:"models_dir" hcl:"models_dir,optional"`
	RunsDB      string   `json:"runs_db" yaml:"runs_db" toml:"runs_db" hcl:"runs_db,optional"`
	LogLevel    string   `json:"log_level" yaml:"log_level" toml:"log_level" hcl:"log_level,optional"`
	DefaultSeed uint32   `json:"default_seed" yaml:"default_seed" toml:"default_seed" hcl:"default_seed,optional"`
	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled" hcl:"cors_enabled,optional"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins" hcl:"cors_origins,optional"`
}

// WithDefaults returns a copy of c with unspecified fields filled in.
// RunsDB stays empty (run recording disabled) and StanRoot stays empty
// (resolved from the environment at build time).
func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.MakeTool == "" {
		c.MakeTool = DefaultMakeTool
	}
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.ModelsDir == "" {
		c.ModelsDir = DefaultModelsDir
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.DefaultSeed == 0 {
		c.DefaultSeed = DefaultSeed
	}
	return c
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml, .hcl
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".hcl":
		if err := decodeHCL(b, path, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// decodeHCL decodes an HCL body. Expressions may reference the process
// environment as env.NAME.
func decodeHCL(b []byte, path string, cfg *Config) error {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(b, path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	ctx := &hcl.EvalContext{Variables: map[string]cty.Value{"env": envObject(os.Environ())}}
	if diags := gohcl.DecodeBody(f.Body, ctx, cfg); diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}
	return nil
}

func envObject(environ []string) cty.Value {
	vars := make(map[string]cty.Value, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	if len(vars) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(vars)
}
