package types

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of available models.
	Models []Model `json:"models"`
}

// CompileRequest creates a session by compiling and loading a model.
type CompileRequest struct {
	// Model id from GET /models, or a path to a .stan source.
	// example: bernoulli
	Model string `json:"model" example:"bernoulli"`
	// Rebuild even when a fresh artifact exists.
	// example: false
	Force bool `json:"force,omitempty" example:"false"`
}

// LoadDataRequest loads data into a session.
type LoadDataRequest struct {
	// Path to a JSON data file. Empty means no data; when the model has a
	// sibling data file and neither field is set, that file is used.
	// example: /srv/models/bernoulli.data.json
	DataPath string `json:"data_path,omitempty" example:"/srv/models/bernoulli.data.json"`
	// In-memory data. Not supported; rejected with unsupported_input.
	Data map[string]any `json:"data,omitempty"`
	// Seed for the native model; omitted uses the server default.
	// example: 12345
	Seed *uint32 `json:"seed,omitempty" example:"12345"`
}

// SampleRequest runs the sampler.
type SampleRequest struct {
	// Scalar sampler options.
	// example: {"num_chains":2,"warmup":100,"samples":100}
	Params map[string]any `json:"params,omitempty"`
}

// SampleResponse is returned by POST /sessions/{id}/sample.
type SampleResponse struct {
	// example: 01J9Z3PZ0A1B2C3D4E5F6G7H8J
	SessionID string `json:"session_id" example:"01J9Z3PZ0A1B2C3D4E5F6G7H8J"`
	// Ledger id of this run; empty when recording is disabled.
	RunID string `json:"run_id,omitempty"`
	// Output location reported by the sampler.
	// example: /tmp/stosh/bernoulli-output
	OutputDir string `json:"output_dir" example:"/tmp/stosh/bernoulli-output"`
	// example: 250
	DurationMS int64 `json:"duration_ms" example:"250"`
}

// SessionInfo summarizes a live session.
type SessionInfo struct {
	// example: 01J9Z3PZ0A1B2C3D4E5F6G7H8J
	ID string `json:"id" example:"01J9Z3PZ0A1B2C3D4E5F6G7H8J"`
	// example: bernoulli
	Model string `json:"model" example:"bernoulli"`
	// example: /srv/models/bernoulli.stan
	Source string `json:"source" example:"/srv/models/bernoulli.stan"`
	// example: /srv/models/bernoulli_model.so
	Artifact string `json:"artifact" example:"/srv/models/bernoulli_model.so"`
	// True when this session's compile ran the build tool.
	// example: true
	Built bool `json:"built" example:"true"`
	// empty or loaded.
	// example: loaded
	State string `json:"state" example:"loaded"`
	// Name reported by the model, when available.
	// example: bernoulli_model
	Name string `json:"name,omitempty" example:"bernoulli_model"`
	// example: 3
	Samples int `json:"samples" example:"3"`
	// example: 1700000000
	CreatedUnix int64 `json:"created_unix" example:"1700000000"`
	// example: 1700000100
	LastUsedUnix int64 `json:"last_used_unix" example:"1700000100"`
}

// SessionsResponse is returned by GET /sessions.
type SessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

// RunsResponse is returned by GET /runs.
type RunsResponse struct {
	Runs []Run `json:"runs"`
}

// BuildOutput is the captured build tool run attached to build errors.
type BuildOutput struct {
	Command  []string `json:"command"`
	Dir      string   `json:"dir"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
	ExitCode int      `json:"exit_code"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: call LoadData first
	Error string `json:"error" example:"call LoadData first"`
	// HTTP status code.
	// example: 409
	Code int `json:"code" example:"409"`
	// Stable error kind.
	// example: no_data_loaded
	Kind string `json:"kind,omitempty" example:"no_data_loaded"`
	// Build tool output, for build failures.
	Build *BuildOutput `json:"build,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Live sessions.
	Sessions []SessionInfo `json:"sessions"`
	// Sessions currently holding loaded data.
	// example: 1
	Loaded int `json:"loaded" example:"1"`
	// Total successful compiles.
	// example: 4
	CompilesTotal uint64 `json:"compiles_total" example:"4"`
	// Total sampling runs, successful or not.
	// example: 12
	SamplesTotal uint64 `json:"samples_total" example:"12"`
	// Last error observed by the manager (if any).
	LastError string `json:"last_error,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
