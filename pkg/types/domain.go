package types

// Model represents a discoverable model source on disk.
type Model struct {
	// Stable identifier for the model: the source file stem.
	// example: bernoulli
	ID string `json:"id" example:"bernoulli"`
	// Human-friendly name.
	// example: bernoulli
	Name string `json:"name" example:"bernoulli"`
	// Absolute path to the model source.
	// example: /srv/models/bernoulli.stan
	Path string `json:"path" example:"/srv/models/bernoulli.stan"`
	// Sibling data file (<stem>.data.json), when present.
	// example: /srv/models/bernoulli.data.json
	DataPath string `json:"data_path,omitempty" example:"/srv/models/bernoulli.data.json"`
	// Where the compiled artifact lives or will be built.
	// example: /srv/models/bernoulli_model.so
	ArtifactPath string `json:"artifact_path" example:"/srv/models/bernoulli_model.so"`
	// True when the artifact exists and is newer than the source.
	// example: true
	Compiled bool `json:"compiled" example:"true"`
}

// Run is one recorded sampling run.
type Run struct {
	// example: 01J9Z3Q4W8S7R2K5M6N0P1B2C3
	ID string `json:"id" example:"01J9Z3Q4W8S7R2K5M6N0P1B2C3"`
	// example: 01J9Z3PZ0A1B2C3D4E5F6G7H8J
	SessionID string `json:"session_id" example:"01J9Z3PZ0A1B2C3D4E5F6G7H8J"`
	// example: bernoulli
	Model string `json:"model" example:"bernoulli"`
	// example: /srv/models/bernoulli_model.so
	Artifact string `json:"artifact" example:"/srv/models/bernoulli_model.so"`
	// Sampler options as passed across the native boundary.
	Params map[string]string `json:"params,omitempty"`
	// ok or error.
	// example: ok
	Status string `json:"status" example:"ok"`
	// Output location reported by the sampler.
	// example: /tmp/stosh/bernoulli-output
	Output string `json:"output,omitempty" example:"/tmp/stosh/bernoulli-output"`
	// Error kind code when Status is error.
	// example: sampling_failed
	ErrorKind string `json:"error_kind,omitempty" example:"sampling_failed"`
	Error     string `json:"error,omitempty"`
	// example: 1700000000
	StartedUnix int64 `json:"started_unix" example:"1700000000"`
	// example: 250
	DurationMS int64 `json:"duration_ms" example:"250"`
}
