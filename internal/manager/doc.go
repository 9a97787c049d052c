// Package manager owns many model sessions for the HTTP service. It is
// structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, session operations.
//   - config.go: Config and package defaults; New applies defaults.
//   - types.go: internal session state.
//   - errors.go: error helpers (IsSessionNotFound, IsModelNotFound).
//   - events.go / eventpub_memory.go: lifecycle events and a test publisher.
//   - status_report.go: Status/Snapshot reporting.
//
// Sessions are keyed by ULID. Each session serializes its own native calls;
// the session map has its own lock, so work on one session never blocks
// another.
package manager
