package manager

import (
	"time"

	"stosh/pkg/types"
)

// Snapshot returns a read-only view of the manager state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{Sessions: len(m.sessions), Closed: m.closed, Err: m.err}
}

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	sessions := m.List()
	m.mu.RLock()
	resp := types.StatusResponse{
		CompilesTotal:  m.compilesTotal,
		SamplesTotal:   m.samplesTotal,
		LastError:      m.err,
		UptimeSeconds:  int64(time.Since(m.startTime).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
	}
	m.mu.RUnlock()
	resp.Sessions = sessions
	for _, s := range sessions {
		if s.State == "loaded" {
			resp.Loaded++
		}
	}
	return resp
}
