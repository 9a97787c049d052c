package manager

import (
	"sync"
	"time"

	"stosh/pkg/stosh"
	"stosh/pkg/types"
)

// session is one live compiled model.
type session struct {
	id      string
	model   types.Model
	m       *stosh.Model
	created time.Time

	mu       sync.Mutex
	lastUsed time.Time
	samples  int
}

func (s *session) touch(sampled bool) {
	s.mu.Lock()
	s.lastUsed = time.Now()
	if sampled {
		s.samples++
	}
	s.mu.Unlock()
}

func (s *session) info() types.SessionInfo {
	art := s.m.Artifact()
	name, _ := s.m.Name()
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.SessionInfo{
		ID:           s.id,
		Model:        s.model.ID,
		Source:       s.model.Path,
		Artifact:     art.Path,
		Built:        art.Built,
		State:        s.m.State().String(),
		Name:         name,
		Samples:      s.samples,
		CreatedUnix:  s.created.Unix(),
		LastUsedUnix: s.lastUsed.Unix(),
	}
}

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	Sessions int
	Closed   bool
	Err      string
}
