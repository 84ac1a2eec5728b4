package storage

import (
	"context"
	"errors"
	"sync"

	"operon/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	sessions    map[string]model.SessionRecord
	traces      map[string][]model.DispatchRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.sessions = make(map[string]model.SessionRecord)
	s.traces = make(map[string][]model.DispatchRecord)
	return nil
}

func (s *MemoryStore) SaveSession(_ context.Context, session model.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	session.Kinds = append([]string(nil), session.Kinds...)
	s.sessions[session.ID] = session
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, id string) (model.SessionRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return model.SessionRecord{}, false, nil
	}
	session.Kinds = append([]string(nil), session.Kinds...)
	return session, true, nil
}

func (s *MemoryStore) ListSessions(_ context.Context) ([]model.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.SessionRecord, 0, len(s.sessions))
	for _, session := range s.sessions {
		session.Kinds = append([]string(nil), session.Kinds...)
		out = append(out, session)
	}
	sortSessions(out)
	return out, nil
}

func (s *MemoryStore) SaveTrace(_ context.Context, sessionID string, trace []model.DispatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	copied := make([]model.DispatchRecord, len(trace))
	copy(copied, trace)
	s.traces[sessionID] = copied
	return nil
}

func (s *MemoryStore) GetTrace(_ context.Context, sessionID string) ([]model.DispatchRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trace, ok := s.traces[sessionID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.DispatchRecord, len(trace))
	copy(copied, trace)
	return copied, true, nil
}
