package server

import (
	"sync"

	"github.com/clinmatch/trialaudit/internal/records"
)

// Session is the one-shot CSV load gate for a review session. Endpoints
// serve 503 until the load resolves, and a terminal 500 for the rest of the
// session if it fails; no partial data is ever shown.
type Session struct {
	mu    sync.RWMutex
	ready bool
	err   error
	recs  []records.TrialGradingRecord
	index *records.CaseIndex
}

// NewSession returns a session in the loading state.
func NewSession() *Session {
	return &Session{}
}

// Resolve completes the load with either the parsed records or a terminal
// error. Called exactly once.
func (s *Session) Resolve(recs []records.TrialGradingRecord, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.err = err
		return
	}
	s.recs = recs
	s.index = records.BuildCaseIndex(recs)
	s.ready = true
}

// State reports whether the session is ready and any terminal load error.
func (s *Session) State() (ready bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready, s.err
}

// Index returns the case index, nil until the session is ready.
func (s *Session) Index() *records.CaseIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// Records returns the parsed record sequence, nil until ready.
func (s *Session) Records() []records.TrialGradingRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recs
}
