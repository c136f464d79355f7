package review

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/clinmatch/trialaudit/internal/records"
)

// Blob keys in durable storage. Two independent JSON blobs: the finalized
// review array and the draft map.
const (
	reviewsBlobKey = "finalized_reviews"
	draftsBlobKey  = "draft_entries"
)

// Persister stores named JSON blobs. Every caller in this package treats a
// write failure as best-effort: the in-memory state stays authoritative for
// the session and no user-visible error is raised.
type Persister interface {
	GetBlob(key string) (value string, ok bool, err error)
	PutBlob(key, value string) error
}

// Review status relative to the model grade, computed at submit time.
const (
	StatusApproved    = "approved"
	StatusNeedsReview = "needs_review"
)

// ErrMissingGrade rejects a submit with no human grade selected. The only
// store error that reaches the user.
var ErrMissingGrade = errors.New("a human grade is required to submit a review")

// ReviewedRecord is one finalized human judgment: a snapshot of the graded
// record plus the reviewer's grade, status, comments, and submission time.
// Owned exclusively by Store; created on submit, replaced on resubmit,
// deleted on undo.
type ReviewedRecord struct {
	Record       records.TrialGradingRecord `json:"record"`
	HumanGrade   string                     `json:"human_grade"`
	ReviewStatus string                     `json:"review_status"`
	Comments     string                     `json:"comments"`
	ReviewedAt   time.Time                  `json:"reviewed_at"`
}

func (r *ReviewedRecord) identity() string {
	return records.IdentityKey(r.Record.TrialID, r.Record.CaseText)
}

// Stats are aggregate statistics over finalized reviews.
type Stats struct {
	Total         int
	Agreements    int
	AgreementRate float64 // NaN when Total is zero; callers must guard
}

// Store is the mutable collection of finalized reviews, at most one per
// (trial, case) identity, persisted through a Persister after every
// mutation and restored once at startup via Load.
type Store struct {
	mu      sync.Mutex
	p       Persister
	entries []ReviewedRecord
	saveErr error
}

// NewStore creates an empty store backed by p.
func NewStore(p Persister) *Store {
	return &Store{p: p}
}

// Load replaces in-memory state with the persisted blob. A missing blob
// leaves the store empty. A read or decode failure also leaves the store
// empty and is returned for logging only; the session continues.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	raw, ok, err := s.p.GetBlob(reviewsBlobKey)
	if err != nil {
		return fmt.Errorf("reading reviews: %w", err)
	}
	if !ok || raw == "" {
		return nil
	}

	var entries []ReviewedRecord
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return fmt.Errorf("decoding reviews: %w", err)
	}
	s.entries = entries
	return nil
}

// Upsert finalizes a review for the record's identity, replacing any
// existing entry. The status is approved when the human grade matches the
// model grade, needs_review otherwise. An empty human grade is rejected
// with ErrMissingGrade and nothing is mutated.
func (s *Store) Upsert(rec records.TrialGradingRecord, humanGrade, comments string) (ReviewedRecord, error) {
	if strings.TrimSpace(humanGrade) == "" {
		return ReviewedRecord{}, ErrMissingGrade
	}

	status := StatusNeedsReview
	if humanGrade == rec.ModelGrade {
		status = StatusApproved
	}
	entry := ReviewedRecord{
		Record:       rec,
		HumanGrade:   humanGrade,
		ReviewStatus: status,
		Comments:     comments,
		ReviewedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(entry.identity())
	s.entries = append(s.entries, entry)
	s.persistLocked()
	return entry, nil
}

// Remove undoes the review with the given identity. Removing an absent
// identity is a no-op, not an error; undo is idempotent.
func (s *Store) Remove(trialID, caseText string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.removeLocked(records.IdentityKey(trialID, caseText))
	if removed {
		s.persistLocked()
	}
	return removed
}

// Get returns the finalized review for an identity, if any.
func (s *Store) Get(trialID, caseText string) (ReviewedRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := records.IdentityKey(trialID, caseText)
	for i := range s.entries {
		if s.entries[i].identity() == key {
			return s.entries[i], true
		}
	}
	return ReviewedRecord{}, false
}

// All returns the finalized reviews in submission order.
func (s *Store) All() []ReviewedRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ReviewedRecord, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of finalized reviews.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats computes the total and the agreement rate. With zero reviews the
// rate is NaN (0/0), deliberately not clamped; callers render it as they
// see fit.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	agree := 0
	for i := range s.entries {
		if s.entries[i].ReviewStatus == StatusApproved {
			agree++
		}
	}
	return Stats{
		Total:         len(s.entries),
		Agreements:    agree,
		AgreementRate: float64(agree) / float64(len(s.entries)),
	}
}

// SaveErr reports the outcome of the most recent persistence attempt, nil
// after a success. Exists so the swallowed failure path stays observable.
func (s *Store) SaveErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveErr
}

func (s *Store) removeLocked(key string) bool {
	for i := range s.entries {
		if s.entries[i].identity() == key {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Store) persistLocked() {
	data, err := json.Marshal(s.entries)
	if err == nil {
		err = s.p.PutBlob(reviewsBlobKey, string(data))
	}
	s.saveErr = err
	if err != nil {
		log.Printf("persisting reviews failed (continuing in memory): %v", err)
	}
}
