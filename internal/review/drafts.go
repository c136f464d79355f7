package review

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/clinmatch/trialaudit/internal/records"
)

// DraftEntry is unsubmitted scratch state for one (trial, case) identity.
// The JSON field names match the legacy client blob format so previously
// saved drafts keep loading.
type DraftEntry struct {
	HumanGrade string `json:"humanGrade,omitempty"`
	Comments   string `json:"comments,omitempty"`
}

// DraftPatch is a partial draft update. Nil fields keep the existing value;
// set fields win.
type DraftPatch struct {
	HumanGrade *string
	Comments   *string
}

// DraftCache holds in-progress grade/comment edits keyed by identity, with
// a lifecycle fully independent of the review store: a draft never creates
// a review and undoing a review never touches the draft. Same best-effort
// persistence discipline as Store.
type DraftCache struct {
	mu      sync.Mutex
	p       Persister
	entries map[string]DraftEntry
	saveErr error
}

// NewDraftCache creates an empty cache backed by p.
func NewDraftCache(p Persister) *DraftCache {
	return &DraftCache{p: p, entries: make(map[string]DraftEntry)}
}

// Load replaces in-memory drafts with the persisted blob. Read failures are
// treated as "no draft found"; the returned error is for logging only.
func (c *DraftCache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]DraftEntry)
	raw, ok, err := c.p.GetBlob(draftsBlobKey)
	if err != nil {
		return fmt.Errorf("reading drafts: %w", err)
	}
	if !ok || raw == "" {
		return nil
	}

	entries := make(map[string]DraftEntry)
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return fmt.Errorf("decoding drafts: %w", err)
	}
	c.entries = entries
	return nil
}

// Get returns the draft for an identity, if any.
func (c *DraftCache) Get(trialID, caseText string) (DraftEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[records.IdentityKey(trialID, caseText)]
	return e, ok
}

// Set merges a patch into the draft for an identity, creating it if absent,
// and returns the merged entry.
func (c *DraftCache) Set(trialID, caseText string, patch DraftPatch) DraftEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := records.IdentityKey(trialID, caseText)
	e := c.entries[key]
	if patch.HumanGrade != nil {
		e.HumanGrade = *patch.HumanGrade
	}
	if patch.Comments != nil {
		e.Comments = *patch.Comments
	}
	c.entries[key] = e
	c.persistLocked()
	return e
}

// Delete removes the draft for an identity. Deleting an absent draft is a
// no-op.
func (c *DraftCache) Delete(trialID, caseText string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := records.IdentityKey(trialID, caseText)
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	c.persistLocked()
}

// Len returns the number of drafts.
func (c *DraftCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// SaveErr reports the outcome of the most recent persistence attempt.
func (c *DraftCache) SaveErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveErr
}

func (c *DraftCache) persistLocked() {
	data, err := json.Marshal(c.entries)
	if err == nil {
		err = c.p.PutBlob(draftsBlobKey, string(data))
	}
	c.saveErr = err
	if err != nil {
		log.Printf("persisting drafts failed (continuing in memory): %v", err)
	}
}
