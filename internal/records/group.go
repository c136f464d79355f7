package records

// CaseGroup holds all records sharing one normalized case key, in their
// original encounter order.
type CaseGroup struct {
	Key     string // normalized case text
	Display string // case text as it first appeared in the CSV
	Records []TrialGradingRecord
}

// CaseIndex partitions a record sequence by normalized case key. Distinct
// cases are exposed in first-occurrence order for navigation. All lookups
// normalize at the boundary so cosmetically different spellings of the same
// case narrative land in one group.
type CaseIndex struct {
	keys   []string
	groups map[string]*CaseGroup
}

// BuildCaseIndex groups records by case, preserving relative order within
// each group and first-seen order across groups.
func BuildCaseIndex(recs []TrialGradingRecord) *CaseIndex {
	ix := &CaseIndex{groups: make(map[string]*CaseGroup)}
	for _, r := range recs {
		key := NormalizeCaseText(r.CaseText)
		g, ok := ix.groups[key]
		if !ok {
			g = &CaseGroup{Key: key, Display: r.CaseText}
			ix.groups[key] = g
			ix.keys = append(ix.keys, key)
		}
		g.Records = append(g.Records, r)
	}
	return ix
}

// Keys returns the distinct normalized case keys in first-seen order.
func (ix *CaseIndex) Keys() []string {
	return ix.keys
}

// Len returns the number of distinct cases.
func (ix *CaseIndex) Len() int {
	return len(ix.keys)
}

// TotalRecords returns the number of records across all cases.
func (ix *CaseIndex) TotalRecords() int {
	n := 0
	for _, g := range ix.groups {
		n += len(g.Records)
	}
	return n
}

// Group looks up the group for a case narrative, normalizing first.
func (ix *CaseIndex) Group(caseText string) (*CaseGroup, bool) {
	g, ok := ix.groups[NormalizeCaseText(caseText)]
	return g, ok
}

// Find returns the first record with the given (trial, case) identity.
// Duplicate rows for one identity are kept in the index; lookups resolve to
// the earliest.
func (ix *CaseIndex) Find(trialID, caseText string) (*TrialGradingRecord, bool) {
	g, ok := ix.Group(caseText)
	if !ok {
		return nil, false
	}
	for i := range g.Records {
		if g.Records[i].TrialID == trialID {
			return &g.Records[i], true
		}
	}
	return nil, false
}
