package recon

// =============================================================================
// MATCHER - Time entry to assignment identity resolution
// =============================================================================

const (
	ReasonDuplicateWorkerID = "Duplicate Worker ID"
	ReasonAmbiguousName     = "Ambiguous name match"
)

// MatchMethod records which identity key resolved an entry.
type MatchMethod string

const (
	MatchByWorkerID MatchMethod = "worker-id"
	MatchByName     MatchMethod = "name"
	MatchNone       MatchMethod = "none"
)

// MatchResult is transient: produced per entry, never persisted.
type MatchResult struct {
	Assignment *Assignment // nil when unmatched
	Ambiguous  bool
	Reason     string // set only when Ambiguous
	Method     MatchMethod
	Candidates int
}

// Matched reports whether an assignment was found.
func (m MatchResult) Matched() bool { return m.Assignment != nil }

// Err describes an ambiguous match, or nil.
func (m MatchResult) Err(key string) error {
	if !m.Ambiguous {
		return nil
	}
	return &AmbiguousIdentityError{Key: key, Reason: m.Reason, Candidates: m.Candidates}
}

// Index is an immutable lookup over a set of assignments. Buckets keep load
// order, so the first indexed assignment of a bucket is the first loaded.
type Index struct {
	assignments []Assignment
	byID        map[string]int
	byWorkerID  map[string][]int
	byName      map[string][]int
}

// NewIndex builds the lookup. Empty worker ids and names are not indexed.
func NewIndex(assignments []Assignment) *Index {
	idx := &Index{
		assignments: append([]Assignment(nil), assignments...),
		byID:        make(map[string]int, len(assignments)),
		byWorkerID:  make(map[string][]int),
		byName:      make(map[string][]int),
	}
	for i, a := range idx.assignments {
		idx.byID[a.ID] = i
		if a.WorkerIDKey != "" {
			idx.byWorkerID[a.WorkerIDKey] = append(idx.byWorkerID[a.WorkerIDKey], i)
		}
		if a.NameNorm != "" {
			idx.byName[a.NameNorm] = append(idx.byName[a.NameNorm], i)
		}
	}
	return idx
}

// Assignments returns the indexed assignments in load order.
func (idx *Index) Assignments() []Assignment { return idx.assignments }

// Assignment looks up an assignment by id.
func (idx *Index) Assignment(id string) (Assignment, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return Assignment{}, false
	}
	return idx.assignments[i], true
}

// Match resolves an entry: worker id first, then normalized name. A worker
// id hit always wins, even when the name bucket would also resolve.
func (idx *Index) Match(e TimeEntry) MatchResult {
	if e.WorkerIDKey != "" {
		if bucket, ok := idx.byWorkerID[e.WorkerIDKey]; ok {
			return idx.result(bucket, MatchByWorkerID, ReasonDuplicateWorkerID)
		}
	}
	if e.WorkerNameNorm != "" {
		if bucket, ok := idx.byName[e.WorkerNameNorm]; ok {
			return idx.result(bucket, MatchByName, ReasonAmbiguousName)
		}
	}
	return MatchResult{Method: MatchNone}
}

func (idx *Index) result(bucket []int, method MatchMethod, reason string) MatchResult {
	a := idx.assignments[bucket[0]]
	res := MatchResult{Assignment: &a, Method: method, Candidates: len(bucket)}
	if len(bucket) > 1 {
		res.Ambiguous = true
		res.Reason = reason
	}
	return res
}
