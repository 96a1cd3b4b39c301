// Package dedup decides which of two conflicting records for the same
// real-world event should be retained, based on per-source precedence.
package dedup

// Action is the outcome of arbitrating a candidate against an
// existing record.
type Action int

const (
	// KeepExisting leaves the existing record untouched.
	KeepExisting Action = iota
	// Overwrite replaces the existing record's fields with the
	// candidate's; the existing record's id is preserved.
	Overwrite
	// SkipSameSource drops the candidate without a write.
	SkipSameSource
)

func (a Action) String() string {
	switch a {
	case KeepExisting:
		return "keep_existing"
	case Overwrite:
		return "overwrite"
	case SkipSameSource:
		return "skip"
	default:
		return "unknown"
	}
}

// Rules is the per-batch deduplication policy supplied by the sync
// adapter currently writing. Precedence maps source name to priority
// (higher wins); sources not in the map rank 0.
type Rules struct {
	// Source is the name of the batch currently being written.
	Source string
	// Precedence maps source name to integer priority.
	Precedence map[string]int
	// SkipSameSource drops same-priority candidates from the same
	// source instead of rewriting identical data.
	SkipSameSource bool
}

// Resolve decides what to do with an existing record from
// existingSource when a candidate from r.Source arrives.
//
// When either source is empty no arbitration applies and the candidate
// overwrites, which preserves plain update-in-place for records
// written before sources were tracked. On a priority tie the incumbent
// wins regardless of SkipSameSource.
func (r Rules) Resolve(existingSource string) Action {
	if r.Source == "" || existingSource == "" {
		return Overwrite
	}
	current := r.Precedence[r.Source]
	existing := r.Precedence[existingSource]
	switch {
	case current < existing:
		return KeepExisting
	case current > existing:
		return Overwrite
	}
	return SkipSameSource
}
