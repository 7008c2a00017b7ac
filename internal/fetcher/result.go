package fetcher

// Outcome is the final state of one group's fetch
type Outcome string

const (
	// OutcomeSucceeded means the group returned price data
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeEmpty means the group returned a well-formed response with no data
	OutcomeEmpty Outcome = "empty"
	// OutcomeFailed means the request or its payload failed
	OutcomeFailed Outcome = "failed"
)

// Result represents the outcome of one group fetch.
// It's returned by worker goroutines to the coordinator once the
// group's prices have been merged.
type Result struct {
	// Group is the index of the fetched group
	Group int

	// Requested is the number of symbols sent to the API
	Requested int

	// Updated is the number of instruments whose prices were set
	Updated int

	// Outcome classifies the fetch
	Outcome Outcome

	// Error contains the transport, decode or empty-data error, if any.
	// If Error is not nil, no instrument of the group was updated.
	Error error
}

// Summary tallies the results of a run
type Summary struct {
	Succeeded int
	Empty     int
	Failed    int

	// Updated is the number of instruments priced across all groups
	Updated int

	// FailedGroups lists the indices of failed groups in ascending order
	FailedGroups []int
}

// Summarize counts results by outcome.
// results are expected in group order.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		s.Updated += r.Updated
		switch r.Outcome {
		case OutcomeSucceeded:
			s.Succeeded++
		case OutcomeEmpty:
			s.Empty++
		default:
			s.Failed++
			s.FailedGroups = append(s.FailedGroups, r.Group)
		}
	}
	return s
}
