package extract

import (
	"github.com/basinworks/filings-tracker/internal/classify"
	"github.com/basinworks/filings-tracker/internal/llm"
)

// Attempt records one cascade tier tried against a document.
type Attempt struct {
	Tier      string
	Success   bool
	CharCount int
	Steps     []string
	Err       error
}

// Result is the outcome of running a document through the full cascade:
// either the first successful attempt's text, or contacts produced directly
// by the vision fallback, plus the ordered audit trail of every attempt.
type Result struct {
	Key            string
	Text           string
	Method         string // tier that succeeded
	Pages          int
	Classification classify.Result
	Contacts       []llm.RawContact // set only when the vision fallback ran
	Attempts       []Attempt
}

// Succeeded reports whether any tier yielded a usable result.
func (r Result) Succeeded() bool {
	return r.Method != ""
}

// AttemptedTiers returns tier names in the order they were tried.
func (r Result) AttemptedTiers() []string {
	out := make([]string, len(r.Attempts))
	for i, a := range r.Attempts {
		out[i] = a.Tier
	}
	return out
}
