package model

// RetrievalMethod names the strategy that produced a RetrievalResult.
type RetrievalMethod string

const (
	MethodLexical RetrievalMethod = "lexical"
	MethodVector  RetrievalMethod = "vector"
)

// RetrievalResult is the ordered candidate set for one turn.
type RetrievalResult struct {
	Method   RetrievalMethod   `json:"method"`
	Listings []RankedListing   `json:"listings"`
	Filter   *StructuredFilter `json:"filter,omitempty"`
	// Degraded is set when a store or embedding failure was absorbed.
	Degraded bool `json:"degraded,omitempty"`
}

// Projects returns the candidates without similarity scores.
func (r *RetrievalResult) Projects() []Project {
	if r == nil {
		return nil
	}
	out := make([]Project, len(r.Listings))
	for i, l := range r.Listings {
		out[i] = l.Project
	}
	return out
}

// Len returns the number of candidates.
func (r *RetrievalResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Listings)
}
