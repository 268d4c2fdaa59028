package model

// StructuredFilter is the search intent extracted from one user message.
type StructuredFilter struct {
	Area      string `json:"area,omitempty"`
	Developer string `json:"developer,omitempty"`
	Budget    *int64 `json:"budget,omitempty"`
	Message   string `json:"-"` // raw lower-cased message
}

// HasBudget reports whether a budget was extracted.
func (f *StructuredFilter) HasBudget() bool {
	return f != nil && f.Budget != nil
}
