package model

import "time"

// ChatRequest represents a conversational turn from the site widget
type ChatRequest struct {
	Message string             `json:"message" binding:"required"`
	History []ConversationTurn `json:"conversationHistory,omitempty" binding:"omitempty,dive"`
}

// ChatResponse represents the reply to one chat turn
type ChatResponse struct {
	Message      string        `json:"message"`
	Model        string        `json:"model"`
	Timestamp    time.Time     `json:"timestamp"`
	Note         string        `json:"note,omitempty"`
	Canvas       *CanvasAction `json:"canvas,omitempty"`
	LeadCaptured bool          `json:"leadCaptured,omitempty"`
	RequestID    string        `json:"requestId,omitempty"`
}

// FallbackModel is reported in ChatResponse.Model for template replies.
const FallbackModel = "fallback"

// CanvasType enumerates the interactive panels the widget can open.
type CanvasType string

const (
	CanvasMortgage     CanvasType = "mortgage"
	CanvasInvestment   CanvasType = "investment"
	CanvasGallery      CanvasType = "gallery"
	CanvasFloorplan    CanvasType = "floorplan"
	CanvasNeighborhood CanvasType = "neighborhood"
	CanvasBooking      CanvasType = "booking"
	CanvasPriceHistory CanvasType = "price_history"
	CanvasMap          CanvasType = "map"
)

// CanvasTypes lists every accepted canvas type.
var CanvasTypes = []CanvasType{
	CanvasMortgage, CanvasInvestment, CanvasGallery, CanvasFloorplan,
	CanvasNeighborhood, CanvasBooking, CanvasPriceHistory, CanvasMap,
}

// Valid reports whether t is one of CanvasTypes.
func (t CanvasType) Valid() bool {
	for _, c := range CanvasTypes {
		if c == t {
			return true
		}
	}
	return false
}

// CanvasAction asks the widget to open a panel.
type CanvasAction struct {
	Type        CanvasType `json:"type"`
	ProjectID   string     `json:"projectId,omitempty"`
	ProjectName string     `json:"projectName,omitempty"`
	Message     string     `json:"message,omitempty"`
}

// Lead is the contact information collected by the save_lead tool
type Lead struct {
	Name              string     `json:"name"`
	Phone             string     `json:"phone,omitempty"`
	Email             string     `json:"email,omitempty"`
	Budget            FlexString `json:"budget,omitempty"`
	InterestedProject string     `json:"interested_project,omitempty"`
	PreferredArea     string     `json:"preferred_area,omitempty"`
	Bedrooms          FlexString `json:"bedrooms,omitempty"`
	Timeline          string     `json:"timeline,omitempty"`
	InvestmentPurpose string     `json:"investment_purpose,omitempty"`
	Notes             string     `json:"notes,omitempty"`
}

// HasContact reports whether the lead carries a phone number or an email.
func (l Lead) HasContact() bool {
	return l.Phone != "" || l.Email != ""
}

// SemanticSearchRequest represents a direct vector search request
type SemanticSearchRequest struct {
	Query       string `json:"query" binding:"required"`
	Limit       int    `json:"limit"`
	Bedrooms    string `json:"bedrooms,omitempty"`
	Type        string `json:"type,omitempty"`
	AreaID      string `json:"areaId,omitempty"`
	DeveloperID string `json:"developerId,omitempty"`
	Status      string `json:"status,omitempty"`
}

// VectorFilters are the optional predicates of a vector search
type VectorFilters struct {
	Bedrooms    string
	Type        string
	AreaID      string
	DeveloperID string
	Status      string
}

// Filters returns the request's predicates.
func (r SemanticSearchRequest) Filters() VectorFilters {
	return VectorFilters{
		Bedrooms:    r.Bedrooms,
		Type:        r.Type,
		AreaID:      r.AreaID,
		DeveloperID: r.DeveloperID,
		Status:      r.Status,
	}
}

// SemanticSearchResponse represents the result of a vector search
type SemanticSearchResponse struct {
	Results []RankedListing `json:"results"`
	Total   int             `json:"total"`
	Took    int64           `json:"took_ms"` // Response time in milliseconds
}

// FailedItem identifies a record that could not be embedded
type FailedItem struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BatchResult accumulates the outcome of one entity pass of a reindex
type BatchResult struct {
	Succeeded []string     `json:"succeeded"`
	Failed    []FailedItem `json:"failed"`
}

// ReindexReport is returned by a reindex run
type ReindexReport struct {
	Projects BatchResult `json:"projects"`
	Areas    BatchResult `json:"areas"`
	Steps    []string    `json:"steps"`
	Took     int64       `json:"took_ms"`
}

// Embedded returns the total number of rows embedded across both entities.
func (r *ReindexReport) Embedded() int {
	return len(r.Projects.Succeeded) + len(r.Areas.Succeeded)
}

// IndexVerification reports what provisioning found after it ran
type IndexVerification struct {
	Extension      bool `json:"extension"`
	ProjectsColumn bool `json:"projectsColumn"`
	AreasColumn    bool `json:"areasColumn"`
}

// OK reports whether every provisioned object is present.
func (v IndexVerification) OK() bool {
	return v.Extension && v.ProjectsColumn && v.AreasColumn
}

// ProvisionReport is returned by vector index provisioning
type ProvisionReport struct {
	Steps        []string          `json:"steps"`
	Verification IndexVerification `json:"verification"`
}
