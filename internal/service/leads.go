package service

import (
	"context"

	apperrors "concierge/internal/errors"
	"concierge/internal/logger"
	"concierge/internal/metrics"
	"concierge/internal/model"
)

// LeadSink receives contact details collected by the save_lead tool.
type LeadSink interface {
	CaptureLead(ctx context.Context, lead model.Lead) error
}

// LogLeadSink records leads in the log and the leads_captured_total counter.
type LogLeadSink struct {
	log logger.Logger
}

// NewLogLeadSink creates a lead sink that only logs
func NewLogLeadSink(log logger.Logger) *LogLeadSink {
	return &LogLeadSink{log: log}
}

// CaptureLead rejects leads without a phone number or an email.
func (s *LogLeadSink) CaptureLead(_ context.Context, lead model.Lead) error {
	if !lead.HasContact() {
		return apperrors.Validation("lead has neither phone nor email")
	}
	metrics.LeadsCaptured.Inc()
	s.log.Info("Lead captured", map[string]interface{}{
		"name":              lead.Name,
		"interestedProject": lead.InterestedProject,
		"preferredArea":     lead.PreferredArea,
		"budget":            string(lead.Budget),
		"timeline":          lead.Timeline,
		"hasPhone":          lead.Phone != "",
		"hasEmail":          lead.Email != "",
	})
	return nil
}
