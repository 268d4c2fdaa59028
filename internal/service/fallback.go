package service

import (
	"fmt"
	"strings"

	"concierge/internal/config"
	"concierge/internal/model"
	"concierge/internal/utils"
)

const maxFallbackCandidates = 3

const (
	greetingReply = "Hello and welcome! I can help you find off-plan projects in Dubai. " +
		"Tell me which area you like, your budget and how many bedrooms you need."

	clarificationReply = "I could not find a matching project yet. Could you tell me your preferred location, " +
		"your budget, the property type (apartment, villa or townhouse) and the number of bedrooms?"
)

var (
	roiKeywords      = []string{"roi", "return", "yield", "invest", "rental", "profit"}
	locationKeywords = []string{"where", "location", "area", "near", "community", "neighbourhood", "neighborhood"}
)

type fallbackIntent int

const (
	intentGeneric fallbackIntent = iota
	intentROI
	intentLocation
)

// FallbackResponder produces a deterministic templated answer when the
// language model cannot be used.
type FallbackResponder struct {
	greetings []string
}

// NewFallbackResponder creates a responder using the vocabulary's greetings.
func NewFallbackResponder(vocab config.Vocabulary) *FallbackResponder {
	greetings := make([]string, 0, len(vocab.Greetings))
	for _, g := range vocab.Greetings {
		if g = strings.ToLower(strings.TrimSpace(g)); g != "" {
			greetings = append(greetings, g)
		}
	}
	return &FallbackResponder{greetings: greetings}
}

// Respond never fails and has no side effects.
func (f *FallbackResponder) Respond(raw string, candidates []model.Project) string {
	lower := strings.ToLower(raw)
	if f.isGreeting(lower) {
		return greetingReply
	}
	if len(candidates) == 0 {
		return clarificationReply
	}
	if len(candidates) > maxFallbackCandidates {
		candidates = candidates[:maxFallbackCandidates]
	}

	var sb strings.Builder
	switch classify(lower) {
	case intentROI:
		sb.WriteString("Here are projects worth a look from an investment angle. ")
		sb.WriteString("Payment plans and handover dates drive most of the return on off-plan purchases:\n")
		for i, p := range candidates {
			fmt.Fprintf(&sb, "\n%d. %s by %s, from %s. Payment plan: %s. Completion: %s.",
				i+1, p.Name, orUnknown(p.DeveloperName), orUnknown(p.PriceFrom), orUnknown(p.PaymentPlan), orUnknown(p.CompletionDate))
		}
		sb.WriteString("\n\nA consultant can share rental yield estimates for any of these.")
	case intentLocation:
		sb.WriteString("These projects match the location you asked about:\n")
		for i, p := range candidates {
			fmt.Fprintf(&sb, "\n%d. %s in %s by %s, from %s. Completion: %s.",
				i+1, p.Name, orUnknown(firstNonEmpty(p.Location, p.AreaName)), orUnknown(p.DeveloperName), orUnknown(p.PriceFrom), orUnknown(p.CompletionDate))
		}
		sb.WriteString("\n\nWould you like to see the map or book a viewing?")
	default:
		sb.WriteString("Here are some projects that may suit you:\n")
		for i, p := range candidates {
			fmt.Fprintf(&sb, "\n%d. %s (%s) by %s. Price from %s, payment plan %s, completion %s.",
				i+1, p.Name, orUnknown(firstNonEmpty(p.Location, p.AreaName)), orUnknown(p.DeveloperName),
				orUnknown(p.PriceFrom), orUnknown(p.PaymentPlan), orUnknown(p.CompletionDate))
		}
		sb.WriteString("\n\nShare your budget and preferred bedrooms and I can narrow this down.")
	}
	return sb.String()
}

func (f *FallbackResponder) isGreeting(lower string) bool {
	for _, g := range f.greetings {
		if utils.ContainsWord(lower, g) {
			return true
		}
	}
	return false
}

func classify(lower string) fallbackIntent {
	switch {
	case utils.ContainsAny(lower, roiKeywords...):
		return intentROI
	case utils.ContainsAny(lower, locationKeywords...):
		return intentLocation
	default:
		return intentGeneric
	}
}
