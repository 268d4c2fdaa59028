package service

import (
	"fmt"
	"strings"

	"concierge/internal/config"
	"concierge/internal/model"
)

const contextAmenityCap = 6

const groundingRules = `GROUNDING RULES (mandatory):
- Recommend ONLY projects listed under AVAILABLE PROJECTS below.
- Never invent projects, prices, payment plans, completion dates, amenities or developers.
- If a detail is not listed, say you will confirm it with a consultant instead of guessing.
- Quote prices exactly as written; they are display labels, not exact figures.
- Include the project link when you recommend a project.`

const toolGuidance = `TOOLS:
- Call save_lead only after the user has shared a phone number or an email and wants to be contacted.
- Call open_canvas when the user asks about mortgages, investment returns, photos, floor plans, the neighbourhood, booking a viewing, price history or the map.`

const noCandidatesNotice = `AVAILABLE PROJECTS: none matched this request.
Do not name or describe any project. Ask the user for their preferred location, budget, property type and number of bedrooms.`

// ContextBuilder renders retrieved candidates and domain rules into the
// payload sent to the language model.
type ContextBuilder struct {
	vocab        config.Vocabulary
	siteBaseURL  string
	toolsEnabled bool
}

// NewContextBuilder creates a context builder
func NewContextBuilder(vocab config.Vocabulary, siteBaseURL string, toolsEnabled bool) *ContextBuilder {
	return &ContextBuilder{
		vocab:        vocab,
		siteBaseURL:  strings.TrimRight(siteBaseURL, "/"),
		toolsEnabled: toolsEnabled,
	}
}

// Build returns the system instructions followed by history (verbatim) and
// the current user message.
func (b *ContextBuilder) Build(history []model.ConversationTurn, message string, retrieval *model.RetrievalResult) *model.GroundingPayload {
	instructions := b.systemInstructions(retrieval)

	messages := make([]model.ConversationTurn, 0, len(history)+2)
	messages = append(messages, model.ConversationTurn{Role: model.RoleSystem, Content: instructions})
	messages = append(messages, history...)
	messages = append(messages, model.ConversationTurn{Role: model.RoleUser, Content: message})

	return &model.GroundingPayload{
		SystemInstructions: instructions,
		Messages:           messages,
	}
}

func (b *ContextBuilder) systemInstructions(retrieval *model.RetrievalResult) string {
	var sb strings.Builder
	sb.WriteString("You are the property concierge of a Dubai off-plan real estate website. ")
	sb.WriteString("Be concise, friendly and specific. Answer in the user's language.\n\n")

	sb.WriteString(groundingRules)
	sb.WriteString("\n\n")
	sb.WriteString(b.topicRules())

	if b.toolsEnabled {
		sb.WriteString("\n\n")
		sb.WriteString(toolGuidance)
	}

	if retrieval != nil && retrieval.Filter.HasBudget() {
		fmt.Fprintf(&sb, "\n\nThe user mentioned a budget of about AED %s. Prices below are labels, so treat the budget as guidance and do not filter strictly.",
			formatAED(*retrieval.Filter.Budget))
	}

	sb.WriteString("\n\n")
	if retrieval.Len() == 0 {
		sb.WriteString(noCandidatesNotice)
		return sb.String()
	}

	sb.WriteString("AVAILABLE PROJECTS:\n")
	for i, l := range retrieval.Listings {
		sb.WriteString("\n")
		b.writeCandidate(&sb, i+1, l, retrieval.Method)
	}
	return sb.String()
}

func (b *ContextBuilder) topicRules() string {
	var sb strings.Builder
	sb.WriteString("TOPICS YOU MAY DISCUSS:")
	for _, t := range b.vocab.Topics.Allowed {
		sb.WriteString("\n- ")
		sb.WriteString(t)
	}
	sb.WriteString("\n\nTOPICS YOU MUST DECLINE (politely steer back to property):")
	for _, t := range b.vocab.Topics.Denied {
		sb.WriteString("\n- ")
		sb.WriteString(t)
	}
	return sb.String()
}

func (b *ContextBuilder) writeCandidate(sb *strings.Builder, n int, l model.RankedListing, method model.RetrievalMethod) {
	p := l.Project
	fmt.Fprintf(sb, "%d. %s\n", n, orUnknown(p.Name))
	fmt.Fprintf(sb, "   Developer: %s\n", orUnknown(p.DeveloperName))
	fmt.Fprintf(sb, "   Location: %s\n", orUnknown(firstNonEmpty(p.Location, p.AreaName)))
	fmt.Fprintf(sb, "   Starting price: %s\n", orUnknown(p.PriceFrom))
	fmt.Fprintf(sb, "   Payment plan: %s\n", orUnknown(p.PaymentPlan))
	fmt.Fprintf(sb, "   Completion: %s\n", orUnknown(p.CompletionDate))
	fmt.Fprintf(sb, "   Bedrooms: %s\n", orUnknown(strings.Join(p.Bedrooms(), ", ")))
	fmt.Fprintf(sb, "   Amenities: %s\n", orUnknown(strings.Join(p.TopAmenities(contextAmenityCap), ", ")))
	fmt.Fprintf(sb, "   Description: %s\n", orUnknown(p.Description))
	if method == model.MethodVector && l.Similarity != nil {
		fmt.Fprintf(sb, "   Relevance: %.2f\n", *l.Similarity)
	}
	fmt.Fprintf(sb, "   Link: %s\n", b.ProjectURL(p))
}

// ProjectURL builds the public detail URL of a project.
func (b *ContextBuilder) ProjectURL(p model.Project) string {
	if p.AreaSlug != "" {
		return fmt.Sprintf("%s/%s/%s", b.siteBaseURL, p.AreaSlug, p.Slug)
	}
	return fmt.Sprintf("%s/projects/%s", b.siteBaseURL, p.Slug)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "not listed"
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// formatAED renders n with thousands separators.
func formatAED(n int64) string {
	if n < 0 {
		return "-" + formatAED(-n)
	}
	s := fmt.Sprintf("%d", n)
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	return string(out)
}
