package service

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"concierge/internal/config"
	"concierge/internal/model"
)

// budgetRe matches "<number> <unit>". The trailing word boundary keeps
// "2 months" or "3 km" from being read as a budget.
var budgetRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(m|million|k|thousand)\b`)

// RuleSet is an ordered list of alias rules. Match stops at the first rule
// whose pattern occurs in the text, so list order is the priority order.
type RuleSet []config.AliasRule

// Match returns the canonical value of the first matching rule.
func (rs RuleSet) Match(lower string) (string, bool) {
	for _, r := range rs {
		if r.Pattern != "" && strings.Contains(lower, r.Pattern) {
			return r.Canonical(), true
		}
	}
	return "", false
}

// IntentExtractor parses a chat message into a StructuredFilter
type IntentExtractor struct {
	areas      RuleSet
	developers RuleSet
}

// NewIntentExtractor creates an extractor over the given vocabulary
func NewIntentExtractor(vocab config.Vocabulary) *IntentExtractor {
	return &IntentExtractor{
		areas:      RuleSet(vocab.Areas),
		developers: RuleSet(vocab.Developers),
	}
}

// Extract never fails; fields that are not found are left empty.
func (e *IntentExtractor) Extract(raw string) *model.StructuredFilter {
	lower := strings.ToLower(raw)
	filter := &model.StructuredFilter{Message: lower}

	if area, ok := e.areas.Match(lower); ok {
		filter.Area = area
	}
	if dev, ok := e.developers.Match(lower); ok {
		filter.Developer = dev
	}
	filter.Budget = parseBudget(lower)

	return filter
}

// parseBudget reads the first "<number><unit>" in s. The multiplier comes
// from the unit attached to that number, not from unit words elsewhere.
func parseBudget(s string) *int64 {
	m := budgetRe.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}

	var mult float64
	switch strings.ToLower(m[2]) {
	case "k", "thousand":
		mult = 1e3
	case "m", "million":
		mult = 1e6
	default:
		return nil
	}

	v := int64(math.Round(n * mult))
	return &v
}
