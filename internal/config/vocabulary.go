package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// AliasRule maps a lower-case substring pattern to the canonical keyword the
// retriever searches for. Rules are evaluated in slice order.
type AliasRule struct {
	Pattern string `mapstructure:"pattern" json:"pattern"`
	Value   string `mapstructure:"value" json:"value"`
}

// Canonical returns Value, or Pattern when Value is empty.
func (r AliasRule) Canonical() string {
	if r.Value != "" {
		return r.Value
	}
	return r.Pattern
}

// TopicRules is the domain boundary handed to the language model.
type TopicRules struct {
	Allowed []string `mapstructure:"allowed" json:"allowed"`
	Denied  []string `mapstructure:"denied" json:"denied"`
}

// Vocabulary is the recognised-option configuration shared by the intent
// extractor, the context builder and the fallback responder.
type Vocabulary struct {
	Areas      []AliasRule `mapstructure:"areas" json:"areas"`
	Developers []AliasRule `mapstructure:"developers" json:"developers"`
	Greetings  []string    `mapstructure:"greetings" json:"greetings"`
	Topics     TopicRules  `mapstructure:"topics" json:"topics"`
}

// DefaultVocabulary returns the built-in Dubai off-plan vocabulary. Order is
// significant: more specific aliases are listed before the generic ones they
// contain.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Areas: []AliasRule{
			{Pattern: "downtown", Value: "downtown"},
			{Pattern: "marina", Value: "marina"},
			{Pattern: "business bay", Value: "business bay"},
			{Pattern: "palm", Value: "palm jumeirah"},
			{Pattern: "jvc", Value: "jumeirah village"},
			{Pattern: "jumeirah village", Value: "jumeirah village"},
			{Pattern: "jbr", Value: "jumeirah beach"},
			{Pattern: "jlt", Value: "jumeirah lake"},
			{Pattern: "dubai hills", Value: "dubai hills"},
			{Pattern: "creek", Value: "creek"},
			{Pattern: "arabian ranches", Value: "arabian ranches"},
			{Pattern: "dubai south", Value: "dubai south"},
			{Pattern: "meydan", Value: "meydan"},
			{Pattern: "mbr", Value: "mohammed bin rashid"},
			{Pattern: "hartland", Value: "hartland"},
			{Pattern: "al furjan", Value: "al furjan"},
			{Pattern: "damac hills", Value: "damac hills"},
			{Pattern: "emaar beachfront", Value: "emaar beachfront"},
			{Pattern: "jumeirah", Value: "jumeirah"},
		},
		Developers: []AliasRule{
			{Pattern: "emaar", Value: "emaar"},
			{Pattern: "damac", Value: "damac"},
			{Pattern: "sobha", Value: "sobha"},
			{Pattern: "nakheel", Value: "nakheel"},
			{Pattern: "meraas", Value: "meraas"},
			{Pattern: "ellington", Value: "ellington"},
			{Pattern: "binghatti", Value: "binghatti"},
			{Pattern: "danube", Value: "danube"},
			{Pattern: "azizi", Value: "azizi"},
			{Pattern: "omniyat", Value: "omniyat"},
			{Pattern: "select group", Value: "select group"},
			{Pattern: "dubai properties", Value: "dubai properties"},
		},
		Greetings: []string{
			"hello", "hi", "hey", "good morning", "good afternoon", "good evening",
			"salam", "assalamu alaikum", "marhaba", "greetings",
		},
		Topics: TopicRules{
			Allowed: []string{
				"Off-plan and ready projects listed in the catalogue",
				"Dubai areas, communities and neighbourhoods",
				"Developers and their track record",
				"Prices, payment plans, handover and completion dates",
				"Mortgages, ROI, rental yield and investment strategy",
				"Golden Visa and ownership rules for buyers",
				"Booking viewings and arranging a call with a consultant",
			},
			Denied: []string{
				"Politics, religion or other controversial subjects",
				"Medical, tax-filing or binding legal advice",
				"Programming, homework or general-knowledge questions",
				"Properties or markets outside the catalogue",
				"Recommending competing brokerages",
			},
		},
	}
}

// LoadVocabulary reads a vocabulary file (YAML, JSON or TOML by extension)
// and overlays the sections it defines on top of DefaultVocabulary. An empty
// path returns the defaults.
func LoadVocabulary(path string) (Vocabulary, error) {
	vocab := DefaultVocabulary()
	if path == "" {
		return vocab, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return vocab, fmt.Errorf("read vocabulary file %s: %w", path, err)
	}

	if v.IsSet("areas") {
		var rules []AliasRule
		if err := v.UnmarshalKey("areas", &rules); err != nil {
			return vocab, fmt.Errorf("decode areas: %w", err)
		}
		vocab.Areas = normalizeRules(rules)
	}
	if v.IsSet("developers") {
		var rules []AliasRule
		if err := v.UnmarshalKey("developers", &rules); err != nil {
			return vocab, fmt.Errorf("decode developers: %w", err)
		}
		vocab.Developers = normalizeRules(rules)
	}
	if v.IsSet("greetings") {
		vocab.Greetings = normalizeTerms(v.GetStringSlice("greetings"))
	}
	if v.IsSet("topics.allowed") {
		vocab.Topics.Allowed = v.GetStringSlice("topics.allowed")
	}
	if v.IsSet("topics.denied") {
		vocab.Topics.Denied = v.GetStringSlice("topics.denied")
	}

	return vocab, nil
}

func normalizeRules(rules []AliasRule) []AliasRule {
	out := make([]AliasRule, 0, len(rules))
	for _, r := range rules {
		r.Pattern = strings.ToLower(strings.TrimSpace(r.Pattern))
		r.Value = strings.ToLower(strings.TrimSpace(r.Value))
		if r.Pattern == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}
