package service

import (
	"strings"
	"testing"

	"concierge/internal/config"
	"concierge/internal/model"

	"github.com/stretchr/testify/assert"
)

func fallbackCandidates() []model.Project {
	return []model.Project{
		{Name: "Marina Vista", Location: "Dubai Marina", PriceFrom: "AED 1.4M", PaymentPlan: "60/40", CompletionDate: "Q4 2027", DeveloperName: "Emaar"},
		{Name: "Creek Edge", AreaName: "Dubai Creek Harbour", PriceFrom: "AED 1.1M", DeveloperName: "Emaar"},
		{Name: "Hills Park", Location: "Dubai Hills", PriceFrom: "AED 2M", PaymentPlan: "80/20"},
		{Name: "Fourth Tower", Location: "JLT"},
	}
}

func TestFallbackResponder_Greeting(t *testing.T) {
	f := NewFallbackResponder(config.DefaultVocabulary())

	assert.Equal(t, greetingReply, f.Respond("hello", fallbackCandidates()))
	assert.Equal(t, greetingReply, f.Respond("Hello", nil))
	assert.Equal(t, greetingReply, f.Respond("Good morning, any villas?", fallbackCandidates()))
	assert.NotEqual(t, greetingReply, f.Respond("show me this one", fallbackCandidates()), "hi inside a word is not a greeting")
}

func TestFallbackResponder_EmptyCandidates(t *testing.T) {
	f := NewFallbackResponder(config.DefaultVocabulary())

	for _, msg := range []string{"what is the roi?", "where is it located", "apartments please", ""} {
		assert.Equal(t, clarificationReply, f.Respond(msg, nil), msg)
	}
	for _, word := range []string{"location", "budget", "property type", "bedrooms"} {
		assert.Contains(t, clarificationReply, word)
	}
}

func TestFallbackResponder_Classification(t *testing.T) {
	f := NewFallbackResponder(config.DefaultVocabulary())
	c := fallbackCandidates()

	roi := f.Respond("What rental yield can I expect?", c)
	assert.Contains(t, roi, "investment angle")
	assert.Contains(t, roi, "Payment plan: 60/40")

	loc := f.Respond("Which community is it near?", c)
	assert.Contains(t, loc, "match the location")
	assert.Contains(t, loc, "Creek Edge in Dubai Creek Harbour")

	generic := f.Respond("Show me apartments", c)
	assert.Contains(t, generic, "may suit you")
	assert.Contains(t, generic, "Marina Vista (Dubai Marina) by Emaar")
}

func TestFallbackResponder_FirstThreeInOrder(t *testing.T) {
	f := NewFallbackResponder(config.DefaultVocabulary())
	reply := f.Respond("show me projects", fallbackCandidates())

	assert.NotContains(t, reply, "Fourth Tower")
	first := strings.Index(reply, "Marina Vista")
	second := strings.Index(reply, "Creek Edge")
	third := strings.Index(reply, "Hills Park")
	assert.True(t, first >= 0 && first < second && second < third)
	assert.Contains(t, reply, "completion not listed")
}

func TestFallbackResponder_Deterministic(t *testing.T) {
	f := NewFallbackResponder(config.DefaultVocabulary())
	c := fallbackCandidates()

	for _, msg := range []string{"hello", "roi?", "where", "anything", ""} {
		assert.Equal(t, f.Respond(msg, c), f.Respond(msg, c))
	}
}

func TestFallbackResponder_SyntheticGreetings(t *testing.T) {
	f := NewFallbackResponder(config.Vocabulary{Greetings: []string{" Yo "}})

	assert.Equal(t, greetingReply, f.Respond("yo, anything in the palm", fallbackCandidates()))
	assert.NotEqual(t, greetingReply, f.Respond("hello", fallbackCandidates()))
}

func TestFallbackResponder_MarinaScenario(t *testing.T) {
	vocab := config.DefaultVocabulary()
	msg := "Looking for something in Marina under 1.5M"

	filter := NewIntentExtractor(vocab).Extract(msg)
	assert.Equal(t, "marina", filter.Area)

	reply := NewFallbackResponder(vocab).Respond(msg, []model.Project{
		{Name: "Marina Vista", AreaName: "Dubai Marina", PriceFrom: "AED 1.4M"},
	})
	assert.Contains(t, reply, "Marina Vista")
}
