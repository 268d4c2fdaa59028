package service

import (
	"regexp"
	"strings"
)

// Provider identifies an OpenAI-compatible API vendor by its base URL.
type Provider string

const (
	ProviderOpenAI  Provider = "openai"
	ProviderNVIDIA  Provider = "nvidia"
	ProviderGeneric Provider = "generic"
)

// DetectProvider returns the vendor behind baseURL. Unknown hosts are treated
// as generic OpenAI-format endpoints.
func DetectProvider(baseURL string) Provider {
	u := strings.ToLower(strings.TrimRight(baseURL, "/"))
	switch {
	case strings.Contains(u, "integrate.api.nvidia.com"):
		return ProviderNVIDIA
	case strings.Contains(u, "api.openai.com"):
		return ProviderOpenAI
	default:
		return ProviderGeneric
	}
}

var thinkBlockRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// cleanContent removes reasoning output that some hosted models (DeepSeek via
// NVIDIA and similar) inline into the assistant content. Reasoning delivered
// in reasoning_content is never copied into content in the first place.
func cleanContent(p Provider, content string) string {
	if p == ProviderOpenAI {
		return strings.TrimSpace(content)
	}
	content = thinkBlockRe.ReplaceAllString(content, "")
	if i := strings.Index(content, "</think>"); i >= 0 {
		content = content[i+len("</think>"):]
	}
	return strings.TrimSpace(content)
}
