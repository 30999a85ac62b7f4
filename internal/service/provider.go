package service

import (
	"regexp"
	"strings"
)

// Provider identifies an OpenAI-compatible host by the quirks the fallback
// has to work around.
type Provider int

const (
	ProviderGeneric Provider = iota
	ProviderOpenAI
	// ProviderNVIDIA hosts reasoning models (DeepSeek and similar) that reject
	// response_format and may inline their reasoning into the content.
	ProviderNVIDIA
)

func (p Provider) String() string {
	switch p {
	case ProviderOpenAI:
		return "openai"
	case ProviderNVIDIA:
		return "nvidia"
	default:
		return "generic"
	}
}

// DetectProvider checks the API base URL.
func DetectProvider(baseURL string) Provider {
	switch {
	case strings.Contains(baseURL, "api.openai.com"):
		return ProviderOpenAI
	case strings.Contains(baseURL, "integrate.api.nvidia.com"):
		return ProviderNVIDIA
	}
	return ProviderGeneric
}

// SupportsJSONMode reports whether requests may set response_format.
func (p Provider) SupportsJSONMode() bool {
	return p != ProviderNVIDIA
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// CleanContent drops inline reasoning blocks from a model reply.
func CleanContent(content string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(content, ""))
}
