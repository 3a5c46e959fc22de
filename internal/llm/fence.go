package llm

import (
	"regexp"
	"strings"
)

var fence = regexp.MustCompile("(?s)^```([\\w-]*)?[ \\t]*\\n?(.*?)\\n?\\s*```$")

// UnwrapFence strips one surrounding code fence (with an optional language
// tag) from the trimmed text. Text without a fence is returned trimmed.
func UnwrapFence(text string) string {
	text = strings.TrimSpace(text)
	if m := fence.FindStringSubmatch(text); m != nil && strings.TrimSpace(m[2]) != "" {
		return strings.TrimSpace(m[2])
	}
	return text
}
