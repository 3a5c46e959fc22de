package gemini

import (
	"errors"
	"net/http"
	"strings"

	"github.com/baodaydungsone/chai/internal/llm"
	"google.golang.org/genai"
)

// Substrings that tie a plain error message to the credential in use.
var credentialIndicators = []string{
	"api key",
	"api_key",
	"permission denied",
	"permission_denied",
	"quota",
	"billing",
}

func tag(err error) error {
	var pe *llm.ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &llm.ProviderError{Kind: Classify(err), Err: err}
}

// Classify maps a genai failure to an error kind. Structured API errors are
// judged by status code first; anything else falls back to ClassifyMessage.
func Classify(err error) llm.ErrorKind {
	if err == nil {
		return llm.KindTransient
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
			return llm.KindCredential
		}
		switch apiErr.Status {
		case "UNAUTHENTICATED", "PERMISSION_DENIED", "RESOURCE_EXHAUSTED":
			return llm.KindCredential
		case "FAILED_PRECONDITION":
			// billing not enabled or region unsupported for this key
			return llm.KindCredential
		}
		return ClassifyMessage(apiErr.Message)
	}
	return ClassifyMessage(err.Error())
}

func ClassifyMessage(msg string) llm.ErrorKind {
	msg = strings.ToLower(msg)
	for _, s := range credentialIndicators {
		if strings.Contains(msg, s) {
			return llm.KindCredential
		}
	}
	return llm.KindTransient
}
