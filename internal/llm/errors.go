package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration means no credential was available to try.
	ErrConfiguration = errors.New("configuration error")
	// ErrCredential marks a failure attributable to one credential.
	ErrCredential = errors.New("credential rejected")
	// ErrExhausted means every credential in the pool was rejected.
	ErrExhausted  = errors.New("all credentials exhausted")
	ErrValidation = errors.New("validation error")
	// ErrProtocol means the model reply did not follow the requested format.
	ErrProtocol  = errors.New("protocol error")
	ErrTransient = errors.New("provider error")
)

type ErrorKind int

const (
	KindTransient ErrorKind = iota
	KindCredential
)

func (k ErrorKind) String() string {
	if k == KindCredential {
		return "credential"
	}
	return "transient"
}

// ProviderError tags an error raised by a provider client with its kind.
type ProviderError struct {
	Kind ErrorKind
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() []error {
	if e.Kind == KindCredential {
		return []error{ErrCredential, e.Err}
	}
	return []error{ErrTransient, e.Err}
}

// IsRetryable reports whether err should move the executor to the next credential.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrCredential)
}
