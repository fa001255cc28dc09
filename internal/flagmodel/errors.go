package flagmodel

import "fmt"

// ResolutionError is the error type surfaced to callers of the resolver
// façade. It always carries one of the ErrorCode values.
type ResolutionError struct {
	Code    ErrorCode
	Message string
}

func (e *ResolutionError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewResolutionError builds a ResolutionError with a formatted message.
func NewResolutionError(code ErrorCode, format string, args ...any) *ResolutionError {
	return &ResolutionError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrFlagNotFound is returned (wrapped in a ResolutionError) when a flag key
// is absent from the current FlagSet.
var ErrFlagNotFound = NewResolutionError(ErrorFlagNotFound, "flag not found")

// ErrProviderNotReady is returned from the resolver façade's constructor when
// initialisation does not observe a first sync payload in time.
var ErrProviderNotReady = NewResolutionError(ErrorProviderNotReady, "provider not ready")
