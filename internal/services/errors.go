package services

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies expected upload failures so callers can branch without
// matching on messages.
type ErrorKind string

const (
	EntitlementDenied     ErrorKind = "EntitlementDenied"
	ProviderUnavailable   ErrorKind = "ProviderUnavailable"
	ProviderMisconfigured ErrorKind = "ProviderMisconfigured"
	FileInaccessible      ErrorKind = "FileInaccessible"
	SizeExceeded          ErrorKind = "SizeExceeded"
	QuotaExceeded         ErrorKind = "QuotaExceeded"
	RemoteProviderError   ErrorKind = "RemoteProviderError"
)

// Retryable reports whether the same request may succeed later without any
// configuration or data change.
func (k ErrorKind) Retryable() bool {
	return k == RemoteProviderError
}

// UploadError is an expected failure. ResetDate is set for QuotaExceeded.
type UploadError struct {
	Kind      ErrorKind  `json:"kind"`
	Message   string     `json:"message"`
	ResetDate *time.Time `json:"resetDate,omitempty"`
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newUploadError(kind ErrorKind, format string, args ...interface{}) *UploadError {
	return &UploadError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of an *UploadError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var uerr *UploadError
	if errors.As(err, &uerr) {
		return uerr.Kind, true
	}
	return "", false
}
