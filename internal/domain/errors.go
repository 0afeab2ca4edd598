package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrValidationFailed  = errors.New("validation failed")
	ErrPersistenceFailed = errors.New("persistence failed")
	ErrLookupFailed      = errors.New("lookup failed")
	ErrNotConfigured     = errors.New("payment gateway not configured")
	ErrInvalidAmount     = errors.New("invalid payment amount")
	ErrUnknownService    = errors.New("unknown service")
	ErrNotFound          = errors.New("not found")
	ErrPaymentReused     = errors.New("payment already recorded on another booking")
)

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidationFailed.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, name := range sortedKeys(e.Fields) {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return ErrValidationFailed.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
