package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrFetch is returned when a page could not be retrieved.
	ErrFetch = errors.New("fetch failed")
	// ErrEmptyContent is returned when extraction yields no text.
	ErrEmptyContent = errors.New("no text content")
	// ErrStoreMissing is returned when no chunks have been ingested yet.
	ErrStoreMissing = errors.New("no index present")
	// ErrStoreCorrupt is returned when persisted chunks cannot be read.
	ErrStoreCorrupt = errors.New("stored data unreadable")
	// ErrGeneration is returned when the answer service call fails.
	ErrGeneration = errors.New("generation service error")
	// ErrDisabled is returned when a feature is switched off by missing credentials.
	ErrDisabled = errors.New("feature disabled")
)

// InvalidInputError represents a rejected input value.
type InvalidInputError struct {
	Field   string
	Value   string
	Message string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Message)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// FetchError carries the URL and cause of a failed page retrieval.
// StatusCode is zero for network-level failures.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Is reports ErrFetch so callers can match the category.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// StoreCorruptError describes a persisted store that could not be decoded.
type StoreCorruptError struct {
	Path string
	Err  error
}

func (e *StoreCorruptError) Error() string {
	return fmt.Sprintf("store %s is unreadable: %v", e.Path, e.Err)
}

func (e *StoreCorruptError) Is(target error) bool {
	return target == ErrStoreCorrupt
}

func (e *StoreCorruptError) Unwrap() error {
	return e.Err
}

// GenerationServiceError wraps a failed call to the answer service.
type GenerationServiceError struct {
	Model string
	Err   error
}

func (e *GenerationServiceError) Error() string {
	return fmt.Sprintf("generation with %s failed: %v", e.Model, e.Err)
}

func (e *GenerationServiceError) Is(target error) bool {
	return target == ErrGeneration
}

func (e *GenerationServiceError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
