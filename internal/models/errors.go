package models

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexNotFound is returned when a query arrives before documents were processed.
	ErrIndexNotFound = errors.New("index not found: process documents first")
	// ErrNoSourceText is returned when a quiz is requested without document text.
	ErrNoSourceText = errors.New("no document text available for quiz generation")
	ErrNoDocuments  = errors.New("no documents provided")
	ErrNoQuiz       = errors.New("no quiz has been generated")
)

// ExtractionError reports a document that could not be turned into text.
type ExtractionError struct {
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract %q: %v", e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ConfigError reports an invalid setting, either from the config file or
// from parameters passed to a constructor.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid config %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// UpstreamError wraps a failed embedding or generation request (network,
// auth, quota).
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// UpstreamTimeoutError is an upstream request that ran past its deadline.
// Unlike other upstream failures it is worth retrying as-is.
type UpstreamTimeoutError struct {
	Op  string
	Err error
}

func (e *UpstreamTimeoutError) Error() string {
	return fmt.Sprintf("%s request timed out: %v", e.Op, e.Err)
}

func (e *UpstreamTimeoutError) Unwrap() error { return e.Err }

func (e *UpstreamTimeoutError) Retryable() bool { return true }

// SynthesisError is returned by the answer synthesizer when the model call fails.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("failed to synthesize answer: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// GenerationError is returned by the quiz generator when the model call fails.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("failed to generate quiz: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// AnswerRangeError is returned when a selection does not address an existing
// question or option.
type AnswerRangeError struct {
	Question int
	Option   int
}

func (e *AnswerRangeError) Error() string {
	return fmt.Sprintf("answer out of range: question %d option %d", e.Question, e.Option)
}

// IsRetryable reports whether err is a transient upstream failure.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	return errors.As(err, &r) && r.Retryable()
}
