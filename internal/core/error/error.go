package errx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
)

// Dialogue error taxonomy. Only ErrModelUnavailable at startup is fatal; the rest
// are recovered inside a turn and turned into reply text.
var (
	// ErrModelUnavailable means no classifier generation has been loaded yet.
	ErrModelUnavailable = errors.New("intent model unavailable")
	// ErrLowConfidence means the classifier ran but its top label fell below the threshold.
	ErrLowConfidence = errors.New("intent confidence below threshold")
	// ErrValidation means a flow step rejected the user's input.
	ErrValidation = errors.New("flow input validation failed")
	// ErrFlowAborted means a flow ended through cancel or the retry limit.
	ErrFlowAborted = errors.New("flow aborted")
	// ErrCollaborator means a ledger or profile call failed.
	ErrCollaborator = errors.New("collaborator call failed")
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// WrapRedis maps Redis errors to AppError with a consistent status code and message.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return New(err, http.StatusNotFound, RedisNotFoundMessage)
	}
	return New(err, http.StatusBadGateway, RedisErrorMessage)
}

// Collaborator wraps a failed ledger/profile call so callers can test for ErrCollaborator
// while still reaching the original cause.
func Collaborator(op string, err error) error {
	if err == nil {
		return nil
	}
	return New(fmt.Errorf("%s: %w: %w", op, ErrCollaborator, err), http.StatusBadGateway, "collaborator unavailable")
}

// TrainingError reports why a classifier generation could not be produced.
type TrainingError struct {
	Reason string
	Err    error
}

func (e *TrainingError) Error() string {
	if e.Err == nil {
		return "training failed: " + e.Reason
	}
	return fmt.Sprintf("training failed: %s: %v", e.Reason, e.Err)
}

func (e *TrainingError) Unwrap() error {
	return e.Err
}

// Training builds a TrainingError.
func Training(reason string, err error) *TrainingError {
	return &TrainingError{Reason: reason, Err: err}
}
