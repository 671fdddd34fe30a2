package errx

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// SQLiteErrorMessage describes SQLite related failures.
	SQLiteErrorMessage = "sqlite operation failed"
	// UpstreamErrorMessage describes failures of hosted collaborators (model, search, vector store).
	UpstreamErrorMessage = "upstream service failed"
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

// BadRequest reports invalid caller input. The message is returned to the caller as-is.
func BadRequest(message string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Message: message}
}

// WrapRedis maps Redis errors to AppError with appropriate status codes.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return New(err, http.StatusNotFound, RedisNotFoundMessage)
	}
	return New(err, http.StatusBadGateway, RedisErrorMessage)
}

// WrapSQLite wraps a database/sql error coming from the SQLite store.
func WrapSQLite(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusInternalServerError, SQLiteErrorMessage)
}

// WrapUpstream wraps an error returned by a hosted collaborator.
func WrapUpstream(service string, err error) error {
	if err == nil {
		return nil
	}
	msg := UpstreamErrorMessage
	if s := strings.TrimSpace(service); s != "" {
		msg = s + " request failed"
	}
	return New(err, http.StatusBadGateway, msg)
}

// StatusOf returns the HTTP status carried by err, or 500 when err is not an AppError.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the message that is safe to show to callers.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return SystemErrorMessage
}

// Is reports whether the target matches the underlying error.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return errors.As(e.Err, target)
}
