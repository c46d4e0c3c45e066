package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while registering slices or
// running thunks.
//
// Runtime errors include:
//   - Event collision: two slices claim the same event type
//   - Path conflict: two slices share a path or one nests inside the other
//   - Engine stopped: the engine no longer accepts registrations
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the state path of the slice involved.
	Path string

	// EventType is the colliding event type, if any.
	EventType string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeEventCollision indicates two slices declare the same event type.
	ErrCodeEventCollision RuntimeErrorCode = "EVENT_COLLISION"

	// ErrCodePathConflict indicates overlapping slice paths.
	ErrCodePathConflict RuntimeErrorCode = "PATH_CONFLICT"

	// ErrCodeStopped indicates the engine has been stopped.
	ErrCodeStopped RuntimeErrorCode = "ENGINE_STOPPED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.EventType != "" {
		return fmt.Sprintf("%s: %s (path=%s, event=%s)", e.Code, e.Message, e.Path, e.EventType)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path=%s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCollisionError returns true if err is an event collision.
// Uses errors.As to handle wrapped errors.
func IsCollisionError(err error) bool {
	return hasCode(err, ErrCodeEventCollision)
}

// IsPathConflict returns true if err is a path conflict.
func IsPathConflict(err error) bool {
	return hasCode(err, ErrCodePathConflict)
}

// IsStopped returns true if err reports a stopped engine.
func IsStopped(err error) bool {
	return hasCode(err, ErrCodeStopped)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

func newCollisionError(path, eventType, owner string) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeEventCollision,
		Message:   fmt.Sprintf("event type already handled by slice at %q", owner),
		Path:      path,
		EventType: eventType,
	}
}

func newPathConflict(path, other string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodePathConflict,
		Message: fmt.Sprintf("overlaps slice at %q", other),
		Path:    path,
	}
}
