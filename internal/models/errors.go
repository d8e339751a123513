package models

import "errors"

// Error kinds. Each kind maps to one HTTP status; CONFLICT errors carry an
// additional code naming the violated precondition.
const (
	KindAuthMissing      = "AUTH_MISSING"
	KindAuthInvalid      = "AUTH_INVALID"
	KindAuthExpired      = "AUTH_EXPIRED"
	KindPermissionDenied = "PERMISSION_DENIED"
	KindValidation       = "VALIDATION"
	KindConflict         = "CONFLICT"
	KindNotFound         = "NOT_FOUND"
	KindInternal         = "INTERNAL"
)

// Conflict codes
const (
	CodeAlreadyInGame         = "ALREADY_IN_GAME"
	CodeAlreadyQueued         = "ALREADY_QUEUED"
	CodeAlreadyPendingRequest = "ALREADY_PENDING_REQUEST"
	CodeBlocked               = "BLOCKED"
	CodeOpponentOffline       = "OPPONENT_OFFLINE"
	CodeSelfAction            = "SELF_ACTION"
)

// Error is a domain error with a taxonomy kind. Components return these
// across boundaries; the HTTP layer maps kinds to statuses.
type Error struct {
	Kind    string
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func NewError(kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func ErrAuthMissing(message string) *Error {
	return &Error{Kind: KindAuthMissing, Message: message}
}

func ErrAuthInvalid(message string) *Error {
	return &Error{Kind: KindAuthInvalid, Message: message}
}

func ErrAuthExpired(message string) *Error {
	return &Error{Kind: KindAuthExpired, Message: message}
}

func ErrPermissionDenied(message string) *Error {
	return &Error{Kind: KindPermissionDenied, Message: message}
}

func ErrValidation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func ErrConflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

func ErrNotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// KindOf extracts the taxonomy kind from any error. Errors that are not
// domain errors classify as INTERNAL.
func KindOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// CodeOf extracts the conflict code, or "" when the error carries none.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
