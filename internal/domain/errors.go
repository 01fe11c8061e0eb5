package domain

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures so that callers can react without
// string matching.
type Kind string

const (
	KindConfig        Kind = "config_error"
	KindDecode        Kind = "decode_error"
	KindNoFace        Kind = "no_face_detected"
	KindAnalysis      Kind = "analysis_error"
	KindDivision      Kind = "division_error"
	KindTemplate      Kind = "template_error"
	KindAuth          Kind = "auth_error"
	KindModel         Kind = "model_error"
	KindEmptyResponse Kind = "empty_response"
	KindStaleSession  Kind = "stale_session"
	KindRender        Kind = "render_error"
)

// Error carries a Kind, a short user facing message and the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is regardless of message or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrConfig         = &Error{Kind: KindConfig}
	ErrDecode         = &Error{Kind: KindDecode}
	ErrNoFaceDetected = &Error{Kind: KindNoFace}
	ErrAnalysis       = &Error{Kind: KindAnalysis}
	ErrDivision       = &Error{Kind: KindDivision}
	ErrTemplate       = &Error{Kind: KindTemplate}
	ErrAuth           = &Error{Kind: KindAuth}
	ErrModel          = &Error{Kind: KindModel}
	ErrEmptyResponse  = &Error{Kind: KindEmptyResponse}
	ErrStaleSession   = &Error{Kind: KindStaleSession}
	ErrRender         = &Error{Kind: KindRender}
)

// NewError builds a typed error.
func NewError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in the chain, or "" when err
// carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// MessageOf returns a message suitable for an end user.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
