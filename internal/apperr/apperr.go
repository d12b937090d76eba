// Package apperr classifies failures surfaced by the client into the small
// taxonomy the front-end renders: authentication, validation, network and
// conflict errors.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind int

const (
	KindNetwork Kind = iota
	KindAuth
	KindValidation
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	default:
		return "network"
	}
}

// Reason narrows down an auth failure.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonNoToken        Reason = "no_token"
	ReasonBadCredentials Reason = "bad_credentials"
	ReasonInvalidToken   Reason = "invalid_token"
	ReasonExpired        Reason = "expired"
)

// Error is a classified failure. Status is the HTTP status when the failure
// came from a response, zero otherwise.
type Error struct {
	Kind    Kind
	Reason  Reason
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Reason != ReasonNone {
		b.WriteString(" (")
		b.WriteString(string(e.Reason))
		b.WriteString(")")
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " status %d", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind and, when the target sets one, reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == ReasonNone || t.Reason == e.Reason
}

// Targets for errors.Is.
var (
	ErrAuth           = &Error{Kind: KindAuth}
	ErrNoToken        = &Error{Kind: KindAuth, Reason: ReasonNoToken}
	ErrBadCredentials = &Error{Kind: KindAuth, Reason: ReasonBadCredentials}
	ErrInvalidToken   = &Error{Kind: KindAuth, Reason: ReasonInvalidToken}
	ErrExpired        = &Error{Kind: KindAuth, Reason: ReasonExpired}
	ErrValidation     = &Error{Kind: KindValidation}
	ErrNetwork        = &Error{Kind: KindNetwork}
	ErrConflict       = &Error{Kind: KindConflict}
)

func Auth(reason Reason, msg string, err error) *Error {
	return &Error{Kind: KindAuth, Reason: reason, Message: msg, Err: err}
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Network(msg string, err error) *Error {
	return &Error{Kind: KindNetwork, Message: msg, Err: err}
}

func Conflict(status int, msg string) *Error {
	return &Error{Kind: KindConflict, Status: status, Message: msg}
}

// FromResponse classifies a non-2xx response. body is the raw response body;
// FastAPI style {"detail": ...} payloads contribute the message.
func FromResponse(status int, body []byte) *Error {
	msg := Detail(body)
	switch {
	case status == http.StatusUnauthorized:
		return &Error{Kind: KindAuth, Reason: ReasonInvalidToken, Status: status, Message: msg}
	case status >= 400 && status < 500 && status != http.StatusRequestTimeout && status != http.StatusTooManyRequests:
		return &Error{Kind: KindConflict, Status: status, Message: msg}
	default:
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &Error{Kind: KindNetwork, Status: status, Message: msg}
	}
}

// Detail extracts the human readable message from an error body. It understands
// {"detail": "text"}, {"detail": [{"msg": "text"}, ...]}, {"message": "text"}
// and {"error": "text"}.
func Detail(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	if len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			return strings.Join(msgs, ", ")
		}
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

// Stage tells which half of a signup failed.
type Stage string

const (
	StageCreate Stage = "create"
	StageLogin  Stage = "login"
)

// SignupError wraps a signup failure with the stage it happened in. A
// StageLogin failure means the account exists but the session could not be
// established.
type SignupError struct {
	Stage Stage
	Err   error
}

func (e *SignupError) Error() string {
	return fmt.Sprintf("signup %s: %v", e.Stage, e.Err)
}

func (e *SignupError) Unwrap() error {
	return e.Err
}

// Message renders err as a single line for display next to the control that
// triggered it.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var se *SignupError
	if errors.As(err, &se) && se.Stage == StageLogin {
		return "Account created, but signing in failed: " + Message(se.Err)
	}

	var e *Error
	if !errors.As(err, &e) {
		return "An error occurred. Please try again."
	}

	switch e.Kind {
	case KindAuth:
		switch e.Reason {
		case ReasonBadCredentials:
			if e.Message != "" {
				return e.Message
			}
			return "Invalid email or password."
		case ReasonNoToken:
			return "No access token received from server."
		case ReasonExpired:
			return "Your session has expired. Please log in again."
		default:
			return "Please log in again."
		}
	case KindValidation, KindConflict:
		if e.Message != "" {
			return e.Message
		}
		if e.Kind == KindValidation {
			return "Please fill in all required fields."
		}
		return "The server rejected the request."
	default:
		return "Could not reach the server. Please try again."
	}
}
