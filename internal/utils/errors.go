package utils

import (
	"errors"
	"fmt"
)

// Kind classifies a ChatError. errors.Is matches two ChatErrors by Kind.
type Kind string

const (
	KindNetwork       Kind = "network"
	KindAuthRequired  Kind = "auth_required"
	KindAuthFailed    Kind = "auth_failed"
	KindMalformed     Kind = "malformed_response"
	KindValidation    Kind = "validation"
	KindState         Kind = "state"
	KindStorage       Kind = "storage"
	KindConfiguration Kind = "configuration"
	KindTheme         Kind = "theme"
)

type ChatError struct {
	Kind    Kind
	Msg     string
	Details string
	Err     error
}

func NewChatError(kind Kind, msg string) *ChatError {
	return &ChatError{Kind: kind, Msg: msg}
}

func (e *ChatError) Error() string {
	s := e.Msg
	if e.Details != "" {
		s += ": " + e.Details
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ChatError) Unwrap() error { return e.Err }

func (e *ChatError) Is(target error) bool {
	t, ok := target.(*ChatError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithDetails returns a copy carrying extra context.
func (e *ChatError) WithDetails(details string) *ChatError {
	c := *e
	c.Details = details
	return &c
}

// Wrap returns a copy carrying the underlying cause.
func (e *ChatError) Wrap(err error) *ChatError {
	c := *e
	c.Err = err
	return &c
}

var (
	ErrNetwork           = NewChatError(KindNetwork, "network error")
	ErrAuthRequired      = NewChatError(KindAuthRequired, "auth required")
	ErrAuthFailed        = NewChatError(KindAuthFailed, "auth failed")
	ErrMalformedResponse = NewChatError(KindMalformed, "malformed response")
	ErrInvalidRoom       = NewChatError(KindValidation, "room name required")
)

func NetworkError(err error) *ChatError {
	return ErrNetwork.Wrap(err)
}

func NetworkStatusError(status int) *ChatError {
	return ErrNetwork.WithDetails(fmt.Sprintf("unexpected status %d", status))
}

func MalformedError(err error) *ChatError {
	return ErrMalformedResponse.Wrap(err)
}

func ValidationError(msg string) *ChatError {
	return NewChatError(KindValidation, msg)
}

func ThemeError(msg string) *ChatError {
	return NewChatError(KindTheme, msg)
}

func ConfigError(msg string) *ChatError {
	return NewChatError(KindConfiguration, msg)
}

func KindOf(err error) Kind {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthRequired) || errors.Is(err, ErrAuthFailed)
}
