// Package errors defines the typed application errors surfaced by the bot.
package errors

import (
	"errors"
	"fmt"
)

// Standard error codes for the application.
const (
	CodeUnknown  = "UNKNOWN"
	CodeConfig   = "CONFIG"
	CodeFetch    = "FETCH"
	CodePublish  = "PUBLISH"
	CodeDatabase = "DATABASE"
)

// ErrUnauthorized marks a remote API rejecting the configured credentials.
var ErrUnauthorized = errors.New("unauthorized")

// ApplicationError is the interface that all our custom errors implement.
type ApplicationError interface {
	error
	Code() string
	Unwrap() error
}

// Error represents a basic application error.
type Error struct {
	code    string
	message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}

	return e.message
}

func (e *Error) Code() string {
	return e.code
}

func (e *Error) Unwrap() error {
	return e.err
}

// Code returns the code of the first ApplicationError in err's chain,
// or CodeUnknown if it doesn't have one.
func Code(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}

	return CodeUnknown
}

// ConfigError reports a missing or invalid setting. It is fatal at startup.
type ConfigError struct {
	base Error
}

func (e *ConfigError) Error() string {
	return e.base.Error()
}

func (e *ConfigError) Code() string {
	return e.base.Code()
}

func (e *ConfigError) Unwrap() error {
	return e.base.Unwrap()
}

func NewConfigError(message string, cause error) error {
	return &ConfigError{
		base: Error{
			code:    CodeConfig,
			message: message,
			err:     cause,
		},
	}
}

// FetchError reports a failed read of the media server catalog.
type FetchError struct {
	base Error
}

func (e *FetchError) Error() string {
	return e.base.Error()
}

func (e *FetchError) Code() string {
	return e.base.Code()
}

func (e *FetchError) Unwrap() error {
	return e.base.Unwrap()
}

func NewFetchError(message string, cause error) error {
	return &FetchError{
		base: Error{
			code:    CodeFetch,
			message: message,
			err:     cause,
		},
	}
}

// PublishError reports a failed send, edit or delete against the chat API.
type PublishError struct {
	base Error
}

func (e *PublishError) Error() string {
	return e.base.Error()
}

func (e *PublishError) Code() string {
	return e.base.Code()
}

func (e *PublishError) Unwrap() error {
	return e.base.Unwrap()
}

func NewPublishError(message string, cause error) error {
	return &PublishError{
		base: Error{
			code:    CodePublish,
			message: message,
			err:     cause,
		},
	}
}

type DatabaseError struct {
	base Error
}

func (e *DatabaseError) Error() string {
	return e.base.Error()
}

func (e *DatabaseError) Code() string {
	return e.base.Code()
}

func (e *DatabaseError) Unwrap() error {
	return e.base.Unwrap()
}

func NewDatabaseError(message string, cause error) error {
	return &DatabaseError{
		base: Error{
			code:    CodeDatabase,
			message: message,
			err:     cause,
		},
	}
}

// IsFetch reports whether err carries a FetchError.
func IsFetch(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// IsPublish reports whether err carries a PublishError.
func IsPublish(err error) bool {
	var pe *PublishError
	return errors.As(err, &pe)
}
