package config

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingBlock is returned when package.json has no "nwjs-packager" block.
	ErrMissingBlock = errors.New(`package.json is missing a "nwjs-packager" block`)
	// ErrInvalidJSON is returned when package.json cannot be parsed.
	ErrInvalidJSON = errors.New("invalid JSON")
	// ErrEmptyValue is returned when a required option resolves to an empty value.
	ErrEmptyValue = errors.New("value must not be empty")
	// ErrPathSeparator is returned when the package name contains a path separator.
	ErrPathSeparator = errors.New("value must not contain path separators")
	// ErrUnknownOutput is returned for build outputs the packager cannot produce.
	ErrUnknownOutput = errors.New("unknown output kind")
	// ErrInvalidOutputValue is returned when an output toggle has an unexpected type.
	ErrInvalidOutputValue = errors.New("output value must be a boolean or, for inno_setup, a script path")
	// ErrNegative is returned for negative numeric options.
	ErrNegative = errors.New("value must not be negative")
)

// ConfigError reports a missing or invalid option.
//
//nolint:revive // ConfigError is the established name for this error kind.
type ConfigError struct {
	// Field is the option name as written in configuration.
	Field string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}

	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

func fieldError(field string, err error) error {
	return &ConfigError{Field: field, Err: err}
}
