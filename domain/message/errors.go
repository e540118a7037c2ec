package message

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kinds of EncodingError. Match them with errors.Is.
var (
	// ErrInvalidVariant means a tagged union is empty, names a member outside
	// its closed set, or selects more than one member.
	ErrInvalidVariant = errors.New("invalid variant")

	// ErrOutOfRange means a value does not fit its field or exceeds a
	// protocol bound.
	ErrOutOfRange = errors.New("value out of range")

	// ErrMalformed means the input is not a well-formed message: bad JSON,
	// unknown or missing fields, wrong JSON types.
	ErrMalformed = errors.New("malformed message")

	// ErrNotCanonical means the input decodes to a valid message whose
	// canonical encoding differs from the input bytes.
	ErrNotCanonical = errors.New("non-canonical encoding")
)

// EncodingError reports why a message could not be encoded or decoded.
// Path is the dotted JSON path of the offending field.
type EncodingError struct {
	Kind   error
	Path   string
	Detail string
	Cause  error
}

func (e *EncodingError) Error() string {
	msg := e.Kind.Error()
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is reports whether target is the kind of e.
func (e *EncodingError) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying cause, if any.
func (e *EncodingError) Unwrap() error {
	return e.Cause
}

func invalidVariant(path string, format string, args ...interface{}) error {
	return &EncodingError{Kind: ErrInvalidVariant, Path: path, Detail: fmt.Sprintf(format, args...)}
}

func outOfRange(path string, format string, args ...interface{}) error {
	return &EncodingError{Kind: ErrOutOfRange, Path: path, Detail: fmt.Sprintf(format, args...)}
}

func malformed(path string, cause error) error {
	return &EncodingError{Kind: ErrMalformed, Path: path, Cause: cause}
}

func joinPath(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}
