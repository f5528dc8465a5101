// Package errs defines the engine's error taxonomy (spec §7) and the
// thread-local-style last-error slot the ABI facade needs.
//
// Internal packages return plain Go errors (the teacher never introduces an
// error-code scheme internally — see server/tls.go's fmt.Errorf wrapping);
// only the engine facade, standing in for the C ABI boundary, translates
// those into this taxonomy.
package errs

import "fmt"

// Code is one member of the engine's stable error taxonomy.
type Code int

const (
	CodeOK Code = iota
	CodeInvalidHandle
	CodeHandleType
	CodeInvalidProperty
	CodePropertyType
	CodeRange
	CodeNotSupported
	CodeInvariant
	CodeValidation
	CodeInternal
	CodeUninitialized
	CodeAudioDevice
	CodeByteStreamUnsupportedOperation
	CodeByteStreamNotFound
	CodeByteStreamCustom
	CodeUnsupportedFormat
	CodeLimitExceeded
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeInvalidHandle:
		return "InvalidHandle"
	case CodeHandleType:
		return "HandleType"
	case CodeInvalidProperty:
		return "InvalidProperty"
	case CodePropertyType:
		return "PropertyType"
	case CodeRange:
		return "Range"
	case CodeNotSupported:
		return "NotSupported"
	case CodeInvariant:
		return "Invariant"
	case CodeValidation:
		return "Validation"
	case CodeInternal:
		return "Internal"
	case CodeUninitialized:
		return "Uninitialized"
	case CodeAudioDevice:
		return "AudioDevice"
	case CodeByteStreamUnsupportedOperation:
		return "ByteStream.UnsupportedOperation"
	case CodeByteStreamNotFound:
		return "ByteStream.NotFound"
	case CodeByteStreamCustom:
		return "ByteStream.Custom"
	case CodeUnsupportedFormat:
		return "UnsupportedFormat"
	case CodeLimitExceeded:
		return "LimitExceeded"
	default:
		return "Unknown"
	}
}

// EngineError is a Code plus a human-readable message, translatable to a
// single integer plus string the way spec §7 requires at the ABI boundary.
type EngineError struct {
	Code    Code
	Message string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New builds an *EngineError.
func New(code Code, format string, args ...any) *EngineError {
	return &EngineError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// global holds the most recent error in a single process-wide slot shared by
// every goroutine; Go has no notion of thread-local storage, so Get/Set
// below see the same value no matter which goroutine calls them.
var global struct {
	err *EngineError
}

// Set records err as the last error for subsequent Get calls.
func Set(err *EngineError) {
	global.err = err
}

// Get returns the last error recorded via Set, or nil if none (or if it was
// cleared by a subsequent successful call).
func Get() *EngineError {
	return global.err
}

// Clear resets the last-error slot after a successful call, matching the
// ABI convention that only failing calls leave a message behind.
func Clear() {
	global.err = nil
}
