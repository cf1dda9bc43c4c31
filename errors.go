package vectordb

import "fmt"

// ErrorKind classifies a vectordb Error, mirroring the error taxonomy
// of the storage engine: not-found/already-exists pairs for the two
// namespace levels, configuration/dimension problems, and the
// catch-all storage/serialization/io/other tiers.
type ErrorKind uint8

const (
	ErrOther ErrorKind = iota
	ErrCollectionNotFound
	ErrCollectionAlreadyExists
	ErrIndexNotFound
	ErrIndexAlreadyExists
	ErrDimensionMismatch
	ErrProjectNotFound
	ErrProjectAlreadyExists
	ErrInvalidConfig
	ErrStorage
	ErrSerialization
	ErrIO
)

func (k ErrorKind) String() string {
	switch k {
	case ErrCollectionNotFound:
		return "collection not found"
	case ErrCollectionAlreadyExists:
		return "collection already exists"
	case ErrIndexNotFound:
		return "index not found"
	case ErrIndexAlreadyExists:
		return "index already exists"
	case ErrDimensionMismatch:
		return "dimension mismatch"
	case ErrProjectNotFound:
		return "project not found"
	case ErrProjectAlreadyExists:
		return "project already exists"
	case ErrInvalidConfig:
		return "invalid configuration"
	case ErrStorage:
		return "storage error"
	case ErrSerialization:
		return "serialization error"
	case ErrIO:
		return "io error"
	default:
		return "error"
	}
}

// Error is the single error type every exported vectordb operation
// returns. It carries a classification (Kind), a human-readable
// message, and an optional wrapped cause, and renders as one line.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so
// callers can write errors.Is(err, vectordb.ErrKind(vectordb.ErrCollectionNotFound))
// checks via the sentinel-producing ErrKind helper below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapErr(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ErrKind constructs a zero-message *Error of the given kind, usable
// as an errors.Is comparison target: errors.Is(err, vectordb.ErrKind(vectordb.ErrCollectionNotFound)).
func ErrKind(kind ErrorKind) *Error {
	return &Error{Kind: kind}
}

func collectionNotFound(name string) *Error {
	return newErr(ErrCollectionNotFound, "%q", name)
}

func collectionAlreadyExists(name string) *Error {
	return newErr(ErrCollectionAlreadyExists, "%q", name)
}

func indexNotFound(name string) *Error {
	return newErr(ErrIndexNotFound, "%q", name)
}

func indexAlreadyExists(name string) *Error {
	return newErr(ErrIndexAlreadyExists, "%q", name)
}

func dimensionMismatch(expected, got int) *Error {
	return &Error{Kind: ErrDimensionMismatch, Message: fmt.Sprintf("expected %d, got %d", expected, got)}
}

func projectNotFound(name string) *Error {
	return newErr(ErrProjectNotFound, "%q", name)
}

func projectAlreadyExists(name string) *Error {
	return newErr(ErrProjectAlreadyExists, "%q", name)
}

func invalidConfig(format string, args ...any) *Error {
	return newErr(ErrInvalidConfig, format, args...)
}

func storageErr(cause error, format string, args ...any) *Error {
	return wrapErr(ErrStorage, cause, format, args...)
}

func serializationErr(cause error, format string, args ...any) *Error {
	return wrapErr(ErrSerialization, cause, format, args...)
}

func ioErr(cause error) *Error {
	return &Error{Kind: ErrIO, Message: "io", Cause: cause}
}
