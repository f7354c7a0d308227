package domain

import (
	"errors"
	"strings"
)

// ErrorKind classifies failures for the API boundary
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidKey
	KindInvalidValue
	KindStoreConnection
	KindStoreRead
	KindStoreWrite
)

// Sentinel errors, one per kind. A *Error matches its kind's sentinel with errors.Is.
var (
	ErrInvalidKey      = errors.New("invalid key")
	ErrInvalidValue    = errors.New("invalid value")
	ErrStoreConnection = errors.New("store connection error")
	ErrStoreRead       = errors.New("store read error")
	ErrStoreWrite      = errors.New("store write error")
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidKey:
		return "invalid_key"
	case KindInvalidValue:
		return "invalid_value"
	case KindStoreConnection:
		return "store_connection"
	case KindStoreRead:
		return "store_read"
	case KindStoreWrite:
		return "store_write"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindInvalidKey:
		return ErrInvalidKey
	case KindInvalidValue:
		return ErrInvalidValue
	case KindStoreConnection:
		return ErrStoreConnection
	case KindStoreRead:
		return ErrStoreRead
	case KindStoreWrite:
		return ErrStoreWrite
	default:
		return nil
	}
}

// IsClientError reports whether the kind is caused by request input
func (k ErrorKind) IsClientError() bool {
	return k == KindInvalidKey || k == KindInvalidValue
}

// Error is the error type returned by stores and the counter manager
type Error struct {
	Kind ErrorKind
	Op   string
	Key  string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if s := e.Kind.sentinel(); s != nil {
		b.WriteString(s.Error())
	} else {
		b.WriteString("error")
	}
	if e.Key != "" {
		b.WriteString(" (key ")
		b.WriteString(e.Key)
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf extracts the kind from an error chain
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}
