// Package myfserr defines the typed error kinds surfaced by the volume
// engine, the platform-metadata subsystem, and SmartOTP.
package myfserr

import (
	"errors"
	"fmt"
)

// Kind enumerates the closed set of error categories the engine can raise.
type Kind int

const (
	// KindUnknown is the zero value and should never be returned to a caller.
	KindUnknown Kind = iota
	// KindMetadataMismatch means the sidecar or machine hash disagrees with the host or volume.
	KindMetadataMismatch
	// KindMissingSidecar means the sidecar metadata file is absent when opening an existing volume.
	KindMissingSidecar
	// KindAuthError means a volume-level or file-level password check failed.
	KindAuthError
	// KindNotFound means the named file is absent from both entry tables.
	KindNotFound
	// KindNoPassword means an operation required a file password but none is set.
	KindNoPassword
	// KindNoFreeEntry means both entry tables are full.
	KindNoFreeEntry
	// KindIntegrityError means an MD5 mismatch, bad PKCS#7 padding, or a broken chain walk was detected.
	KindIntegrityError
	// KindNoDestination means export was requested without an explicit path or a stored root_dir.
	KindNoDestination
	// KindCryptoError means decryption failed due to padding or size.
	KindCryptoError
	// KindIOError means the underlying read or write failed.
	KindIOError
)

func (k Kind) String() string {
	switch k {
	case KindMetadataMismatch:
		return "MetadataMismatch"
	case KindMissingSidecar:
		return "MissingSidecar"
	case KindAuthError:
		return "AuthError"
	case KindNotFound:
		return "NotFound"
	case KindNoPassword:
		return "NoPassword"
	case KindNoFreeEntry:
		return "NoFreeEntry"
	case KindIntegrityError:
		return "IntegrityError"
	case KindNoDestination:
		return "NoDestination"
	case KindCryptoError:
		return "CryptoError"
	case KindIOError:
		return "IOError"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned by the engine. It carries a
// Kind so callers can branch on failure category without string matching,
// plus an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error around an existing error.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
