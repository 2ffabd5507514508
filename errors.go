package shield

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrBadPolicy indicates a policy document failed to parse or validate.
	ErrBadPolicy = errors.New("bad policy")

	// ErrUnknownClass indicates a sensitivity class has no protection rule.
	ErrUnknownClass = errors.New("unknown sensitivity class")

	// ErrUnknownKey indicates a key reference is not present in the keyring.
	ErrUnknownKey = errors.New("unknown key reference")

	// ErrUnknownKeyVersion indicates key material for a tagged version is no
	// longer retrievable (destroyed or expired).
	ErrUnknownKeyVersion = errors.New("unknown key version")

	// ErrUnauthorized indicates the caller lacks a role required to decrypt.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTimeout indicates an external dependency exceeded the caller's
	// deadline. Retryable with backoff.
	ErrTimeout = errors.New("timeout")

	// ErrEncode indicates the codec failed to produce wire bytes.
	ErrEncode = errors.New("encode failed")

	// ErrDecode indicates malformed wire bytes on receive.
	ErrDecode = errors.New("decode failed")

	// ErrEncrypt indicates encryption of a field failed.
	ErrEncrypt = errors.New("encrypt failed")

	// ErrDecrypt indicates decryption of a field failed.
	ErrDecrypt = errors.New("decrypt failed")

	// ErrInvalidKeySize indicates key material has an unusable length.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrCiphertextShort indicates a ciphertext too small to contain its nonce.
	ErrCiphertextShort = errors.New("ciphertext too short")
)

// ConfigError reports why a policy document was rejected. It wraps
// ErrBadPolicy with the offending class or pattern for diagnostics.
type ConfigError struct {
	Reason  string           // human-readable cause
	Class   SensitivityClass // class at fault, if any
	Pattern int              // pattern index at fault, -1 if none
}

func (e *ConfigError) Error() string {
	switch {
	case e.Class != "":
		return fmt.Sprintf("bad policy: %s (class %q)", e.Reason, e.Class)
	case e.Pattern >= 0:
		return fmt.Sprintf("bad policy: %s (pattern %d)", e.Reason, e.Pattern)
	default:
		return "bad policy: " + e.Reason
	}
}

func (e *ConfigError) Unwrap() error { return ErrBadPolicy }

// UnknownClassError reports a lookup for a class with no rule.
type UnknownClassError struct {
	Class SensitivityClass
}

func (e *UnknownClassError) Error() string {
	return fmt.Sprintf("unknown sensitivity class %q", e.Class)
}

func (e *UnknownClassError) Unwrap() error { return ErrUnknownClass }

// AuthorizationError reports a caller whose roles do not intersect the
// authorized-role set of a protected field's rule.
type AuthorizationError struct {
	Caller string           // caller identity
	Field  string           // dotted field path
	Class  SensitivityClass // class whose rule denied access
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("caller %q not authorized for field %s (class %q)", e.Caller, e.Field, e.Class)
}

func (e *AuthorizationError) Unwrap() error { return ErrUnauthorized }

// KeyVersionError reports unretrievable key material.
type KeyVersionError struct {
	Ref     string
	Version int
}

func (e *KeyVersionError) Error() string {
	return fmt.Sprintf("key %q version %d not retrievable", e.Ref, e.Version)
}

func (e *KeyVersionError) Unwrap() error { return ErrUnknownKeyVersion }

// EncodingError reports a marshal or unmarshal failure at the wire boundary.
type EncodingError struct {
	Err   error // ErrEncode or ErrDecode
	Cause error // original error from the codec, if any
}

func (e *EncodingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Err.Error(), e.Cause)
	}
	return e.Err.Error()
}

func (e *EncodingError) Unwrap() error { return e.Err }

// newEncodingError creates an EncodingError for wire boundary failures.
func newEncodingError(sentinel, cause error) error {
	return &EncodingError{Err: sentinel, Cause: cause}
}

// wrapDeadline maps a context deadline failure onto ErrTimeout so callers
// can distinguish a slow dependency from other failures. Cancellation and
// ordinary errors pass through unchanged.
func wrapDeadline(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
