package shield

import (
	"context"
	"fmt"
	"sync"
)

// Keyring supplies versioned key material. Implementations may be backed
// by a network key store and must honor the context: blocking lookups
// return ctx.Err() on cancellation or deadline.
//
// Versions start at 1 and increase on rotation. Old versions stay
// retrievable until explicitly destroyed, so messages protected under an
// earlier version still decrypt after rotation.
type Keyring interface {
	// Key returns the key material for ref at version.
	Key(ctx context.Context, ref string, version int) ([]byte, error)

	// ActiveVersion returns the version new encryptions should use.
	ActiveVersion(ctx context.Context, ref string) (int, error)
}

// StaticKeyring is an in-memory Keyring for tests and single-process use.
// Safe for concurrent use.
type StaticKeyring struct {
	mu   sync.RWMutex
	keys map[string][][]byte // ref -> key material per version, index = version-1
}

// NewStaticKeyring returns an empty keyring.
func NewStaticKeyring() *StaticKeyring {
	return &StaticKeyring{keys: make(map[string][][]byte)}
}

// Add registers the first version of a key and returns its version number.
// Calling Add on an existing ref behaves like Rotate.
func (k *StaticKeyring) Add(ref string, key []byte) int {
	return k.Rotate(ref, key)
}

// Rotate appends a new version for ref and returns the new active version.
func (k *StaticKeyring) Rotate(ref string, key []byte) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[ref] = append(k.keys[ref], append([]byte(nil), key...))
	return len(k.keys[ref])
}

// Destroy makes a version unretrievable, simulating key expiry. The
// version number is not reused.
func (k *StaticKeyring) Destroy(ref string, version int) {
	k.mu.Lock()
	defer k.mu.Unlock()
	versions := k.keys[ref]
	if version >= 1 && version <= len(versions) {
		versions[version-1] = nil
	}
}

// Key returns the material for ref at version.
func (k *StaticKeyring) Key(ctx context.Context, ref string, version int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	versions, ok := k.keys[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, ref)
	}
	if version < 1 || version > len(versions) || versions[version-1] == nil {
		return nil, &KeyVersionError{Ref: ref, Version: version}
	}
	return versions[version-1], nil
}

// ActiveVersion returns the most recently rotated version for ref.
func (k *StaticKeyring) ActiveVersion(ctx context.Context, ref string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	versions, ok := k.keys[ref]
	if !ok || len(versions) == 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKey, ref)
	}
	return len(versions), nil
}
