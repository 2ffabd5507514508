// Package testing provides test utilities for shield.
package testing

import (
	"context"

	"github.com/zoobzio/shield"
)

// TestKey returns a valid 32-byte AES key for testing.
func TestKey() []byte {
	return []byte("32-byte-key-for-aes-256-encrypt!")
}

// TestPolicy returns a policy document covering the common test shapes:
// an encrypted account-number class, a masked SSN class, and a hashed
// secret class.
func TestPolicy() []byte {
	return []byte(`
classes:
  pii_account:
    action: encrypt
    algorithm: aes
    key: test-main
    roles: [payments]
  pii_ssn:
    action: mask
    algorithm: ssn
  secret:
    action: hash
    algorithm: sha256
patterns:
  - class: pii_account
    value: '^[0-9]{10,12}$'
    priority: 10
  - class: pii_ssn
    name: '*ssn*'
    priority: 100
  - class: secret
    name: 'password'
    priority: 100
`)
}

// TestStore returns a store loaded with TestPolicy.
func TestStore() *shield.Store {
	store, err := shield.NewStore(context.Background(), shield.BytesSource(TestPolicy()))
	if err != nil {
		panic(err)
	}
	return store
}

// TestKeyring returns a keyring holding TestKey under ref "test-main".
func TestKeyring() *shield.StaticKeyring {
	keys := shield.NewStaticKeyring()
	keys.Add("test-main", TestKey())
	return keys
}

// TestRecord returns a record matching the TestPolicy patterns.
func TestRecord() *shield.Record {
	return shield.NewRecord().
		SetString("accountNumber", "1234567890").
		SetString("amount", "500.00").
		SetString("note", "hello")
}

// CollectSink is an AuditSink that records events for assertions.
type CollectSink struct {
	Events []shield.AuditEvent
}

// Emit appends the event. CollectSink is driven by the single audit
// dispatcher goroutine; read Events only after Protector.Close.
func (s *CollectSink) Emit(ev shield.AuditEvent) {
	s.Events = append(s.Events, ev)
}
