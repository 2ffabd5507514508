package testing

import (
	"context"
	"testing"
)

func TestTestStore(t *testing.T) {
	store := TestStore()
	cls := store.Snapshot().Classify(TestRecord())
	if cls.ClassOf("accountNumber") != "pii_account" {
		t.Errorf("accountNumber class = %q, want pii_account", cls.ClassOf("accountNumber"))
	}
	if cls.ClassOf("note") != "none" {
		t.Errorf("note class = %q, want none", cls.ClassOf("note"))
	}
}

func TestTestKeyring(t *testing.T) {
	keys := TestKeyring()
	version, err := keys.ActiveVersion(context.Background(), "test-main")
	if err != nil {
		t.Fatalf("ActiveVersion() error: %v", err)
	}
	if version != 1 {
		t.Errorf("active version = %d, want 1", version)
	}
	key, err := keys.Key(context.Background(), "test-main", version)
	if err != nil {
		t.Fatalf("Key() error: %v", err)
	}
	if len(key) != 32 {
		t.Errorf("key length = %d, want 32", len(key))
	}
}
