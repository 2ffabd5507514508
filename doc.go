// Package shield provides policy-driven field-level protection for
// structured records crossing a message-queue boundary.
//
// A record is an ordered set of named fields. Before a record leaves the
// producer, each field is classified against configured sensitivity
// patterns, and fields carrying a sensitivity class are encrypted (or
// irreversibly masked or hashed) according to that class's protection rule.
// On the consumer side the wire bytes are decoded and protected fields are
// decrypted, subject to a role check against the rule's authorized roles.
//
// # Components
//
//   - Store: loads classification patterns and protection rules from a
//     Source (YAML document), publishes immutable snapshots, and supports
//     atomic reload.
//   - Snapshot.Classify: maps each field path to a SensitivityClass using
//     priority-ordered patterns.
//   - Protector: the boundary codec. Send classifies, protects, and encodes
//     a record; Receive decodes and unprotects, enforcing authorization.
//   - Keyring: supplies versioned key material, enabling rotation without
//     breaking old ciphertexts.
//
// # Basic Usage
//
//	store, _ := shield.NewStore(ctx, shield.BytesSource(policyYAML))
//	keys := shield.NewStaticKeyring()
//	keys.Add("payments-main", key)
//
//	p := shield.New(json.New(), store, keys)
//	defer p.Close()
//
//	rec := shield.NewRecord().
//	    SetString("accountNumber", "1234567890").
//	    SetString("note", "hello")
//
//	// Producer side: classify + protect + encode.
//	data, _ := p.Send(ctx, rec)
//
//	// Consumer side: decode + authorize + decrypt.
//	rec, _ = p.Receive(ctx, data, shield.Caller{ID: "svc-billing", Roles: []string{"payments"}})
//
// # Policy Document
//
// Policies bind sensitivity classes to protection rules and declare the
// patterns that assign classes to fields:
//
//	classes:
//	  pii_account:
//	    action: encrypt
//	    algorithm: aes
//	    key: payments-main
//	    roles: [payments, fraud]
//	patterns:
//	  - class: pii_account
//	    value: '^[0-9]{10,12}$'
//	    priority: 10
//
// Patterns are validated when the policy loads, so classification never
// fails at runtime. Reload swaps the active snapshot atomically; a reload
// that fails to parse leaves the previous snapshot in effect.
//
// # Wire Format
//
// Protected records are encoded through a pluggable Codec. JSON and
// MessagePack providers are available as submodules:
//
//   - json - JSON encoding (application/json)
//   - msgpack - MessagePack encoding (application/msgpack)
//
// The wire representation preserves field order and tags each protected
// field with its class, algorithm, key reference, and key version, so a
// message protected under an old key version still decrypts after rotation.
//
// # Audit
//
// Protect and unprotect emit one audit event per field touched. Emission is
// asynchronous and best-effort: a slow or failing sink never blocks or fails
// the protect path.
package shield
