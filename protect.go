package shield

import (
	"context"
	"fmt"
	"strconv"
)

// ProtectedField wraps one encrypted field value. The class, algorithm, and
// key version travel with the ciphertext so decryption needs no external
// lookup of which rule applied, and old messages decrypt under their
// original key after rotation.
type ProtectedField struct {
	Class      SensitivityClass
	Algorithm  EncryptAlgo
	KeyRef     string
	KeyVersion int
	Kind       ValueKind // original value kind, restored on decrypt
	Ciphertext []byte
}

// protectedEntry is one field of a ProtectedRecord: a clear value, an
// encrypted field, or a nested protected record. Exactly one is set.
type protectedEntry struct {
	name   string
	value  Value
	field  *ProtectedField
	nested *ProtectedRecord
}

// ProtectedRecord is the wire-level record: every field of the original
// record appears exactly once, either in clear or protected form, in the
// original order.
type ProtectedRecord struct {
	entries []protectedEntry
}

// Len returns the number of fields.
func (pr *ProtectedRecord) Len() int { return len(pr.entries) }

// Names returns the field names in order.
func (pr *ProtectedRecord) Names() []string {
	out := make([]string, len(pr.entries))
	for i := range pr.entries {
		out[i] = pr.entries[i].name
	}
	return out
}

// Protected returns the ProtectedField for name, or false if the field is
// absent, clear, or a nested record.
func (pr *ProtectedRecord) Protected(name string) (*ProtectedField, bool) {
	for i := range pr.entries {
		if pr.entries[i].name == name {
			return pr.entries[i].field, pr.entries[i].field != nil
		}
	}
	return nil, false
}

// Plain returns the clear value for name, or false if the field is absent,
// protected, or a nested record.
func (pr *ProtectedRecord) Plain(name string) (Value, bool) {
	for i := range pr.entries {
		if pr.entries[i].name == name {
			if pr.entries[i].field != nil || pr.entries[i].nested != nil {
				return Value{}, false
			}
			return pr.entries[i].value, true
		}
	}
	return Value{}, false
}

// Nested returns the nested protected record for name, if any.
func (pr *ProtectedRecord) Nested(name string) (*ProtectedRecord, bool) {
	for i := range pr.entries {
		if pr.entries[i].name == name {
			return pr.entries[i].nested, pr.entries[i].nested != nil
		}
	}
	return nil, false
}

// protect transforms a record into its protected form under one policy
// snapshot. All fields are processed before returning; an error on any
// field abandons the whole record.
func (p *Protector) protect(ctx context.Context, snap *Snapshot, rec *Record, cls Classification, prefix string) (*ProtectedRecord, error) {
	out := &ProtectedRecord{entries: make([]protectedEntry, 0, rec.Len())}

	for _, name := range rec.Names() {
		v, _ := rec.Get(name)
		path := joinPath(prefix, name)

		if v.Kind() == KindRecord {
			nested, err := p.protect(ctx, snap, v.Record(), cls, path)
			if err != nil {
				return nil, err
			}
			out.entries = append(out.entries, protectedEntry{name: name, nested: nested})
			continue
		}

		class := cls.ClassOf(path)
		if class == ClassNone {
			out.entries = append(out.entries, protectedEntry{name: name, value: v})
			continue
		}

		rule, err := snap.RuleFor(class)
		if err != nil {
			return nil, err
		}

		entry, err := p.protectField(ctx, rule, name, path, v)
		if err != nil {
			p.auditField(ctx, "", path, class, string(rule.Action), outcomeError, err.Error())
			return nil, err
		}
		p.auditField(ctx, "", path, class, string(rule.Action), outcomeOK, "")
		out.entries = append(out.entries, entry)
	}

	return out, nil
}

func (p *Protector) protectField(ctx context.Context, rule ProtectionRule, name, path string, v Value) (protectedEntry, error) {
	switch rule.Action {
	case ActionMask:
		masker, ok := p.maskers[MaskType(rule.Algorithm)]
		if !ok {
			return protectedEntry{}, fmt.Errorf("missing masker %q for field %s", rule.Algorithm, path)
		}
		return protectedEntry{name: name, value: StringValue(masker.Mask(v.canonical()))}, nil

	case ActionHash:
		hasher, ok := p.hashers[HashAlgo(rule.Algorithm)]
		if !ok {
			return protectedEntry{}, fmt.Errorf("missing hasher %q for field %s", rule.Algorithm, path)
		}
		hashed, err := hasher.Hash([]byte(v.canonical()))
		if err != nil {
			return protectedEntry{}, fmt.Errorf("hash field %s: %w", path, err)
		}
		return protectedEntry{name: name, value: StringValue(hashed)}, nil

	case ActionEncrypt:
		version, err := p.keys.ActiveVersion(ctx, rule.KeyRef)
		if err != nil {
			return protectedEntry{}, wrapDeadline(err)
		}
		key, err := p.keys.Key(ctx, rule.KeyRef, version)
		if err != nil {
			return protectedEntry{}, wrapDeadline(err)
		}
		enc, err := encryptorFor(rule, key)
		if err != nil {
			return protectedEntry{}, err
		}
		ciphertext, err := enc.Encrypt([]byte(v.canonical()))
		if err != nil {
			return protectedEntry{}, fmt.Errorf("%w: field %s: %w", ErrEncrypt, path, err)
		}
		return protectedEntry{name: name, field: &ProtectedField{
			Class:      rule.Class,
			Algorithm:  EncryptAlgo(rule.Algorithm),
			KeyRef:     rule.KeyRef,
			KeyVersion: version,
			Kind:       v.Kind(),
			Ciphertext: ciphertext,
		}}, nil

	default:
		return protectedEntry{}, fmt.Errorf("unknown action %q for field %s", rule.Action, path)
	}
}

// authorize checks every protected field against the caller's roles before
// any decryption happens, so a denied record decrypts zero fields.
func (p *Protector) authorize(ctx context.Context, snap *Snapshot, pr *ProtectedRecord, caller Caller, prefix string) error {
	for i := range pr.entries {
		e := &pr.entries[i]
		path := joinPath(prefix, e.name)

		if e.nested != nil {
			if err := p.authorize(ctx, snap, e.nested, caller, path); err != nil {
				return err
			}
			continue
		}
		if e.field == nil {
			continue
		}

		rule, err := snap.RuleFor(e.field.Class)
		if err != nil {
			return err
		}
		if !rolesIntersect(rule.Roles, caller.Roles) {
			authErr := &AuthorizationError{Caller: caller.ID, Field: path, Class: e.field.Class}
			p.auditField(ctx, caller.ID, path, e.field.Class, auditActionDecrypt, outcomeDenied, authErr.Error())
			return authErr
		}
	}
	return nil
}

// unprotect reverses a protected record after authorization has passed.
func (p *Protector) unprotect(ctx context.Context, pr *ProtectedRecord, caller Caller, prefix string) (*Record, error) {
	out := NewRecord()

	for i := range pr.entries {
		e := &pr.entries[i]
		path := joinPath(prefix, e.name)

		if e.nested != nil {
			nested, err := p.unprotect(ctx, e.nested, caller, path)
			if err != nil {
				return nil, err
			}
			out.SetRecord(e.name, nested)
			continue
		}
		if e.field == nil {
			out.Set(e.name, e.value)
			continue
		}

		v, err := p.decryptField(ctx, e.field, path)
		if err != nil {
			p.auditField(ctx, caller.ID, path, e.field.Class, auditActionDecrypt, outcomeError, err.Error())
			return nil, err
		}
		p.auditField(ctx, caller.ID, path, e.field.Class, auditActionDecrypt, outcomeOK, "")
		out.Set(e.name, v)
	}

	return out, nil
}

func (p *Protector) decryptField(ctx context.Context, f *ProtectedField, path string) (Value, error) {
	key, err := p.keys.Key(ctx, f.KeyRef, f.KeyVersion)
	if err != nil {
		return Value{}, wrapDeadline(err)
	}

	dec, err := decryptorFor(f.Algorithm, key)
	if err != nil {
		return Value{}, err
	}

	plaintext, err := dec.Decrypt(f.Ciphertext)
	if err != nil {
		return Value{}, fmt.Errorf("field %s: %w", path, err)
	}

	switch f.Kind {
	case KindNumber:
		n, err := strconv.ParseFloat(string(plaintext), 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: field %s: %v", ErrDecrypt, path, err)
		}
		return NumberValue(n), nil
	default:
		return StringValue(string(plaintext)), nil
	}
}

func rolesIntersect(authorized, held []string) bool {
	for _, a := range authorized {
		for _, h := range held {
			if a == h {
				return true
			}
		}
	}
	return false
}
