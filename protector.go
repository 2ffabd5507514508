package shield

import (
	"context"
	"time"
)

// Caller identifies who is asking to unprotect a record. Roles are matched
// against each protected field's authorized-role set.
type Caller struct {
	ID    string
	Roles []string
}

// Protector is the boundary codec: Send classifies, protects, and encodes
// outbound records; Receive decodes and unprotects inbound bytes.
//
// Protectors are safe for concurrent use. Each call takes one policy
// snapshot from the Store and uses it throughout, so a concurrent reload is
// never partially visible within a call.
type Protector struct {
	codec Codec
	store *Store
	keys  Keyring
	audit *auditDispatcher

	hashers map[HashAlgo]Hasher
	maskers map[MaskType]Masker
}

// Option configures a Protector.
type Option func(*Protector)

// defaultAuditBuffer is the dispatcher queue size; events beyond it drop.
const defaultAuditBuffer = 256

// WithAuditSink routes per-field audit events to sink. Emission is
// asynchronous and best-effort; see AuditSink.
func WithAuditSink(sink AuditSink) Option {
	return func(p *Protector) {
		p.audit = newAuditDispatcher(sink, defaultAuditBuffer)
	}
}

// WithAuditSinkBuffer is WithAuditSink with an explicit queue size.
func WithAuditSinkBuffer(sink AuditSink, buffer int) Option {
	return func(p *Protector) {
		p.audit = newAuditDispatcher(sink, buffer)
	}
}

// WithHasher registers or replaces a hasher for hash-action rules.
func WithHasher(algo HashAlgo, h Hasher) Option {
	return func(p *Protector) {
		p.hashers[algo] = h
	}
}

// WithMasker registers or replaces a masker for mask-action rules.
func WithMasker(mt MaskType, m Masker) Option {
	return func(p *Protector) {
		p.maskers[mt] = m
	}
}

// New creates a Protector around a wire codec, a policy store, and a
// keyring. Builtin hashers and maskers are registered; audit is disabled
// unless WithAuditSink is given.
func New(codec Codec, store *Store, keys Keyring, opts ...Option) *Protector {
	p := &Protector{
		codec:   codec,
		store:   store,
		keys:    keys,
		hashers: builtinHashers(),
		maskers: builtinMaskers(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Close stops the audit dispatcher after draining queued events. The
// Protector must not be used after Close.
func (p *Protector) Close() {
	p.audit.close()
}

// Classify maps each leaf field of the record to a sensitivity class using
// the current policy snapshot.
func (p *Protector) Classify(rec *Record) Classification {
	return p.store.Snapshot().Classify(rec)
}

// Protect produces the protected form of a record given its classification,
// using the current policy snapshot. All-or-nothing: any field failure
// abandons the record.
func (p *Protector) Protect(ctx context.Context, rec *Record, cls Classification) (*ProtectedRecord, error) {
	return p.protect(ctx, p.store.Snapshot(), rec, cls, "")
}

// Unprotect reverses a protected record. Authorization is checked for
// every protected field before any decryption: a caller missing a required
// role fails the whole record with AuthorizationError and zero fields are
// decrypted.
func (p *Protector) Unprotect(ctx context.Context, pr *ProtectedRecord, caller Caller) (*Record, error) {
	snap := p.store.Snapshot()
	if err := p.authorize(ctx, snap, pr, caller, ""); err != nil {
		return nil, err
	}
	return p.unprotect(ctx, pr, caller, "")
}

// Send classifies and protects a record, then encodes it for the wire.
// The record itself is not mutated.
func (p *Protector) Send(ctx context.Context, rec *Record) ([]byte, error) {
	snap := p.store.Snapshot()

	start := time.Now()
	emitSendStart(ctx, p.codec.ContentType(), snap.Version())

	var retErr error
	var retData []byte
	var protected int
	defer func() {
		emitSendComplete(ctx, p.codec.ContentType(), len(retData), time.Since(start), protected, retErr)
	}()

	cls := snap.Classify(rec)
	pr, err := p.protect(ctx, snap, rec, cls, "")
	if err != nil {
		retErr = err
		return nil, retErr
	}
	protected = len(cls)

	retData, err = p.codec.Marshal(encodeWire(pr))
	if err != nil {
		retErr = newEncodingError(ErrEncode, err)
		return nil, retErr
	}
	return retData, nil
}

// Receive decodes wire bytes and unprotects the record for the caller.
// Malformed bytes fail with EncodingError; the transport decides whether
// to dead-letter the message.
func (p *Protector) Receive(ctx context.Context, data []byte, caller Caller) (*Record, error) {
	start := time.Now()
	emitReceiveStart(ctx, p.codec.ContentType(), caller.ID)

	var retErr error
	var fieldCount int
	defer func() {
		emitReceiveComplete(ctx, p.codec.ContentType(), caller.ID, time.Since(start), fieldCount, retErr)
	}()

	var w wireRecord
	if err := p.codec.Unmarshal(data, &w); err != nil {
		retErr = newEncodingError(ErrDecode, err)
		return nil, retErr
	}

	pr, err := decodeWire(&w)
	if err != nil {
		retErr = newEncodingError(ErrDecode, err)
		return nil, retErr
	}
	fieldCount = pr.Len()

	rec, err := p.Unprotect(ctx, pr, caller)
	if err != nil {
		retErr = err
		return nil, retErr
	}
	return rec, nil
}
