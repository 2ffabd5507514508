package shield

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Audit outcomes.
const (
	outcomeOK     = "ok"
	outcomeDenied = "denied"
	outcomeError  = "error"
)

// auditActionDecrypt is the action recorded for unprotect-side events;
// protect-side events record the rule's action (encrypt, mask, hash).
const auditActionDecrypt = "decrypt"

// AuditEvent describes one protection action on one field. Events never
// carry field values, only paths and outcomes.
type AuditEvent struct {
	ID        uuid.UUID
	Time      time.Time
	Caller    string // caller identity on unprotect; empty on protect
	FieldPath string
	Class     SensitivityClass
	Action    string // encrypt, mask, hash, decrypt
	Outcome   string // ok, denied, error
	Detail    string // error text when Outcome != ok
}

// AuditSink receives best-effort audit events. Emit is called from a
// single dispatcher goroutine and may block or fail without affecting
// protect/unprotect calls.
type AuditSink interface {
	Emit(event AuditEvent)
}

// auditDispatcher decouples audit emission from the protect path: events
// go into a buffered channel and a single goroutine drains them to the
// sink. A full buffer drops the event rather than blocking, and a panic in
// the sink is contained.
type auditDispatcher struct {
	sink   AuditSink
	events chan AuditEvent
	done   chan struct{}
	once   sync.Once
}

func newAuditDispatcher(sink AuditSink, buffer int) *auditDispatcher {
	d := &auditDispatcher{
		sink:   sink,
		events: make(chan AuditEvent, buffer),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *auditDispatcher) run() {
	defer close(d.done)
	for ev := range d.events {
		d.deliver(ev)
	}
}

func (d *auditDispatcher) deliver(ev AuditEvent) {
	defer func() {
		// A misbehaving sink must not take the dispatcher down.
		_ = recover()
	}()
	d.sink.Emit(ev)
}

// emit enqueues an event without blocking. Nil dispatchers (no sink
// configured) are a no-op.
func (d *auditDispatcher) emit(ctx context.Context, ev AuditEvent) {
	if d == nil {
		return
	}
	select {
	case d.events <- ev:
	default:
		emitAuditDropped(ctx, ev.FieldPath, ev.Action)
	}
}

// close stops the dispatcher after draining queued events.
func (d *auditDispatcher) close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		close(d.events)
		<-d.done
	})
}

// auditField records one field-level protection action.
func (p *Protector) auditField(ctx context.Context, caller, path string, class SensitivityClass, action, outcome, detail string) {
	p.audit.emit(ctx, AuditEvent{
		ID:        uuid.New(),
		Time:      time.Now(),
		Caller:    caller,
		FieldPath: path,
		Class:     class,
		Action:    action,
		Outcome:   outcome,
		Detail:    detail,
	})
}
