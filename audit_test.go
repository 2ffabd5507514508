package shield

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
)

// collectSink gathers events; safe to read after the dispatcher is closed.
type collectSink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (s *collectSink) Emit(ev AuditEvent) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *collectSink) all() []AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events
}

func findEvent(events []AuditEvent, path, action string) (AuditEvent, bool) {
	for _, ev := range events {
		if ev.FieldPath == path && ev.Action == action {
			return ev, true
		}
	}
	return AuditEvent{}, false
}

func TestAudit_ProtectAndUnprotectEvents(t *testing.T) {
	sink := &collectSink{}
	p, _ := newTestProtector(t, protectPolicy, WithAuditSink(sink))
	ctx := context.Background()

	rec := NewRecord().
		SetString("accountNumber", "1234567890").
		SetRecord("customer", NewRecord().SetString("ssn", "123-45-6789"))

	pr, err := p.Protect(ctx, rec, p.Classify(rec))
	if err != nil {
		t.Fatalf("Protect() error: %v", err)
	}
	if _, err := p.Unprotect(ctx, pr, Caller{ID: "svc", Roles: []string{"payments"}}); err != nil {
		t.Fatalf("Unprotect() error: %v", err)
	}
	p.Close()

	events := sink.all()

	enc, ok := findEvent(events, "accountNumber", "encrypt")
	if !ok {
		t.Fatal("missing encrypt event for accountNumber")
	}
	if enc.Outcome != outcomeOK || enc.Caller != "" || enc.Class != "pii_account" {
		t.Errorf("encrypt event = %+v", enc)
	}
	if enc.ID == uuid.Nil {
		t.Error("event ID not set")
	}

	if _, ok := findEvent(events, "customer.ssn", "mask"); !ok {
		t.Error("missing mask event with dotted path")
	}

	dec, ok := findEvent(events, "accountNumber", auditActionDecrypt)
	if !ok {
		t.Fatal("missing decrypt event")
	}
	if dec.Caller != "svc" || dec.Outcome != outcomeOK {
		t.Errorf("decrypt event = %+v", dec)
	}

	// Events carry paths and outcomes only, never field values.
	for _, ev := range events {
		if strings.Contains(ev.Detail, "1234567890") || strings.Contains(ev.Detail, "123-45-6789") {
			t.Errorf("event detail leaks a field value: %+v", ev)
		}
	}
}

func TestAudit_DeniedEvent(t *testing.T) {
	sink := &collectSink{}
	p, _ := newTestProtector(t, protectPolicy, WithAuditSink(sink))
	ctx := context.Background()

	rec := NewRecord().SetString("accountNumber", "1234567890")
	pr, err := p.Protect(ctx, rec, p.Classify(rec))
	if err != nil {
		t.Fatalf("Protect() error: %v", err)
	}

	_, err = p.Unprotect(ctx, pr, Caller{ID: "intruder", Roles: nil})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	p.Close()

	ev, ok := findEvent(sink.all(), "accountNumber", auditActionDecrypt)
	if !ok {
		t.Fatal("missing denied event")
	}
	if ev.Outcome != outcomeDenied || ev.Caller != "intruder" {
		t.Errorf("denied event = %+v", ev)
	}
}

// panicSink misbehaves on every event.
type panicSink struct{}

func (panicSink) Emit(AuditEvent) { panic("sink blew up") }

func TestAudit_PanickingSinkDoesNotFailProtect(t *testing.T) {
	p, _ := newTestProtector(t, protectPolicy, WithAuditSink(panicSink{}))
	ctx := context.Background()

	rec := NewRecord().SetString("accountNumber", "1234567890")
	pr, err := p.Protect(ctx, rec, p.Classify(rec))
	if err != nil {
		t.Fatalf("Protect() error: %v", err)
	}
	if _, err := p.Unprotect(ctx, pr, Caller{ID: "svc", Roles: []string{"payments"}}); err != nil {
		t.Fatalf("Unprotect() error: %v", err)
	}
	p.Close()
}

// stallSink blocks until released, backing up the dispatcher queue.
type stallSink struct {
	release chan struct{}
	seen    chan struct{}
}

func (s *stallSink) Emit(AuditEvent) {
	s.seen <- struct{}{}
	<-s.release
}

func TestAudit_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	sink := &stallSink{release: make(chan struct{}), seen: make(chan struct{}, 64)}
	p, _ := newTestProtector(t, protectPolicy, WithAuditSinkBuffer(sink, 1))
	ctx := context.Background()

	rec := NewRecord()
	for i := 0; i < 8; i++ {
		rec.SetString("field"+string(rune('a'+i)), "1234567890")
	}

	// The sink stalls on the first event; everything past the one-slot
	// buffer drops, so the protect call returns without blocking.
	if _, err := p.Protect(ctx, rec, p.Classify(rec)); err != nil {
		t.Fatalf("Protect() error: %v", err)
	}

	<-sink.seen
	close(sink.release)
	p.Close()
}

func TestAudit_NoSinkConfigured(t *testing.T) {
	p, _ := newTestProtector(t, protectPolicy)

	rec := NewRecord().SetString("accountNumber", "1234567890")
	if _, err := p.Protect(context.Background(), rec, p.Classify(rec)); err != nil {
		t.Fatalf("Protect() without sink error: %v", err)
	}
}
