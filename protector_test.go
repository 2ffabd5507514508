package shield_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zoobzio/shield"
	"github.com/zoobzio/shield/json"
)

const e2ePolicy = `
classes:
  pii_account:
    action: encrypt
    algorithm: aes
    key: payments-main
    roles: [payments]
  pii_ssn:
    action: mask
    algorithm: ssn
patterns:
  - class: pii_ssn
    name: '*.ssn'
    priority: 100
  - class: pii_account
    value: '^[0-9]{10,12}$'
    priority: 10
`

func newE2EProtector(t *testing.T, opts ...shield.Option) *shield.Protector {
	t.Helper()
	store, err := shield.NewStore(context.Background(), shield.BytesSource(e2ePolicy))
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	keys := shield.NewStaticKeyring()
	keys.Add("payments-main", []byte("32-byte-key-for-aes-256-encrypt!"))
	p := shield.New(json.New(), store, keys, opts...)
	t.Cleanup(p.Close)
	return p
}

func paymentRecord() *shield.Record {
	return shield.NewRecord().
		SetString("accountNumber", "1234567890").
		SetString("amount", "500.00").
		SetString("note", "hello")
}

func TestSendReceive_RoundTrip(t *testing.T) {
	p := newE2EProtector(t)
	ctx := context.Background()

	rec := paymentRecord()
	data, err := p.Send(ctx, rec)
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	got, err := p.Receive(ctx, data, shield.Caller{ID: "fraud-svc", Roles: []string{"payments"}})
	if err != nil {
		t.Fatalf("Receive() error: %v", err)
	}
	if !got.Equal(rec) {
		t.Errorf("round-trip mismatch: got fields %v", got.Names())
	}
}

func TestSend_DoesNotMutateRecord(t *testing.T) {
	p := newE2EProtector(t)

	rec := paymentRecord()
	before := rec.Clone()

	if _, err := p.Send(context.Background(), rec); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if !rec.Equal(before) {
		t.Error("Send() mutated the input record")
	}
}

func TestSend_SensitiveValueNotOnWire(t *testing.T) {
	p := newE2EProtector(t)

	data, err := p.Send(context.Background(), paymentRecord())
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if strings.Contains(string(data), "1234567890") {
		t.Error("account number appears in clear on the wire")
	}
	for _, clear := range []string{"amount", "500.00", "note", "hello"} {
		if !strings.Contains(string(data), clear) {
			t.Errorf("non-sensitive %q missing from wire bytes", clear)
		}
	}
}

func TestReceive_UnauthorizedCaller(t *testing.T) {
	p := newE2EProtector(t)
	ctx := context.Background()

	data, err := p.Send(ctx, paymentRecord())
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	_, err = p.Receive(ctx, data, shield.Caller{ID: "marketing-svc", Roles: []string{"marketing"}})
	if !errors.Is(err, shield.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	var authErr *shield.AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthorizationError, got %T", err)
	}
	if authErr.Caller != "marketing-svc" || authErr.Field != "accountNumber" {
		t.Errorf("AuthorizationError = %+v", authErr)
	}
}

func TestReceive_MalformedBytes(t *testing.T) {
	p := newE2EProtector(t)
	caller := shield.Caller{ID: "svc", Roles: []string{"payments"}}

	for _, data := range [][]byte{
		[]byte("not json at all"),
		[]byte(`{"f":[{"n":"","k":0}]}`),
		[]byte(`{"f":[{"n":"a","k":9}]}`),
	} {
		_, err := p.Receive(context.Background(), data, caller)
		if !errors.Is(err, shield.ErrDecode) {
			t.Errorf("Receive(%q) error = %v, want ErrDecode", data, err)
		}
		var encErr *shield.EncodingError
		if !errors.As(err, &encErr) {
			t.Errorf("Receive(%q) error type = %T, want EncodingError", data, err)
		}
	}
}

func TestSendReceive_NestedAndMasked(t *testing.T) {
	p := newE2EProtector(t)
	ctx := context.Background()

	rec := shield.NewRecord().
		SetString("note", "routine check").
		SetRecord("customer", shield.NewRecord().
			SetString("ssn", "123-45-6789").
			SetString("accountNumber", "99999999999"))

	data, err := p.Send(ctx, rec)
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	got, err := p.Receive(ctx, data, shield.Caller{ID: "svc", Roles: []string{"payments"}})
	if err != nil {
		t.Fatalf("Receive() error: %v", err)
	}

	customer, ok := got.Get("customer")
	if !ok || customer.Kind() != shield.KindRecord {
		t.Fatal("customer record lost in transit")
	}

	// Masking is one-way: the masked form comes back, not the original.
	ssn, _ := customer.Record().Get("ssn")
	if ssn.Text() != "***-**-6789" {
		t.Errorf("ssn = %q, want masked form", ssn.Text())
	}

	acct, _ := customer.Record().Get("accountNumber")
	if acct.Text() != "99999999999" {
		t.Errorf("nested account number = %q, want decrypted original", acct.Text())
	}
}

func TestSendReceive_PolicyReloadBetween(t *testing.T) {
	ctx := context.Background()
	src := &swappablePolicy{doc: []byte(e2ePolicy)}
	store, err := shield.NewStore(ctx, src)
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	keys := shield.NewStaticKeyring()
	keys.Add("payments-main", []byte("32-byte-key-for-aes-256-encrypt!"))
	p := shield.New(json.New(), store, keys)
	defer p.Close()

	data, err := p.Send(ctx, paymentRecord())
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	// Reload with the patterns dropped. New sends classify nothing, but
	// a message already on the wire carries its class and still decrypts
	// as long as the class stays defined.
	src.doc = []byte(`
classes:
  pii_account:
    action: encrypt
    algorithm: aes
    key: payments-main
    roles: [payments]
patterns: []
`)
	if err := store.Reload(ctx); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}

	got, err := p.Receive(ctx, data, shield.Caller{ID: "svc", Roles: []string{"payments"}})
	if err != nil {
		t.Fatalf("Receive() after reload error: %v", err)
	}
	if v, _ := got.Get("accountNumber"); v.Text() != "1234567890" {
		t.Errorf("accountNumber = %q after reload", v.Text())
	}

	// Removing the class entirely strands old messages.
	src.doc = []byte("classes: {}\npatterns: []\n")
	if err := store.Reload(ctx); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	_, err = p.Receive(ctx, data, shield.Caller{ID: "svc", Roles: []string{"payments"}})
	if !errors.Is(err, shield.ErrUnknownClass) {
		t.Errorf("expected ErrUnknownClass for retired class, got %v", err)
	}
}

type swappablePolicy struct {
	doc []byte
}

func (s *swappablePolicy) Fetch(_ context.Context) ([]byte, error) {
	return s.doc, nil
}
