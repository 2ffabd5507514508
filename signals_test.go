package shield

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEmitSendStart(_ *testing.T) {
	// Should not panic
	emitSendStart(context.Background(), "application/json", 1)
}

func TestEmitSendComplete_Success(_ *testing.T) {
	emitSendComplete(context.Background(), "application/json", 1024, 100*time.Millisecond, 2, nil)
}

func TestEmitSendComplete_Error(_ *testing.T) {
	emitSendComplete(context.Background(), "application/json", 0, 100*time.Millisecond, 0, errors.New("test error"))
}

func TestEmitReceiveStart(_ *testing.T) {
	emitReceiveStart(context.Background(), "application/json", "test-caller")
}

func TestEmitReceiveComplete_Success(_ *testing.T) {
	emitReceiveComplete(context.Background(), "application/json", "test-caller", 100*time.Millisecond, 5, nil)
}

func TestEmitReceiveComplete_Error(_ *testing.T) {
	emitReceiveComplete(context.Background(), "application/json", "test-caller", 100*time.Millisecond, 0, errors.New("test error"))
}

func TestEmitPolicyReloaded(_ *testing.T) {
	emitPolicyReloaded(context.Background(), 2)
}

func TestEmitPolicyReloadFailed(_ *testing.T) {
	emitPolicyReloadFailed(context.Background(), 1, errors.New("test error"))
}

func TestEmitAuditDropped(_ *testing.T) {
	emitAuditDropped(context.Background(), "customer.ssn", "encrypt")
}
