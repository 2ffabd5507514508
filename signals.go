package shield

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for protection events.
var (
	SignalSendStart          = capitan.NewSignal("shield.send.start", "Send operation beginning")
	SignalSendComplete       = capitan.NewSignal("shield.send.complete", "Send operation finished")
	SignalReceiveStart       = capitan.NewSignal("shield.receive.start", "Receive operation beginning")
	SignalReceiveComplete    = capitan.NewSignal("shield.receive.complete", "Receive operation finished")
	SignalPolicyReloaded     = capitan.NewSignal("shield.policy.reloaded", "Policy snapshot swapped")
	SignalPolicyReloadFailed = capitan.NewSignal("shield.policy.reload_failed", "Policy reload rejected, previous snapshot kept")
	SignalAuditDropped       = capitan.NewSignal("shield.audit.dropped", "Audit event dropped, buffer full")
)

// Keys for typed event data.
var (
	KeyContentType    = capitan.NewStringKey("content_type")
	KeyCaller         = capitan.NewStringKey("caller")
	KeySize           = capitan.NewIntKey("size")
	KeyDuration       = capitan.NewDurationKey("duration")
	KeyError          = capitan.NewErrorKey("error")
	KeyFieldCount     = capitan.NewIntKey("field_count")
	KeyProtectedCount = capitan.NewIntKey("protected_count")
	KeyPolicyVersion  = capitan.NewIntKey("policy_version")
	KeyFieldPath      = capitan.NewStringKey("field_path")
	KeyAction         = capitan.NewStringKey("action")
)

// emitSendStart emits an event when a send begins.
func emitSendStart(ctx context.Context, contentType string, policyVersion uint64) {
	capitan.Emit(ctx, SignalSendStart,
		KeyContentType.Field(contentType),
		KeyPolicyVersion.Field(int(policyVersion)),
	)
}

// emitSendComplete emits an event when a send finishes.
func emitSendComplete(ctx context.Context, contentType string, size int, duration time.Duration, protected int, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeySize.Field(size),
		KeyDuration.Field(duration),
		KeyProtectedCount.Field(protected),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalSendComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalSendComplete, fields...)
	}
}

// emitReceiveStart emits an event when a receive begins.
func emitReceiveStart(ctx context.Context, contentType, caller string) {
	capitan.Emit(ctx, SignalReceiveStart,
		KeyContentType.Field(contentType),
		KeyCaller.Field(caller),
	)
}

// emitReceiveComplete emits an event when a receive finishes.
func emitReceiveComplete(ctx context.Context, contentType, caller string, duration time.Duration, fieldCount int, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeyCaller.Field(caller),
		KeyDuration.Field(duration),
		KeyFieldCount.Field(fieldCount),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalReceiveComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalReceiveComplete, fields...)
	}
}

// emitPolicyReloaded emits an event when a reload publishes a new snapshot.
func emitPolicyReloaded(ctx context.Context, version uint64) {
	capitan.Emit(ctx, SignalPolicyReloaded,
		KeyPolicyVersion.Field(int(version)),
	)
}

// emitPolicyReloadFailed emits an event when a reload is rejected.
func emitPolicyReloadFailed(ctx context.Context, version uint64, err error) {
	capitan.Error(ctx, SignalPolicyReloadFailed,
		KeyPolicyVersion.Field(int(version)),
		KeyError.Field(err),
	)
}

// emitAuditDropped emits an event when the audit buffer is full.
func emitAuditDropped(ctx context.Context, fieldPath, action string) {
	capitan.Emit(ctx, SignalAuditDropped,
		KeyFieldPath.Field(fieldPath),
		KeyAction.Field(action),
	)
}
