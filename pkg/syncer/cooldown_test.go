package syncer

import (
	"testing"
	"time"
)

func TestCooldownGate_BlocksAfterFailure(t *testing.T) {
	gate := newCooldownGate(time.Minute)

	if gate.blocked("k") {
		t.Error("fresh key should not be blocked")
	}
	gate.recordFailure("k")
	if !gate.blocked("k") {
		t.Error("key should be blocked after failure")
	}
	if gate.blocked("other") {
		t.Error("cooldown must be per key")
	}
}

func TestCooldownGate_ExpiresAndCleansUp(t *testing.T) {
	gate := newCooldownGate(10 * time.Millisecond)

	gate.recordFailure("k")
	time.Sleep(20 * time.Millisecond)
	if gate.blocked("k") {
		t.Error("expired cooldown still blocking")
	}
	if _, ok := gate.until["k"]; ok {
		t.Error("expired entry not removed")
	}
}

func TestCooldownGate_Disabled(t *testing.T) {
	gate := newCooldownGate(0)

	gate.recordFailure("k")
	if gate.blocked("k") {
		t.Error("disabled gate should never block")
	}
	if len(gate.until) != 0 {
		t.Error("disabled gate should not record failures")
	}
}
