// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package proof

import (
	"sync"
	"testing"
)

func TestKind_String(t *testing.T) {
	cases := map[Kind]string{
		KindWithdrawal: "withdrawal",
		KindOwnership:  "ownership",
		KindSwap:       "swap",
		KindBridge:     "bridge",
		KindInbound:    "inbound",
		KindDisclosure: "disclosure",
		Kind(42):       "unknown",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}

func TestPresenceVerifier_RejectsEmptyBlob(t *testing.T) {
	v := NewPresenceVerifier()

	if err := v.Verify(KindWithdrawal, [32]byte{}); err != ErrEmptyProof {
		t.Errorf("expected ErrEmptyProof, got %v", err)
	}
}

func TestPresenceVerifier_AcceptsNonZeroBlob(t *testing.T) {
	v := NewPresenceVerifier()

	if err := v.Verify(KindSwap, [32]byte{1}); err != nil {
		t.Errorf("expected accept, got %v", err)
	}
}

func TestPresenceVerifier_Stats(t *testing.T) {
	v := NewPresenceVerifier()

	_ = v.Verify(KindWithdrawal, [32]byte{1})
	_ = v.Verify(KindOwnership, [32]byte{})
	_ = v.Verify(KindBridge, [32]byte{2})

	verifications, rejections := v.Stats()
	if verifications != 3 {
		t.Errorf("expected 3 verifications, got %d", verifications)
	}
	if rejections != 1 {
		t.Errorf("expected 1 rejection, got %d", rejections)
	}
}

func TestPresenceVerifier_ConcurrentAccess(t *testing.T) {
	v := NewPresenceVerifier()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				blob := [32]byte{byte(n), byte(j)}
				_ = v.Verify(KindSwap, blob)
			}
		}(i)
	}
	wg.Wait()

	verifications, _ := v.Stats()
	if verifications != 800 {
		t.Errorf("expected 800 verifications, got %d", verifications)
	}
}
