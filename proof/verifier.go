// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package proof defines the proof-acceptance capability consumed by the
// shielded vault ledger. The ledger never verifies proofs itself; it hands
// each opaque 32-byte blob to a Verifier and acts on accept/reject.
package proof

import (
	"errors"
	"sync"
)

// Kind tags which ledger operation a proof blob authorizes
type Kind uint8

const (
	KindWithdrawal Kind = iota
	KindOwnership
	KindSwap
	KindBridge
	KindInbound
	KindDisclosure
)

func (k Kind) String() string {
	switch k {
	case KindWithdrawal:
		return "withdrawal"
	case KindOwnership:
		return "ownership"
	case KindSwap:
		return "swap"
	case KindBridge:
		return "bridge"
	case KindInbound:
		return "inbound"
	case KindDisclosure:
		return "disclosure"
	default:
		return "unknown"
	}
}

var (
	ErrEmptyProof    = errors.New("empty proof")
	ErrProofRejected = errors.New("proof rejected")
)

// Verifier is the proof-acceptance oracle. An all-zero blob is always
// rejected; anything beyond that is up to the implementation. Ledger
// correctness is conditioned on the oracle being sound.
type Verifier interface {
	Verify(kind Kind, blob [32]byte) error
}

// PresenceVerifier accepts any non-zero blob. It is the placeholder
// default; real deployments substitute a sound verifier.
type PresenceVerifier struct {
	mu                 sync.RWMutex
	totalVerifications uint64
	totalRejections    uint64
}

// NewPresenceVerifier creates the default placeholder verifier
func NewPresenceVerifier() *PresenceVerifier {
	return &PresenceVerifier{}
}

func (v *PresenceVerifier) Verify(kind Kind, blob [32]byte) error {
	v.mu.Lock()
	v.totalVerifications++
	if blob == ([32]byte{}) {
		v.totalRejections++
		v.mu.Unlock()
		return ErrEmptyProof
	}
	v.mu.Unlock()
	return nil
}

// Stats returns verification counters
func (v *PresenceVerifier) Stats() (verifications, rejections uint64) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.totalVerifications, v.totalRejections
}

// DefaultVerifier is the placeholder presence check
var DefaultVerifier Verifier = NewPresenceVerifier()
