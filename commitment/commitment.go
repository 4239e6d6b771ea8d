// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package commitment implements the opaque encrypted-amount arithmetic used
// by the shielded vault ledger. Amounts are (handle, commitment) pairs of
// 32-byte blobs; the ledger never sees plaintext values and only combines,
// accrues, and tags them through a pluggable Scheme.
package commitment

import (
	"encoding/binary"
	"errors"

	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
)

// Yield accrual constants
const (
	// SecondsPerYear caps the elapsed time used for one accrual step
	SecondsPerYear uint64 = 31_536_000

	// BpsDenominator converts basis points to a fraction
	BpsDenominator uint64 = 10_000
)

var ErrUnknownScheme = errors.New("unknown commitment scheme")

// Amount is an opaque encrypted amount. The handle carries blinding
// material, the commitment is the equality-comparable balance tag.
// Neither is decodable by the ledger.
type Amount struct {
	Handle     [32]byte
	Commitment [32]byte
}

// IsZero returns true iff both the handle and the commitment are all-zero
func (a Amount) IsZero() bool {
	return a.Handle == [32]byte{} && a.Commitment == [32]byte{}
}

// Zero returns the zero amount
func Zero() Amount {
	return Amount{}
}

// Scheme defines the confidential-amount operations the ledger depends on.
// XORScheme is the default; PedersenScheme backs the same interface with a
// real homomorphic commitment.
type Scheme interface {
	// Combine aggregates two amounts without revealing either
	Combine(a, b Amount) (Amount, error)

	// Accrue perturbs principal by a rate-and-time proportional factor
	Accrue(principal Amount, rateBps uint16, elapsedSeconds uint64) (Amount, error)

	// DeriveViewProof derives the integrity tag returned with balance views
	DeriveViewProof(total, yield Amount, timestamp uint64) ([32]byte, error)

	// IsBinding returns true if the scheme is cryptographically binding
	IsBinding() bool
}

// XORScheme implements Scheme with byte-wise wrapping addition on handles
// and byte-wise XOR on commitments. Commutative and associative by
// construction, so principal, prior yield, and accrued yield aggregate in
// any order. NOT cryptographically binding; see PedersenScheme.
type XORScheme struct{}

// NewXORScheme creates the default byte-wise scheme
func NewXORScheme() *XORScheme {
	return &XORScheme{}
}

func (s *XORScheme) Combine(a, b Amount) (Amount, error) {
	var out Amount
	for i := 0; i < 32; i++ {
		out.Handle[i] = a.Handle[i] + b.Handle[i]
		out.Commitment[i] = a.Commitment[i] ^ b.Commitment[i]
	}
	return out, nil
}

func (s *XORScheme) Accrue(principal Amount, rateBps uint16, elapsedSeconds uint64) (Amount, error) {
	factor := YieldFactor(rateBps, elapsedSeconds)

	out := principal
	lo := byte(factor)
	hi := byte(factor >> 8)
	for i := 0; i < 32; i++ {
		out.Handle[i] += lo
		out.Commitment[i] ^= hi
	}
	return out, nil
}

func (s *XORScheme) DeriveViewProof(total, yield Amount, timestamp uint64) ([32]byte, error) {
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], timestamp)

	var proof [32]byte
	for i := 0; i < 32; i++ {
		proof[i] = total.Commitment[i] ^ yield.Commitment[i] ^ ts[i%8]
	}
	return proof, nil
}

func (s *XORScheme) IsBinding() bool {
	return false
}

// YieldFactor computes the integer accrual factor for a rate over an
// elapsed window: min(elapsed, 1y) * rateBps / 10_000 / 1y, saturating on
// the intermediate multiply.
func YieldFactor(rateBps uint16, elapsedSeconds uint64) uint64 {
	capped := elapsedSeconds
	if capped > SecondsPerYear {
		capped = SecondsPerYear
	}

	rate := uint64(rateBps)
	product := capped * rate
	if rate != 0 && product/rate != capped {
		product = ^uint64(0) // saturate
	}

	return product / BpsDenominator / SecondsPerYear
}

// DefaultScheme is the byte-wise XOR scheme
var DefaultScheme Scheme = NewXORScheme()

// SchemeType identifies the commitment scheme
type SchemeType uint8

const (
	SchemeXOR      SchemeType = 0 // Default byte-wise combinator
	SchemePedersen SchemeType = 1 // bn254 Pedersen, binding
)

// GetScheme returns a commitment scheme by type
func GetScheme(schemeType SchemeType) (Scheme, error) {
	switch schemeType {
	case SchemeXOR:
		return NewXORScheme(), nil
	case SchemePedersen:
		return NewPedersenScheme(), nil
	default:
		return nil, ErrUnknownScheme
	}
}

// DeriveNullifier derives a withdrawal nullifier bound to an owner.
// nullifier = Keccak256(owner || secret)
func DeriveNullifier(owner common.Address, secret [32]byte) [32]byte {
	var out [32]byte
	copy(out[:], crypto.Keccak256(owner.Bytes(), secret[:]))
	return out
}
