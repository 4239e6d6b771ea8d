// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package commitment

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

var ErrPointNotOnCurve = errors.New("point not on curve")

// PedersenScheme implements Scheme over bn254 Pedersen commitments:
// C = v*G + r*H. Combine is real point addition, so the homomorphism holds
// instead of being simulated byte-wise. Handles still carry raw blinding
// material and combine with wrapping addition.
type PedersenScheme struct {
	G bn254.G1Affine // Base generator
	H bn254.G1Affine // Blinding generator
}

// NewPedersenScheme creates a Pedersen-backed scheme with fixed generators
func NewPedersenScheme() *PedersenScheme {
	s := &PedersenScheme{}

	_, _, g1Gen, _ := bn254.Generators()
	s.G = g1Gen

	// H = HashToCurve("Lux_Shield_H") - nothing-up-my-sleeve
	s.H = hashToG1("Lux_Shield_H_Generator")

	return s
}

// Commit creates a Pedersen commitment C = v*G + r*H
func (s *PedersenScheme) Commit(value, blindingFactor [32]byte) ([32]byte, error) {
	var v, r fr.Element
	v.SetBytes(value[:])
	r.SetBytes(blindingFactor[:])

	var vG, rH bn254.G1Affine
	vG.ScalarMultiplication(&s.G, v.BigInt(new(big.Int)))
	rH.ScalarMultiplication(&s.H, r.BigInt(new(big.Int)))

	var commitment bn254.G1Affine
	commitment.Add(&vG, &rH)

	return storePoint(&commitment), nil
}

func (s *PedersenScheme) Combine(a, b Amount) (Amount, error) {
	pa, err := loadPoint(a.Commitment)
	if err != nil {
		return Amount{}, err
	}
	pb, err := loadPoint(b.Commitment)
	if err != nil {
		return Amount{}, err
	}

	var sum bn254.G1Affine
	sum.Add(&pa, &pb)

	var out Amount
	for i := 0; i < 32; i++ {
		out.Handle[i] = a.Handle[i] + b.Handle[i]
	}
	out.Commitment = storePoint(&sum)
	return out, nil
}

func (s *PedersenScheme) Accrue(principal Amount, rateBps uint16, elapsedSeconds uint64) (Amount, error) {
	factor := YieldFactor(rateBps, elapsedSeconds)

	p, err := loadPoint(principal.Commitment)
	if err != nil {
		return Amount{}, err
	}

	// C' = C + factor*G
	var fG bn254.G1Affine
	fG.ScalarMultiplication(&s.G, new(big.Int).SetUint64(factor))

	var sum bn254.G1Affine
	sum.Add(&p, &fG)

	out := principal
	lo := byte(factor)
	for i := 0; i < 32; i++ {
		out.Handle[i] += lo
	}
	out.Commitment = storePoint(&sum)
	return out, nil
}

func (s *PedersenScheme) DeriveViewProof(total, yield Amount, timestamp uint64) ([32]byte, error) {
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], timestamp)

	h := sha256.New()
	h.Write(total.Commitment[:])
	h.Write(yield.Commitment[:])
	h.Write(ts[:])

	var proof [32]byte
	copy(proof[:], h.Sum(nil))
	return proof, nil
}

func (s *PedersenScheme) IsBinding() bool {
	return true
}

// hashToG1 creates a generator from a seed using try-and-increment
func hashToG1(seed string) bn254.G1Affine {
	var point bn254.G1Affine

	seedBytes := []byte(seed)
	var counter byte = 0

	for {
		data := append(seedBytes, counter)
		hash := sha256.Sum256(data)

		var x fp.Element
		x.SetBytes(hash[:])

		// y^2 = x^3 + 3
		var x2, x3, rhs fp.Element
		x2.Square(&x)
		x3.Mul(&x2, &x)

		var three fp.Element
		three.SetInt64(3)
		rhs.Add(&x3, &three)

		var y fp.Element
		if y.Sqrt(&rhs) != nil {
			point.X = x
			point.Y = y

			if point.IsOnCurve() && !point.IsInfinity() {
				return point
			}
		}
		counter++
		if counter == 0 {
			break
		}
	}

	_, _, g1, _ := bn254.Generators()
	return g1
}

// pointCache maps 32-byte commitment tags back to full curve points.
// The all-zero tag is the point at infinity (identity), so zero Amounts
// combine as the additive identity.
var pointCache = struct {
	sync.RWMutex
	m map[[32]byte]bn254.G1Affine
}{m: make(map[[32]byte]bn254.G1Affine)}

func storePoint(p *bn254.G1Affine) [32]byte {
	if p.IsInfinity() {
		return [32]byte{}
	}

	fullBytes := p.Bytes()
	hash := sha256.Sum256(fullBytes[:])
	var key [32]byte
	copy(key[:], hash[:])

	pointCache.Lock()
	pointCache.m[key] = *p
	pointCache.Unlock()

	return key
}

func loadPoint(tag [32]byte) (bn254.G1Affine, error) {
	if tag == ([32]byte{}) {
		var inf bn254.G1Affine
		inf.SetInfinity()
		return inf, nil
	}

	pointCache.RLock()
	p, ok := pointCache.m[tag]
	pointCache.RUnlock()
	if !ok {
		return bn254.G1Affine{}, ErrPointNotOnCurve
	}
	return p, nil
}
