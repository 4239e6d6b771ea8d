// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package commitment

import (
	"testing"

	"github.com/luxfi/geth/common"
)

var testOwner = common.HexToAddress("0x1111111111111111111111111111111111111111")

func amountFrom(handleSeed, commitSeed byte) Amount {
	var a Amount
	for i := 0; i < 32; i++ {
		a.Handle[i] = handleSeed + byte(i)
		a.Commitment[i] = commitSeed + byte(i)
	}
	return a
}

// =========================================================================
// XOR Scheme Tests
// =========================================================================

func TestXORScheme_CombineCommutative(t *testing.T) {
	s := NewXORScheme()

	a := amountFrom(0x10, 0xA0)
	b := amountFrom(0x42, 0x07)

	ab, err := s.Combine(a, b)
	if err != nil {
		t.Fatalf("combine failed: %v", err)
	}
	ba, err := s.Combine(b, a)
	if err != nil {
		t.Fatalf("combine failed: %v", err)
	}
	if ab != ba {
		t.Errorf("combine not commutative: %x != %x", ab, ba)
	}
}

func TestXORScheme_CombineAssociative(t *testing.T) {
	s := NewXORScheme()

	a := amountFrom(0x01, 0x11)
	b := amountFrom(0x02, 0x22)
	c := amountFrom(0x03, 0x33)

	ab, _ := s.Combine(a, b)
	abc1, _ := s.Combine(ab, c)

	bc, _ := s.Combine(b, c)
	abc2, _ := s.Combine(a, bc)

	if abc1 != abc2 {
		t.Errorf("combine not associative: %x != %x", abc1, abc2)
	}
}

func TestXORScheme_CombineZeroIdentityOnCommitment(t *testing.T) {
	s := NewXORScheme()

	a := amountFrom(0x55, 0xBB)
	out, err := s.Combine(a, Zero())
	if err != nil {
		t.Fatalf("combine failed: %v", err)
	}
	if out.Commitment != a.Commitment {
		t.Errorf("zero is not XOR identity on commitment")
	}
	if out.Handle != a.Handle {
		t.Errorf("zero is not additive identity on handle")
	}
}

func TestXORScheme_AccrueZeroElapsedIsNoop(t *testing.T) {
	s := NewXORScheme()

	a := amountFrom(0x20, 0x80)
	out, err := s.Accrue(a, 500, 0)
	if err != nil {
		t.Fatalf("accrue failed: %v", err)
	}
	if out != a {
		t.Errorf("zero elapsed should not perturb the amount")
	}
}

func TestXORScheme_AccrueDeterministic(t *testing.T) {
	s := NewXORScheme()

	a := amountFrom(0x20, 0x80)
	out1, _ := s.Accrue(a, 5000, SecondsPerYear)
	out2, _ := s.Accrue(a, 5000, SecondsPerYear)
	if out1 != out2 {
		t.Errorf("accrue not deterministic")
	}
}

func TestXORScheme_ViewProofBindsTimestamp(t *testing.T) {
	s := NewXORScheme()

	total := amountFrom(0x01, 0x99)
	yield := amountFrom(0x02, 0x33)

	p1, err := s.DeriveViewProof(total, yield, 1_700_000_000)
	if err != nil {
		t.Fatalf("view proof failed: %v", err)
	}
	p2, err := s.DeriveViewProof(total, yield, 1_700_000_001)
	if err != nil {
		t.Fatalf("view proof failed: %v", err)
	}
	if p1 == p2 {
		t.Errorf("view proof should change with the timestamp")
	}

	p3, _ := s.DeriveViewProof(total, yield, 1_700_000_000)
	if p1 != p3 {
		t.Errorf("view proof not deterministic")
	}
}

func TestXORScheme_NotBinding(t *testing.T) {
	if NewXORScheme().IsBinding() {
		t.Errorf("XOR scheme must not claim to be binding")
	}
}

// =========================================================================
// Yield Factor Tests
// =========================================================================

func TestYieldFactor_ZeroRate(t *testing.T) {
	if f := YieldFactor(0, SecondsPerYear); f != 0 {
		t.Errorf("expected 0 factor at zero rate, got %d", f)
	}
}

func TestYieldFactor_ZeroElapsed(t *testing.T) {
	if f := YieldFactor(5000, 0); f != 0 {
		t.Errorf("expected 0 factor at zero elapsed, got %d", f)
	}
}

func TestYieldFactor_FullYearFullRate(t *testing.T) {
	// A full year at 100% resolves to exactly 1
	if f := YieldFactor(10_000, SecondsPerYear); f != 1 {
		t.Errorf("expected factor 1, got %d", f)
	}
}

func TestYieldFactor_ElapsedCappedAtOneYear(t *testing.T) {
	f1 := YieldFactor(10_000, SecondsPerYear)
	f2 := YieldFactor(10_000, 10*SecondsPerYear)
	if f1 != f2 {
		t.Errorf("elapsed beyond one year must cap: %d != %d", f1, f2)
	}
}

func TestYieldFactor_NeverPanicsOnExtremes(t *testing.T) {
	_ = YieldFactor(10_000, ^uint64(0))
	_ = YieldFactor(0, ^uint64(0))
}

// =========================================================================
// Nullifier Tests
// =========================================================================

func TestDeriveNullifier_Deterministic(t *testing.T) {
	secret := [32]byte{1, 2, 3}

	n1 := DeriveNullifier(testOwner, secret)
	n2 := DeriveNullifier(testOwner, secret)
	if n1 != n2 {
		t.Errorf("nullifier not deterministic")
	}
	if n1 == ([32]byte{}) {
		t.Errorf("nullifier must be non-zero")
	}
}

func TestDeriveNullifier_BoundToOwner(t *testing.T) {
	secret := [32]byte{9, 9, 9}
	other := common.HexToAddress("0x2222222222222222222222222222222222222222")

	if DeriveNullifier(testOwner, secret) == DeriveNullifier(other, secret) {
		t.Errorf("nullifier must differ per owner")
	}
}

func TestDeriveNullifier_BoundToSecret(t *testing.T) {
	if DeriveNullifier(testOwner, [32]byte{1}) == DeriveNullifier(testOwner, [32]byte{2}) {
		t.Errorf("nullifier must differ per secret")
	}
}

// =========================================================================
// Scheme Registry Tests
// =========================================================================

func TestGetScheme(t *testing.T) {
	s, err := GetScheme(SchemeXOR)
	if err != nil || s == nil {
		t.Fatalf("expected XOR scheme, got err=%v", err)
	}
	if s.IsBinding() {
		t.Errorf("XOR scheme must not be binding")
	}

	s, err = GetScheme(SchemePedersen)
	if err != nil || s == nil {
		t.Fatalf("expected Pedersen scheme, got err=%v", err)
	}
	if !s.IsBinding() {
		t.Errorf("Pedersen scheme must be binding")
	}

	if _, err := GetScheme(SchemeType(99)); err != ErrUnknownScheme {
		t.Errorf("expected ErrUnknownScheme, got %v", err)
	}
}

// =========================================================================
// Benchmarks
// =========================================================================

func BenchmarkXORCombine(b *testing.B) {
	s := NewXORScheme()
	x := amountFrom(0x10, 0xA0)
	y := amountFrom(0x42, 0x07)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Combine(x, y)
	}
}

func BenchmarkYieldFactor(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = YieldFactor(500, SecondsPerYear/2)
	}
}
