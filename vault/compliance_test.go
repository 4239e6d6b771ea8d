// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Byte sums pick the risk score: sum % 100
var (
	lowRiskHash  = [32]byte{50}  // score 50
	edgeRiskHash = [32]byte{75}  // score 75, highest accepted
	highRiskHash = [32]byte{80}  // score 80, rejected
	wrapRiskHash = [32]byte{200} // sum 200, score 0
)

func testAttestationParams(hash [32]byte) AttestationParams {
	return AttestationParams{
		Hash:            hash,
		ValidityDays:    30,
		DisclosureProof: testProof,
	}
}

func TestRiskScoreOf(t *testing.T) {
	require.Equal(t, uint8(50), riskScoreOf(lowRiskHash))
	require.Equal(t, uint8(80), riskScoreOf(highRiskHash))
	require.Equal(t, uint8(0), riskScoreOf(wrapRiskHash))
	require.Equal(t, uint8(0), riskScoreOf([32]byte{}))
}

func TestSubmitAttestation(t *testing.T) {
	v, state := newTestVault(t, testParams())
	mustDeposit(t, v, state, testUser1, 2_000_000)

	require.NoError(t, v.SubmitAttestation(testUser1, testAttestationParams(lowRiskHash)))

	att, err := v.GetAttestation(testUser1)
	require.NoError(t, err)
	require.True(t, att.IsValid)
	require.Equal(t, testUser1, att.User)
	require.Equal(t, testProvider, att.Provider)
	require.Equal(t, uint8(50), att.RiskScore)
	require.Equal(t, testNow+30*SecondsPerDay, att.ExpiresAt)

	pos, err := v.GetPosition(testUser1)
	require.NoError(t, err)
	require.True(t, pos.IsCompliant(testNow))
	require.Equal(t, att.ExpiresAt, pos.ComplianceExpiry)
}

func TestSubmitAttestation_RiskThreshold(t *testing.T) {
	v, state := newTestVault(t, testParams())
	mustDeposit(t, v, state, testUser1, 2_000_000)
	mustDeposit(t, v, state, testUser2, 2_000_000)

	// Score 80 rejected, score 75 accepted
	err := v.SubmitAttestation(testUser1, testAttestationParams(highRiskHash))
	require.ErrorIs(t, err, ErrRiskScoreTooHigh)

	require.NoError(t, v.SubmitAttestation(testUser2, testAttestationParams(edgeRiskHash)))
}

func TestSubmitAttestation_ValidityBounds(t *testing.T) {
	v, state := newTestVault(t, testParams())
	mustDeposit(t, v, state, testUser1, 2_000_000)

	p := testAttestationParams(lowRiskHash)
	p.ValidityDays = 0
	require.ErrorIs(t, v.SubmitAttestation(testUser1, p), ErrInvalidValidityPeriod)

	p.ValidityDays = MaxValidityDays + 1
	require.ErrorIs(t, v.SubmitAttestation(testUser1, p), ErrInvalidValidityPeriod)

	p.ValidityDays = MaxValidityDays
	require.NoError(t, v.SubmitAttestation(testUser1, p))
}

func TestSubmitAttestation_AlreadyValid(t *testing.T) {
	v, state := newTestVault(t, testParams())
	mustDeposit(t, v, state, testUser1, 2_000_000)

	require.NoError(t, v.SubmitAttestation(testUser1, testAttestationParams(lowRiskHash)))
	err := v.SubmitAttestation(testUser1, testAttestationParams(lowRiskHash))
	require.ErrorIs(t, err, ErrAttestationValid)
}

func TestSubmitAttestation_FeatureDisabled(t *testing.T) {
	params := testParams()
	params.EnableCompliance = false
	v, state := newTestVault(t, params)
	mustDeposit(t, v, state, testUser1, 2_000_000)

	err := v.SubmitAttestation(testUser1, testAttestationParams(lowRiskHash))
	require.ErrorIs(t, err, ErrFeatureDisabled)
}

func TestSubmitAttestation_MissingProof(t *testing.T) {
	v, state := newTestVault(t, testParams())
	mustDeposit(t, v, state, testUser1, 2_000_000)

	p := testAttestationParams(lowRiskHash)
	p.DisclosureProof = [32]byte{}
	require.ErrorIs(t, v.SubmitAttestation(testUser1, p), ErrInvalidProof)
}

func TestVerifyAttestation(t *testing.T) {
	v, state := newTestVault(t, testParams())
	mustDeposit(t, v, state, testUser1, 2_000_000)

	// Nothing to verify yet
	require.ErrorIs(t, v.VerifyAttestation(testUser1, testProof), ErrComplianceInvalid)

	require.NoError(t, v.SubmitAttestation(testUser1, testAttestationParams(lowRiskHash)))
	require.NoError(t, v.VerifyAttestation(testUser1, testProof))
}

func TestVerifyAttestation_Expired(t *testing.T) {
	v, state := newTestVault(t, testParams())
	mustDeposit(t, v, state, testUser1, 2_000_000)
	require.NoError(t, v.SubmitAttestation(testUser1, testAttestationParams(lowRiskHash)))

	// Advance past expiry
	v.nowFn = func() uint64 { return testNow + 31*SecondsPerDay }
	require.ErrorIs(t, v.VerifyAttestation(testUser1, testProof), ErrComplianceExpired)
}

func TestRevokeAttestation(t *testing.T) {
	v, state := newTestVault(t, testParams())
	mustDeposit(t, v, state, testUser1, 2_000_000)
	require.NoError(t, v.SubmitAttestation(testUser1, testAttestationParams(lowRiskHash)))

	require.NoError(t, v.RevokeAttestation(testUser1, testProof))

	att, err := v.GetAttestation(testUser1)
	require.NoError(t, err)
	require.False(t, att.IsValid)

	pos, err := v.GetPosition(testUser1)
	require.NoError(t, err)
	require.False(t, pos.ComplianceVerified)
	require.Equal(t, uint64(0), pos.ComplianceExpiry)

	// Nothing left to revoke
	require.ErrorIs(t, v.RevokeAttestation(testUser1, testProof), ErrComplianceInvalid)
}

func TestRenewAttestation_WhileValid(t *testing.T) {
	v, state := newTestVault(t, testParams())
	mustDeposit(t, v, state, testUser1, 2_000_000)
	require.NoError(t, v.SubmitAttestation(testUser1, testAttestationParams(lowRiskHash)))

	p := testAttestationParams(edgeRiskHash)
	p.ValidityDays = 90
	require.NoError(t, v.RenewAttestation(testUser1, p))

	att, err := v.GetAttestation(testUser1)
	require.NoError(t, err)
	require.True(t, att.IsValid)
	require.Equal(t, uint8(75), att.RiskScore)
	require.Equal(t, testNow+90*SecondsPerDay, att.ExpiresAt)
}

func TestRenewAttestation_AfterExpiry(t *testing.T) {
	v, state := newTestVault(t, testParams())
	mustDeposit(t, v, state, testUser1, 2_000_000)
	require.NoError(t, v.SubmitAttestation(testUser1, testAttestationParams(lowRiskHash)))

	v.nowFn = func() uint64 { return testNow + 31*SecondsPerDay }
	require.NoError(t, v.RenewAttestation(testUser1, testAttestationParams(lowRiskHash)))

	require.NoError(t, v.VerifyAttestation(testUser1, testProof))
}

func TestRenewAttestation_RejectsHighRisk(t *testing.T) {
	v, state := newTestVault(t, testParams())
	mustDeposit(t, v, state, testUser1, 2_000_000)
	require.NoError(t, v.SubmitAttestation(testUser1, testAttestationParams(lowRiskHash)))

	err := v.RenewAttestation(testUser1, testAttestationParams(highRiskHash))
	require.ErrorIs(t, err, ErrRiskScoreTooHigh)

	// Previous attestation stands
	att, err := v.GetAttestation(testUser1)
	require.NoError(t, err)
	require.True(t, att.IsValid)
	require.Equal(t, uint8(50), att.RiskScore)
}

func TestRenewAttestation_NothingToRenew(t *testing.T) {
	v, state := newTestVault(t, testParams())
	mustDeposit(t, v, state, testUser1, 2_000_000)

	err := v.RenewAttestation(testUser1, testAttestationParams(lowRiskHash))
	require.ErrorIs(t, err, ErrComplianceInvalid)
}

func TestCompliance_GatesDepositAndWithdraw(t *testing.T) {
	params := testParams()
	params.ComplianceRequired = true
	v, state := newTestVault(t, params)

	// First deposit blocked without attestation, but attestation needs a
	// position; bootstrap by toggling the requirement off for one deposit
	state.SetBalance(testUser1, 4_000_000)
	require.ErrorIs(t, v.Deposit(testUser1, DepositParams{
		Amount:           2_000_000,
		AmountCommitment: testCommitment,
		BlindingFactor:   testBlinding,
	}), ErrComplianceRequired)

	require.NoError(t, v.SetComplianceRequired(testAdmin, false))
	require.NoError(t, v.Deposit(testUser1, DepositParams{
		Amount:           2_000_000,
		AmountCommitment: testCommitment,
		BlindingFactor:   testBlinding,
	}))
	require.NoError(t, v.SetComplianceRequired(testAdmin, true))

	// Withdrawal blocked until the attestation lands
	err := v.Withdraw(testUser1, testWithdrawParams(WithdrawPartial))
	require.ErrorIs(t, err, ErrComplianceRequired)

	require.NoError(t, v.SubmitAttestation(testUser1, testAttestationParams(lowRiskHash)))
	require.NoError(t, v.Withdraw(testUser1, testWithdrawParams(WithdrawPartial)))
}

func TestCompliance_EmitsEvents(t *testing.T) {
	v, state := newTestVault(t, testParams())
	mustDeposit(t, v, state, testUser1, 2_000_000)

	require.NoError(t, v.SubmitAttestation(testUser1, testAttestationParams(lowRiskHash)))

	events := v.Events()
	require.Len(t, events, 2)

	ev, ok := events[1].(ComplianceUpdated)
	require.True(t, ok)
	require.Equal(t, testUser1, ev.User)
	require.Equal(t, testProvider, ev.Provider)
	require.Equal(t, uint8(50), ev.RiskScore)
}
