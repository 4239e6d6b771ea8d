// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"testing"

	log "github.com/luxfi/log"
	"github.com/stretchr/testify/require"
)

// End-to-end ledger flows across several action families.

func TestScenario_DepositAccounting(t *testing.T) {
	v, state := newTestVault(t, testParams())
	state.SetBalance(testUser1, 2_000_000)

	require.NoError(t, v.Deposit(testUser1, DepositParams{
		Amount:           2_000_000,
		AmountCommitment: testCommitment,
		BlindingFactor:   testBlinding,
	}))

	// 10 bps fee: TVL takes the net, the position counts one deposit
	require.Equal(t, uint64(1_998_000), v.TVL())
	require.Equal(t, uint64(1), v.TotalPositions())

	pos, err := v.GetPosition(testUser1)
	require.NoError(t, err)
	require.Equal(t, uint32(1), pos.DepositCount)
}

func TestScenario_LoanFreezesWithdrawals(t *testing.T) {
	v, state := newTestVault(t, testParams())
	mustDeposit(t, v, state, testUser1, 2_000_000)
	require.NoError(t, v.Borrow(testUser1, testBorrowParams()))

	tvl := v.TVL()
	custody := state.GetBalance(shieldVaultAddr).Uint64()

	for _, kind := range []WithdrawKind{WithdrawPartial, WithdrawFull, WithdrawYieldOnly} {
		require.ErrorIs(t, v.Withdraw(testUser1, testWithdrawParams(kind)), ErrLoanActive)
	}

	// No value moved while frozen
	require.Equal(t, tvl, v.TVL())
	require.Equal(t, custody, state.GetBalance(shieldVaultAddr).Uint64())
}

func TestScenario_HighRiskUserStaysGated(t *testing.T) {
	params := testParams()
	v, state := newTestVault(t, params)
	mustDeposit(t, v, state, testUser1, 2_000_000)

	// Score 80: attestation refused, so turning the requirement on locks
	// withdrawals for this user
	err := v.SubmitAttestation(testUser1, testAttestationParams(highRiskHash))
	require.ErrorIs(t, err, ErrRiskScoreTooHigh)

	require.NoError(t, v.SetComplianceRequired(testAdmin, true))
	err = v.Withdraw(testUser1, testWithdrawParams(WithdrawPartial))
	require.ErrorIs(t, err, ErrComplianceRequired)
}

func TestScenario_OrderLifecycleRoundTrip(t *testing.T) {
	v, state := newTestVault(t, testParams())
	mustDeposit(t, v, state, testUser1, 2_000_000)

	// Open blocks a replacement; filling frees the slot
	require.NoError(t, v.PlaceLimitOrder(testUser1, testOrderParams()))
	require.ErrorIs(t, v.PlaceLimitOrder(testUser1, testOrderParams()), ErrOrderLive)

	require.NoError(t, v.MatchOrder(testUser1, testProof))
	require.NoError(t, v.PlaceLimitOrder(testUser1, testOrderParams()))

	order, err := v.GetOrder(testUser1)
	require.NoError(t, err)
	require.Equal(t, OrderOpen, order.Status)
}

func TestScenario_FullUserJourney(t *testing.T) {
	v, state := newTestVault(t, testParams())

	// Deposit, attest, borrow, repay, swap, bridge out and cancel, withdraw
	mustDeposit(t, v, state, testUser1, 10_000_000)
	require.NoError(t, v.SubmitAttestation(testUser1, testAttestationParams(lowRiskHash)))
	require.NoError(t, v.Borrow(testUser1, testBorrowParams()))
	require.NoError(t, v.Repay(testUser1))
	require.NoError(t, v.ExecuteSwap(testUser1, testSwapParams()))
	require.NoError(t, v.InitiateOutbound(testUser1, testBridgeParams()))
	require.NoError(t, v.CancelBridgeRequest(testUser1, testProof))
	require.NoError(t, v.Withdraw(testUser1, testWithdrawParams(WithdrawPartial)))

	pos, err := v.GetPosition(testUser1)
	require.NoError(t, err)
	require.False(t, pos.HasActiveLoan)
	require.False(t, pos.HasPendingBridge)
	require.Equal(t, uint32(1), pos.DepositCount)
	require.Equal(t, uint32(1), pos.WithdrawalCount)

	view, err := v.ViewBalance(testUser1)
	require.NoError(t, err)
	require.Equal(t, testNow, view.ComputedAt)

	// Deposit, swap, bridge, withdraw, compliance all hit the event stream
	require.GreaterOrEqual(t, len(v.Events()), 5)
}

func TestScenario_EmergencyHaltsEverything(t *testing.T) {
	v, state := newTestVault(t, testParams())
	mustDeposit(t, v, state, testUser1, 2_000_000)
	require.NoError(t, v.SetEmergencyMode(testAdmin, true))

	require.ErrorIs(t, v.Deposit(testUser1, DepositParams{Amount: 2_000_000}), ErrEmergencyMode)
	require.ErrorIs(t, v.Withdraw(testUser1, testWithdrawParams(WithdrawPartial)), ErrEmergencyMode)
	require.ErrorIs(t, v.Borrow(testUser1, testBorrowParams()), ErrEmergencyMode)
	require.ErrorIs(t, v.ExecuteSwap(testUser1, testSwapParams()), ErrEmergencyMode)
	require.ErrorIs(t, v.InitiateOutbound(testUser1, testBridgeParams()), ErrEmergencyMode)
	require.ErrorIs(t, v.SubmitAttestation(testUser1, testAttestationParams(lowRiskHash)), ErrEmergencyMode)

	// Reads still work
	_, err := v.GetPosition(testUser1)
	require.NoError(t, err)
	_, err = v.ViewBalance(testUser1)
	require.NoError(t, err)
}

func TestScenario_StateSurvivesRestart(t *testing.T) {
	v1, state := newTestVault(t, testParams())
	mustDeposit(t, v1, state, testUser1, 2_000_000)
	require.NoError(t, v1.SubmitAttestation(testUser1, testAttestationParams(lowRiskHash)))
	require.NoError(t, v1.Borrow(testUser1, testBorrowParams()))
	require.NoError(t, v1.PlaceLimitOrder(testUser1, testOrderParams()))

	v2, err := New(testParams(), state, log.NewTestLogger(log.InfoLevel))
	require.NoError(t, err)
	v2.nowFn = func() uint64 { return testNow }

	require.Equal(t, v1.TVL(), v2.TVL())

	pos, err := v2.GetPosition(testUser1)
	require.NoError(t, err)
	require.True(t, pos.HasActiveLoan)
	require.True(t, pos.IsCompliant(testNow))

	loan, err := v2.GetLoan(testUser1)
	require.NoError(t, err)
	require.True(t, loan.IsActive)
	require.Equal(t, uint16(300), loan.InterestRateBps)

	att, err := v2.GetAttestation(testUser1)
	require.NoError(t, err)
	require.True(t, att.IsValid)
	require.Equal(t, uint8(50), att.RiskScore)

	order, err := v2.GetOrder(testUser1)
	require.NoError(t, err)
	require.Equal(t, OrderOpen, order.Status)
	require.Equal(t, testOrderParams().MinOutCommitment, order.MinOut)

	// The reloaded ledger keeps enforcing the loan freeze
	require.ErrorIs(t, v2.Withdraw(testUser1, testWithdrawParams(WithdrawPartial)), ErrLoanActive)
}
