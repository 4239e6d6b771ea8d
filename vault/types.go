// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vault implements a confidential-balance shielded vault ledger.
// Per-user balances stay hidden behind opaque commitments; every mutation
// is gated by feature flags, compliance state, replay protection, and
// overflow-checked aggregate accounting.
package vault

import (
	"errors"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/shield/commitment"
)

// Ledger account address holding pooled custody balances
const ShieldVaultAddress = "0x0000000000000000000000000000000000009210"

// Ledger limits
const (
	// MinDeposit is the smallest accepted deposit (base units)
	MinDeposit uint64 = 1_000_000

	// MinWithdrawal is the smallest accepted withdrawal (base units)
	MinWithdrawal uint64 = 1_000_000

	// MaxBasisPoints bounds every fee rate
	MaxBasisPoints uint16 = 10_000

	// MaxYieldBps caps the yield rate at 50% APY
	MaxYieldBps uint16 = 5_000

	// MaxRiskScore is the highest compliance risk score accepted
	MaxRiskScore uint8 = 75

	// LiquidationThresholdBps is fixed at 80% for every loan
	LiquidationThresholdBps uint16 = 8_000

	// MaxSlippageBps caps swap slippage tolerance at 10%
	MaxSlippageBps uint16 = 1_000

	// MaxValidityDays bounds attestation validity
	MaxValidityDays uint32 = 365

	SecondsPerDay uint64 = 86_400
)

// Destination chains accepted for outbound bridging
const (
	ChainEthereum  uint64 = 1
	ChainOptimism  uint64 = 10
	ChainBSC       uint64 = 56
	ChainPolygon   uint64 = 137
	ChainBase      uint64 = 8453
	ChainArbitrum  uint64 = 42161
	ChainAvalanche uint64 = 43114
)

var allowedBridgeChains = map[uint64]bool{
	ChainEthereum:  true,
	ChainOptimism:  true,
	ChainBSC:       true,
	ChainPolygon:   true,
	ChainBase:      true,
	ChainArbitrum:  true,
	ChainAvalanche: true,
}

// Errors - authorization and state gates
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrVaultPaused      = errors.New("vault is paused")
	ErrEmergencyMode    = errors.New("vault in emergency mode")
	ErrFeatureDisabled  = errors.New("feature disabled")
	ErrPositionNotFound = errors.New("position not found")
)

// Errors - lifecycle state
var (
	ErrLoanActive         = errors.New("loan already active")
	ErrNoActiveLoan       = errors.New("no active loan")
	ErrOrderNotOpen       = errors.New("order not open")
	ErrOrderLive          = errors.New("order still live")
	ErrBridgePending      = errors.New("bridge request already pending")
	ErrBridgeNotPending   = errors.New("bridge request not pending")
	ErrBridgeUserMismatch = errors.New("bridge request user mismatch")
)

// Errors - arithmetic
var (
	ErrAmountOverflow  = errors.New("amount overflow")
	ErrAmountUnderflow = errors.New("amount underflow")
	ErrCounterOverflow = errors.New("counter overflow")
	ErrInvalidFee      = errors.New("fee exceeds maximum basis points")
)

// Errors - proof and compliance
var (
	ErrInvalidProof          = errors.New("invalid proof")
	ErrComplianceRequired    = errors.New("compliance attestation required")
	ErrComplianceExpired     = errors.New("compliance attestation expired")
	ErrComplianceInvalid     = errors.New("compliance attestation invalid")
	ErrAttestationValid      = errors.New("attestation already valid")
	ErrRiskScoreTooHigh      = errors.New("risk score above threshold")
	ErrInvalidValidityPeriod = errors.New("validity period out of range")
)

// Errors - replay and resources
var (
	ErrNullifierReused         = errors.New("nullifier already consumed")
	ErrAmountBelowMinimum      = errors.New("amount below minimum")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInsufficientCustody     = errors.New("insufficient custody balance")
	ErrInvalidDestinationChain = errors.New("invalid destination chain")
	ErrSlippageExceeded        = errors.New("slippage tolerance exceeded")
	ErrInvalidSwapRoute        = errors.New("invalid swap route")
)

// Config is the vault-level ledger record. One per deployment; aggregate
// fields mutate under the engine lock only.
type Config struct {
	Admin          common.Address
	Treasury       common.Address
	PrimaryAsset   common.Address
	SecondaryAsset common.Address

	// External integration flags
	ConfidentialComputeEnabled bool
	PrivateTransferEnabled     bool
	DarkPoolEnabled            bool
	LendingEnabled             bool
	BridgeEnabled              bool
	SwapEnabled                bool
	ComplianceEnabled          bool

	// Fee schedule (basis points)
	DepositFeeBps    uint16
	WithdrawalFeeBps uint16
	LendingFeeBps    uint16
	SwapFeeBps       uint16
	BridgeFeeBps     uint16

	CurrentYieldBps uint16

	// Aggregates
	TotalShieldedTVL uint64
	TotalPositions   uint64

	Paused             bool
	EmergencyMode      bool
	ComplianceRequired bool

	InitializedAt   uint64
	LastYieldUpdate uint64
}

// IsOperational returns true when actions may mutate the ledger
func (c Config) IsOperational() bool {
	return !c.Paused && !c.EmergencyMode
}

// Position is the per-user shielded balance record
type Position struct {
	Owner common.Address

	EncryptedPrincipal commitment.Amount
	EncryptedYield     commitment.Amount

	// LoanLiability records the outstanding borrow commitment. Kept apart
	// from EncryptedYield so repayment never clobbers accrued yield.
	LoanLiability commitment.Amount

	// BalanceCommitment is the last observed opaque balance tag
	BalanceCommitment [32]byte

	// Nullifier is the last consumed withdrawal tag; presenting it again
	// is a replay and is rejected
	Nullifier [32]byte

	HasActiveLoan    bool
	HasPendingBridge bool

	ComplianceVerified bool
	ComplianceExpiry   uint64

	CreatedAt     uint64
	LastDepositAt uint64
	LastActionAt  uint64

	DepositCount    uint32
	WithdrawalCount uint32
	ActionCount     uint32
}

// IsCompliant returns true if the position carries an unexpired verification
func (p *Position) IsCompliant(now uint64) bool {
	return p.ComplianceVerified && p.ComplianceExpiry > now
}

// isDormant reports whether the position no longer holds value
func (p *Position) isDormant() bool {
	return p.EncryptedPrincipal.IsZero() && p.EncryptedYield.IsZero() && !p.HasActiveLoan
}

// Attestation is the per-user compliance record
type Attestation struct {
	User     common.Address
	Provider common.Address
	Hash     [32]byte

	AttestedAt uint64
	ExpiresAt  uint64

	RiskScore uint8
	IsValid   bool
}

// Loan is the single active lending position per user
type Loan struct {
	Borrower common.Address

	EncryptedCollateral commitment.Amount
	EncryptedBorrow     commitment.Amount

	InterestRateBps         uint16
	LiquidationThresholdBps uint16

	OriginatedAt  uint64
	LastAccrualAt uint64

	IsActive bool
}

// OrderSide distinguishes dark-pool bids from asks
type OrderSide uint8

const (
	SideBuy OrderSide = iota
	SideSell
)

func (s OrderSide) String() string {
	if s == SideSell {
		return "sell"
	}
	return "buy"
}

// OrderStatus is the dark-pool order lifecycle state
type OrderStatus uint8

const (
	OrderNone OrderStatus = iota
	OrderOpen
	OrderPartiallyFilled
	OrderFilled
	OrderCancelled
)

func (s OrderStatus) String() string {
	switch s {
	case OrderOpen:
		return "open"
	case OrderPartiallyFilled:
		return "partially_filled"
	case OrderFilled:
		return "filled"
	case OrderCancelled:
		return "cancelled"
	default:
		return "none"
	}
}

// replaceable reports whether a new limit order may overwrite this status
func (s OrderStatus) replaceable() bool {
	return s == OrderNone || s == OrderCancelled || s == OrderFilled
}

// Order is the per-user dark-pool limit order
type Order struct {
	Maker common.Address
	Side  OrderSide

	EncryptedAmount commitment.Amount
	EncryptedPrice  commitment.Amount

	// MinOut is the minimum-output commitment supplied at placement; the
	// order's event stream XORs it with the amount commitment
	MinOut [32]byte

	Status    OrderStatus
	CreatedAt uint64
}

// BridgeStatus is the cross-chain request lifecycle state
type BridgeStatus uint8

const (
	BridgePending BridgeStatus = iota
	BridgeConfirmed
	BridgeCompleted
	BridgeFailed
)

func (s BridgeStatus) String() string {
	switch s {
	case BridgeConfirmed:
		return "confirmed"
	case BridgeCompleted:
		return "completed"
	case BridgeFailed:
		return "failed"
	default:
		return "pending"
	}
}

// BridgeRequest is the single outstanding cross-chain transfer per user
type BridgeRequest struct {
	User        common.Address
	DestChainID uint64

	AmountCommitment [32]byte

	Status    BridgeStatus
	CreatedAt uint64
}
