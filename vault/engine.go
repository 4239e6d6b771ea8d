// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"math"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"
	"github.com/zeebo/blake3"

	"github.com/luxfi/shield/commitment"
	"github.com/luxfi/shield/proof"
)

// StateDB interface for accessing and modifying ledger state
type StateDB interface {
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key common.Hash, value common.Hash)
	GetBalance(addr common.Address) *uint256.Int
	AddBalance(addr common.Address, amount *uint256.Int)
	SubBalance(addr common.Address, amount *uint256.Int)
	Exist(addr common.Address) bool
	CreateAccount(addr common.Address)
}

// Ledger account as bytes
var shieldVaultAddr = common.HexToAddress(ShieldVaultAddress)

// Storage key prefixes for ledger state
var (
	ledgerPrefix      = []byte("ledg")
	positionPrefix    = []byte("posn")
	attestationPrefix = []byte("atst")
	loanPrefix        = []byte("loan")
	orderPrefix       = []byte("ordr")
	bridgePrefix      = []byte("brdg")
	eventPrefix       = []byte("evnt")
)

// Params configures a new vault ledger
type Params struct {
	Admin          common.Address
	Treasury       common.Address
	PrimaryAsset   common.Address
	SecondaryAsset common.Address

	// ComplianceProvider is recorded on every attestation
	ComplianceProvider common.Address

	DepositFeeBps    uint16
	WithdrawalFeeBps uint16
	LendingFeeBps    uint16
	SwapFeeBps       uint16
	BridgeFeeBps     uint16

	InitialYieldBps    uint16
	ComplianceRequired bool

	EnableConfidentialCompute bool
	EnablePrivateTransfer     bool
	EnableDarkPool            bool
	EnableLending             bool
	EnableBridge              bool
	EnableSwap                bool
	EnableCompliance          bool

	// Scheme defaults to the byte-wise XOR scheme when nil
	Scheme commitment.Scheme

	// Verifier defaults to the presence check when nil
	Verifier proof.Verifier

	// Journal, when set, receives every emitted event durably
	Journal database.Database
}

// DefaultParams returns the standard fee schedule with every integration
// enabled and compliance not required
func DefaultParams() Params {
	return Params{
		DepositFeeBps:    10,
		WithdrawalFeeBps: 10,
		LendingFeeBps:    50,
		SwapFeeBps:       30,
		BridgeFeeBps:     25,
		InitialYieldBps:  500,

		EnableConfidentialCompute: true,
		EnablePrivateTransfer:     true,
		EnableDarkPool:            true,
		EnableLending:             true,
		EnableBridge:              true,
		EnableSwap:                true,
		EnableCompliance:          true,
	}
}

// Vault is the shielded vault ledger engine. One lock covers every action:
// an action observes and mutates the ledger atomically or fails without
// effect. Aggregate views take the read lock; record views take the full
// lock because loading a record populates the cache.
type Vault struct {
	mu sync.RWMutex

	cfg   *Config
	state StateDB

	scheme   commitment.Scheme
	verifier proof.Verifier
	log      log.Logger

	provider common.Address

	// Record caches, keyed by BLAKE3(owner || primaryAsset)
	positions    map[[32]byte]*Position
	attestations map[[32]byte]*Attestation
	loans        map[[32]byte]*Loan
	orders       map[[32]byte]*Order
	bridges      map[[32]byte]*BridgeRequest

	journal *Journal
	events  []Event

	nowFn func() uint64
}

// New creates a vault ledger over the given state. Aggregate state left by
// a previous instance on the same StateDB is restored.
func New(params Params, state StateDB, logger log.Logger) (*Vault, error) {
	for _, fee := range []uint16{
		params.DepositFeeBps,
		params.WithdrawalFeeBps,
		params.LendingFeeBps,
		params.SwapFeeBps,
		params.BridgeFeeBps,
	} {
		if fee > MaxBasisPoints {
			return nil, ErrInvalidFee
		}
	}
	if params.InitialYieldBps > MaxYieldBps {
		return nil, ErrInvalidAmount
	}

	scheme := params.Scheme
	if scheme == nil {
		scheme = commitment.DefaultScheme
	}
	verifier := params.Verifier
	if verifier == nil {
		verifier = proof.DefaultVerifier
	}

	v := &Vault{
		state:        state,
		scheme:       scheme,
		verifier:     verifier,
		log:          logger,
		provider:     params.ComplianceProvider,
		positions:    make(map[[32]byte]*Position),
		attestations: make(map[[32]byte]*Attestation),
		loans:        make(map[[32]byte]*Loan),
		orders:       make(map[[32]byte]*Order),
		bridges:      make(map[[32]byte]*BridgeRequest),
		events:       make([]Event, 0),
		nowFn:        func() uint64 { return uint64(time.Now().Unix()) },
	}
	if params.Journal != nil {
		v.journal = NewJournal(params.Journal)
	}

	now := v.nowFn()
	v.cfg = &Config{
		Admin:          params.Admin,
		Treasury:       params.Treasury,
		PrimaryAsset:   params.PrimaryAsset,
		SecondaryAsset: params.SecondaryAsset,

		ConfidentialComputeEnabled: params.EnableConfidentialCompute,
		PrivateTransferEnabled:     params.EnablePrivateTransfer,
		DarkPoolEnabled:            params.EnableDarkPool,
		LendingEnabled:             params.EnableLending,
		BridgeEnabled:              params.EnableBridge,
		SwapEnabled:                params.EnableSwap,
		ComplianceEnabled:          params.EnableCompliance,

		DepositFeeBps:    params.DepositFeeBps,
		WithdrawalFeeBps: params.WithdrawalFeeBps,
		LendingFeeBps:    params.LendingFeeBps,
		SwapFeeBps:       params.SwapFeeBps,
		BridgeFeeBps:     params.BridgeFeeBps,

		CurrentYieldBps:    params.InitialYieldBps,
		ComplianceRequired: params.ComplianceRequired,

		InitializedAt:   now,
		LastYieldUpdate: now,
	}

	if !state.Exist(shieldVaultAddr) {
		state.CreateAccount(shieldVaultAddr)
	}
	v.restoreLedger()
	v.saveLedger()

	return v, nil
}

// makeStorageKey creates a storage key from prefix and identifier
func makeStorageKey(prefix []byte, id []byte) common.Hash {
	h := blake3.New()
	h.Write(prefix)
	h.Write(id)
	var key common.Hash
	h.Digest().Read(key[:])
	return key
}

// recordKey derives the per-user record key
func (v *Vault) recordKey(owner common.Address) [32]byte {
	h := blake3.New()
	h.Write(owner.Bytes())
	h.Write(v.cfg.PrimaryAsset.Bytes())
	var key [32]byte
	h.Digest().Read(key[:])
	return key
}

// =========================================================================
// Gates
// =========================================================================

// requireOperational rejects actions while paused or in emergency mode
func (v *Vault) requireOperational() error {
	if v.cfg.EmergencyMode {
		return ErrEmergencyMode
	}
	if v.cfg.Paused {
		return ErrVaultPaused
	}
	return nil
}

// requireCompliance gates an action on a valid attestation when the vault
// demands one
func (v *Vault) requireCompliance(owner common.Address, now uint64) error {
	if !v.cfg.ComplianceRequired {
		return nil
	}

	att := v.getAttestation(owner)
	if att == nil || !att.IsValid {
		return ErrComplianceRequired
	}
	if att.User != owner {
		return ErrComplianceInvalid
	}
	if att.ExpiresAt <= now {
		return ErrComplianceExpired
	}
	return nil
}

// requirePosition loads the caller's position, rejecting unknown owners
func (v *Vault) requirePosition(owner common.Address) (*Position, error) {
	pos := v.getPosition(owner)
	if pos == nil {
		return nil, ErrPositionNotFound
	}
	if pos.Owner != owner {
		return nil, ErrUnauthorized
	}
	return pos, nil
}

// =========================================================================
// Custody
// =========================================================================

// custodyBalance returns the pooled balance held by the ledger account
func (v *Vault) custodyBalance() *uint256.Int {
	return v.state.GetBalance(shieldVaultAddr)
}

// transferIn moves amount from payer into vault custody
func (v *Vault) transferIn(payer common.Address, amount uint64) error {
	amt := uint256.NewInt(amount)
	if v.state.GetBalance(payer).Cmp(amt) < 0 {
		return ErrInsufficientCustody
	}
	v.state.SubBalance(payer, amt)
	v.state.AddBalance(shieldVaultAddr, amt)
	return nil
}

// transferOut pays amount from vault custody to the recipient
func (v *Vault) transferOut(recipient common.Address, amount uint64) error {
	amt := uint256.NewInt(amount)
	if v.custodyBalance().Cmp(amt) < 0 {
		return ErrInsufficientCustody
	}
	v.state.SubBalance(shieldVaultAddr, amt)
	v.state.AddBalance(recipient, amt)
	return nil
}

// =========================================================================
// Checked arithmetic
// =========================================================================

// feeOn computes fee and net for an amount at a bps rate, failing closed on
// overflow
func feeOn(amount uint64, bps uint16) (fee, net uint64, err error) {
	rate := uint64(bps)
	if rate != 0 && amount > math.MaxUint64/rate {
		return 0, 0, ErrAmountOverflow
	}
	fee = amount * rate / uint64(MaxBasisPoints)
	if fee > amount {
		return 0, 0, ErrAmountUnderflow
	}
	return fee, amount - fee, nil
}

func addChecked(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrAmountOverflow
	}
	return a + b, nil
}

func subSaturating(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

func incChecked(c uint32) (uint32, error) {
	if c == math.MaxUint32 {
		return 0, ErrCounterOverflow
	}
	return c + 1, nil
}

// =========================================================================
// Snapshots
// =========================================================================

// Snapshot returns a copy of the vault-level ledger record
func (v *Vault) Snapshot() Config {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return *v.cfg
}

// TVL returns the aggregate shielded value
func (v *Vault) TVL() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cfg.TotalShieldedTVL
}

// TotalPositions returns the active position count
func (v *Vault) TotalPositions() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cfg.TotalPositions
}

// GetPosition returns a copy of the owner's position
func (v *Vault) GetPosition(owner common.Address) (Position, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	pos := v.getPosition(owner)
	if pos == nil {
		return Position{}, ErrPositionNotFound
	}
	return *pos, nil
}

// GetAttestation returns a copy of the owner's compliance attestation
func (v *Vault) GetAttestation(owner common.Address) (Attestation, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	att := v.getAttestation(owner)
	if att == nil {
		return Attestation{}, ErrComplianceRequired
	}
	return *att, nil
}

// GetLoan returns a copy of the owner's lending position
func (v *Vault) GetLoan(owner common.Address) (Loan, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	loan := v.getLoan(owner)
	if loan == nil {
		return Loan{}, ErrNoActiveLoan
	}
	return *loan, nil
}

// GetOrder returns a copy of the owner's dark-pool order
func (v *Vault) GetOrder(owner common.Address) (Order, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	order := v.getOrder(owner)
	if order == nil {
		return Order{}, ErrOrderNotOpen
	}
	return *order, nil
}

// GetBridgeRequest returns a copy of the owner's bridge request
func (v *Vault) GetBridgeRequest(owner common.Address) (BridgeRequest, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	req := v.getBridge(owner)
	if req == nil {
		return BridgeRequest{}, ErrBridgeNotPending
	}
	return *req, nil
}
