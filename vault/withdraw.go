// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"

	"github.com/luxfi/shield/commitment"
	"github.com/luxfi/shield/proof"
)

// WithdrawKind selects which commitments a withdrawal consumes
type WithdrawKind uint8

const (
	// WithdrawPartial overwrites the principal commitment with a new value
	WithdrawPartial WithdrawKind = iota

	// WithdrawFull zeroes both principal and yield commitments
	WithdrawFull

	// WithdrawYieldOnly zeroes the yield commitment only
	WithdrawYieldOnly
)

func (k WithdrawKind) String() string {
	switch k {
	case WithdrawFull:
		return "full"
	case WithdrawYieldOnly:
		return "yield_only"
	default:
		return "partial"
	}
}

// WithdrawParams carries a shielded withdrawal. The nullifier must differ
// from the position's last consumed one; presenting it again is a replay.
type WithdrawParams struct {
	Amount uint64
	Kind   WithdrawKind

	// NewCommitment replaces the principal commitment on partial withdrawals
	NewCommitment [32]byte

	WithdrawalProof [32]byte
	OwnershipProof  [32]byte
	Nullifier       [32]byte
}

// Withdraw pays the net amount out of vault custody after every gate
// passes: operational, no active loan, no pending bridge, compliance,
// proofs, anti-replay nullifier, minimum amount, custody coverage.
func (v *Vault) Withdraw(caller common.Address, p WithdrawParams) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.nowFn()

	if err := v.requireOperational(); err != nil {
		return err
	}
	pos, err := v.requirePosition(caller)
	if err != nil {
		return err
	}
	if pos.HasActiveLoan {
		return ErrLoanActive
	}
	if pos.HasPendingBridge {
		return ErrBridgePending
	}
	if err := v.requireCompliance(caller, now); err != nil {
		return err
	}

	if err := v.verifier.Verify(proof.KindWithdrawal, p.WithdrawalProof); err != nil {
		return ErrInvalidProof
	}
	if err := v.verifier.Verify(proof.KindOwnership, p.OwnershipProof); err != nil {
		return ErrInvalidProof
	}
	if p.Nullifier == ([32]byte{}) {
		return ErrInvalidProof
	}
	if p.Nullifier == pos.Nullifier {
		return ErrNullifierReused
	}

	if p.Amount < MinWithdrawal {
		return ErrAmountBelowMinimum
	}
	fee, net, err := feeOn(p.Amount, v.cfg.WithdrawalFeeBps)
	if err != nil {
		return err
	}
	if v.custodyBalance().CmpUint64(p.Amount) < 0 {
		return ErrInsufficientCustody
	}
	withdrawalCount, err := incChecked(pos.WithdrawalCount)
	if err != nil {
		return err
	}

	// Net to the caller, fee to the treasury
	if err := v.transferOut(caller, net); err != nil {
		return err
	}
	if fee > 0 {
		if err := v.transferOut(v.cfg.Treasury, fee); err != nil {
			return err
		}
	}

	switch p.Kind {
	case WithdrawFull:
		pos.EncryptedPrincipal = commitment.Zero()
		pos.EncryptedYield = commitment.Zero()
	case WithdrawYieldOnly:
		pos.EncryptedYield = commitment.Zero()
	default:
		pos.EncryptedPrincipal.Commitment = p.NewCommitment
	}

	pos.Nullifier = p.Nullifier
	pos.WithdrawalCount = withdrawalCount
	pos.LastActionAt = now

	v.cfg.TotalShieldedTVL = subSaturating(v.cfg.TotalShieldedTVL, p.Amount)
	if pos.isDormant() {
		v.cfg.TotalPositions = subSaturating(v.cfg.TotalPositions, 1)
	}

	v.savePosition(pos)
	v.saveLedger()
	v.emit(WithdrawRecorded{User: caller, Nullifier: p.Nullifier, Timestamp: now})

	v.log.Info("shielded withdrawal recorded",
		log.String("user", caller.Hex()),
		log.String("kind", p.Kind.String()),
		log.Uint64("fee", fee),
	)
	return nil
}
