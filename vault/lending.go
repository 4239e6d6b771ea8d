// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"

	"github.com/luxfi/shield/commitment"
)

// BorrowParams opens a confidential loan. The interest rate comes from an
// external rate source; the ledger only bounds and records it.
type BorrowParams struct {
	CollateralCommitment [32]byte
	BorrowCommitment     [32]byte
	InterestRateBps      uint16
}

// Borrow opens the single loan allowed per position. The liquidation
// threshold is fixed at 80% and the borrow commitment is mirrored into the
// position's loan liability slot.
func (v *Vault) Borrow(caller common.Address, p BorrowParams) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.nowFn()

	pos, err := v.lendingGate(caller)
	if err != nil {
		return err
	}
	if p.InterestRateBps > MaxBasisPoints {
		return ErrInvalidFee
	}

	loan := v.getLoan(caller)
	if pos.HasActiveLoan || (loan != nil && loan.IsActive) {
		return ErrLoanActive
	}
	actionCount, err := incChecked(pos.ActionCount)
	if err != nil {
		return err
	}

	loan = &Loan{
		Borrower:                caller,
		EncryptedCollateral:     commitment.Amount{Commitment: p.CollateralCommitment},
		EncryptedBorrow:         commitment.Amount{Commitment: p.BorrowCommitment},
		InterestRateBps:         p.InterestRateBps,
		LiquidationThresholdBps: LiquidationThresholdBps,
		OriginatedAt:            now,
		LastAccrualAt:           now,
		IsActive:                true,
	}

	pos.HasActiveLoan = true
	pos.LoanLiability = commitment.Amount{Commitment: p.BorrowCommitment}
	pos.ActionCount = actionCount
	pos.LastActionAt = now

	v.saveLoan(loan)
	v.savePosition(pos)

	v.log.Info("confidential loan opened",
		log.String("borrower", caller.Hex()),
		log.Int("rateBps", int(p.InterestRateBps)),
	)
	return nil
}

// Repay closes the active loan and clears the position's loan flag and
// liability slot
func (v *Vault) Repay(caller common.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.nowFn()

	pos, err := v.lendingGate(caller)
	if err != nil {
		return err
	}
	loan := v.getLoan(caller)
	if loan == nil || !loan.IsActive {
		return ErrNoActiveLoan
	}
	actionCount, err := incChecked(pos.ActionCount)
	if err != nil {
		return err
	}

	loan.IsActive = false
	loan.EncryptedBorrow = commitment.Zero()

	pos.HasActiveLoan = false
	pos.LoanLiability = commitment.Zero()
	pos.ActionCount = actionCount
	pos.LastActionAt = now

	v.saveLoan(loan)
	v.savePosition(pos)

	v.log.Info("confidential loan repaid", log.String("borrower", caller.Hex()))
	return nil
}

// AddCollateral overwrites the loan's collateral commitment. Consistency
// with the previous collateral is delegated to the caller-side proof.
func (v *Vault) AddCollateral(caller common.Address, amountCommitment [32]byte) error {
	return v.adjustCollateral(caller, amountCommitment, "collateral added")
}

// WithdrawCollateral overwrites the loan's collateral commitment downward
func (v *Vault) WithdrawCollateral(caller common.Address, amountCommitment [32]byte) error {
	return v.adjustCollateral(caller, amountCommitment, "collateral withdrawn")
}

func (v *Vault) adjustCollateral(caller common.Address, amountCommitment [32]byte, msg string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.nowFn()

	pos, err := v.lendingGate(caller)
	if err != nil {
		return err
	}
	loan := v.getLoan(caller)
	if loan == nil || !loan.IsActive {
		return ErrNoActiveLoan
	}
	actionCount, err := incChecked(pos.ActionCount)
	if err != nil {
		return err
	}

	loan.EncryptedCollateral.Commitment = amountCommitment
	loan.LastAccrualAt = now

	pos.ActionCount = actionCount
	pos.LastActionAt = now

	v.saveLoan(loan)
	v.savePosition(pos)

	v.log.Info(msg, log.String("borrower", caller.Hex()))
	return nil
}

// lendingGate covers the shared lending preconditions
func (v *Vault) lendingGate(caller common.Address) (*Position, error) {
	if err := v.requireOperational(); err != nil {
		return nil, err
	}
	if !v.cfg.LendingEnabled {
		return nil, ErrFeatureDisabled
	}
	return v.requirePosition(caller)
}
