// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"github.com/luxfi/geth/common"

	"github.com/luxfi/shield/commitment"
)

// BalanceView is a read-only projection of a position under the active
// yield rate. Nothing in it reveals plaintext amounts; the proof binds the
// projection to the moment it was computed.
type BalanceView struct {
	Total        commitment.Amount
	AccruedYield commitment.Amount

	// LoanCollateral is zero unless a loan is active
	LoanCollateral commitment.Amount

	Proof      [32]byte
	ComputedAt uint64

	YieldRateBps  uint16
	HasActiveLoan bool
}

// ViewBalance projects the caller's position forward to now: yield accrues
// on the principal since the last vault-wide rate update, then folds into
// the stored principal and yield commitments.
func (v *Vault) ViewBalance(caller common.Address) (BalanceView, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.nowFn()

	pos := v.getPosition(caller)
	if pos == nil {
		return BalanceView{}, ErrPositionNotFound
	}
	if pos.Owner != caller {
		return BalanceView{}, ErrUnauthorized
	}

	var elapsed uint64
	if now > v.cfg.LastYieldUpdate {
		elapsed = now - v.cfg.LastYieldUpdate
	}

	accrued, err := v.scheme.Accrue(pos.EncryptedPrincipal, v.cfg.CurrentYieldBps, elapsed)
	if err != nil {
		return BalanceView{}, err
	}
	total, err := v.scheme.Combine(pos.EncryptedPrincipal, accrued)
	if err != nil {
		return BalanceView{}, err
	}
	total, err = v.scheme.Combine(total, pos.EncryptedYield)
	if err != nil {
		return BalanceView{}, err
	}
	viewProof, err := v.scheme.DeriveViewProof(total, accrued, now)
	if err != nil {
		return BalanceView{}, err
	}

	view := BalanceView{
		Total:         total,
		AccruedYield:  accrued,
		Proof:         viewProof,
		ComputedAt:    now,
		YieldRateBps:  v.cfg.CurrentYieldBps,
		HasActiveLoan: pos.HasActiveLoan,
	}
	if pos.HasActiveLoan {
		if loan := v.getLoan(caller); loan != nil && loan.IsActive {
			view.LoanCollateral = loan.EncryptedCollateral
		}
	}
	return view, nil
}
