// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"
)

// DepositParams carries a shielded deposit. The commitment is recorded as
// supplied; validating it against the plaintext amount is the proof layer's
// job, not the ledger's.
type DepositParams struct {
	Amount           uint64
	AmountCommitment [32]byte
	BlindingFactor   [32]byte
}

// Deposit moves the full amount into vault custody and records the
// caller-supplied commitment as the new shielded principal. The position is
// created lazily on first deposit. TVL grows by the net amount after fee.
func (v *Vault) Deposit(caller common.Address, p DepositParams) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.nowFn()

	if err := v.requireOperational(); err != nil {
		return err
	}
	if p.Amount < MinDeposit {
		return ErrAmountBelowMinimum
	}
	if err := v.requireCompliance(caller, now); err != nil {
		return err
	}

	fee, net, err := feeOn(p.Amount, v.cfg.DepositFeeBps)
	if err != nil {
		return err
	}

	pos := v.getPosition(caller)

	// Resolve every checked update before any mutation
	newTVL, err := addChecked(v.cfg.TotalShieldedTVL, net)
	if err != nil {
		return err
	}
	var depositCount uint32
	if pos != nil {
		depositCount, err = incChecked(pos.DepositCount)
	} else {
		depositCount, err = incChecked(0)
	}
	if err != nil {
		return err
	}
	newPositions := v.cfg.TotalPositions
	if pos == nil {
		newPositions, err = addChecked(v.cfg.TotalPositions, 1)
		if err != nil {
			return err
		}
	}

	// Custody takes the full amount, then pays the fee on to the treasury;
	// only the net counts toward TVL
	if err := v.transferIn(caller, p.Amount); err != nil {
		return err
	}
	if fee > 0 {
		if err := v.transferOut(v.cfg.Treasury, fee); err != nil {
			return err
		}
	}

	if pos == nil {
		pos = &Position{Owner: caller, CreatedAt: now}
	}
	pos.EncryptedPrincipal.Handle = p.BlindingFactor
	pos.EncryptedPrincipal.Commitment = p.AmountCommitment
	pos.BalanceCommitment = p.AmountCommitment
	pos.DepositCount = depositCount
	pos.LastDepositAt = now
	pos.LastActionAt = now

	v.cfg.TotalShieldedTVL = newTVL
	v.cfg.TotalPositions = newPositions

	v.savePosition(pos)
	v.saveLedger()
	v.emit(DepositRecorded{User: caller, Commitment: p.AmountCommitment, Timestamp: now})

	v.log.Info("shielded deposit recorded",
		log.String("user", caller.Hex()),
		log.Uint64("fee", fee),
		log.Uint64("tvl", newTVL),
	)
	return nil
}
