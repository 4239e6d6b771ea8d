// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"
)

// requireAdmin rejects every caller except the configured admin
func (v *Vault) requireAdmin(caller common.Address) error {
	if caller != v.cfg.Admin {
		return ErrUnauthorized
	}
	return nil
}

// DepositRewards moves admin funds into custody to back future yield
// withdrawals. Works while paused; emergency mode still blocks it.
func (v *Vault) DepositRewards(caller common.Address, amount uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireAdmin(caller); err != nil {
		return err
	}
	if v.cfg.EmergencyMode {
		return ErrEmergencyMode
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	newTVL, err := addChecked(v.cfg.TotalShieldedTVL, amount)
	if err != nil {
		return err
	}
	if err := v.transferIn(caller, amount); err != nil {
		return err
	}

	v.cfg.TotalShieldedTVL = newTVL
	v.saveLedger()

	v.log.Info("yield rewards deposited",
		log.Uint64("amount", amount),
		log.Uint64("tvl", newTVL),
	)
	return nil
}

// UpdateYieldRate sets the vault-wide yield rate and restarts the accrual
// window
func (v *Vault) UpdateYieldRate(caller common.Address, rateBps uint16) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireAdmin(caller); err != nil {
		return err
	}
	if rateBps > MaxYieldBps {
		return ErrInvalidAmount
	}

	v.cfg.CurrentYieldBps = rateBps
	v.cfg.LastYieldUpdate = v.nowFn()
	v.saveLedger()

	v.log.Info("yield rate updated", log.Int("rateBps", int(rateBps)))
	return nil
}

// SetPaused toggles the pause switch. Unpausing has no effect while
// emergency mode holds the vault closed.
func (v *Vault) SetPaused(caller common.Address, paused bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireAdmin(caller); err != nil {
		return err
	}

	v.cfg.Paused = paused
	v.saveLedger()

	v.log.Info("pause state changed", log.Bool("paused", paused))
	return nil
}

// SetEmergencyMode toggles emergency mode. Entering it forces the pause on;
// leaving it does not unpause.
func (v *Vault) SetEmergencyMode(caller common.Address, enabled bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireAdmin(caller); err != nil {
		return err
	}

	v.cfg.EmergencyMode = enabled
	if enabled {
		v.cfg.Paused = true
	}
	v.saveLedger()

	v.log.Info("emergency mode changed", log.Bool("enabled", enabled))
	return nil
}

// FeeUpdate carries the fee rates to change; nil fields keep their current
// value
type FeeUpdate struct {
	DepositFeeBps    *uint16
	WithdrawalFeeBps *uint16
	LendingFeeBps    *uint16
	SwapFeeBps       *uint16
	BridgeFeeBps     *uint16
}

// UpdateFees applies a partial fee schedule change. Every named rate is
// validated before any is applied.
func (v *Vault) UpdateFees(caller common.Address, update FeeUpdate) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireAdmin(caller); err != nil {
		return err
	}
	for _, fee := range []*uint16{
		update.DepositFeeBps,
		update.WithdrawalFeeBps,
		update.LendingFeeBps,
		update.SwapFeeBps,
		update.BridgeFeeBps,
	} {
		if fee != nil && *fee > MaxBasisPoints {
			return ErrInvalidFee
		}
	}

	if update.DepositFeeBps != nil {
		v.cfg.DepositFeeBps = *update.DepositFeeBps
	}
	if update.WithdrawalFeeBps != nil {
		v.cfg.WithdrawalFeeBps = *update.WithdrawalFeeBps
	}
	if update.LendingFeeBps != nil {
		v.cfg.LendingFeeBps = *update.LendingFeeBps
	}
	if update.SwapFeeBps != nil {
		v.cfg.SwapFeeBps = *update.SwapFeeBps
	}
	if update.BridgeFeeBps != nil {
		v.cfg.BridgeFeeBps = *update.BridgeFeeBps
	}
	v.saveLedger()

	v.log.Info("fee schedule updated")
	return nil
}

// FeatureUpdate carries the integration flags to change; nil fields keep
// their current value
type FeatureUpdate struct {
	ConfidentialCompute *bool
	PrivateTransfer     *bool
	DarkPool            *bool
	Lending             *bool
	Bridge              *bool
	Swap                *bool
	Compliance          *bool
}

// SetFeatureFlags applies a partial feature flag change
func (v *Vault) SetFeatureFlags(caller common.Address, update FeatureUpdate) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireAdmin(caller); err != nil {
		return err
	}

	if update.ConfidentialCompute != nil {
		v.cfg.ConfidentialComputeEnabled = *update.ConfidentialCompute
	}
	if update.PrivateTransfer != nil {
		v.cfg.PrivateTransferEnabled = *update.PrivateTransfer
	}
	if update.DarkPool != nil {
		v.cfg.DarkPoolEnabled = *update.DarkPool
	}
	if update.Lending != nil {
		v.cfg.LendingEnabled = *update.Lending
	}
	if update.Bridge != nil {
		v.cfg.BridgeEnabled = *update.Bridge
	}
	if update.Swap != nil {
		v.cfg.SwapEnabled = *update.Swap
	}
	if update.Compliance != nil {
		v.cfg.ComplianceEnabled = *update.Compliance
	}
	v.saveLedger()

	v.log.Info("feature flags updated")
	return nil
}

// SetComplianceRequired toggles the vault-wide attestation gate on deposits
// and withdrawals
func (v *Vault) SetComplianceRequired(caller common.Address, required bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireAdmin(caller); err != nil {
		return err
	}

	v.cfg.ComplianceRequired = required
	v.saveLedger()

	v.log.Info("compliance requirement changed", log.Bool("required", required))
	return nil
}

// MarkBridgeConfirmed records a relayer confirmation on a user's pending
// request. Completion still goes through the user's own verification.
func (v *Vault) MarkBridgeConfirmed(caller common.Address, user common.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireAdmin(caller); err != nil {
		return err
	}
	req := v.getBridge(user)
	if req == nil || req.Status != BridgePending {
		return ErrBridgeNotPending
	}
	if req.User != user {
		return ErrBridgeUserMismatch
	}

	req.Status = BridgeConfirmed
	v.saveBridge(req)

	v.log.Info("bridge request confirmed", log.String("user", user.Hex()))
	return nil
}
