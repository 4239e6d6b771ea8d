// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"

	"github.com/luxfi/shield/proof"
)

// BridgeParams carries an outbound cross-chain transfer request
type BridgeParams struct {
	DestChainID      uint64
	AmountCommitment [32]byte
	BridgeProof      [32]byte
}

// InitiateOutbound opens the single bridge request allowed per user. The
// destination must be on the allow-list and the amount commitment is locked
// into both the request and the position's principal.
func (v *Vault) InitiateOutbound(caller common.Address, p BridgeParams) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.nowFn()

	pos, err := v.bridgeGate(caller, p.BridgeProof)
	if err != nil {
		return err
	}
	if pos.HasPendingBridge {
		return ErrBridgePending
	}
	if !allowedBridgeChains[p.DestChainID] {
		return ErrInvalidDestinationChain
	}
	actionCount, err := incChecked(pos.ActionCount)
	if err != nil {
		return err
	}

	req := &BridgeRequest{
		User:             caller,
		DestChainID:      p.DestChainID,
		AmountCommitment: p.AmountCommitment,
		Status:           BridgePending,
		CreatedAt:        now,
	}

	pos.EncryptedPrincipal.Commitment = p.AmountCommitment
	pos.HasPendingBridge = true
	pos.ActionCount = actionCount
	pos.LastActionAt = now

	v.saveBridge(req)
	v.savePosition(pos)
	v.emit(BridgeRequested{
		User:        caller,
		DestChainID: p.DestChainID,
		Commitment:  p.AmountCommitment,
		Timestamp:   now,
	})

	v.log.Info("outbound bridge initiated",
		log.String("user", caller.Hex()),
		log.Uint64("destChain", p.DestChainID),
	)
	return nil
}

// ClaimParams carries an inbound cross-chain claim
type ClaimParams struct {
	AmountCommitment [32]byte
	BridgeProof      [32]byte
	InboundProof     [32]byte
}

// ClaimInbound credits an inbound transfer: the principal takes the new
// commitment and any matching outstanding request completes. The pending
// flag clears either way.
func (v *Vault) ClaimInbound(caller common.Address, p ClaimParams) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.nowFn()

	pos, err := v.bridgeGate(caller, p.BridgeProof)
	if err != nil {
		return err
	}
	if err := v.verifier.Verify(proof.KindInbound, p.InboundProof); err != nil {
		return ErrInvalidProof
	}
	actionCount, err := incChecked(pos.ActionCount)
	if err != nil {
		return err
	}

	pos.EncryptedPrincipal.Commitment = p.AmountCommitment

	var destChain uint64
	if req := v.getBridge(caller); req != nil {
		destChain = req.DestChainID
		if req.User == pos.Owner {
			req.Status = BridgeCompleted
			v.saveBridge(req)
		}
	}

	pos.HasPendingBridge = false
	pos.ActionCount = actionCount
	pos.LastActionAt = now

	v.savePosition(pos)
	v.emit(BridgeRequested{
		User:        caller,
		DestChainID: destChain,
		Commitment:  p.AmountCommitment,
		Timestamp:   now,
	})

	v.log.Info("inbound bridge claimed", log.String("user", caller.Hex()))
	return nil
}

// CancelBridgeRequest fails a pending request and restores the position's
// principal commitment to its pre-initiation value
func (v *Vault) CancelBridgeRequest(caller common.Address, bridgeProof [32]byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.nowFn()

	pos, err := v.bridgeGate(caller, bridgeProof)
	if err != nil {
		return err
	}
	req := v.getBridge(caller)
	if req == nil || req.Status != BridgePending {
		return ErrBridgeNotPending
	}
	actionCount, err := incChecked(pos.ActionCount)
	if err != nil {
		return err
	}

	pos.EncryptedPrincipal.Commitment = req.AmountCommitment
	req.Status = BridgeFailed

	pos.HasPendingBridge = false
	pos.ActionCount = actionCount
	pos.LastActionAt = now

	v.saveBridge(req)
	v.savePosition(pos)
	v.emit(BridgeRequested{
		User:        caller,
		DestChainID: req.DestChainID,
		Commitment:  req.AmountCommitment,
		Timestamp:   now,
	})

	v.log.Info("bridge request cancelled", log.String("user", caller.Hex()))
	return nil
}

// VerifyBridgeCompletion completes a pending or relayer-confirmed request
// and clears the pending flag
func (v *Vault) VerifyBridgeCompletion(caller common.Address, bridgeProof [32]byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.nowFn()

	pos, err := v.bridgeGate(caller, bridgeProof)
	if err != nil {
		return err
	}
	req := v.getBridge(caller)
	if req == nil || (req.Status != BridgePending && req.Status != BridgeConfirmed) {
		return ErrBridgeNotPending
	}
	actionCount, err := incChecked(pos.ActionCount)
	if err != nil {
		return err
	}

	req.Status = BridgeCompleted

	pos.HasPendingBridge = false
	pos.ActionCount = actionCount
	pos.LastActionAt = now

	v.saveBridge(req)
	v.savePosition(pos)
	v.emit(BridgeRequested{
		User:        caller,
		DestChainID: req.DestChainID,
		Commitment:  req.AmountCommitment,
		Timestamp:   now,
	})

	v.log.Info("bridge completion verified", log.String("user", caller.Hex()))
	return nil
}

// bridgeGate covers the shared bridge preconditions
func (v *Vault) bridgeGate(caller common.Address, bridgeProof [32]byte) (*Position, error) {
	if err := v.requireOperational(); err != nil {
		return nil, err
	}
	if !v.cfg.BridgeEnabled {
		return nil, ErrFeatureDisabled
	}
	pos, err := v.requirePosition(caller)
	if err != nil {
		return nil, err
	}
	if err := v.verifier.Verify(proof.KindBridge, bridgeProof); err != nil {
		return nil, ErrInvalidProof
	}
	return pos, nil
}
