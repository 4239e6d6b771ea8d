// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"

	"github.com/luxfi/shield/commitment"
	"github.com/luxfi/shield/proof"
)

// RouteKind tags the swap routing variant
type RouteKind uint8

const (
	RouteDirect RouteKind = iota
	RouteDarkPool
	RouteSplit
)

func (k RouteKind) String() string {
	switch k {
	case RouteDarkPool:
		return "dark_pool"
	case RouteSplit:
		return "split"
	default:
		return "direct"
	}
}

// SwapRoute is the routing choice. Routing itself happens off-ledger; the
// ledger only validates and logs the choice.
type SwapRoute struct {
	Kind RouteKind

	// SplitWeightBps applies to RouteSplit only
	SplitWeightBps uint16
}

// SwapParams carries a confidential swap
type SwapParams struct {
	AmountInCommitment [32]byte
	MinOutCommitment   [32]byte
	SlippageBps        uint16
	Route              SwapRoute
	SwapProof          [32]byte
}

// ExecuteSwap records a swap: principal takes the input commitment, the
// balance tag takes the minimum-output commitment. Slippage is capped at
// 10%.
func (v *Vault) ExecuteSwap(caller common.Address, p SwapParams) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.nowFn()

	if err := v.requireOperational(); err != nil {
		return err
	}
	if !v.cfg.SwapEnabled && !v.cfg.DarkPoolEnabled {
		return ErrFeatureDisabled
	}
	pos, err := v.requirePosition(caller)
	if err != nil {
		return err
	}
	if err := v.verifier.Verify(proof.KindSwap, p.SwapProof); err != nil {
		return ErrInvalidProof
	}
	if p.SlippageBps > MaxSlippageBps {
		return ErrSlippageExceeded
	}
	switch p.Route.Kind {
	case RouteDirect, RouteDarkPool:
	case RouteSplit:
		if p.Route.SplitWeightBps > MaxBasisPoints {
			return ErrInvalidSwapRoute
		}
	default:
		return ErrInvalidSwapRoute
	}
	actionCount, err := incChecked(pos.ActionCount)
	if err != nil {
		return err
	}

	pos.EncryptedPrincipal.Commitment = p.AmountInCommitment
	pos.BalanceCommitment = p.MinOutCommitment
	pos.ActionCount = actionCount
	pos.LastActionAt = now

	v.savePosition(pos)
	v.emit(SwapRecorded{
		User:           caller,
		SwapCommitment: xor32(p.AmountInCommitment, p.MinOutCommitment),
		Timestamp:      now,
	})

	v.log.Info("confidential swap recorded",
		log.String("user", caller.Hex()),
		log.String("route", p.Route.Kind.String()),
	)
	return nil
}

// OrderParams carries a dark-pool limit order
type OrderParams struct {
	Side             OrderSide
	AmountCommitment [32]byte
	PriceCommitment  [32]byte
	MinOutCommitment [32]byte
	SwapProof        [32]byte
}

// PlaceLimitOrder opens the single dark-pool order per maker. A live order
// (open or partially filled) cannot be overwritten.
func (v *Vault) PlaceLimitOrder(caller common.Address, p OrderParams) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.nowFn()

	pos, err := v.darkPoolGate(caller, p.SwapProof)
	if err != nil {
		return err
	}
	if p.PriceCommitment == ([32]byte{}) {
		return ErrInvalidAmount
	}

	status := OrderNone
	if order := v.getOrder(caller); order != nil {
		status = order.Status
	}
	if !status.replaceable() {
		return ErrOrderLive
	}
	actionCount, err := incChecked(pos.ActionCount)
	if err != nil {
		return err
	}

	order := &Order{
		Maker:           caller,
		Side:            p.Side,
		EncryptedAmount: commitment.Amount{Commitment: p.AmountCommitment},
		EncryptedPrice:  commitment.Amount{Commitment: p.PriceCommitment},
		MinOut:          p.MinOutCommitment,
		Status:          OrderOpen,
		CreatedAt:       now,
	}

	pos.ActionCount = actionCount
	pos.LastActionAt = now

	v.saveOrder(order)
	v.savePosition(pos)
	v.emit(SwapRecorded{
		User:           caller,
		SwapCommitment: xor32(p.AmountCommitment, p.MinOutCommitment),
		Timestamp:      now,
	})

	v.log.Info("dark-pool order placed",
		log.String("maker", caller.Hex()),
		log.String("side", p.Side.String()),
	)
	return nil
}

// CancelOrder cancels an open order and restores its amount commitment to
// the maker's principal
func (v *Vault) CancelOrder(caller common.Address, swapProof [32]byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.nowFn()

	pos, err := v.darkPoolGate(caller, swapProof)
	if err != nil {
		return err
	}
	order := v.getOrder(caller)
	if order == nil || order.Status != OrderOpen {
		return ErrOrderNotOpen
	}
	actionCount, err := incChecked(pos.ActionCount)
	if err != nil {
		return err
	}

	pos.EncryptedPrincipal.Commitment = order.EncryptedAmount.Commitment
	order.Status = OrderCancelled

	pos.ActionCount = actionCount
	pos.LastActionAt = now

	v.saveOrder(order)
	v.savePosition(pos)
	v.emit(SwapRecorded{
		User:           caller,
		SwapCommitment: xor32(order.EncryptedAmount.Commitment, order.MinOut),
		Timestamp:      now,
	})

	v.log.Info("dark-pool order cancelled", log.String("maker", caller.Hex()))
	return nil
}

// MatchOrder fills an open order; the price commitment becomes the maker's
// balance tag, standing in for proceeds
func (v *Vault) MatchOrder(caller common.Address, swapProof [32]byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.nowFn()

	pos, err := v.darkPoolGate(caller, swapProof)
	if err != nil {
		return err
	}
	order := v.getOrder(caller)
	if order == nil || order.Status != OrderOpen {
		return ErrOrderNotOpen
	}
	actionCount, err := incChecked(pos.ActionCount)
	if err != nil {
		return err
	}

	order.Status = OrderFilled
	pos.BalanceCommitment = order.EncryptedPrice.Commitment

	pos.ActionCount = actionCount
	pos.LastActionAt = now

	v.saveOrder(order)
	v.savePosition(pos)
	v.emit(SwapRecorded{
		User:           caller,
		SwapCommitment: xor32(order.EncryptedAmount.Commitment, order.MinOut),
		Timestamp:      now,
	})

	v.log.Info("dark-pool order filled", log.String("maker", caller.Hex()))
	return nil
}

// darkPoolGate covers the shared dark-pool preconditions
func (v *Vault) darkPoolGate(caller common.Address, swapProof [32]byte) (*Position, error) {
	if err := v.requireOperational(); err != nil {
		return nil, err
	}
	if !v.cfg.DarkPoolEnabled {
		return nil, ErrFeatureDisabled
	}
	pos, err := v.requirePosition(caller)
	if err != nil {
		return nil, err
	}
	if err := v.verifier.Verify(proof.KindSwap, swapProof); err != nil {
		return nil, ErrInvalidProof
	}
	return pos, nil
}

func xor32(a, b [32]byte) [32]byte {
	var out [32]byte
	for i := 0; i < 32; i++ {
		out[i] = a[i] ^ b[i]
	}
	return out
}
