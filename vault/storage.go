// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"encoding/binary"

	"github.com/luxfi/geth/common"
)

// Per-record field suffixes. Every record is a fixed set of 32-byte slots
// under the ledger account, addressed by BLAKE3(prefix || recordKey || field).

func fieldKey(prefix []byte, key [32]byte, field string) common.Hash {
	return makeStorageKey(prefix, append(key[:], []byte(field)...))
}

func (v *Vault) readSlot(prefix []byte, key [32]byte, field string) common.Hash {
	return v.state.GetState(shieldVaultAddr, fieldKey(prefix, key, field))
}

func (v *Vault) writeSlot(prefix []byte, key [32]byte, field string, value common.Hash) {
	v.state.SetState(shieldVaultAddr, fieldKey(prefix, key, field), value)
}

func addressSlot(addr common.Address) common.Hash {
	var h common.Hash
	copy(h[12:], addr.Bytes())
	return h
}

// =========================================================================
// Ledger aggregates
// =========================================================================

// saveLedger persists the mutable vault-level state
func (v *Vault) saveLedger() {
	var init common.Hash
	binary.BigEndian.PutUint64(init[0:8], v.cfg.InitializedAt)
	v.writeSlot(ledgerPrefix, [32]byte{}, "init", init)

	var aggr common.Hash
	binary.BigEndian.PutUint64(aggr[0:8], v.cfg.TotalShieldedTVL)
	binary.BigEndian.PutUint64(aggr[8:16], v.cfg.TotalPositions)
	binary.BigEndian.PutUint16(aggr[16:18], v.cfg.CurrentYieldBps)
	binary.BigEndian.PutUint64(aggr[18:26], v.cfg.LastYieldUpdate)
	var status byte
	if v.cfg.Paused {
		status |= 1
	}
	if v.cfg.EmergencyMode {
		status |= 2
	}
	if v.cfg.ComplianceRequired {
		status |= 4
	}
	aggr[26] = status
	v.writeSlot(ledgerPrefix, [32]byte{}, "aggr", aggr)

	var fees common.Hash
	binary.BigEndian.PutUint16(fees[0:2], v.cfg.DepositFeeBps)
	binary.BigEndian.PutUint16(fees[2:4], v.cfg.WithdrawalFeeBps)
	binary.BigEndian.PutUint16(fees[4:6], v.cfg.LendingFeeBps)
	binary.BigEndian.PutUint16(fees[6:8], v.cfg.SwapFeeBps)
	binary.BigEndian.PutUint16(fees[8:10], v.cfg.BridgeFeeBps)
	var flags byte
	if v.cfg.ConfidentialComputeEnabled {
		flags |= 1
	}
	if v.cfg.PrivateTransferEnabled {
		flags |= 2
	}
	if v.cfg.DarkPoolEnabled {
		flags |= 4
	}
	if v.cfg.LendingEnabled {
		flags |= 8
	}
	if v.cfg.BridgeEnabled {
		flags |= 16
	}
	if v.cfg.SwapEnabled {
		flags |= 32
	}
	if v.cfg.ComplianceEnabled {
		flags |= 64
	}
	fees[10] = flags
	v.writeSlot(ledgerPrefix, [32]byte{}, "fees", fees)
}

// restoreLedger reloads aggregates left by a previous instance, if any
func (v *Vault) restoreLedger() {
	init := v.readSlot(ledgerPrefix, [32]byte{}, "init")
	initializedAt := binary.BigEndian.Uint64(init[0:8])
	if initializedAt == 0 {
		return
	}
	v.cfg.InitializedAt = initializedAt

	aggr := v.readSlot(ledgerPrefix, [32]byte{}, "aggr")
	v.cfg.TotalShieldedTVL = binary.BigEndian.Uint64(aggr[0:8])
	v.cfg.TotalPositions = binary.BigEndian.Uint64(aggr[8:16])
	v.cfg.CurrentYieldBps = binary.BigEndian.Uint16(aggr[16:18])
	v.cfg.LastYieldUpdate = binary.BigEndian.Uint64(aggr[18:26])
	v.cfg.Paused = aggr[26]&1 != 0
	v.cfg.EmergencyMode = aggr[26]&2 != 0
	v.cfg.ComplianceRequired = aggr[26]&4 != 0

	fees := v.readSlot(ledgerPrefix, [32]byte{}, "fees")
	v.cfg.DepositFeeBps = binary.BigEndian.Uint16(fees[0:2])
	v.cfg.WithdrawalFeeBps = binary.BigEndian.Uint16(fees[2:4])
	v.cfg.LendingFeeBps = binary.BigEndian.Uint16(fees[4:6])
	v.cfg.SwapFeeBps = binary.BigEndian.Uint16(fees[6:8])
	v.cfg.BridgeFeeBps = binary.BigEndian.Uint16(fees[8:10])
	v.cfg.ConfidentialComputeEnabled = fees[10]&1 != 0
	v.cfg.PrivateTransferEnabled = fees[10]&2 != 0
	v.cfg.DarkPoolEnabled = fees[10]&4 != 0
	v.cfg.LendingEnabled = fees[10]&8 != 0
	v.cfg.BridgeEnabled = fees[10]&16 != 0
	v.cfg.SwapEnabled = fees[10]&32 != 0
	v.cfg.ComplianceEnabled = fees[10]&64 != 0
}

// =========================================================================
// Positions
// =========================================================================

// getPosition retrieves a position from cache or storage
func (v *Vault) getPosition(owner common.Address) *Position {
	key := v.recordKey(owner)
	if pos, ok := v.positions[key]; ok {
		return pos
	}

	ownerSlot := v.readSlot(positionPrefix, key, "ownr")
	if ownerSlot == (common.Hash{}) {
		return nil
	}

	pos := &Position{Owner: common.BytesToAddress(ownerSlot[12:])}

	pos.EncryptedPrincipal.Handle = v.readSlot(positionPrefix, key, "prh")
	pos.EncryptedPrincipal.Commitment = v.readSlot(positionPrefix, key, "prc")
	pos.EncryptedYield.Handle = v.readSlot(positionPrefix, key, "ylh")
	pos.EncryptedYield.Commitment = v.readSlot(positionPrefix, key, "ylc")
	pos.LoanLiability.Handle = v.readSlot(positionPrefix, key, "llh")
	pos.LoanLiability.Commitment = v.readSlot(positionPrefix, key, "llc")
	pos.BalanceCommitment = v.readSlot(positionPrefix, key, "balc")
	pos.Nullifier = v.readSlot(positionPrefix, key, "null")

	meta := v.readSlot(positionPrefix, key, "meta")
	pos.HasActiveLoan = meta[0]&1 != 0
	pos.HasPendingBridge = meta[0]&2 != 0
	pos.ComplianceVerified = meta[0]&4 != 0
	pos.DepositCount = binary.BigEndian.Uint32(meta[4:8])
	pos.WithdrawalCount = binary.BigEndian.Uint32(meta[8:12])
	pos.ActionCount = binary.BigEndian.Uint32(meta[12:16])

	times := v.readSlot(positionPrefix, key, "time")
	pos.CreatedAt = binary.BigEndian.Uint64(times[0:8])
	pos.LastDepositAt = binary.BigEndian.Uint64(times[8:16])
	pos.LastActionAt = binary.BigEndian.Uint64(times[16:24])
	pos.ComplianceExpiry = binary.BigEndian.Uint64(times[24:32])

	v.positions[key] = pos
	return pos
}

// savePosition writes a position to cache and storage
func (v *Vault) savePosition(pos *Position) {
	key := v.recordKey(pos.Owner)
	v.positions[key] = pos

	v.writeSlot(positionPrefix, key, "ownr", addressSlot(pos.Owner))
	v.writeSlot(positionPrefix, key, "prh", pos.EncryptedPrincipal.Handle)
	v.writeSlot(positionPrefix, key, "prc", pos.EncryptedPrincipal.Commitment)
	v.writeSlot(positionPrefix, key, "ylh", pos.EncryptedYield.Handle)
	v.writeSlot(positionPrefix, key, "ylc", pos.EncryptedYield.Commitment)
	v.writeSlot(positionPrefix, key, "llh", pos.LoanLiability.Handle)
	v.writeSlot(positionPrefix, key, "llc", pos.LoanLiability.Commitment)
	v.writeSlot(positionPrefix, key, "balc", pos.BalanceCommitment)
	v.writeSlot(positionPrefix, key, "null", pos.Nullifier)

	var meta common.Hash
	if pos.HasActiveLoan {
		meta[0] |= 1
	}
	if pos.HasPendingBridge {
		meta[0] |= 2
	}
	if pos.ComplianceVerified {
		meta[0] |= 4
	}
	binary.BigEndian.PutUint32(meta[4:8], pos.DepositCount)
	binary.BigEndian.PutUint32(meta[8:12], pos.WithdrawalCount)
	binary.BigEndian.PutUint32(meta[12:16], pos.ActionCount)
	v.writeSlot(positionPrefix, key, "meta", meta)

	var times common.Hash
	binary.BigEndian.PutUint64(times[0:8], pos.CreatedAt)
	binary.BigEndian.PutUint64(times[8:16], pos.LastDepositAt)
	binary.BigEndian.PutUint64(times[16:24], pos.LastActionAt)
	binary.BigEndian.PutUint64(times[24:32], pos.ComplianceExpiry)
	v.writeSlot(positionPrefix, key, "time", times)
}

// =========================================================================
// Attestations
// =========================================================================

func (v *Vault) getAttestation(user common.Address) *Attestation {
	key := v.recordKey(user)
	if att, ok := v.attestations[key]; ok {
		return att
	}

	userSlot := v.readSlot(attestationPrefix, key, "user")
	if userSlot == (common.Hash{}) {
		return nil
	}

	att := &Attestation{User: common.BytesToAddress(userSlot[12:])}
	provSlot := v.readSlot(attestationPrefix, key, "prov")
	att.Provider = common.BytesToAddress(provSlot[12:])
	att.Hash = v.readSlot(attestationPrefix, key, "hash")

	meta := v.readSlot(attestationPrefix, key, "meta")
	att.RiskScore = meta[0]
	att.IsValid = meta[1] != 0

	times := v.readSlot(attestationPrefix, key, "time")
	att.AttestedAt = binary.BigEndian.Uint64(times[0:8])
	att.ExpiresAt = binary.BigEndian.Uint64(times[8:16])

	v.attestations[key] = att
	return att
}

func (v *Vault) saveAttestation(att *Attestation) {
	key := v.recordKey(att.User)
	v.attestations[key] = att

	v.writeSlot(attestationPrefix, key, "user", addressSlot(att.User))
	v.writeSlot(attestationPrefix, key, "prov", addressSlot(att.Provider))
	v.writeSlot(attestationPrefix, key, "hash", att.Hash)

	var meta common.Hash
	meta[0] = att.RiskScore
	if att.IsValid {
		meta[1] = 1
	}
	v.writeSlot(attestationPrefix, key, "meta", meta)

	var times common.Hash
	binary.BigEndian.PutUint64(times[0:8], att.AttestedAt)
	binary.BigEndian.PutUint64(times[8:16], att.ExpiresAt)
	v.writeSlot(attestationPrefix, key, "time", times)
}

// =========================================================================
// Loans
// =========================================================================

func (v *Vault) getLoan(borrower common.Address) *Loan {
	key := v.recordKey(borrower)
	if loan, ok := v.loans[key]; ok {
		return loan
	}

	borrowerSlot := v.readSlot(loanPrefix, key, "borw")
	if borrowerSlot == (common.Hash{}) {
		return nil
	}

	loan := &Loan{Borrower: common.BytesToAddress(borrowerSlot[12:])}
	loan.EncryptedCollateral.Handle = v.readSlot(loanPrefix, key, "clh")
	loan.EncryptedCollateral.Commitment = v.readSlot(loanPrefix, key, "clc")
	loan.EncryptedBorrow.Handle = v.readSlot(loanPrefix, key, "boh")
	loan.EncryptedBorrow.Commitment = v.readSlot(loanPrefix, key, "boc")

	meta := v.readSlot(loanPrefix, key, "meta")
	loan.InterestRateBps = binary.BigEndian.Uint16(meta[0:2])
	loan.LiquidationThresholdBps = binary.BigEndian.Uint16(meta[2:4])
	loan.IsActive = meta[4] != 0

	times := v.readSlot(loanPrefix, key, "time")
	loan.OriginatedAt = binary.BigEndian.Uint64(times[0:8])
	loan.LastAccrualAt = binary.BigEndian.Uint64(times[8:16])

	v.loans[key] = loan
	return loan
}

func (v *Vault) saveLoan(loan *Loan) {
	key := v.recordKey(loan.Borrower)
	v.loans[key] = loan

	v.writeSlot(loanPrefix, key, "borw", addressSlot(loan.Borrower))
	v.writeSlot(loanPrefix, key, "clh", loan.EncryptedCollateral.Handle)
	v.writeSlot(loanPrefix, key, "clc", loan.EncryptedCollateral.Commitment)
	v.writeSlot(loanPrefix, key, "boh", loan.EncryptedBorrow.Handle)
	v.writeSlot(loanPrefix, key, "boc", loan.EncryptedBorrow.Commitment)

	var meta common.Hash
	binary.BigEndian.PutUint16(meta[0:2], loan.InterestRateBps)
	binary.BigEndian.PutUint16(meta[2:4], loan.LiquidationThresholdBps)
	if loan.IsActive {
		meta[4] = 1
	}
	v.writeSlot(loanPrefix, key, "meta", meta)

	var times common.Hash
	binary.BigEndian.PutUint64(times[0:8], loan.OriginatedAt)
	binary.BigEndian.PutUint64(times[8:16], loan.LastAccrualAt)
	v.writeSlot(loanPrefix, key, "time", times)
}

// =========================================================================
// Dark-pool orders
// =========================================================================

func (v *Vault) getOrder(maker common.Address) *Order {
	key := v.recordKey(maker)
	if order, ok := v.orders[key]; ok {
		return order
	}

	makerSlot := v.readSlot(orderPrefix, key, "makr")
	if makerSlot == (common.Hash{}) {
		return nil
	}

	order := &Order{Maker: common.BytesToAddress(makerSlot[12:])}
	order.EncryptedAmount.Handle = v.readSlot(orderPrefix, key, "oah")
	order.EncryptedAmount.Commitment = v.readSlot(orderPrefix, key, "oac")
	order.EncryptedPrice.Handle = v.readSlot(orderPrefix, key, "oph")
	order.EncryptedPrice.Commitment = v.readSlot(orderPrefix, key, "opc")
	order.MinOut = v.readSlot(orderPrefix, key, "omin")

	meta := v.readSlot(orderPrefix, key, "meta")
	order.Side = OrderSide(meta[0])
	order.Status = OrderStatus(meta[1])

	times := v.readSlot(orderPrefix, key, "time")
	order.CreatedAt = binary.BigEndian.Uint64(times[0:8])

	v.orders[key] = order
	return order
}

func (v *Vault) saveOrder(order *Order) {
	key := v.recordKey(order.Maker)
	v.orders[key] = order

	v.writeSlot(orderPrefix, key, "makr", addressSlot(order.Maker))
	v.writeSlot(orderPrefix, key, "oah", order.EncryptedAmount.Handle)
	v.writeSlot(orderPrefix, key, "oac", order.EncryptedAmount.Commitment)
	v.writeSlot(orderPrefix, key, "oph", order.EncryptedPrice.Handle)
	v.writeSlot(orderPrefix, key, "opc", order.EncryptedPrice.Commitment)
	v.writeSlot(orderPrefix, key, "omin", order.MinOut)

	var meta common.Hash
	meta[0] = byte(order.Side)
	meta[1] = byte(order.Status)
	v.writeSlot(orderPrefix, key, "meta", meta)

	var times common.Hash
	binary.BigEndian.PutUint64(times[0:8], order.CreatedAt)
	v.writeSlot(orderPrefix, key, "time", times)
}

// =========================================================================
// Bridge requests
// =========================================================================

func (v *Vault) getBridge(user common.Address) *BridgeRequest {
	key := v.recordKey(user)
	if req, ok := v.bridges[key]; ok {
		return req
	}

	userSlot := v.readSlot(bridgePrefix, key, "busr")
	if userSlot == (common.Hash{}) {
		return nil
	}

	req := &BridgeRequest{User: common.BytesToAddress(userSlot[12:])}
	req.AmountCommitment = v.readSlot(bridgePrefix, key, "bcom")

	meta := v.readSlot(bridgePrefix, key, "meta")
	req.Status = BridgeStatus(meta[0])
	req.DestChainID = binary.BigEndian.Uint64(meta[8:16])

	times := v.readSlot(bridgePrefix, key, "time")
	req.CreatedAt = binary.BigEndian.Uint64(times[0:8])

	v.bridges[key] = req
	return req
}

func (v *Vault) saveBridge(req *BridgeRequest) {
	key := v.recordKey(req.User)
	v.bridges[key] = req

	v.writeSlot(bridgePrefix, key, "busr", addressSlot(req.User))
	v.writeSlot(bridgePrefix, key, "bcom", req.AmountCommitment)

	var meta common.Hash
	meta[0] = byte(req.Status)
	binary.BigEndian.PutUint64(meta[8:16], req.DestChainID)
	v.writeSlot(bridgePrefix, key, "meta", meta)

	var times common.Hash
	binary.BigEndian.PutUint64(times[0:8], req.CreatedAt)
	v.writeSlot(bridgePrefix, key, "time", times)
}
