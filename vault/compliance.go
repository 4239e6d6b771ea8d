// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"

	"github.com/luxfi/shield/proof"
)

// AttestationParams carries a compliance disclosure. The hash comes from
// the external compliance oracle; the ledger derives and bounds the risk
// score from it.
type AttestationParams struct {
	Hash            [32]byte
	ValidityDays    uint32
	DisclosureProof [32]byte
}

// riskScoreOf derives the bounded risk score from an attestation hash
func riskScoreOf(hash [32]byte) uint8 {
	var sum uint32
	for _, b := range hash {
		sum += uint32(b)
	}
	return uint8(sum % 100)
}

// SubmitAttestation records a first-time attestation for the caller. The
// risk score must clear the threshold and an already-valid attestation
// cannot be resubmitted.
func (v *Vault) SubmitAttestation(caller common.Address, p AttestationParams) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.nowFn()

	pos, err := v.complianceGate(caller, p.DisclosureProof)
	if err != nil {
		return err
	}
	if p.ValidityDays == 0 || p.ValidityDays > MaxValidityDays {
		return ErrInvalidValidityPeriod
	}
	if att := v.getAttestation(caller); att != nil && att.IsValid {
		return ErrAttestationValid
	}
	score := riskScoreOf(p.Hash)
	if score > MaxRiskScore {
		return ErrRiskScoreTooHigh
	}
	expiry, err := addChecked(now, uint64(p.ValidityDays)*SecondsPerDay)
	if err != nil {
		return err
	}

	att := &Attestation{
		User:       caller,
		Provider:   v.provider,
		Hash:       p.Hash,
		AttestedAt: now,
		ExpiresAt:  expiry,
		RiskScore:  score,
		IsValid:    true,
	}

	pos.ComplianceVerified = true
	pos.ComplianceExpiry = expiry
	pos.LastActionAt = now

	v.saveAttestation(att)
	v.savePosition(pos)
	v.emit(ComplianceUpdated{
		User:      caller,
		Provider:  v.provider,
		RiskScore: score,
		ExpiresAt: expiry,
		Timestamp: now,
	})

	v.log.Info("compliance attestation submitted",
		log.String("user", caller.Hex()),
		log.Int("riskScore", int(score)),
	)
	return nil
}

// VerifyAttestation re-checks validity and expiry on both the attestation
// and the position copy. The two expiries can drift only through a bug;
// checking both fails closed.
func (v *Vault) VerifyAttestation(caller common.Address, disclosureProof [32]byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.nowFn()

	pos, err := v.complianceGate(caller, disclosureProof)
	if err != nil {
		return err
	}
	att := v.getAttestation(caller)
	if att == nil || !att.IsValid {
		return ErrComplianceInvalid
	}
	if att.ExpiresAt <= now {
		return ErrComplianceExpired
	}
	if !pos.IsCompliant(now) {
		return ErrComplianceExpired
	}

	pos.LastActionAt = now
	v.savePosition(pos)
	v.emit(ComplianceUpdated{
		User:      caller,
		Provider:  att.Provider,
		RiskScore: att.RiskScore,
		ExpiresAt: att.ExpiresAt,
		Timestamp: now,
	})

	v.log.Info("compliance attestation verified", log.String("user", caller.Hex()))
	return nil
}

// RevokeAttestation invalidates a currently valid attestation and clears
// the position's compliance state
func (v *Vault) RevokeAttestation(caller common.Address, disclosureProof [32]byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.nowFn()

	pos, err := v.complianceGate(caller, disclosureProof)
	if err != nil {
		return err
	}
	att := v.getAttestation(caller)
	if att == nil || !att.IsValid {
		return ErrComplianceInvalid
	}

	att.IsValid = false

	pos.ComplianceVerified = false
	pos.ComplianceExpiry = 0
	pos.LastActionAt = now

	v.saveAttestation(att)
	v.savePosition(pos)
	v.emit(ComplianceUpdated{
		User:      caller,
		Provider:  att.Provider,
		RiskScore: att.RiskScore,
		ExpiresAt: 0,
		Timestamp: now,
	})

	v.log.Info("compliance attestation revoked", log.String("user", caller.Hex()))
	return nil
}

// RenewAttestation re-scores and re-dates an attestation that is either
// still valid or has already expired
func (v *Vault) RenewAttestation(caller common.Address, p AttestationParams) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.nowFn()

	pos, err := v.complianceGate(caller, p.DisclosureProof)
	if err != nil {
		return err
	}
	if p.ValidityDays == 0 || p.ValidityDays > MaxValidityDays {
		return ErrInvalidValidityPeriod
	}
	att := v.getAttestation(caller)
	if att == nil {
		return ErrComplianceInvalid
	}
	if !att.IsValid && att.ExpiresAt > now {
		return ErrComplianceInvalid
	}
	score := riskScoreOf(p.Hash)
	if score > MaxRiskScore {
		return ErrRiskScoreTooHigh
	}
	expiry, err := addChecked(now, uint64(p.ValidityDays)*SecondsPerDay)
	if err != nil {
		return err
	}

	att.Hash = p.Hash
	att.AttestedAt = now
	att.ExpiresAt = expiry
	att.RiskScore = score
	att.IsValid = true

	pos.ComplianceVerified = true
	pos.ComplianceExpiry = expiry
	pos.LastActionAt = now

	v.saveAttestation(att)
	v.savePosition(pos)
	v.emit(ComplianceUpdated{
		User:      caller,
		Provider:  att.Provider,
		RiskScore: score,
		ExpiresAt: expiry,
		Timestamp: now,
	})

	v.log.Info("compliance attestation renewed",
		log.String("user", caller.Hex()),
		log.Int("riskScore", int(score)),
	)
	return nil
}

// complianceGate covers the shared attestation preconditions
func (v *Vault) complianceGate(caller common.Address, disclosureProof [32]byte) (*Position, error) {
	if err := v.requireOperational(); err != nil {
		return nil, err
	}
	if !v.cfg.ComplianceEnabled {
		return nil, ErrFeatureDisabled
	}
	pos, err := v.requirePosition(caller)
	if err != nil {
		return nil, err
	}
	if err := v.verifier.Verify(proof.KindDisclosure, disclosureProof); err != nil {
		return nil, ErrInvalidProof
	}
	return pos, nil
}
