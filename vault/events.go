// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"encoding/binary"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"
)

// EventKind tags the durable event stream
type EventKind uint8

const (
	EventDeposit EventKind = iota + 1
	EventWithdraw
	EventSwap
	EventBridge
	EventCompliance
)

func (k EventKind) String() string {
	switch k {
	case EventDeposit:
		return "deposit"
	case EventWithdraw:
		return "withdraw"
	case EventSwap:
		return "swap"
	case EventBridge:
		return "bridge"
	case EventCompliance:
		return "compliance"
	default:
		return "unknown"
	}
}

// Event is one append-only ledger event. Events carry commitments and
// nullifiers, never plaintext amounts.
type Event interface {
	Kind() EventKind
	encode() []byte
}

// DepositRecorded is emitted after a shielded deposit commits
type DepositRecorded struct {
	User       common.Address
	Commitment [32]byte
	Timestamp  uint64
}

func (DepositRecorded) Kind() EventKind { return EventDeposit }

func (e DepositRecorded) encode() []byte {
	out := make([]byte, 1+20+32+8)
	out[0] = byte(EventDeposit)
	copy(out[1:21], e.User.Bytes())
	copy(out[21:53], e.Commitment[:])
	binary.BigEndian.PutUint64(out[53:61], e.Timestamp)
	return out
}

// WithdrawRecorded is emitted after a shielded withdrawal commits
type WithdrawRecorded struct {
	User      common.Address
	Nullifier [32]byte
	Timestamp uint64
}

func (WithdrawRecorded) Kind() EventKind { return EventWithdraw }

func (e WithdrawRecorded) encode() []byte {
	out := make([]byte, 1+20+32+8)
	out[0] = byte(EventWithdraw)
	copy(out[1:21], e.User.Bytes())
	copy(out[21:53], e.Nullifier[:])
	binary.BigEndian.PutUint64(out[53:61], e.Timestamp)
	return out
}

// SwapRecorded is emitted by every swap and dark-pool transition
type SwapRecorded struct {
	User           common.Address
	SwapCommitment [32]byte
	Timestamp      uint64
}

func (SwapRecorded) Kind() EventKind { return EventSwap }

func (e SwapRecorded) encode() []byte {
	out := make([]byte, 1+20+32+8)
	out[0] = byte(EventSwap)
	copy(out[1:21], e.User.Bytes())
	copy(out[21:53], e.SwapCommitment[:])
	binary.BigEndian.PutUint64(out[53:61], e.Timestamp)
	return out
}

// BridgeRequested is emitted by every bridge transition
type BridgeRequested struct {
	User        common.Address
	DestChainID uint64
	Commitment  [32]byte
	Timestamp   uint64
}

func (BridgeRequested) Kind() EventKind { return EventBridge }

func (e BridgeRequested) encode() []byte {
	out := make([]byte, 1+20+8+32+8)
	out[0] = byte(EventBridge)
	copy(out[1:21], e.User.Bytes())
	binary.BigEndian.PutUint64(out[21:29], e.DestChainID)
	copy(out[29:61], e.Commitment[:])
	binary.BigEndian.PutUint64(out[61:69], e.Timestamp)
	return out
}

// ComplianceUpdated is emitted by every attestation transition
type ComplianceUpdated struct {
	User      common.Address
	Provider  common.Address
	RiskScore uint8
	ExpiresAt uint64
	Timestamp uint64
}

func (ComplianceUpdated) Kind() EventKind { return EventCompliance }

func (e ComplianceUpdated) encode() []byte {
	out := make([]byte, 1+20+20+1+8+8)
	out[0] = byte(EventCompliance)
	copy(out[1:21], e.User.Bytes())
	copy(out[21:41], e.Provider.Bytes())
	out[41] = e.RiskScore
	binary.BigEndian.PutUint64(out[42:50], e.ExpiresAt)
	binary.BigEndian.PutUint64(out[50:58], e.Timestamp)
	return out
}

// =========================================================================
// Durable journal
// =========================================================================

var journalHeadKey = []byte("evnt.head")

// Journal persists events append-only under monotonic sequence keys
type Journal struct {
	db  database.Database
	seq uint64
}

// NewJournal opens a journal over the database, resuming the sequence from
// a previous run
func NewJournal(db database.Database) *Journal {
	j := &Journal{db: db}
	if raw, err := db.Get(journalHeadKey); err == nil && len(raw) == 8 {
		j.seq = binary.BigEndian.Uint64(raw)
	}
	return j
}

// Append writes one event under the next sequence number
func (j *Journal) Append(ev Event) error {
	key := make([]byte, len(eventPrefix)+8)
	copy(key, eventPrefix)
	binary.BigEndian.PutUint64(key[len(eventPrefix):], j.seq)

	if err := j.db.Put(key, ev.encode()); err != nil {
		return err
	}
	j.seq++

	var head [8]byte
	binary.BigEndian.PutUint64(head[:], j.seq)
	return j.db.Put(journalHeadKey, head[:])
}

// Len returns the number of journaled events
func (j *Journal) Len() uint64 {
	return j.seq
}

// emit records an event in memory and, when configured, in the journal
func (v *Vault) emit(ev Event) {
	v.events = append(v.events, ev)
	if v.journal == nil {
		return
	}
	if err := v.journal.Append(ev); err != nil {
		v.log.Warn("event journal append failed",
			log.String("kind", ev.Kind().String()),
			log.String("err", err.Error()),
		)
	}
}

// Events returns a copy of the in-memory event stream
func (v *Vault) Events() []Event {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]Event, len(v.events))
	copy(out, v.events)
	return out
}
