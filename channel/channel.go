package channel

import (
	"fmt"
	"math/big"
)

/*
A PaymentChannel is the local picture of one on-ledger escrow between a
sender and a receiver.  The ledger is authoritative; this record is a
cache that gets reconciled from ledger events and from accepted payments.

Lifecycle is strictly one-way:

	Open -> Settling -> Settled

Deposits only land while Open.  Payments only move Spent while Open.
Once Settled is observed the record is dead; nothing mutates it again.
*/

// State is the channel lifecycle state.
type State uint8

const (
	StateOpen     State = 0
	StateSettling State = 1
	StateSettled  State = 2
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateSettling:
		return "settling"
	case StateSettled:
		return "settled"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// PaymentChannel is keyed by ChanID.  Value and Spent are non-negative
// and Spent never exceeds Value.
type PaymentChannel struct {
	Sender   Address
	Receiver Address
	ChanID   ID

	Value *big.Int // total deposited; only grows while open
	Spent *big.Int // cumulative redeemed; only grows while open

	State State

	// TokenContract names the asset the channel carries.  Zero means
	// the ledger's native denomination.
	TokenContract Address

	// SettlementPeriod is how long the sender must wait between
	// startSettling and settle.  SettlingUntil is the absolute deadline
	// once settling has started; 0 before that.
	SettlementPeriod uint64
	SettlingUntil    uint64
}

// NewPaymentChannel builds an Open channel record.  Copies the amounts.
func NewPaymentChannel(sender, receiver Address, id ID, value *big.Int,
	settlementPeriod uint64, tokenContract Address) *PaymentChannel {

	return &PaymentChannel{
		Sender:           sender,
		Receiver:         receiver,
		ChanID:           id,
		Value:            new(big.Int).Set(value),
		Spent:            new(big.Int),
		State:            StateOpen,
		TokenContract:    tokenContract,
		SettlementPeriod: settlementPeriod,
	}
}

// FromPayment implies a channel record from the first payment seen on an
// unknown channel.  The payment defines the baseline: the claimed total
// is taken as the deposited value and its cumulative value as spent.
func FromPayment(p *Payment) *PaymentChannel {
	return &PaymentChannel{
		Sender:        p.Sender,
		Receiver:      p.Receiver,
		ChanID:        p.ChanID,
		Value:         new(big.Int).Set(p.ChannelValue),
		Spent:         new(big.Int).Set(p.Value),
		State:         StateOpen,
		TokenContract: p.TokenContract,
	}
}

// CheckInvariant verifies 0 <= spent <= value.  Call after every mutation.
func (pc *PaymentChannel) CheckInvariant() error {
	if pc.Value == nil || pc.Spent == nil {
		return fmt.Errorf("channel %s has nil amounts", pc.ChanID)
	}
	if pc.Value.Sign() < 0 || pc.Spent.Sign() < 0 {
		return fmt.Errorf("channel %s has negative amounts", pc.ChanID)
	}
	if pc.Spent.Cmp(pc.Value) > 0 {
		return fmt.Errorf("channel %s spent %s exceeds value %s",
			pc.ChanID, pc.Spent, pc.Value)
	}
	return nil
}

// Remaining is how much is still spendable: value - spent.
func (pc *PaymentChannel) Remaining() *big.Int {
	return new(big.Int).Sub(pc.Value, pc.Spent)
}

// ApplySpend raises cumulative spend to newSpent.  Monotonic and bounded
// by Value; re-applying an already-recorded spend is a no-op so replayed
// commits are safe.
func (pc *PaymentChannel) ApplySpend(newSpent *big.Int) error {
	if pc.State != StateOpen {
		return ErrInvalidChannelState
	}
	if newSpent.Cmp(pc.Spent) <= 0 {
		// already at or past this point; nothing to do
		return nil
	}
	if newSpent.Cmp(pc.Value) > 0 {
		return ErrInsufficientFunds
	}
	pc.Spent = new(big.Int).Set(newSpent)
	return nil
}

// ApplyDeposit raises total value to newTotal.  Ledger DidDeposit events
// carry the post-deposit total, so replaying one is a no-op.
func (pc *PaymentChannel) ApplyDeposit(newTotal *big.Int) error {
	if pc.State != StateOpen {
		return ErrInvalidChannelState
	}
	if newTotal.Cmp(pc.Value) <= 0 {
		return nil
	}
	pc.Value = new(big.Int).Set(newTotal)
	return nil
}

// StartSettling moves Open -> Settling with the given deadline.
// Re-observing the same transition is a no-op.
func (pc *PaymentChannel) StartSettling(until uint64) error {
	switch pc.State {
	case StateOpen:
		pc.State = StateSettling
		pc.SettlingUntil = until
		return nil
	case StateSettling:
		return nil
	}
	return ErrInvalidChannelState
}

// Settle moves Settling -> Settled.  Terminal; a settled channel never
// comes back.  Re-observing settlement is a no-op.
func (pc *PaymentChannel) Settle() error {
	switch pc.State {
	case StateSettling:
		pc.State = StateSettled
		return nil
	case StateSettled:
		return nil
	}
	return ErrInvalidChannelState
}

func (pc *PaymentChannel) String() string {
	return fmt.Sprintf("chan %s %s->%s value %s spent %s %s",
		pc.ChanID, pc.Sender, pc.Receiver, pc.Value, pc.Spent, pc.State)
}
