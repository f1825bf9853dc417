package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/unidir/unidir/channel"
)

// Ledger is the on-chain collaborator: the already-deployed escrow
// contract, seen from one account.  Every call is fallible and may take
// a confirmation delay; none of them are retried here.  Submitting
// twice after a timeout is the caller's decision, made after re-reading
// state, never something this layer does on its own.
//
// Confirmed transitions additionally come back as events on the bus
// (DidOpen, DidDeposit, DidStartSettling, DidSettle, DidClaim), in
// whatever order the chain coughs them up.
type Ledger interface {
	// Open creates the channel with an initial deposit.  The caller
	// picks the id; the ledger rejects duplicates.
	Open(ctx context.Context, id channel.ID, receiver channel.Address,
		value *big.Int, settlementPeriod uint64, tokenContract channel.Address) error

	// Deposit adds value to an open channel.  Sender only.
	Deposit(ctx context.Context, id channel.ID, value *big.Int) error

	// StartSettling begins the settlement countdown.  Sender only.
	StartSettling(ctx context.Context, id channel.ID) error

	// Settle finalizes after the countdown has elapsed.  Sender only.
	Settle(ctx context.Context, id channel.ID) error

	// Claim redeems a signed cumulative payment and closes the channel
	// immediately.  Receiver only.
	Claim(ctx context.Context, id channel.ID, value *big.Int, sig []byte) error

	// Channel reads the channel's current on-ledger state.  Returns
	// nil when the channel doesn't exist (never did, or already
	// settled away).
	Channel(ctx context.Context, id channel.ID) (*ChannelState, error)
}

// ChannelState is what the ledger knows about one channel.
type ChannelState struct {
	Sender           channel.Address
	Receiver         channel.Address
	TokenContract    channel.Address
	Value            *big.Int
	SettlementPeriod uint64
	SettlingUntil    uint64 // 0 until settling starts
	Settling         bool
}

// Error wraps any failure out of a ledger submission or read, so
// callers can tell ledger trouble apart from protocol rejections.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ledger %s: %s", e.Op, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

func errf(op, format string, args ...interface{}) *Error {
	return &Error{Op: op, Err: fmt.Errorf(format, args...)}
}
