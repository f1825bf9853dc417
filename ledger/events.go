package ledger

import (
	"math/big"

	"github.com/unidir/unidir/channel"
)

// Event names, matching the contract's log topics.
const (
	EventDidOpen          = "DidOpen"
	EventDidDeposit       = "DidDeposit"
	EventDidStartSettling = "DidStartSettling"
	EventDidSettle        = "DidSettle"
	EventDidClaim         = "DidClaim"
)

// DidOpenEvent confirms channel creation.
type DidOpenEvent struct {
	ChanID           channel.ID
	Sender           channel.Address
	Receiver         channel.Address
	Value            *big.Int
	SettlementPeriod uint64
	TokenContract    channel.Address
}

func (DidOpenEvent) Name() string { return EventDidOpen }

// DidDepositEvent confirms a deposit.  Value is the post-deposit total,
// not the increment, so handling a duplicate is harmless.
type DidDepositEvent struct {
	ChanID channel.ID
	Value  *big.Int
}

func (DidDepositEvent) Name() string { return EventDidDeposit }

// DidStartSettlingEvent confirms the settlement countdown started.
type DidStartSettlingEvent struct {
	ChanID        channel.ID
	SettlingUntil uint64
}

func (DidStartSettlingEvent) Name() string { return EventDidStartSettling }

// DidSettleEvent confirms the channel is finished and funds distributed.
type DidSettleEvent struct {
	ChanID channel.ID
}

func (DidSettleEvent) Name() string { return EventDidSettle }

// DidClaimEvent confirms the receiver cashed out a signed payment.
type DidClaimEvent struct {
	ChanID channel.ID
	Value  *big.Int
}

func (DidClaimEvent) Name() string { return EventDidClaim }
