package ledger

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/unidir/unidir/channel"
	"github.com/unidir/unidir/eventbus"
	"github.com/unidir/unidir/logging"
)

/*
Sim is an in-process stand-in for the deployed escrow contract.  It
enforces the same gating the contract does (who may deposit, when
settle is allowed, what a claim needs) and publishes the same events on
the bus.  The daemon runs on it in standalone mode and the end-to-end
tests run on it always.
*/

type simChannel struct {
	sender           channel.Address
	receiver         channel.Address
	tokenContract    channel.Address
	value            *big.Int
	settlementPeriod uint64
	settlingUntil    uint64
	settling         bool
}

// Sim is the shared chain state.  Each party talks to it through an
// account-bound handle from Account().
type Sim struct {
	mtx   sync.Mutex
	chans map[channel.ID]*simChannel
	bus   *eventbus.EventBus

	// now is unix seconds; swappable so tests can move the clock.
	now func() uint64
}

func NewSim(bus *eventbus.EventBus) *Sim {
	return &Sim{
		chans: map[channel.ID]*simChannel{},
		bus:   bus,
		now:   func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetClock swaps the time source.  Tests use this to pass settlement
// deadlines without sleeping.
func (s *Sim) SetClock(now func() uint64) {
	s.mtx.Lock()
	s.now = now
	s.mtx.Unlock()
}

// Account returns a Ledger handle bound to one party address, the way a
// contract wrapper is bound to a signing account.
func (s *Sim) Account(addr channel.Address) Ledger {
	return &simAccount{sim: s, addr: addr}
}

type simAccount struct {
	sim  *Sim
	addr channel.Address
}

func (a *simAccount) Open(ctx context.Context, id channel.ID,
	receiver channel.Address, value *big.Int, settlementPeriod uint64,
	tokenContract channel.Address) error {

	if err := ctx.Err(); err != nil {
		return &Error{Op: "open", Err: err}
	}
	if value == nil || value.Sign() < 0 {
		return errf("open", "bad value %v", value)
	}

	s := a.sim
	s.mtx.Lock()
	if _, ok := s.chans[id]; ok {
		s.mtx.Unlock()
		return errf("open", "channel %s already exists", id)
	}
	s.chans[id] = &simChannel{
		sender:           a.addr,
		receiver:         receiver,
		tokenContract:    tokenContract,
		value:            new(big.Int).Set(value),
		settlementPeriod: settlementPeriod,
	}
	s.mtx.Unlock()

	s.bus.PublishAsync(DidOpenEvent{
		ChanID:           id,
		Sender:           a.addr,
		Receiver:         receiver,
		Value:            new(big.Int).Set(value),
		SettlementPeriod: settlementPeriod,
		TokenContract:    tokenContract,
	})
	return nil
}

func (a *simAccount) Deposit(ctx context.Context, id channel.ID, value *big.Int) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: "deposit", Err: err}
	}
	if value == nil || value.Sign() <= 0 {
		return errf("deposit", "bad value %v", value)
	}

	s := a.sim
	s.mtx.Lock()
	ch, ok := s.chans[id]
	if !ok {
		s.mtx.Unlock()
		return errf("deposit", "no channel %s", id)
	}
	if ch.settling {
		s.mtx.Unlock()
		return errf("deposit", "channel %s is settling", id)
	}
	if ch.sender != a.addr {
		s.mtx.Unlock()
		return errf("deposit", "only sender may deposit on %s", id)
	}
	ch.value = new(big.Int).Add(ch.value, value)
	total := new(big.Int).Set(ch.value)
	s.mtx.Unlock()

	s.bus.PublishAsync(DidDepositEvent{ChanID: id, Value: total})
	return nil
}

func (a *simAccount) StartSettling(ctx context.Context, id channel.ID) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: "startSettling", Err: err}
	}

	s := a.sim
	s.mtx.Lock()
	ch, ok := s.chans[id]
	if !ok {
		s.mtx.Unlock()
		return errf("startSettling", "no channel %s", id)
	}
	if ch.settling {
		s.mtx.Unlock()
		return errf("startSettling", "channel %s already settling", id)
	}
	if ch.sender != a.addr {
		s.mtx.Unlock()
		return errf("startSettling", "only sender may start settling %s", id)
	}
	ch.settling = true
	ch.settlingUntil = s.now() + ch.settlementPeriod
	until := ch.settlingUntil
	s.mtx.Unlock()

	s.bus.PublishAsync(DidStartSettlingEvent{ChanID: id, SettlingUntil: until})
	return nil
}

func (a *simAccount) Settle(ctx context.Context, id channel.ID) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: "settle", Err: err}
	}

	s := a.sim
	s.mtx.Lock()
	ch, ok := s.chans[id]
	if !ok {
		s.mtx.Unlock()
		return errf("settle", "no channel %s", id)
	}
	if ch.sender != a.addr {
		s.mtx.Unlock()
		return errf("settle", "only sender may settle %s", id)
	}
	if !ch.settling {
		s.mtx.Unlock()
		return errf("settle", "channel %s is not settling", id)
	}
	if s.now() < ch.settlingUntil {
		s.mtx.Unlock()
		return errf("settle", "channel %s settles at %d", id, ch.settlingUntil)
	}
	delete(s.chans, id)
	s.mtx.Unlock()

	s.bus.PublishAsync(DidSettleEvent{ChanID: id})
	return nil
}

func (a *simAccount) Claim(ctx context.Context, id channel.ID,
	value *big.Int, sig []byte) error {

	if err := ctx.Err(); err != nil {
		return &Error{Op: "claim", Err: err}
	}
	if value == nil || value.Sign() < 0 {
		return errf("claim", "bad value %v", value)
	}

	s := a.sim
	s.mtx.Lock()
	ch, ok := s.chans[id]
	if !ok {
		s.mtx.Unlock()
		return errf("claim", "no channel %s", id)
	}
	if ch.receiver != a.addr {
		s.mtx.Unlock()
		return errf("claim", "only receiver may claim %s", id)
	}
	signer, err := channel.RecoverSigner(id, value, sig)
	if err != nil || signer != ch.sender {
		s.mtx.Unlock()
		return errf("claim", "signature on %s does not recover to sender", id)
	}
	paid := value
	if paid.Cmp(ch.value) > 0 {
		// can't take out more than was ever put in
		paid = ch.value
	}
	paid = new(big.Int).Set(paid)
	delete(s.chans, id)
	s.mtx.Unlock()

	logging.Infof("sim ledger: claim of %s on %s\n", paid, id)
	s.bus.PublishAsync(DidClaimEvent{ChanID: id, Value: paid})
	s.bus.PublishAsync(DidSettleEvent{ChanID: id})
	return nil
}

func (a *simAccount) Channel(ctx context.Context, id channel.ID) (*ChannelState, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: "read", Err: err}
	}

	s := a.sim
	s.mtx.Lock()
	defer s.mtx.Unlock()
	ch, ok := s.chans[id]
	if !ok {
		return nil, nil
	}
	return &ChannelState{
		Sender:           ch.sender,
		Receiver:         ch.receiver,
		TokenContract:    ch.tokenContract,
		Value:            new(big.Int).Set(ch.value),
		SettlementPeriod: ch.settlementPeriod,
		SettlingUntil:    ch.settlingUntil,
		Settling:         ch.settling,
	}, nil
}
