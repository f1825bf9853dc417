package manager

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/getlantern/deepcopy"

	"github.com/unidir/unidir/channel"
	"github.com/unidir/unidir/ledger"
	"github.com/unidir/unidir/logging"
	"github.com/unidir/unidir/pcutil"
	"github.com/unidir/unidir/store"
)

/*
ChannelManager is the sender side of the protocol.  It owns the local
view of every channel this account opened, builds signed payments, and
keeps the cache honest against the ledger.

Per-channel discipline: every read-modify-commit on one channel goes
through that channel's clearToSend gate.  One operation in flight per
channel, never two.  The gate also guards the in-memory reservation:
spend that has been signed away in a payment but not yet acknowledged
by the receiver.  Durable Spent only moves once the receiver acks
(SpendChannel); until then the amount is reserved so a concurrent
NextPayment can't promise the same money twice.  If delivery fails the
reservation is released and the durable state never knew about it.
*/

// DefaultSettlementPeriod is how long (seconds) the counterparty gets
// to submit a higher claim after the sender starts settling.
const DefaultSettlementPeriod = uint64(2 * 24 * 60 * 60)

// DefaultDepositMultiple sizes the opening deposit of a new channel as
// a multiple of the first price, amortizing the open transaction.
const DefaultDepositMultiple = int64(10)

const confirmPollInterval = 100 * time.Millisecond

type chanGate struct {
	clearToSend chan bool
	reserved    *big.Int // guarded by holding clearToSend
}

// ChannelManager orchestrates open/deposit/spend/close/settle for one
// sending account.
type ChannelManager struct {
	key     *btcec.PrivateKey
	account channel.Address

	ldgr ledger.Ledger
	st   store.Storage

	gateMtx sync.Mutex
	gates   map[channel.ID]*chanGate

	SettlementPeriod uint64
	DepositMultiple  int64
}

// NewChannelManager wires a manager for the account behind key.
func NewChannelManager(key *btcec.PrivateKey, ldgr ledger.Ledger,
	st store.Storage) *ChannelManager {

	return &ChannelManager{
		key:              key,
		account:          channel.PrivToAddress(key),
		ldgr:             ldgr,
		st:               st,
		gates:            map[channel.ID]*chanGate{},
		SettlementPeriod: DefaultSettlementPeriod,
		DepositMultiple:  DefaultDepositMultiple,
	}
}

// Account is the sender address this manager signs for.
func (cm *ChannelManager) Account() channel.Address {
	return cm.account
}

// gate returns the per-channel gate, making it if needed.
func (cm *ChannelManager) gate(id channel.ID) *chanGate {
	cm.gateMtx.Lock()
	g, ok := cm.gates[id]
	if !ok {
		g = &chanGate{
			clearToSend: make(chan bool, 1),
			reserved:    new(big.Int),
		}
		g.clearToSend <- true
		cm.gates[id] = g
	}
	cm.gateMtx.Unlock()
	return g
}

// lockChannel blocks until the channel is clear to operate on.
func (cm *ChannelManager) lockChannel(id channel.ID) *chanGate {
	g := cm.gate(id)
	<-g.clearToSend
	return g
}

func (g *chanGate) unlock() {
	g.clearToSend <- true
}

// OpenChannel submits an open transaction and waits for the ledger to
// confirm it before returning the new channel record.  Not retried on
// failure; the caller must re-check ledger state before trying again.
func (cm *ChannelManager) OpenChannel(ctx context.Context,
	receiver channel.Address, value *big.Int, settlementPeriod uint64,
	id *channel.ID, tokenContract channel.Address) (*channel.PaymentChannel, error) {

	var chanID channel.ID
	var err error
	if id != nil {
		chanID = *id
	} else {
		chanID, err = channel.NewRandomID()
		if err != nil {
			return nil, err
		}
	}
	if settlementPeriod == 0 {
		settlementPeriod = cm.SettlementPeriod
	}

	logging.Infof("opening channel %s to %s with %s\n",
		chanID, receiver, pcutil.WeiColor(value))

	err = cm.ldgr.Open(ctx, chanID, receiver, value, settlementPeriod, tokenContract)
	if err != nil {
		return nil, err
	}

	// wait for the open to be observable before handing the channel out
	if err = cm.waitForChannel(ctx, chanID); err != nil {
		return nil, err
	}

	g := cm.lockChannel(chanID)
	defer g.unlock()

	pc := channel.NewPaymentChannel(cm.account, receiver, chanID, value,
		settlementPeriod, tokenContract)
	if err = cm.st.Channels().Save(pc); err != nil {
		return nil, err
	}
	return copyChannel(pc)
}

func (cm *ChannelManager) waitForChannel(ctx context.Context, id channel.ID) error {
	for {
		cs, err := cm.ldgr.Channel(ctx, id)
		if err != nil {
			return err
		}
		if cs != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return &ledger.Error{Op: "open confirm", Err: ctx.Err()}
		case <-time.After(confirmPollInterval):
		}
	}
}

// Deposit puts more money into an open channel.
func (cm *ChannelManager) Deposit(ctx context.Context, id channel.ID,
	value *big.Int) error {

	g := cm.lockChannel(id)
	defer g.unlock()

	pc, err := cm.st.Channels().ByID(id)
	if err != nil {
		return err
	}
	if pc == nil {
		return channel.ErrChannelNotFound
	}
	if pc.State != channel.StateOpen {
		return channel.ErrInvalidChannelState
	}

	if err = cm.ldgr.Deposit(ctx, id, value); err != nil {
		return err
	}

	// read the confirmed total back rather than trusting our addition
	cs, err := cm.ldgr.Channel(ctx, id)
	if err != nil {
		return err
	}
	if cs != nil {
		if err = pc.ApplyDeposit(cs.Value); err != nil {
			return err
		}
	}
	logging.Infof("deposited %s into %s, value now %s\n",
		pcutil.WeiColor(value), id, pcutil.WeiColor(pc.Value))
	return cm.st.Channels().Save(pc)
}

// NextPayment builds the next signed payment on the channel.  The
// amount is reserved in memory but NOT committed: commit happens in
// SpendChannel once delivery is acknowledged, or the reservation is
// dropped by ReleasePayment if delivery fails.
func (cm *ChannelManager) NextPayment(id channel.ID, price *big.Int,
	meta string) (*channel.Payment, error) {

	g := cm.lockChannel(id)
	defer g.unlock()

	pc, err := cm.st.Channels().ByID(id)
	if err != nil {
		return nil, err
	}
	if pc == nil {
		return nil, channel.ErrChannelNotFound
	}
	if pc.State != channel.StateOpen {
		return nil, channel.ErrInvalidChannelState
	}

	// committed spend plus whatever is still in flight
	newSpent := new(big.Int).Add(pc.Spent, g.reserved)
	newSpent.Add(newSpent, price)
	if newSpent.Cmp(pc.Value) > 0 {
		logging.Warnf("payment of %s won't fit in %s: spent %s reserved %s value %s\n",
			pcutil.WeiColor(price), id, pcutil.WeiColor(pc.Spent),
			pcutil.WeiColor(g.reserved), pcutil.WeiColor(pc.Value))
		return nil, channel.ErrInsufficientFunds
	}

	sig, err := channel.SignPayment(cm.key, id, newSpent)
	if err != nil {
		return nil, err
	}

	p := &channel.Payment{
		Sender:        cm.account,
		Receiver:      pc.Receiver,
		ChanID:        id,
		ChannelValue:  new(big.Int).Set(pc.Value),
		Value:         newSpent,
		Price:         new(big.Int).Set(price),
		Meta:          meta,
		Signature:     sig,
		TokenContract: pc.TokenContract,
	}

	g.reserved = new(big.Int).Add(g.reserved, price)
	logging.Debugf("built payment %s on %s, cumulative %s\n",
		pcutil.WeiColor(price), id, pcutil.WeiColor(newSpent))
	return p, nil
}

// SpendChannel commits a delivered payment's cumulative spend into the
// local cache.  Idempotent for the same (channel, value) pair.
func (cm *ChannelManager) SpendChannel(p *channel.Payment, token channel.Token) error {
	g := cm.lockChannel(p.ChanID)
	defer g.unlock()

	pc, err := cm.st.Channels().ByID(p.ChanID)
	if err != nil {
		return err
	}
	if pc == nil {
		return channel.ErrChannelNotFound
	}

	applied := pc.Spent.Cmp(p.Value) < 0
	if err = pc.ApplySpend(p.Value); err != nil {
		return err
	}
	if applied {
		g.releaseLocked(p.Price)
		if err = cm.st.Channels().Save(pc); err != nil {
			return err
		}
	}
	if token != "" {
		logging.Infof("spend committed on %s, token %s\n", p.ChanID, token)
	}
	return nil
}

// ReleasePayment drops the reservation for a payment that never made
// it to the receiver.  Safe to call more than once only if the payment
// really was built; don't guess.
func (cm *ChannelManager) ReleasePayment(p *channel.Payment) {
	g := cm.lockChannel(p.ChanID)
	g.releaseLocked(p.Price)
	g.unlock()
}

func (g *chanGate) releaseLocked(price *big.Int) {
	g.reserved = new(big.Int).Sub(g.reserved, price)
	if g.reserved.Sign() < 0 {
		g.reserved = new(big.Int)
	}
}

// RequireOpenChannel finds an open channel to the receiver with room
// for price, or opens one funded with price times the deposit multiple.
// Reuse is always preferred: opening costs a ledger transaction.
func (cm *ChannelManager) RequireOpenChannel(ctx context.Context,
	receiver channel.Address, price *big.Int,
	tokenContract channel.Address) (*channel.PaymentChannel, error) {

	all, err := cm.st.Channels().All()
	if err != nil {
		return nil, err
	}
	for _, pc := range all {
		if pc.Sender != cm.account || pc.Receiver != receiver {
			continue
		}
		if pc.State != channel.StateOpen || pc.TokenContract != tokenContract {
			continue
		}
		room := pc.Remaining()
		g := cm.lockChannel(pc.ChanID)
		room.Sub(room, g.reserved)
		g.unlock()
		if room.Cmp(price) >= 0 {
			return copyChannel(pc)
		}
	}

	deposit := new(big.Int).Mul(price, big.NewInt(cm.DepositMultiple))
	return cm.OpenChannel(ctx, receiver, deposit, cm.SettlementPeriod,
		nil, tokenContract)
}

// CloseChannel moves the channel toward settlement.  As sender that
// means starting the settlement countdown; as receiver it means
// claiming the best payment we hold, which settles immediately.
func (cm *ChannelManager) CloseChannel(ctx context.Context, id channel.ID) error {
	g := cm.lockChannel(id)
	defer g.unlock()

	pc, err := cm.st.Channels().ByID(id)
	if err != nil {
		return err
	}
	if pc == nil {
		return channel.ErrChannelNotFound
	}
	if pc.State == channel.StateSettled {
		return channel.ErrInvalidChannelState
	}

	switch cm.account {
	case pc.Sender:
		if err = cm.ldgr.StartSettling(ctx, id); err != nil {
			return err
		}
		cs, err := cm.ldgr.Channel(ctx, id)
		if err != nil {
			return err
		}
		var until uint64
		if cs != nil {
			until = cs.SettlingUntil
		}
		if err = pc.StartSettling(until); err != nil {
			return err
		}
	case pc.Receiver:
		max, err := cm.st.Payments().FirstMaximum(id)
		if err != nil {
			return err
		}
		if max == nil {
			return channel.ErrChannelNotFound
		}
		if err = cm.ldgr.Claim(ctx, id, max.Value, max.Signature); err != nil {
			return err
		}
		pc.StartSettling(pc.SettlingUntil)
		if err = pc.Settle(); err != nil {
			return err
		}
	default:
		return channel.ErrAddressMismatch
	}
	return cm.st.Channels().Save(pc)
}

// Settle finalizes a settling channel once its deadline has passed.
// An abandoned wait costs nothing; calling again later is the same as
// never having stopped.
func (cm *ChannelManager) Settle(ctx context.Context, id channel.ID) error {
	g := cm.lockChannel(id)
	defer g.unlock()

	pc, err := cm.st.Channels().ByID(id)
	if err != nil {
		return err
	}
	if pc == nil {
		return channel.ErrChannelNotFound
	}
	if pc.State != channel.StateSettling {
		return channel.ErrInvalidChannelState
	}
	if err = cm.ldgr.Settle(ctx, id); err != nil {
		return err
	}
	if err = pc.Settle(); err != nil {
		return err
	}
	return cm.st.Channels().Save(pc)
}

// Channels lists every channel this account ever opened.
func (cm *ChannelManager) Channels() ([]*channel.PaymentChannel, error) {
	return cm.channelsWhere(func(pc *channel.PaymentChannel) bool {
		return true
	})
}

// OpenChannels lists channels still open for payment.
func (cm *ChannelManager) OpenChannels() ([]*channel.PaymentChannel, error) {
	return cm.channelsWhere(func(pc *channel.PaymentChannel) bool {
		return pc.State == channel.StateOpen
	})
}

// SettlingChannels lists channels in their settlement window.
func (cm *ChannelManager) SettlingChannels() ([]*channel.PaymentChannel, error) {
	return cm.channelsWhere(func(pc *channel.PaymentChannel) bool {
		return pc.State == channel.StateSettling
	})
}

func (cm *ChannelManager) channelsWhere(
	keep func(*channel.PaymentChannel) bool) ([]*channel.PaymentChannel, error) {

	all, err := cm.st.Channels().All()
	if err != nil {
		return nil, err
	}
	out := make([]*channel.PaymentChannel, 0, len(all))
	for _, pc := range all {
		if pc.Sender != cm.account || !keep(pc) {
			continue
		}
		cp, err := copyChannel(pc)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// ChannelByID returns a snapshot of one channel.
func (cm *ChannelManager) ChannelByID(id channel.ID) (*channel.PaymentChannel, error) {
	pc, err := cm.st.Channels().ByID(id)
	if err != nil {
		return nil, err
	}
	if pc == nil {
		return nil, channel.ErrChannelNotFound
	}
	return copyChannel(pc)
}

// copyChannel hands out snapshots so callers can't poke the cache.
func copyChannel(pc *channel.PaymentChannel) (*channel.PaymentChannel, error) {
	cp := new(channel.PaymentChannel)
	if err := deepcopy.Copy(cp, pc); err != nil {
		return nil, err
	}
	return cp, nil
}
