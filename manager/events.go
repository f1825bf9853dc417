package manager

import (
	"github.com/unidir/unidir/channel"
	"github.com/unidir/unidir/eventbus"
	"github.com/unidir/unidir/ledger"
	"github.com/unidir/unidir/logging"
)

/*
Reconciliation: the ledger's event stream is authoritative, so every
handler here folds a ledger fact into the local cache.  Events can
arrive late, twice, or out of order; all the channel mutators are
no-ops on replay, so folding is just "apply and save".
*/

// RegisterHandlers subscribes the manager's reconciliation handlers.
func (cm *ChannelManager) RegisterHandlers(bus *eventbus.EventBus) {
	bus.RegisterHandler(ledger.EventDidDeposit, cm.handleDidDeposit)
	bus.RegisterHandler(ledger.EventDidStartSettling, cm.handleDidStartSettling)
	bus.RegisterHandler(ledger.EventDidSettle, cm.handleDidSettle)
	bus.RegisterHandler(ledger.EventDidClaim, cm.handleDidClaim)
}

func (cm *ChannelManager) handleDidDeposit(e eventbus.Event) {
	ev, ok := e.(ledger.DidDepositEvent)
	if !ok {
		return
	}
	cm.reconcile(ev.ChanID, func(pc *channel.PaymentChannel) error {
		return pc.ApplyDeposit(ev.Value)
	})
}

func (cm *ChannelManager) handleDidStartSettling(e eventbus.Event) {
	ev, ok := e.(ledger.DidStartSettlingEvent)
	if !ok {
		return
	}
	cm.reconcile(ev.ChanID, func(pc *channel.PaymentChannel) error {
		return pc.StartSettling(ev.SettlingUntil)
	})
}

func (cm *ChannelManager) handleDidSettle(e eventbus.Event) {
	ev, ok := e.(ledger.DidSettleEvent)
	if !ok {
		return
	}
	cm.reconcile(ev.ChanID, func(pc *channel.PaymentChannel) error {
		// settle observed without a local settling record means we
		// missed the start; force the transition so state converges
		pc.StartSettling(pc.SettlingUntil)
		return pc.Settle()
	})
}

func (cm *ChannelManager) handleDidClaim(e eventbus.Event) {
	ev, ok := e.(ledger.DidClaimEvent)
	if !ok {
		return
	}
	cm.reconcile(ev.ChanID, func(pc *channel.PaymentChannel) error {
		pc.ApplySpend(ev.Value)
		pc.StartSettling(pc.SettlingUntil)
		return pc.Settle()
	})
}

func (cm *ChannelManager) reconcile(id channel.ID,
	apply func(*channel.PaymentChannel) error) {

	g := cm.lockChannel(id)
	defer g.unlock()

	pc, err := cm.st.Channels().ByID(id)
	if err != nil {
		logging.Errorf("reconcile %s: %s\n", id, err.Error())
		return
	}
	if pc == nil {
		// not our channel, nothing to fold
		return
	}
	if err = apply(pc); err != nil {
		logging.Warnf("reconcile %s: %s\n", id, err.Error())
		return
	}
	if err = cm.st.Channels().Save(pc); err != nil {
		logging.Errorf("reconcile save %s: %s\n", id, err.Error())
	}
}
