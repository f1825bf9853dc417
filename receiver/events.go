package receiver

import (
	"context"

	"github.com/unidir/unidir/channel"
	"github.com/unidir/unidir/eventbus"
	"github.com/unidir/unidir/ledger"
	"github.com/unidir/unidir/logging"
)

// RegisterHandlers subscribes the receiver's reconciliation handlers.
// Same idempotence rules as the sender side, plus one active move: a
// sender starting settlement is the cue to claim what we've earned
// before the window closes.
func (r *Receiver) RegisterHandlers(bus *eventbus.EventBus) {
	bus.RegisterHandler(ledger.EventDidDeposit, r.handleDidDeposit)
	bus.RegisterHandler(ledger.EventDidStartSettling, r.handleDidStartSettling)
	bus.RegisterHandler(ledger.EventDidSettle, r.handleDidSettle)
}

func (r *Receiver) handleDidDeposit(e eventbus.Event) {
	ev, ok := e.(ledger.DidDepositEvent)
	if !ok {
		return
	}
	r.reconcile(ev.ChanID, func(pc *channel.PaymentChannel) error {
		return pc.ApplyDeposit(ev.Value)
	})
}

func (r *Receiver) handleDidStartSettling(e eventbus.Event) {
	ev, ok := e.(ledger.DidStartSettlingEvent)
	if !ok {
		return
	}
	var ours bool
	r.reconcile(ev.ChanID, func(pc *channel.PaymentChannel) error {
		ours = true
		return pc.StartSettling(ev.SettlingUntil)
	})
	if !ours {
		return
	}
	claimed, err := r.defensiveClaim(context.Background(), ev.ChanID)
	if err != nil {
		logging.Errorf("claim on settling %s: %s\n", ev.ChanID, err.Error())
	} else if claimed {
		logging.Infof("claimed settling channel %s\n", ev.ChanID)
	}
}

func (r *Receiver) handleDidSettle(e eventbus.Event) {
	ev, ok := e.(ledger.DidSettleEvent)
	if !ok {
		return
	}
	r.reconcile(ev.ChanID, func(pc *channel.PaymentChannel) error {
		pc.StartSettling(pc.SettlingUntil)
		return pc.Settle()
	})
}

func (r *Receiver) reconcile(id channel.ID,
	apply func(*channel.PaymentChannel) error) {

	g := r.lockChannel(id)
	defer func() { g <- true }()

	pc, err := r.st.Channels().ByID(id)
	if err != nil {
		logging.Errorf("reconcile %s: %s\n", id, err.Error())
		return
	}
	if pc == nil || pc.Receiver != r.account {
		return
	}
	if err = apply(pc); err != nil {
		logging.Warnf("reconcile %s: %s\n", id, err.Error())
		return
	}
	if err = r.st.Channels().Save(pc); err != nil {
		logging.Errorf("reconcile save %s: %s\n", id, err.Error())
	}
}
