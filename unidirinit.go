package main

import (
	"github.com/btcsuite/btcd/btcec"

	"github.com/unidir/unidir/channel"
	"github.com/unidir/unidir/config"
	"github.com/unidir/unidir/eventbus"
	"github.com/unidir/unidir/gateway"
	"github.com/unidir/unidir/ledger"
	"github.com/unidir/unidir/manager"
	"github.com/unidir/unidir/receiver"
	"github.com/unidir/unidir/store"
)

// node is the fully wired process: the sender and receiver halves
// share one key, one storage handle, and one ledger view.
type node struct {
	man *manager.ChannelManager
	rcv *receiver.Receiver
	gw  *gateway.Server
}

// newNode wires manager, receiver, and gateway onto the shared
// infrastructure and subscribes both halves to ledger events.
func newNode(key *btcec.PrivateKey, sim *ledger.Sim, st store.Storage,
	bus *eventbus.EventBus, conf *config.Config) *node {

	acct := sim.Account(channel.PrivToAddress(key))

	man := manager.NewChannelManager(key, acct, st)
	if conf.SettlementPeriod != 0 {
		man.SettlementPeriod = conf.SettlementPeriod
	}
	if conf.DepositMultiple != 0 {
		man.DepositMultiple = conf.DepositMultiple
	}
	man.RegisterHandlers(bus)

	rcv := receiver.NewReceiver(key, acct, st)
	rcv.RegisterHandlers(bus)

	return &node{
		man: man,
		rcv: rcv,
		gw:  gateway.NewServer(rcv),
	}
}
