package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/unidir/unidir/config"
	"github.com/unidir/unidir/db/chanbolt"
	"github.com/unidir/unidir/eventbus"
	"github.com/unidir/unidir/gateway"
	"github.com/unidir/unidir/ledger"
	"github.com/unidir/unidir/logging"
	"github.com/unidir/unidir/payrpc"
)

func main() {
	fmt.Printf("unidir node v0.1\n")
	fmt.Printf("-h for list of options.\n")

	conf := config.Config{
		HomeDir:          config.DefaultHomeDirName,
		Rpcport:          config.DefaultRpcport,
		Rpchost:          config.DefaultRpchost,
		GatewayListen:    config.DefaultGatewayListen,
		SettlementPeriod: config.DefaultSettlementPeriod,
		DepositMultiple:  config.DefaultDepositMultiple,
		LogLevel:         config.DefaultLogLevel,
	}
	key := config.Setup(&conf)

	st, err := chanbolt.Open(filepath.Join(conf.HomeDir, config.DefaultDBName))
	if err != nil {
		logging.Fatal(err)
	}
	defer st.Close()

	bus := eventbus.NewEventBus()

	// In-process ledger for now; a deployment against a real chain
	// swaps this for a binding that satisfies ledger.Ledger.
	sim := ledger.NewSim(bus)

	node := newNode(key, sim, st, bus, &conf)

	go gatewayListen(node.gw, conf.GatewayListen)

	rpcl := &payrpc.PayRPC{
		Man:       node.man,
		Rcv:       node.rcv,
		Transport: gateway.NewClient(),
		OffButton: make(chan bool, 1),
	}
	go payrpc.RPCListen(rpcl, conf.Rpchost, conf.Rpcport)

	<-rpcl.OffButton
	logging.Infof("Got stop request\n")
	os.Exit(0)
}

func gatewayListen(gw *gateway.Server, addr string) {
	if err := gw.Listen(addr); err != nil {
		logging.Fatal(err)
	}
}
