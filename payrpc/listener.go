package payrpc

import (
	"fmt"
	"net/http"
	"net/rpc"
	"net/rpc/jsonrpc"

	"golang.org/x/net/websocket"

	"github.com/unidir/unidir/logging"
)

/*
Remote Procedure Calls
RPCs are how people tell the node what to do: buy, open, close, query.
JSON-RPC over a websocket, one connection per client.
*/

func serveWS(ws *websocket.Conn) {
	jsonrpc.ServeConn(ws)
}

// RPCListen registers the RPC surface and serves it forever.
func RPCListen(rpcl *PayRPC, host string, port uint16) {
	rpc.Register(rpcl)

	listenString := fmt.Sprintf("%s:%d", host, port)

	http.Handle("/ws", websocket.Handler(serveWS))

	logging.Infof("rpc listening on %s\n", listenString)
	logging.Fatal(http.ListenAndServe(listenString, nil))
}
