package main

import (
	"flag"
	"fmt"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/net/websocket"

	"github.com/unidir/unidir/logging"
	"github.com/unidir/unidir/pcutil"
)

/*
Unidir-AF

A text mode interface to a unidir node.  Connects over jsonrpc and
tells the node what to do: buy things, open and close channels, check
balances.
*/

const (
	homeDirName     = ".unidir"
	historyFilename = "unidir-af.history"
)

type afClient struct {
	con       string
	verbosity int
	homeDir   string
	rpccon    *rpc.Client
}

type Command struct {
	Format           string
	Description      string
	ShortDescription string
}

func setConfig(ac *afClient) {
	conptr := flag.String("con", "localhost:8001", "host:port to connect to")
	vptr := flag.Int("v", 2, "verbosity level")
	dirptr := flag.String("dir", filepath.Join(os.Getenv("HOME"), homeDirName), "directory to save settings")

	flag.Parse()
	ac.verbosity = *vptr
	ac.con = *conptr
	ac.homeDir = *dirptr
}

func main() {
	var err error

	ac := new(afClient)
	setConfig(ac)

	logging.SetLogLevel(ac.verbosity)

	_, err = os.Stat(ac.homeDir)
	if os.IsNotExist(err) {
		os.Mkdir(ac.homeDir, 0700)
	}

	wsConn, err := websocket.Dial(
		fmt.Sprintf("ws://%s/ws", ac.con), "", "http://localhost/")
	if err != nil {
		logging.Fatal(err)
	}
	defer wsConn.Close()
	ac.rpccon = jsonrpc.NewClient(wsConn)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      pcutil.Header("unidir-af") + pcutil.White("# "),
		HistoryFile: filepath.Join(ac.homeDir, historyFilename),
	})
	if err != nil {
		logging.Fatal(err)
	}
	defer rl.Close()

	// main shell loop
	for {
		msg, err := rl.Readline()
		if err != nil {
			break
		}
		msg = strings.TrimSpace(msg)
		if len(msg) == 0 {
			continue
		}
		rl.SaveHistory(msg)

		cmdslice := strings.Fields(msg)

		err = ac.Shellparse(cmdslice)
		if err != nil { // only error should be user exit
			break
		}
	}
}

func (ac *afClient) Call(serviceMethod string, args interface{}, reply interface{}) error {
	return ac.rpccon.Call(serviceMethod, args, reply)
}
