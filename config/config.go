package config

import (
	"os"

	flags "github.com/jessevdk/go-flags"
)

type Config struct { // define a struct for usage with go-flags
	HomeDir    string `long:"dir" description:"Specify home directory of the node as an absolute path."`
	ConfigFile string

	Rpcport uint16 `short:"p" long:"rpcport" description:"Set RPC port to listen on"`
	Rpchost string `long:"rpchost" description:"Set RPC host to listen to"`

	GatewayListen string `long:"gateway" description:"Listen address for the payment gateway http server"`

	SettlementPeriod uint64 `long:"settlementperiod" description:"Seconds the counterparty gets to claim after settlement starts"`
	DepositMultiple  int64  `long:"depositmultiple" description:"Initial deposit of a new channel as a multiple of the first price"`

	PromptKey bool `long:"promptkey" description:"Prompt for the account key instead of reading the key file"`

	LogLevel int  `short:"l" long:"loglevel" description:"Set log level 0 to 5"`
	Verbose  bool `short:"v" long:"verbose" description:"Set verbosity to true."`
}

var (
	DefaultHomeDirName      = os.Getenv("HOME") + "/.unidir"
	DefaultKeyFileName      = "privkey.hex"
	DefaultConfigFilename   = "unidir.conf"
	DefaultDBName           = "channels.db"
	DefaultLogFilename      = "unidir.log"
	DefaultRpcport          = uint16(8001)
	DefaultRpchost          = "localhost"
	DefaultGatewayListen    = "localhost:8002"
	DefaultLogLevel         = 2
	DefaultSettlementPeriod = uint64(2 * 24 * 60 * 60)
	DefaultDepositMultiple  = int64(10)
)

// NewConfigParser returns a new command line flags parser.
func NewConfigParser(conf *Config, options flags.Options) *flags.Parser {
	parser := flags.NewParser(conf, options)
	return parser
}
