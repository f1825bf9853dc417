package config

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcec"
	flags "github.com/jessevdk/go-flags"
	"github.com/howeyc/gopass"

	"github.com/unidir/unidir/logging"
)

// createDefaultConfigFile creates a config file -- only call this if
// the config file isn't already there
func createDefaultConfigFile(destinationPath string) error {
	dest, err := os.OpenFile(filepath.Join(destinationPath, DefaultConfigFilename),
		os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer dest.Close()

	writer := bufio.NewWriter(dest)
	defaultArgs := []byte("loglevel=2")
	_, err = writer.Write(defaultArgs)
	if err != nil {
		return err
	}
	writer.Flush()
	return nil
}

// Setup performs most of the setup when the node is run: configuration
// variables, the home directory and config file, logging, and the
// account key.  Returns the key.
func Setup(conf *Config) *btcec.PrivateKey {
	// Pre-parse the command line options to see if an alternative home
	// dir was specified.  Errors aside from the help message can be
	// ignored here; the final parse below catches them.
	preconf := *conf
	preParser := NewConfigParser(&preconf, flags.HelpFlag)
	_, err := preParser.ParseArgs(os.Args)
	if err != nil {
		logging.Fatal(err)
	}

	parser := NewConfigParser(conf, flags.Default)

	if _, err = os.Stat(preconf.HomeDir); os.IsNotExist(err) {
		os.Mkdir(preconf.HomeDir, 0700)
		logging.Infof("Creating a new config file\n")
		if err = createDefaultConfigFile(preconf.HomeDir); err != nil {
			logging.Fatal(err)
		}
	}

	confPath := filepath.Join(preconf.HomeDir, DefaultConfigFilename)
	if _, err = os.Stat(confPath); os.IsNotExist(err) {
		logging.Infof("Creating a new config file\n")
		if err = createDefaultConfigFile(preconf.HomeDir); err != nil {
			logging.Fatal(err)
		}
	}

	// parse the config file, then the command line again so flags win
	err = flags.NewIniParser(parser).ParseFile(confPath)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			logging.Fatal(err)
		}
	}
	_, err = parser.ParseArgs(os.Args)
	if err != nil {
		logging.Fatal(err)
	}
	conf.ConfigFile = confPath

	logFilePath := filepath.Join(conf.HomeDir, DefaultLogFilename)
	logfile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		logging.Fatal(err)
	}
	logging.SetLogFile(logfile)

	logLevel := conf.LogLevel
	if conf.Verbose {
		logLevel = 5
	}
	logging.SetLogLevel(logLevel)

	var key *btcec.PrivateKey
	if conf.PromptKey {
		key, err = promptKey()
	} else {
		key, err = readKeyFile(filepath.Join(conf.HomeDir, DefaultKeyFileName))
	}
	if err != nil {
		logging.Fatal(err)
	}
	return key
}

// readKeyFile reads a hex private key from path, generating and saving
// a fresh one if the file doesn't exist.
func readKeyFile(path string) (*btcec.PrivateKey, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		var buf [32]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return nil, err
		}
		keyHex := hex.EncodeToString(buf[:]) + "\n"
		if err := ioutil.WriteFile(path, []byte(keyHex), 0600); err != nil {
			return nil, err
		}
		logging.Infof("Wrote new key file %s\n", path)
	}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	keyBytes, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("key file %s: %s", path, err.Error())
	}
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("key file %s: want 32 bytes, got %d", path, len(keyBytes))
	}
	priv, _ := btcec.PrivKeyFromBytes(btcec.S256(), keyBytes)
	return priv, nil
}

// promptKey reads a hex private key from the terminal without echoing.
func promptKey() (*btcec.PrivateKey, error) {
	fmt.Printf("Enter account key (hex): ")
	entered, err := gopass.GetPasswd()
	if err != nil {
		return nil, err
	}
	keyBytes, err := hex.DecodeString(strings.TrimSpace(string(entered)))
	if err != nil {
		return nil, err
	}
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("want 32 byte key, got %d", len(keyBytes))
	}
	priv, _ := btcec.PrivKeyFromBytes(btcec.S256(), keyBytes)
	return priv, nil
}
