package main

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/unidir/unidir/pcutil"
)

var buyCommand = &Command{
	Format: fmt.Sprintf("%s %s %s %s %s\n", pcutil.White("buy"),
		"<receiver>", "<price>", "<gateway>", "[meta]"),
	Description:      "Pay <price> wei to <receiver> via its <gateway> URL, reusing or opening a channel as needed.\n",
	ShortDescription: "Make a micropayment\n",
}

var openCommand = &Command{
	Format: fmt.Sprintf("%s %s %s\n", pcutil.White("open"),
		"<receiver>", "<value>"),
	Description:      "Open a payment channel to <receiver> funded with <value> wei.\n",
	ShortDescription: "Open a payment channel\n",
}

var depositCommand = &Command{
	Format: fmt.Sprintf("%s %s %s\n", pcutil.White("deposit"),
		"<chanid>", "<value>"),
	Description:      "Deposit <value> more wei into an open channel.\n",
	ShortDescription: "Top up a channel\n",
}

var closeCommand = &Command{
	Format:           fmt.Sprintf("%s %s\n", pcutil.White("close"), "<chanid>"),
	Description:      "Start settling a channel.  The counterparty gets the settlement period to claim.\n",
	ShortDescription: "Start settling a channel\n",
}

var settleCommand = &Command{
	Format:           fmt.Sprintf("%s %s\n", pcutil.White("settle"), "<chanid>"),
	Description:      "Finalize a settling channel once its deadline has passed.\n",
	ShortDescription: "Finalize a settling channel\n",
}

var lsCommand = &Command{
	Format:           pcutil.White("ls\n"),
	Description:      "Show every channel this node opened, with value, spend, and state.\n",
	ShortDescription: "Show channels\n",
}

var balCommand = &Command{
	Format:           pcutil.White("bal\n"),
	Description:      "Show total deposited, spent, and spendable across open channels.\n",
	ShortDescription: "Show balances\n",
}

var verifyCommand = &Command{
	Format:           fmt.Sprintf("%s %s\n", pcutil.White("verify"), "<token>"),
	Description:      "Check a token against this node's receiver side.\n",
	ShortDescription: "Verify a token\n",
}

var exitCommand = &Command{
	Format:           pcutil.White("exit\n"),
	Description:      fmt.Sprintf("Alias: %s\nExit the interactive shell.\n", pcutil.White("quit")),
	ShortDescription: "Exit the interactive shell.\n",
}

var helpCommand = &Command{
	Format:           fmt.Sprintf("%s [command]\n", pcutil.White("help")),
	Description:      "Show information about a given command\n",
	ShortDescription: "Show information about a given command\n",
}

var stopCommand = &Command{
	Format:           pcutil.White("stop\n"),
	Description:      "Shut down the unidir node.\n",
	ShortDescription: "Shut down the unidir node.\n",
}

// Shellparse parses user input and hands it to command functions if matching
func (ac *afClient) Shellparse(cmdslice []string) error {
	var err error
	var args []string
	cmd := cmdslice[0]
	if len(cmdslice) > 1 {
		args = cmdslice[1:]
	}
	if cmd == "exit" || cmd == "quit" {
		return fmt.Errorf("user exit")
	}
	if cmd == "help" {
		err = ac.Help(args)
		if err != nil {
			fmt.Fprintf(color.Output, "help error: %s\n", err)
		}
		return nil
	}
	if cmd == "buy" {
		err = ac.Buy(args)
		if err != nil {
			fmt.Fprintf(color.Output, "buy error: %s\n", err)
		}
		return nil
	}
	if cmd == "open" {
		err = ac.Open(args)
		if err != nil {
			fmt.Fprintf(color.Output, "open error: %s\n", err)
		}
		return nil
	}
	if cmd == "deposit" {
		err = ac.Deposit(args)
		if err != nil {
			fmt.Fprintf(color.Output, "deposit error: %s\n", err)
		}
		return nil
	}
	if cmd == "close" {
		err = ac.Close(args)
		if err != nil {
			fmt.Fprintf(color.Output, "close error: %s\n", err)
		}
		return nil
	}
	if cmd == "settle" {
		err = ac.Settle(args)
		if err != nil {
			fmt.Fprintf(color.Output, "settle error: %s\n", err)
		}
		return nil
	}
	if cmd == "ls" {
		err = ac.Ls(args)
		if err != nil {
			fmt.Fprintf(color.Output, "ls error: %s\n", err)
		}
		return nil
	}
	if cmd == "bal" {
		err = ac.Bal(args)
		if err != nil {
			fmt.Fprintf(color.Output, "bal error: %s\n", err)
		}
		return nil
	}
	if cmd == "verify" {
		err = ac.Verify(args)
		if err != nil {
			fmt.Fprintf(color.Output, "verify error: %s\n", err)
		}
		return nil
	}
	if cmd == "stop" { // stop remote node
		return ac.Stop(args)
	}

	fmt.Fprintf(color.Output, "command not recognized: %s\n", cmd)
	return nil
}

func (ac *afClient) Help(textArgs []string) error {
	if len(textArgs) == 0 {
		fmt.Fprintf(color.Output, "%s\n", pcutil.Header("commands:"))
		listofCommands := []*Command{buyCommand, openCommand,
			depositCommand, closeCommand, settleCommand, lsCommand,
			balCommand, verifyCommand, helpCommand, stopCommand,
			exitCommand}
		for _, command := range listofCommands {
			fmt.Fprintf(color.Output, "%s%s", command.Format,
				command.ShortDescription)
		}
		return nil
	}

	var c *Command
	switch textArgs[0] {
	case "buy":
		c = buyCommand
	case "open":
		c = openCommand
	case "deposit":
		c = depositCommand
	case "close":
		c = closeCommand
	case "settle":
		c = settleCommand
	case "ls":
		c = lsCommand
	case "bal":
		c = balCommand
	case "verify":
		c = verifyCommand
	case "stop":
		c = stopCommand
	case "exit", "quit":
		c = exitCommand
	default:
		return fmt.Errorf("no such command: %s", textArgs[0])
	}
	fmt.Fprintf(color.Output, "%s%s", c.Format, c.Description)
	return nil
}
