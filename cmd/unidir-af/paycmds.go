package main

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/unidir/unidir/payrpc"
	"github.com/unidir/unidir/pcutil"
)

func (ac *afClient) Buy(textArgs []string) error {
	if len(textArgs) < 3 {
		fmt.Fprintf(color.Output, "%s%s", buyCommand.Format, buyCommand.Description)
		return nil
	}
	args := payrpc.BuyArgs{
		Receiver: textArgs[0],
		Price:    textArgs[1],
		Gateway:  textArgs[2],
	}
	if len(textArgs) > 3 {
		args.Meta = textArgs[3]
	}

	reply := new(payrpc.BuyReply)
	if err := ac.Call("PayRPC.Buy", args, reply); err != nil {
		return err
	}
	fmt.Fprintf(color.Output, "bought on channel %s\n", pcutil.ChanID(reply.ChanID))
	fmt.Fprintf(color.Output, "token %s\n", pcutil.Green(reply.Token))
	fmt.Fprintf(color.Output, "cumulative spend %s\n", reply.Spent)
	return nil
}

func (ac *afClient) Open(textArgs []string) error {
	if len(textArgs) < 2 {
		fmt.Fprintf(color.Output, "%s%s", openCommand.Format, openCommand.Description)
		return nil
	}
	args := payrpc.OpenArgs{
		Receiver: textArgs[0],
		Value:    textArgs[1],
	}
	reply := new(payrpc.OpenReply)
	if err := ac.Call("PayRPC.Open", args, reply); err != nil {
		return err
	}
	fmt.Fprintf(color.Output, "opened channel %s\n", pcutil.ChanID(reply.ChanID))
	return nil
}

func (ac *afClient) Deposit(textArgs []string) error {
	if len(textArgs) < 2 {
		fmt.Fprintf(color.Output, "%s%s", depositCommand.Format, depositCommand.Description)
		return nil
	}
	args := payrpc.DepositArgs{ChanID: textArgs[0], Value: textArgs[1]}
	reply := new(payrpc.StatusReply)
	if err := ac.Call("PayRPC.Deposit", args, reply); err != nil {
		return err
	}
	fmt.Fprintf(color.Output, "%s\n", reply.Status)
	return nil
}

func (ac *afClient) Close(textArgs []string) error {
	if len(textArgs) < 1 {
		fmt.Fprintf(color.Output, "%s%s", closeCommand.Format, closeCommand.Description)
		return nil
	}
	args := payrpc.CloseArgs{ChanID: textArgs[0]}
	reply := new(payrpc.StatusReply)
	if err := ac.Call("PayRPC.Close", args, reply); err != nil {
		return err
	}
	fmt.Fprintf(color.Output, "%s\n", reply.Status)
	return nil
}

func (ac *afClient) Settle(textArgs []string) error {
	if len(textArgs) < 1 {
		fmt.Fprintf(color.Output, "%s%s", settleCommand.Format, settleCommand.Description)
		return nil
	}
	args := payrpc.SettleArgs{ChanID: textArgs[0]}
	reply := new(payrpc.StatusReply)
	if err := ac.Call("PayRPC.Settle", args, reply); err != nil {
		return err
	}
	fmt.Fprintf(color.Output, "%s\n", reply.Status)
	return nil
}

func (ac *afClient) Ls(textArgs []string) error {
	reply := new(payrpc.ChannelListReply)
	if err := ac.Call("PayRPC.ChannelList", payrpc.NoArgs{}, reply); err != nil {
		return err
	}
	if len(reply.Channels) == 0 {
		fmt.Fprintf(color.Output, "no channels\n")
		return nil
	}
	for _, c := range reply.Channels {
		fmt.Fprintf(color.Output, "%s -> %s\n", pcutil.ChanID(c.ChanID),
			pcutil.Address(c.Receiver))
		fmt.Fprintf(color.Output, "  %s: spent %s of %s (%s left)\n",
			c.State, c.Spent, c.Value, c.Remaining)
		if c.SettlingUntil != 0 {
			fmt.Fprintf(color.Output, "  settling until %d\n", c.SettlingUntil)
		}
	}
	return nil
}

func (ac *afClient) Bal(textArgs []string) error {
	reply := new(payrpc.BalReply)
	if err := ac.Call("PayRPC.Balance", payrpc.NoArgs{}, reply); err != nil {
		return err
	}
	fmt.Fprintf(color.Output, "account %s\n", pcutil.Address(reply.Account))
	fmt.Fprintf(color.Output, "%d open channels\n", reply.OpenChannels)
	fmt.Fprintf(color.Output, "deposited %s, spent %s, spendable %s\n",
		reply.ChanTotal, reply.SpentTotal, reply.Spendable)
	return nil
}

func (ac *afClient) Verify(textArgs []string) error {
	if len(textArgs) < 1 {
		fmt.Fprintf(color.Output, "%s%s", verifyCommand.Format, verifyCommand.Description)
		return nil
	}
	args := payrpc.TokenArgs{Token: textArgs[0]}
	reply := new(payrpc.TokenReply)
	if err := ac.Call("PayRPC.VerifyToken", args, reply); err != nil {
		return err
	}
	if reply.Accepted {
		fmt.Fprintf(color.Output, "%s\n", pcutil.Green("accepted"))
	} else {
		fmt.Fprintf(color.Output, "%s\n", pcutil.Red("unknown"))
	}
	return nil
}

func (ac *afClient) Stop(textArgs []string) error {
	reply := new(payrpc.StatusReply)
	if err := ac.Call("PayRPC.Stop", payrpc.NoArgs{}, reply); err != nil {
		return err
	}
	fmt.Fprintf(color.Output, "%s\n", reply.Status)
	return fmt.Errorf("stopped remote node")
}
