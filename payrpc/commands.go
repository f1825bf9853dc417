package payrpc

import (
	"context"
	"fmt"
	"math/big"

	"github.com/unidir/unidir/channel"
	"github.com/unidir/unidir/manager"
	"github.com/unidir/unidir/receiver"
)

// A PayRPC is the user I/O surface; it owns the sender and receiver
// halves of the node and answers on RPC.
type PayRPC struct {
	Man       *manager.ChannelManager
	Rcv       *receiver.Receiver
	Transport manager.Transport
	OffButton chan bool
}

type NoArgs struct {
	// nothin
}

type StatusReply struct {
	Status string
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("bad amount %q", s)
	}
	return v, nil
}

// ------------------------- buy

type BuyArgs struct {
	Receiver      string // hex address
	Price         string // decimal wei
	Gateway       string // receiver's gateway URL
	Meta          string
	TokenContract string // optional, hex address
}
type BuyReply struct {
	ChanID string
	Token  string
	Spent  string // cumulative after this purchase
}

func (r *PayRPC) Buy(args BuyArgs, reply *BuyReply) error {
	rcv, err := channel.AddressFromHex(args.Receiver)
	if err != nil {
		return err
	}
	price, err := parseAmount(args.Price)
	if err != nil {
		return err
	}
	tc := channel.ZeroAddress
	if args.TokenContract != "" {
		if tc, err = channel.AddressFromHex(args.TokenContract); err != nil {
			return err
		}
	}

	res, err := r.Man.Buy(context.Background(), r.Transport, manager.BuyOptions{
		Receiver:      rcv,
		Price:         price,
		Gateway:       args.Gateway,
		Meta:          args.Meta,
		TokenContract: tc,
	})
	if err != nil {
		return err
	}
	reply.ChanID = res.ChanID.Hex()
	reply.Token = string(res.Token)
	reply.Spent = res.Payment.Value.String()
	return nil
}

// ------------------------- open / deposit

type OpenArgs struct {
	Receiver         string
	Value            string
	SettlementPeriod uint64 // seconds; 0 means the node default
	TokenContract    string
}
type OpenReply struct {
	ChanID string
}

func (r *PayRPC) Open(args OpenArgs, reply *OpenReply) error {
	rcv, err := channel.AddressFromHex(args.Receiver)
	if err != nil {
		return err
	}
	value, err := parseAmount(args.Value)
	if err != nil {
		return err
	}
	tc := channel.ZeroAddress
	if args.TokenContract != "" {
		if tc, err = channel.AddressFromHex(args.TokenContract); err != nil {
			return err
		}
	}
	pc, err := r.Man.OpenChannel(context.Background(), rcv, value,
		args.SettlementPeriod, nil, tc)
	if err != nil {
		return err
	}
	reply.ChanID = pc.ChanID.Hex()
	return nil
}

type DepositArgs struct {
	ChanID string
	Value  string
}

func (r *PayRPC) Deposit(args DepositArgs, reply *StatusReply) error {
	id, err := channel.IDFromHex(args.ChanID)
	if err != nil {
		return err
	}
	value, err := parseAmount(args.Value)
	if err != nil {
		return err
	}
	if err = r.Man.Deposit(context.Background(), id, value); err != nil {
		return err
	}
	reply.Status = fmt.Sprintf("deposited %s into %s", value, id)
	return nil
}

// ------------------------- close / settle

type CloseArgs struct {
	ChanID string
}

func (r *PayRPC) Close(args CloseArgs, reply *StatusReply) error {
	id, err := channel.IDFromHex(args.ChanID)
	if err != nil {
		return err
	}
	if err = r.Man.CloseChannel(context.Background(), id); err != nil {
		return err
	}
	reply.Status = fmt.Sprintf("closing %s", id)
	return nil
}

type SettleArgs struct {
	ChanID string
}

func (r *PayRPC) Settle(args SettleArgs, reply *StatusReply) error {
	id, err := channel.IDFromHex(args.ChanID)
	if err != nil {
		return err
	}
	if err = r.Man.Settle(context.Background(), id); err != nil {
		return err
	}
	reply.Status = fmt.Sprintf("settled %s", id)
	return nil
}

// ------------------------- queries

type ChannelInfo struct {
	ChanID           string
	Receiver         string
	Value            string
	Spent            string
	Remaining        string
	State            string
	SettlementPeriod uint64
	SettlingUntil    uint64
}
type ChannelListReply struct {
	Channels []ChannelInfo
}

// ChannelList sends back every channel this node opened, with some
// info for each.
func (r *PayRPC) ChannelList(args NoArgs, reply *ChannelListReply) error {
	pcs, err := r.Man.Channels()
	if err != nil {
		return err
	}
	reply.Channels = make([]ChannelInfo, len(pcs))
	for i, pc := range pcs {
		reply.Channels[i] = ChannelInfo{
			ChanID:           pc.ChanID.Hex(),
			Receiver:         pc.Receiver.Hex(),
			Value:            pc.Value.String(),
			Spent:            pc.Spent.String(),
			Remaining:        pc.Remaining().String(),
			State:            pc.State.String(),
			SettlementPeriod: pc.SettlementPeriod,
			SettlingUntil:    pc.SettlingUntil,
		}
	}
	return nil
}

// BalReply is the reply when the user asks about their balance.
type BalReply struct {
	Account      string
	ChanTotal    string // deposited across open channels
	SpentTotal   string // spent across open channels
	Spendable    string // what's left to pay with
	OpenChannels int
}

func (r *PayRPC) Balance(args NoArgs, reply *BalReply) error {
	pcs, err := r.Man.OpenChannels()
	if err != nil {
		return err
	}
	total, spent, left := new(big.Int), new(big.Int), new(big.Int)
	for _, pc := range pcs {
		total.Add(total, pc.Value)
		spent.Add(spent, pc.Spent)
		left.Add(left, pc.Remaining())
	}
	reply.Account = r.Man.Account().Hex()
	reply.ChanTotal = total.String()
	reply.SpentTotal = spent.String()
	reply.Spendable = left.String()
	reply.OpenChannels = len(pcs)
	return nil
}

type TokenArgs struct {
	Token string
}
type TokenReply struct {
	Accepted bool
}

// VerifyToken checks a token against this node's receiver side.
func (r *PayRPC) VerifyToken(args TokenArgs, reply *TokenReply) error {
	if r.Rcv == nil {
		return fmt.Errorf("this node has no receiver side")
	}
	ok, err := r.Rcv.AcceptToken(channel.Token(args.Token))
	if err != nil {
		return err
	}
	reply.Accepted = ok
	return nil
}

// ------------------------- stop

// Stop shuts the node down.
func (r *PayRPC) Stop(args NoArgs, reply *StatusReply) error {
	reply.Status = "stopping"
	r.OffButton <- true
	return nil
}
