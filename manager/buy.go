package manager

import (
	"context"
	"math/big"

	"github.com/pkg/errors"

	"github.com/unidir/unidir/channel"
	"github.com/unidir/unidir/logging"
	"github.com/unidir/unidir/pcutil"
)

// Transport delivers a signed payment to a receiver's gateway and
// brings back the token it minted.
type Transport interface {
	DeliverPayment(ctx context.Context, gateway string,
		p *channel.Payment) (channel.Token, error)
}

// BuyOptions describes one purchase.
type BuyOptions struct {
	Receiver      channel.Address
	Price         *big.Int
	Gateway       string // where the receiver accepts payments
	Meta          string
	TokenContract channel.Address
}

// BuyResult is what the caller gets back after a successful purchase.
type BuyResult struct {
	ChanID  channel.ID
	Token   channel.Token
	Payment *channel.Payment
}

// Buy runs the whole purchase: find or open a channel, build the next
// payment, deliver it, and commit the spend once the token comes back.
// A failed delivery leaves the channel exactly as it was.
func (cm *ChannelManager) Buy(ctx context.Context, t Transport,
	opts BuyOptions) (*BuyResult, error) {

	if opts.Price == nil || opts.Price.Sign() <= 0 {
		return nil, errors.New("buy: price must be positive")
	}

	pc, err := cm.RequireOpenChannel(ctx, opts.Receiver, opts.Price,
		opts.TokenContract)
	if err != nil {
		return nil, errors.Wrap(err, "buy: no usable channel")
	}

	p, err := cm.NextPayment(pc.ChanID, opts.Price, opts.Meta)
	if err != nil {
		return nil, errors.Wrap(err, "buy: payment")
	}

	token, err := t.DeliverPayment(ctx, opts.Gateway, p)
	if err != nil {
		cm.ReleasePayment(p)
		return nil, errors.Wrap(err, "buy: delivery")
	}

	if err = cm.SpendChannel(p, token); err != nil {
		return nil, errors.Wrap(err, "buy: commit")
	}

	logging.Infof("bought for %s on %s, token %s\n",
		pcutil.WeiColor(opts.Price), pc.ChanID, token)
	return &BuyResult{ChanID: pc.ChanID, Token: token, Payment: p}, nil
}
