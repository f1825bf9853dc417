package store

import (
	"github.com/unidir/unidir/channel"
)

// Storage is the abstract wrapper layer around whatever database holds
// channels, payments, and tokens.  Implementations must give
// read-your-writes consistency within one process, and RecordPayment
// must be atomic: a token becomes visible only together with its payment
// and the channel update it belongs to.
type Storage interface {
	Channels() ChannelStorage
	Payments() PaymentStorage
	Tokens() TokenStorage

	// RecordPayment persists, in one transaction: the updated channel
	// record, the payment keyed by token, and the token itself.
	RecordPayment(pc *channel.PaymentChannel, p *channel.Payment, t channel.Token) error

	Close() error
}

// ChannelStorage holds channel records by id.
type ChannelStorage interface {
	Save(pc *channel.PaymentChannel) error

	// ByID returns nil (no error) when the channel isn't there.
	ByID(id channel.ID) (*channel.PaymentChannel, error)

	// ByParties returns every stored channel matching the triple.  The
	// caller decides what more than one match means.
	ByParties(sender, receiver channel.Address, id channel.ID) ([]*channel.PaymentChannel, error)

	All() ([]*channel.PaymentChannel, error)
}

// PaymentStorage holds accepted payments keyed by their token.
type PaymentStorage interface {
	// ByToken returns nil (no error) when no payment was minted for the
	// token.
	ByToken(t channel.Token) (*channel.Payment, error)

	// FirstMaximum returns the highest-value payment recorded for the
	// channel, nil if none.  This is what a defensive claim submits.
	FirstMaximum(id channel.ID) (*channel.Payment, error)
}

// TokenStorage answers whether a token was ever minted here.
type TokenStorage interface {
	IsPresent(t channel.Token) (bool, error)
}
