package receiver

import (
	"context"
	"math/big"
	"sync"

	"github.com/btcsuite/btcd/btcec"

	"github.com/unidir/unidir/channel"
	"github.com/unidir/unidir/ledger"
	"github.com/unidir/unidir/logging"
	"github.com/unidir/unidir/pcutil"
	"github.com/unidir/unidir/store"
)

/*
Receiver is the accepting side.  It never signs anything during normal
operation; its job is to check incoming payments against its own view
of the channel and hand out tokens for the ones that hold up.

The failure mode that matters: a sender presenting a payment that
contradicts the channel (spend that doesn't fit, lying about the
channel's value) is either buggy or hostile.  Either way the response
is the same: stop trusting the channel and claim the best payment we
hold before the sender can settle us out of it.
*/

// AcceptResult reports the outcome of AcceptPayment.  On acceptance
// Token is set.  On rejection, Claimed says whether a defensive claim
// made it to the ledger, and ClaimErr carries the submission error if
// it didn't; the rejection itself comes back as the error return.
type AcceptResult struct {
	Token    channel.Token
	Claimed  bool
	ClaimErr error
}

// Receiver validates payments addressed to one account and mints
// tokens for the accepted ones.
type Receiver struct {
	key     *btcec.PrivateKey
	account channel.Address

	ldgr ledger.Ledger
	st   store.Storage

	gateMtx sync.Mutex
	gates   map[channel.ID]chan bool
}

// NewReceiver wires a receiver for the account behind key.
func NewReceiver(key *btcec.PrivateKey, ldgr ledger.Ledger,
	st store.Storage) *Receiver {

	return &Receiver{
		key:     key,
		account: channel.PrivToAddress(key),
		ldgr:    ldgr,
		st:      st,
		gates:   map[channel.ID]chan bool{},
	}
}

// Account is the address this receiver accepts payments for.
func (r *Receiver) Account() channel.Address {
	return r.account
}

func (r *Receiver) lockChannel(id channel.ID) chan bool {
	r.gateMtx.Lock()
	g, ok := r.gates[id]
	if !ok {
		g = make(chan bool, 1)
		g <- true
		r.gates[id] = g
	}
	r.gateMtx.Unlock()
	<-g
	return g
}

// AcceptPayment validates p and, if it holds up, records it and mints
// a token.  An invalid payment on a known channel triggers a defensive
// claim of the best payment already held.
func (r *Receiver) AcceptPayment(ctx context.Context,
	p *channel.Payment) (*AcceptResult, error) {

	if p.Receiver != r.account {
		logging.Warnf("payment for %s arrived at %s\n", p.Receiver, r.account)
		return nil, channel.ErrAddressMismatch
	}
	if err := p.Verify(); err != nil {
		return nil, err
	}

	g := r.lockChannel(p.ChanID)
	defer func() { g <- true }()

	matches, err := r.st.Channels().ByParties(p.Sender, p.Receiver, p.ChanID)
	if err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		// first payment on this channel; the payment is the baseline
		return r.acceptNew(p)
	case 1:
		return r.acceptExisting(ctx, matches[0], p)
	default:
		// two records for one channel id means the store is corrupt
		logging.Errorf("%d records for channel %s\n", len(matches), p.ChanID)
		return nil, channel.ErrAmbiguousChannel
	}
}

func (r *Receiver) acceptNew(p *channel.Payment) (*AcceptResult, error) {
	pc := channel.FromPayment(p)
	if err := pc.CheckInvariant(); err != nil {
		return nil, err
	}
	return r.record(pc, p)
}

func (r *Receiver) acceptExisting(ctx context.Context,
	pc *channel.PaymentChannel, p *channel.Payment) (*AcceptResult, error) {

	if pc.State != channel.StateOpen {
		return nil, channel.ErrInvalidChannelState
	}
	if err := r.validate(pc, p); err != nil {
		logging.Warnf("bad payment on %s: %s\n", p.ChanID, err.Error())
		res := &AcceptResult{}
		res.Claimed, res.ClaimErr = r.defensiveClaim(ctx, p.ChanID)
		return res, err
	}

	pc.Spent = new(big.Int).Set(p.Value)
	return r.record(pc, p)
}

// validate is the channel-consistency check for a payment against the
// receiver's record of the channel.  All clauses fatal: the spend has
// to strictly increase, the increment has to fit in what's left, the
// sender's idea of the channel's value has to match ours, and the
// cumulative spend can't exceed that value.
func (r *Receiver) validate(pc *channel.PaymentChannel, p *channel.Payment) error {
	increment := new(big.Int).Sub(p.Value, pc.Spent)
	if increment.Sign() <= 0 {
		return channel.ErrFraudDetected
	}
	if increment.Cmp(pc.Remaining()) > 0 {
		return channel.ErrFraudDetected
	}
	if !pcutil.BigEq(p.ChannelValue, pc.Value) {
		return channel.ErrFraudDetected
	}
	if p.Value.Cmp(pc.Value) > 0 {
		return channel.ErrFraudDetected
	}
	return nil
}

func (r *Receiver) record(pc *channel.PaymentChannel,
	p *channel.Payment) (*AcceptResult, error) {

	token, err := p.MintToken()
	if err != nil {
		return nil, err
	}
	if err = r.st.RecordPayment(pc, p, token); err != nil {
		return nil, err
	}
	logging.Infof("accepted %s on %s, spent %s of %s\n",
		pcutil.WeiColor(p.Price), p.ChanID,
		pcutil.WeiColor(pc.Spent), pcutil.WeiColor(pc.Value))
	return &AcceptResult{Token: token}, nil
}

// defensiveClaim grabs the best payment held for the channel and
// submits it.  Returns whether the submission went through.
func (r *Receiver) defensiveClaim(ctx context.Context, id channel.ID) (bool, error) {
	max, err := r.st.Payments().FirstMaximum(id)
	if err != nil {
		return false, err
	}
	if max == nil {
		// nothing of ours to protect
		return false, nil
	}
	logging.Warnf("claiming %s on %s defensively\n",
		pcutil.WeiColor(max.Value), id)
	if err = r.ldgr.Claim(ctx, id, max.Value, max.Signature); err != nil {
		return false, err
	}
	return true, nil
}

// AcceptToken reports whether the token was minted here.
func (r *Receiver) AcceptToken(token channel.Token) (bool, error) {
	return r.st.Tokens().IsPresent(token)
}

// PaymentByToken looks up the payment a token was minted for.
func (r *Receiver) PaymentByToken(token channel.Token) (*channel.Payment, error) {
	return r.st.Payments().ByToken(token)
}
