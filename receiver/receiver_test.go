package receiver

import (
	"context"
	"io/ioutil"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcec"
	"github.com/stretchr/testify/require"

	"github.com/unidir/unidir/channel"
	"github.com/unidir/unidir/db/chanbolt"
	"github.com/unidir/unidir/eventbus"
	"github.com/unidir/unidir/ledger"
	"github.com/unidir/unidir/store"
)

type rcvFixture struct {
	rcv       *Receiver
	sim       *ledger.Sim
	bus       *eventbus.EventBus
	st        store.Storage
	senderKey *btcec.PrivateKey
	sender    channel.Address
	claims    chan *big.Int
}

func testKey(t *testing.T, seed byte) *btcec.PrivateKey {
	t.Helper()
	var b [32]byte
	for i := range b {
		b[i] = seed
	}
	b[31]++
	priv, _ := btcec.PrivKeyFromBytes(btcec.S256(), b[:])
	return priv
}

func newFixture(t *testing.T) *rcvFixture {
	t.Helper()
	dir, err := ioutil.TempDir("", "receiver")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	st, err := chanbolt.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	bus := eventbus.NewEventBus()
	sim := ledger.NewSim(bus)

	senderKey := testKey(t, 1)
	rcvKey := testKey(t, 2)
	rcv := NewReceiver(rcvKey, sim.Account(channel.PrivToAddress(rcvKey)), st)

	f := &rcvFixture{
		rcv:       rcv,
		sim:       sim,
		bus:       bus,
		st:        st,
		senderKey: senderKey,
		sender:    channel.PrivToAddress(senderKey),
		claims:    make(chan *big.Int, 4),
	}
	bus.RegisterHandler(ledger.EventDidClaim, func(e eventbus.Event) {
		ev := e.(ledger.DidClaimEvent)
		f.claims <- ev.Value
	})
	return f
}

// payment builds a signed cumulative payment from the fixture's sender.
func (f *rcvFixture) payment(t *testing.T, id channel.ID, chanValue,
	value, price int64) *channel.Payment {
	t.Helper()
	sig, err := channel.SignPayment(f.senderKey, id, big.NewInt(value))
	require.NoError(t, err)
	return &channel.Payment{
		Sender:       f.sender,
		Receiver:     f.rcv.Account(),
		ChanID:       id,
		ChannelValue: big.NewInt(chanValue),
		Value:        big.NewInt(value),
		Price:        big.NewInt(price),
		Signature:    sig,
	}
}

// openOnLedger opens the channel on the sim as the sender so claims
// have something to land on.
func (f *rcvFixture) openOnLedger(t *testing.T, id channel.ID, value int64) {
	t.Helper()
	err := f.sim.Account(f.sender).Open(context.Background(), id,
		f.rcv.Account(), big.NewInt(value), 60, channel.ZeroAddress)
	require.NoError(t, err)
}

func testID(b byte) channel.ID {
	var id channel.ID
	for i := range id {
		id[i] = b
	}
	return id
}

func TestAcceptEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := testID(1)

	// first payment implies the channel
	res1, err := f.rcv.AcceptPayment(ctx, f.payment(t, id, 1000, 100, 100))
	require.NoError(t, err)
	require.NotEmpty(t, res1.Token)

	// second payment continues the spend
	res2, err := f.rcv.AcceptPayment(ctx, f.payment(t, id, 1000, 150, 50))
	require.NoError(t, err)
	require.NotEmpty(t, res2.Token)
	require.NotEqual(t, res1.Token, res2.Token)

	pc, err := f.st.Channels().ByID(id)
	require.NoError(t, err)
	require.Equal(t, int64(150), pc.Spent.Int64())
	require.Equal(t, int64(1000), pc.Value.Int64())

	ok, err := f.rcv.AcceptToken(res1.Token)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.rcv.AcceptToken(channel.Token("unknown"))
	require.NoError(t, err)
	require.False(t, ok)

	// tokens resolve back to their payments
	p, err := f.rcv.PaymentByToken(res2.Token)
	require.NoError(t, err)
	require.Equal(t, int64(150), p.Value.Int64())
}

func TestRejectOverspendAndClaim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := testID(2)
	f.openOnLedger(t, id, 100)

	// legitimate history up to 40
	_, err := f.rcv.AcceptPayment(ctx, f.payment(t, id, 100, 40, 40))
	require.NoError(t, err)

	// 40 + 70 doesn't fit in 100
	res, err := f.rcv.AcceptPayment(ctx, f.payment(t, id, 100, 110, 70))
	require.Equal(t, channel.ErrFraudDetected, err)
	require.NotNil(t, res)
	require.True(t, res.Claimed)
	require.NoError(t, res.ClaimErr)

	// the defensive claim carried the last valid payment, 40
	paid := <-f.claims
	require.Equal(t, int64(40), paid.Int64())

	// the bad payment minted nothing
	p, err := f.st.Payments().FirstMaximum(id)
	require.NoError(t, err)
	require.Equal(t, int64(40), p.Value.Int64())
}

func TestRejectChannelValueMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := testID(3)
	f.openOnLedger(t, id, 100)

	_, err := f.rcv.AcceptPayment(ctx, f.payment(t, id, 100, 40, 40))
	require.NoError(t, err)

	// increment fits, but the sender is lying about the deposit
	res, err := f.rcv.AcceptPayment(ctx, f.payment(t, id, 90, 50, 10))
	require.Equal(t, channel.ErrFraudDetected, err)
	require.True(t, res.Claimed)
}

func TestRejectStaleValue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := testID(4)
	f.openOnLedger(t, id, 100)

	_, err := f.rcv.AcceptPayment(ctx, f.payment(t, id, 100, 40, 40))
	require.NoError(t, err)

	// replaying the same cumulative value is not a payment
	_, err = f.rcv.AcceptPayment(ctx, f.payment(t, id, 100, 40, 0))
	require.Equal(t, channel.ErrFraudDetected, err)
}

func TestRejectWrongReceiver(t *testing.T) {
	f := newFixture(t)
	p := f.payment(t, testID(5), 100, 10, 10)
	p.Receiver = f.sender // anywhere but us

	_, err := f.rcv.AcceptPayment(context.Background(), p)
	require.Equal(t, channel.ErrAddressMismatch, err)
}

func TestRejectBadSignature(t *testing.T) {
	f := newFixture(t)
	p := f.payment(t, testID(6), 100, 10, 10)
	p.Value = big.NewInt(99) // signature no longer matches

	_, err := f.rcv.AcceptPayment(context.Background(), p)
	require.Equal(t, channel.ErrBadSignature, err)
}

// ambiguousStorage wraps real storage but reports two channel records
// for every ByParties query.
type ambiguousStorage struct {
	store.Storage
}

type ambiguousChannels struct {
	store.ChannelStorage
}

func (a *ambiguousStorage) Channels() store.ChannelStorage {
	return &ambiguousChannels{a.Storage.Channels()}
}

func (a *ambiguousChannels) ByParties(sender, receiver channel.Address,
	id channel.ID) ([]*channel.PaymentChannel, error) {

	pc := channel.NewPaymentChannel(sender, receiver, id,
		big.NewInt(100), 60, channel.ZeroAddress)
	return []*channel.PaymentChannel{pc, pc}, nil
}

func TestAmbiguousChannelIsFatal(t *testing.T) {
	f := newFixture(t)
	amb := &ambiguousStorage{f.st}
	rcv := NewReceiver(testKey(t, 2), f.sim.Account(f.rcv.Account()), amb)

	res, err := rcv.AcceptPayment(context.Background(),
		f.payment(t, testID(7), 100, 10, 10))
	require.Equal(t, channel.ErrAmbiguousChannel, err)
	require.Nil(t, res)
	// no defensive claim on a storage bug; nothing was submitted
	require.Len(t, f.claims, 0)
}
