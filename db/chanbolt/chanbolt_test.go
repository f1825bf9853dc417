package chanbolt

import (
	"io/ioutil"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcec"

	"github.com/unidir/unidir/channel"
	"github.com/unidir/unidir/store"
)

func testStorage(t *testing.T) store.Storage {
	t.Helper()
	dir, err := ioutil.TempDir("", "chanbolt")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	st, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
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

func testID(b byte) channel.ID {
	var id channel.ID
	for i := range id {
		id[i] = b
	}
	return id
}

func testAddr(b byte) channel.Address {
	var a channel.Address
	for i := range a {
		a[i] = b
	}
	return a
}

func signedPayment(t *testing.T, key *btcec.PrivateKey, id channel.ID,
	value int64) *channel.Payment {
	t.Helper()
	sig, err := channel.SignPayment(key, id, big.NewInt(value))
	if err != nil {
		t.Fatal(err)
	}
	return &channel.Payment{
		Sender:       channel.PrivToAddress(key),
		Receiver:     testAddr(9),
		ChanID:       id,
		ChannelValue: big.NewInt(1000),
		Value:        big.NewInt(value),
		Price:        big.NewInt(value),
		Signature:    sig,
	}
}

func TestChannelSaveLoad(t *testing.T) {
	st := testStorage(t)

	pc := channel.NewPaymentChannel(testAddr(1), testAddr(2), testID(3),
		big.NewInt(500), 60, channel.ZeroAddress)
	if err := st.Channels().Save(pc); err != nil {
		t.Fatal(err)
	}

	got, err := st.Channels().ByID(pc.ChanID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.String() != pc.String() {
		t.Fatalf("load mismatch: %v", got)
	}

	// absent channel is nil, nil -- not an error
	got, err = st.Channels().ByID(testID(99))
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("ghost channel: %v", got)
	}

	// save again with new state; load sees the update
	pc.ApplySpend(big.NewInt(200))
	if err = st.Channels().Save(pc); err != nil {
		t.Fatal(err)
	}
	got, _ = st.Channels().ByID(pc.ChanID)
	if got.Spent.Int64() != 200 {
		t.Fatalf("update lost: spent %s", got.Spent)
	}
}

func TestByParties(t *testing.T) {
	st := testStorage(t)

	pc1 := channel.NewPaymentChannel(testAddr(1), testAddr(2), testID(3),
		big.NewInt(500), 60, channel.ZeroAddress)
	pc2 := channel.NewPaymentChannel(testAddr(1), testAddr(4), testID(5),
		big.NewInt(500), 60, channel.ZeroAddress)
	st.Channels().Save(pc1)
	st.Channels().Save(pc2)

	hits, err := st.Channels().ByParties(testAddr(1), testAddr(2), testID(3))
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("want 1 hit, got %d", len(hits))
	}

	hits, err = st.Channels().ByParties(testAddr(1), testAddr(2), testID(5))
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Fatalf("mismatched parties should not hit")
	}
}

func TestRecordPayment(t *testing.T) {
	st := testStorage(t)
	key := testKey(t, 1)
	id := testID(3)

	pc := channel.NewPaymentChannel(channel.PrivToAddress(key), testAddr(9),
		id, big.NewInt(1000), 60, channel.ZeroAddress)
	pc.ApplySpend(big.NewInt(100))
	p := signedPayment(t, key, id, 100)
	tok, err := p.MintToken()
	if err != nil {
		t.Fatal(err)
	}

	if err = st.RecordPayment(pc, p, tok); err != nil {
		t.Fatal(err)
	}

	// the token, the payment, and the channel update are all visible
	present, err := st.Tokens().IsPresent(tok)
	if err != nil {
		t.Fatal(err)
	}
	if !present {
		t.Fatalf("token missing")
	}

	back, err := st.Payments().ByToken(tok)
	if err != nil {
		t.Fatal(err)
	}
	if back == nil || back.Value.Int64() != 100 {
		t.Fatalf("payment missing or wrong: %v", back)
	}

	got, _ := st.Channels().ByID(id)
	if got.Spent.Int64() != 100 {
		t.Fatalf("channel update missing")
	}

	present, _ = st.Tokens().IsPresent(channel.Token("nope"))
	if present {
		t.Fatalf("unknown token should be absent")
	}
}

func TestFirstMaximum(t *testing.T) {
	st := testStorage(t)
	key := testKey(t, 1)
	id := testID(3)
	otherID := testID(4)

	pc := channel.NewPaymentChannel(channel.PrivToAddress(key), testAddr(9),
		id, big.NewInt(1000), 60, channel.ZeroAddress)

	// record out of order; the query has to find the highest value
	for _, v := range []int64{100, 300, 200} {
		p := signedPayment(t, key, id, v)
		tok, err := p.MintToken()
		if err != nil {
			t.Fatal(err)
		}
		pc.ApplySpend(big.NewInt(v))
		if err = st.RecordPayment(pc, p, tok); err != nil {
			t.Fatal(err)
		}
	}

	// noise on another channel must not leak in
	other := channel.NewPaymentChannel(channel.PrivToAddress(key), testAddr(9),
		otherID, big.NewInt(1000), 60, channel.ZeroAddress)
	noisy := signedPayment(t, key, otherID, 900)
	noiseTok, _ := noisy.MintToken()
	other.ApplySpend(big.NewInt(900))
	if err := st.RecordPayment(other, noisy, noiseTok); err != nil {
		t.Fatal(err)
	}

	max, err := st.Payments().FirstMaximum(id)
	if err != nil {
		t.Fatal(err)
	}
	if max == nil || max.Value.Int64() != 300 {
		t.Fatalf("want max 300, got %v", max)
	}

	// no payments recorded: nil, nil
	max, err = st.Payments().FirstMaximum(testID(77))
	if err != nil {
		t.Fatal(err)
	}
	if max != nil {
		t.Fatalf("ghost payment: %v", max)
	}
}
