package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcec"
	"github.com/stretchr/testify/require"

	"github.com/unidir/unidir/channel"
	"github.com/unidir/unidir/db/chanbolt"
	"github.com/unidir/unidir/eventbus"
	"github.com/unidir/unidir/ledger"
	"github.com/unidir/unidir/manager"
	"github.com/unidir/unidir/receiver"
)

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

func tempStorage(t *testing.T, name string) string {
	t.Helper()
	dir, err := ioutil.TempDir("", name)
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "test.db")
}

// Two nodes sharing one sim ledger: the sender's manager buying over
// HTTP from the receiver's gateway.
func TestBuyOverHTTP(t *testing.T) {
	bus := eventbus.NewEventBus()
	sim := ledger.NewSim(bus)

	sKey := testKey(t, 1)
	rKey := testKey(t, 2)

	sSt, err := chanbolt.Open(tempStorage(t, "sender"))
	require.NoError(t, err)
	t.Cleanup(func() { sSt.Close() })
	rSt, err := chanbolt.Open(tempStorage(t, "receiver"))
	require.NoError(t, err)
	t.Cleanup(func() { rSt.Close() })

	cm := manager.NewChannelManager(sKey,
		sim.Account(channel.PrivToAddress(sKey)), sSt)
	rcv := receiver.NewReceiver(rKey,
		sim.Account(channel.PrivToAddress(rKey)), rSt)

	ts := httptest.NewServer(NewServer(rcv).Router())
	t.Cleanup(ts.Close)

	ctx := context.Background()
	res, err := cm.Buy(ctx, NewClient(), manager.BuyOptions{
		Receiver: channel.PrivToAddress(rKey),
		Price:    big.NewInt(100),
		Gateway:  ts.URL,
		Meta:     "article-1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)

	// buyer committed the spend
	pc, err := cm.ChannelByID(res.ChanID)
	require.NoError(t, err)
	require.Equal(t, int64(100), pc.Spent.Int64())

	// receiver minted the token and can verify it over HTTP
	ok, err := rcv.AcceptToken(res.Token)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = NewClient().VerifyToken(ctx, ts.URL, res.Token)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = NewClient().VerifyToken(ctx, ts.URL, channel.Token("bogus"))
	require.NoError(t, err)
	require.False(t, ok)

	// a second buy reuses the channel
	res2, err := cm.Buy(ctx, NewClient(), manager.BuyOptions{
		Receiver: channel.PrivToAddress(rKey),
		Price:    big.NewInt(50),
		Gateway:  ts.URL,
	})
	require.NoError(t, err)
	require.Equal(t, res.ChanID, res2.ChanID)
	require.NotEqual(t, res.Token, res2.Token)

	pc, err = cm.ChannelByID(res.ChanID)
	require.NoError(t, err)
	require.Equal(t, int64(150), pc.Spent.Int64())
}

func TestAcceptHandlerRejectsGarbage(t *testing.T) {
	rKey := testKey(t, 2)
	rSt, err := chanbolt.Open(tempStorage(t, "receiver"))
	require.NoError(t, err)
	t.Cleanup(func() { rSt.Close() })

	bus := eventbus.NewEventBus()
	sim := ledger.NewSim(bus)
	rcv := receiver.NewReceiver(rKey,
		sim.Account(channel.PrivToAddress(rKey)), rSt)

	ts := httptest.NewServer(NewServer(rcv).Router())
	t.Cleanup(ts.Close)

	resp, err := http.Post(ts.URL+"/accept", "application/json",
		bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAcceptHandlerRejectsForgery(t *testing.T) {
	bus := eventbus.NewEventBus()
	sim := ledger.NewSim(bus)

	sKey := testKey(t, 1)
	rKey := testKey(t, 2)

	rSt, err := chanbolt.Open(tempStorage(t, "receiver"))
	require.NoError(t, err)
	t.Cleanup(func() { rSt.Close() })
	rcv := receiver.NewReceiver(rKey,
		sim.Account(channel.PrivToAddress(rKey)), rSt)

	ts := httptest.NewServer(NewServer(rcv).Router())
	t.Cleanup(ts.Close)

	id, err := channel.NewRandomID()
	require.NoError(t, err)

	// signed by the wrong key entirely
	sig, err := channel.SignPayment(rKey, id, big.NewInt(10))
	require.NoError(t, err)
	p := &channel.Payment{
		Sender:       channel.PrivToAddress(sKey),
		Receiver:     channel.PrivToAddress(rKey),
		ChanID:       id,
		ChannelValue: big.NewInt(100),
		Value:        big.NewInt(10),
		Price:        big.NewInt(10),
		Signature:    sig,
	}
	body, err := json.Marshal(p)
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/accept", "application/json",
		bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var ar AcceptResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ar))
	require.Empty(t, ar.Token)
	require.NotEmpty(t, ar.Error)
}
