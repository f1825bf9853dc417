package channel

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcec"
	"golang.org/x/crypto/sha3"

	"github.com/unidir/unidir/pcutil"
)

// A Payment is one signed redemption claim: "sender owes receiver Value
// total on this channel".  Built once, never mutated.  The receiver can
// hand the ledger (ChanID, Value, Signature) at any time to cash out.
type Payment struct {
	Sender   Address
	Receiver Address
	ChanID   ID

	// ChannelValue is what the payer believes the channel's deposit is.
	// The receiver checks it against its own cached value.
	ChannelValue *big.Int

	// Value is the new cumulative spend being claimed.
	Value *big.Int

	// Price is the increment this payment represents, Value - prior spend.
	Price *big.Int

	// Meta is opaque purchase metadata, passed through untouched.
	Meta string

	// Signature is 65 bytes, compact recoverable ECDSA over
	// PaymentDigest(ChanID, Value).
	Signature []byte

	TokenContract Address
}

// PaymentDigest is the canonical digest a payment signature commits to:
// Keccak-256 over channelId || uint256(value).  Matches what the ledger
// contract recomputes when a claim comes in.
func PaymentDigest(id ID, value *big.Int) [32]byte {
	v := pcutil.BigTo32(value)
	h := sha3.NewLegacyKeccak256()
	h.Write(id[:])
	h.Write(v[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// SignPayment produces the compact recoverable signature for a claim of
// value on channel id.
func SignPayment(priv *btcec.PrivateKey, id ID, value *big.Int) ([]byte, error) {
	digest := PaymentDigest(id, value)
	return btcec.SignCompact(btcec.S256(), priv, digest[:], false)
}

// RecoverSigner returns the address that signed a claim of value on
// channel id.
func RecoverSigner(id ID, value *big.Int, sig []byte) (Address, error) {
	digest := PaymentDigest(id, value)
	pub, _, err := btcec.RecoverCompact(btcec.S256(), sig, digest[:])
	if err != nil {
		return ZeroAddress, err
	}
	return PubToAddress(pub), nil
}

// Verify checks the payment's signature recovers to its claimed sender.
func (p *Payment) Verify() error {
	signer, err := RecoverSigner(p.ChanID, p.Value, p.Signature)
	if err != nil {
		return ErrBadSignature
	}
	if signer != p.Sender {
		return ErrBadSignature
	}
	return nil
}

// Token is the opaque receipt minted for one accepted payment.  One
// token names exactly one payment; tokens are never reused.
type Token string

// MintToken fingerprints the payment: hex Keccak-256 of the canonical
// JSON serialization (signature included, so distinct payments always
// get distinct tokens).
func (p *Payment) MintToken() (Token, error) {
	j, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(j)
	return Token(hex.EncodeToString(h.Sum(nil))), nil
}

// paymentJSON is the stable wire form.  Amounts are decimal strings;
// binary fields are 0x-hex.
type paymentJSON struct {
	Sender        string `json:"sender"`
	Receiver      string `json:"receiver"`
	ChannelID     string `json:"channelId"`
	ChannelValue  string `json:"channelValue"`
	Value         string `json:"value"`
	Price         string `json:"price"`
	Meta          string `json:"meta"`
	Signature     string `json:"signature"`
	TokenContract string `json:"tokenContract,omitempty"`
}

func (p *Payment) MarshalJSON() ([]byte, error) {
	pj := paymentJSON{
		Sender:       p.Sender.Hex(),
		Receiver:     p.Receiver.Hex(),
		ChannelID:    p.ChanID.Hex(),
		ChannelValue: p.ChannelValue.String(),
		Value:        p.Value.String(),
		Price:        p.Price.String(),
		Meta:         p.Meta,
		Signature:    "0x" + hex.EncodeToString(p.Signature),
	}
	if p.TokenContract != ZeroAddress {
		pj.TokenContract = p.TokenContract.Hex()
	}
	return json.Marshal(pj)
}

func (p *Payment) UnmarshalJSON(data []byte) error {
	var pj paymentJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return err
	}
	var err error
	if p.Sender, err = AddressFromHex(pj.Sender); err != nil {
		return err
	}
	if p.Receiver, err = AddressFromHex(pj.Receiver); err != nil {
		return err
	}
	if p.ChanID, err = IDFromHex(pj.ChannelID); err != nil {
		return err
	}
	if p.ChannelValue, err = parseAmount(pj.ChannelValue); err != nil {
		return err
	}
	if p.Value, err = parseAmount(pj.Value); err != nil {
		return err
	}
	if p.Price, err = parseAmount(pj.Price); err != nil {
		return err
	}
	p.Meta = pj.Meta
	if p.Signature, err = hex.DecodeString(strings.TrimPrefix(pj.Signature, "0x")); err != nil {
		return err
	}
	if pj.TokenContract != "" {
		if p.TokenContract, err = AddressFromHex(pj.TokenContract); err != nil {
			return err
		}
	} else {
		p.TokenContract = ZeroAddress
	}
	return nil
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("bad amount %q", s)
	}
	return v, nil
}
