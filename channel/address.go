package channel

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec"
	"golang.org/x/crypto/sha3"
)

// ID is the ledger-assigned channel identifier.  The opener picks it at
// random and the ledger rejects duplicates.
type ID [32]byte

// NewRandomID makes a fresh channel id from the system RNG.
func NewRandomID() (ID, error) {
	var id ID
	_, err := rand.Read(id[:])
	if err != nil {
		return id, err
	}
	return id, nil
}

func IDFromHex(s string) (ID, error) {
	var id ID
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return id, err
	}
	if len(b) != 32 {
		return id, fmt.Errorf("channel id must be 32 bytes, got %d", len(b))
	}
	copy(id[:], b)
	return id, nil
}

func (id ID) Hex() string {
	return "0x" + hex.EncodeToString(id[:])
}

func (id ID) String() string {
	return id.Hex()
}

// Address identifies a party.  20 bytes, derived from the secp256k1
// pubkey the same way the ledger does it.
type Address [20]byte

var ZeroAddress Address

func AddressFromHex(s string) (Address, error) {
	var a Address
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return a, err
	}
	if len(b) != 20 {
		return a, fmt.Errorf("address must be 20 bytes, got %d", len(b))
	}
	copy(a[:], b)
	return a, nil
}

func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) String() string {
	return a.Hex()
}

// PubToAddress derives the party address from a public key: the low 20
// bytes of the Keccak-256 of the uncompressed point, x||y.
func PubToAddress(pub *btcec.PublicKey) Address {
	var a Address
	h := sha3.NewLegacyKeccak256()
	h.Write(pub.SerializeUncompressed()[1:])
	sum := h.Sum(nil)
	copy(a[:], sum[12:])
	return a
}

// PrivToAddress is a convenience for the common "whose key is this" case.
func PrivToAddress(priv *btcec.PrivateKey) Address {
	return PubToAddress(priv.PubKey())
}
