package channel

import (
	"strings"
	"testing"
)

func TestIDHexRoundTrip(t *testing.T) {
	id, err := NewRandomID()
	if err != nil {
		t.Fatal(err)
	}
	back, err := IDFromHex(id.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if back != id {
		t.Fatalf("round trip changed the id")
	}

	// with or without the 0x prefix
	back, err = IDFromHex(strings.TrimPrefix(id.Hex(), "0x"))
	if err != nil {
		t.Fatal(err)
	}
	if back != id {
		t.Fatalf("unprefixed parse failed")
	}

	if _, err = IDFromHex("0xdeadbeef"); err == nil {
		t.Fatalf("short id should fail")
	}
	if _, err = IDFromHex("zzzz"); err == nil {
		t.Fatalf("non-hex id should fail")
	}
}

func TestAddressHexRoundTrip(t *testing.T) {
	a := testAddr(0xab)
	back, err := AddressFromHex(a.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if back != a {
		t.Fatalf("round trip changed the address")
	}
	if _, err = AddressFromHex("0x1234"); err == nil {
		t.Fatalf("short address should fail")
	}
}

func TestPrivToAddress(t *testing.T) {
	k1 := testKey(t, 1)
	k2 := testKey(t, 2)

	a1 := PrivToAddress(k1)
	if a1 == ZeroAddress {
		t.Fatalf("derived the zero address")
	}
	if a1 != PrivToAddress(k1) {
		t.Fatalf("derivation isn't deterministic")
	}
	if a1 == PrivToAddress(k2) {
		t.Fatalf("two keys, one address")
	}
	if a1 != PubToAddress(k1.PubKey()) {
		t.Fatalf("private and public derivation disagree")
	}
}
