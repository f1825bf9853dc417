package pcutil

import (
	"bytes"
	"encoding/binary"
	"math/big"

	"github.com/unidir/unidir/logging"
)

// uint32 to 4 bytes.  Always works.
func U32tB(i uint32) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, i)
	return buf.Bytes()
}

// 4 byte slice to uint32.  Returns ffffffff if something doesn't work.
func BtU32(b []byte) uint32 {
	if len(b) != 4 {
		logging.Errorf("Got %x to BtU32 (%d bytes)\n", b, len(b))
		return 0xffffffff
	}
	var i uint32
	buf := bytes.NewBuffer(b)
	binary.Read(buf, binary.BigEndian, &i)
	return i
}

// uint64 to 8 bytes.  Always works.
func U64tB(i uint64) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, i)
	return buf.Bytes()
}

// 8 bytes to uint64.  returns ffff... if it doesn't work.
func BtU64(b []byte) uint64 {
	if len(b) != 8 {
		logging.Errorf("Got %x to BtU64 (%d bytes)\n", b, len(b))
		return 0xffffffffffffffff
	}
	var i uint64
	buf := bytes.NewBuffer(b)
	binary.Read(buf, binary.BigEndian, &i)
	return i
}

// BigTo32 left-pads a non-negative big.Int into a 32 byte big-endian
// array, the way the ledger encodes uint256 values.  Values wider than
// 256 bits don't happen in channels; if one shows up it gets truncated
// to its low 32 bytes and logged.
func BigTo32(v *big.Int) [32]byte {
	var out [32]byte
	if v == nil || v.Sign() < 0 {
		logging.Errorf("BigTo32 got bad value %v\n", v)
		return out
	}
	b := v.Bytes()
	if len(b) > 32 {
		logging.Errorf("BigTo32 got %d byte value, truncating\n", len(b))
		b = b[len(b)-32:]
	}
	copy(out[32-len(b):], b)
	return out
}

// B32ToBig is the inverse of BigTo32.
func B32ToBig(b [32]byte) *big.Int {
	return new(big.Int).SetBytes(b[:])
}

// BigEq is a nil-safe big.Int equality check.
func BigEq(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}
