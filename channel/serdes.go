package channel

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/unidir/unidir/pcutil"
)

/*
Fixed binary layout for what goes in the db.  Amounts are length-prefixed
big-endian (one length byte is plenty; 255 bytes is far past uint256).

PaymentChannel serialized:
	sender            20
	receiver          20
	chanId            32
	tokenContract     20
	state              1
	settlementPeriod   8
	settlingUntil      8
	value          1 + n
	spent          1 + n

Payment serialized:
	sender            20
	receiver          20
	chanId            32
	tokenContract     20
	channelValue   1 + n
	value          1 + n
	price          1 + n
	signature      1 + n
	meta            rest
*/

func writeAmount(buf *bytes.Buffer, v *big.Int) error {
	if v == nil || v.Sign() < 0 {
		return fmt.Errorf("can't serialize amount %v", v)
	}
	b := v.Bytes()
	if len(b) > 32 {
		return fmt.Errorf("amount too wide: %d bytes", len(b))
	}
	buf.WriteByte(uint8(len(b)))
	buf.Write(b)
	return nil
}

func readAmount(buf *bytes.Buffer) (*big.Int, error) {
	l, err := buf.ReadByte()
	if err != nil {
		return nil, err
	}
	b := make([]byte, l)
	if _, err := buf.Read(b); err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

// ToBytes serializes the channel record for storage.
func (pc *PaymentChannel) ToBytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(pc.Sender[:])
	buf.Write(pc.Receiver[:])
	buf.Write(pc.ChanID[:])
	buf.Write(pc.TokenContract[:])
	buf.WriteByte(uint8(pc.State))
	buf.Write(pcutil.U64tB(pc.SettlementPeriod))
	buf.Write(pcutil.U64tB(pc.SettlingUntil))
	if err := writeAmount(&buf, pc.Value); err != nil {
		return nil, err
	}
	if err := writeAmount(&buf, pc.Spent); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PaymentChannelFromBytes is the inverse of ToBytes.
func PaymentChannelFromBytes(b []byte) (*PaymentChannel, error) {
	if len(b) < 111 {
		return nil, fmt.Errorf("short channel serialization: %d bytes", len(b))
	}
	buf := bytes.NewBuffer(b)
	pc := new(PaymentChannel)
	buf.Read(pc.Sender[:])
	buf.Read(pc.Receiver[:])
	buf.Read(pc.ChanID[:])
	buf.Read(pc.TokenContract[:])
	st, _ := buf.ReadByte()
	pc.State = State(st)
	pc.SettlementPeriod = pcutil.BtU64(buf.Next(8))
	pc.SettlingUntil = pcutil.BtU64(buf.Next(8))
	var err error
	if pc.Value, err = readAmount(buf); err != nil {
		return nil, err
	}
	if pc.Spent, err = readAmount(buf); err != nil {
		return nil, err
	}
	return pc, nil
}

// ToBytes serializes the payment for storage.
func (p *Payment) ToBytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(p.Sender[:])
	buf.Write(p.Receiver[:])
	buf.Write(p.ChanID[:])
	buf.Write(p.TokenContract[:])
	if err := writeAmount(&buf, p.ChannelValue); err != nil {
		return nil, err
	}
	if err := writeAmount(&buf, p.Value); err != nil {
		return nil, err
	}
	if err := writeAmount(&buf, p.Price); err != nil {
		return nil, err
	}
	if len(p.Signature) > 255 {
		return nil, fmt.Errorf("signature too long: %d bytes", len(p.Signature))
	}
	buf.WriteByte(uint8(len(p.Signature)))
	buf.Write(p.Signature)
	buf.WriteString(p.Meta)
	return buf.Bytes(), nil
}

// PaymentFromBytes is the inverse of ToBytes.
func PaymentFromBytes(b []byte) (*Payment, error) {
	if len(b) < 96 {
		return nil, fmt.Errorf("short payment serialization: %d bytes", len(b))
	}
	buf := bytes.NewBuffer(b)
	p := new(Payment)
	buf.Read(p.Sender[:])
	buf.Read(p.Receiver[:])
	buf.Read(p.ChanID[:])
	buf.Read(p.TokenContract[:])
	var err error
	if p.ChannelValue, err = readAmount(buf); err != nil {
		return nil, err
	}
	if p.Value, err = readAmount(buf); err != nil {
		return nil, err
	}
	if p.Price, err = readAmount(buf); err != nil {
		return nil, err
	}
	sl, err := buf.ReadByte()
	if err != nil {
		return nil, err
	}
	p.Signature = make([]byte, sl)
	if _, err := buf.Read(p.Signature); err != nil {
		return nil, err
	}
	p.Meta = buf.String() // everything left
	return p, nil
}
