package channel

import (
	"math/big"
	"testing"
)

func testAddr(b byte) Address {
	var a Address
	for i := range a {
		a[i] = b
	}
	return a
}

func testID(b byte) ID {
	var id ID
	for i := range id {
		id[i] = b
	}
	return id
}

func testChannel(t *testing.T, value int64) *PaymentChannel {
	t.Helper()
	pc := NewPaymentChannel(testAddr(1), testAddr(2), testID(3),
		big.NewInt(value), 100, ZeroAddress)
	if err := pc.CheckInvariant(); err != nil {
		t.Fatal(err)
	}
	return pc
}

func TestApplySpend(t *testing.T) {
	pc := testChannel(t, 100)

	if err := pc.ApplySpend(big.NewInt(40)); err != nil {
		t.Fatal(err)
	}
	if pc.Spent.Int64() != 40 {
		t.Fatalf("spent should be 40, got %s", pc.Spent)
	}
	if pc.Remaining().Int64() != 60 {
		t.Fatalf("remaining should be 60, got %s", pc.Remaining())
	}

	// replaying the same spend does nothing
	if err := pc.ApplySpend(big.NewInt(40)); err != nil {
		t.Fatal(err)
	}
	if pc.Spent.Int64() != 40 {
		t.Fatalf("replay moved spent to %s", pc.Spent)
	}

	// a lower spend does nothing either
	if err := pc.ApplySpend(big.NewInt(10)); err != nil {
		t.Fatal(err)
	}
	if pc.Spent.Int64() != 40 {
		t.Fatalf("regression moved spent to %s", pc.Spent)
	}

	// overspend is refused
	if err := pc.ApplySpend(big.NewInt(101)); err != ErrInsufficientFunds {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
	if pc.Spent.Int64() != 40 {
		t.Fatalf("failed spend moved spent to %s", pc.Spent)
	}

	// spending the whole channel is fine
	if err := pc.ApplySpend(big.NewInt(100)); err != nil {
		t.Fatal(err)
	}
	if err := pc.CheckInvariant(); err != nil {
		t.Fatal(err)
	}
}

func TestApplyDeposit(t *testing.T) {
	pc := testChannel(t, 100)

	if err := pc.ApplyDeposit(big.NewInt(150)); err != nil {
		t.Fatal(err)
	}
	if pc.Value.Int64() != 150 {
		t.Fatalf("value should be 150, got %s", pc.Value)
	}

	// duplicate DidDeposit carries the same total; must not double-apply
	if err := pc.ApplyDeposit(big.NewInt(150)); err != nil {
		t.Fatal(err)
	}
	if pc.Value.Int64() != 150 {
		t.Fatalf("replay moved value to %s", pc.Value)
	}
}

func TestLifecycle(t *testing.T) {
	pc := testChannel(t, 100)

	// can't settle straight from open
	if err := pc.Settle(); err != ErrInvalidChannelState {
		t.Fatalf("want ErrInvalidChannelState, got %v", err)
	}

	if err := pc.StartSettling(5000); err != nil {
		t.Fatal(err)
	}
	if pc.State != StateSettling || pc.SettlingUntil != 5000 {
		t.Fatalf("bad settling state: %s until %d", pc.State, pc.SettlingUntil)
	}

	// re-observing the start is a no-op and keeps the first deadline
	if err := pc.StartSettling(9999); err != nil {
		t.Fatal(err)
	}
	if pc.SettlingUntil != 5000 {
		t.Fatalf("replay moved deadline to %d", pc.SettlingUntil)
	}

	// no more payments or deposits once settling
	if err := pc.ApplySpend(big.NewInt(10)); err != ErrInvalidChannelState {
		t.Fatalf("want ErrInvalidChannelState, got %v", err)
	}
	if err := pc.ApplyDeposit(big.NewInt(500)); err != ErrInvalidChannelState {
		t.Fatalf("want ErrInvalidChannelState, got %v", err)
	}

	if err := pc.Settle(); err != nil {
		t.Fatal(err)
	}
	if pc.State != StateSettled {
		t.Fatalf("should be settled, got %s", pc.State)
	}

	// settled is terminal
	if err := pc.Settle(); err != nil {
		t.Fatal(err) // replay ok
	}
	if err := pc.StartSettling(1); err != ErrInvalidChannelState {
		t.Fatalf("settled channel went back to settling: %v", err)
	}
}

func TestFromPayment(t *testing.T) {
	p := &Payment{
		Sender:       testAddr(1),
		Receiver:     testAddr(2),
		ChanID:       testID(3),
		ChannelValue: big.NewInt(1000),
		Value:        big.NewInt(100),
		Price:        big.NewInt(100),
	}
	pc := FromPayment(p)
	if err := pc.CheckInvariant(); err != nil {
		t.Fatal(err)
	}
	if pc.Value.Int64() != 1000 || pc.Spent.Int64() != 100 {
		t.Fatalf("baseline wrong: value %s spent %s", pc.Value, pc.Spent)
	}
	if pc.State != StateOpen {
		t.Fatalf("new channel should be open")
	}

	// amounts must be independent copies
	p.ChannelValue.SetInt64(1)
	if pc.Value.Int64() != 1000 {
		t.Fatalf("channel aliases the payment's amount")
	}
}
