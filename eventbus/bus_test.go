package eventbus

import "testing"
import "fmt"
import "time"

func TestBusSimple(t *testing.T) {
	bus := NewEventBus()
	m := "Hello, World!"
	x := ""

	// Register the handler.
	bus.RegisterHandler("foo", func(e Event) {
		e2 := e.(FooEvent)
		x = e2.msg
	})
	if bus.CountHandlers("foo") != 1 {
		t.Fail()
	}

	// Publish an event to the handler.
	bus.Publish(FooEvent{
		msg: m,
	})
	if x != m {
		t.Fail()
	}
}

func TestBusAsync(t *testing.T) {
	bus := NewEventBus()
	c := make(chan uint8, 2)

	// Register the handler.
	bus.RegisterHandler("foo", func(e Event) {
		c <- 42
	})

	// Escape if we don't work out.
	go (func() {
		time.Sleep(1000 * time.Millisecond)
		t.FailNow()
	})()

	// Publish an event to the handler.
	bus.PublishAsync(FooEvent{
		msg: "asdf",
	})

	r := <-c
	fmt.Printf("got result: %d\n", r)
}

func TestBusNoHandlers(t *testing.T) {
	bus := NewEventBus()
	// publishing into the void shouldn't panic or block
	bus.Publish(FooEvent{msg: "nobody home"})
}

type FooEvent struct {
	msg string
}

func (FooEvent) Name() string {
	return "foo"
}
