package eventbus

// An Event is a description of "something" that has taken place.
// Ledger confirmations are the main traffic here.
type Event interface {
	Name() string
}
