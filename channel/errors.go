package channel

import "errors"

// Protocol error taxonomy.  These are sentinel values so callers can
// errors.Is() on them after wrapping.
var (
	// ErrChannelNotFound means no channel with that id is known locally.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrInvalidChannelState means the operation isn't allowed in the
	// channel's current lifecycle state.
	ErrInvalidChannelState = errors.New("operation not valid in channel state")

	// ErrInsufficientFunds means a payment would push cumulative spend
	// past the channel's deposited value.
	ErrInsufficientFunds = errors.New("payment would overspend channel value")

	// ErrAddressMismatch means a payment named a receiver other than us.
	ErrAddressMismatch = errors.New("payment addressed to a different receiver")

	// ErrAmbiguousChannel means more than one stored channel matched a
	// query that must match at most one.  That's a storage consistency
	// bug; never resolve it by picking one.
	ErrAmbiguousChannel = errors.New("more than one channel matched query")

	// ErrFraudDetected means an incoming payment failed validation and
	// the defensive claim path was taken.
	ErrFraudDetected = errors.New("payment failed validation")

	// ErrBadSignature means a payment signature didn't recover to the
	// claimed sender.
	ErrBadSignature = errors.New("payment signature does not match sender")
)
