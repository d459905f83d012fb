package swap

import (
	"encoding/hex"
	"math/big"

	"pactnet/core/types"
)

const (
	EventTypeTokenWrapped   = "swap.wrapped"
	EventTypeTokenUnwrapped = "swap.unwrapped"
)

type swapEvent struct {
	evt *types.Event
}

func (e swapEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

// Event returns the underlying typed payload.
func (e swapEvent) Event() *types.Event { return e.evt }

func newSwapEvent(eventType, original, wrapped string, account [20]byte, amount *big.Int) swapEvent {
	id := WrappedID(original)
	attrs := map[string]string{
		"token":     original,
		"wrapped":   wrapped,
		"wrappedId": hex.EncodeToString(id[:]),
		"account":   hex.EncodeToString(account[:]),
	}
	if amount != nil {
		attrs["amount"] = amount.String()
	}
	return swapEvent{evt: &types.Event{Type: eventType, Attributes: attrs}}
}

// NewWrappedEvent builds the payload emitted after a successful wrap.
func NewWrappedEvent(original, wrapped string, account [20]byte, amount *big.Int) swapEvent {
	return newSwapEvent(EventTypeTokenWrapped, original, wrapped, account, amount)
}

// NewUnwrappedEvent builds the payload emitted after a successful unwrap.
func NewUnwrappedEvent(original, wrapped string, account [20]byte, amount *big.Int) swapEvent {
	return newSwapEvent(EventTypeTokenUnwrapped, original, wrapped, account, amount)
}
