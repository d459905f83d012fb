package arbitration

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"pactnet/core/types"
)

// EventTypeArbitratorSelected is emitted when a selection call assigns a
// dispute handler.
const EventTypeArbitratorSelected = "arbitration.selected"

type poolEvent struct {
	evt *types.Event
}

func (e poolEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

// Event returns the underlying typed payload.
func (e poolEvent) Event() *types.Event { return e.evt }

// NewSelectedEvent builds the canonical assignment event payload.
func NewSelectedEvent(arbitrator, initiator, responder [20]byte, amount *big.Int, bucket SizeBucket, score uint64) poolEvent {
	attrs := map[string]string{
		"arbitrator": hex.EncodeToString(arbitrator[:]),
		"initiator":  hex.EncodeToString(initiator[:]),
		"responder":  hex.EncodeToString(responder[:]),
		"bucket":     bucket.String(),
		"score":      strconv.FormatUint(score, 10),
	}
	if amount != nil {
		attrs["amount"] = amount.String()
	}
	return poolEvent{evt: &types.Event{Type: EventTypeArbitratorSelected, Attributes: attrs}}
}
