package escrow

import (
	"encoding/hex"
	"strconv"

	"pactnet/core/types"
)

const (
	EventTypeEscrowCreated     = "escrow.created"
	EventTypeFundsDeposited    = "escrow.funded"
	EventTypeFundsReleased     = "escrow.released"
	EventTypeEscrowCancelled   = "escrow.cancelled"
	EventTypeDisputeRaised     = "escrow.disputed"
	EventTypeDisputeResolved   = "escrow.resolved"
	EventTypeEvidenceSubmitted = "escrow.evidence_submitted"
)

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

// Event returns the underlying typed payload.
func (e escrowEvent) Event() *types.Event { return e.evt }

// NewCreatedEvent returns the canonical payload for a newly created escrow.
func NewCreatedEvent(e *Escrow) escrowEvent { return newEscrowEvent(EventTypeEscrowCreated, e) }

// NewFundedEvent returns the payload emitted when the principal reaches the
// module vault.
func NewFundedEvent(e *Escrow) escrowEvent { return newEscrowEvent(EventTypeFundsDeposited, e) }

// NewReleasedEvent returns the payload for a buyer-confirmed release.
func NewReleasedEvent(e *Escrow) escrowEvent { return newEscrowEvent(EventTypeFundsReleased, e) }

// NewCancelledEvent returns the payload for a buyer cancellation refund.
func NewCancelledEvent(e *Escrow) escrowEvent { return newEscrowEvent(EventTypeEscrowCancelled, e) }

// NewDisputedEvent returns the payload emitted when a dispute is raised and
// an arbitrator assigned.
func NewDisputedEvent(e *Escrow) escrowEvent { return newEscrowEvent(EventTypeDisputeRaised, e) }

// NewResolvedEvent returns the payload emitted when a dispute is settled.
func NewResolvedEvent(e *Escrow) escrowEvent { return newEscrowEvent(EventTypeDisputeResolved, e) }

// NewEvidenceEvent returns the payload for a participant's evidence
// submission. Evidence is emit-only; nothing is stored on the record.
func NewEvidenceEvent(e *Escrow, submitter [20]byte, evidence string) escrowEvent {
	wrapped := newEscrowEvent(EventTypeEvidenceSubmitted, e)
	if wrapped.evt != nil {
		wrapped.evt.Attributes["submitter"] = hex.EncodeToString(submitter[:])
		wrapped.evt.Attributes["evidence"] = evidence
	}
	return wrapped
}

func newEscrowEvent(eventType string, e *Escrow) escrowEvent {
	attrs := make(map[string]string)
	if e == nil {
		return escrowEvent{evt: &types.Event{Type: eventType, Attributes: attrs}}
	}
	attrs["id"] = strconv.FormatUint(e.ID, 10)
	attrs["buyer"] = hex.EncodeToString(e.Buyer[:])
	attrs["seller"] = hex.EncodeToString(e.Seller[:])
	attrs["asset"] = e.Asset.Symbol()
	attrs["status"] = e.Status.String()
	if e.Amount != nil {
		attrs["amount"] = e.Amount.String()
	}
	if e.Fee != nil {
		attrs["fee"] = e.Fee.String()
	}
	if e.Status == StatusDisputed || e.Status == StatusResolved {
		attrs["arbitrator"] = hex.EncodeToString(e.Arbitrator[:])
		attrs["raiser"] = hex.EncodeToString(e.DisputeRaiser[:])
		if e.DisputeReason != "" {
			attrs["reason"] = e.DisputeReason
		}
		attrs["deadline"] = strconv.FormatInt(e.DisputeDeadline, 10)
	}
	return escrowEvent{evt: &types.Event{Type: eventType, Attributes: attrs}}
}
