package escrow

import (
	"fmt"
	"math/big"

	"pactnet/native/bank"
)

// Status represents the lifecycle states of an escrow record. Transitions are
// monotonic: Released, Cancelled and Resolved are terminal and no record ever
// leaves them.
type Status uint8

const (
	// StatusPending awaits funding; only non-native escrows pass through it.
	StatusPending Status = iota
	// StatusFunded holds the principal in the module vault.
	StatusFunded
	// StatusReleased paid out to the seller. Terminal.
	StatusReleased
	// StatusCancelled refunded to the buyer. Terminal.
	StatusCancelled
	// StatusDisputed awaits arbitrator resolution.
	StatusDisputed
	// StatusResolved settled by the arbitrator. Terminal.
	StatusResolved
)

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusFunded, StatusReleased, StatusCancelled, StatusDisputed, StatusResolved:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusReleased, StatusCancelled, StatusResolved:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer for errors and event attributes.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFunded:
		return "funded"
	case StatusReleased:
		return "released"
	case StatusCancelled:
		return "cancelled"
	case StatusDisputed:
		return "disputed"
	case StatusResolved:
		return "resolved"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Escrow captures one buyer/seller exchange under management. Records are
// identified by a monotonically increasing id and are never deleted; the
// collection is an append-only audit trail.
type Escrow struct {
	ID              uint64     `json:"id"`
	Buyer           [20]byte   `json:"buyer"`
	Seller          [20]byte   `json:"seller"`
	Asset           bank.Asset `json:"asset"`
	Amount          *big.Int   `json:"amount"`
	Fee             *big.Int   `json:"fee"`
	Status          Status     `json:"status"`
	CreatedAt       int64      `json:"createdAt"`
	DisputeDeadline int64      `json:"disputeDeadline,omitempty"`
	Arbitrator      [20]byte   `json:"arbitrator,omitempty"`
	DisputeFeePaid  *big.Int   `json:"disputeFeePaid,omitempty"`
	DisputeRaiser   [20]byte   `json:"disputeRaiser,omitempty"`
	DisputeReason   string     `json:"disputeReason,omitempty"`
	Details         string     `json:"details,omitempty"`
}

// Clone returns a deep copy so callers can mutate the result without
// affecting the stored instance.
func (e *Escrow) Clone() *Escrow {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Amount != nil {
		clone.Amount = new(big.Int).Set(e.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	if e.Fee != nil {
		clone.Fee = new(big.Int).Set(e.Fee)
	} else {
		clone.Fee = big.NewInt(0)
	}
	if e.DisputeFeePaid != nil {
		clone.DisputeFeePaid = new(big.Int).Set(e.DisputeFeePaid)
	}
	return &clone
}

// IsParticipant reports whether the address is the buyer or the seller.
func (e *Escrow) IsParticipant(addr [20]byte) bool {
	if e == nil {
		return false
	}
	return addr == e.Buyer || addr == e.Seller
}

// SanitizeEscrow validates the supplied record and returns a clone with
// non-nil amount fields. The original value is not mutated.
func SanitizeEscrow(e *Escrow) (*Escrow, error) {
	if e == nil {
		return nil, fmt.Errorf("escrow: nil escrow")
	}
	clone := e.Clone()
	if !clone.Asset.Valid() {
		return nil, fmt.Errorf("escrow: invalid asset %s", clone.Asset)
	}
	if clone.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("escrow: amount must be positive")
	}
	if clone.Fee.Sign() < 0 || clone.Fee.Cmp(clone.Amount) > 0 {
		return nil, fmt.Errorf("escrow: fee exceeds amount")
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("escrow: invalid status %d", clone.Status)
	}
	if clone.Buyer == ([20]byte{}) || clone.Seller == ([20]byte{}) || clone.Buyer == clone.Seller {
		return nil, ErrInvalidParties
	}
	return clone, nil
}
