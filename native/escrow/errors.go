package escrow

import "errors"

var (
	// ErrUnauthorized marks callers lacking the required role for the
	// operation. Never retried.
	ErrUnauthorized = errors.New("escrow: unauthorized access")
	// ErrEscrowNotFound marks lookups against unknown record ids.
	ErrEscrowNotFound = errors.New("escrow: escrow not found")
	// ErrEscrowNotPending is returned when funding a record that is not
	// awaiting funds.
	ErrEscrowNotPending = errors.New("escrow: escrow not pending")
	// ErrEscrowNotFunded is returned when release, cancel or dispute target
	// a record outside the funded state.
	ErrEscrowNotFunded = errors.New("escrow: escrow not funded")
	// ErrEscrowNotDisputed is returned when resolution or evidence target a
	// record that is not under dispute.
	ErrEscrowNotDisputed = errors.New("escrow: escrow not in disputed state")
	// ErrDisputeWindowExpired is returned when resolution arrives after the
	// dispute deadline.
	ErrDisputeWindowExpired = errors.New("escrow: dispute timeframe expired")
	// ErrInvalidParties marks creations where buyer and seller coincide or
	// the seller is the zero sentinel.
	ErrInvalidParties = errors.New("escrow: invalid parties")
	// ErrAmountBelowMinimum marks creations under the configured floor.
	ErrAmountBelowMinimum = errors.New("escrow: amount below minimum")
	// ErrTokenNotAllowed marks creations against tokens missing from the
	// allow-list.
	ErrTokenNotAllowed = errors.New("escrow: token not allow-listed")
	// ErrValueMismatch marks creations whose attached value disagrees with
	// the asset kind: native escrows attach exactly the amount, all others
	// attach zero.
	ErrValueMismatch = errors.New("escrow: attached value mismatch")
	// ErrInvalidPayoutSplit marks resolutions whose payouts exceed the
	// escrowed amount net of the platform fee.
	ErrInvalidPayoutSplit = errors.New("escrow: payout split exceeds escrowed amount")
)
