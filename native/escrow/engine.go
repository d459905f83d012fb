package escrow

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"pactnet/core/events"
	"pactnet/native/bank"
	"pactnet/native/common"
	"pactnet/native/fees"
)

var (
	errNilState     = errors.New("escrow engine: state not configured")
	errNilGateway   = errors.New("escrow engine: transfer gateway not configured")
	errNilSelector  = errors.New("escrow engine: arbitrator selector not configured")
	errNilCollector = errors.New("escrow engine: fee collector not configured")
)

// engineState is the subset of state-manager functionality the ledger
// requires.
type engineState interface {
	EscrowPut(*Escrow) error
	EscrowGet(id uint64) (*Escrow, bool)
	NextEscrowID() (uint64, error)
	TokenAllowed(token string) bool
}

// moduleName keys the ledger's pause switch.
const moduleName = "escrow"

// Selector is the arbitrator-selection capability invoked when a dispute is
// raised. Select's success side-effects (capacity, assignment stamp) belong
// to the pool; Complete releases the capacity on resolution, and Rollback
// undoes a selection whose transition never committed.
type Selector interface {
	Select(initiator, responder [20]byte, disputeAmount *big.Int) ([20]byte, error)
	Complete(arbitrator [20]byte) error
	Rollback(arbitrator [20]byte) error
}

// Authorizer answers whether a caller holds platform-administrator rights.
// Supplied externally; the ledger never manages the admin set itself.
type Authorizer interface {
	IsAdmin(addr [20]byte) bool
}

// Policy carries the ledger's configured thresholds.
type Policy struct {
	// FeeBps is the platform fee rate in basis points, capped at
	// fees.MaxPlatformFeeBps.
	FeeBps uint32
	// MinAmount is the smallest principal a record may carry.
	MinAmount *big.Int
	// DisputeFee is the fixed fee a dispute raiser must post, denominated in
	// the native currency.
	DisputeFee *big.Int
	// DisputeWindowSecs is the fixed duration after a dispute is raised
	// during which resolution must occur.
	DisputeWindowSecs int64
}

// DefaultPolicy returns the production defaults: 1% platform fee, a one-wei
// minimum, no dispute fee, a 7-day dispute window.
func DefaultPolicy() Policy {
	return Policy{
		FeeBps:            100,
		MinAmount:         big.NewInt(1),
		DisputeFee:        big.NewInt(0),
		DisputeWindowSecs: 7 * 24 * 3600,
	}
}

// Engine owns the escrow record collection and is the only component that
// mutates a record's status. Monetary movement is delegated to the transfer
// gateway, candidate selection to the arbitrator pool.
type Engine struct {
	state        engineState
	gateway      bank.Gateway
	selector     Selector
	auth         Authorizer
	emitter      events.Emitter
	guard        *common.CallGuard
	pauses       common.PauseView
	policy       Policy
	feeCollector [20]byte
	nowFn        func() int64
}

// NewEngine creates an escrow engine with default policy and a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		guard:   &common.CallGuard{},
		policy:  DefaultPolicy(),
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetGateway configures the asset-transfer capability.
func (e *Engine) SetGateway(gateway bank.Gateway) { e.gateway = gateway }

// SetSelector configures the arbitrator-selection capability.
func (e *Engine) SetSelector(selector Selector) { e.selector = selector }

// SetAuthorizer configures the external administrator predicate.
func (e *Engine) SetAuthorizer(auth Authorizer) { e.auth = auth }

// SetFeeCollector configures the account receiving platform and dispute fees.
func (e *Engine) SetFeeCollector(addr [20]byte) { e.feeCollector = addr }

// SetPauses configures the administrative pause switch consulted at every
// mutating entry point.
func (e *Engine) SetPauses(pauses common.PauseView) { e.pauses = pauses }

// SetPolicy validates and installs the ledger thresholds. The fee rate is
// checked against the hard cap before anything is mutated.
func (e *Engine) SetPolicy(policy Policy) error {
	if err := fees.ValidateRate(policy.FeeBps); err != nil {
		return err
	}
	if policy.MinAmount == nil || policy.MinAmount.Sign() <= 0 {
		return fmt.Errorf("%w: minimum amount must be positive", fees.ErrInvalidFeeConfiguration)
	}
	if policy.DisputeFee == nil || policy.DisputeFee.Sign() < 0 {
		return fmt.Errorf("%w: dispute fee must be non-negative", fees.ErrInvalidFeeConfiguration)
	}
	if policy.DisputeWindowSecs <= 0 {
		return fmt.Errorf("%w: dispute window must be positive", fees.ErrInvalidFeeConfiguration)
	}
	e.policy = Policy{
		FeeBps:            policy.FeeBps,
		MinAmount:         new(big.Int).Set(policy.MinAmount),
		DisputeFee:        new(big.Int).Set(policy.DisputeFee),
		DisputeWindowSecs: policy.DisputeWindowSecs,
	}
	return nil
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.gateway == nil {
		return errNilGateway
	}
	if e.feeCollector == ([20]byte{}) {
		return errNilCollector
	}
	// Administrative pause blocks every mutating entry; reads and evidence
	// submission stay available.
	return common.Guard(e.pauses, moduleName)
}

func (e *Engine) loadEscrow(id uint64) (*Escrow, error) {
	esc, ok := e.state.EscrowGet(id)
	if !ok {
		return nil, ErrEscrowNotFound
	}
	return esc, nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// Get returns a copy of the record for the supplied id.
func (e *Engine) Get(id uint64) (*Escrow, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.loadEscrow(id)
}

// Create opens a new escrow with the caller as buyer. Native escrows must
// attach exactly the principal as value and are created directly in the
// funded state; all other kinds attach zero value and start pending.
func (e *Engine) Create(caller, seller [20]byte, asset bank.Asset, amount, value *big.Int, details string) (*Escrow, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.guard.Enter(); err != nil {
		return nil, err
	}
	defer e.guard.Exit()

	if !asset.Valid() {
		return nil, fmt.Errorf("%w: %s", bank.ErrInvalidAsset, asset)
	}
	if seller == ([20]byte{}) || seller == caller {
		return nil, ErrInvalidParties
	}
	if !asset.IsNative() && !e.state.TokenAllowed(asset.Symbol()) {
		return nil, ErrTokenNotAllowed
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 || amt.Cmp(e.policy.MinAmount) < 0 {
		return nil, ErrAmountBelowMinimum
	}
	attached := cloneBigInt(value)
	if asset.IsNative() {
		if attached.Cmp(amt) != 0 {
			return nil, ErrValueMismatch
		}
	} else if attached.Sign() != 0 {
		return nil, ErrValueMismatch
	}

	id, err := e.state.NextEscrowID()
	if err != nil {
		return nil, err
	}
	esc := &Escrow{
		ID:        id,
		Buyer:     caller,
		Seller:    seller,
		Asset:     asset,
		Amount:    amt,
		Fee:       fees.Apply(amt, e.policy.FeeBps),
		Status:    StatusPending,
		CreatedAt: e.now(),
		Details:   details,
	}
	if asset.IsNative() {
		// Funding is atomic with creation for the native currency: the
		// attached value moves to the vault before the record is persisted,
		// so a failed transfer leaves no record behind.
		if err := e.gateway.TransferIn(asset, caller, amt); err != nil {
			return nil, err
		}
		esc.Status = StatusFunded
	}
	if err := e.state.EscrowPut(esc); err != nil {
		return nil, err
	}
	e.emit(NewCreatedEvent(esc))
	if esc.Status == StatusFunded {
		e.emit(NewFundedEvent(esc))
	}
	return esc.Clone(), nil
}

// Fund pulls the principal from the buyer for a pending non-native escrow
// using the gateway's prior-allowance inbound transfer.
func (e *Engine) Fund(id uint64, caller [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()

	esc, err := e.loadEscrow(id)
	if err != nil {
		return err
	}
	if esc.Status != StatusPending {
		return fmt.Errorf("%w: status %s", ErrEscrowNotPending, esc.Status)
	}
	if caller != esc.Buyer {
		return ErrUnauthorized
	}
	if err := e.gateway.TransferIn(esc.Asset, esc.Buyer, esc.Amount); err != nil {
		return err
	}
	esc.Status = StatusFunded
	if err := e.state.EscrowPut(esc); err != nil {
		return err
	}
	e.emit(NewFundedEvent(esc))
	return nil
}

// Release is the buyer's unilateral confirmation: the seller receives the
// principal net of the platform fee, the collector receives the fee. The
// seller can never self-release.
func (e *Engine) Release(id uint64, caller [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()

	esc, err := e.loadEscrow(id)
	if err != nil {
		return err
	}
	if esc.Status != StatusFunded {
		return fmt.Errorf("%w: status %s", ErrEscrowNotFunded, esc.Status)
	}
	if caller != esc.Buyer {
		return ErrUnauthorized
	}
	// Both payouts commit or neither: a failed fee transfer unwinds the
	// seller payout before the error surfaces.
	journal := bank.NewJournal(e.gateway)
	payout := new(big.Int).Sub(esc.Amount, esc.Fee)
	if payout.Sign() > 0 {
		if err := journal.TransferOut(esc.Asset, esc.Seller, payout); err != nil {
			return err
		}
	}
	if esc.Fee.Sign() > 0 {
		if err := journal.TransferOut(esc.Asset, e.feeCollector, esc.Fee); err != nil {
			return err
		}
	}
	esc.Status = StatusReleased
	if err := e.state.EscrowPut(esc); err != nil {
		if revertErr := journal.Revert(); revertErr != nil {
			return fmt.Errorf("%v: revert payouts: %w", err, revertErr)
		}
		return err
	}
	e.emit(NewReleasedEvent(esc))
	return nil
}

// Cancel refunds the full principal to the buyer. No fee is charged.
func (e *Engine) Cancel(id uint64, caller [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()

	esc, err := e.loadEscrow(id)
	if err != nil {
		return err
	}
	if esc.Status != StatusFunded {
		return fmt.Errorf("%w: status %s", ErrEscrowNotFunded, esc.Status)
	}
	if caller != esc.Buyer {
		return ErrUnauthorized
	}
	if err := e.gateway.TransferOut(esc.Asset, esc.Buyer, esc.Amount); err != nil {
		return err
	}
	esc.Status = StatusCancelled
	if err := e.state.EscrowPut(esc); err != nil {
		return err
	}
	e.emit(NewCancelledEvent(esc))
	return nil
}

// RaiseDispute moves a funded escrow under dispute. Selection is a
// precondition of the transition: when the pool has no eligible candidate the
// record stays funded and the caller may retry after roster changes. The
// caller posts the fixed dispute fee in native currency.
func (e *Engine) RaiseDispute(id uint64, caller [20]byte, reason string, postedFee *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.selector == nil {
		return errNilSelector
	}
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()

	esc, err := e.loadEscrow(id)
	if err != nil {
		return err
	}
	if esc.Status != StatusFunded {
		return fmt.Errorf("%w: status %s", ErrEscrowNotFunded, esc.Status)
	}
	if !esc.IsParticipant(caller) {
		return ErrUnauthorized
	}
	fee := cloneBigInt(postedFee)
	if fee.Cmp(e.policy.DisputeFee) < 0 {
		return fmt.Errorf("%w: posted dispute fee below %s", fees.ErrInvalidFeeConfiguration, e.policy.DisputeFee)
	}
	responder := esc.Seller
	if caller == esc.Seller {
		responder = esc.Buyer
	}
	arbitrator, err := e.selector.Select(caller, responder, esc.Amount)
	if err != nil {
		return err
	}
	journal := bank.NewJournal(e.gateway)
	if fee.Sign() > 0 {
		if err := journal.TransferIn(bank.NativeAsset(), caller, fee); err != nil {
			// Undo the selection entirely: a failed fee deposit nets out to
			// no assignment, capacity and assignment stamp included.
			if rollbackErr := e.selector.Rollback(arbitrator); rollbackErr != nil {
				return fmt.Errorf("%v: rollback assignment: %w", err, rollbackErr)
			}
			return err
		}
	}
	esc.Status = StatusDisputed
	esc.Arbitrator = arbitrator
	esc.DisputeRaiser = caller
	esc.DisputeReason = reason
	esc.DisputeFeePaid = fee
	esc.DisputeDeadline = e.now() + e.policy.DisputeWindowSecs
	if err := e.state.EscrowPut(esc); err != nil {
		if revertErr := journal.Revert(); revertErr != nil {
			return fmt.Errorf("%v: revert fee deposit: %w", err, revertErr)
		}
		if rollbackErr := e.selector.Rollback(arbitrator); rollbackErr != nil {
			return fmt.Errorf("%v: rollback assignment: %w", err, rollbackErr)
		}
		return err
	}
	e.emit(NewDisputedEvent(esc))
	return nil
}

// ResolveDispute settles a disputed escrow according to the supplied payout
// split. Only the assigned arbitrator or a platform administrator may
// resolve, and only within the dispute window. The payouts must not exceed
// the principal net of the platform fee; the fee and the posted dispute fee
// go to the collector.
func (e *Engine) ResolveDispute(id uint64, caller [20]byte, buyerAmount, sellerAmount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()

	esc, err := e.loadEscrow(id)
	if err != nil {
		return err
	}
	if esc.Status != StatusDisputed {
		return fmt.Errorf("%w: status %s", ErrEscrowNotDisputed, esc.Status)
	}
	if e.now() > esc.DisputeDeadline {
		return ErrDisputeWindowExpired
	}
	if caller != esc.Arbitrator && (e.auth == nil || !e.auth.IsAdmin(caller)) {
		return ErrUnauthorized
	}
	toBuyer := cloneBigInt(buyerAmount)
	toSeller := cloneBigInt(sellerAmount)
	if toBuyer.Sign() < 0 || toSeller.Sign() < 0 {
		return ErrInvalidPayoutSplit
	}
	distributable := new(big.Int).Sub(esc.Amount, esc.Fee)
	if new(big.Int).Add(toBuyer, toSeller).Cmp(distributable) > 0 {
		return ErrInvalidPayoutSplit
	}
	// The four payouts commit or none do: a failure anywhere in the sequence
	// unwinds the transfers already applied, so a retried resolution starts
	// from the pre-resolution balances.
	journal := bank.NewJournal(e.gateway)
	if toBuyer.Sign() > 0 {
		if err := journal.TransferOut(esc.Asset, esc.Buyer, toBuyer); err != nil {
			return err
		}
	}
	if toSeller.Sign() > 0 {
		if err := journal.TransferOut(esc.Asset, esc.Seller, toSeller); err != nil {
			return err
		}
	}
	if esc.Fee.Sign() > 0 {
		if err := journal.TransferOut(esc.Asset, e.feeCollector, esc.Fee); err != nil {
			return err
		}
	}
	if esc.DisputeFeePaid != nil && esc.DisputeFeePaid.Sign() > 0 {
		if err := journal.TransferOut(bank.NativeAsset(), e.feeCollector, esc.DisputeFeePaid); err != nil {
			return err
		}
	}
	if e.selector != nil {
		if err := e.selector.Complete(esc.Arbitrator); err != nil {
			if revertErr := journal.Revert(); revertErr != nil {
				return fmt.Errorf("%v: revert payouts: %w", err, revertErr)
			}
			return err
		}
	}
	esc.Status = StatusResolved
	if err := e.state.EscrowPut(esc); err != nil {
		if revertErr := journal.Revert(); revertErr != nil {
			return fmt.Errorf("%v: revert payouts: %w", err, revertErr)
		}
		return err
	}
	e.emit(NewResolvedEvent(esc))
	return nil
}

// SubmitEvidence records a participant's evidence for an in-flight dispute.
// Pure append: an audit event fires and nothing on the record changes.
func (e *Engine) SubmitEvidence(id uint64, caller [20]byte, evidence string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	esc, err := e.loadEscrow(id)
	if err != nil {
		return err
	}
	if esc.Status != StatusDisputed {
		return fmt.Errorf("%w: status %s", ErrEscrowNotDisputed, esc.Status)
	}
	if !esc.IsParticipant(caller) && caller != esc.Arbitrator {
		return ErrUnauthorized
	}
	e.emit(NewEvidenceEvent(esc, caller, evidence))
	return nil
}
