package arbitration

import (
	"fmt"
	"math/big"
	"time"

	"pactnet/core/events"
)

// Params carries the selection policy knobs configured at deployment time.
type Params struct {
	// MinReputation excludes arbitrators below this reputation from
	// candidacy.
	MinReputation uint64
	// MaxActiveDisputes caps how many unresolved disputes a single
	// arbitrator may hold.
	MaxActiveDisputes uint32
	// CandidateCap bounds how many eligible candidates one selection call
	// collects before scoring.
	CandidateCap int
	// BaseUnit is the chain's base currency unit used for dispute-size
	// bucketing.
	BaseUnit *big.Int
}

// DefaultParams returns the production policy defaults.
func DefaultParams() Params {
	return Params{
		MinReputation:     40,
		MaxActiveDisputes: 5,
		CandidateCap:      10,
		BaseUnit:          new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil),
	}
}

// PoolState is the subset of state-manager functionality the pool requires.
// ArbitratorList returns addresses in registration order; selection scan order
// and the documented tie-break depend on it.
type PoolState interface {
	ArbitratorPut(*Arbitrator) error
	ArbitratorGet(addr [20]byte) (*Arbitrator, bool)
	ArbitratorList() ([][20]byte, error)
}

// Pool owns the arbitrator roster and the weighted candidate selection
// invoked when a dispute is raised.
type Pool struct {
	state   PoolState
	params  Params
	emitter events.Emitter
	nowFn   func() int64
	// prevStamps remembers, per arbitrator, the assignment timestamp that the
	// most recent selection overwrote, so an aborted transition can restore it.
	prevStamps map[[20]byte]int64
}

// NewPool creates a pool with default params and a no-op emitter.
func NewPool() *Pool {
	return &Pool{
		params:     DefaultParams(),
		emitter:    events.NoopEmitter{},
		nowFn:      func() int64 { return time.Now().Unix() },
		prevStamps: make(map[[20]byte]int64),
	}
}

// SetState configures the state backend used by the pool.
func (p *Pool) SetState(state PoolState) { p.state = state }

// SetParams overrides the selection policy knobs. Zero-value fields fall back
// to the defaults.
func (p *Pool) SetParams(params Params) {
	defaults := DefaultParams()
	if params.MaxActiveDisputes == 0 {
		params.MaxActiveDisputes = defaults.MaxActiveDisputes
	}
	if params.CandidateCap <= 0 {
		params.CandidateCap = defaults.CandidateCap
	}
	if params.BaseUnit == nil || params.BaseUnit.Sign() <= 0 {
		params.BaseUnit = defaults.BaseUnit
	}
	p.params = params
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (p *Pool) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		p.emitter = events.NoopEmitter{}
		return
	}
	p.emitter = emitter
}

// SetNowFunc overrides the time source, primarily for deterministic tests.
func (p *Pool) SetNowFunc(now func() int64) {
	if now == nil {
		p.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	p.nowFn = now
}

func (p *Pool) withState() (PoolState, error) {
	if p == nil || p.state == nil {
		return nil, fmt.Errorf("arbitration: state not configured")
	}
	return p.state, nil
}

func (p *Pool) now() int64 {
	if p == nil || p.nowFn == nil {
		return time.Now().Unix()
	}
	return p.nowFn()
}

func (p *Pool) emit(evt events.Event) {
	if p == nil || p.emitter == nil || evt == nil {
		return
	}
	p.emitter.Emit(evt)
}

// Register enrolls a new arbitrator with the supplied profile. The address
// joins the roster in registration order.
func (p *Pool) Register(profile *Arbitrator) (*Arbitrator, error) {
	state, err := p.withState()
	if err != nil {
		return nil, err
	}
	sanitized, err := SanitizeArbitrator(profile)
	if err != nil {
		return nil, err
	}
	if _, ok := state.ArbitratorGet(sanitized.Addr); ok {
		return nil, ErrAlreadyEnrolled
	}
	sanitized.Enrolled = true
	sanitized.ActiveDisputes = 0
	sanitized.LastAssignedAt = 0
	if err := state.ArbitratorPut(sanitized); err != nil {
		return nil, err
	}
	return sanitized.Clone(), nil
}

func (p *Pool) update(addr [20]byte, mutate func(*Arbitrator) error) error {
	state, err := p.withState()
	if err != nil {
		return err
	}
	profile, ok := state.ArbitratorGet(addr)
	if !ok {
		return ErrArbitratorNotFound
	}
	if err := mutate(profile); err != nil {
		return err
	}
	sanitized, err := SanitizeArbitrator(profile)
	if err != nil {
		return err
	}
	return state.ArbitratorPut(sanitized)
}

// Leave withdraws the arbitrator from candidacy without erasing its history.
func (p *Pool) Leave(addr [20]byte) error {
	return p.update(addr, func(a *Arbitrator) error {
		a.Enrolled = false
		a.Available = false
		return nil
	})
}

// SetAvailability toggles whether the arbitrator accepts new assignments.
func (p *Pool) SetAvailability(addr [20]byte, available bool) error {
	return p.update(addr, func(a *Arbitrator) error {
		a.Available = available
		return nil
	})
}

// SetReputation records the externally computed reputation score.
func (p *Pool) SetReputation(addr [20]byte, reputation uint64) error {
	return p.update(addr, func(a *Arbitrator) error {
		if reputation > maxScore {
			return ErrScoreOutOfRange
		}
		a.Reputation = reputation
		return nil
	})
}

// SetResponseTime records the arbitrator's average response time in seconds.
func (p *Pool) SetResponseTime(addr [20]byte, seconds int64) error {
	return p.update(addr, func(a *Arbitrator) error {
		if seconds < 0 {
			return fmt.Errorf("arbitration: response time must be non-negative")
		}
		a.AvgResponseSeconds = seconds
		return nil
	})
}

// SetSpecialization records the arbitrator's proficiency for one dispute-size
// bucket.
func (p *Pool) SetSpecialization(addr [20]byte, bucket SizeBucket, score uint64) error {
	return p.update(addr, func(a *Arbitrator) error {
		if score > maxScore {
			return ErrScoreOutOfRange
		}
		if a.Specialization == nil {
			a.Specialization = make(map[SizeBucket]uint64)
		}
		a.Specialization[bucket] = score
		return nil
	})
}

// BlacklistAdd records that the arbitrator refuses to serve the supplied
// party.
func (p *Pool) BlacklistAdd(addr [20]byte, party [20]byte) error {
	return p.update(addr, func(a *Arbitrator) error {
		if a.Blacklists(party) {
			return nil
		}
		a.Blacklist = append(a.Blacklist, party)
		return nil
	})
}

// BlacklistRemove lifts a previously recorded refusal.
func (p *Pool) BlacklistRemove(addr [20]byte, party [20]byte) error {
	return p.update(addr, func(a *Arbitrator) error {
		filtered := a.Blacklist[:0]
		for _, entry := range a.Blacklist {
			if entry != party {
				filtered = append(filtered, entry)
			}
		}
		a.Blacklist = filtered
		return nil
	})
}

// Complete releases one unit of the arbitrator's dispute capacity after a
// resolution. The assignment stamp stays: the dispute really was handled.
func (p *Pool) Complete(addr [20]byte) error {
	err := p.update(addr, func(a *Arbitrator) error {
		if a.ActiveDisputes > 0 {
			a.ActiveDisputes--
		}
		return nil
	})
	if err == nil {
		delete(p.prevStamps, addr)
	}
	return err
}

/// Rollback undoes a selection whose escrow transition never committed:
// capacity comes back and the assignment stamp reverts to its pre-selection
// value, so an assignment that never happened leaves no trace.
func (p *Pool) Rollback(addr [20]byte) error {
	err := p.update(addr, func(a *Arbitrator) error {
		if a.ActiveDisputes > 0 {
			a.ActiveDisputes--
		}
		if prev, ok := p.prevStamps[addr]; ok {
			a.LastAssignedAt = prev
		}
		return nil
	})
	if err == nil {
		delete(p.prevStamps, addr)
	}
	return err
}

// Get returns a copy of the roster entry for the supplied address.
func (p *Pool) Get(addr [20]byte) (*Arbitrator, bool, error) {
	state, err := p.withState()
	if err != nil {
		return nil, false, err
	}
	profile, ok := state.ArbitratorGet(addr)
	if !ok {
		return nil, false, nil
	}
	return profile.Clone(), true, nil
}
