package params

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"pactnet/native/arbitration"
	"pactnet/native/bank"
	"pactnet/native/fees"
)

var (
	// ErrUnauthorized marks mutating calls from non-administrator accounts.
	ErrUnauthorized = errors.New("params: unauthorized access")
	// ErrTokenReserved marks allow-list additions whose symbol already names
	// a wrapped representation.
	ErrTokenReserved = errors.New("params: token symbol reserved by a wrapped representation")
)

// StoreState captures the subset of state-manager capabilities required by
// the administration surface.
type StoreState interface {
	ParamStoreSet(name string, value []byte) error
	ParamStoreGet(name string) ([]byte, bool, error)
	TokenAllowlistSet(token string, allowed bool) error
	TokenAllowed(token string) bool
	OriginalTokenGet(wrapped string) (string, bool, error)
}

// Authorizer is the externally supplied administrator predicate.
type Authorizer interface {
	IsAdmin(addr [20]byte) bool
}

// PlatformPolicy bundles the escrow thresholds governance may tune. All
// bounds are validated before any state mutation.
type PlatformPolicy struct {
	FeeBps            uint32   `json:"feeBps"`
	MinEscrowAmount   *big.Int `json:"minEscrowAmount"`
	DisputeFee        *big.Int `json:"disputeFee"`
	DisputeWindowSecs int64    `json:"disputeWindowSecs"`
}

// Validate checks the policy against the hard platform bounds.
func (p PlatformPolicy) Validate() error {
	if err := fees.ValidateRate(p.FeeBps); err != nil {
		return err
	}
	if p.MinEscrowAmount == nil || p.MinEscrowAmount.Sign() <= 0 {
		return fmt.Errorf("%w: minimum escrow amount must be positive", fees.ErrInvalidFeeConfiguration)
	}
	if p.DisputeFee == nil || p.DisputeFee.Sign() < 0 {
		return fmt.Errorf("%w: dispute fee must be non-negative", fees.ErrInvalidFeeConfiguration)
	}
	if p.DisputeWindowSecs <= 0 {
		return fmt.Errorf("%w: dispute window must be positive", fees.ErrInvalidFeeConfiguration)
	}
	return nil
}

// Store provides typed, authority-checked accessors for platform parameters
// and roster administration.
type Store struct {
	state StoreState
	auth  Authorizer
	pool  *arbitration.Pool
}

// NewStore constructs an administration surface over the supplied state and
// authority predicate.
func NewStore(state StoreState, auth Authorizer) *Store {
	return &Store{state: state, auth: auth}
}

// SetPool wires the arbitrator roster so administrators can manage it through
// the same guarded surface.
func (s *Store) SetPool(pool *arbitration.Pool) { s.pool = pool }

func (s *Store) withState() (StoreState, error) {
	if s == nil || s.state == nil {
		return nil, fmt.Errorf("params: state not configured")
	}
	return s.state, nil
}

func (s *Store) authorize(caller [20]byte) error {
	if s == nil || s.auth == nil || !s.auth.IsAdmin(caller) {
		return ErrUnauthorized
	}
	return nil
}

// SetPolicy validates and persists the platform policy.
func (s *Store) SetPolicy(caller [20]byte, policy PlatformPolicy) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	if err := s.authorize(caller); err != nil {
		return err
	}
	if err := policy.Validate(); err != nil {
		return err
	}
	encoded, err := json.Marshal(policy)
	if err != nil {
		return fmt.Errorf("params: encode policy: %w", err)
	}
	return state.ParamStoreSet(ParamsKeyPlatformPolicy, encoded)
}

// Policy loads the persisted platform policy. When unset, ok is false and
// callers fall back to their defaults.
func (s *Store) Policy() (PlatformPolicy, bool, error) {
	state, err := s.withState()
	if err != nil {
		return PlatformPolicy{}, false, err
	}
	raw, ok, err := state.ParamStoreGet(ParamsKeyPlatformPolicy)
	if err != nil || !ok {
		return PlatformPolicy{}, false, err
	}
	var policy PlatformPolicy
	if err := json.Unmarshal(raw, &policy); err != nil {
		return PlatformPolicy{}, false, fmt.Errorf("params: decode policy: %w", err)
	}
	return policy, true, nil
}

// SelectionParams bundles the arbitrator-selection knobs governance may tune.
type SelectionParams struct {
	MinReputation     uint64   `json:"minReputation"`
	MaxActiveDisputes uint32   `json:"maxActiveDisputes"`
	CandidateCap      int      `json:"candidateCap"`
	BaseUnit          *big.Int `json:"baseUnit"`
}

// Validate checks the selection knobs for internal consistency.
func (p SelectionParams) Validate() error {
	if p.MaxActiveDisputes == 0 {
		return fmt.Errorf("params: max active disputes must be positive")
	}
	if p.CandidateCap < 1 {
		return fmt.Errorf("params: candidate cap must be at least 1")
	}
	if p.BaseUnit == nil || p.BaseUnit.Sign() <= 0 {
		return fmt.Errorf("params: base unit must be positive")
	}
	return nil
}

// SetSelection validates and persists the arbitrator-selection parameters.
func (s *Store) SetSelection(caller [20]byte, selection SelectionParams) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	if err := s.authorize(caller); err != nil {
		return err
	}
	if err := selection.Validate(); err != nil {
		return err
	}
	encoded, err := json.Marshal(selection)
	if err != nil {
		return fmt.Errorf("params: encode selection: %w", err)
	}
	return state.ParamStoreSet(ParamsKeySelection, encoded)
}

// Selection loads the persisted selection parameters. When unset, ok is false
// and callers fall back to their defaults.
func (s *Store) Selection() (SelectionParams, bool, error) {
	state, err := s.withState()
	if err != nil {
		return SelectionParams{}, false, err
	}
	raw, ok, err := state.ParamStoreGet(ParamsKeySelection)
	if err != nil || !ok {
		return SelectionParams{}, false, err
	}
	var selection SelectionParams
	if err := json.Unmarshal(raw, &selection); err != nil {
		return SelectionParams{}, false, fmt.Errorf("params: decode selection: %w", err)
	}
	return selection, true, nil
}

// SetFeeCollector persists the account receiving platform and dispute fees.
func (s *Store) SetFeeCollector(caller, collector [20]byte) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	if err := s.authorize(caller); err != nil {
		return err
	}
	if collector == ([20]byte{}) {
		return fmt.Errorf("%w: fee collector required", fees.ErrInvalidFeeConfiguration)
	}
	encoded, err := json.Marshal(collector)
	if err != nil {
		return fmt.Errorf("params: encode collector: %w", err)
	}
	return state.ParamStoreSet(ParamsKeyFeeCollector, encoded)
}

// FeeCollector loads the configured fee collector address.
func (s *Store) FeeCollector() ([20]byte, bool, error) {
	state, err := s.withState()
	if err != nil {
		return [20]byte{}, false, err
	}
	raw, ok, err := state.ParamStoreGet(ParamsKeyFeeCollector)
	if err != nil || !ok {
		return [20]byte{}, false, err
	}
	var collector [20]byte
	if err := json.Unmarshal(raw, &collector); err != nil {
		return [20]byte{}, false, fmt.Errorf("params: decode collector: %w", err)
	}
	return collector, true, nil
}

// AllowToken adds a token to the escrow allow-list.
func (s *Store) AllowToken(caller [20]byte, token string) error {
	return s.setTokenAllowed(caller, token, true)
}

// DisallowToken removes a token from the escrow allow-list. Existing records
// on the token are unaffected; only new creations are blocked.
func (s *Store) DisallowToken(caller [20]byte, token string) error {
	return s.setTokenAllowed(caller, token, false)
}

func (s *Store) setTokenAllowed(caller [20]byte, token string, allowed bool) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	if err := s.authorize(caller); err != nil {
		return err
	}
	symbol, err := bank.NormalizeToken(token)
	if err != nil {
		return err
	}
	if allowed {
		// A wrapped representation already mints under this symbol; listing
		// it as a deposit token would merge two unrelated balances.
		if _, taken, err := state.OriginalTokenGet(symbol); err != nil {
			return err
		} else if taken {
			return fmt.Errorf("%w: %s", ErrTokenReserved, symbol)
		}
	}
	return state.TokenAllowlistSet(symbol, allowed)
}

// SetPaused flips the pause switch for a module's mutating operations.
func (s *Store) SetPaused(caller [20]byte, module string, paused bool) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	if err := s.authorize(caller); err != nil {
		return err
	}
	if module == "" {
		return fmt.Errorf("params: module name required")
	}
	encoded, err := json.Marshal(paused)
	if err != nil {
		return fmt.Errorf("params: encode pause switch: %w", err)
	}
	return state.ParamStoreSet(ParamsKeyPausePrefix+module, encoded)
}

// IsPaused reports whether a module's mutating operations are suspended.
// Lookup failures read as running, so a broken store never bricks the chain.
func (s *Store) IsPaused(module string) bool {
	state, err := s.withState()
	if err != nil {
		return false
	}
	raw, ok, err := state.ParamStoreGet(ParamsKeyPausePrefix + module)
	if err != nil || !ok {
		return false
	}
	var paused bool
	if err := json.Unmarshal(raw, &paused); err != nil {
		return false
	}
	return paused
}

// RegisterArbitrator enrolls a new arbitrator through the roster pool.
func (s *Store) RegisterArbitrator(caller [20]byte, profile *arbitration.Arbitrator) (*arbitration.Arbitrator, error) {
	if err := s.authorize(caller); err != nil {
		return nil, err
	}
	if s.pool == nil {
		return nil, fmt.Errorf("params: arbitrator pool not configured")
	}
	return s.pool.Register(profile)
}

// RemoveArbitrator withdraws an arbitrator from candidacy.
func (s *Store) RemoveArbitrator(caller, arbitrator [20]byte) error {
	return s.withPool(caller, func(pool *arbitration.Pool) error {
		return pool.Leave(arbitrator)
	})
}

// SetArbitratorAvailability toggles an arbitrator's candidacy flag.
func (s *Store) SetArbitratorAvailability(caller, arbitrator [20]byte, available bool) error {
	return s.withPool(caller, func(pool *arbitration.Pool) error {
		return pool.SetAvailability(arbitrator, available)
	})
}

// SetArbitratorReputation records an arbitrator's platform reputation score.
func (s *Store) SetArbitratorReputation(caller, arbitrator [20]byte, reputation uint64) error {
	return s.withPool(caller, func(pool *arbitration.Pool) error {
		return pool.SetReputation(arbitrator, reputation)
	})
}

// SetArbitratorResponseTime records an arbitrator's average response time.
func (s *Store) SetArbitratorResponseTime(caller, arbitrator [20]byte, seconds int64) error {
	return s.withPool(caller, func(pool *arbitration.Pool) error {
		return pool.SetResponseTime(arbitrator, seconds)
	})
}

// SetArbitratorSpecialization records an arbitrator's score for a dispute-size
// bucket.
func (s *Store) SetArbitratorSpecialization(caller, arbitrator [20]byte, bucket arbitration.SizeBucket, score uint64) error {
	return s.withPool(caller, func(pool *arbitration.Pool) error {
		return pool.SetSpecialization(arbitrator, bucket, score)
	})
}

// BlacklistParty adds a party to an arbitrator's refusal list.
func (s *Store) BlacklistParty(caller, arbitrator, party [20]byte) error {
	return s.withPool(caller, func(pool *arbitration.Pool) error {
		return pool.BlacklistAdd(arbitrator, party)
	})
}

// UnblacklistParty removes a party from an arbitrator's refusal list.
func (s *Store) UnblacklistParty(caller, arbitrator, party [20]byte) error {
	return s.withPool(caller, func(pool *arbitration.Pool) error {
		return pool.BlacklistRemove(arbitrator, party)
	})
}

func (s *Store) withPool(caller [20]byte, fn func(*arbitration.Pool) error) error {
	if err := s.authorize(caller); err != nil {
		return err
	}
	if s.pool == nil {
		return fmt.Errorf("params: arbitrator pool not configured")
	}
	return fn(s.pool)
}
