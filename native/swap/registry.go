package swap

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"pactnet/core/events"
	"pactnet/native/bank"
	"pactnet/native/common"
)

var (
	// ErrInvalidTokenOperation marks wrap/unwrap calls against tokens the
	// registry does not recognise, or malformed amounts.
	ErrInvalidTokenOperation = errors.New("swap: invalid token operation")
	// ErrTokenNotAllowed marks wrap requests for tokens missing from the
	// allow-list.
	ErrTokenNotAllowed = errors.New("swap: token not allow-listed")
	errNilState        = errors.New("swap registry: state not configured")
	errNilGateway      = errors.New("swap registry: transfer gateway not configured")
)

// registryState is the subset of state-manager functionality the registry
// requires.
type registryState interface {
	WrappedTokenGet(original string) (string, bool, error)
	OriginalTokenGet(wrapped string) (string, bool, error)
	WrappedPairPut(original, wrapped string) error
	TokenAllowed(token string) bool
}

// moduleName keys the registry's pause switch.
const moduleName = "swap"

// Registry maps original tokens to their wrapped counterparts, creating each
// wrapped representation lazily on the first wrap request. One wrapped token
// exists per original, created exactly once and cached in state.
type Registry struct {
	state   registryState
	gateway bank.Gateway
	emitter events.Emitter
	guard   *common.CallGuard
	pauses  common.PauseView
}

// NewRegistry creates a registry with a no-op emitter.
func NewRegistry() *Registry {
	return &Registry{
		emitter: events.NoopEmitter{},
		guard:   &common.CallGuard{},
	}
}

// SetState configures the state backend used by the registry.
func (r *Registry) SetState(state registryState) { r.state = state }

// SetGateway configures the asset-transfer capability.
func (r *Registry) SetGateway(gateway bank.Gateway) { r.gateway = gateway }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetPauses configures the administrative pause switch consulted at every
// mutating entry point.
func (r *Registry) SetPauses(pauses common.PauseView) { r.pauses = pauses }

func (r *Registry) ready() error {
	if r == nil || r.state == nil {
		return errNilState
	}
	if r.gateway == nil {
		return errNilGateway
	}
	return common.Guard(r.pauses, moduleName)
}

func (r *Registry) emit(evt events.Event) {
	if r == nil || r.emitter == nil || evt == nil {
		return
	}
	r.emitter.Emit(evt)
}

// WrapSymbol derives the canonical symbol of the wrapped representation for
// an original token.
func WrapSymbol(original string) string {
	return "W" + strings.ToUpper(strings.TrimSpace(original))
}

// WrappedID derives the stable 32-byte identifier for a wrapped
// representation, used in event payloads so observers can correlate wrap and
// unwrap flows without depending on symbol naming.
func WrappedID(original string) [32]byte {
	digest := ethcrypto.Keccak256([]byte("pactnet/swap/wrapped"), []byte(strings.ToLower(strings.TrimSpace(original))))
	var id [32]byte
	copy(id[:], digest)
	return id
}

// Wrap pulls amount of the original token from the caller, lazily creates the
// wrapped representation if this is the token's first wrap, and mints the
// wrapped amount to the caller. Returns the wrapped token symbol.
func (r *Registry) Wrap(caller [20]byte, token string, amount *big.Int) (string, error) {
	if err := r.ready(); err != nil {
		return "", err
	}
	if err := r.guard.Enter(); err != nil {
		return "", err
	}
	defer r.guard.Exit()

	normalized, err := bank.NormalizeToken(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTokenOperation, err)
	}
	if !r.state.TokenAllowed(normalized) {
		return "", ErrTokenNotAllowed
	}
	if amount == nil || amount.Sign() <= 0 {
		return "", fmt.Errorf("%w: amount must be positive", ErrInvalidTokenOperation)
	}
	asset, err := bank.FungibleAsset(normalized)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTokenOperation, err)
	}

	wrapped, ok, err := r.state.WrappedTokenGet(normalized)
	if err != nil {
		return "", err
	}
	if !ok {
		// At-most-once creation: the call guard serialises wrap requests,
		// so two first-wraps of the same token cannot interleave.
		wrapped = WrapSymbol(normalized)
		// The wrapped symbol must not shadow an allow-listed real token, or
		// minted balances would land in that token's bucket.
		if r.state.TokenAllowed(wrapped) {
			return "", fmt.Errorf("%w: wrapped symbol %s collides with an allow-listed token", ErrInvalidTokenOperation, wrapped)
		}
		if err := r.state.WrappedPairPut(normalized, wrapped); err != nil {
			return "", err
		}
	}
	// Deposit and mint commit together: a failed mint returns the deposit.
	journal := bank.NewJournal(r.gateway)
	if err := journal.TransferIn(asset, caller, amount); err != nil {
		return "", err
	}
	if err := journal.MintWrapped(wrapped, caller, amount); err != nil {
		return "", err
	}
	r.emit(NewWrappedEvent(normalized, wrapped, caller, amount))
	return wrapped, nil
}

// Unwrap burns amount of the wrapped token from the caller and pays out the
// original token one-to-one. Unknown wrapped tokens fail with
// ErrInvalidTokenOperation.
func (r *Registry) Unwrap(caller [20]byte, wrappedToken string, amount *big.Int) error {
	if err := r.ready(); err != nil {
		return err
	}
	if err := r.guard.Enter(); err != nil {
		return err
	}
	defer r.guard.Exit()

	normalized, err := bank.NormalizeToken(wrappedToken)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTokenOperation, err)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidTokenOperation)
	}
	original, ok, err := r.state.OriginalTokenGet(normalized)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no original token for %s", ErrInvalidTokenOperation, normalized)
	}
	asset, err := bank.FungibleAsset(original)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTokenOperation, err)
	}
	// Burn and payout commit together: a failed payout re-mints the burn.
	journal := bank.NewJournal(r.gateway)
	if err := journal.BurnWrapped(normalized, caller, amount); err != nil {
		return err
	}
	if err := journal.TransferOut(asset, caller, amount); err != nil {
		return err
	}
	r.emit(NewUnwrappedEvent(original, normalized, caller, amount))
	return nil
}
