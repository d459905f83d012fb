package bank

import (
	"fmt"
	"math/big"

	"pactnet/core/types"
)

// VaultState is the subset of state-manager functionality the vault-backed
// gateway requires.
type VaultState interface {
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
	// VaultAddress resolves the module account holding deposits of the
	// supplied asset.
	VaultAddress(asset Asset) ([20]byte, error)
	WrappedSupply(token string) (*big.Int, error)
	SetWrappedSupply(token string, supply *big.Int) error
}

// Vault implements Gateway on top of account balances tracked in state. Each
// asset is held by a dedicated module vault account so escrowed funds never
// mingle with user balances.
type Vault struct {
	state VaultState
}

// NewVault constructs a gateway backed by the supplied state.
func NewVault(state VaultState) *Vault {
	return &Vault{state: state}
}

func (v *Vault) withState() (VaultState, error) {
	if v == nil || v.state == nil {
		return nil, errNilState
	}
	return v.state, nil
}

func validAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAsset)
	}
	return nil
}

// move debits amount of asset from one account and credits it to another.
// Both account writes happen only after the debit is known to be covered, so
// a failed move leaves neither side changed.
func (v *Vault) move(asset Asset, from, to [20]byte, amount *big.Int) error {
	state, err := v.withState()
	if err != nil {
		return err
	}
	if !asset.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidAsset, asset)
	}
	if err := validAmount(amount); err != nil {
		return err
	}
	fromAcc, err := state.GetAccount(from)
	if err != nil {
		return err
	}
	toAcc, err := state.GetAccount(to)
	if err != nil {
		return err
	}
	fromAcc = fromAcc.Normalize()
	toAcc = toAcc.Normalize()
	if asset.IsNative() {
		if fromAcc.BalancePCT.Cmp(amount) < 0 {
			return ErrInsufficientBalance
		}
		fromAcc.BalancePCT = new(big.Int).Sub(fromAcc.BalancePCT, amount)
		toAcc.BalancePCT = new(big.Int).Add(toAcc.BalancePCT, amount)
	} else {
		token := asset.Symbol()
		balance := fromAcc.TokenBalance(token)
		if balance.Cmp(amount) < 0 {
			return ErrInsufficientBalance
		}
		fromAcc.SetTokenBalance(token, new(big.Int).Sub(balance, amount))
		toAcc.SetTokenBalance(token, new(big.Int).Add(toAcc.TokenBalance(token), amount))
	}
	if err := state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return state.PutAccount(to, toAcc)
}

// TransferIn implements Gateway.
func (v *Vault) TransferIn(asset Asset, from [20]byte, amount *big.Int) error {
	state, err := v.withState()
	if err != nil {
		return err
	}
	vault, err := state.VaultAddress(asset)
	if err != nil {
		return err
	}
	return v.move(asset, from, vault, amount)
}

// TransferOut implements Gateway.
func (v *Vault) TransferOut(asset Asset, to [20]byte, amount *big.Int) error {
	state, err := v.withState()
	if err != nil {
		return err
	}
	vault, err := state.VaultAddress(asset)
	if err != nil {
		return err
	}
	return v.move(asset, vault, to, amount)
}

// MintWrapped implements Gateway.
func (v *Vault) MintWrapped(token string, to [20]byte, amount *big.Int) error {
	state, err := v.withState()
	if err != nil {
		return err
	}
	normalized, err := NormalizeToken(token)
	if err != nil {
		return err
	}
	if err := validAmount(amount); err != nil {
		return err
	}
	acc, err := state.GetAccount(to)
	if err != nil {
		return err
	}
	acc = acc.Normalize()
	acc.SetTokenBalance(normalized, new(big.Int).Add(acc.TokenBalance(normalized), amount))
	supply, err := state.WrappedSupply(normalized)
	if err != nil {
		return err
	}
	if supply == nil {
		supply = big.NewInt(0)
	}
	if err := state.PutAccount(to, acc); err != nil {
		return err
	}
	return state.SetWrappedSupply(normalized, new(big.Int).Add(supply, amount))
}

// BurnWrapped implements Gateway.
func (v *Vault) BurnWrapped(token string, from [20]byte, amount *big.Int) error {
	state, err := v.withState()
	if err != nil {
		return err
	}
	normalized, err := NormalizeToken(token)
	if err != nil {
		return err
	}
	if err := validAmount(amount); err != nil {
		return err
	}
	acc, err := state.GetAccount(from)
	if err != nil {
		return err
	}
	acc = acc.Normalize()
	balance := acc.TokenBalance(normalized)
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	supply, err := state.WrappedSupply(normalized)
	if err != nil {
		return err
	}
	if supply == nil || supply.Cmp(amount) < 0 {
		return ErrInsufficientSupply
	}
	acc.SetTokenBalance(normalized, new(big.Int).Sub(balance, amount))
	if err := state.PutAccount(from, acc); err != nil {
		return err
	}
	return state.SetWrappedSupply(normalized, new(big.Int).Sub(supply, amount))
}
