package types

import "math/big"

// Account tracks the balances held by a single address. BalancePCT is the
// chain-native currency; Balances carries fungible and wrapped token holdings
// keyed by canonical token symbol.
type Account struct {
	Nonce      uint64              `json:"nonce"`
	BalancePCT *big.Int            `json:"balancePCT"`
	Balances   map[string]*big.Int `json:"balances,omitempty"`
}

// NewAccount returns an account with all balance fields initialised.
func NewAccount() *Account {
	return &Account{
		BalancePCT: big.NewInt(0),
		Balances:   make(map[string]*big.Int),
	}
}

// Normalize ensures every balance field is non-nil so callers can perform
// arithmetic without nil checks.
func (a *Account) Normalize() *Account {
	if a == nil {
		return NewAccount()
	}
	if a.BalancePCT == nil {
		a.BalancePCT = big.NewInt(0)
	}
	if a.Balances == nil {
		a.Balances = make(map[string]*big.Int)
	}
	return a
}

// TokenBalance returns the balance held for the supplied token symbol. The
// returned value is the stored instance; callers mutate it through SetTokenBalance.
func (a *Account) TokenBalance(token string) *big.Int {
	if a == nil || a.Balances == nil {
		return big.NewInt(0)
	}
	bal, ok := a.Balances[token]
	if !ok || bal == nil {
		return big.NewInt(0)
	}
	return bal
}

// SetTokenBalance records the balance for the supplied token symbol.
func (a *Account) SetTokenBalance(token string, amount *big.Int) {
	if a == nil {
		return
	}
	if a.Balances == nil {
		a.Balances = make(map[string]*big.Int)
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	a.Balances[token] = new(big.Int).Set(amount)
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return NewAccount()
	}
	clone := NewAccount()
	clone.Nonce = a.Nonce
	if a.BalancePCT != nil {
		clone.BalancePCT = new(big.Int).Set(a.BalancePCT)
	}
	for token, bal := range a.Balances {
		if bal != nil {
			clone.Balances[token] = new(big.Int).Set(bal)
		}
	}
	return clone
}
