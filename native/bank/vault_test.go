package bank

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"pactnet/core/types"
)

type mockVaultState struct {
	accounts map[[20]byte]*types.Account
	supplies map[string]*big.Int
}

func newMockVaultState() *mockVaultState {
	return &mockVaultState{
		accounts: make(map[[20]byte]*types.Account),
		supplies: make(map[string]*big.Int),
	}
}

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func (m *mockVaultState) GetAccount(addr [20]byte) (*types.Account, error) {
	acc, ok := m.accounts[addr]
	if !ok {
		return types.NewAccount(), nil
	}
	return acc.Clone(), nil
}

func (m *mockVaultState) PutAccount(addr [20]byte, account *types.Account) error {
	m.accounts[addr] = account.Clone()
	return nil
}

func (m *mockVaultState) VaultAddress(asset Asset) ([20]byte, error) {
	if !asset.Valid() {
		return [20]byte{}, ErrInvalidAsset
	}
	// Deterministic per-symbol vault for tests.
	var addr [20]byte
	addr[0] = 0xF0
	symbol := asset.Symbol()
	copy(addr[1:], symbol)
	return addr, nil
}

func (m *mockVaultState) WrappedSupply(token string) (*big.Int, error) {
	supply, ok := m.supplies[token]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(supply), nil
}

func (m *mockVaultState) SetWrappedSupply(token string, supply *big.Int) error {
	m.supplies[token] = new(big.Int).Set(supply)
	return nil
}

func (m *mockVaultState) fund(addr [20]byte, asset Asset, amount int64) {
	acc, _ := m.GetAccount(addr)
	acc = acc.Normalize()
	if asset.IsNative() {
		acc.BalancePCT = big.NewInt(amount)
	} else {
		acc.SetTokenBalance(asset.Symbol(), big.NewInt(amount))
	}
	m.accounts[addr] = acc
}

func (m *mockVaultState) balance(addr [20]byte, asset Asset) *big.Int {
	acc, _ := m.GetAccount(addr)
	acc = acc.Normalize()
	if asset.IsNative() {
		return acc.BalancePCT
	}
	return acc.TokenBalance(asset.Symbol())
}

func TestVaultTransferInOut(t *testing.T) {
	state := newMockVaultState()
	vault := NewVault(state)
	buyer := testAddr(0x01)
	seller := testAddr(0x02)
	native := NativeAsset()
	state.fund(buyer, native, 1000)

	if err := vault.TransferIn(native, buyer, big.NewInt(400)); err != nil {
		t.Fatalf("transfer in: %v", err)
	}
	if got := state.balance(buyer, native); got.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("buyer balance = %s, want 600", got)
	}
	if err := vault.TransferOut(native, seller, big.NewInt(400)); err != nil {
		t.Fatalf("transfer out: %v", err)
	}
	if got := state.balance(seller, native); got.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("seller balance = %s, want 400", got)
	}
}

func TestVaultTransferInsufficientBalance(t *testing.T) {
	state := newMockVaultState()
	vault := NewVault(state)
	buyer := testAddr(0x01)
	token, err := FungibleAsset("usdx")
	if err != nil {
		t.Fatalf("asset: %v", err)
	}
	state.fund(buyer, token, 10)

	err = vault.TransferIn(token, buyer, big.NewInt(11))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	// A failed move leaves both sides untouched.
	if got := state.balance(buyer, token); got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("buyer balance changed after failed transfer: %s", got)
	}
}

func TestVaultRejectsInvalidAmounts(t *testing.T) {
	vault := NewVault(newMockVaultState())
	buyer := testAddr(0x01)
	for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-5)} {
		if err := vault.TransferIn(NativeAsset(), buyer, amount); !errors.Is(err, ErrInvalidAsset) {
			t.Fatalf("amount %v: expected ErrInvalidAsset, got %v", amount, err)
		}
	}
}

func TestVaultMintBurnWrapped(t *testing.T) {
	state := newMockVaultState()
	vault := NewVault(state)
	holder := testAddr(0x07)

	if err := vault.MintWrapped("WUSDX", holder, big.NewInt(25)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	supply, _ := state.WrappedSupply("WUSDX")
	if supply.Cmp(big.NewInt(25)) != 0 {
		t.Fatalf("supply = %s, want 25", supply)
	}

	if err := vault.BurnWrapped("WUSDX", holder, big.NewInt(30)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("over-burn: expected ErrInsufficientBalance, got %v", err)
	}
	if err := vault.BurnWrapped("WUSDX", holder, big.NewInt(25)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	supply, _ = state.WrappedSupply("WUSDX")
	if supply.Sign() != 0 {
		t.Fatalf("supply after burn = %s, want 0", supply)
	}
}

func TestAssetConstructors(t *testing.T) {
	if !NativeAsset().Valid() || !NativeAsset().IsNative() {
		t.Fatalf("native asset tag invalid")
	}
	asset, err := FungibleAsset("  usdx ")
	if err != nil {
		t.Fatalf("fungible: %v", err)
	}
	if asset.Token != "USDX" || asset.Kind != AssetFungible {
		t.Fatalf("unexpected normalized asset %+v", asset)
	}
	if _, err := WrappedAsset("   "); err == nil {
		t.Fatalf("blank wrapped token must fail")
	}
	if (Asset{Kind: AssetNative, Token: "PCT"}).Valid() {
		t.Fatalf("native asset with token must be invalid")
	}
}
