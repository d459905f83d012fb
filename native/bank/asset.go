package bank

import (
	"fmt"
	"strings"
)

// NativeSymbol is the display symbol for the chain-native currency. Native
// assets carry no token identifier on the wire; the empty identifier is the
// sentinel.
const NativeSymbol = "PCT"

// AssetKind discriminates the three asset families the gateway can move.
type AssetKind uint8

const (
	// AssetNative is the chain's base currency.
	AssetNative AssetKind = iota
	// AssetFungible is an allow-listed standard fungible token.
	AssetFungible
	// AssetWrapped is a minted representation of a deposited original token.
	AssetWrapped
)

// Asset tags an amount with the family it belongs to. Only non-native kinds
// carry a token identifier, which keeps the illegal combination of a native
// asset with a token unrepresentable through the constructors.
type Asset struct {
	Kind  AssetKind `json:"kind"`
	Token string    `json:"token,omitempty"`
}

// NativeAsset returns the asset tag for the chain-native currency.
func NativeAsset() Asset {
	return Asset{Kind: AssetNative}
}

// FungibleAsset builds the asset tag for a standard fungible token.
func FungibleAsset(token string) (Asset, error) {
	normalized, err := NormalizeToken(token)
	if err != nil {
		return Asset{}, err
	}
	return Asset{Kind: AssetFungible, Token: normalized}, nil
}

// WrappedAsset builds the asset tag for a wrapped token representation.
func WrappedAsset(token string) (Asset, error) {
	normalized, err := NormalizeToken(token)
	if err != nil {
		return Asset{}, err
	}
	return Asset{Kind: AssetWrapped, Token: normalized}, nil
}

// NormalizeToken canonicalises a token symbol to trimmed uppercase.
func NormalizeToken(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed == "" {
		return "", fmt.Errorf("bank: token symbol required")
	}
	return trimmed, nil
}

// IsNative reports whether the asset is the chain-native currency.
func (a Asset) IsNative() bool { return a.Kind == AssetNative }

// Valid reports whether the tag is internally consistent.
func (a Asset) Valid() bool {
	switch a.Kind {
	case AssetNative:
		return a.Token == ""
	case AssetFungible, AssetWrapped:
		return strings.TrimSpace(a.Token) != ""
	default:
		return false
	}
}

// Symbol returns the identifier used for balance bookkeeping and event
// attributes.
func (a Asset) Symbol() string {
	if a.IsNative() {
		return NativeSymbol
	}
	return a.Token
}

// String implements fmt.Stringer for logs and errors.
func (a Asset) String() string {
	switch a.Kind {
	case AssetNative:
		return NativeSymbol
	case AssetFungible:
		return a.Token
	case AssetWrapped:
		return a.Token + " (wrapped)"
	default:
		return fmt.Sprintf("unknown asset kind %d", a.Kind)
	}
}
