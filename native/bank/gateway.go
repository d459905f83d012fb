package bank

import (
	"errors"
	"math/big"
)

var (
	// ErrInvalidAsset marks transfers against malformed asset tags or
	// non-positive amounts.
	ErrInvalidAsset = errors.New("bank: invalid asset")
	// ErrInsufficientBalance is returned when the debited account cannot
	// cover the transfer.
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	// ErrInsufficientSupply is returned when a burn exceeds the tracked
	// wrapped supply.
	ErrInsufficientSupply = errors.New("bank: insufficient wrapped supply")
	errNilState           = errors.New("bank: state not configured")
)

// Gateway is the uniform asset-movement capability consumed by the escrow and
// swap engines. Every method either fully applies or fails with no effect;
// callers treat any error as fatal to the enclosing operation.
type Gateway interface {
	// TransferIn pulls amount of asset from the supplied account into the
	// module vault holding that asset.
	TransferIn(asset Asset, from [20]byte, amount *big.Int) error
	// TransferOut pays amount of asset from the module vault to the supplied
	// account.
	TransferOut(asset Asset, to [20]byte, amount *big.Int) error
	// MintWrapped issues amount of a wrapped token to the supplied account.
	MintWrapped(token string, to [20]byte, amount *big.Int) error
	// BurnWrapped destroys amount of a wrapped token held by the supplied
	// account.
	BurnWrapped(token string, from [20]byte, amount *big.Int) error
}
