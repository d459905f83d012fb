package bank

import (
	"errors"
	"fmt"
	"math/big"
)

var errNilGateway = errors.New("bank: gateway not configured")

// Journal wraps a Gateway so a multi-transfer operation applies every step or
// none. Each completed step records its reversal; the first failing step
// unwinds the completed prefix in reverse order before the error is returned,
// so no partial transfer is ever retained.
type Journal struct {
	gateway Gateway
	undo    []func() error
}

// NewJournal starts a journalled sequence over the supplied gateway.
func NewJournal(gateway Gateway) *Journal {
	return &Journal{gateway: gateway}
}

func (j *Journal) run(op func() error, reverse func() error) error {
	if j == nil || j.gateway == nil {
		return errNilGateway
	}
	if err := op(); err != nil {
		return j.unwind(err)
	}
	j.undo = append(j.undo, reverse)
	return nil
}

func (j *Journal) unwind(cause error) error {
	for i := len(j.undo) - 1; i >= 0; i-- {
		if err := j.undo[i](); err != nil {
			return fmt.Errorf("%w: unwind failed: %v", cause, err)
		}
	}
	j.undo = nil
	return cause
}

// Revert reverses every step applied so far. Callers use it when a failure
// after the transfer sequence (a rejected state write) must also give the
// funds back.
func (j *Journal) Revert() error {
	if j == nil {
		return nil
	}
	for i := len(j.undo) - 1; i >= 0; i-- {
		if err := j.undo[i](); err != nil {
			return err
		}
	}
	j.undo = nil
	return nil
}

// TransferIn implements Gateway. A later failure reverses it by paying the
// amount back out of the vault.
func (j *Journal) TransferIn(asset Asset, from [20]byte, amount *big.Int) error {
	return j.run(
		func() error { return j.gateway.TransferIn(asset, from, amount) },
		func() error { return j.gateway.TransferOut(asset, from, amount) },
	)
}

// TransferOut implements Gateway. A later failure reverses it by pulling the
// amount back from the recipient, which is always covered since the recipient
// just received it.
func (j *Journal) TransferOut(asset Asset, to [20]byte, amount *big.Int) error {
	return j.run(
		func() error { return j.gateway.TransferOut(asset, to, amount) },
		func() error { return j.gateway.TransferIn(asset, to, amount) },
	)
}

// MintWrapped implements Gateway. A later failure reverses it by burning the
// minted amount.
func (j *Journal) MintWrapped(token string, to [20]byte, amount *big.Int) error {
	return j.run(
		func() error { return j.gateway.MintWrapped(token, to, amount) },
		func() error { return j.gateway.BurnWrapped(token, to, amount) },
	)
}

// BurnWrapped implements Gateway. A later failure reverses it by re-minting
// the burned amount.
func (j *Journal) BurnWrapped(token string, from [20]byte, amount *big.Int) error {
	return j.run(
		func() error { return j.gateway.BurnWrapped(token, from, amount) },
		func() error { return j.gateway.MintWrapped(token, from, amount) },
	)
}
