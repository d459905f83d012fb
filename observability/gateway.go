package observability

import (
	"math/big"

	"pactnet/native/bank"
)

// InstrumentedGateway decorates a bank.Gateway with Prometheus transfer
// counters. Only successful operations are counted; a rejected transfer
// moved nothing.
type InstrumentedGateway struct {
	next    bank.Gateway
	metrics *ledgerMetrics
}

// NewInstrumentedGateway wraps next so every completed vault movement is
// recorded under its asset symbol.
func NewInstrumentedGateway(next bank.Gateway) *InstrumentedGateway {
	return &InstrumentedGateway{next: next, metrics: Ledger()}
}

// TransferIn implements bank.Gateway.
func (g *InstrumentedGateway) TransferIn(asset bank.Asset, from [20]byte, amount *big.Int) error {
	if err := g.next.TransferIn(asset, from, amount); err != nil {
		return err
	}
	g.metrics.RecordTransfer(asset.Symbol())
	return nil
}

// TransferOut implements bank.Gateway.
func (g *InstrumentedGateway) TransferOut(asset bank.Asset, to [20]byte, amount *big.Int) error {
	if err := g.next.TransferOut(asset, to, amount); err != nil {
		return err
	}
	g.metrics.RecordTransfer(asset.Symbol())
	return nil
}

// MintWrapped implements bank.Gateway.
func (g *InstrumentedGateway) MintWrapped(token string, to [20]byte, amount *big.Int) error {
	if err := g.next.MintWrapped(token, to, amount); err != nil {
		return err
	}
	g.metrics.RecordTransfer(token)
	return nil
}

// BurnWrapped implements bank.Gateway.
func (g *InstrumentedGateway) BurnWrapped(token string, from [20]byte, amount *big.Int) error {
	if err := g.next.BurnWrapped(token, from, amount); err != nil {
		return err
	}
	g.metrics.RecordTransfer(token)
	return nil
}
