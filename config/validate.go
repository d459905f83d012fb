package config

import (
	"fmt"

	"pactnet/native/fees"
)

// MinDisputeWindowSecs bounds how short governance may set the evidence
// window.
var MinDisputeWindowSecs = int64(3600)

func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}
	if err := fees.ValidateRate(cfg.Escrow.FeeBps); err != nil {
		return fmt.Errorf("escrow: %w", err)
	}
	minAmount, err := ParseAmount(cfg.Escrow.MinEscrowAmount)
	if err != nil {
		return fmt.Errorf("escrow: MinEscrowAmount: %w", err)
	}
	if minAmount.Sign() <= 0 {
		return fmt.Errorf("escrow: MinEscrowAmount must be positive")
	}
	if _, err := ParseAmount(cfg.Escrow.DisputeFee); err != nil {
		return fmt.Errorf("escrow: DisputeFee: %w", err)
	}
	if cfg.Escrow.DisputeWindowSecs < MinDisputeWindowSecs {
		return fmt.Errorf("escrow: DisputeWindowSecs below minimum %d", MinDisputeWindowSecs)
	}
	if cfg.Arbitration.CandidateCap < 1 {
		return fmt.Errorf("arbitration: CandidateCap < 1")
	}
	if cfg.Arbitration.MaxActiveDisputes == 0 {
		return fmt.Errorf("arbitration: MaxActiveDisputes == 0")
	}
	baseUnit, err := ParseAmount(cfg.Arbitration.BaseUnit)
	if err != nil {
		return fmt.Errorf("arbitration: BaseUnit: %w", err)
	}
	if baseUnit.Sign() <= 0 {
		return fmt.Errorf("arbitration: BaseUnit must be positive")
	}
	if cfg.FeeCollector != "" {
		if _, err := ParseAddress(cfg.FeeCollector); err != nil {
			return fmt.Errorf("FeeCollector: %w", err)
		}
	}
	for _, account := range cfg.AdminAccounts {
		if _, err := ParseAddress(account); err != nil {
			return fmt.Errorf("AdminAccounts: %w", err)
		}
	}
	return nil
}
