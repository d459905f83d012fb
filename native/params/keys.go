package params

const (
	// ParamsKeyPlatformPolicy stores the escrow fee/threshold configuration.
	ParamsKeyPlatformPolicy = "params/platform_policy"
	// ParamsKeyFeeCollector stores the account receiving platform fees.
	ParamsKeyFeeCollector = "params/fee_collector"
	// ParamsKeySelection stores the arbitrator-selection policy knobs.
	ParamsKeySelection = "params/selection"

	// ParamsKeyPausePrefix prefixes the per-module pause switches, keyed by
	// module name.
	ParamsKeyPausePrefix = "params/paused/"
)
