package allocator

import "github.com/morezero/coretime-allocator/pkg/codec"

// BrokerConfig is the marketplace configuration the allocator runs under. The allocator
// does not act on these values; they are reported for operators and clients.
type BrokerConfig struct {
	BrokerPalletID   string          `json:"brokerPalletId"`
	BrokerAccount    codec.AccountID `json:"brokerAccount"`
	StakingPotID     string          `json:"stakingPotId"`
	StakingPot       codec.AccountID `json:"stakingPot"`
	TimeslicePeriod  uint32          `json:"timeslicePeriod"`
	MaxLeasedCores   uint32          `json:"maxLeasedCores"`
	MaxReservedCores uint32          `json:"maxReservedCores"`
	PriceAdapter     string          `json:"priceAdapter"`
	AdminOrigin      string          `json:"adminOrigin"`
	CoreCapacity     int             `json:"coreCapacity"`
	TestHooks        bool            `json:"testHooks"`
}

// DefaultBrokerConfig returns the relay chain runtime defaults.
func DefaultBrokerConfig() BrokerConfig {
	broker, _ := codec.PalletAccount(codec.BrokerPalletID)
	pot, _ := codec.PalletAccount(codec.StakingPotID)
	return BrokerConfig{
		BrokerPalletID:   codec.BrokerPalletID,
		BrokerAccount:    broker,
		StakingPotID:     codec.StakingPotID,
		StakingPot:       pot,
		TimeslicePeriod:  40,
		MaxLeasedCores:   5,
		MaxReservedCores: 5,
		PriceAdapter:     "linear",
		AdminOrigin:      "root",
		CoreCapacity:     codec.CoreCapacity,
	}
}

// Config returns the broker configuration with the live test hook flag.
func (a *Allocator) Config() BrokerConfig {
	cfg := a.config
	cfg.TestHooks = a.TestHooksEnabled()
	return cfg
}
