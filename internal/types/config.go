package types

import "github.com/moznion/go-optional"

// BacktestConfig is the read-only input governing a single run, per spec.md §3/§6.
type BacktestConfig struct {
	InitialCash     float64 `yaml:"initial_cash" json:"initial_cash" jsonschema:"title=Initial Cash,description=Starting cash and equity,minimum=0" validate:"gte=0"`
	CommissionRate  float64 `yaml:"commission_rate" json:"commission_rate" jsonschema:"title=Commission Rate,description=Fraction of notional charged per fill,minimum=0" validate:"gte=0"`
	SlippageBps     float64 `yaml:"slippage_bps" json:"slippage_bps" jsonschema:"title=Slippage (bps),description=Adverse price shift in basis points on MARKET fills,minimum=0" validate:"gte=0"`
	StartTimeNs     int64   `yaml:"start_time_ns" json:"start_time_ns" jsonschema:"title=Start Time (ns),description=Window start; read from config but not applied: a run always replays the full stream"`
	EndTimeNs       int64   `yaml:"end_time_ns" json:"end_time_ns" jsonschema:"title=End Time (ns),description=Window end; read from config but not applied: a run always replays the full stream"`
	AllowShorting   bool    `yaml:"allow_shorting" json:"allow_shorting" jsonschema:"title=Allow Shorting"`
	FillVolumeLimit float64 `yaml:"fill_volume_limit" json:"fill_volume_limit" jsonschema:"title=Fill Volume Limit,description=Fraction of bar volume a single bar may fill,minimum=0,maximum=1" validate:"gte=0,lte=1"`
}

// DefaultBacktestConfig mirrors the defaults table in spec.md §6.
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		InitialCash:     100000,
		CommissionRate:  0.001,
		SlippageBps:     5.0,
		StartTimeNs:     0,
		EndTimeNs:       0,
		AllowShorting:   false,
		FillVolumeLimit: 1.0,
	}
}

// FeedConfig configures the historical Replay Scheduler, per spec.md §6.
type FeedConfig struct {
	DataDirectory string                     `yaml:"data_directory" json:"data_directory" validate:"required"`
	ReplaySpeed   float64                    `yaml:"replay_speed" json:"replay_speed" jsonschema:"description=0 means unpaced" validate:"gte=0"`
	Loop          bool                       `yaml:"loop" json:"loop"`
	CacheSizeMB   int                        `yaml:"cache_size_mb" json:"cache_size_mb" jsonschema:"description=advisory only"`
	StartDate     optional.Option[string]    `yaml:"start_date" json:"start_date"`
	EndDate       optional.Option[string]    `yaml:"end_date" json:"end_date"`
}
