package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// CommissionConfig carries the payout constants applied by the calculators.
// Values live in commission.yml so finance can tune them without a deploy.
type CommissionConfig struct {
	// Sales
	InboundFactor        float64 `mapstructure:"inboundFactor"`
	TeamLeadTarget       int     `mapstructure:"teamLeadTarget"`
	TeamLeadBonusPerLead float64 `mapstructure:"teamLeadBonusPerLead"`

	// Dispatch
	PenaltyFloor        float64 `mapstructure:"penaltyFloor"`
	PenaltyPct          float64 `mapstructure:"penaltyPct"`
	FirstTwoWeeksPct    float64 `mapstructure:"firstTwoWeeksPct"`
	OwnLeadBonus        float64 `mapstructure:"ownLeadBonus"`
	NewLeadBonus        float64 `mapstructure:"newLeadBonus"`
	ActiveTruckBonus    float64 `mapstructure:"activeTruckBonus"`
	ActiveTruckMinLeads int     `mapstructure:"activeTruckMinLeads"`
	HighVolumeBonus     float64 `mapstructure:"highVolumeBonus"`
	HighVolumeMinLeads  int     `mapstructure:"highVolumeMinLeads"`
}

func DefaultCommissionConfig() CommissionConfig {
	return CommissionConfig{
		InboundFactor:        0.75,
		TeamLeadTarget:       10,
		TeamLeadBonusPerLead: 1000,

		PenaltyFloor:        650,
		PenaltyPct:          -25,
		FirstTwoWeeksPct:    3,
		OwnLeadBonus:        50,
		NewLeadBonus:        100,
		ActiveTruckBonus:    25,
		ActiveTruckMinLeads: 3,
		HighVolumeBonus:     200,
		HighVolumeMinLeads:  5,
	}
}

// CommissionConfigHolder exposes the current commission constants and hot
// reloads them when the backing file changes.
type CommissionConfigHolder struct {
	current atomic.Value // holds CommissionConfig
}

func NewCommissionConfigHolder() (*CommissionConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("commission")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/haulbase/config")
	v.AddConfigPath("/etc/haulbase")
	v.AddConfigPath(".")

	v.SetEnvPrefix("HAULBASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultCommissionConfig()
	v.SetDefault("commission", defaults)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg CommissionConfig
	if err := v.UnmarshalKey("commission", &cfg); err != nil {
		return nil, err
	}
	if err := validateCommissionConfig(cfg); err != nil {
		return nil, err
	}

	holder := &CommissionConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated CommissionConfig
		if err := v.UnmarshalKey("commission", &updated); err != nil {
			log.Printf("[commission-config] reload failed: %v", err)
			return
		}
		if err := validateCommissionConfig(updated); err != nil {
			log.Printf("[commission-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[commission-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticCommissionConfigHolder returns a holder pinned to cfg, for tests.
func NewStaticCommissionConfigHolder(cfg CommissionConfig) *CommissionConfigHolder {
	holder := &CommissionConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *CommissionConfigHolder) Get() CommissionConfig {
	return h.current.Load().(CommissionConfig)
}

func validateCommissionConfig(cfg CommissionConfig) error {
	if cfg.InboundFactor <= 0 || cfg.InboundFactor > 1 {
		return errors.New("commission.inboundFactor must be in (0, 1]")
	}
	if cfg.TeamLeadTarget < 0 || cfg.TeamLeadBonusPerLead < 0 {
		return errors.New("commission team lead settings must be non-negative")
	}
	if cfg.PenaltyFloor < 0 {
		return errors.New("commission.penaltyFloor must be non-negative")
	}
	if cfg.PenaltyPct > 0 {
		return errors.New("commission.penaltyPct must be zero or negative")
	}
	if cfg.FirstTwoWeeksPct < 0 {
		return errors.New("commission.firstTwoWeeksPct must be non-negative")
	}
	if cfg.OwnLeadBonus < 0 || cfg.NewLeadBonus < 0 || cfg.ActiveTruckBonus < 0 || cfg.HighVolumeBonus < 0 {
		return errors.New("commission bonuses must be non-negative")
	}
	if cfg.ActiveTruckMinLeads < 0 || cfg.HighVolumeMinLeads < 0 {
		return errors.New("commission bonus thresholds must be non-negative")
	}
	return nil
}
