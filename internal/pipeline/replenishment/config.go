package replenishment

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/andresuchdata/depot-replenishment/internal/config"
	"github.com/andresuchdata/depot-replenishment/internal/domain"
)

// Config carries every business constant the engine uses. Nothing in the
// package hard-codes these values.
type Config struct {
	CentralWarehouse      string
	FullTruckPallets      int
	DefaultUnitsPerPallet float64
	HighPriorityDays      float64
	MediumPriorityDays    float64
	DefaultSourcing       domain.SourcingTier
	AllowedDepots         []string
	KnownPackaging        []string
	MaxSuggestions        int
	WorkerCount           int
	ParallelThreshold     int
}

// DefaultConfig returns the production values.
func DefaultConfig() Config {
	return Config{
		CentralWarehouse:      "M210",
		FullTruckPallets:      24,
		DefaultUnitsPerPallet: 30,
		HighPriorityDays:      7,
		MediumPriorityDays:    30,
		DefaultSourcing:       domain.SourcingExternal,
		AllowedDepots:         config.DefaultAllowedDepots,
		KnownPackaging:        []string{"verre", "pet", "ciel"},
		MaxSuggestions:        5,
		WorkerCount:           4,
		ParallelThreshold:     5000,
	}
}

// ConfigFromSettings maps the REPLENISHMENT_* settings onto an engine config.
func ConfigFromSettings(s config.ReplenishmentConfig) (Config, error) {
	cfg := Config{
		CentralWarehouse:      strings.TrimSpace(s.CentralWarehouse),
		FullTruckPallets:      s.FullTruckPallets,
		DefaultUnitsPerPallet: s.DefaultUnitsPerPallet,
		HighPriorityDays:      s.HighPriorityDays,
		MediumPriorityDays:    s.MediumPriorityDays,
		AllowedDepots:         s.AllowedDepots,
		KnownPackaging:        s.KnownPackaging,
		MaxSuggestions:        s.MaxSuggestions,
		WorkerCount:           s.WorkerCount,
		ParallelThreshold:     s.ParallelThreshold,
	}

	tier, ok := domain.ParseSourcingTier(s.DefaultSourcing)
	if !ok {
		return Config{}, domain.NewConfigurationError("default sourcing", "unknown tier %q", s.DefaultSourcing)
	}
	cfg.DefaultSourcing = tier

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.CentralWarehouse == "" {
		return domain.NewConfigurationError("central warehouse", "must be set")
	}
	if c.FullTruckPallets <= 0 {
		return domain.NewConfigurationError("full truck pallets", "must be positive, got %d", c.FullTruckPallets)
	}
	if c.DefaultUnitsPerPallet <= 0 {
		return domain.NewConfigurationError("default units per pallet", "must be positive, got %v", c.DefaultUnitsPerPallet)
	}
	if c.HighPriorityDays <= 0 || c.MediumPriorityDays <= c.HighPriorityDays {
		return domain.NewConfigurationError("priority thresholds", "need 0 < high (%v) < medium (%v)", c.HighPriorityDays, c.MediumPriorityDays)
	}
	if _, err := parseDepotSet(c.AllowedDepots); err != nil {
		return err
	}
	return nil
}

// depotSet matches depot codes against explicit codes and inclusive ranges
// such as "M212-M280". An empty set allows every depot.
type depotSet struct {
	codes  map[string]struct{}
	ranges []depotRange
}

type depotRange struct {
	prefix   string
	from, to int
}

func parseDepotSet(entries []string) (*depotSet, error) {
	set := &depotSet{codes: make(map[string]struct{})}
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(entry, "-")
		if !isRange {
			set.codes[entry] = struct{}{}
			continue
		}

		loPrefix, loNum, err := splitDepotCode(strings.TrimSpace(lo))
		if err != nil {
			return nil, domain.NewConfigurationError("allowed depots", "bad range %q: %v", entry, err)
		}
		hiPrefix, hiNum, err := splitDepotCode(strings.TrimSpace(hi))
		if err != nil {
			return nil, domain.NewConfigurationError("allowed depots", "bad range %q: %v", entry, err)
		}
		if loPrefix != hiPrefix || loNum > hiNum {
			return nil, domain.NewConfigurationError("allowed depots", "bad range %q", entry)
		}
		set.ranges = append(set.ranges, depotRange{prefix: loPrefix, from: loNum, to: hiNum})
	}
	return set, nil
}

func splitDepotCode(code string) (string, int, error) {
	i := len(code)
	for i > 0 && code[i-1] >= '0' && code[i-1] <= '9' {
		i--
	}
	if i == len(code) {
		return "", 0, fmt.Errorf("no numeric part in %q", code)
	}
	n, err := strconv.Atoi(code[i:])
	if err != nil {
		return "", 0, err
	}
	return code[:i], n, nil
}

func (s *depotSet) empty() bool {
	return len(s.codes) == 0 && len(s.ranges) == 0
}

func (s *depotSet) allows(depot string) bool {
	if s.empty() {
		return true
	}
	if _, ok := s.codes[depot]; ok {
		return true
	}
	prefix, n, err := splitDepotCode(depot)
	if err != nil {
		return false
	}
	for _, r := range s.ranges {
		if r.prefix == prefix && n >= r.from && n <= r.to {
			return true
		}
	}
	return false
}
