package costing

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultDayRate applies to trades with no configured rate.
const defaultDayRate = 250

// DefaultDayRates returns the built-in trade day rates in GBP.
func DefaultDayRates() map[string]float64 {
	return map[string]float64{
		"electrician":  320,
		"plumber":      340,
		"carpenter":    280,
		"joiner":       280,
		"plasterer":    260,
		"tiler":        270,
		"decorator":    220,
		"bricklayer":   300,
		"roofer":       290,
		"groundworker": 240,
		"landscaper":   230,
		"laborer":      180,
	}
}

// ratesFile is the on-disk shape of a day-rate override file.
type ratesFile struct {
	DayRates map[string]float64 `yaml:"day_rates"`
}

// LoadDayRates reads a YAML rate file and merges it over the defaults.
func LoadDayRates(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rates: %w", err)
	}

	var file ratesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rates: %w", err)
	}

	rates := DefaultDayRates()
	for trade, rate := range file.DayRates {
		rates[strings.ToLower(strings.TrimSpace(trade))] = rate
	}
	return rates, nil
}

// DayRate returns the rate for a trade, falling back to the default rate
// for unknown trades.
func DayRate(rates map[string]float64, trade string) float64 {
	if rate, ok := rates[strings.ToLower(strings.TrimSpace(trade))]; ok {
		return rate
	}
	return defaultDayRate
}
