package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/efreitasn/stocktrader/internal/domain"
)

// Seed is the initial instrument catalog and account balances loaded at
// startup. Entries already present in storage are left untouched.
type Seed struct {
	Instruments []InstrumentSeed `yaml:"instruments"`
	Accounts    []AccountSeed    `yaml:"accounts"`
}

// InstrumentSeed is one catalog entry. Price is in dollars.
type InstrumentSeed struct {
	Symbol string  `yaml:"symbol"`
	Name   string  `yaml:"name"`
	Price  float64 `yaml:"price"`
}

// AccountSeed is one funded account. Cash is in dollars.
type AccountSeed struct {
	ID   string  `yaml:"id"`
	Cash float64 `yaml:"cash"`
}

// DefaultSeed returns the built-in catalog and accounts.
func DefaultSeed() *Seed {
	return &Seed{
		Instruments: []InstrumentSeed{
			{Symbol: "ABC", Name: "ABC Corporation", Price: 120.00},
			{Symbol: "XYZ", Name: "XYZ Limited", Price: 45.50},
			{Symbol: "TCS", Name: "TCS Ltd", Price: 3500.00},
		},
		Accounts: []AccountSeed{
			{ID: "1", Cash: 100000.00},
			{ID: "2", Cash: 50000.00},
		},
	}
}

// LoadSeed reads a YAML seed file. An empty path returns DefaultSeed.
func LoadSeed(path string) (*Seed, error) {
	if path == "" {
		return DefaultSeed(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	if _, err := seed.InstrumentList(); err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}
	if _, err := seed.AccountBalances(); err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}
	return &seed, nil
}

// InstrumentList converts the seed instruments to cents.
func (s *Seed) InstrumentList() ([]domain.Instrument, error) {
	out := make([]domain.Instrument, 0, len(s.Instruments))
	seen := make(map[string]bool, len(s.Instruments))
	for _, inst := range s.Instruments {
		if inst.Symbol == "" {
			return nil, fmt.Errorf("instrument symbol is required")
		}
		if seen[inst.Symbol] {
			return nil, fmt.Errorf("duplicate instrument %s", inst.Symbol)
		}
		seen[inst.Symbol] = true

		price, err := domain.DollarsToCents(inst.Price)
		if err != nil {
			return nil, fmt.Errorf("instrument %s: %w", inst.Symbol, err)
		}
		if price <= 0 {
			return nil, fmt.Errorf("instrument %s: price must be > 0", inst.Symbol)
		}
		name := inst.Name
		if name == "" {
			name = inst.Symbol
		}
		out = append(out, domain.Instrument{Symbol: inst.Symbol, Name: name, Price: price})
	}
	return out, nil
}

// AccountBalances converts the seed accounts to cents, in file order.
func (s *Seed) AccountBalances() ([]domain.AccountState, error) {
	out := make([]domain.AccountState, 0, len(s.Accounts))
	seen := make(map[string]bool, len(s.Accounts))
	for _, a := range s.Accounts {
		if a.ID == "" {
			return nil, fmt.Errorf("account id is required")
		}
		if seen[a.ID] {
			return nil, fmt.Errorf("duplicate account %s", a.ID)
		}
		seen[a.ID] = true

		cash, err := domain.DollarsToCents(a.Cash)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", a.ID, err)
		}
		if cash < 0 {
			return nil, fmt.Errorf("account %s: cash must be >= 0", a.ID)
		}
		out = append(out, domain.AccountState{AccountID: a.ID, Balance: cash})
	}
	return out, nil
}
