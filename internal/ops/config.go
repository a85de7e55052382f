package ops

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/yanun0323/decimal"

	"main/internal/exchange"
	"main/internal/fee"
	"main/internal/fill"
	"main/internal/latency"
	"main/internal/risk"
	"main/internal/schema"
	"main/internal/simmod"
)

// FileConfig mirrors the JSON config layout. Monetary values are decimal
// strings and get converted into scaled integers while resolving.
type FileConfig struct {
	Registry RegistryConfig  `json:"registry"`
	Account  AccountConfig   `json:"account"`
	Fill     fill.Config     `json:"fill"`
	Latency  latency.Model   `json:"latency"`
	Fee      FeeConfig       `json:"fee"`
	Risk     risk.Config     `json:"risk"`
	Modules  ModulesConfig   `json:"modules"`
	Journal  JournalConfig   `json:"journal"`
}

// RegistryConfig defines venue and instrument mappings.
type RegistryConfig struct {
	Venues      []VenueConfig      `json:"venues"`
	Instruments []InstrumentConfig `json:"instruments"`
}

// VenueConfig describes a venue entry.
type VenueConfig struct {
	Name string `json:"name"`
}

// InstrumentConfig describes one instrument entry. Class is one of "spot",
// "fx", "future", "option". Increments are decimal strings in natural
// units, e.g. "0.01".
type InstrumentConfig struct {
	Symbol             string          `json:"symbol"`
	Venue              string          `json:"venue"`
	Class              string          `json:"class"`
	BaseCurrency       string          `json:"baseCurrency"`
	QuoteCurrency      string          `json:"quoteCurrency"`
	SettlementCurrency string          `json:"settlementCurrency"`
	PriceScale         schema.Scale    `json:"priceScale"`
	QuantityScale      schema.Scale    `json:"quantityScale"`
	PriceIncrement     decimal.Decimal `json:"priceIncrement"`
	QuantityIncrement  decimal.Decimal `json:"quantityIncrement"`
	ContractSize       int64           `json:"contractSize"`

	// Option fields.
	Underlying string          `json:"underlying"`
	Strike     decimal.Decimal `json:"strike"`
	ExpiryNs   int64           `json:"expiryNs"`
	Kind       string          `json:"kind"`
	Settlement string          `json:"settlement"`
}

// AccountConfig describes the simulated account.
type AccountConfig struct {
	// StartingBalances maps currency to a decimal amount, e.g. "100000".
	StartingBalances map[string]decimal.Decimal `json:"startingBalances"`
	// Frozen locks balances for the whole run.
	Frozen bool `json:"frozen"`
}

// FeeConfig selects and parameterizes the commission model. Model is one of
// "maker_taker", "fixed", "per_contract".
type FeeConfig struct {
	Model   string          `json:"model"`
	Maker   decimal.Decimal `json:"maker"`
	Taker   decimal.Decimal `json:"taker"`
	Amount  decimal.Decimal `json:"amount"`
	PerFill bool            `json:"perFill"`
	Rate    decimal.Decimal `json:"rate"`
}

// ModulesConfig enables the simulation modules.
type ModulesConfig struct {
	Rollover       *simmod.RolloverConfig `json:"rollover"`
	OptionExercise bool                   `json:"optionExercise"`
}

// JournalConfig points the optional run journal at a database.
type JournalConfig struct {
	Enabled bool   `json:"enabled"`
	DSN     string `json:"dsn"`
	RunID   string `json:"runId"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Registry *schema.Registry
	Account  exchange.Config
	Fill     fill.Config
	Latency  latency.Model
	Fee      fee.Model
	Risk     risk.Config
	Modules  []simmod.Module
	Journal  JournalConfig
}

// Load reads a JSON config file and resolves everything the run needs.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, err
	}
	return Resolve(cfg)
}

// LoadRegistry reads a JSON config file and only builds the registry.
func LoadRegistry(path string) (*schema.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return buildRegistry(cfg.Registry)
}

// Resolve turns a parsed FileConfig into runtime objects.
func Resolve(cfg FileConfig) (Loaded, error) {
	registry, err := buildRegistry(cfg.Registry)
	if err != nil {
		return Loaded{}, err
	}
	account, err := resolveAccount(cfg.Account)
	if err != nil {
		return Loaded{}, err
	}
	if err := cfg.Fill.Validate(); err != nil {
		return Loaded{}, err
	}
	if err := cfg.Latency.Validate(); err != nil {
		return Loaded{}, err
	}
	feeModel, err := resolveFee(cfg.Fee)
	if err != nil {
		return Loaded{}, err
	}
	modules, err := resolveModules(cfg.Modules)
	if err != nil {
		return Loaded{}, err
	}
	return Loaded{
		Registry: registry,
		Account:  account,
		Fill:     cfg.Fill,
		Latency:  cfg.Latency,
		Fee:      feeModel,
		Risk:     cfg.Risk,
		Modules:  modules,
		Journal:  cfg.Journal,
	}, nil
}

func buildRegistry(cfg RegistryConfig) (*schema.Registry, error) {
	reg := schema.NewRegistry()
	for _, venue := range cfg.Venues {
		if _, err := reg.AddVenue(venue.Name); err != nil {
			return nil, err
		}
	}
	for _, ic := range cfg.Instruments {
		ins, err := resolveInstrument(ic, reg)
		if err != nil {
			return nil, err
		}
		if _, err := reg.AddInstrument(ins); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func resolveInstrument(ic InstrumentConfig, reg *schema.Registry) (schema.Instrument, error) {
	venueID, ok := reg.VenueIDByName(ic.Venue)
	if !ok {
		return schema.Instrument{}, fmt.Errorf("venue not found: %s", ic.Venue)
	}
	class, err := parseClass(ic.Class)
	if err != nil {
		return schema.Instrument{}, fmt.Errorf("instrument %s: %w", ic.Symbol, err)
	}

	ins := schema.Instrument{
		VenueID:            venueID,
		Symbol:             ic.Symbol,
		Class:              class,
		BaseCurrency:       schema.Currency(ic.BaseCurrency),
		QuoteCurrency:      schema.Currency(ic.QuoteCurrency),
		SettlementCurrency: schema.Currency(ic.SettlementCurrency),
		PriceScale:         ic.PriceScale,
		QuantityScale:      ic.QuantityScale,
		ContractSize:       ic.ContractSize,
		ExpiryNs:           ic.ExpiryNs,
	}

	if s := ic.PriceIncrement.String(); s != "" && s != "0" {
		v, err := schema.ParseScaled(s, ic.PriceScale)
		if err != nil {
			return schema.Instrument{}, fmt.Errorf("instrument %s: priceIncrement: %w", ic.Symbol, err)
		}
		ins.PriceIncrement = schema.Price(v)
	}
	if s := ic.QuantityIncrement.String(); s != "" && s != "0" {
		v, err := schema.ParseScaled(s, ic.QuantityScale)
		if err != nil {
			return schema.Instrument{}, fmt.Errorf("instrument %s: quantityIncrement: %w", ic.Symbol, err)
		}
		ins.QuantityIncrement = schema.Quantity(v)
	}

	if class == schema.AssetOption {
		und, ok := reg.InstrumentBySymbol(ic.Underlying)
		if !ok {
			return schema.Instrument{}, fmt.Errorf("instrument %s: underlying not found: %s", ic.Symbol, ic.Underlying)
		}
		ins.Underlying = und.ID
		strike, err := schema.ParseScaled(ic.Strike.String(), und.PriceScale)
		if err != nil {
			return schema.Instrument{}, fmt.Errorf("instrument %s: strike: %w", ic.Symbol, err)
		}
		ins.Strike = schema.Price(strike)
		if ins.Kind, err = parseOptionKind(ic.Kind); err != nil {
			return schema.Instrument{}, fmt.Errorf("instrument %s: %w", ic.Symbol, err)
		}
		if ins.Settlement, err = parseSettlement(ic.Settlement); err != nil {
			return schema.Instrument{}, fmt.Errorf("instrument %s: %w", ic.Symbol, err)
		}
	}

	return ins, nil
}

func parseClass(s string) (schema.AssetClass, error) {
	switch s {
	case "spot":
		return schema.AssetSpot, nil
	case "fx":
		return schema.AssetFX, nil
	case "future":
		return schema.AssetFuture, nil
	case "option":
		return schema.AssetOption, nil
	default:
		return schema.AssetUnknown, fmt.Errorf("unknown asset class %q", s)
	}
}

func parseOptionKind(s string) (schema.OptionKind, error) {
	switch s {
	case "call":
		return schema.OptionCall, nil
	case "put":
		return schema.OptionPut, nil
	default:
		return schema.OptionNone, fmt.Errorf("unknown option kind %q", s)
	}
}

func parseSettlement(s string) (schema.SettlementStyle, error) {
	switch s {
	case "physical":
		return schema.SettlePhysical, nil
	case "cash":
		return schema.SettleCash, nil
	default:
		return schema.SettleNone, fmt.Errorf("unknown settlement style %q", s)
	}
}

func resolveAccount(cfg AccountConfig) (exchange.Config, error) {
	out := exchange.Config{
		StartingBalances: make(map[schema.Currency]schema.Money, len(cfg.StartingBalances)),
		Frozen:           cfg.Frozen,
	}
	for ccy, amount := range cfg.StartingBalances {
		v, err := schema.ParseScaled(amount.String(), schema.MoneyScale)
		if err != nil {
			return exchange.Config{}, fmt.Errorf("starting balance %s: %w", ccy, err)
		}
		out.StartingBalances[schema.Currency(ccy)] = schema.Money(v)
	}
	return out, nil
}

func resolveFee(cfg FeeConfig) (fee.Model, error) {
	switch cfg.Model {
	case "", "maker_taker":
		return fee.NewMakerTaker(decString(cfg.Maker), decString(cfg.Taker))
	case "fixed":
		amount, err := schema.ParseScaled(decString(cfg.Amount), schema.MoneyScale)
		if err != nil {
			return nil, fmt.Errorf("fee amount: %w", err)
		}
		return fee.Fixed{Amount: schema.Money(amount), PerFill: cfg.PerFill}, nil
	case "per_contract":
		rate, err := schema.ParseScaled(decString(cfg.Rate), schema.MoneyScale)
		if err != nil {
			return nil, fmt.Errorf("fee rate: %w", err)
		}
		return fee.PerContract{Rate: schema.Money(rate)}, nil
	default:
		return nil, fmt.Errorf("unknown fee model %q", cfg.Model)
	}
}

// decString treats an absent decimal field as zero.
func decString(d decimal.Decimal) string {
	if s := d.String(); s != "" {
		return s
	}
	return "0"
}

func resolveModules(cfg ModulesConfig) ([]simmod.Module, error) {
	var modules []simmod.Module
	if cfg.Rollover != nil {
		m, err := simmod.NewRolloverInterest(*cfg.Rollover)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	if cfg.OptionExercise {
		modules = append(modules, simmod.NewOptionExercise())
	}
	return modules, nil
}
