package schema

import "fmt"

// VenueID is the numeric identifier for a venue.
type VenueID uint16

// InstrumentID is the numeric identifier for an instrument.
type InstrumentID uint32

// AssetClass describes what kind of contract an instrument is.
type AssetClass uint16

const (
	AssetUnknown AssetClass = iota
	AssetSpot
	AssetFX
	AssetFuture
	AssetOption
)

// OptionKind distinguishes calls from puts.
type OptionKind uint16

const (
	OptionNone OptionKind = iota
	OptionCall
	OptionPut
)

// SettlementStyle describes how an option settles at exercise.
type SettlementStyle uint16

const (
	SettleNone SettlementStyle = iota
	SettlePhysical
	SettleCash
)

// Venue describes a trading venue or broker.
type Venue struct {
	ID   VenueID
	Name string
}

// Instrument describes a tradable contract and its numeric conventions.
// Prices and quantities on this instrument are scaled integers using
// PriceScale and QuantityScale.
type Instrument struct {
	ID            InstrumentID
	VenueID       VenueID
	Symbol        string
	Class         AssetClass
	BaseCurrency  Currency
	QuoteCurrency Currency
	// SettlementCurrency is where commissions, PnL and module adjustments
	// are booked. Defaults to QuoteCurrency.
	SettlementCurrency Currency

	PriceScale    Scale
	QuantityScale Scale
	// PriceIncrement is the minimum price step, in PriceScale units.
	PriceIncrement Price
	// QuantityIncrement is the minimum size step, in QuantityScale units.
	QuantityIncrement Quantity
	// ContractSize is the contract multiplier in whole units (1 for spot/FX
	// quoted per unit, 100 for a standard equity option, etc).
	ContractSize int64

	// Option fields, zero unless Class == AssetOption.
	Underlying InstrumentID
	Strike     Price // in the underlying's PriceScale
	ExpiryNs   int64
	Kind       OptionKind
	Settlement SettlementStyle
}

// RoundQty snaps a quantity down to the instrument's quantity increment.
func (ins Instrument) RoundQty(q Quantity) Quantity {
	if ins.QuantityIncrement <= 0 {
		return q
	}
	return q - q%ins.QuantityIncrement
}

// Contracts returns the whole-contract count for a quantity, truncated.
func (ins Instrument) Contracts(q Quantity) int64 {
	return Rescale(int64(q), ins.QuantityScale, 0)
}

// Registry stores venue and instrument mappings in a compact form.
type Registry struct {
	venues         []Venue
	instruments    []Instrument
	venueByName    map[string]VenueID
	instrumentByID map[string]InstrumentID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		venueByName:    make(map[string]VenueID),
		instrumentByID: make(map[string]InstrumentID),
	}
}

// AddVenue registers a new venue and returns its ID.
func (r *Registry) AddVenue(name string) (VenueID, error) {
	if name == "" {
		return 0, fmt.Errorf("venue name is empty")
	}
	if id, ok := r.venueByName[name]; ok {
		return id, fmt.Errorf("venue already exists: %s", name)
	}
	id := VenueID(len(r.venues) + 1)
	r.venues = append(r.venues, Venue{ID: id, Name: name})
	r.venueByName[name] = id
	return id, nil
}

// AddInstrument registers a new instrument and returns its ID.
func (r *Registry) AddInstrument(ins Instrument) (InstrumentID, error) {
	if ins.Symbol == "" {
		return 0, fmt.Errorf("instrument symbol is empty")
	}
	if _, ok := r.Venue(ins.VenueID); !ok {
		return 0, fmt.Errorf("venue id not found: %d", ins.VenueID)
	}
	if _, ok := r.instrumentByID[ins.Symbol]; ok {
		return 0, fmt.Errorf("instrument already exists: %s", ins.Symbol)
	}
	if ins.PriceScale < 0 || ins.QuantityScale < 0 {
		return 0, fmt.Errorf("invalid scale for %s", ins.Symbol)
	}
	if ins.Class == AssetOption {
		if ins.Underlying == 0 {
			return 0, fmt.Errorf("option %s has no underlying", ins.Symbol)
		}
		if _, ok := r.Instrument(ins.Underlying); !ok {
			return 0, fmt.Errorf("option %s underlying not found: %d", ins.Symbol, ins.Underlying)
		}
		if ins.ExpiryNs <= 0 {
			return 0, fmt.Errorf("option %s has no expiry", ins.Symbol)
		}
		if ins.Settlement == SettleNone {
			return 0, fmt.Errorf("option %s has no settlement style", ins.Symbol)
		}
	}
	if ins.ContractSize <= 0 {
		ins.ContractSize = 1
	}
	if ins.SettlementCurrency == "" {
		ins.SettlementCurrency = ins.QuoteCurrency
	}
	ins.ID = InstrumentID(len(r.instruments) + 1)
	r.instruments = append(r.instruments, ins)
	r.instrumentByID[ins.Symbol] = ins.ID
	return ins.ID, nil
}

// Venue returns the venue by ID.
func (r *Registry) Venue(id VenueID) (Venue, bool) {
	if id == 0 || int(id) > len(r.venues) {
		return Venue{}, false
	}
	return r.venues[id-1], true
}

// Instrument returns the instrument by ID.
func (r *Registry) Instrument(id InstrumentID) (Instrument, bool) {
	if id == 0 || int(id) > len(r.instruments) {
		return Instrument{}, false
	}
	return r.instruments[id-1], true
}

// InstrumentBySymbol returns the instrument by symbol.
func (r *Registry) InstrumentBySymbol(symbol string) (Instrument, bool) {
	id, ok := r.instrumentByID[symbol]
	if !ok {
		return Instrument{}, false
	}
	return r.instruments[id-1], true
}

// VenueIDByName returns the venue ID by name.
func (r *Registry) VenueIDByName(name string) (VenueID, bool) {
	id, ok := r.venueByName[name]
	return id, ok
}

// InstrumentCount returns the number of instruments in the registry.
func (r *Registry) InstrumentCount() int {
	return len(r.instruments)
}

// InstrumentAt returns the instrument by zero-based index.
func (r *Registry) InstrumentAt(index int) (Instrument, bool) {
	if index < 0 || index >= len(r.instruments) {
		return Instrument{}, false
	}
	return r.instruments[index], true
}
