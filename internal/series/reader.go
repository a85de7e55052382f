package series

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/yanun0323/errors"

	"main/internal/schema"
)

var (
	ErrBadHeader     = errors.New("bad series header")
	ErrBadRow        = errors.New("bad series row")
	ErrOutOfOrder    = errors.New("series timestamps not strictly increasing")
	ErrUnknownSymbol = errors.New("series symbol not in registry")
)

// header is the required column order. Trade rows leave the quote columns
// empty and quote rows leave price/size empty.
const header = "ts,symbol,kind,price,size,bid,bid_size,ask,ask_size"

const columns = 9

// Reader streams historical ticks from a CSV source in timeline order.
// Timestamps must be strictly increasing; a single ordered file is the
// whole timeline, so an out-of-order row aborts the run rather than being
// silently reordered.
type Reader struct {
	sc     *bufio.Scanner
	reg    *schema.Registry
	line   int
	lastTs int64
}

// NewReader wraps a CSV source and validates the header row.
func NewReader(r io.Reader, reg *schema.Registry) (*Reader, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, errors.Wrap(ErrBadHeader, "empty input")
	}
	if got := strings.TrimSpace(sc.Text()); got != header {
		return nil, errors.Wrapf(ErrBadHeader, "want %q, got %q", header, got)
	}
	return &Reader{sc: sc, reg: reg, line: 1}, nil
}

// Next returns the next tick, or io.EOF when the series is exhausted.
func (r *Reader) Next() (schema.MarketData, error) {
	for r.sc.Scan() {
		r.line++
		row := strings.TrimSpace(r.sc.Text())
		if row == "" {
			continue
		}
		md, err := r.parseRow(row)
		if err != nil {
			return schema.MarketData{}, err
		}
		if md.TsEvent <= r.lastTs {
			return schema.MarketData{}, errors.Wrapf(ErrOutOfOrder, "line %d: ts %d after %d", r.line, md.TsEvent, r.lastTs)
		}
		r.lastTs = md.TsEvent
		return md, nil
	}
	if err := r.sc.Err(); err != nil {
		return schema.MarketData{}, err
	}
	return schema.MarketData{}, io.EOF
}

// Line returns the last line number read, for error reporting.
func (r *Reader) Line() int { return r.line }

func (r *Reader) parseRow(row string) (schema.MarketData, error) {
	fields := strings.Split(row, ",")
	if len(fields) != columns {
		return schema.MarketData{}, errors.Wrapf(ErrBadRow, "line %d: want %d fields, got %d", r.line, columns, len(fields))
	}

	ts, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return schema.MarketData{}, errors.Wrapf(ErrBadRow, "line %d: ts: %s", r.line, err)
	}

	ins, ok := r.reg.InstrumentBySymbol(fields[1])
	if !ok {
		return schema.MarketData{}, errors.Wrapf(ErrUnknownSymbol, "line %d: %s", r.line, fields[1])
	}

	md := schema.MarketData{
		InstrumentID: ins.ID,
		TsEvent:      ts,
	}

	switch fields[2] {
	case "trade":
		md.Kind = schema.MarketDataTrade
		if md.Price, err = r.price(fields[3], ins); err != nil {
			return schema.MarketData{}, err
		}
		if md.Size, err = r.size(fields[4], ins); err != nil {
			return schema.MarketData{}, err
		}
		if md.Price <= 0 {
			return schema.MarketData{}, errors.Wrapf(ErrBadRow, "line %d: trade requires a price", r.line)
		}
	case "quote":
		md.Kind = schema.MarketDataQuote
		if md.BidPrice, err = r.price(fields[5], ins); err != nil {
			return schema.MarketData{}, err
		}
		if md.BidSize, err = r.size(fields[6], ins); err != nil {
			return schema.MarketData{}, err
		}
		if md.AskPrice, err = r.price(fields[7], ins); err != nil {
			return schema.MarketData{}, err
		}
		if md.AskSize, err = r.size(fields[8], ins); err != nil {
			return schema.MarketData{}, err
		}
		if md.BidPrice <= 0 && md.AskPrice <= 0 {
			return schema.MarketData{}, errors.Wrapf(ErrBadRow, "line %d: quote requires a bid or ask", r.line)
		}
	default:
		return schema.MarketData{}, errors.Wrapf(ErrBadRow, "line %d: unknown kind %q", r.line, fields[2])
	}

	return md, nil
}

func (r *Reader) price(s string, ins schema.Instrument) (schema.Price, error) {
	if s == "" {
		return 0, nil
	}
	v, err := schema.ParseScaled(s, ins.PriceScale)
	if err != nil {
		return 0, errors.Wrapf(ErrBadRow, "line %d: price %q: %s", r.line, s, err)
	}
	return schema.Price(v), nil
}

func (r *Reader) size(s string, ins schema.Instrument) (schema.Quantity, error) {
	if s == "" {
		return 0, nil
	}
	v, err := schema.ParseScaled(s, ins.QuantityScale)
	if err != nil {
		return 0, errors.Wrapf(ErrBadRow, "line %d: size %q: %s", r.line, s, err)
	}
	return schema.Quantity(v), nil
}
