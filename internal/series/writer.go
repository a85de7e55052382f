package series

import (
	"bufio"
	"io"
	"strconv"

	"github.com/yanun0323/errors"

	"main/internal/schema"
)

// Writer emits ticks in the CSV layout Reader consumes.
type Writer struct {
	w   *bufio.Writer
	reg *schema.Registry
	buf []byte
}

// NewWriter wraps a destination and writes the header row.
func NewWriter(w io.Writer, reg *schema.Registry) (*Writer, error) {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(header + "\n"); err != nil {
		return nil, err
	}
	return &Writer{w: bw, reg: reg, buf: make([]byte, 0, 128)}, nil
}

// Write appends one tick row.
func (w *Writer) Write(md schema.MarketData) error {
	ins, ok := w.reg.Instrument(md.InstrumentID)
	if !ok {
		return errors.Wrapf(ErrUnknownSymbol, "instrument %d", md.InstrumentID)
	}

	b := w.buf[:0]
	b = strconv.AppendInt(b, md.TsEvent, 10)
	b = append(b, ',')
	b = append(b, ins.Symbol...)
	b = append(b, ',')
	if md.Kind == schema.MarketDataQuote {
		b = append(b, "quote,,,"...)
		b = md.BidPrice.AppendString(ins.PriceScale, b)
		b = append(b, ',')
		b = md.BidSize.AppendString(ins.QuantityScale, b)
		b = append(b, ',')
		b = md.AskPrice.AppendString(ins.PriceScale, b)
		b = append(b, ',')
		b = md.AskSize.AppendString(ins.QuantityScale, b)
	} else {
		b = append(b, "trade,"...)
		b = md.Price.AppendString(ins.PriceScale, b)
		b = append(b, ',')
		b = md.Size.AppendString(ins.QuantityScale, b)
		b = append(b, ",,,,"...)
	}
	b = append(b, '\n')
	w.buf = b

	_, err := w.w.Write(b)
	return err
}

// Flush pushes buffered rows to the destination.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
