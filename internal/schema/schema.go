package schema

import "strconv"

// Price is a scaled integer. The scale is defined per instrument.
type Price int64

func (p Price) AppendString(priceScale Scale, buf []byte) []byte {
	return appendScaledInt(buf, int64(p), int(priceScale))
}

// Quantity is a scaled integer. The scale is defined per instrument.
type Quantity int64

func (q Quantity) AppendString(quantityScale Scale, buf []byte) []byte {
	return appendScaledInt(buf, int64(q), int(quantityScale))
}

// MoneyScale is the fixed scale for all Money values.
const MoneyScale Scale = 8

// Money is a cash amount scaled by 1e8, always paired with a Currency.
type Money int64

func (m Money) String() string {
	return string(appendScaledInt(nil, int64(m), int(MoneyScale)))
}

// Currency is an ISO-style currency code, e.g. "USD".
type Currency string

// Scale is the number of decimal places used by a scaled integer.
// Example: Scale=8 means the integer value is scaled by 1e8.
type Scale int32

var pow10 = [...]int64{1, 10, 100, 1000, 10000, 100000, 1000000, 10000000,
	100000000, 1000000000, 10000000000, 100000000000, 1000000000000,
	10000000000000, 100000000000000, 1000000000000000}

// Pow10 returns 10^n for n in [0, 15].
func Pow10(n Scale) int64 {
	return pow10[n]
}

// Rescale converts a scaled integer from one scale to another, truncating
// toward zero when precision is lost.
func Rescale(value int64, from, to Scale) int64 {
	switch {
	case from == to:
		return value
	case from < to:
		return value * pow10[to-from]
	default:
		return value / pow10[from-to]
	}
}

func appendScaledInt(buf []byte, value int64, scale int) []byte {
	if scale <= 0 {
		return strconv.AppendInt(buf, value, 10)
	}

	neg := value < 0
	u := uint64(value)
	if neg {
		u = uint64(^value) + 1
	}

	var tmp [32]byte
	digits := strconv.AppendUint(tmp[:0], u, 10)

	if neg {
		buf = append(buf, '-')
	}

	if len(digits) <= scale {
		buf = append(buf, '0', '.')
		for i := 0; i < scale-len(digits); i++ {
			buf = append(buf, '0')
		}
		buf = append(buf, digits...)
		return buf
	}

	idx := len(digits) - scale
	buf = append(buf, digits[:idx]...)
	buf = append(buf, '.')
	buf = append(buf, digits[idx:]...)
	return buf
}

// ParseScaled parses a decimal string ("1.25", "-0.0003") into a scaled
// integer at the given scale. Excess fractional digits are an error rather
// than silently truncated.
func ParseScaled(s string, scale Scale) (int64, error) {
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	neg := false
	i := 0
	if s[0] == '+' || s[0] == '-' {
		neg = s[0] == '-'
		i = 1
	}
	var intPart, fracPart string
	for j := i; j < len(s); j++ {
		if s[j] == '.' {
			intPart = s[i:j]
			fracPart = s[j+1:]
			break
		}
	}
	if intPart == "" && fracPart == "" {
		intPart = s[i:]
	}
	if len(fracPart) > int(scale) {
		// Trailing zeros beyond the scale are harmless.
		for _, c := range fracPart[int(scale):] {
			if c != '0' {
				return 0, strconv.ErrRange
			}
		}
		fracPart = fracPart[:int(scale)]
	}
	value := int64(0)
	if intPart != "" {
		v, err := strconv.ParseInt(intPart, 10, 64)
		if err != nil {
			return 0, err
		}
		value = v * pow10[scale]
	}
	if fracPart != "" {
		f, err := strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return 0, err
		}
		value += f * pow10[int(scale)-len(fracPart)]
	}
	if neg {
		value = -value
	}
	return value, nil
}
