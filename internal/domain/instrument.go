package domain

import (
	"strings"
)

// Instrument identifies a tradable security by its exchange-qualified
// symbol, e.g. "700.HK" or "AAPL.US". Equality is exact string equality;
// the value is used as the sole key into the market store and alert index.
type Instrument string

// ParseInstrument validates the "CODE.MARKET" form.
func ParseInstrument(s string) (Instrument, error) {
	code, market, ok := strings.Cut(s, ".")
	if !ok || code == "" || market == "" {
		return "", ErrInvalidInstrument
	}
	return Instrument(strings.ToUpper(code) + "." + strings.ToUpper(market)), nil
}

// Code returns the symbol part before the market suffix.
func (i Instrument) Code() string {
	code, _, _ := strings.Cut(string(i), ".")
	return code
}

// Market returns the market suffix ("HK", "US", "SG", ...).
func (i Instrument) Market() string {
	_, market, _ := strings.Cut(string(i), ".")
	return market
}

func (i Instrument) String() string {
	return string(i)
}
