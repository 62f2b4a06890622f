package domain

// CandlePeriod is a closed enumeration of chart periods
type CandlePeriod string

const (
	PeriodMin1  CandlePeriod = "1m"
	PeriodMin5  CandlePeriod = "5m"
	PeriodMin15 CandlePeriod = "15m"
	PeriodMin60 CandlePeriod = "60m"
	PeriodDay   CandlePeriod = "1d"
	PeriodWeek  CandlePeriod = "1w"
	PeriodMonth CandlePeriod = "1M"
	PeriodYear  CandlePeriod = "1y"
)

// candlePeriodCycle is the order used when the user cycles chart periods
var candlePeriodCycle = []CandlePeriod{
	PeriodMin1, PeriodMin5, PeriodMin15, PeriodMin60,
	PeriodDay, PeriodWeek, PeriodMonth, PeriodYear,
}

// Next returns the following period in the cycle, wrapping around.
func (p CandlePeriod) Next() CandlePeriod {
	for i, c := range candlePeriodCycle {
		if c == p {
			return candlePeriodCycle[(i+1)%len(candlePeriodCycle)]
		}
	}
	return PeriodDay
}

// Prev returns the preceding period in the cycle, wrapping around.
func (p CandlePeriod) Prev() CandlePeriod {
	for i, c := range candlePeriodCycle {
		if c == p {
			return candlePeriodCycle[(i-1+len(candlePeriodCycle))%len(candlePeriodCycle)]
		}
	}
	return PeriodDay
}

// Valid reports whether p is one of the known periods.
func (p CandlePeriod) Valid() bool {
	for _, c := range candlePeriodCycle {
		if c == p {
			return true
		}
	}
	return false
}
