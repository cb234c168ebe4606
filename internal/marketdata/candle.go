package marketdata

import "time"

// Candle is one day of OHLCV history for a symbol.
// Fields that the provider leaves blank are NaN; downstream labeling
// drops rows containing them.
type Candle struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}
