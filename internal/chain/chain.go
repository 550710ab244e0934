// Package chain builds option-chain ladders: strike generation around an
// underlying price, broker expiry encoding, and the per-strike analytics
// placeholders served in demo mode.
package chain

import (
	"fmt"
	"math"
	"time"
)

// Strike ladder shape: strikesPerSide above and below the base strike.
const strikesPerSide = 15

// Strike steps by index. BANKNIFTY trades in 100-point strikes, the other
// NSE indices in 50-point strikes.
const (
	defaultStrikeStep   = 50.0
	bankNiftyStrikeStep = 100.0
)

// monthAbbrevs is the broker's fixed uppercase month table for symbol dates.
var monthAbbrevs = [...]string{
	"JAN", "FEB", "MAR", "APR", "MAY", "JUN",
	"JUL", "AUG", "SEP", "OCT", "NOV", "DEC",
}

// ist is the exchange-local zone used for expiry calendar fields.
var ist = loadIST()

func loadIST() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback for minimal containers
		return time.FixedZone("IST", 5*3600+30*60)
	}
	return loc
}

// StrikeStep returns the strike spacing for an index symbol.
func StrikeStep(symbol string) float64 {
	if symbol == "BANKNIFTY" {
		return bankNiftyStrikeStep
	}
	return defaultStrikeStep
}

// roundToStep rounds a price to the nearest strike increment.
func roundToStep(price, step float64) float64 {
	if step <= 0 {
		return price
	}
	return math.Round(price/step) * step
}

// Strikes computes the symmetric ladder of strike prices around the current
// underlying price: 2*strikesPerSide+1 strikes in ascending order, spaced by
// the symbol's step, centered on the nearest step multiple.
func Strikes(currentPrice float64, symbol string) ([]float64, error) {
	if math.IsNaN(currentPrice) || math.IsInf(currentPrice, 0) || currentPrice <= 0 {
		return nil, fmt.Errorf("invalid underlying price: %v", currentPrice)
	}

	step := StrikeStep(symbol)
	base := roundToStep(currentPrice, step)

	strikes := make([]float64, 0, 2*strikesPerSide+1)
	for k := -strikesPerSide; k <= strikesPerSide; k++ {
		strikes = append(strikes, base+float64(k)*step)
	}
	return strikes, nil
}

// FormatExpiry encodes an expiry date in the broker's symbol-date format:
// 2-digit day, 3-letter uppercase month, 2-digit year (e.g. 28MAR24).
// Calendar fields are taken in exchange-local time (IST).
func FormatExpiry(t time.Time) string {
	t = t.In(ist)
	return fmt.Sprintf("%02d%s%02d", t.Day(), monthAbbrevs[t.Month()-1], t.Year()%100)
}

// ParseExpiry parses an inbound expiry parameter. It accepts the ISO date
// form (2006-01-02); the resulting date is anchored at midnight IST so the
// formatted day never shifts across timezones.
func ParseExpiry(s string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", s, ist)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expiry date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}
