package broker

import "strings"

// defaultInstrumentTokens maps index names to the SmartAPI instrument token
// used for underlying price lookups. This is a static placeholder table, not
// a general instrument search; new indices are added here (or via config
// overrides), not through new code paths.
var defaultInstrumentTokens = map[string]string{
	"NIFTY":     "99926000",
	"BANKNIFTY": "99926009",
	"FINNIFTY":  "99926037",
}

// fallbackSymbol is used for symbols the table does not know.
const fallbackSymbol = "NIFTY"

// InstrumentTable resolves an index symbol to its SmartAPI instrument token.
type InstrumentTable map[string]string

// NewInstrumentTable builds a lookup table from the built-in defaults plus
// any overrides (overrides win on conflict). Keys are upper-cased.
func NewInstrumentTable(overrides map[string]string) InstrumentTable {
	table := make(InstrumentTable, len(defaultInstrumentTokens)+len(overrides))
	for sym, token := range defaultInstrumentTokens {
		table[sym] = token
	}
	for sym, token := range overrides {
		table[strings.ToUpper(strings.TrimSpace(sym))] = token
	}
	return table
}

// Token returns the instrument token for a symbol, falling back to the
// NIFTY token for unknown symbols.
func (t InstrumentTable) Token(symbol string) string {
	if token, ok := t[strings.ToUpper(strings.TrimSpace(symbol))]; ok {
		return token
	}
	return t[fallbackSymbol]
}
