package broker

import "testing"

func TestInstrumentTable_Token(t *testing.T) {
	table := NewInstrumentTable(nil)

	tests := []struct {
		name   string
		symbol string
		want   string
	}{
		{"nifty", "NIFTY", "99926000"},
		{"banknifty", "BANKNIFTY", "99926009"},
		{"finnifty", "FINNIFTY", "99926037"},
		{"lowercase input", "banknifty", "99926009"},
		{"whitespace trimmed", "  NIFTY ", "99926000"},
		{"unknown falls back to nifty", "SENSEX", "99926000"},
		{"empty falls back to nifty", "", "99926000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := table.Token(tt.symbol); got != tt.want {
				t.Errorf("Token(%q) = %q, want %q", tt.symbol, got, tt.want)
			}
		})
	}
}

func TestInstrumentTable_Overrides(t *testing.T) {
	table := NewInstrumentTable(map[string]string{
		"midcpnifty": "99926074",
		"NIFTY":      "11111111",
	})

	if got := table.Token("MIDCPNIFTY"); got != "99926074" {
		t.Errorf("override lookup = %q, want 99926074", got)
	}
	if got := table.Token("NIFTY"); got != "11111111" {
		t.Errorf("override should win over default, got %q", got)
	}
}
