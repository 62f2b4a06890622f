package domain

import "testing"

func TestParseInstrument(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Instrument
		wantErr bool
	}{
		{name: "hk symbol", input: "700.HK", want: "700.HK"},
		{name: "us symbol", input: "AAPL.US", want: "AAPL.US"},
		{name: "lowercase normalized", input: "aapl.us", want: "AAPL.US"},
		{name: "missing market", input: "700", wantErr: true},
		{name: "missing code", input: ".HK", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "bare dot", input: ".", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInstrument(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestInstrument_Parts(t *testing.T) {
	inst := Instrument("9988.HK")
	if inst.Code() != "9988" {
		t.Errorf("expected code 9988, got %q", inst.Code())
	}
	if inst.Market() != "HK" {
		t.Errorf("expected market HK, got %q", inst.Market())
	}
}

func TestCandlePeriod_Cycle(t *testing.T) {
	if got := PeriodDay.Next(); got != PeriodWeek {
		t.Errorf("expected 1w after 1d, got %q", got)
	}
	if got := PeriodMin1.Prev(); got != PeriodYear {
		t.Errorf("expected wrap to 1y before 1m, got %q", got)
	}
	if got := PeriodYear.Next(); got != PeriodMin1 {
		t.Errorf("expected wrap to 1m after 1y, got %q", got)
	}

	// A full cycle of Next returns to the start
	p := PeriodMin5
	for i := 0; i < 8; i++ {
		p = p.Next()
	}
	if p != PeriodMin5 {
		t.Errorf("cycle of 8 did not return to start, got %q", p)
	}

	if CandlePeriod("4h").Valid() {
		t.Error("unknown period reported valid")
	}
	if got := CandlePeriod("4h").Next(); got != PeriodDay {
		t.Errorf("unknown period should step to 1d, got %q", got)
	}
}
