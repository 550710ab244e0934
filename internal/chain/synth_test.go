package chain

import (
	"context"
	"sort"
	"testing"
)

func TestBuildLadder(t *testing.T) {
	entries, err := BuildLadder(context.Background(), 22500, "NIFTY")
	if err != nil {
		t.Fatalf("BuildLadder() error = %v", err)
	}

	if len(entries) != 31 {
		t.Fatalf("len = %d, want 31", len(entries))
	}
	if !sort.SliceIsSorted(entries, func(i, j int) bool { return entries[i].Strike < entries[j].Strike }) {
		t.Error("entries are not in ascending strike order")
	}

	for _, e := range entries {
		if e.CallOI < oiBase || e.CallOI >= oiBase+oiSpan {
			t.Errorf("strike %v: CallOI %d out of range", e.Strike, e.CallOI)
		}
		if e.PutOI < oiBase || e.PutOI >= oiBase+oiSpan {
			t.Errorf("strike %v: PutOI %d out of range", e.Strike, e.PutOI)
		}
		if e.CallLTP < ltpBase || e.CallLTP >= ltpBase+ltpSpan {
			t.Errorf("strike %v: CallLTP %v out of range", e.Strike, e.CallLTP)
		}
		if e.PutLTP < ltpBase || e.PutLTP >= ltpBase+ltpSpan {
			t.Errorf("strike %v: PutLTP %v out of range", e.Strike, e.PutLTP)
		}
		if e.CallVolume < 0 || e.CallVolume >= volumeMax {
			t.Errorf("strike %v: CallVolume %d out of range", e.Strike, e.CallVolume)
		}
		if e.PutVolume < 0 || e.PutVolume >= volumeMax {
			t.Errorf("strike %v: PutVolume %d out of range", e.Strike, e.PutVolume)
		}
	}
}

func TestBuildLadder_InvalidPrice(t *testing.T) {
	if _, err := BuildLadder(context.Background(), -1, "NIFTY"); err == nil {
		t.Fatal("BuildLadder() should fail for a negative price")
	}
}
