package system

import (
	"testing"
	"time"
)

func TestNowIsUTC(t *testing.T) {
	t.Parallel()

	if loc := New().Now().Location(); loc != time.UTC {
		t.Fatalf("Now() location = %v, want UTC", loc)
	}
}

func TestNowTracksWallClock(t *testing.T) {
	t.Parallel()

	clk := New()
	lo := time.Now().UTC().Add(-time.Second)
	got := clk.Now()
	hi := time.Now().UTC().Add(time.Second)
	if got.Before(lo) || got.After(hi) {
		t.Fatalf("Now() = %v, want within [%v, %v]", got, lo, hi)
	}
}
