package satiregate

import (
	"testing"
	"time"
)

func TestCheckSource_RejectsSatireDomain(t *testing.T) {
	g := New(60)
	v := g.CheckSource("https://www.der-postillon.com/2026/07/drone-news.html")
	if v.OK {
		t.Fatal("expected rejection for known satire domain")
	}
	if v.Reason != "satire_source" {
		t.Errorf("got reason %q", v.Reason)
	}
}

func TestCheckSource_AllowsLegitimateDomain(t *testing.T) {
	g := New(60)
	v := g.CheckSource("https://www.dr.dk/nyheder/drone-lufthavn")
	if !v.OK {
		t.Fatal("expected legitimate source to pass")
	}
}

func TestCheckTemporal(t *testing.T) {
	g := New(60)
	fixed := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return fixed }

	tests := []struct {
		name       string
		occurredAt time.Time
		wantOK     bool
	}{
		{"within window", fixed.Add(-24 * time.Hour), true},
		{"too far in future", fixed.Add(48 * time.Hour), false},
		{"within future tolerance", fixed.Add(12 * time.Hour), true},
		{"too old", fixed.AddDate(0, 0, -61), false},
		{"zero value", time.Time{}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := g.CheckTemporal(tc.occurredAt)
			if v.OK != tc.wantOK {
				t.Errorf("got OK=%v, want %v (reason=%q)", v.OK, tc.wantOK, v.Reason)
			}
		})
	}
}
