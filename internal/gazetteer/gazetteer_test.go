package gazetteer

import "testing"

func TestLookup_CaseAndDiacriticInsensitive(t *testing.T) {
	g := New(DefaultEntries())

	for _, name := range []string{"Copenhagen Airport", "COPENHAGEN AIRPORT", "copenhagen airport", "Kastrup"} {
		if _, ok := g.Lookup(name); !ok {
			t.Errorf("expected lookup to match %q", name)
		}
	}
}

func TestLookup_Unknown(t *testing.T) {
	g := New(DefaultEntries())
	if _, ok := g.Lookup("Nonexistent Place"); ok {
		t.Error("expected no match for unknown place")
	}
}

func TestFindInText_PrefersMoreSpecificMatch(t *testing.T) {
	g := New(DefaultEntries())
	e, ok := g.FindInText("A drone was seen near Copenhagen Airport last night")
	if !ok {
		t.Fatal("expected a match")
	}
	if e.Name != "Copenhagen Airport" {
		t.Errorf("got %q, want Copenhagen Airport", e.Name)
	}
}

func TestLowPrecisionFlagSuppressesClustering(t *testing.T) {
	g := New(DefaultEntries())
	e, ok := g.Lookup("the airport")
	if !ok {
		t.Fatal("expected placeholder entry")
	}
	if !e.LowPrecision {
		t.Error("expected generic placeholder entry to be flagged low-precision")
	}
}
