package geo

import (
	"testing"

	"github.com/STRATINT/stratint/internal/models"
)

func f(v float64) *float64 { return &v }

func TestAnalyze_MissingCoords(t *testing.T) {
	a := New(models.DefaultRegionBounds)
	result := a.Analyze("Drone seen", "near the airport", nil, nil)
	if result.IsInScope {
		t.Fatal("expected out of scope")
	}
	if result.Flags[0] != "missing_coords" {
		t.Errorf("got flags %v", result.Flags)
	}
}

func TestAnalyze_OutsideBounds(t *testing.T) {
	a := New(models.DefaultRegionBounds)
	result := a.Analyze("Drone seen", "", f(10), f(10))
	if result.IsInScope {
		t.Fatal("expected out of scope")
	}
}

func TestAnalyze_ForeignIncidentRejected(t *testing.T) {
	a := New(models.DefaultRegionBounds)
	result := a.Analyze("Drone spotted near Kyiv", "A drone was seen over Kyiv, Ukraine.", f(55.6), f(12.5))
	if result.IsInScope {
		t.Fatal("expected rejection for foreign incident")
	}
	if result.Confidence != 1.0 {
		t.Errorf("expected full confidence rejection, got %v", result.Confidence)
	}
}

func TestAnalyze_ForeignWithNordicContextReducesConfidence(t *testing.T) {
	a := New(models.DefaultRegionBounds)
	result := a.Analyze(
		"Denmark responds to Ukraine drone strikes",
		"Danish foreign minister comments on Russian drone attacks in Ukraine.",
		f(55.6), f(12.5),
	)
	if result.Confidence >= 1.0 {
		t.Errorf("expected reduced confidence, got %v", result.Confidence)
	}
	found := false
	for _, flag := range result.Flags {
		if flag == "foreign_with_nordic_context" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected foreign_with_nordic_context flag, got %v", result.Flags)
	}
}

func TestAnalyze_InScopeCityAndOfficialSourceBoostConfidence(t *testing.T) {
	a := New(models.DefaultRegionBounds)
	result := a.Analyze(
		"Drone closes Copenhagen Airport",
		"Police confirmed a drone was seen near Copenhagen.",
		f(55.6), f(12.5),
	)
	if !result.IsInScope {
		t.Fatalf("expected in scope, got %+v", result)
	}
}
