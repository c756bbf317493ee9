package engine

import (
	"strings"
	"testing"

	"quartermaster/internal/zkillboard"
)

func dangers(ratings ...zkillboard.DangerRating) []*zkillboard.SystemDanger {
	out := make([]*zkillboard.SystemDanger, len(ratings))
	for i, r := range ratings {
		out[i] = &zkillboard.SystemDanger{SystemID: int32(i + 1), DangerRating: r, KillsLastHour: i}
	}
	return out
}

func TestAssess_ExtremeAlwaysHighRisk(t *testing.T) {
	sets := [][]zkillboard.DangerRating{
		{zkillboard.DangerExtreme},
		{zkillboard.DangerExtreme, zkillboard.DangerLow, zkillboard.DangerLow},
		{zkillboard.DangerHigh, zkillboard.DangerHigh, zkillboard.DangerHigh, zkillboard.DangerExtreme},
		{zkillboard.DangerMedium, zkillboard.DangerMedium, zkillboard.DangerMedium, zkillboard.DangerMedium, zkillboard.DangerExtreme},
	}
	for _, set := range sets {
		got := DefaultRiskPolicy.Assess(CountDanger(dangers(set...)))
		if !strings.HasPrefix(got, "High Risk:") {
			t.Errorf("Assess(%v) = %q, want High Risk", set, got)
		}
	}
}

func TestAssess_Precedence(t *testing.T) {
	cases := []struct {
		counts DangerCounts
		prefix string
	}{
		{DangerCounts{High: 3}, "Medium Risk: 3 systems"},
		{DangerCounts{High: 2}, "Low Risk:"},
		{DangerCounts{High: 3, Medium: 10}, "Medium Risk:"},
		{DangerCounts{Medium: 4}, "Low-Medium Risk: 4 systems"},
		{DangerCounts{Medium: 3}, "Low Risk:"},
		{DangerCounts{High: 2, Medium: 4}, "Low-Medium Risk:"},
		{DangerCounts{}, "Low Risk:"},
	}
	for _, tc := range cases {
		if got := DefaultRiskPolicy.Assess(tc.counts); !strings.HasPrefix(got, tc.prefix) {
			t.Errorf("Assess(%+v) = %q, want prefix %q", tc.counts, got, tc.prefix)
		}
	}
}

func TestAssess_CustomPolicy(t *testing.T) {
	p := RiskPolicy{HighSystemsAbove: 0, MediumSystemsAbove: 0}
	if got := p.Assess(DangerCounts{High: 1}); !strings.HasPrefix(got, "Medium Risk:") {
		t.Errorf("Assess = %q", got)
	}
	if got := p.Assess(DangerCounts{Medium: 1}); !strings.HasPrefix(got, "Low-Medium Risk:") {
		t.Errorf("Assess = %q", got)
	}
}

func TestCountDanger(t *testing.T) {
	c := CountDanger(append(dangers(
		zkillboard.DangerLow, zkillboard.DangerMedium, zkillboard.DangerHigh,
		zkillboard.DangerExtreme, zkillboard.DangerHigh,
	), nil))
	want := DangerCounts{Low: 1, Medium: 1, High: 2, Extreme: 1}
	if c != want {
		t.Errorf("CountDanger = %+v, want %+v", c, want)
	}
}

func TestDangerWarnings_OnlyHighAndExtreme(t *testing.T) {
	ds := []*zkillboard.SystemDanger{
		{SystemID: 30000142, DangerRating: zkillboard.DangerLow, KillsLastHour: 2},
		{SystemID: 30002813, DangerRating: zkillboard.DangerExtreme, KillsLastHour: 40},
		{SystemID: 30002718, DangerRating: zkillboard.DangerMedium, KillsLastHour: 7},
		{SystemID: 30002537, DangerRating: zkillboard.DangerHigh, KillsLastHour: 12},
	}
	w := DangerWarnings(ds)
	if len(w) != 2 {
		t.Fatalf("warnings = %v", w)
	}
	if w[0] != "System 30002813: Extreme danger - 40 kills in last hour" {
		t.Errorf("w[0] = %q", w[0])
	}
	if w[1] != "System 30002537: High danger - 12 kills in last hour" {
		t.Errorf("w[1] = %q", w[1])
	}
}

func TestDangerWarnings_EmptyIsNonNil(t *testing.T) {
	if w := DangerWarnings(nil); w == nil {
		t.Error("DangerWarnings(nil) = nil, want empty slice")
	}
}

func TestOrderDangers_MissingEntryIsUnrated(t *testing.T) {
	m := map[int32]*zkillboard.SystemDanger{
		1: {SystemID: 1, DangerRating: zkillboard.DangerHigh},
	}
	out := orderDangers([]int32{1, 2}, m)
	if len(out) != 2 || out[0].SystemID != 1 || out[1].SystemID != 2 {
		t.Fatalf("orderDangers = %+v", out)
	}
	if !out[1].FetchFailed || out[1].DangerRating != zkillboard.DangerLow {
		t.Errorf("missing entry = %+v", out[1])
	}
}
