package engine

import (
	"fmt"

	"quartermaster/internal/zkillboard"
)

// RiskPolicy turns bucket counts into a verdict. Any extreme system is always
// "High Risk"; the two cut-offs below are strict lower bounds.
type RiskPolicy struct {
	HighSystemsAbove   int `json:"high_systems_above"`
	MediumSystemsAbove int `json:"medium_systems_above"`
}

// DefaultRiskPolicy: more than 2 high systems is Medium Risk, more than 3
// medium systems is Low-Medium Risk.
var DefaultRiskPolicy = RiskPolicy{HighSystemsAbove: 2, MediumSystemsAbove: 3}

// DangerCounts is the number of systems per danger bucket.
type DangerCounts struct {
	Low     int `json:"low"`
	Medium  int `json:"medium"`
	High    int `json:"high"`
	Extreme int `json:"extreme"`
}

// CountDanger tallies ratings. Nil entries are ignored.
func CountDanger(dangers []*zkillboard.SystemDanger) DangerCounts {
	var c DangerCounts
	for _, d := range dangers {
		if d == nil {
			continue
		}
		switch d.DangerRating {
		case zkillboard.DangerExtreme:
			c.Extreme++
		case zkillboard.DangerHigh:
			c.High++
		case zkillboard.DangerMedium:
			c.Medium++
		default:
			c.Low++
		}
	}
	return c
}

// Assess applies the fixed precedence extreme > high > medium > low.
func (p RiskPolicy) Assess(c DangerCounts) string {
	switch {
	case c.Extreme > 0:
		return fmt.Sprintf("High Risk: %d systems with extreme danger. Consider alternative route.", c.Extreme)
	case c.High > p.HighSystemsAbove:
		return fmt.Sprintf("Medium Risk: %d systems with high activity. Exercise caution.", c.High)
	case c.Medium > p.MediumSystemsAbove:
		return fmt.Sprintf("Low-Medium Risk: %d systems with moderate activity.", c.Medium)
	default:
		return "Low Risk: Route appears relatively safe."
	}
}

// DangerWarnings emits one line per high or extreme system, in input order.
func DangerWarnings(dangers []*zkillboard.SystemDanger) []string {
	warnings := []string{}
	for _, d := range dangers {
		if d == nil {
			continue
		}
		switch d.DangerRating {
		case zkillboard.DangerExtreme:
			warnings = append(warnings, fmt.Sprintf("System %d: Extreme danger - %d kills in last hour", d.SystemID, d.KillsLastHour))
		case zkillboard.DangerHigh:
			warnings = append(warnings, fmt.Sprintf("System %d: High danger - %d kills in last hour", d.SystemID, d.KillsLastHour))
		}
	}
	return warnings
}

// dangerousSystems returns the IDs rated high or extreme, in input order.
func dangerousSystems(dangers []*zkillboard.SystemDanger) []int32 {
	var ids []int32
	for _, d := range dangers {
		if d != nil && d.DangerRating.Dangerous() {
			ids = append(ids, d.SystemID)
		}
	}
	return ids
}

// orderDangers lays a keyed danger map out in the order of systems. A system
// missing from the map is reported as an unrated low.
func orderDangers(systems []int32, m map[int32]*zkillboard.SystemDanger) []*zkillboard.SystemDanger {
	out := make([]*zkillboard.SystemDanger, 0, len(systems))
	for _, id := range systems {
		d, ok := m[id]
		if !ok || d == nil {
			d = &zkillboard.SystemDanger{
				SystemID:     id,
				DangerRating: zkillboard.DangerLow,
				RecentKills:  []zkillboard.KillmailSummary{},
				FetchFailed:  true,
			}
		}
		out = append(out, d)
	}
	return out
}

// BuildSafetyReport aggregates an ordered danger list under a policy.
func BuildSafetyReport(policy RiskPolicy, dangers []*zkillboard.SystemDanger) *SafetyReport {
	counts := CountDanger(dangers)
	r := &SafetyReport{
		RiskAssessment: policy.Assess(counts),
		Counts:         counts,
		Warnings:       DangerWarnings(dangers),
		Dangers:        dangers,
	}
	for _, d := range dangers {
		if d != nil && d.FetchFailed {
			r.Unrated = append(r.Unrated, d.SystemID)
		}
	}
	return r
}
