package engine

import "quartermaster/internal/esi"

// Skill type IDs that extend jump drive range.
const (
	SkillJumpDriveCalibration int32 = 21611
	SkillJumpFreighters       int32 = 29029
)

// CalculateJumpRange applies +20% per Jump Drive Calibration level and +10%
// per Jump Freighters level to a hull's base range (light years).
func CalculateJumpRange(baseRange float64, jumpDriveCalibrationLevel, jumpFreighterLevel int) float64 {
	jdc := 1 + float64(jumpDriveCalibrationLevel)*0.2
	jf := 1 + float64(jumpFreighterLevel)*0.1
	return baseRange * jdc * jf
}

// JumpRangeForSkills reads the relevant levels from a skill sheet.
func JumpRangeForSkills(baseRange float64, skills *esi.Skills) float64 {
	return CalculateJumpRange(baseRange, skills.Level(SkillJumpDriveCalibration), skills.Level(SkillJumpFreighters))
}

// CalculateJumpRoute returns a single-hop jump_capable route. There is no
// system coordinate data to plan cyno chains with, so range is not checked.
// TODO: plan multi-hop chains once system positions are loaded from the SDE.
func CalculateJumpRoute(origin, destination int32) Route {
	systems := []int32{origin}
	if destination != origin {
		systems = append(systems, destination)
	}
	return NewRoute(origin, destination, systems, RouteJumpCapable, nil)
}
