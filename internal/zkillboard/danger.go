package zkillboard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"quartermaster/internal/logger"
)

// DangerRating classifies a system's recent hostile activity.
type DangerRating string

const (
	DangerLow     DangerRating = "low"
	DangerMedium  DangerRating = "medium"
	DangerHigh    DangerRating = "high"
	DangerExtreme DangerRating = "extreme"
)

// Dangerous reports whether the rating should trigger an avoid-list entry and a warning.
func (r DangerRating) Dangerous() bool {
	return r == DangerHigh || r == DangerExtreme
}

// DangerThresholds are strict lower bounds: a count above ExtremeAbove is
// extreme, above HighAbove is high, above MediumAbove is medium.
type DangerThresholds struct {
	MediumAbove  int `json:"medium_above"`
	HighAbove    int `json:"high_above"`
	ExtremeAbove int `json:"extreme_above"`
}

// DefaultThresholds: >20 extreme, >10 high, >5 medium.
var DefaultThresholds = DangerThresholds{MediumAbove: 5, HighAbove: 10, ExtremeAbove: 20}

// Rate classifies a kill count.
func (t DangerThresholds) Rate(kills int) DangerRating {
	switch {
	case kills > t.ExtremeAbove:
		return DangerExtreme
	case kills > t.HighAbove:
		return DangerHigh
	case kills > t.MediumAbove:
		return DangerMedium
	default:
		return DangerLow
	}
}

// DangerWindow is the trailing period a danger rating counts kills over.
// KillsLastHour and the route warnings are worded for it.
const DangerWindow = time.Hour

// recentKillsKept is how many kill samples a SystemDanger carries for display.
const recentKillsKept = 10

// SystemDanger is the danger picture of one system over the trailing window.
type SystemDanger struct {
	SystemID      int32             `json:"system_id"`
	KillsLastHour int               `json:"kills_last_hour"`
	DangerRating  DangerRating      `json:"danger_rating"`
	RecentKills   []KillmailSummary `json:"recent_kills"`
	// FetchFailed marks a zero count substituted for a failed fetch. The
	// rating is then "low" even though the real activity is unknown.
	FetchFailed bool `json:"fetch_failed,omitempty"`
}

// GetSystemDangerRating counts kills in the window and classifies them.
func (c *Client) GetSystemDangerRating(ctx context.Context, systemID int32) (*SystemDanger, error) {
	kills, err := c.GetSystemKills(ctx, systemID, DangerWindow)
	if err != nil {
		return nil, err
	}
	recent := kills
	if len(recent) > recentKillsKept {
		recent = recent[:recentKillsKept]
	}
	return &SystemDanger{
		SystemID:      systemID,
		KillsLastHour: len(kills),
		DangerRating:  c.thresholds.Rate(len(kills)),
		RecentKills:   recent,
	}, nil
}

// GetRouteDangerAssessment rates every system concurrently. A failed fetch is
// not returned as an error: that system is recorded with zero kills, a low
// rating and FetchFailed set.
func (c *Client) GetRouteDangerAssessment(ctx context.Context, systemIDs []int32) map[int32]*SystemDanger {
	out := make(map[int32]*SystemDanger, len(systemIDs))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	seen := make(map[int32]bool, len(systemIDs))
	for _, id := range systemIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		systemID := id
		g.Go(func() error {
			d, err := c.GetSystemDangerRating(ctx, systemID)
			if err != nil {
				logger.Named("Zkillboard").Warn("danger fetch failed, counting as no activity",
					zap.Int32("system_id", systemID), zap.Error(err))
				d = &SystemDanger{
					SystemID:     systemID,
					DangerRating: DangerLow,
					RecentKills:  []KillmailSummary{},
					FetchFailed:  true,
				}
			}
			mu.Lock()
			out[systemID] = d
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
