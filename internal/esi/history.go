package esi

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"time"
)

// HistoryEntry represents a single day of market history for an item in a region.
type HistoryEntry struct {
	Date       string  `json:"date"`
	Average    float64 `json:"average"`
	Highest    float64 `json:"highest"`
	Lowest     float64 `json:"lowest"`
	Volume     int64   `json:"volume"`
	OrderCount int64   `json:"order_count"`
}

// MarketStats summarises the last week of history against what is listed now.
type MarketStats struct {
	DailyVolume int64   `json:"daily_volume"` // average over the last 7 days
	Velocity    float64 `json:"velocity"`     // daily volume / listed quantity
	PriceTrend  float64 `json:"price_trend"`  // % change over the last 7 days
}

// GetMarketHistory fetches daily history for a type in a region.
func (c *Client) GetMarketHistory(ctx context.Context, regionID, typeID int32) ([]HistoryEntry, error) {
	params := url.Values{}
	params.Set("type_id", strconv.FormatInt(int64(typeID), 10))

	var entries []HistoryEntry
	if err := c.GetJSON(ctx, c.endpoint(fmt.Sprintf("/markets/%d/history/", regionID), params), &entries); err != nil {
		return nil, fmt.Errorf("market history %d/%d: %w", regionID, typeID, err)
	}
	return entries, nil
}

// ComputeMarketStats computes stats from history entries as of now.
// ESI does not guarantee chronological order, so entries are sorted first.
func ComputeMarketStats(entries []HistoryEntry, totalListed int64, now time.Time) MarketStats {
	if len(entries) == 0 {
		return MarketStats{}
	}
	sorted := make([]HistoryEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})

	cutoff := now.UTC().AddDate(0, 0, -7).Format("2006-01-02")

	var vol7 int64
	var days int
	var firstPrice, lastPrice float64
	for _, e := range sorted {
		if e.Date < cutoff {
			continue
		}
		vol7 += e.Volume
		if days == 0 {
			firstPrice = e.Average
		}
		days++
		lastPrice = e.Average
	}

	var stats MarketStats
	if days > 0 {
		stats.DailyVolume = int64(math.Round(float64(vol7) / float64(days)))
	}
	if totalListed > 0 {
		stats.Velocity = float64(stats.DailyVolume) / float64(totalListed)
	}
	if firstPrice > 0 {
		stats.PriceTrend = (lastPrice - firstPrice) / firstPrice * 100
	}
	return stats
}

// ListedSellVolume sums the remaining volume of sell orders.
func ListedSellVolume(orders []MarketOrder) int64 {
	var total int64
	for _, o := range orders {
		if !o.IsBuyOrder {
			total += int64(o.VolumeRemain)
		}
	}
	return total
}
