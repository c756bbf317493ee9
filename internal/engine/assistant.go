package engine

import (
	"fmt"
	"strings"

	"quartermaster/internal/esi"
)

// AnalyzeAssetDistribution summarises how many locations hold assets.
func AnalyzeAssetDistribution(assets []esi.Asset) string {
	locations := make(map[int64]int)
	for _, a := range assets {
		locations[a.LocationID]++
	}
	n := len(locations)
	switch {
	case n > 10:
		return fmt.Sprintf("Assets are spread across %d locations. Consider consolidating to reduce logistics complexity.", n)
	case n > 5:
		return fmt.Sprintf("Assets are in %d locations. Moderate consolidation recommended.", n)
	default:
		return fmt.Sprintf("Assets are well-consolidated in %d locations.", n)
	}
}

// AnalyzeMarketOrders summarises orders that still have volume remaining.
func AnalyzeMarketOrders(orders []esi.CharacterOrder) string {
	active := 0
	for _, o := range orders {
		if o.VolumeRemain > 0 {
			active++
		}
	}
	if active == 0 {
		return "No active market orders."
	}
	return fmt.Sprintf("You have %d active market orders. Monitor competition for pricing adjustments.", active)
}

var assistantReplies = []struct {
	keyword string
	reply   string
}{
	{"route", "To plan a route, pick your origin and destination systems. I will analyze the route for danger and suggest alternatives."},
	{"asset", "Your assets are tracked per character. Open the assets view to see your inventory across all locations."},
	{"market", "Monitor your market orders in the orders view. I can help you analyze pricing and competition."},
	{"fit", "Ship fitting suggestions are based on your skills and intended use."},
}

const assistantFallback = "I can help you with route planning, asset management, market analysis, and ship fitting suggestions. What would you like to know more about?"

// Assist answers a free-text question by keyword. The first matching keyword wins.
func Assist(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return ""
	}
	for _, r := range assistantReplies {
		if strings.Contains(q, r.keyword) {
			return r.reply
		}
	}
	return assistantFallback
}
