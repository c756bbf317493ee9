package engine

import "quartermaster/internal/zkillboard"

// RouteType tags how a route was produced.
type RouteType string

const (
	RouteShortest    RouteType = "shortest"
	RouteSafest      RouteType = "safest"
	RouteJumpCapable RouteType = "jump_capable"
)

// Route is an ordered list of systems from Origin to Destination inclusive.
// Build it with NewRoute so Jumps stays consistent with Systems.
type Route struct {
	Origin       int32     `json:"origin"`
	Destination  int32     `json:"destination"`
	Systems      []int32   `json:"systems"`
	Jumps        int       `json:"jumps"`
	AvoidSystems []int32   `json:"avoid_systems,omitempty"`
	RouteType    RouteType `json:"route_type"`
}

// NewRoute copies systems and avoid and derives the jump count.
func NewRoute(origin, destination int32, systems []int32, routeType RouteType, avoid []int32) Route {
	r := Route{
		Origin:      origin,
		Destination: destination,
		Systems:     append([]int32(nil), systems...),
		RouteType:   routeType,
	}
	if r.Systems == nil {
		r.Systems = []int32{}
	}
	if len(r.Systems) > 0 {
		r.Jumps = len(r.Systems) - 1
	}
	if len(avoid) > 0 {
		r.AvoidSystems = append([]int32(nil), avoid...)
	}
	return r
}

// Contains reports whether systemID is on the route.
func (r Route) Contains(systemID int32) bool {
	for _, s := range r.Systems {
		if s == systemID {
			return true
		}
	}
	return false
}

// RouteSuggestion is the advisor's answer for an origin/destination pair.
type RouteSuggestion struct {
	Route             Route                      `json:"route"`
	RiskAssessment    string                     `json:"risk_assessment"`
	EstimatedTime     int                        `json:"estimated_time"` // seconds
	AlternativeRoutes []Route                    `json:"alternative_routes"`
	Warnings          []string                   `json:"warnings"`
	Dangers           []*zkillboard.SystemDanger `json:"dangers"` // route order
}

// SafetyReport is the aggregate danger picture of a set of systems.
type SafetyReport struct {
	RiskAssessment string                     `json:"risk_assessment"`
	Counts         DangerCounts               `json:"counts"`
	Warnings       []string                   `json:"warnings"`
	Dangers        []*zkillboard.SystemDanger `json:"dangers"` // input order
	// Unrated lists systems whose kill fetch failed and were counted as low.
	Unrated []int32 `json:"unrated,omitempty"`
}
