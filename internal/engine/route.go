package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"quartermaster/internal/esi"
	"quartermaster/internal/logger"
	"quartermaster/internal/zkillboard"
)

// ErrAvoidIgnored is returned when the path service hands back a route that
// still passes through a system it was told to avoid.
var ErrAvoidIgnored = errors.New("path service returned a route through an avoided system")

// PathFinder is the path query of the game-data API.
type PathFinder interface {
	GetRoute(ctx context.Context, origin, destination int32, avoid []int32, flag esi.RouteFlag) ([]int32, error)
}

// DangerSource rates a set of systems. Per-system failures are expected to
// come back as FetchFailed entries rather than an error.
type DangerSource interface {
	GetRouteDangerAssessment(ctx context.Context, systemIDs []int32) map[int32]*zkillboard.SystemDanger
}

// RouteAdvisor combines shortest paths with kill activity.
type RouteAdvisor struct {
	paths  PathFinder
	danger DangerSource
	log    *zap.Logger

	Policy         RiskPolicy
	SecondsPerJump int
	Flag           esi.RouteFlag
}

// NewRouteAdvisor wires an advisor with the default policy and 60s per jump.
func NewRouteAdvisor(paths PathFinder, danger DangerSource) *RouteAdvisor {
	return &RouteAdvisor{
		paths:          paths,
		danger:         danger,
		log:            logger.Named("Route"),
		Policy:         DefaultRiskPolicy,
		SecondsPerJump: 60,
		Flag:           esi.RouteShortest,
	}
}

// EstimatedTime is a flat per-jump estimate in seconds.
func (a *RouteAdvisor) EstimatedTime(r Route) int {
	return r.Jumps * a.SecondsPerJump
}

// ShortestRoute fetches the default path between two systems.
func (a *RouteAdvisor) ShortestRoute(ctx context.Context, origin, destination int32) (Route, error) {
	systems, err := a.paths.GetRoute(ctx, origin, destination, nil, a.Flag)
	if err != nil {
		return Route{}, err
	}
	return NewRoute(origin, destination, systems, RouteShortest, nil), nil
}

// AlternativeRoute asks for a path that avoids the given systems. The result
// either excludes every avoided system or is an error; it is not re-rated.
func (a *RouteAdvisor) AlternativeRoute(ctx context.Context, origin, destination int32, avoid []int32) (Route, error) {
	systems, err := a.paths.GetRoute(ctx, origin, destination, avoid, a.Flag)
	if err != nil {
		return Route{}, err
	}
	if len(systems) == 0 {
		return Route{}, fmt.Errorf("route %d -> %d: empty path", origin, destination)
	}
	r := NewRoute(origin, destination, systems, RouteSafest, avoid)
	for _, id := range avoid {
		if r.Contains(id) {
			return Route{}, fmt.Errorf("system %d: %w", id, ErrAvoidIgnored)
		}
	}
	return r, nil
}

// AnalyzeRouteSafety rates systems and aggregates a verdict and warnings.
// Each distinct system counts once, at its first position.
func (a *RouteAdvisor) AnalyzeRouteSafety(ctx context.Context, systemIDs []int32) *SafetyReport {
	systems := uniqueSystems(systemIDs)
	m := a.danger.GetRouteDangerAssessment(ctx, systems)
	return BuildSafetyReport(a.Policy, orderDangers(systems, m))
}

func uniqueSystems(ids []int32) []int32 {
	seen := make(map[int32]bool, len(ids))
	out := make([]int32, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// GenerateRouteSuggestions fetches the shortest path, rates every system on
// it once, and when any is high or extreme makes a single request for a path
// avoiding exactly those systems.
func (a *RouteAdvisor) GenerateRouteSuggestions(ctx context.Context, origin, destination int32) (*RouteSuggestion, error) {
	shortest, err := a.ShortestRoute(ctx, origin, destination)
	if err != nil {
		return nil, fmt.Errorf("shortest route: %w", err)
	}

	report := a.AnalyzeRouteSafety(ctx, shortest.Systems)
	if len(report.Unrated) > 0 {
		a.log.Warn("route rated with missing kill data",
			zap.Int32("origin", origin), zap.Int32("destination", destination),
			zap.Int32s("unrated", report.Unrated))
	}

	alternatives := []Route{}
	if avoid := dangerousSystems(report.Dangers); len(avoid) > 0 {
		alt, err := a.AlternativeRoute(ctx, origin, destination, avoid)
		if err != nil {
			a.log.Info("no alternative route",
				zap.Int32("origin", origin), zap.Int32("destination", destination),
				zap.Int32s("avoid", avoid), zap.Error(err))
		} else {
			alternatives = append(alternatives, alt)
		}
	}

	return &RouteSuggestion{
		Route:             shortest,
		RiskAssessment:    report.RiskAssessment,
		EstimatedTime:     a.EstimatedTime(shortest),
		AlternativeRoutes: alternatives,
		Warnings:          report.Warnings,
		Dangers:           report.Dangers,
	}, nil
}
