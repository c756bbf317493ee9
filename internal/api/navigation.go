package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"quartermaster/internal/engine"
	"quartermaster/internal/esi"
	"quartermaster/internal/zkillboard"
)

const (
	// ESI search rejects terms shorter than this.
	minSearchLen     = 3
	maxSearchResults = 20
	// maxDangerSystems caps POST /api/route/danger, longer than any real route.
	maxDangerSystems = 200
	defaultKillLimit = 50
	maxKillLimit     = 200
)

// SystemHit is one solar system search result.
type SystemHit struct {
	SystemID int32  `json:"system_id"`
	Name     string `json:"name"`
}

func (s *Server) handleSystemSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(q) < minSearchLen {
		writeJSON(w, []SystemHit{})
		return
	}
	ids, err := s.esi.SearchSolarSystems(r.Context(), q)
	if err != nil {
		s.upstreamError(w, r, "search unavailable", err)
		return
	}
	if len(ids) > maxSearchResults {
		ids = ids[:maxSearchResults]
	}
	hits := make([]SystemHit, 0, len(ids))
	if len(ids) == 0 {
		writeJSON(w, hits)
		return
	}

	lookup := make([]int64, len(ids))
	for i, id := range ids {
		lookup[i] = int64(id)
	}
	entries, err := s.esi.ResolveNames(r.Context(), lookup)
	if err != nil {
		s.upstreamError(w, r, "search unavailable", err)
		return
	}
	names := make(map[int64]string, len(entries))
	for _, e := range entries {
		names[e.ID] = e.Name
	}
	for _, id := range ids {
		hits = append(hits, SystemHit{SystemID: id, Name: names[int64(id)]})
	}
	writeJSON(w, hits)
}

func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseInt32(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid system id")
		return
	}
	sys, err := s.esi.GetSolarSystem(r.Context(), id)
	if err != nil {
		s.upstreamError(w, r, "system unavailable", err)
		return
	}
	writeJSON(w, sys)
}

func routeFlag(raw string) (esi.RouteFlag, bool) {
	switch esi.RouteFlag(raw) {
	case "":
		return esi.RouteShortest, true
	case esi.RouteShortest, esi.RouteSecure, esi.RouteInsecure:
		return esi.RouteFlag(raw), true
	}
	return "", false
}

// handleRoute is a plain path query with an optional avoid list and flag.
func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	origin, destination, ok := originDestination(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "origin and destination are required")
		return
	}
	avoid, ok := parseIDList(r.URL.Query().Get("avoid"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid avoid list")
		return
	}
	flag, ok := routeFlag(r.URL.Query().Get("flag"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid flag")
		return
	}
	systems, err := s.esi.GetRoute(r.Context(), origin, destination, avoid, flag)
	if err != nil {
		s.upstreamError(w, r, "route unavailable", err)
		return
	}
	routeType := engine.RouteShortest
	if len(avoid) > 0 {
		routeType = engine.RouteSafest
	}
	writeJSON(w, engine.NewRoute(origin, destination, systems, routeType, avoid))
}

func (s *Server) handleRouteSuggest(w http.ResponseWriter, r *http.Request) {
	origin, destination, ok := originDestination(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "origin and destination are required")
		return
	}
	suggestion, err := s.advisor.GenerateRouteSuggestions(r.Context(), origin, destination)
	s.metrics.observeSuggestion(suggestion, err)
	if err != nil {
		s.upstreamError(w, r, "route unavailable", err)
		return
	}
	s.metrics.observeDangers(suggestion.Dangers)
	writeJSON(w, suggestion)
}

type dangerRequest struct {
	Systems []int32 `json:"systems"`
}

func (s *Server) handleRouteDanger(w http.ResponseWriter, r *http.Request) {
	var req dangerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Systems) == 0 {
		writeError(w, http.StatusBadRequest, "systems is required")
		return
	}
	if len(req.Systems) > maxDangerSystems {
		writeError(w, http.StatusBadRequest, "too many systems")
		return
	}
	for _, id := range req.Systems {
		if id <= 0 {
			writeError(w, http.StatusBadRequest, "invalid system id")
			return
		}
	}
	report := s.advisor.AnalyzeRouteSafety(r.Context(), req.Systems)
	s.metrics.observeDangers(report.Dangers)
	writeJSON(w, report)
}

// JumpPlan is a jump route plus the range it was planned with.
type JumpPlan struct {
	Route      engine.Route `json:"route"`
	RangeLY    float64      `json:"range_ly"`
	FromSkills bool         `json:"from_skills"`
}

func (s *Server) handleJumpRoute(w http.ResponseWriter, r *http.Request) {
	origin, destination, ok := originDestination(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "origin and destination are required")
		return
	}
	q := r.URL.Query()
	base := 5.0
	if raw := q.Get("base_range"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "invalid base_range")
			return
		}
		base = v
	}

	plan := JumpPlan{Route: engine.CalculateJumpRoute(origin, destination)}
	if q.Get("use_skills") == "1" {
		c, token, ok := s.activeToken(r.Context(), w)
		if !ok {
			return
		}
		skills, err := s.esi.GetCharacterSkills(r.Context(), c.CharacterID, token)
		if err != nil {
			s.upstreamError(w, r, "skills unavailable", err)
			return
		}
		plan.RangeLY = engine.JumpRangeForSkills(base, skills)
		plan.FromSkills = true
	} else {
		jdc, _ := strconv.Atoi(q.Get("jdc"))
		jf, _ := strconv.Atoi(q.Get("jf"))
		plan.RangeLY = engine.CalculateJumpRange(base, clampLevel(jdc), clampLevel(jf))
	}
	writeJSON(w, plan)
}

func clampLevel(l int) int {
	return max(0, min(l, 5))
}

func (s *Server) handleCharacterKills(w http.ResponseWriter, r *http.Request) {
	s.entityKills(w, r, s.kills.GetCharacterKills)
}

func (s *Server) handleCorporationKills(w http.ResponseWriter, r *http.Request) {
	s.entityKills(w, r, s.kills.GetCorporationKills)
}

func (s *Server) entityKills(w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context, id int64, limit int) ([]zkillboard.Killmail, error)) {
	id, ok := parseInt64(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	kills, err := fetch(r.Context(), id, queryLimit(r, defaultKillLimit, maxKillLimit))
	if err != nil {
		s.upstreamError(w, r, "kills unavailable", err)
		return
	}
	writeJSON(w, kills)
}

func marketParams(r *http.Request) (int32, int32, bool) {
	region, ok1 := parseInt32(chi.URLParam(r, "regionID"))
	typeID, ok2 := parseInt32(chi.URLParam(r, "typeID"))
	return region, typeID, ok1 && ok2
}

func (s *Server) handleMarketOrders(w http.ResponseWriter, r *http.Request) {
	region, typeID, ok := marketParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid region or type id")
		return
	}
	orders, err := s.esi.GetMarketOrders(r.Context(), region, typeID)
	if err != nil {
		s.upstreamError(w, r, "market unavailable", err)
		return
	}
	writeJSON(w, orders)
}

// MarketHistory is daily history plus stats against the current sell listings.
type MarketHistory struct {
	History []esi.HistoryEntry `json:"history"`
	Stats   esi.MarketStats    `json:"stats"`
}

func (s *Server) handleMarketHistory(w http.ResponseWriter, r *http.Request) {
	region, typeID, ok := marketParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid region or type id")
		return
	}
	var history []esi.HistoryEntry
	var orders []esi.MarketOrder
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		history, err = s.esi.GetMarketHistory(ctx, region, typeID)
		return err
	})
	g.Go(func() (err error) {
		orders, err = s.esi.GetMarketOrders(ctx, region, typeID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.upstreamError(w, r, "market unavailable", err)
		return
	}
	if history == nil {
		history = []esi.HistoryEntry{}
	}
	writeJSON(w, MarketHistory{
		History: history,
		Stats:   esi.ComputeMarketStats(history, esi.ListedSellVolume(orders), s.now()),
	})
}

type assistantRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleAssistant(w http.ResponseWriter, r *http.Request) {
	var req assistantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	reply := engine.Assist(req.Query)
	if reply == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	writeJSON(w, map[string]string{"reply": reply})
}
