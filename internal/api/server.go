package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"quartermaster/internal/auth"
	"quartermaster/internal/db"
	"quartermaster/internal/engine"
	"quartermaster/internal/esi"
	"quartermaster/internal/logger"
	"quartermaster/internal/zkillboard"
)

// GameData is the slice of the ESI client the handlers call.
type GameData interface {
	HealthCheck(ctx context.Context) bool
	GetCharacterInfo(ctx context.Context, characterID int64) (*esi.CharacterInfo, error)
	GetCharacterAssets(ctx context.Context, characterID int64, accessToken string) ([]esi.Asset, error)
	GetCharacterOrders(ctx context.Context, characterID int64, accessToken string) ([]esi.CharacterOrder, error)
	GetCharacterSkills(ctx context.Context, characterID int64, accessToken string) (*esi.Skills, error)
	GetSolarSystem(ctx context.Context, systemID int32) (*esi.SolarSystem, error)
	SearchSolarSystems(ctx context.Context, term string) ([]int32, error)
	ResolveNames(ctx context.Context, ids []int64) ([]esi.NameEntry, error)
	GetRoute(ctx context.Context, origin, destination int32, avoid []int32, flag esi.RouteFlag) ([]int32, error)
	GetMarketOrders(ctx context.Context, regionID, typeID int32) ([]esi.MarketOrder, error)
	GetMarketHistory(ctx context.Context, regionID, typeID int32) ([]esi.HistoryEntry, error)
}

// KillData is the slice of the zKillboard client the handlers call.
type KillData interface {
	HealthCheck(ctx context.Context) bool
	GetCharacterKills(ctx context.Context, characterID int64, limit int) ([]zkillboard.Killmail, error)
	GetCorporationKills(ctx context.Context, corporationID int64, limit int) ([]zkillboard.Killmail, error)
}

// Profiles is the local character store.
type Profiles interface {
	Characters() ([]db.Character, error)
	Character(id int64) (*db.Character, error)
	ActiveCharacter() (*db.Character, error)
	AddCharacter(c db.Character) error
	RemoveCharacter(id int64) error
	SetActiveCharacter(id int64) error
}

// SSO is the login half of the SSO client.
type SSO interface {
	BuildAuthURL(state, challenge string) string
	ExchangeCode(ctx context.Context, code, verifier string) (*auth.TokenResponse, error)
}

// Deps are the collaborators a Server is built from.
type Deps struct {
	ESI      GameData
	Kills    KillData
	Profiles Profiles
	SSO      SSO
	Sessions *auth.Sessions
	Advisor  *engine.RouteAdvisor
	Metrics  *Metrics
	Gatherer prometheus.Gatherer
	Version  string
}

// Server is the HTTP API in front of the route advisor and the profile store.
type Server struct {
	esi      GameData
	kills    KillData
	profiles Profiles
	sso      SSO
	sessions *auth.Sessions
	advisor  *engine.RouteAdvisor
	metrics  *Metrics
	gatherer prometheus.Gatherer
	version  string
	log      *zap.Logger

	// Pending SSO logins: state -> PKCE verifier and expiry.
	ssoStatesMu sync.Mutex
	ssoStates   map[string]ssoStateEntry
	now         func() time.Time
}

type ssoStateEntry struct {
	Verifier  string
	ExpiresAt time.Time
}

// ssoStateTTL bounds how long a login may take between redirect and callback.
const ssoStateTTL = 10 * time.Minute

// maxPendingLogins caps ssoStates; the oldest pending login is dropped first.
const maxPendingLogins = 32

// NewServer creates a Server from its dependencies.
func NewServer(d Deps) *Server {
	if d.Metrics == nil {
		d.Metrics = NewMetrics(nil)
	}
	return &Server{
		esi:       d.ESI,
		kills:     d.Kills,
		profiles:  d.Profiles,
		sso:       d.SSO,
		sessions:  d.Sessions,
		advisor:   d.Advisor,
		metrics:   d.Metrics,
		gatherer:  d.Gatherer,
		version:   d.Version,
		log:       logger.Named("API"),
		ssoStates: make(map[string]ssoStateEntry),
		now:       time.Now,
	}
}

// Handler returns the HTTP handler with all API routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)
	r.Use(s.metrics.instrument)

	r.Get("/api/status", s.handleStatus)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/login", s.handleAuthLogin)
		r.Get("/callback", s.handleAuthCallback)
		r.Post("/logout", s.handleAuthLogout)
		r.Get("/me", s.handleAuthMe)
	})

	r.Route("/api/characters", func(r chi.Router) {
		r.Get("/", s.handleListCharacters)
		r.Post("/", s.handleAddCharacter)
		r.Route("/active", func(r chi.Router) {
			r.Get("/assets", s.handleActiveAssets)
			r.Get("/orders", s.handleActiveOrders)
			r.Get("/skills", s.handleActiveSkills)
		})
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", s.handleRemoveCharacter)
			r.Post("/activate", s.handleActivateCharacter)
		})
	})

	r.Route("/api/systems", func(r chi.Router) {
		r.Get("/search", s.handleSystemSearch)
		r.Get("/{id}", s.handleSystem)
	})

	r.Route("/api/route", func(r chi.Router) {
		r.Get("/", s.handleRoute)
		r.Get("/suggest", s.handleRouteSuggest)
		r.Post("/danger", s.handleRouteDanger)
		r.Get("/jump", s.handleJumpRoute)
	})

	r.Get("/api/kills/characters/{id}", s.handleCharacterKills)
	r.Get("/api/kills/corporations/{id}", s.handleCorporationKills)

	r.Get("/api/market/{regionID}/types/{typeID}/orders", s.handleMarketOrders)
	r.Get("/api/market/{regionID}/types/{typeID}/history", s.handleMarketHistory)

	r.Post("/api/assistant", s.handleAssistant)
	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// upstreamError logs err and answers with a static 502.
func (s *Server) upstreamError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.log.Warn(msg, zap.String("path", r.URL.Path), zap.Error(err))
	writeError(w, http.StatusBadGateway, msg)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var esiOK, zkbOK bool
	var g errgroup.Group
	g.Go(func() error { esiOK = s.esi.HealthCheck(r.Context()); return nil })
	g.Go(func() error { zkbOK = s.kills.HealthCheck(r.Context()); return nil })
	g.Wait()

	_, err := s.sessions.Current()
	writeJSON(w, map[string]interface{}{
		"version":    s.version,
		"esi":        esiOK,
		"zkillboard": zkbOK,
		"logged_in":  err == nil,
	})
}

// --- Parameter helpers ---

func parseInt32(raw string) (int32, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
	if err != nil || v <= 0 {
		return 0, false
	}
	return int32(v), true
}

func parseInt64(raw string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// parseIDList reads a comma separated list of positive IDs. Empty input is
// an empty list.
func parseIDList(raw string) ([]int32, bool) {
	var ids []int32
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		id, ok := parseInt32(part)
		if !ok {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// originDestination reads the origin and destination query parameters.
func originDestination(r *http.Request) (int32, int32, bool) {
	q := r.URL.Query()
	origin, ok1 := parseInt32(q.Get("origin"))
	destination, ok2 := parseInt32(q.Get("destination"))
	return origin, destination, ok1 && ok2
}

func queryLimit(r *http.Request, def, max int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
