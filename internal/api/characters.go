package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"quartermaster/internal/auth"
	"quartermaster/internal/db"
	"quartermaster/internal/engine"
	"quartermaster/internal/esi"
)

func publicCharacters(chars []db.Character) []db.Character {
	out := make([]db.Character, len(chars))
	for i, c := range chars {
		out[i] = c.Public()
	}
	return out
}

func (s *Server) handleListCharacters(w http.ResponseWriter, r *http.Request) {
	chars, err := s.profiles.Characters()
	if err != nil {
		s.log.Error("list characters", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "profile store unavailable")
		return
	}
	var activeID int64
	if active, err := s.profiles.ActiveCharacter(); err == nil && active != nil {
		activeID = active.CharacterID
	}
	writeJSON(w, map[string]interface{}{
		"characters":   publicCharacters(chars),
		"active_id":    activeID,
		"max_profiles": db.MaxCharacters,
	})
}

// handleAddCharacter stores the logged-in character in the profile list.
func (s *Server) handleAddCharacter(w http.ResponseWriter, r *http.Request) {
	c, err := s.sessions.Current()
	if errors.Is(err, auth.ErrNotLoggedIn) {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	if err != nil {
		s.log.Error("read session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "session unavailable")
		return
	}
	err = s.profiles.AddCharacter(*c)
	if errors.Is(err, db.ErrCharacterLimit) {
		writeError(w, http.StatusConflict, "character limit reached")
		return
	}
	if err != nil {
		s.log.Error("add character", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "profile store unavailable")
		return
	}
	writeJSON(w, c.Public())
}

func (s *Server) handleRemoveCharacter(w http.ResponseWriter, r *http.Request) {
	id, ok := parseInt64(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid character id")
		return
	}
	if err := s.profiles.RemoveCharacter(id); err != nil {
		s.log.Error("remove character", zap.Int64("character_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "profile store unavailable")
		return
	}
	writeJSON(w, map[string]interface{}{"removed": id})
}

func (s *Server) handleActivateCharacter(w http.ResponseWriter, r *http.Request) {
	id, ok := parseInt64(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid character id")
		return
	}
	err := s.profiles.SetActiveCharacter(id)
	if errors.Is(err, db.ErrCharacterNotFound) {
		writeError(w, http.StatusNotFound, "character not found")
		return
	}
	if err != nil {
		s.log.Error("activate character", zap.Int64("character_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "profile store unavailable")
		return
	}
	writeJSON(w, map[string]interface{}{"active_id": id})
}

// activeToken resolves the active character and an access token for it. The
// logged-in character's token is refreshed on demand; other stored profiles
// are used only while their saved token is still valid.
func (s *Server) activeToken(ctx context.Context, w http.ResponseWriter) (*db.Character, string, bool) {
	active, err := s.profiles.ActiveCharacter()
	if err != nil {
		s.log.Error("read active character", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "profile store unavailable")
		return nil, "", false
	}
	if active == nil {
		writeError(w, http.StatusNotFound, "no active character")
		return nil, "", false
	}

	if cur, err := s.sessions.Current(); err == nil && cur.CharacterID == active.CharacterID {
		token, c, err := s.sessions.EnsureValidToken(ctx)
		if err != nil {
			s.log.Warn("token unavailable", zap.Int64("character_id", active.CharacterID), zap.Error(err))
			writeError(w, http.StatusUnauthorized, "session expired, log in again")
			return nil, "", false
		}
		return c, token, true
	}

	if active.AccessToken == "" || !s.now().Before(active.TokenExpiry.Add(-time.Minute)) {
		writeError(w, http.StatusUnauthorized, "log in as the active character to refresh its token")
		return nil, "", false
	}
	return active, active.AccessToken, true
}

func (s *Server) handleActiveAssets(w http.ResponseWriter, r *http.Request) {
	c, token, ok := s.activeToken(r.Context(), w)
	if !ok {
		return
	}
	assets, err := s.esi.GetCharacterAssets(r.Context(), c.CharacterID, token)
	if err != nil {
		s.upstreamError(w, r, "assets unavailable", err)
		return
	}
	s.nameAssets(r.Context(), assets)
	writeJSON(w, map[string]interface{}{
		"character_id": c.CharacterID,
		"assets":       assets,
		"summary":      engine.AnalyzeAssetDistribution(assets),
	})
}

// nameAssets fills TypeName from a bulk name lookup. Failures leave names
// empty.
func (s *Server) nameAssets(ctx context.Context, assets []esi.Asset) {
	seen := make(map[int64]bool)
	var ids []int64
	for _, a := range assets {
		id := int64(a.TypeID)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return
	}
	names := make(map[int64]string, len(ids))
	for start := 0; start < len(ids); start += namesBatch {
		end := min(start+namesBatch, len(ids))
		entries, err := s.esi.ResolveNames(ctx, ids[start:end])
		if err != nil {
			s.log.Warn("resolve type names", zap.Error(err))
			return
		}
		for _, e := range entries {
			names[e.ID] = e.Name
		}
	}
	for i := range assets {
		assets[i].TypeName = names[int64(assets[i].TypeID)]
	}
}

// namesBatch is the ID limit of POST /universe/names/.
const namesBatch = 1000

func (s *Server) handleActiveOrders(w http.ResponseWriter, r *http.Request) {
	c, token, ok := s.activeToken(r.Context(), w)
	if !ok {
		return
	}
	orders, err := s.esi.GetCharacterOrders(r.Context(), c.CharacterID, token)
	if err != nil {
		s.upstreamError(w, r, "orders unavailable", err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"character_id": c.CharacterID,
		"orders":       orders,
		"summary":      engine.AnalyzeMarketOrders(orders),
	})
}

func (s *Server) handleActiveSkills(w http.ResponseWriter, r *http.Request) {
	c, token, ok := s.activeToken(r.Context(), w)
	if !ok {
		return
	}
	skills, err := s.esi.GetCharacterSkills(r.Context(), c.CharacterID, token)
	if err != nil {
		s.upstreamError(w, r, "skills unavailable", err)
		return
	}
	writeJSON(w, skills)
}
