package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"quartermaster/internal/auth"
	"quartermaster/internal/db"
)

func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	pkce, err := auth.NewPKCE()
	if err != nil {
		s.log.Error("pkce", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "login unavailable")
		return
	}
	state := auth.GenerateState()

	s.ssoStatesMu.Lock()
	now := s.now()
	oldest := ""
	for k, v := range s.ssoStates {
		if now.After(v.ExpiresAt) {
			delete(s.ssoStates, k)
			continue
		}
		if oldest == "" || v.ExpiresAt.Before(s.ssoStates[oldest].ExpiresAt) {
			oldest = k
		}
	}
	if len(s.ssoStates) >= maxPendingLogins {
		delete(s.ssoStates, oldest)
	}
	s.ssoStates[state] = ssoStateEntry{Verifier: pkce.Verifier, ExpiresAt: now.Add(ssoStateTTL)}
	s.ssoStatesMu.Unlock()

	http.Redirect(w, r, s.sso.BuildAuthURL(state, pkce.Challenge), http.StatusTemporaryRedirect)
}

func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	s.ssoStatesMu.Lock()
	entry, ok := s.ssoStates[state]
	if ok {
		delete(s.ssoStates, state) // one-time use
	}
	s.ssoStatesMu.Unlock()

	if state == "" || !ok || s.now().After(entry.ExpiresAt) {
		writeError(w, http.StatusBadRequest, "invalid or expired state parameter")
		return
	}
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing code")
		return
	}

	tok, err := s.sso.ExchangeCode(r.Context(), code, entry.Verifier)
	if err != nil {
		s.upstreamError(w, r, "token exchange failed", err)
		return
	}
	id, err := auth.TokenIdentity(tok.AccessToken)
	if err != nil {
		s.upstreamError(w, r, "token verify failed", err)
		return
	}
	info, err := s.esi.GetCharacterInfo(r.Context(), id.CharacterID)
	if err != nil {
		s.upstreamError(w, r, "character lookup failed", err)
		return
	}

	name := info.Name
	if name == "" {
		name = id.CharacterName
	}
	c := db.Character{
		CharacterID:    id.CharacterID,
		CharacterName:  name,
		CorporationID:  int64(info.CorporationID),
		AllianceID:     int64(info.AllianceID),
		Birthday:       info.Birthday,
		SecurityStatus: info.SecurityStatus,
		AccessToken:    tok.AccessToken,
		RefreshToken:   tok.RefreshToken,
		TokenExpiry:    tok.ExpiresAt(s.now()),
	}
	if err := s.sessions.Login(c); err != nil {
		s.log.Error("save session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "save session failed")
		return
	}
	writeJSON(w, map[string]interface{}{"logged_in": true, "character": c.Public()})
}

func (s *Server) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Logout(); err != nil {
		s.log.Error("logout", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	writeJSON(w, map[string]interface{}{"logged_in": false})
}

func (s *Server) handleAuthMe(w http.ResponseWriter, r *http.Request) {
	c, err := s.sessions.Current()
	if errors.Is(err, auth.ErrNotLoggedIn) {
		writeJSON(w, map[string]interface{}{"logged_in": false})
		return
	}
	if err != nil {
		s.log.Error("read session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "session unavailable")
		return
	}
	writeJSON(w, map[string]interface{}{"logged_in": true, "character": c.Public()})
}
