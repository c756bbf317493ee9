package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"quartermaster/internal/db"
)

func testSSO(tokenURL string) *SSOConfig {
	return &SSOConfig{
		ClientID:     "test-client",
		CallbackURL:  "quartermaster://auth",
		Scopes:       []string{"esi-assets.read_assets.v1", "esi-skills.read_skills.v1"},
		AuthorizeURL: "https://login.eveonline.com/v2/oauth/authorize",
		TokenURL:     tokenURL,
	}
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-the-real-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestBuildAuthURL_Exact(t *testing.T) {
	c := testSSO("")
	u := c.BuildAuthURL("abc123", "challenge")
	if !strings.HasPrefix(u, "https://login.eveonline.com/v2/oauth/authorize?") {
		t.Errorf("BuildAuthURL prefix wrong: %q", u)
	}
	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatalf("parse URL: %v", err)
	}
	q := parsed.Query()
	checks := map[string]string{
		"response_type":         "code",
		"client_id":             "test-client",
		"redirect_uri":          "quartermaster://auth",
		"scope":                 "esi-assets.read_assets.v1 esi-skills.read_skills.v1",
		"state":                 "abc123",
		"code_challenge":        "challenge",
		"code_challenge_method": "S256",
	}
	for k, want := range checks {
		if got := q.Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
}

func TestGenerateState_Unique(t *testing.T) {
	s := GenerateState()
	if len(s) != 36 {
		t.Errorf("GenerateState length = %d, want 36", len(s))
	}
	if s == GenerateState() {
		t.Error("GenerateState should return different values")
	}
}

func TestNewPKCE_ChallengeMatchesVerifier(t *testing.T) {
	p, err := NewPKCE()
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Verifier) < 43 {
		t.Errorf("verifier too short: %d", len(p.Verifier))
	}
	if p.Challenge != challengeFor(p.Verifier) {
		t.Error("challenge does not match verifier")
	}
	// RFC 7636 appendix B.
	if got := challengeFor("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"); got != "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM" {
		t.Errorf("challengeFor = %q", got)
	}
}

func TestExchangeCode_PostsForm(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("content-type = %q", ct)
		}
		r.ParseForm()
		form = r.PostForm
		fmt.Fprint(w, `{"access_token":"at","refresh_token":"rt","expires_in":1199,"token_type":"Bearer"}`)
	}))
	defer srv.Close()

	tok, err := testSSO(srv.URL).ExchangeCode(context.Background(), "the-code", "the-verifier")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if tok.AccessToken != "at" || tok.RefreshToken != "rt" || tok.ExpiresIn != 1199 {
		t.Errorf("token = %+v", tok)
	}
	if form.Get("grant_type") != "authorization_code" || form.Get("code") != "the-code" ||
		form.Get("code_verifier") != "the-verifier" || form.Get("client_id") != "test-client" {
		t.Errorf("form = %v", form)
	}
}

func TestRefreshToken_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := testSSO(srv.URL).RefreshToken(context.Background(), "stale")
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Errorf("err = %v, want 400", err)
	}
}

func TestTokenIdentity(t *testing.T) {
	tok := signedToken(t, jwt.MapClaims{"sub": "CHARACTER:EVE:2112625428", "name": "CCP Zoetrope"})
	id, err := TokenIdentity(tok)
	if err != nil {
		t.Fatalf("TokenIdentity: %v", err)
	}
	if id.CharacterID != 2112625428 || id.CharacterName != "CCP Zoetrope" {
		t.Errorf("identity = %+v", id)
	}
	cid, err := CharacterIDFromToken(tok)
	if err != nil || cid != 2112625428 {
		t.Errorf("CharacterIDFromToken = %d, %v", cid, err)
	}
}

func TestTokenIdentity_Malformed(t *testing.T) {
	bad := []string{
		"not-a-jwt",
		signedToken(t, jwt.MapClaims{"sub": "USER:123"}),
		signedToken(t, jwt.MapClaims{"sub": "CHARACTER:EVE:abc"}),
		signedToken(t, jwt.MapClaims{"name": "no subject"}),
	}
	for _, tok := range bad {
		if _, err := CharacterIDFromToken(tok); err == nil {
			t.Errorf("CharacterIDFromToken(%q) succeeded", tok)
		}
	}
}

type fakeRefresher struct {
	tok   *TokenResponse
	err   error
	calls int
}

func (f *fakeRefresher) RefreshToken(_ context.Context, _ string) (*TokenResponse, error) {
	f.calls++
	return f.tok, f.err
}

func openStore(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func loggedIn(t *testing.T, expiry time.Time, r TokenRefresher) (*Sessions, *db.DB) {
	t.Helper()
	store := openStore(t)
	s := NewSessions(store, r)
	s.now = func() time.Time { return testNow }
	err := s.Login(db.Character{
		CharacterID:   90000001,
		CharacterName: "Test Char",
		AccessToken:   "old-at",
		RefreshToken:  "old-rt",
		TokenExpiry:   expiry,
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return s, store
}

func TestSessions_LoginStoresProfile(t *testing.T) {
	_, store := loggedIn(t, testNow.Add(time.Hour), &fakeRefresher{})
	chars, _ := store.Characters()
	if len(chars) != 1 || chars[0].CharacterID != 90000001 {
		t.Errorf("characters = %+v", chars)
	}
	active, _ := store.ActiveCharacter()
	if active == nil || active.CharacterID != 90000001 {
		t.Errorf("active = %+v", active)
	}
}

func TestEnsureValidToken_FreshTokenNotRefreshed(t *testing.T) {
	r := &fakeRefresher{}
	s, _ := loggedIn(t, testNow.Add(61*time.Second), r)
	tok, _, err := s.EnsureValidToken(context.Background())
	if err != nil || tok != "old-at" {
		t.Fatalf("EnsureValidToken = %q, %v", tok, err)
	}
	if r.calls != 0 {
		t.Errorf("refresh calls = %d, want 0", r.calls)
	}
}

func TestEnsureValidToken_RefreshesInsideBuffer(t *testing.T) {
	r := &fakeRefresher{tok: &TokenResponse{AccessToken: "new-at", ExpiresIn: 1200}}
	s, store := loggedIn(t, testNow.Add(30*time.Second), r)

	tok, c, err := s.EnsureValidToken(context.Background())
	if err != nil || tok != "new-at" {
		t.Fatalf("EnsureValidToken = %q, %v", tok, err)
	}
	if c.RefreshToken != "old-rt" {
		t.Errorf("refresh token = %q, want old one kept", c.RefreshToken)
	}
	if !c.TokenExpiry.Equal(testNow.Add(1200 * time.Second)) {
		t.Errorf("expiry = %v", c.TokenExpiry)
	}
	cur, _ := store.CurrentCharacter()
	stored, _ := store.Character(90000001)
	if cur.AccessToken != "new-at" || stored.AccessToken != "new-at" {
		t.Errorf("stored tokens = %q / %q", cur.AccessToken, stored.AccessToken)
	}
}

func TestEnsureValidToken_RefreshFailureLogsOut(t *testing.T) {
	r := &fakeRefresher{err: errors.New("token endpoint 400: invalid_grant")}
	s, store := loggedIn(t, testNow.Add(-time.Minute), r)

	_, _, err := s.EnsureValidToken(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if cur, _ := store.CurrentCharacter(); cur != nil {
		t.Errorf("still logged in as %+v", cur)
	}
	if _, _, err := s.EnsureValidToken(context.Background()); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("second call err = %v, want ErrNotLoggedIn", err)
	}
	// The profile itself survives logout.
	if chars, _ := store.Characters(); len(chars) != 1 {
		t.Errorf("characters = %+v", chars)
	}
}

func TestSessions_Logout(t *testing.T) {
	s, _ := loggedIn(t, testNow.Add(time.Hour), &fakeRefresher{})
	if err := s.Logout(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Current(); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("Current err = %v", err)
	}
}
