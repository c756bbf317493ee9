package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"quartermaster/internal/config"
)

// SSOConfig describes the EVE SSO application. It is a public client: the
// authorization code is bound with PKCE instead of a client secret.
type SSOConfig struct {
	ClientID     string
	CallbackURL  string
	Scopes       []string
	AuthorizeURL string
	TokenURL     string

	HTTP *http.Client
}

// NewSSOConfig builds the SSO settings from the loaded config.
func NewSSOConfig(cfg *config.Config) *SSOConfig {
	return &SSOConfig{
		ClientID:     cfg.ClientID,
		CallbackURL:  cfg.CallbackURL,
		Scopes:       cfg.Scopes,
		AuthorizeURL: cfg.AuthorizeURL,
		TokenURL:     cfg.TokenURL,
		HTTP:         &http.Client{Timeout: 15 * time.Second},
	}
}

// TokenResponse is the token endpoint's reply.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// ExpiresAt converts ExpiresIn into an absolute time.
func (t *TokenResponse) ExpiresAt(now time.Time) time.Time {
	return now.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// PKCE is a code verifier and its S256 challenge.
type PKCE struct {
	Verifier  string
	Challenge string
}

// NewPKCE generates a fresh verifier.
func NewPKCE() (PKCE, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return PKCE{}, fmt.Errorf("pkce verifier: %w", err)
	}
	verifier := base64.RawURLEncoding.EncodeToString(b)
	return PKCE{Verifier: verifier, Challenge: challengeFor(verifier)}, nil
}

func challengeFor(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// GenerateState returns a random OAuth state value.
func GenerateState() string {
	return uuid.NewString()
}

// BuildAuthURL returns the URL the user is sent to for login.
func (c *SSOConfig) BuildAuthURL(state, challenge string) string {
	params := url.Values{
		"response_type":         {"code"},
		"redirect_uri":          {c.CallbackURL},
		"client_id":             {c.ClientID},
		"scope":                 {strings.Join(c.Scopes, " ")},
		"state":                 {state},
		"code_challenge":        {challenge},
		"code_challenge_method": {"S256"},
	}
	return c.AuthorizeURL + "?" + params.Encode()
}

// ExchangeCode trades an authorization code for tokens.
func (c *SSOConfig) ExchangeCode(ctx context.Context, code, verifier string) (*TokenResponse, error) {
	return c.postToken(ctx, url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {c.ClientID},
		"code_verifier": {verifier},
	})
}

// RefreshToken gets a new access token using a refresh token.
func (c *SSOConfig) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	return c.postToken(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {c.ClientID},
	})
}

func (c *SSOConfig) postToken(ctx context.Context, form url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("token endpoint %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var tok TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, errors.New("token endpoint returned no access token")
	}
	return &tok, nil
}

// Identity is the character an access token was issued to.
type Identity struct {
	CharacterID   int64
	CharacterName string
}

const subjectPrefix = "CHARACTER:EVE:"

// TokenIdentity reads the character from an access token's claims. The
// signature is not checked; the token came straight from the token endpoint.
func TokenIdentity(accessToken string) (*Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("token subject: %w", err)
	}
	if !strings.HasPrefix(sub, subjectPrefix) {
		return nil, fmt.Errorf("unexpected token subject %q", sub)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(sub, subjectPrefix), 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("unexpected token subject %q", sub)
	}
	name, _ := claims["name"].(string)
	return &Identity{CharacterID: id, CharacterName: name}, nil
}

// CharacterIDFromToken returns the character ID encoded in an access token.
func CharacterIDFromToken(accessToken string) (int64, error) {
	id, err := TokenIdentity(accessToken)
	if err != nil {
		return 0, err
	}
	return id.CharacterID, nil
}
