package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds process settings. Every field is sourced from the environment;
// unset variables fall back to the envDefault tag.
type Config struct {
	ESIBaseURL        string `env:"ESI_BASE_URL" envDefault:"https://esi.evetech.net/latest"`
	Datasource        string `env:"ESI_DATASOURCE" envDefault:"tranquility"`
	ZKillboardBaseURL string `env:"ZKILLBOARD_BASE_URL" envDefault:"https://zkillboard.com/api"`
	UserAgent         string `env:"QUARTERMASTER_USER_AGENT" envDefault:"Quartermaster-App/1.0"`

	// EVE SSO. PKCE public client, so there is no client secret.
	ClientID     string   `env:"ESI_CLIENT_ID"`
	CallbackURL  string   `env:"ESI_CALLBACK_URL" envDefault:"quartermaster://auth"`
	AuthorizeURL string   `env:"ESI_AUTHORIZE_URL" envDefault:"https://login.eveonline.com/v2/oauth/authorize"`
	TokenURL     string   `env:"ESI_TOKEN_URL" envDefault:"https://login.eveonline.com/v2/oauth/token"`
	Scopes       []string `env:"ESI_SCOPES" envSeparator:" " envDefault:"esi-assets.read_assets.v1 esi-characters.read_standings.v1 esi-markets.read_character_orders.v1 esi-universe.read_structures.v1 esi-location.read_location.v1 esi-location.read_ship_type.v1 esi-skills.read_skills.v1 esi-wallet.read_character_wallet.v1"`

	DBPath     string `env:"QUARTERMASTER_DB_PATH" envDefault:"quartermaster.db"`
	ListenAddr string `env:"QUARTERMASTER_LISTEN_ADDR" envDefault:"127.0.0.1:13370"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	// Kill-activity fan-out and danger policy.
	ZKillboardConcurrency  int     `env:"ZKILLBOARD_CONCURRENCY" envDefault:"5"`
	ZKillboardRPS          float64 `env:"ZKILLBOARD_RPS" envDefault:"10"`
	DangerMediumAbove      int     `env:"DANGER_MEDIUM_ABOVE" envDefault:"5"`
	DangerHighAbove        int     `env:"DANGER_HIGH_ABOVE" envDefault:"10"`
	DangerExtremeAbove     int     `env:"DANGER_EXTREME_ABOVE" envDefault:"20"`
	RiskHighSystemsAbove   int     `env:"RISK_HIGH_SYSTEMS_ABOVE" envDefault:"2"`
	RiskMediumSystemsAbove int     `env:"RISK_MEDIUM_SYSTEMS_ABOVE" envDefault:"3"`
	SecondsPerJump         int     `env:"ROUTE_SECONDS_PER_JUMP" envDefault:"60"`
}

// ErrMissingClientID is returned by Validate when SSO cannot be configured.
var ErrMissingClientID = errors.New("ESI_CLIENT_ID is not set (register an app at https://developers.eveonline.com/)")

// Load parses the process environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Default returns a Config with only the envDefault values applied.
func Default() *Config {
	cfg := &Config{}
	_ = env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}})
	return cfg
}

// Validate reports settings the app cannot run a full login flow without.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return ErrMissingClientID
	}
	return nil
}
