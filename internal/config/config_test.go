package config

import (
	"errors"
	"testing"
)

func TestDefault_Values(t *testing.T) {
	c := Default()
	if c == nil {
		t.Fatal("Default() returned nil")
	}
	if c.ESIBaseURL != "https://esi.evetech.net/latest" {
		t.Errorf("ESIBaseURL = %q", c.ESIBaseURL)
	}
	if c.ZKillboardBaseURL != "https://zkillboard.com/api" {
		t.Errorf("ZKillboardBaseURL = %q", c.ZKillboardBaseURL)
	}
	if c.Datasource != "tranquility" {
		t.Errorf("Datasource = %q, want tranquility", c.Datasource)
	}
	if c.DangerMediumAbove != 5 || c.DangerHighAbove != 10 || c.DangerExtremeAbove != 20 {
		t.Errorf("danger thresholds = %d/%d/%d", c.DangerMediumAbove, c.DangerHighAbove, c.DangerExtremeAbove)
	}
	if c.RiskHighSystemsAbove != 2 || c.RiskMediumSystemsAbove != 3 {
		t.Errorf("risk policy = %d/%d", c.RiskHighSystemsAbove, c.RiskMediumSystemsAbove)
	}
	if c.SecondsPerJump != 60 {
		t.Errorf("SecondsPerJump = %d, want 60", c.SecondsPerJump)
	}
	if len(c.Scopes) != 8 {
		t.Errorf("Scopes = %v, want 8 entries", c.Scopes)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("ESI_CLIENT_ID", "abc")
	t.Setenv("ESI_BASE_URL", "http://localhost:9999")
	t.Setenv("ZKILLBOARD_CONCURRENCY", "2")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.ClientID != "abc" || c.ESIBaseURL != "http://localhost:9999" {
		t.Errorf("ClientID/ESIBaseURL = %q/%q", c.ClientID, c.ESIBaseURL)
	}
	if c.ZKillboardConcurrency != 2 {
		t.Errorf("ZKillboardConcurrency = %d", c.ZKillboardConcurrency)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_BadValue(t *testing.T) {
	t.Setenv("ZKILLBOARD_CONCURRENCY", "many")
	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate_MissingClientID(t *testing.T) {
	if err := Default().Validate(); !errors.Is(err, ErrMissingClientID) {
		t.Errorf("Validate() = %v, want ErrMissingClientID", err)
	}
}
