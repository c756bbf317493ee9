package zkillboard

import (
	"context"
	"fmt"
	"time"
)

// Killmail is a kill record as returned by the zKillboard kill lists.
type Killmail struct {
	KillmailID    int64    `json:"killmail_id"`
	KillmailTime  string   `json:"killmail_time"`
	SolarSystemID int32    `json:"solar_system_id"`
	Victim        *Victim  `json:"victim,omitempty"`
	ZKB           *ZKBInfo `json:"zkb,omitempty"`
}

// Time parses KillmailTime. Unparseable or missing times return the zero value.
func (k Killmail) Time() time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, k.KillmailTime); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Victim is the subset of victim data the app reads.
type Victim struct {
	ShipTypeID    int32 `json:"ship_type_id"`
	CharacterID   int64 `json:"character_id,omitempty"`
	CorporationID int32 `json:"corporation_id,omitempty"`
}

// ZKBInfo contains zKillboard-specific killmail info.
type ZKBInfo struct {
	LocationID     int64   `json:"locationID"`
	Hash           string  `json:"hash"`
	FittedValue    float64 `json:"fittedValue"`
	DroppedValue   float64 `json:"droppedValue"`
	DestroyedValue float64 `json:"destroyedValue"`
	TotalValue     float64 `json:"totalValue"`
	Points         int     `json:"points"`
	NPC            bool    `json:"npc"`
	Solo           bool    `json:"solo"`
	Awox           bool    `json:"awox"`
}

// KillmailSummary is one observed kill, used for counting within a window.
type KillmailSummary struct {
	KillmailID       int64     `json:"killmail_id"`
	KillmailTime     time.Time `json:"killmail_time"`
	SolarSystemID    int32     `json:"solar_system_id"`
	VictimShipTypeID int32     `json:"victim_ship_type_id"`
	TotalValue       float64   `json:"total_value"`
}

func summarize(k Killmail) KillmailSummary {
	s := KillmailSummary{
		KillmailID:    k.KillmailID,
		KillmailTime:  k.Time(),
		SolarSystemID: k.SolarSystemID,
	}
	if k.Victim != nil {
		s.VictimShipTypeID = k.Victim.ShipTypeID
	}
	if k.ZKB != nil {
		s.TotalValue = k.ZKB.TotalValue
	}
	return s
}

// GetSystemKills returns kills in a solar system newer than now-window.
// The cutoff is taken when the response arrives.
func (c *Client) GetSystemKills(ctx context.Context, systemID int32, window time.Duration) ([]KillmailSummary, error) {
	url := fmt.Sprintf("%s/kills/solarSystemID/%d/", c.baseURL, systemID)

	var kills []Killmail
	if err := c.getJSON(ctx, url, &kills); err != nil {
		return nil, fmt.Errorf("system kills %d: %w", systemID, err)
	}

	cutoff := c.now().Add(-window)
	out := make([]KillmailSummary, 0, len(kills))
	for _, k := range kills {
		if k.Time().After(cutoff) {
			out = append(out, summarize(k))
		}
	}
	return out, nil
}

// GetCharacterKills returns up to limit recent kills involving a character.
func (c *Client) GetCharacterKills(ctx context.Context, characterID int64, limit int) ([]Killmail, error) {
	return c.entityKills(ctx, "characterID", characterID, limit)
}

// GetCorporationKills returns up to limit recent kills involving a corporation.
func (c *Client) GetCorporationKills(ctx context.Context, corporationID int64, limit int) ([]Killmail, error) {
	return c.entityKills(ctx, "corporationID", corporationID, limit)
}

func (c *Client) entityKills(ctx context.Context, key string, id int64, limit int) ([]Killmail, error) {
	if limit <= 0 {
		limit = 50
	}
	url := fmt.Sprintf("%s/kills/%s/%d/", c.baseURL, key, id)

	var kills []Killmail
	if err := c.getJSON(ctx, url, &kills); err != nil {
		return nil, fmt.Errorf("%s %d kills: %w", key, id, err)
	}
	if kills == nil {
		kills = []Killmail{}
	}
	if len(kills) > limit {
		kills = kills[:limit]
	}
	return kills, nil
}
