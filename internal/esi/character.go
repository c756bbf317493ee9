package esi

import (
	"context"
	"fmt"
)

// CharacterInfo is the public character sheet.
type CharacterInfo struct {
	Name           string  `json:"name"`
	CorporationID  int32   `json:"corporation_id"`
	AllianceID     int32   `json:"alliance_id,omitempty"`
	Birthday       string  `json:"birthday"`
	SecurityStatus float64 `json:"security_status"`
}

// Asset represents an asset row from character inventory.
type Asset struct {
	ItemID       int64  `json:"item_id"`
	TypeID       int32  `json:"type_id"`
	LocationID   int64  `json:"location_id"`
	LocationType string `json:"location_type"`
	LocationFlag string `json:"location_flag"`
	Quantity     int64  `json:"quantity"`
	IsSingleton  bool   `json:"is_singleton"`
	// Enriched by the API layer
	TypeName string `json:"type_name,omitempty"`
}

// CharacterOrder represents a character's active market order.
type CharacterOrder struct {
	OrderID      int64   `json:"order_id"`
	TypeID       int32   `json:"type_id"`
	LocationID   int64   `json:"location_id"`
	RegionID     int32   `json:"region_id"`
	Price        float64 `json:"price"`
	VolumeRemain int32   `json:"volume_remain"`
	VolumeTotal  int32   `json:"volume_total"`
	MinVolume    int32   `json:"min_volume,omitempty"`
	IsBuyOrder   bool    `json:"is_buy_order"`
	Duration     int     `json:"duration"`
	Issued       string  `json:"issued"`
	Range        string  `json:"range"`
	// Enriched by the API layer
	TypeName string `json:"type_name,omitempty"`
}

// Skill is a single trained skill.
type Skill struct {
	SkillID      int32 `json:"skill_id"`
	ActiveLevel  int   `json:"active_skill_level"`
	TrainedLevel int   `json:"trained_skill_level"`
	SkillPoints  int64 `json:"skillpoints_in_skill"`
}

// Skills is the character's skill sheet.
type Skills struct {
	CharacterID int64   `json:"character_id"`
	Skills      []Skill `json:"skills"`
	TotalSP     int64   `json:"total_sp"`
	UnallocSP   int64   `json:"unallocated_sp,omitempty"`
}

// Level returns the active level of a skill, or 0 when it is not trained.
func (s *Skills) Level(skillID int32) int {
	if s == nil {
		return 0
	}
	for _, sk := range s.Skills {
		if sk.SkillID == skillID {
			return sk.ActiveLevel
		}
	}
	return 0
}

// GetCharacterInfo fetches the public character sheet.
func (c *Client) GetCharacterInfo(ctx context.Context, characterID int64) (*CharacterInfo, error) {
	var info CharacterInfo
	if err := c.GetJSON(ctx, c.endpoint(fmt.Sprintf("/characters/%d/", characterID), nil), &info); err != nil {
		return nil, fmt.Errorf("character info: %w", err)
	}
	return &info, nil
}

// GetCharacterAssets fetches all pages of character assets.
func (c *Client) GetCharacterAssets(ctx context.Context, characterID int64, accessToken string) ([]Asset, error) {
	assets, err := getPaged[Asset](ctx, c, fmt.Sprintf("/characters/%d/assets/", characterID), nil, accessToken)
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}
	return assets, nil
}

// GetCharacterOrders fetches a character's active market orders.
func (c *Client) GetCharacterOrders(ctx context.Context, characterID int64, accessToken string) ([]CharacterOrder, error) {
	var orders []CharacterOrder
	if err := c.AuthGetJSON(ctx, c.endpoint(fmt.Sprintf("/characters/%d/orders/", characterID), nil), accessToken, &orders); err != nil {
		return nil, fmt.Errorf("character orders: %w", err)
	}
	return orders, nil
}

// GetCharacterSkills fetches a character's trained skills.
func (c *Client) GetCharacterSkills(ctx context.Context, characterID int64, accessToken string) (*Skills, error) {
	var sheet Skills
	if err := c.AuthGetJSON(ctx, c.endpoint(fmt.Sprintf("/characters/%d/skills/", characterID), nil), accessToken, &sheet); err != nil {
		return nil, fmt.Errorf("skills: %w", err)
	}
	sheet.CharacterID = characterID
	return &sheet, nil
}
