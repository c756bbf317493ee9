package esi

import (
	"context"
	"fmt"
	"net/url"
)

// Position is a point in a solar system, in metres.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// SolarSystem mirrors /universe/systems/{id}/.
type SolarSystem struct {
	SystemID        int32    `json:"system_id"`
	Name            string   `json:"name"`
	ConstellationID int32    `json:"constellation_id"`
	SecurityStatus  float64  `json:"security_status"`
	SecurityClass   string   `json:"security_class,omitempty"`
	StarID          int32    `json:"star_id,omitempty"`
	Stargates       []int32  `json:"stargates,omitempty"`
	Stations        []int32  `json:"stations,omitempty"`
	Planets         []Planet `json:"planets,omitempty"`
	Position        Position `json:"position"`
}

// Planet is the planet entry embedded in a solar system.
type Planet struct {
	PlanetID int32   `json:"planet_id"`
	Moons    []int32 `json:"moons,omitempty"`
}

// NameEntry is one row of /universe/names/.
type NameEntry struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// GetSolarSystem fetches solar system details.
func (c *Client) GetSolarSystem(ctx context.Context, systemID int32) (*SolarSystem, error) {
	var sys SolarSystem
	if err := c.GetJSON(ctx, c.endpoint(fmt.Sprintf("/universe/systems/%d/", systemID), nil), &sys); err != nil {
		return nil, fmt.Errorf("solar system %d: %w", systemID, err)
	}
	return &sys, nil
}

// ResolveNames maps IDs of any category to names in a single request.
func (c *Client) ResolveNames(ctx context.Context, ids []int64) ([]NameEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var names []NameEntry
	if err := c.PostJSON(ctx, c.endpoint("/universe/names/", nil), ids, &names); err != nil {
		return nil, fmt.Errorf("universe names: %w", err)
	}
	return names, nil
}

// SearchSolarSystems returns solar system IDs whose name matches term.
func (c *Client) SearchSolarSystems(ctx context.Context, term string) ([]int32, error) {
	params := url.Values{}
	params.Set("categories", "solar_system")
	params.Set("search", term)
	params.Set("strict", "false")

	var res struct {
		SolarSystem []int32 `json:"solar_system"`
	}
	if err := c.GetJSON(ctx, c.endpoint("/search/", params), &res); err != nil {
		return nil, fmt.Errorf("search %q: %w", term, err)
	}
	if res.SolarSystem == nil {
		return []int32{}, nil
	}
	return res.SolarSystem, nil
}
