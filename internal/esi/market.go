package esi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// MarketOrder mirrors the ESI regional market order response.
type MarketOrder struct {
	OrderID      int64   `json:"order_id"`
	TypeID       int32   `json:"type_id"`
	LocationID   int64   `json:"location_id"`
	SystemID     int32   `json:"system_id"`
	Price        float64 `json:"price"`
	VolumeRemain int32   `json:"volume_remain"`
	VolumeTotal  int32   `json:"volume_total"`
	MinVolume    int32   `json:"min_volume"`
	IsBuyOrder   bool    `json:"is_buy_order"`
	Duration     int     `json:"duration"`
	Issued       string  `json:"issued"`
	Range        string  `json:"range"`
}

// GetMarketOrders fetches all orders in a region, optionally for one type.
// typeID <= 0 means every type.
func (c *Client) GetMarketOrders(ctx context.Context, regionID, typeID int32) ([]MarketOrder, error) {
	params := url.Values{}
	params.Set("order_type", "all")
	if typeID > 0 {
		params.Set("type_id", strconv.FormatInt(int64(typeID), 10))
	}
	orders, err := getPaged[MarketOrder](ctx, c, fmt.Sprintf("/markets/%d/orders/", regionID), params, "")
	if err != nil {
		return nil, fmt.Errorf("market orders %d: %w", regionID, err)
	}
	return orders, nil
}
