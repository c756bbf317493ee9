package esi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// RouteFlag selects ESI's path preference.
type RouteFlag string

const (
	RouteShortest RouteFlag = "shortest"
	RouteSecure   RouteFlag = "secure"
	RouteInsecure RouteFlag = "insecure"
)

// GetRoute asks ESI for a path from origin to destination, inclusive of both
// ends. Systems in avoid are excluded by the path service when possible.
func (c *Client) GetRoute(ctx context.Context, origin, destination int32, avoid []int32, flag RouteFlag) ([]int32, error) {
	params := url.Values{}
	if len(avoid) > 0 {
		ids := make([]string, len(avoid))
		for i, id := range avoid {
			ids[i] = strconv.FormatInt(int64(id), 10)
		}
		params.Set("avoid", strings.Join(ids, ","))
	}
	if flag != "" {
		params.Set("flag", string(flag))
	}

	var systems []int32
	path := fmt.Sprintf("/route/%d/%d/", origin, destination)
	if err := c.GetJSON(ctx, c.endpoint(path, params), &systems); err != nil {
		return nil, fmt.Errorf("route %d -> %d: %w", origin, destination, err)
	}
	return systems, nil
}
