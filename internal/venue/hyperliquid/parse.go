package hyperliquid

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

type assetMeta struct {
	Index      int
	SzDecimals int
}

func parseUniverse(payload map[string]any) (map[string]assetMeta, error) {
	universe, ok := payload["universe"].([]any)
	if !ok || len(universe) == 0 {
		return nil, errors.New("meta missing universe")
	}
	assets := make(map[string]assetMeta, len(universe))
	for i, entry := range universe {
		meta, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		name := strings.ToUpper(stringFromAny(meta["name"]))
		if name == "" {
			continue
		}
		assets[name] = assetMeta{Index: i, SzDecimals: intFromAny(meta["szDecimals"])}
	}
	if len(assets) == 0 {
		return nil, errors.New("no perp assets parsed")
	}
	return assets, nil
}

// bestLevel returns the top price for the book side a taker of side would
// consume: asks (levels[1]) for buys, bids (levels[0]) for sells.
func bestLevel(book map[string]any, buy bool) (float64, bool) {
	levels, ok := book["levels"].([]any)
	if !ok || len(levels) != 2 {
		return 0, false
	}
	idx := 0
	if buy {
		idx = 1
	}
	side, ok := levels[idx].([]any)
	if !ok || len(side) == 0 {
		return 0, false
	}
	top, ok := side[0].(map[string]any)
	if !ok {
		return 0, false
	}
	px, ok := floatFromAny(top["px"])
	if !ok || px <= 0 {
		return 0, false
	}
	return px, true
}

// signedPosition returns szi for coin; ok is false when the coin has no entry.
func signedPosition(state map[string]any, coin string) (float64, bool) {
	raw, _ := state["assetPositions"].([]any)
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		pos := entry
		if nested, ok := entry["position"].(map[string]any); ok {
			pos = nested
		}
		if !strings.EqualFold(stringFromAny(pos["coin"]), coin) {
			continue
		}
		size, ok := floatFromAny(pos["szi"])
		return size, ok
	}
	return 0, false
}

func accountValue(state map[string]any) (float64, bool) {
	for _, key := range []string{"marginSummary", "crossMarginSummary"} {
		summary, ok := state[key].(map[string]any)
		if !ok {
			continue
		}
		if v, ok := floatFromAny(summary["accountValue"]); ok {
			return v, true
		}
	}
	return 0, false
}

func stringFromAny(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	default:
		return ""
	}
}

func floatFromAny(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func intFromAny(v any) int {
	if f, ok := floatFromAny(v); ok {
		return int(math.Round(f))
	}
	return 0
}
