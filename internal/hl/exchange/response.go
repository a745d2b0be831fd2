package exchange

import (
	"fmt"
	"strconv"
	"strings"
)

// ActionError is a rejection reported inside a 200 response.
type ActionError struct {
	Message string
}

func (e *ActionError) Error() string {
	return "exchange rejected action: " + e.Message
}

// OrderStatus is the first entry of response.data.statuses.
type OrderStatus struct {
	OrderID    string
	FilledSize float64
	AvgPrice   float64
	Resting    bool
}

// ParseOrderResponse returns an *ActionError when the exchange refused the
// order, either at the envelope level or in its per-order status.
func ParseOrderResponse(resp map[string]any) (OrderStatus, error) {
	if resp == nil {
		return OrderStatus{}, fmt.Errorf("empty order response")
	}
	if status, _ := resp["status"].(string); strings.EqualFold(status, "err") {
		return OrderStatus{}, &ActionError{Message: fmt.Sprint(resp["response"])}
	}
	body, _ := resp["response"].(map[string]any)
	data, _ := body["data"].(map[string]any)
	statuses, _ := data["statuses"].([]any)
	if len(statuses) == 0 {
		return OrderStatus{OrderID: OrderIDFromResponse(resp)}, nil
	}
	entry, _ := statuses[0].(map[string]any)
	if msg, ok := entry["error"].(string); ok {
		return OrderStatus{}, &ActionError{Message: msg}
	}
	if filled, ok := entry["filled"].(map[string]any); ok {
		return OrderStatus{
			OrderID:    stringFromAny(filled["oid"]),
			FilledSize: floatFromAny(filled["totalSz"]),
			AvgPrice:   floatFromAny(filled["avgPx"]),
		}, nil
	}
	if resting, ok := entry["resting"].(map[string]any); ok {
		return OrderStatus{OrderID: stringFromAny(resting["oid"]), Resting: true}, nil
	}
	return OrderStatus{OrderID: OrderIDFromResponse(resp)}, nil
}

func OrderIDFromResponse(resp map[string]any) string {
	if resp == nil {
		return ""
	}
	return orderIDFromAny(resp)
}

func stringFromAny(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatInt(int64(val), 10)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return ""
	}
}

func floatFromAny(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	default:
		return 0
	}
}

func orderIDFromAny(v any) string {
	switch val := v.(type) {
	case map[string]any:
		for _, key := range []string{"oid", "orderId", "id"} {
			if id := stringFromAny(val[key]); id != "" {
				return id
			}
		}
		for _, nested := range val {
			if id := orderIDFromAny(nested); id != "" {
				return id
			}
		}
	case []any:
		for _, nested := range val {
			if id := orderIDFromAny(nested); id != "" {
				return id
			}
		}
	}
	return ""
}
