package exchange

import (
	"errors"
	"strings"
	"testing"
)

func TestParseOrderResponseFilled(t *testing.T) {
	resp := map[string]any{
		"status": "ok",
		"response": map[string]any{
			"type": "order",
			"data": map[string]any{
				"statuses": []any{
					map[string]any{
						"filled": map[string]any{
							"oid":     float64(292577153770),
							"totalSz": "0.02",
							"avgPx":   "1891.4",
							"cloid":   "0x188a0f9ee162351d6d6af5b09b97b1c7",
						},
					},
				},
			},
		},
	}
	status, err := ParseOrderResponse(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.OrderID != "292577153770" || status.FilledSize != 0.02 || status.AvgPrice != 1891.4 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if got := OrderIDFromResponse(resp); got != "292577153770" {
		t.Fatalf("expected order id 292577153770, got %s", got)
	}
}

func TestParseOrderResponseResting(t *testing.T) {
	resp := map[string]any{
		"status": "ok",
		"response": map[string]any{"data": map[string]any{
			"statuses": []any{map[string]any{"resting": map[string]any{"oid": float64(77738308)}}},
		}},
	}
	status, err := ParseOrderResponse(resp)
	if err != nil || !status.Resting || status.OrderID != "77738308" {
		t.Fatalf("unexpected status %+v err=%v", status, err)
	}
}

func TestParseOrderResponseStatusError(t *testing.T) {
	resp := map[string]any{
		"status": "ok",
		"response": map[string]any{"data": map[string]any{
			"statuses": []any{map[string]any{"error": "Reduce only order would increase position. asset=0"}},
		}},
	}
	_, err := ParseOrderResponse(resp)
	var actionErr *ActionError
	if !errors.As(err, &actionErr) || !strings.Contains(actionErr.Message, "Reduce only") {
		t.Fatalf("expected reduce-only ActionError, got %v", err)
	}
}

func TestParseOrderResponseEnvelopeError(t *testing.T) {
	resp := map[string]any{"status": "err", "response": "User or API Wallet does not exist."}
	_, err := ParseOrderResponse(resp)
	var actionErr *ActionError
	if !errors.As(err, &actionErr) || actionErr.Message != "User or API Wallet does not exist." {
		t.Fatalf("expected envelope ActionError, got %v", err)
	}
}
