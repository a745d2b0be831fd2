package exchange

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	priceSigFigs    = 5
	perpMaxDecimals = 6
)

func LimitOrderWire(asset int, isBuy bool, size, limit float64, reduceOnly bool, tif Tif, cloid string) (OrderWire, error) {
	if tif == "" {
		return OrderWire{}, errors.New("tif is required")
	}
	price, err := floatToWire(limit)
	if err != nil {
		return OrderWire{}, fmt.Errorf("limit price: %w", err)
	}
	sz, err := floatToWire(size)
	if err != nil {
		return OrderWire{}, fmt.Errorf("size: %w", err)
	}
	return OrderWire{
		Asset:      asset,
		IsBuy:      isBuy,
		Price:      price,
		Size:       sz,
		ReduceOnly: reduceOnly,
		OrderType:  OrderTypeWire{Limit: &LimitOrderType{Tif: tif}},
		Cloid:      cloid,
	}, nil
}

// NormalizePerpPrice rounds to five significant figures and at most
// 6-szDecimals decimals, the precision perp order prices are accepted at.
func NormalizePerpPrice(price float64, szDecimals int) float64 {
	if price == 0 {
		return 0
	}
	if sig, err := strconv.ParseFloat(strconv.FormatFloat(price, 'g', priceSigFigs, 64), 64); err == nil {
		price = sig
	}
	decimals := perpMaxDecimals - max(szDecimals, 0)
	if decimals < 0 {
		decimals = 0
	}
	scale := math.Pow10(decimals)
	return math.Round(price*scale) / scale
}

// RoundSize rounds size to szDecimals so it survives floatToWire.
func RoundSize(size float64, szDecimals int) float64 {
	scale := math.Pow10(max(szDecimals, 0))
	return math.Round(size*scale) / scale
}

// CloidFromString maps any client order id onto the 16-byte hex form the
// exchange requires. UUIDs map to their raw bytes.
func CloidFromString(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, "0x") && len(id) == 34 {
		if _, err := hex.DecodeString(id[2:]); err == nil {
			return strings.ToLower(id)
		}
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		parsed = uuid.NewSHA1(uuid.NameSpaceOID, []byte(id))
	}
	return "0x" + hex.EncodeToString(parsed[:])
}

func floatToWire(x float64) (string, error) {
	rounded := strconv.FormatFloat(x, 'f', 8, 64)
	parsed, err := strconv.ParseFloat(rounded, 64)
	if err != nil {
		return "", err
	}
	if math.Abs(parsed-x) >= 1e-12 {
		return "", fmt.Errorf("float_to_wire causes rounding: %f", x)
	}
	trimmed := strings.TrimRight(strings.TrimRight(rounded, "0"), ".")
	if trimmed == "" || trimmed == "-0" {
		trimmed = "0"
	}
	return trimmed, nil
}
