package exchange

import (
	"bytes"
	"errors"

	"github.com/vmihailenco/msgpack/v5"
)

// actionEncoder writes msgpack maps in a fixed key order. The exchange hashes
// the raw bytes, so field order matters.
type actionEncoder struct {
	enc *msgpack.Encoder
	err error
}

func (e *actionEncoder) do(fn func() error) {
	if e.err == nil {
		e.err = fn()
	}
}

func (e *actionEncoder) mapLen(n int) { e.do(func() error { return e.enc.EncodeMapLen(n) }) }

func (e *actionEncoder) str(s string) { e.do(func() error { return e.enc.EncodeString(s) }) }

func (e *actionEncoder) kv(key, value string) {
	e.str(key)
	e.str(value)
}

func (e *actionEncoder) kbool(key string, value bool) {
	e.str(key)
	e.do(func() error { return e.enc.EncodeBool(value) })
}

func EncodeOrderAction(action OrderAction) ([]byte, error) {
	if action.Type == "" {
		return nil, errors.New("action type is required")
	}
	if len(action.Orders) == 0 {
		return nil, errors.New("action orders are required")
	}
	if action.Grouping == "" {
		action.Grouping = "na"
	}
	var buf bytes.Buffer
	e := &actionEncoder{enc: msgpack.NewEncoder(&buf)}
	e.mapLen(3)
	e.kv("type", action.Type)
	e.str("orders")
	e.do(func() error { return e.enc.EncodeArrayLen(len(action.Orders)) })
	for _, order := range action.Orders {
		e.order(order)
	}
	e.kv("grouping", action.Grouping)
	if e.err != nil {
		return nil, e.err
	}
	return buf.Bytes(), nil
}

func (e *actionEncoder) order(order OrderWire) {
	if order.OrderType.Limit == nil {
		e.do(func() error { return errors.New("limit order type required") })
		return
	}
	n := 6
	if order.Cloid != "" {
		n++
	}
	e.mapLen(n)
	e.str("a")
	e.do(func() error { return e.enc.EncodeInt(int64(order.Asset)) })
	e.kbool("b", order.IsBuy)
	e.kv("p", order.Price)
	e.kv("s", order.Size)
	e.kbool("r", order.ReduceOnly)
	e.str("t")
	e.mapLen(1)
	e.str("limit")
	e.mapLen(1)
	e.kv("tif", string(order.OrderType.Limit.Tif))
	if order.Cloid != "" {
		e.kv("c", order.Cloid)
	}
}
