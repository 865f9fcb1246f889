package ir

import (
	"fmt"
	"strconv"
)

// Encode converts k into its canonical value form. Kernel and parameter names
// are excluded so that only structure contributes to the program key.
func Encode(k *Kernel) (Object, error) {
	params := make(Array, len(k.Params))
	for i, p := range k.Params {
		params[i] = String(p.Kind.String())
	}
	body := make(Array, len(k.Body))
	for i, st := range k.Body {
		idx, err := encodeExpr(st.Index)
		if err != nil {
			return nil, fmt.Errorf("statement %d index: %w", i, err)
		}
		val, err := encodeExpr(st.Value)
		if err != nil {
			return nil, fmt.Errorf("statement %d value: %w", i, err)
		}
		body[i] = Object{
			"param": Int64(st.Param),
			"index": idx,
			"value": val,
		}
	}
	return Object{
		"dims":   Int64(k.Dims),
		"params": params,
		"body":   body,
	}, nil
}

func encodeExpr(e Expr) (Value, error) {
	switch n := e.(type) {
	case Coord:
		return Object{"node": String("coord"), "component": String(n.Component.String())}, nil
	case Load:
		idx, err := encodeExpr(n.Index)
		if err != nil {
			return nil, err
		}
		return Object{"node": String("load"), "param": Int64(n.Param), "index": idx}, nil
	case Binary:
		l, err := encodeExpr(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := encodeExpr(n.Right)
		if err != nil {
			return nil, err
		}
		return Object{"node": String("binary"), "op": String(n.Op.Symbol()), "left": l, "right": r}, nil
	case Negate:
		v, err := encodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return Object{"node": String("negate"), "value": v}, nil
	case Member:
		v, err := encodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return Object{"node": String("member"), "component": String(n.Component.String()), "value": v}, nil
	case Literal:
		return Object{
			"node": String("literal"),
			"kind": String(n.Kind.String()),
			"bits": String(strconv.FormatUint(n.Bits(), 16)),
		}, nil
	default:
		return nil, NewUnsupportedExpression("cannot encode node %T", e)
	}
}
