package ir

import (
	"errors"
	"strconv"
)

// Validate type-checks every statement of k.
// Errors are *TranslationError values; the first failure is returned.
func Validate(k *Kernel) error {
	if k == nil {
		return NewUnsupportedExpression("nil kernel")
	}
	if !k.Dims.Valid() {
		return NewUnsupportedExpression("range must have 1, 2 or 3 dimensions, got %d", k.Dims)
	}
	for i, p := range k.Params {
		if !p.Kind.Storable() {
			return NewTypeNotSupported("parameter %s: %s is not a buffer element type", k.ParamName(i), p.Kind)
		}
	}
	for i, st := range k.Body {
		if err := validateStore(k, st); err != nil {
			var te *TranslationError
			if errors.As(err, &te) {
				c := *te
				c.Message = "statement " + strconv.Itoa(i) + ": " + c.Message
				return &c
			}
			return err
		}
	}
	return nil
}

func validateStore(k *Kernel, st Store) error {
	if st.Param < 0 || st.Param >= len(k.Params) {
		return NewUnresolvedSymbol("store target references undeclared parameter %d", st.Param)
	}
	if err := checkIndex(k, st.Index); err != nil {
		return err
	}
	vk, err := TypeOf(k, st.Value)
	if err != nil {
		return err
	}
	target := k.Params[st.Param].Kind
	if !Assignable(vk, target) {
		return NewTypeNotSupported("cannot store %s into %s element of %s", vk, target, k.ParamName(st.Param))
	}
	return nil
}

// Assignable reports whether a value of kind from can be stored into an
// element of kind to. Scalars convert between scalar kinds, bool converts to
// any scalar, and scalars splat into vectors whose scalar they promote to.
func Assignable(from, to Kind) bool {
	switch {
	case from == to:
		return true
	case !to.Storable():
		return false
	case from == Bool:
		return !to.IsVector()
	case !from.IsVector() && !to.IsVector():
		return true
	case !from.IsVector() && to.IsVector():
		return promotesTo(from, to.Scalar())
	default:
		return false
	}
}

func checkIndex(k *Kernel, idx Expr) error {
	ik, err := TypeOf(k, idx)
	if err != nil {
		return err
	}
	if ik != Int && ik != UInt {
		return NewTypeNotSupported("index must be an int or uint scalar, got %s", ik)
	}
	return nil
}

// TypeOf resolves the kind of e in the context of k.
func TypeOf(k *Kernel, e Expr) (Kind, error) {
	switch n := e.(type) {
	case Coord:
		if n.Component == ComponentAll {
			return Int, nil
		}
		if n.Component > ComponentZ {
			return KindInvalid, NewUnsupportedExpression("range has no component %s", n.Component)
		}
		if n.Component.Index() >= int(k.Dims) {
			return KindInvalid, NewUnsupportedExpression("component %s of a %s range", n.Component, k.Dims)
		}
		return Int, nil

	case Load:
		if n.Param < 0 || n.Param >= len(k.Params) {
			return KindInvalid, NewUnresolvedSymbol("load references undeclared parameter %d", n.Param)
		}
		if err := checkIndex(k, n.Index); err != nil {
			return KindInvalid, err
		}
		return k.Params[n.Param].Kind, nil

	case Binary:
		if n.Op.IsComparison() {
			if _, err := OperandKind(k, n); err != nil {
				return KindInvalid, err
			}
			return Bool, nil
		}
		return OperandKind(k, n)

	case Negate:
		vk, err := TypeOf(k, n.Value)
		if err != nil {
			return KindInvalid, err
		}
		if vk == Bool {
			return KindInvalid, NewTypeNotSupported("cannot negate a bool")
		}
		return vk, nil

	case Member:
		vk, err := TypeOf(k, n.Value)
		if err != nil {
			return KindInvalid, err
		}
		if !vk.IsVector() {
			return KindInvalid, NewUnsupportedExpression("member %s on non-vector %s", n.Component, vk)
		}
		if n.Component == ComponentAll || n.Component.Index() >= vk.Components() {
			return KindInvalid, NewUnsupportedExpression("%s has no component %s", vk, n.Component)
		}
		return vk.Scalar(), nil

	case Literal:
		switch n.Kind {
		case Int, UInt, Float, Double:
			return n.Kind, nil
		default:
			return KindInvalid, NewTypeNotSupported("literal of kind %s", n.Kind)
		}

	case nil:
		return KindInvalid, NewUnsupportedExpression("missing expression")

	default:
		return KindInvalid, NewUnsupportedExpression("unknown node %T", e)
	}
}

// OperandKind returns the kind both operands of n are converted to before the
// operator applies. For arithmetic this is also the result kind.
func OperandKind(k *Kernel, n Binary) (Kind, error) {
	lk, err := TypeOf(k, n.Left)
	if err != nil {
		return KindInvalid, err
	}
	rk, err := TypeOf(k, n.Right)
	if err != nil {
		return KindInvalid, err
	}
	if lk == Bool || rk == Bool {
		return KindInvalid, NewTypeNotSupported("operator %s does not accept bool operands", n.Op)
	}
	if n.Op.IsComparison() && (lk.IsVector() || rk.IsVector()) {
		return KindInvalid, NewTypeNotSupported("comparison %s requires scalar operands, got %s and %s", n.Op, lk, rk)
	}
	u, ok := unify(lk, rk)
	if !ok {
		return KindInvalid, NewTypeNotSupported("operator %s: incompatible operands %s and %s", n.Op, lk, rk)
	}
	if n.Op == BinaryModulo && !u.IsInteger() {
		return KindInvalid, NewTypeNotSupported("operator %% requires integer operands, got %s", u)
	}
	return u, nil
}

func unify(a, b Kind) (Kind, bool) {
	if a == b {
		return a, true
	}
	switch {
	case a.IsVector() && b.IsVector():
		return KindInvalid, false
	case a.IsVector():
		return a, promotesTo(b, a.Scalar())
	case b.IsVector():
		return b, promotesTo(a, b.Scalar())
	}
	// Scalars.
	switch {
	case a == Double || b == Double:
		return Double, true
	case a == Float || b == Float:
		return Float, true
	default:
		// Int with UInt.
		return UInt, true
	}
}

// promotesTo reports whether scalar s converts to scalar t without loss of
// kind (int into float, int into uint and the identity).
func promotesTo(s, t Kind) bool {
	switch t {
	case s:
		return true
	case Float:
		return s == Int || s == UInt
	case UInt:
		return s == Int
	case Int:
		return s == UInt
	default:
		return false
	}
}
