package query

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"github.com/aquavit/Brahma-sub001/internal/ir"
)

// DefaultRangeName is the range identifier used when a Definition leaves it empty.
const DefaultRangeName = "r"

// Definition is a textual kernel description.
type Definition struct {
	Name      string
	Dims      ir.Dims
	RangeName string
	Params    []ParamDecl

	// Body holds Go assignment statements, evaluated in order.
	Body []string
}

// ParamDecl declares one buffer parameter.
type ParamDecl struct {
	Name string
	Kind ir.Kind
}

// bodyLineOffset is the number of wrapper lines preceding the body.
const bodyLineOffset = 2

// Parse lowers a Definition into a validated kernel.
func Parse(def Definition) (*ir.Kernel, error) {
	p := &lowerer{
		rangeName: def.RangeName,
		params:    make(map[string]int, len(def.Params)),
		kernel:    &ir.Kernel{Name: def.Name, Dims: def.Dims},
	}
	if p.rangeName == "" {
		p.rangeName = DefaultRangeName
	}
	for i, decl := range def.Params {
		if decl.Name == p.rangeName {
			return nil, ir.NewUnsupportedExpression("parameter %q shadows the range identifier", decl.Name)
		}
		if _, dup := p.params[decl.Name]; dup {
			return nil, ir.NewUnsupportedExpression("duplicate parameter %q", decl.Name)
		}
		p.params[decl.Name] = i
		p.kernel.Params = append(p.kernel.Params, ir.Param{Name: decl.Name, Kind: decl.Kind})
	}

	src := "package p\nfunc _() {\n" + strings.Join(def.Body, "\n") + "\n}\n"
	p.fset = token.NewFileSet()
	file, err := parser.ParseFile(p.fset, def.Name, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, ir.NewUnsupportedExpression("kernel %s: %v", def.Name, err)
	}
	fn, ok := file.Decls[0].(*ast.FuncDecl)
	if !ok || len(file.Decls) != 1 {
		return nil, ir.NewUnsupportedExpression("kernel %s: body must contain statements only", def.Name)
	}
	for _, stmt := range fn.Body.List {
		if err := p.statement(stmt); err != nil {
			return nil, err
		}
	}
	if err := ir.Validate(p.kernel); err != nil {
		return nil, err
	}
	return p.kernel, nil
}

type lowerer struct {
	fset      *token.FileSet
	rangeName string
	params    map[string]int
	kernel    *ir.Kernel
}

func (p *lowerer) errorf(node ast.Node, ctor func(string, ...any) *ir.TranslationError, format string, args ...any) error {
	pos := p.fset.Position(node.Pos())
	return ctor("%d:%d: %s", pos.Line-bodyLineOffset, pos.Column, fmt.Sprintf(format, args...))
}

var compoundOps = map[token.Token]ir.BinaryOp{
	token.ADD_ASSIGN: ir.BinaryAdd,
	token.SUB_ASSIGN: ir.BinarySubtract,
	token.MUL_ASSIGN: ir.BinaryMultiply,
	token.QUO_ASSIGN: ir.BinaryDivide,
	token.REM_ASSIGN: ir.BinaryModulo,
}

func (p *lowerer) statement(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.AssignStmt:
		if s.Tok == token.DEFINE {
			return p.errorf(s, ir.NewUnsupportedExpression, "declarations are not supported")
		}
		if len(s.Lhs) != 1 || len(s.Rhs) != 1 {
			return p.errorf(s, ir.NewUnsupportedExpression, "multiple assignment")
		}
		target, err := p.target(s.Lhs[0])
		if err != nil {
			return err
		}
		value, err := p.expr(s.Rhs[0])
		if err != nil {
			return err
		}
		switch s.Tok {
		case token.ASSIGN:
		default:
			op, ok := compoundOps[s.Tok]
			if !ok {
				return p.errorf(s, ir.NewUnsupportedExpression, "operator %s", s.Tok)
			}
			value = ir.Binary{Op: op, Left: target, Right: value}
		}
		p.kernel.Body = append(p.kernel.Body, ir.Store{Param: target.Param, Index: target.Index, Value: value})
		return nil

	case *ast.IncDecStmt:
		target, err := p.target(s.X)
		if err != nil {
			return err
		}
		op := ir.BinaryAdd
		if s.Tok == token.DEC {
			op = ir.BinarySubtract
		}
		value := ir.Binary{Op: op, Left: target, Right: ir.IntLit(1)}
		p.kernel.Body = append(p.kernel.Body, ir.Store{Param: target.Param, Index: target.Index, Value: value})
		return nil

	case *ast.EmptyStmt:
		return nil

	default:
		return p.errorf(stmt, ir.NewUnsupportedExpression, "statement %T is not an assignment", stmt)
	}
}

// target lowers an assignment target. Only buffer[index] is writable.
func (p *lowerer) target(e ast.Expr) (ir.Load, error) {
	if paren, ok := e.(*ast.ParenExpr); ok {
		return p.target(paren.X)
	}
	idx, ok := e.(*ast.IndexExpr)
	if !ok {
		if id, ok := e.(*ast.Ident); ok {
			if _, err := p.ident(id); err != nil {
				return ir.Load{}, err
			}
		}
		return ir.Load{}, p.errorf(e, ir.NewUnsupportedExpression, "assignment target must be an indexed buffer element")
	}
	node, err := p.expr(idx)
	if err != nil {
		return ir.Load{}, err
	}
	return node.(ir.Load), nil
}

func (p *lowerer) expr(e ast.Expr) (ir.Expr, error) {
	switch n := e.(type) {
	case *ast.ParenExpr:
		return p.expr(n.X)

	case *ast.Ident:
		return p.ident(n)

	case *ast.SelectorExpr:
		return p.selector(n)

	case *ast.IndexExpr:
		base, ok := n.X.(*ast.Ident)
		if !ok {
			return nil, p.errorf(n, ir.NewUnsupportedExpression, "only declared buffers can be indexed")
		}
		param, ok := p.params[base.Name]
		if !ok {
			if base.Name == p.rangeName {
				return nil, p.errorf(n, ir.NewUnsupportedExpression, "the range %s cannot be indexed", base.Name)
			}
			return nil, p.errorf(n, ir.NewUnresolvedSymbol, "undeclared buffer %q", base.Name)
		}
		index, err := p.expr(n.Index)
		if err != nil {
			return nil, err
		}
		return ir.Load{Param: param, Index: index}, nil

	case *ast.BinaryExpr:
		op, ok := binaryOps[n.Op]
		if !ok {
			return nil, p.errorf(n, ir.NewUnsupportedExpression, "operator %s", n.Op)
		}
		left, err := p.expr(n.X)
		if err != nil {
			return nil, err
		}
		right, err := p.expr(n.Y)
		if err != nil {
			return nil, err
		}
		return ir.Binary{Op: op, Left: left, Right: right}, nil

	case *ast.UnaryExpr:
		switch n.Op {
		case token.ADD:
			return p.expr(n.X)
		case token.SUB:
			if lit, ok := n.X.(*ast.BasicLit); ok {
				return p.literal(lit, true)
			}
			v, err := p.expr(n.X)
			if err != nil {
				return nil, err
			}
			return ir.Negate{Value: v}, nil
		default:
			return nil, p.errorf(n, ir.NewUnsupportedExpression, "unary operator %s", n.Op)
		}

	case *ast.BasicLit:
		return p.literal(n, false)

	case *ast.CallExpr:
		return nil, p.errorf(n, ir.NewUnsupportedExpression, "calls are not supported")

	default:
		return nil, p.errorf(e, ir.NewUnsupportedExpression, "expression %T", e)
	}
}

var binaryOps = map[token.Token]ir.BinaryOp{
	token.ADD: ir.BinaryAdd,
	token.SUB: ir.BinarySubtract,
	token.MUL: ir.BinaryMultiply,
	token.QUO: ir.BinaryDivide,
	token.REM: ir.BinaryModulo,
	token.EQL: ir.BinaryEqual,
	token.NEQ: ir.BinaryNotEqual,
	token.LSS: ir.BinaryLess,
	token.LEQ: ir.BinaryLessEqual,
	token.GTR: ir.BinaryGreater,
	token.GEQ: ir.BinaryGreaterEqual,
}

func (p *lowerer) ident(id *ast.Ident) (ir.Expr, error) {
	if id.Name == p.rangeName {
		return ir.Coord{Component: ir.ComponentAll}, nil
	}
	if _, ok := p.params[id.Name]; ok {
		return nil, p.errorf(id, ir.NewUnsupportedExpression, "buffer %s used without an index", id.Name)
	}
	return nil, p.errorf(id, ir.NewUnresolvedSymbol, "undeclared name %q", id.Name)
}

var rangeMembers = map[string]ir.Component{
	"Current":  ir.ComponentAll,
	"CurrentX": ir.ComponentX,
	"CurrentY": ir.ComponentY,
	"CurrentZ": ir.ComponentZ,
}

var vectorMembers = map[string]ir.Component{
	"X": ir.ComponentX,
	"Y": ir.ComponentY,
	"Z": ir.ComponentZ,
	"W": ir.ComponentW,
}

func (p *lowerer) selector(n *ast.SelectorExpr) (ir.Expr, error) {
	if base, ok := n.X.(*ast.Ident); ok && base.Name == p.rangeName {
		c, ok := rangeMembers[n.Sel.Name]
		if !ok {
			return nil, p.errorf(n, ir.NewUnsupportedExpression, "range has no member %s", n.Sel.Name)
		}
		return ir.Coord{Component: c}, nil
	}
	value, err := p.expr(n.X)
	if err != nil {
		return nil, err
	}
	c, ok := vectorMembers[n.Sel.Name]
	if !ok {
		return nil, p.errorf(n, ir.NewUnsupportedExpression, "member %s", n.Sel.Name)
	}
	return ir.Member{Value: value, Component: c}, nil
}

func (p *lowerer) literal(lit *ast.BasicLit, negative bool) (ir.Expr, error) {
	text := lit.Value
	if negative {
		text = "-" + text
	}
	switch lit.Kind {
	case token.INT:
		v, err := strconv.ParseInt(text, 0, 32)
		if err != nil {
			return nil, p.errorf(lit, ir.NewTypeNotSupported, "integer literal %s does not fit in int", text)
		}
		return ir.IntLit(int32(v)), nil
	case token.FLOAT:
		v, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return nil, p.errorf(lit, ir.NewTypeNotSupported, "float literal %s does not fit in float", text)
		}
		return ir.FloatLit(float32(v)), nil
	default:
		return nil, p.errorf(lit, ir.NewUnsupportedExpression, "literal %s", lit.Value)
	}
}
