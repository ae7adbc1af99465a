package nemd

import (
	"fmt"
	"strconv"
)

// Expr is a scalar expression over previously declared variables.
type Expr interface {
	Eval(env map[string]float64) (float64, error)
	// Script renders the expression in the engine's equal-style syntax.
	Script() string
	refs() []string
}

type literal float64

type ref string

// thermo is a value supplied by the loaded state, such as a box bound.
type thermo string

type binary struct {
	op   byte
	l, r Expr
}

// Lit is a numeric literal.
func Lit(v float64) Expr { return literal(v) }

// Thermo reads a quantity owned by the loaded simulation state. It renders as
// the engine's thermo keyword and evaluates from the inputs passed to Eval.
func Thermo(keyword string) Expr { return thermo(keyword) }

// Ref refers to a variable declared earlier.
func Ref(name string) Expr { return ref(name) }

func Add(l, r Expr) Expr { return binary{op: '+', l: l, r: r} }
func Sub(l, r Expr) Expr { return binary{op: '-', l: l, r: r} }
func Mul(l, r Expr) Expr { return binary{op: '*', l: l, r: r} }
func Div(l, r Expr) Expr { return binary{op: '/', l: l, r: r} }

func (l literal) Eval(map[string]float64) (float64, error) {
	return float64(l), nil
}

func (l literal) Script() string {
	return strconv.FormatFloat(float64(l), 'g', -1, 64)
}

func (l literal) refs() []string { return nil }

func (r ref) Eval(env map[string]float64) (float64, error) {
	v, ok := env[string(r)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUndefinedVariable, string(r))
	}
	return v, nil
}

func (r ref) Script() string { return "v_" + string(r) }
func (r ref) refs() []string { return []string{string(r)} }

func (t thermo) Eval(env map[string]float64) (float64, error) {
	v, ok := env[string(t)]
	if !ok {
		return 0, fmt.Errorf("%w: input %s", ErrUndefinedVariable, string(t))
	}
	return v, nil
}

func (t thermo) Script() string { return string(t) }
func (t thermo) refs() []string { return nil }

func (b binary) Eval(env map[string]float64) (float64, error) {
	l, err := b.l.Eval(env)
	if err != nil {
		return 0, err
	}
	r, err := b.r.Eval(env)
	if err != nil {
		return 0, err
	}
	switch b.op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	case '/':
		if r == 0 {
			return 0, fmt.Errorf("%w: division by zero", ErrParameterBounds)
		}
		return l / r, nil
	}
	return 0, fmt.Errorf("nemd: unknown operator %q", b.op)
}

func (b binary) Script() string {
	return "(" + b.l.Script() + string(b.op) + b.r.Script() + ")"
}

func (b binary) refs() []string {
	return append(b.l.refs(), b.r.refs()...)
}

// Variable is one named declaration.
type Variable struct {
	Name string
	Expr Expr
}

// Variables is an ordered list of declarations. A variable may only refer to
// variables declared before it.
type Variables struct {
	decls []Variable
	index map[string]int
}

func NewVariables() *Variables {
	return &Variables{index: make(map[string]int)}
}

// Define appends a declaration. It fails if the name is taken or the
// expression refers to a name not declared yet.
func (v *Variables) Define(name string, e Expr) error {
	if _, ok := v.index[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateVariable, name)
	}
	for _, r := range e.refs() {
		if _, ok := v.index[r]; !ok {
			return fmt.Errorf("%w: %s (in %s)", ErrUndefinedVariable, r, name)
		}
	}
	v.index[name] = len(v.decls)
	v.decls = append(v.decls, Variable{Name: name, Expr: e})
	return nil
}

// MustDefine is Define for fixed declaration lists built in code.
func (v *Variables) MustDefine(name string, e Expr) {
	if err := v.Define(name, e); err != nil {
		panic(err)
	}
}

func (v *Variables) Len() int { return len(v.decls) }

// Decls returns the declarations in order.
func (v *Variables) Decls() []Variable {
	out := make([]Variable, len(v.decls))
	copy(out, v.decls)
	return out
}

// Eval evaluates every declaration in order, seeding the environment with
// inputs (values supplied by the loaded state, such as box bounds).
func (v *Variables) Eval(inputs map[string]float64) (map[string]float64, error) {
	env := make(map[string]float64, len(inputs)+len(v.decls))
	for k, val := range inputs {
		env[k] = val
	}
	for _, d := range v.decls {
		val, err := d.Expr.Eval(env)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", d.Name, err)
		}
		env[d.Name] = val
	}
	return env, nil
}
