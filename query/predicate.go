package query

import (
	"fmt"
	"strings"

	"github.com/faktum-db/faktum/fact"
)

// Expr is the predicate expression tree a Predicate clause evaluates.
type Expr interface{ isExpr() }

// ExprVar reads a bound variable's value.
type ExprVar struct{ Name string }

func (ExprVar) isExpr() {}

// ExprConst is a literal.
type ExprConst struct{ Value fact.Value }

func (ExprConst) isExpr() {}

// ExprCall applies one of the built-in operators to its arguments.
// Arithmetic: "+", "-", "*", "/". Comparison: "=", "!=", "<", "<=",
// ">", ">=". Boolean: "and", "or", "not". String: "str/contains",
// "str/starts-with", "str/ends-with".
type ExprCall struct {
	Op   string
	Args []Expr
}

func (ExprCall) isExpr() {}

// Eval evaluates e against binding, returning the result value. A
// division by zero is not an error: it returns BoolValue(false) so
// that a Predicate clause built directly on a "/" comparison simply
// fails to match rather than aborting the whole query, per the
// arithmetic promotion rules comparisons use throughout.
func Eval(e Expr, binding Binding) (fact.Value, error) {
	switch ex := e.(type) {
	case ExprVar:
		v, ok := binding[ex.Name]
		if !ok {
			return fact.Value{}, fmt.Errorf("query: unbound variable %q in predicate", ex.Name)
		}
		return v, nil
	case ExprConst:
		return ex.Value, nil
	case ExprCall:
		return evalCall(ex, binding)
	default:
		return fact.Value{}, fmt.Errorf("query: unknown expression type %T", e)
	}
}

// EvalBool evaluates e and reports whether it is truthy: only a bool
// value equal to true is; any other value is not (predicates that
// compute a number or string rather than a comparison are not truthy
// by themselves; write an explicit comparison).
func EvalBool(e Expr, binding Binding) (bool, error) {
	v, err := Eval(e, binding)
	if err != nil {
		return false, err
	}
	b, ok := v.AsBool()
	return ok && b, nil
}

func evalCall(ex ExprCall, binding Binding) (fact.Value, error) {
	switch ex.Op {
	case "and":
		for _, a := range ex.Args {
			ok, err := EvalBool(a, binding)
			if err != nil {
				return fact.Value{}, err
			}
			if !ok {
				return fact.BoolValue(false), nil
			}
		}
		return fact.BoolValue(true), nil
	case "or":
		for _, a := range ex.Args {
			ok, err := EvalBool(a, binding)
			if err != nil {
				return fact.Value{}, err
			}
			if ok {
				return fact.BoolValue(true), nil
			}
		}
		return fact.BoolValue(false), nil
	case "not":
		if len(ex.Args) != 1 {
			return fact.Value{}, fmt.Errorf("query: not takes exactly one argument")
		}
		ok, err := EvalBool(ex.Args[0], binding)
		if err != nil {
			return fact.Value{}, err
		}
		return fact.BoolValue(!ok), nil
	}

	args := make([]fact.Value, len(ex.Args))
	for i, a := range ex.Args {
		v, err := Eval(a, binding)
		if err != nil {
			return fact.Value{}, err
		}
		args[i] = v
	}

	switch ex.Op {
	case "+", "-", "*", "/":
		return arith(ex.Op, args)
	case "=", "!=", "<", "<=", ">", ">=":
		return compare(ex.Op, args)
	case "str/contains":
		return strOp(strings.Contains, args)
	case "str/starts-with":
		return strOp(strings.HasPrefix, args)
	case "str/ends-with":
		return strOp(strings.HasSuffix, args)
	default:
		return fact.Value{}, fmt.Errorf("query: unknown predicate operator %q", ex.Op)
	}
}

func strOp(fn func(s, sub string) bool, args []fact.Value) (fact.Value, error) {
	if len(args) != 2 {
		return fact.Value{}, fmt.Errorf("query: string operator takes exactly two arguments")
	}
	s, ok1 := args[0].AsString()
	sub, ok2 := args[1].AsString()
	if !ok1 || !ok2 {
		return fact.Value{}, fmt.Errorf("query: string operator requires string arguments")
	}
	return fact.BoolValue(fn(s, sub)), nil
}

// numeric promotes an int/float Value pair: if either is float, both
// are widened to float64 and isFloat is true.
func numeric(a, b fact.Value) (af, bf float64, isFloat bool, ok bool) {
	ai, aIsInt := a.AsInt()
	bi, bIsInt := b.AsInt()
	afv, aIsFloat := a.AsFloat()
	bfv, bIsFloat := b.AsFloat()

	switch {
	case aIsInt && bIsInt:
		return float64(ai), float64(bi), false, true
	case aIsInt && bIsFloat:
		return float64(ai), bfv, true, true
	case aIsFloat && bIsInt:
		return afv, float64(bi), true, true
	case aIsFloat && bIsFloat:
		return afv, bfv, true, true
	default:
		return 0, 0, false, false
	}
}

func arith(op string, args []fact.Value) (fact.Value, error) {
	if len(args) != 2 {
		return fact.Value{}, fmt.Errorf("query: arithmetic operator %q takes exactly two arguments", op)
	}
	af, bf, isFloat, ok := numeric(args[0], args[1])
	if !ok {
		return fact.Value{}, fmt.Errorf("query: arithmetic operator %q requires numeric arguments", op)
	}
	if op == "/" && bf == 0 {
		// Division by zero makes this predicate fail rather than
		// aborting the query.
		return fact.BoolValue(false), nil
	}
	var result float64
	switch op {
	case "+":
		result = af + bf
	case "-":
		result = af - bf
	case "*":
		result = af * bf
	case "/":
		result = af / bf
	}
	if isFloat || op == "/" {
		return fact.FloatValue(result), nil
	}
	return fact.IntValue(int64(result)), nil
}

func compare(op string, args []fact.Value) (fact.Value, error) {
	if len(args) != 2 {
		return fact.Value{}, fmt.Errorf("query: comparison operator %q takes exactly two arguments", op)
	}
	a, b := args[0], args[1]
	var c int
	if af, bf, _, ok := numeric(a, b); ok {
		switch {
		case af < bf:
			c = -1
		case af > bf:
			c = 1
		default:
			c = 0
		}
	} else {
		c = a.Compare(b)
	}
	switch op {
	case "=":
		return fact.BoolValue(c == 0), nil
	case "!=":
		return fact.BoolValue(c != 0), nil
	case "<":
		return fact.BoolValue(c < 0), nil
	case "<=":
		return fact.BoolValue(c <= 0), nil
	case ">":
		return fact.BoolValue(c > 0), nil
	case ">=":
		return fact.BoolValue(c >= 0), nil
	default:
		return fact.Value{}, fmt.Errorf("query: unknown comparison operator %q", op)
	}
}
