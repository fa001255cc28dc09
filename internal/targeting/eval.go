// Package targeting implements the JsonLogic-like expression language used
// by flag targeting rules: a tree-walking interpreter over literals, "var"
// references, and operator calls, extended with the fractional, sem_ver,
// and starts_with/ends_with operators flagd requires.
package targeting

import "fmt"

// Operator is a custom (non-builtin) operator. Custom operators implement
// one evaluation method rather than participating in a dynamic object
// graph; argument nodes are handed over unevaluated so an operator can
// decide lazily which to evaluate.
type Operator interface {
	Evaluate(args []Node, frame Frame, e *Engine) (any, error)
}

// Engine compiles and evaluates targeting-expression trees against a Frame.
// It owns the table of custom operators; a zero Engine has none registered
// and only understands the builtin operator set.
type Engine struct {
	custom map[string]Operator
}

// NewEngine returns an Engine with the flagd-required custom operators
// (fractional, sem_ver, starts_with, ends_with) registered.
func NewEngine() *Engine {
	e := &Engine{custom: make(map[string]Operator)}
	e.Register("fractional", fractionalOperator{})
	e.Register("sem_ver", semVerOperator{})
	e.Register("starts_with", affixOperator{suffix: false})
	e.Register("ends_with", affixOperator{suffix: true})
	return e
}

// Register adds or replaces a custom operator by name.
func (e *Engine) Register(name string, op Operator) {
	e.custom[name] = op
}

func (e *Engine) opNames() map[string]bool {
	names := make(map[string]bool, len(e.custom))
	for name := range e.custom {
		names[name] = true
	}
	return names
}

// Compile decodes a generic JSON-shaped tree into a Node, validating
// operator names against the builtin set and this Engine's custom
// operators. An unrecognised operator name is a structural (hard) failure.
func (e *Engine) Compile(tree any) (Node, error) {
	return Compile(tree, e.opNames())
}

// Eval evaluates a compiled Node against frame. Soft failures (operator
// type mismatches) are reported as a nil result with a nil error; only
// structural problems return a non-nil error.
func (e *Engine) Eval(n Node, frame Frame) (any, error) {
	switch node := n.(type) {
	case Literal:
		return node.Value, nil
	case Var:
		return e.evalVar(node, frame)
	case Array:
		out := make([]any, len(node.Items))
		for i, item := range node.Items {
			v, err := e.Eval(item, frame)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case Op:
		return e.evalOp(node, frame)
	default:
		return nil, fmt.Errorf("targeting: unknown node type %T", n)
	}
}

func (e *Engine) evalVar(v Var, frame Frame) (any, error) {
	if v.Path == "" {
		return frame.Data, nil
	}
	val, ok := lookupPath(frame.Data, v.Path)
	if ok {
		return val, nil
	}
	if v.Default != nil {
		return e.Eval(v.Default, frame)
	}
	return nil, nil
}

func (e *Engine) evalOp(op Op, frame Frame) (any, error) {
	switch op.Name {
	case "if":
		return e.evalIf(op.Args, frame)
	case "and":
		return e.evalAnd(op.Args, frame)
	case "or":
		return e.evalOr(op.Args, frame)
	case "!":
		if len(op.Args) != 1 {
			return nil, nil
		}
		v, err := e.Eval(op.Args[0], frame)
		if err != nil {
			return nil, err
		}
		return !isTruthy(v), nil
	case "==":
		return e.evalCompareEq(op.Args, frame, true)
	case "!=":
		return e.evalCompareEq(op.Args, frame, false)
	case "==?":
		return e.evalPresentAndEqual(op.Args, frame)
	case ">", ">=", "<", "<=":
		return e.evalOrder(op.Name, op.Args, frame)
	case "in":
		return e.evalIn(op.Args, frame)
	case "cat":
		return e.evalCat(op.Args, frame)
	case "missing":
		return e.evalMissing(op.Args, frame)
	default:
		if custom, ok := e.custom[op.Name]; ok {
			return custom.Evaluate(op.Args, frame, e)
		}
		return nil, fmt.Errorf("targeting: unregistered operator %q", op.Name)
	}
}

func (e *Engine) evalIf(args []Node, frame Frame) (any, error) {
	i := 0
	for i+1 < len(args) {
		cond, err := e.Eval(args[i], frame)
		if err != nil {
			return nil, err
		}
		if isTruthy(cond) {
			return e.Eval(args[i+1], frame)
		}
		i += 2
	}
	if i < len(args) {
		return e.Eval(args[i], frame)
	}
	return nil, nil
}

func (e *Engine) evalAnd(args []Node, frame Frame) (any, error) {
	var last any
	for _, a := range args {
		v, err := e.Eval(a, frame)
		if err != nil {
			return nil, err
		}
		last = v
		if !isTruthy(v) {
			return v, nil
		}
	}
	return last, nil
}

func (e *Engine) evalOr(args []Node, frame Frame) (any, error) {
	var last any
	for _, a := range args {
		v, err := e.Eval(a, frame)
		if err != nil {
			return nil, err
		}
		last = v
		if isTruthy(v) {
			return v, nil
		}
	}
	return last, nil
}

func (e *Engine) evalCompareEq(args []Node, frame Frame, wantEqual bool) (any, error) {
	if len(args) != 2 {
		return nil, nil
	}
	left, err := e.Eval(args[0], frame)
	if err != nil {
		return nil, err
	}
	right, err := e.Eval(args[1], frame)
	if err != nil {
		return nil, err
	}
	eq := valuesEqual(left, right)
	if wantEqual {
		return eq, nil
	}
	return !eq, nil
}

func (e *Engine) evalPresentAndEqual(args []Node, frame Frame) (any, error) {
	if len(args) != 2 {
		return nil, nil
	}
	if v, ok := args[0].(Var); ok {
		if _, present := lookupPath(frame.Data, v.Path); !present {
			return false, nil
		}
	}
	left, err := e.Eval(args[0], frame)
	if err != nil {
		return nil, err
	}
	right, err := e.Eval(args[1], frame)
	if err != nil {
		return nil, err
	}
	return valuesEqual(left, right), nil
}

func (e *Engine) evalOrder(op string, args []Node, frame Frame) (any, error) {
	if len(args) != 2 {
		return nil, nil
	}
	left, err := e.Eval(args[0], frame)
	if err != nil {
		return nil, err
	}
	right, err := e.Eval(args[1], frame)
	if err != nil {
		return nil, err
	}
	cmp, ok := compareNumeric(left, right)
	if !ok {
		return nil, nil
	}
	switch op {
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	default:
		return nil, nil
	}
}

func (e *Engine) evalIn(args []Node, frame Frame) (any, error) {
	if len(args) != 2 {
		return nil, nil
	}
	needle, err := e.Eval(args[0], frame)
	if err != nil {
		return nil, err
	}
	haystack, err := e.Eval(args[1], frame)
	if err != nil {
		return nil, err
	}
	switch h := haystack.(type) {
	case []any:
		for _, item := range h {
			if valuesEqual(needle, item) {
				return true, nil
			}
		}
		return false, nil
	case string:
		needleStr, ok := asString(needle)
		if !ok {
			return nil, nil
		}
		return stringContains(h, needleStr), nil
	default:
		return nil, nil
	}
}

func (e *Engine) evalCat(args []Node, frame Frame) (any, error) {
	out := ""
	for _, a := range args {
		v, err := e.Eval(a, frame)
		if err != nil {
			return nil, err
		}
		out += toDisplayString(v)
	}
	return out, nil
}

func (e *Engine) evalMissing(args []Node, frame Frame) (any, error) {
	missing := make([]any, 0)
	for _, a := range args {
		v, err := e.Eval(a, frame)
		if err != nil {
			return nil, err
		}
		name, ok := asString(v)
		if !ok {
			continue
		}
		if _, present := lookupPath(frame.Data, name); !present {
			missing = append(missing, name)
		}
	}
	return missing, nil
}
