package demo

import (
	"fmt"

	"github.com/dop251/goja"
)

// Expr is a compiled JavaScript condition evaluated against a renderable's
// counters. Scripts see ticks, paints, renders, timeout_ms and name.
type Expr struct {
	src  string
	prog *goja.Program
}

// CompileExpr compiles src. An empty src yields a nil Expr.
func CompileExpr(src string) (*Expr, error) {
	if src == "" {
		return nil, nil
	}
	prog, err := goja.Compile("expr", src, true)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	return &Expr{src: src, prog: prog}, nil
}

// String returns the expression source.
func (e *Expr) String() string {
	if e == nil {
		return ""
	}
	return e.src
}

// exprEnv evaluates expressions for one renderable. goja runtimes are not
// safe for concurrent use, so each renderable owns one.
type exprEnv struct {
	vm *goja.Runtime
}

func newExprEnv() *exprEnv {
	return &exprEnv{vm: goja.New()}
}

// eval runs e with vars bound and converts the result to a bool using
// JavaScript truthiness.
func (env *exprEnv) eval(e *Expr, vars map[string]any) (bool, error) {
	for k, v := range vars {
		if err := env.vm.Set(k, v); err != nil {
			return false, fmt.Errorf("set %s: %w", k, err)
		}
	}
	val, err := env.vm.RunProgram(e.prog)
	if err != nil {
		return false, fmt.Errorf("expression error in %q: %w", e.src, err)
	}
	return val.ToBoolean(), nil
}
