// Package filter selects listed functions with CEL expressions.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

var (
	ErrInvalidExpr = errors.New("invalid filter expression")
	ErrEvaluation  = errors.New("filter evaluation failed")
)

// Fields are the variables a filter expression can reference.
type Fields struct {
	Name      string
	Runtime   string
	Extension string
	Schedule  string
	MainFile  string
	// SrcFile is only set when filtering source file listings.
	SrcFile string
}

func (f Fields) vars() map[string]any {
	return map[string]any{
		"name":      f.Name,
		"runtime":   f.Runtime,
		"extension": f.Extension,
		"schedule":  f.Schedule,
		"main_file": f.MainFile,
		"src_file":  f.SrcFile,
	}
}

// Filter is a compiled filter expression. A nil Filter matches everything.
type Filter struct {
	expr    string
	program cel.Program
}

func newEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("runtime", cel.StringType),
		cel.Variable("extension", cel.StringType),
		cel.Variable("schedule", cel.StringType),
		cel.Variable("main_file", cel.StringType),
		cel.Variable("src_file", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("creating CEL environment: %w", err)
	}
	return env, nil
}

// Compile parses expr, which must evaluate to a bool. An empty expression
// yields a nil Filter.
func Compile(expr string) (*Filter, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}

	env, err := newEnv()
	if err != nil {
		return nil, err
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidExpr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: expression returns %s, not bool", ErrInvalidExpr, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("creating program: %w", err)
	}

	return &Filter{expr: expr, program: program}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expr
}

// Match reports whether fields satisfy the filter.
func (f *Filter) Match(fields Fields) (bool, error) {
	if f == nil {
		return true, nil
	}

	result, _, err := f.program.Eval(fields.vars())
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrEvaluation, err)
	}

	matched, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: expression did not return boolean", ErrEvaluation)
	}
	return matched, nil
}

// Apply returns the items whose fields match the filter, keeping order.
func Apply[T any](f *Filter, items []T, fields func(T) Fields) ([]T, error) {
	if f == nil {
		return items, nil
	}

	kept := make([]T, 0, len(items))
	for _, item := range items {
		ok, err := f.Match(fields(item))
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, item)
		}
	}
	return kept, nil
}
