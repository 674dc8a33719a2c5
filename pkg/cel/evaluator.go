// Package cel evaluates rule selection expressions for bulk profile changes.
package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
)

// RuleFacts are the rule attributes visible to an expression.
type RuleFacts struct {
	Key        string
	Repository string
	Name       string
	Language   string
	Severity   string
	Status     string
	Tags       []string
	Params     map[string]string
}

type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("key", cel.StringType),
		cel.Variable("repository", cel.StringType),
		cel.Variable("name", cel.StringType),
		cel.Variable("language", cel.StringType),
		cel.Variable("severity", cel.StringType),
		cel.Variable("status", cel.StringType),
		cel.Variable("tags", cel.ListType(cel.StringType)),
		cel.Variable("params", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

func (e *Evaluator) ValidateFilterExpression(expression string) error {
	_, err := e.CompileFilter(expression)
	return err
}

// Filter is a compiled boolean expression over RuleFacts. It is safe for
// concurrent use.
type Filter struct {
	expression string
	program    cel.Program
}

func (e *Evaluator) CompileFilter(expression string) (*Filter, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}

	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("filter expression must return bool, got %v", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &Filter{expression: expression, program: program}, nil
}

func (f *Filter) String() string {
	return f.expression
}

func (f *Filter) Match(ctx context.Context, facts RuleFacts) (bool, error) {
	tags := facts.Tags
	if tags == nil {
		tags = []string{}
	}
	params := facts.Params
	if params == nil {
		params = map[string]string{}
	}

	vars := map[string]interface{}{
		"key":        facts.Key,
		"repository": facts.Repository,
		"name":       facts.Name,
		"language":   facts.Language,
		"severity":   facts.Severity,
		"status":     facts.Status,
		"tags":       tags,
		"params":     params,
	}

	result, _, err := f.program.ContextEval(ctx, vars)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}

// EvaluateFilter compiles and runs expression once.
func (e *Evaluator) EvaluateFilter(ctx context.Context, expression string, facts RuleFacts) (bool, error) {
	f, err := e.CompileFilter(expression)
	if err != nil {
		return false, err
	}
	return f.Match(ctx, facts)
}
