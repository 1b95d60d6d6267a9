// Package policy evaluates Rego policies with OPA.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine prepares query against a single policy module.
func NewEngine(ctx context.Context, query, module, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query(query),
		rego.Module(module, policyContent),
	)

	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: prepared}, nil
}

// Evaluate runs the prepared query and returns its string decision.
// An undefined result yields fallback.
func (e *Engine) Evaluate(ctx context.Context, input interface{}, fallback string) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return fallback, nil
	}

	val := results[0].Expressions[0].Value
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("policy returned %T, want string", val)
	}
	return s, nil
}
