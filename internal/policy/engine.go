// Package policy evaluates route access decisions with OPA.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

const (
	DecisionAllow = "allow"
	DecisionDeny  = "deny"
)

// Input is the document a request is evaluated against.
type Input struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	UID    string `json:"uid"`
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine prepares policyContent. An empty string loads DefaultPolicy.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	if policyContent == "" {
		policyContent = DefaultPolicy
	}
	r := rego.New(
		rego.Query("data.http_access"),
		rego.Module("http_access.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate returns the decision for in and the reason the policy gave.
// A policy that produces no decision denies.
func (e *Engine) Evaluate(ctx context.Context, in Input) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(in))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionDeny, "no result", nil
	}

	doc, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return DecisionDeny, "unexpected return type", nil
	}
	decision, _ := doc["decision"].(string)
	reason, _ := doc["reason"].(string)
	if decision == "" {
		return DecisionDeny, "no decision", nil
	}
	return decision, reason, nil
}

// Public reports whether path is reachable without credentials.
func (e *Engine) Public(ctx context.Context, method, path string) (bool, error) {
	decision, _, err := e.Evaluate(ctx, Input{Method: method, Path: path})
	if err != nil {
		return false, err
	}
	return decision == DecisionAllow, nil
}

// DefaultPolicy lets anyone reach the probes and requires a uid elsewhere.
const DefaultPolicy = `
package http_access

public_paths := {"/", "/health", "/metrics"}

default decision = "deny"
default reason = "Missing or invalid authorization header"

decision = "allow" {
	public_paths[input.path]
}

decision = "allow" {
	input.method == "OPTIONS"
}

decision = "allow" {
	not public_paths[input.path]
	input.method != "OPTIONS"
	input.uid != ""
}

reason = "public" {
	public_paths[input.path]
}

reason = "authenticated" {
	not public_paths[input.path]
	input.uid != ""
}
`
