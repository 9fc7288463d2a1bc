// Package policy evaluates tool invocations against a rego policy.
package policy

import (
	"context"

	"github.com/open-policy-agent/opa/rego"
	"github.com/pkg/errors"
)

// Engine is the OPA policy engine gating tool execution.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.assistant_tools.decision"),
		rego.Module("assistant_tools.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare rego")
	}

	return &Engine{query: query}, nil
}

// Evaluate checks the tool policy. Input carries tool_name, args, and
// user_id. Returns the decision (allow or block) and an optional reason.
func (e *Engine) Evaluate(ctx context.Context, input any) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", "", errors.Wrap(err, "failed to evaluate policy")
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return "allow", "default", nil
	}

	switch val := results[0].Expressions[0].Value.(type) {
	case string:
		return val, "", nil
	case map[string]any:
		decision, _ := val["decision"].(string)
		reason, _ := val["reason"].(string)
		if decision == "" {
			decision = "allow"
		}
		return decision, reason, nil
	}
	return "allow", "unexpected return type", nil
}

// DefaultPolicy is the default policy content. Operators can replace it
// without touching the tool handlers: a tool is executed only when the
// decision evaluates to "allow".
const DefaultPolicy = `
package assistant_tools

default decision = "allow"

# Briefings may only go out over known channels.
decision = "block" {
	input.tool_name == "send_briefing"
	not valid_channel
}

valid_channel {
	input.args.channel == "email"
}

valid_channel {
	input.args.channel == "sms"
}
`
