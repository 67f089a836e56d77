package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	userdomain "rental-backoffice/backend/internal/user/domain"
)

const roleQuery = "data.rental.authz.allow"

// DefaultRolePolicy grants access when the caller's role equals the route's required role.
// Landlords get no implicit access to tenant-only routes and vice versa.
const DefaultRolePolicy = `package rental.authz

default allow := false

allow if {
	input.identity.role == input.required_role
}
`

// OPAEvaluator evaluates the role policy with OPA Rego. The policy is compiled once and the
// prepared query is reused for every request.
type OPAEvaluator struct {
	source   string
	prepared rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles policy (DefaultRolePolicy when empty) and prepares the allow query.
func NewOPAEvaluator(ctx context.Context, policy string) (*OPAEvaluator, error) {
	if policy == "" {
		policy = DefaultRolePolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"role_policy.rego": policy})
	if err != nil {
		return nil, fmt.Errorf("compile role policy: %w", err)
	}
	prepared, err := rego.New(
		rego.Query(roleQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare role policy: %w", err)
	}
	return &OPAEvaluator{source: policy, prepared: prepared}, nil
}

// NewOPAEvaluatorFromFile reads a Rego module from path. An empty path uses DefaultRolePolicy.
func NewOPAEvaluatorFromFile(ctx context.Context, path string) (*OPAEvaluator, error) {
	if path == "" {
		return NewOPAEvaluator(ctx, "")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read role policy: %w", err)
	}
	return NewOPAEvaluator(ctx, string(b))
}

// Allow evaluates the policy for the given role pair. An undefined result is a denial.
func (e *OPAEvaluator) Allow(ctx context.Context, role, required userdomain.Role) (bool, error) {
	input := map[string]any{
		"identity":      map[string]any{"role": string(role)},
		"required_role": string(required),
	}
	rs, err := e.prepared.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("eval role policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}
	allowed, ok := rs[0].Expressions[0].Value.(bool)
	return ok && allowed, nil
}

// HealthCheck verifies that the loaded policy still compiles and evaluates to a decision.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	compiler, err := ast.CompileModules(map[string]string{"role_policy.rego": e.source})
	if err != nil {
		return fmt.Errorf("compile role policy: %w", err)
	}
	rs, err := rego.New(
		rego.Query(roleQuery),
		rego.Compiler(compiler),
		rego.Input(map[string]any{
			"identity":      map[string]any{"role": string(userdomain.RoleLandlord)},
			"required_role": string(userdomain.RoleLandlord),
		}),
	).Eval(ctx)
	if err != nil {
		return fmt.Errorf("eval role policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("role policy query returned no result")
	}
	return nil
}
