package context

import (
	"context"
)

// Operator identifies who submitted a mutation. The engine does not
// authenticate; the surrounding application passes an operator label through
// (e.g. a till id or back-office user name) and the audit log records it.
type Operator struct {
	Name string
}

type operatorContextKey struct{}

// WithOperator adds an Operator to context.
func WithOperator(ctx context.Context, op *Operator) context.Context {
	return context.WithValue(ctx, operatorContextKey{}, op)
}

// GetOperator returns the Operator from context or nil.
func GetOperator(ctx context.Context) *Operator {
	if v, ok := ctx.Value(operatorContextKey{}).(*Operator); ok {
		return v
	}
	return nil
}

// GetOperatorName returns the operator name or empty string.
func GetOperatorName(ctx context.Context) string {
	if op := GetOperator(ctx); op != nil {
		return op.Name
	}
	return ""
}
