package middleware

import "context"

type contextKey string

const (
	ctxCashier contextKey = "cashier_email"
	ctxRole    contextKey = "actor_role"
)

func CashierFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxCashier).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// WithIdentity injects the signed-in cashier and role into the context.
func WithIdentity(ctx context.Context, email, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxCashier, email)
	return context.WithValue(ctx, ctxRole, role)
}
