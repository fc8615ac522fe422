package auth

import "context"

type principalContextKey struct{ kind Kind }

// ContextWithPrincipal stores a resolved principal in context under a key
// scoped to its kind. Only guard middleware should call this.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	if p == nil {
		return ctx
	}
	return context.WithValue(ctx, principalContextKey{kind: p.Kind}, p)
}

// PrincipalFromContext extracts the principal resolved for the given kind,
// or nil when no guard of that kind has run.
func PrincipalFromContext(ctx context.Context, kind Kind) *Principal {
	p, _ := ctx.Value(principalContextKey{kind: kind}).(*Principal)
	return p
}
