package auth

import (
	"context"
	"errors"
)

// ErrUnauthenticated is the only error the resolver surfaces. Missing
// tokens, bad signatures, expired tokens and ineligible accounts are all
// indistinguishable to callers so that failures leak nothing about why.
var ErrUnauthenticated = errors.New("auth: unauthenticated")

// AccountSource loads the current account record for a subject id. It is the
// single suspension point on the guarded path; there is deliberately no
// caching in front of it, so deactivating an account takes effect on the
// very next request.
type AccountSource interface {
	FindAccountByID(ctx context.Context, id string) (*Account, error)
}

// Resolver converts a bearer token into a trusted, currently-valid
// Principal for a required kind.
type Resolver struct {
	codec  *Codec
	source AccountSource
}

// NewResolver constructs a Resolver.
func NewResolver(codec *Codec, source AccountSource) *Resolver {
	return &Resolver{codec: codec, source: source}
}

// Resolve verifies an access token and loads its principal.
func (r *Resolver) Resolve(ctx context.Context, token string, kind Kind) (*Principal, error) {
	cl, err := r.codec.DecodeAccess(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	return r.resolveClaims(ctx, cl, kind)
}

// ResolveRefresh verifies a refresh token and loads its principal. Used by
// the token-refresh flow, which applies the same eligibility rules as the
// guarded path.
func (r *Resolver) ResolveRefresh(ctx context.Context, token string, kind Kind) (*Principal, error) {
	cl, err := r.codec.DecodeRefresh(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	return r.resolveClaims(ctx, cl, kind)
}

func (r *Resolver) resolveClaims(ctx context.Context, cl *Claims, kind Kind) (*Principal, error) {
	if cl.Subject == "" || cl.Kind != kind {
		return nil, ErrUnauthenticated
	}
	account, err := r.source.FindAccountByID(ctx, cl.Subject)
	if err != nil || !account.Eligible() {
		return nil, ErrUnauthenticated
	}
	// The role stored today decides the kind, not the role at issuance.
	// Demoting an admin invalidates their admin tokens immediately.
	if account.Role.Kind() != kind {
		return nil, ErrUnauthenticated
	}
	return &Principal{
		ID:               account.ID,
		Kind:             kind,
		Role:             account.Role,
		Email:            account.Email,
		RegistrationType: account.RegistrationType,
		Permissions:      account.Permissions,
	}, nil
}
