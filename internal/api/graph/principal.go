package graph

import (
	"context"
	"strings"
)

const RoleAdmin = "ADMIN"

// Principal 上游身份服务认证后的当前用户，本服务不做认证
type Principal struct {
	ID   string
	Role string
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.ID != ""
}

func requireUser(ctx context.Context) (Principal, error) {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		return Principal{}, errUnauthenticated
	}
	return p, nil
}

func requireAdmin(ctx context.Context) error {
	p, err := requireUser(ctx)
	if err != nil {
		return err
	}
	if !strings.EqualFold(p.Role, RoleAdmin) {
		return errForbidden
	}
	return nil
}
