package authz

import "context"

// Principal はリクエスト単位で解決された認証主体のスナップショットです。
type Principal struct {
	AccountID     int64
	Username      string
	Authenticated bool
	Staff         bool
	Superuser     bool
	Groups        []string
}

// Anonymous は未認証の主体を返します。
func Anonymous() Principal {
	return Principal{}
}

// IsAuthenticated は有効なセッションを持つ主体かどうかを返します。
func (p Principal) IsAuthenticated() bool {
	return p.Authenticated && p.AccountID > 0
}

// InGroup は主体がいずれかのグループに所属しているかを返します。
func (p Principal) InGroup(groups ...string) bool {
	for _, want := range groups {
		for _, have := range p.Groups {
			if have == want {
				return true
			}
		}
	}
	return false
}

type principalContextKey struct{}

var ctxKey = principalContextKey{}

// WithPrincipal はコンテキストに主体を格納します。
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey, p)
}

// PrincipalFromContext はコンテキストから主体を取り出します。存在しなければ未認証主体を返します。
func PrincipalFromContext(ctx context.Context) Principal {
	if ctx == nil {
		return Anonymous()
	}
	p, ok := ctx.Value(ctxKey).(Principal)
	if !ok {
		return Anonymous()
	}
	return p
}
