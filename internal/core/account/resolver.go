package account

import (
	"context"
	"errors"

	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/authz"
)

// Resolver はアカウント ID から認証主体を解決します。
type Resolver struct {
	repo Repository
}

// NewResolver は Resolver を生成します。
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve はリクエストごとに 1 度だけアカウントを読み込み、権限スナップショットを返します。
// 存在しない・無効なアカウントは未認証の主体になります。
func (r *Resolver) Resolve(ctx context.Context, accountID int64) (authz.Principal, error) {
	if accountID <= 0 {
		return authz.Anonymous(), nil
	}

	acc, err := r.repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return authz.Anonymous(), nil
		}
		return authz.Anonymous(), err
	}

	if !acc.Active {
		return authz.Anonymous(), nil
	}
	return acc.Principal(), nil
}
