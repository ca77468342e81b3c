package account

import "context"

// Repository はアカウントの参照を行うインターフェースです。
type Repository interface {
	FindByID(ctx context.Context, id int64) (*Account, error)
}
