package account

import "errors"

var (
	// ErrAccountNotFound はアカウントが存在しない場合に返却されます。
	ErrAccountNotFound = errors.New("account: not found")
)
