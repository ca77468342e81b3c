package account

import (
	"time"

	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/authz"
)

// Role はアカウントの役割です。認可判定にはグループとフラグを使用し、Role は表示用です。
type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleRRHH       Role = "rrhh"
	RoleSupervisor Role = "supervisor"
	RoleGerente    Role = "gerente"
	RoleUsuario    Role = "usuario"
)

// Account は認証主体の元になるアカウントです。資格情報は保持しません。
type Account struct {
	ID        int64
	Username  string
	Email     string
	Role      Role
	Staff     bool
	Superuser bool
	Active    bool
	Groups    []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Principal はアカウントから権限スナップショットを生成します。
func (a *Account) Principal() authz.Principal {
	groups := make([]string, len(a.Groups))
	copy(groups, a.Groups)
	return authz.Principal{
		AccountID:     a.ID,
		Username:      a.Username,
		Authenticated: a.Active,
		Staff:         a.Staff,
		Superuser:     a.Superuser,
		Groups:        groups,
	}
}
