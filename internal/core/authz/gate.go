package authz

import "fmt"

// グループ名。
const (
	GroupRRHH       = "RRHH"
	GroupGerente    = "Gerente"
	GroupSupervisor = "Supervisor"
	GroupUsuario    = "Usuario"
)

// Operation は認可対象の操作です。
type Operation string

const (
	OpListEmployees  Operation = "employee.list"
	OpGetEmployee    Operation = "employee.get"
	OpCreateEmployee Operation = "employee.create"
	OpUpdateEmployee Operation = "employee.update"
	OpDeleteEmployee Operation = "employee.delete"
	OpExportEmployee Operation = "employee.export"
	OpDashboard      Operation = "employee.dashboard"
	OpListAudit      Operation = "audit.list"
)

type requirement struct {
	groups    []string
	superuser bool
}

// requirements は操作ごとの固定の必要条件です。groups が空の場合は認証のみを要求します。
var requirements = map[Operation]requirement{
	OpListEmployees:  {},
	OpGetEmployee:    {},
	OpCreateEmployee: {groups: []string{GroupRRHH}},
	OpUpdateEmployee: {groups: []string{GroupGerente}},
	OpDeleteEmployee: {superuser: true},
	OpExportEmployee: {groups: []string{GroupRRHH}},
	OpDashboard:      {groups: []string{GroupGerente}},
	OpListAudit:      {},
}

// IsAllowed は主体が管理者 (staff) であるか、必要グループのいずれかに所属していれば true を返します。
func IsAllowed(p Principal, requiredGroups []string) bool {
	if !p.IsAuthenticated() {
		return false
	}
	if p.Staff {
		return true
	}
	return p.InGroup(requiredGroups...)
}

// IsSuperAdmin はスーパーユーザーのみを許可します。グループ所属では満たせません。
func IsSuperAdmin(p Principal) bool {
	return p.IsAuthenticated() && p.Superuser
}

// RequiredGroups は操作に必要なグループを返します。
func RequiredGroups(op Operation) []string {
	req, ok := requirements[op]
	if !ok {
		return nil
	}
	out := make([]string, len(req.groups))
	copy(out, req.groups)
	return out
}

// Authorize は操作の可否を判定し、拒否された場合は理由に応じたエラーを返します。
func Authorize(p Principal, op Operation) error {
	req, ok := requirements[op]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}

	if !p.IsAuthenticated() {
		return ErrUnauthenticated
	}

	switch {
	case req.superuser:
		if IsSuperAdmin(p) {
			return nil
		}
	case len(req.groups) == 0:
		return nil
	default:
		if IsAllowed(p, req.groups) {
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrPermissionDenied, op)
}
