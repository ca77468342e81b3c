package audit

import (
	"strings"
	"time"
)

// ModelEmpleado は社員エンティティのモデル名です。社員別台帳はこのモデルにのみ書き込まれます。
const ModelEmpleado = "Empleado"

// Action は台帳に記録する操作ラベルです。
type Action string

const (
	ActionCreate     Action = "CREACIÓN"
	ActionEdit       Action = "EDICIÓN"
	ActionDelete     Action = "ELIMINACIÓN"
	ActionActivate   Action = "ACTIVACIÓN"
	ActionDeactivate Action = "INACTIVACIÓN"
)

// Canonical は社員別台帳で使用する 3 種類のタグのいずれかを返します。
func (a Action) Canonical() Action {
	switch a {
	case ActionCreate, ActionDelete:
		return a
	default:
		return ActionEdit
	}
}

// ExportKind はエクスポート形式です。
type ExportKind string

const (
	ExportExcel ExportKind = "Excel"
	ExportPDF   ExportKind = "PDF"
)

func (k ExportKind) exportAction() string {
	return "Exportación a " + string(k)
}

func (k ExportKind) deniedAction() string {
	return "Intento fallido de exportación a " + string(k)
}

func (k ExportKind) upper() string {
	return strings.ToUpper(string(k))
}

// Actor は操作を行ったアカウントです。未認証の場合は nil として保存されます。
type Actor struct {
	AccountID int64
	Username  string
}

// Entry は全体台帳 (bitacora) の 1 行です。
type Entry struct {
	ID        int64
	Actor     *Actor
	Model     string
	ObjectID  int64
	Action    string
	Changes   string
	CreatedAt time.Time
}

// EmployeeEntry は社員別台帳 (bitacora_empleado) の 1 行です。
type EmployeeEntry struct {
	ID         int64
	EmployeeID int64
	Actor      *Actor
	Action     Action
	Details    string
	CreatedAt  time.Time
}

// Field は差分検出に使用する文字列化済みのフィールド値です。
type Field struct {
	Name  string
	Value string
}

// Auditable は台帳に記録できるエンティティです。
// AuditFields はバージョン管理された明示的なフィールド一覧を返します。
type Auditable interface {
	AuditModel() string
	AuditID() int64
	AuditFields() []Field
}
